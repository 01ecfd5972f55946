package domain

type Category struct {
	ID          string `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description,omitempty" db:"description"`
	Slug        string `json:"slug" db:"slug"`
	ImageURL    string `json:"imageUrl" db:"image_url"`
}

// FieldType is the value kind a SpecificationField accepts.
type FieldType string

const (
	FieldText    FieldType = "text"
	FieldNumber  FieldType = "number"
	FieldSelect  FieldType = "select"
	FieldBoolean FieldType = "boolean"
)

// SpecificationField declares one dynamic attribute carried by the products
// of a subcategory.
type SpecificationField struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Options  []string  `json:"options,omitempty"`
	Unit     string    `json:"unit,omitempty"`
	Icon     string    `json:"icon"`
}

type SubCategory struct {
	ID                  string               `json:"id"`
	Name                string               `json:"name"`
	CategoryID          string               `json:"categoryId"`
	Slug                string               `json:"slug"`
	SpecificationFields []SpecificationField `json:"specificationFields"`
}

type Image struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

// Document is a downloadable file attached to a product. LastUpdate is an
// ISO date, empty when unknown.
type Document struct {
	Title      string `json:"title,omitempty"`
	URL        string `json:"url"`
	LastUpdate string `json:"lastUpdate,omitempty"`
}

type Documentation struct {
	TechnicalSheet *Document  `json:"technicalSheet,omitempty"`
	Certifications []Document `json:"certifications,omitempty"`
	Instructions   []Document `json:"instructions,omitempty"`
}

type Product struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	Price          float64        `json:"price"`
	ImageURL       string         `json:"imageUrl,omitempty"`
	IsNew          bool           `json:"isNew,omitempty"`
	Brand          string         `json:"brand,omitempty"`
	Reference      string         `json:"reference,omitempty"`
	Images         []Image        `json:"images"`
	Specifications map[string]any `json:"specifications"`
	SubCategoryID  string         `json:"subCategoryId"`
	Documentation  Documentation  `json:"documentation"`
}

type QuoteStatus string

const (
	QuotePending    QuoteStatus = "pending"
	QuoteProcessing QuoteStatus = "processing"
	QuoteCompleted  QuoteStatus = "completed"
	QuoteRejected   QuoteStatus = "rejected"
)

// Valid reports whether s is one of the four quote statuses.
func (s QuoteStatus) Valid() bool {
	switch s {
	case QuotePending, QuoteProcessing, QuoteCompleted, QuoteRejected:
		return true
	}
	return false
}

type Quote struct {
	ID        string      `json:"id" db:"id"`
	ProductID string      `json:"productId" db:"product_id"`
	Name      string      `json:"name" db:"name"`
	Email     string      `json:"email" db:"email"`
	Phone     string      `json:"phone,omitempty" db:"phone"`
	Message   string      `json:"message,omitempty" db:"message"`
	Quantity  int         `json:"quantity" db:"quantity"`
	Status    QuoteStatus `json:"status" db:"status"`
	CreatedAt string      `json:"createdAt" db:"created_at"`
}
