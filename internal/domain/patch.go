package domain

// Patch types carry the fields of a shallow update. A nil field is left
// untouched.

type CategoryPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Slug        *string `json:"slug"`
	ImageURL    *string `json:"imageUrl"`
}

func (p CategoryPatch) Apply(c *Category) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Slug != nil {
		c.Slug = *p.Slug
	}
	if p.ImageURL != nil {
		c.ImageURL = *p.ImageURL
	}
}

type SubCategoryPatch struct {
	Name                *string               `json:"name"`
	CategoryID          *string               `json:"categoryId"`
	Slug                *string               `json:"slug"`
	SpecificationFields *[]SpecificationField `json:"specificationFields"`
}

func (p SubCategoryPatch) Apply(s *SubCategory) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.CategoryID != nil {
		s.CategoryID = *p.CategoryID
	}
	if p.Slug != nil {
		s.Slug = *p.Slug
	}
	if p.SpecificationFields != nil {
		s.SpecificationFields = *p.SpecificationFields
	}
}

type ProductPatch struct {
	Name           *string         `json:"name"`
	Description    *string         `json:"description"`
	Price          *float64        `json:"price"`
	ImageURL       *string         `json:"imageUrl"`
	IsNew          *bool           `json:"isNew"`
	Brand          *string         `json:"brand"`
	Reference      *string         `json:"reference"`
	Images         *[]Image        `json:"images"`
	Specifications *map[string]any `json:"specifications"`
	SubCategoryID  *string         `json:"subCategoryId"`
	Documentation  *Documentation  `json:"documentation"`
}

func (p ProductPatch) Apply(pr *Product) {
	if p.Name != nil {
		pr.Name = *p.Name
	}
	if p.Description != nil {
		pr.Description = *p.Description
	}
	if p.Price != nil {
		pr.Price = *p.Price
	}
	if p.ImageURL != nil {
		pr.ImageURL = *p.ImageURL
	}
	if p.IsNew != nil {
		pr.IsNew = *p.IsNew
	}
	if p.Brand != nil {
		pr.Brand = *p.Brand
	}
	if p.Reference != nil {
		pr.Reference = *p.Reference
	}
	if p.Images != nil {
		pr.Images = *p.Images
	}
	if p.Specifications != nil {
		pr.Specifications = *p.Specifications
	}
	if p.SubCategoryID != nil {
		pr.SubCategoryID = *p.SubCategoryID
	}
	if p.Documentation != nil {
		pr.Documentation = *p.Documentation
	}
}

type SpecificationFieldPatch struct {
	Name     *string    `json:"name"`
	Label    *string    `json:"label"`
	Type     *FieldType `json:"type"`
	Required *bool      `json:"required"`
	Options  *[]string  `json:"options"`
	Unit     *string    `json:"unit"`
	Icon     *string    `json:"icon"`
}

func (p SpecificationFieldPatch) Apply(f *SpecificationField) {
	if p.Name != nil {
		f.Name = *p.Name
	}
	if p.Label != nil {
		f.Label = *p.Label
	}
	if p.Type != nil {
		f.Type = *p.Type
	}
	if p.Required != nil {
		f.Required = *p.Required
	}
	if p.Options != nil {
		f.Options = *p.Options
	}
	if p.Unit != nil {
		f.Unit = *p.Unit
	}
	if p.Icon != nil {
		f.Icon = *p.Icon
	}
}
