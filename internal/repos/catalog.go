package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"ppecatalog/internal/domain"
)

// ErrUnknownStatus is returned when a quote status outside the four known
// values is written.
var ErrUnknownStatus = errors.New("unknown quote status")

// Catalog is the repository behind every catalog page and form.
//
// Lookups by id never fail on absence: they return a nil record (or false for
// deletes). A non-nil error always means the backing storage failed.
type Catalog interface {
	Categories(ctx context.Context) ([]domain.Category, error)
	CategoryBySlug(ctx context.Context, slug string) (*domain.Category, error)
	AddCategory(ctx context.Context, c domain.Category) (domain.Category, error)
	UpdateCategory(ctx context.Context, id string, p domain.CategoryPatch) (*domain.Category, error)
	// DeleteCategory removes the category and its subcategories. Products of
	// those subcategories are removed only under the CascadeProducts policy;
	// otherwise they stay, pointing at a subcategory that no longer exists.
	DeleteCategory(ctx context.Context, id string) (bool, error)

	// SubCategories lists all subcategories, or those of categoryID when it is
	// not empty.
	SubCategories(ctx context.Context, categoryID string) ([]domain.SubCategory, error)
	SubCategory(ctx context.Context, id string) (*domain.SubCategory, error)
	SubCategoryBySlug(ctx context.Context, categoryID, slug string) (*domain.SubCategory, error)
	AddSubCategory(ctx context.Context, s domain.SubCategory) (domain.SubCategory, error)
	UpdateSubCategory(ctx context.Context, id string, p domain.SubCategoryPatch) (*domain.SubCategory, error)
	DeleteSubCategory(ctx context.Context, id string) (bool, error)

	// Products filters by subCategoryID when given, else by every subcategory
	// of categoryID, else returns everything.
	Products(ctx context.Context, categoryID, subCategoryID string) ([]domain.Product, error)
	// Product returns the product with its specifications restricted to the
	// fields its subcategory declares.
	Product(ctx context.Context, id string) (*domain.Product, error)
	AddProduct(ctx context.Context, p domain.Product) (domain.Product, error)
	UpdateProduct(ctx context.Context, id string, p domain.ProductPatch) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) (bool, error)

	Quotes(ctx context.Context) ([]domain.Quote, error)
	Quote(ctx context.Context, id string) (*domain.Quote, error)
	// AddQuote always stores the quote as pending, stamped with the current time.
	AddQuote(ctx context.Context, q domain.Quote) (domain.Quote, error)
	// UpdateQuoteStatus accepts any transition between the four statuses.
	UpdateQuoteStatus(ctx context.Context, id string, status domain.QuoteStatus) (*domain.Quote, error)

	SpecificationFields(ctx context.Context, subCategoryID string) ([]domain.SpecificationField, error)
	AddSpecificationField(ctx context.Context, subCategoryID string, f domain.SpecificationField) (*domain.SpecificationField, error)
	UpdateSpecificationField(ctx context.Context, subCategoryID, fieldID string, p domain.SpecificationFieldPatch) (*domain.SpecificationField, error)
	DeleteSpecificationField(ctx context.Context, subCategoryID, fieldID string) (bool, error)
}

// Outbox holds notifications waiting for delivery.
type Outbox interface {
	Enqueue(ctx context.Context, n domain.Notification) (domain.Notification, error)
	// Due returns up to limit pending notifications whose next attempt is at or
	// before now, oldest first.
	Due(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkRetry(ctx context.Context, id, lastErr string, next time.Time) error
	MarkFailed(ctx context.Context, id, lastErr string) error
	Notifications(ctx context.Context) ([]domain.Notification, error)
}

// Store is everything the application persists.
type Store interface {
	Catalog
	Outbox
	Close() error
}

// DeletePolicy decides how far category and subcategory deletes reach.
type DeletePolicy int

const (
	// CascadeSubCategories removes a category's subcategories and leaves
	// their products orphaned.
	CascadeSubCategories DeletePolicy = iota
	// CascadeProducts additionally removes the products of every removed
	// subcategory.
	CascadeProducts
)

type options struct {
	policy DeletePolicy
	now    func() time.Time
	newID  func() string
}

// Option configures a store.
type Option func(*options)

func WithDeletePolicy(p DeletePolicy) Option { return func(o *options) { o.policy = p } }

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// WithIDs replaces uuid.NewString, for tests.
func WithIDs(newID func() string) Option { return func(o *options) { o.newID = newID } }

func buildOptions(opts []Option) options {
	o := options{policy: CascadeSubCategories, now: time.Now, newID: uuid.NewString}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

func timestamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }

// reshapeSpecifications keeps exactly the keys declared by sub's fields;
// undeclared keys are dropped and missing ones are set to nil.
func reshapeSpecifications(p domain.Product, sub domain.SubCategory) domain.Product {
	specs := make(map[string]any, len(sub.SpecificationFields))
	for _, f := range sub.SpecificationFields {
		v, ok := p.Specifications[f.Name]
		if !ok {
			v = nil
		}
		specs[f.Name] = v
	}
	p.Specifications = specs
	return p
}

func newQuote(q domain.Quote, o options) domain.Quote {
	q.ID = o.newID()
	q.Status = domain.QuotePending
	q.CreatedAt = timestamp(o.now())
	return q
}

func newNotification(n domain.Notification, o options) domain.Notification {
	now := o.now()
	n.ID = o.newID()
	n.Status = domain.NotificationPending
	n.Attempts = 0
	n.LastError = ""
	n.SentAt = ""
	n.CreatedAt = timestamp(now)
	if n.NextAttemptAt == "" {
		n.NextAttemptAt = n.CreatedAt
	}
	return n
}

func normalizeProduct(p domain.Product) domain.Product {
	if p.Specifications == nil {
		p.Specifications = map[string]any{}
	}
	if p.Images == nil {
		p.Images = []domain.Image{}
	}
	return p
}
