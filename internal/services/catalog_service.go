package services

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"ppecatalog/internal/domain"
	"ppecatalog/internal/listing"
	"ppecatalog/internal/metrics"
	"ppecatalog/internal/repos"
)

type CatalogService struct {
	Store repos.Catalog
}

func NewCatalogService(store repos.Catalog) *CatalogService {
	return &CatalogService{Store: store}
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.Store.Categories(ctx)
}

// CategoryView is a category page: its subcategories and every product
// filed under them.
type CategoryView struct {
	Category      domain.Category
	SubCategories []domain.SubCategory
	Products      []domain.Product
}

// CategoryPage returns nil when no category has that slug.
func (s *CatalogService) CategoryPage(ctx context.Context, slug string) (*CategoryView, error) {
	cat, err := s.Store.CategoryBySlug(ctx, slug)
	if err != nil || cat == nil {
		return nil, err
	}
	subs, err := s.Store.SubCategories(ctx, cat.ID)
	if err != nil {
		return nil, err
	}
	prods, err := s.Store.Products(ctx, cat.ID, "")
	if err != nil {
		return nil, err
	}
	return &CategoryView{Category: *cat, SubCategories: subs, Products: prods}, nil
}

// SubCategoryView is a faceted listing scoped to one subcategory.
type SubCategoryView struct {
	Category    domain.Category
	SubCategory domain.SubCategory
	Result      listing.Result
}

// SubCategoryPage returns nil when either slug is unknown. The scope in q is
// replaced by the subcategory's.
func (s *CatalogService) SubCategoryPage(ctx context.Context, catSlug, subSlug string, q listing.Query) (*SubCategoryView, error) {
	cat, err := s.Store.CategoryBySlug(ctx, catSlug)
	if err != nil || cat == nil {
		return nil, err
	}
	sub, err := s.Store.SubCategoryBySlug(ctx, cat.ID, subSlug)
	if err != nil || sub == nil {
		return nil, err
	}
	prods, err := s.Store.Products(ctx, "", sub.ID)
	if err != nil {
		return nil, err
	}
	q.CategoryID, q.SubCategoryID = cat.ID, sub.ID
	res := listing.Run(prods, []domain.SubCategory{*sub}, q, listing.ProductPageSize)
	metrics.ListingResults.WithLabelValues("subcategory").Observe(float64(res.Page.Total))
	return &SubCategoryView{Category: *cat, SubCategory: *sub, Result: res}, nil
}

// Listing runs q over the whole catalog.
func (s *CatalogService) Listing(ctx context.Context, q listing.Query) (listing.Result, error) {
	prods, subs, err := s.everything(ctx)
	if err != nil {
		return listing.Result{}, err
	}
	res := listing.Run(prods, subs, q, listing.ProductPageSize)
	metrics.ListingResults.WithLabelValues("products").Observe(float64(res.Page.Total))
	return res, nil
}

// Catalogue lists products that publish a technical sheet, nine per page.
func (s *CatalogService) Catalogue(ctx context.Context, q listing.Query) (listing.Result, error) {
	prods, subs, err := s.everything(ctx)
	if err != nil {
		return listing.Result{}, err
	}
	withSheet := make([]domain.Product, 0, len(prods))
	for _, p := range prods {
		if p.Documentation.TechnicalSheet != nil && p.Documentation.TechnicalSheet.URL != "" {
			withSheet = append(withSheet, p)
		}
	}
	res := listing.Run(withSheet, subs, q, listing.CatalogPageSize)
	metrics.ListingResults.WithLabelValues("catalogue").Observe(float64(res.Page.Total))
	return res, nil
}

func (s *CatalogService) everything(ctx context.Context) ([]domain.Product, []domain.SubCategory, error) {
	prods, err := s.Store.Products(ctx, "", "")
	if err != nil {
		return nil, nil, fmt.Errorf("list products: %w", err)
	}
	subs, err := s.Store.SubCategories(ctx, "")
	if err != nil {
		return nil, nil, fmt.Errorf("list subcategories: %w", err)
	}
	return prods, subs, nil
}

// SpecRow is one line of a product's specification table.
type SpecRow struct {
	Key   string
	Label string
	Value string
	Unit  string
	Icon  string
}

// ProductView is a product detail page.
type ProductView struct {
	Product     domain.Product
	SubCategory *domain.SubCategory
	Category    *domain.Category
	Specs       []SpecRow
	Related     []domain.Product
}

const relatedLimit = 4

// ProductPage returns nil when the product does not exist. Orphaned products
// render without breadcrumbs.
func (s *CatalogService) ProductPage(ctx context.Context, id string) (*ProductView, error) {
	p, err := s.Store.Product(ctx, id)
	if err != nil || p == nil {
		return nil, err
	}
	v := &ProductView{Product: *p}

	sub, err := s.Store.SubCategory(ctx, p.SubCategoryID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		v.Specs = rawSpecRows(p.Specifications)
		return v, nil
	}
	v.SubCategory = sub
	v.Specs = specRows(p.Specifications, sub.SpecificationFields)

	cats, err := s.Store.Categories(ctx)
	if err != nil {
		return nil, err
	}
	for i := range cats {
		if cats[i].ID == sub.CategoryID {
			v.Category = &cats[i]
			break
		}
	}

	siblings, err := s.Store.Products(ctx, "", sub.ID)
	if err != nil {
		return nil, err
	}
	for _, sp := range siblings {
		if sp.ID != p.ID && len(v.Related) < relatedLimit {
			v.Related = append(v.Related, sp)
		}
	}
	return v, nil
}

func specRows(specs map[string]any, fields []domain.SpecificationField) []SpecRow {
	rows := make([]SpecRow, 0, len(fields))
	for _, f := range fields {
		vals := listing.SpecValues(specs[f.Name])
		if len(vals) == 0 {
			continue
		}
		rows = append(rows, SpecRow{Key: f.Name, Label: f.Label, Value: strings.Join(vals, ", "), Unit: f.Unit, Icon: f.Icon})
	}
	return rows
}

func rawSpecRows(specs map[string]any) []SpecRow {
	facets := listing.Facets([]domain.Product{{Specifications: specs}}, nil)
	rows := make([]SpecRow, 0, len(facets))
	for _, f := range facets {
		vals := make([]string, 0, len(f.Values))
		for _, v := range f.Values {
			vals = append(vals, v.Value)
		}
		rows = append(rows, SpecRow{Key: f.Key, Label: f.Label, Value: strings.Join(vals, ", ")})
	}
	return rows
}

// Suggest finds up to n products for free text: the whole text first, then
// each word of four letters or more, in the order the words appear.
func (s *CatalogService) Suggest(ctx context.Context, text string, n int) ([]domain.Product, error) {
	if strings.TrimSpace(text) == "" || n <= 0 {
		return nil, nil
	}
	prods, err := s.Store.Products(ctx, "", "")
	if err != nil {
		return nil, err
	}
	var out []domain.Product
	seen := map[string]bool{}
	add := func(search string) {
		for _, p := range listing.Filter(prods, listing.Query{Search: search}) {
			if len(out) >= n {
				return
			}
			if !seen[p.ID] {
				seen[p.ID] = true
				out = append(out, p)
			}
		}
	}
	add(text)
	for _, w := range strings.FieldsFunc(text, func(r rune) bool {
		return !(r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r))
	}) {
		if len(out) >= n {
			break
		}
		if utf8.RuneCountInString(w) >= 4 {
			add(w)
		}
	}
	return out, nil
}
