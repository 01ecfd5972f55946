// Package listing filters, sorts and paginates catalog products. Every
// listing page of the site goes through FilterAndSort and Paginate.
package listing

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"ppecatalog/internal/domain"
)

const (
	ProductPageSize = 12
	CatalogPageSize = 9
)

// Scope keeps the products of subCategoryID, then of categoryID. subs maps
// products to their category; an empty id imposes no restriction.
func Scope(products []domain.Product, subs []domain.SubCategory, categoryID, subCategoryID string) []domain.Product {
	var inCategory map[string]bool
	if categoryID != "" {
		inCategory = map[string]bool{}
		for _, s := range subs {
			if s.CategoryID == categoryID {
				inCategory[s.ID] = true
			}
		}
	}
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if inCategory != nil && !inCategory[p.SubCategoryID] {
			continue
		}
		if subCategoryID != "" && p.SubCategoryID != subCategoryID {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Matches reports whether p passes the search and facet selections of q.
// Selections are ORed within a key and ANDed across keys.
func Matches(p domain.Product, q Query) bool {
	if s := Fold(q.Search); s != "" {
		if !strings.Contains(Fold(p.Name), s) &&
			!strings.Contains(Fold(p.Description), s) &&
			!strings.Contains(Fold(p.Reference), s) {
			return false
		}
	}
	for key, selected := range q.Facets {
		if len(selected) == 0 {
			continue
		}
		have := map[string]bool{}
		for _, v := range foldedValues(p.Specifications[key]) {
			have[v] = true
		}
		hit := false
		for _, v := range selected {
			if have[Fold(v)] {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// Filter keeps the products matching q, in order.
func Filter(products []domain.Product, q Query) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if Matches(p, q) {
			out = append(out, p)
		}
	}
	return out
}

// SortProducts sorts products in place. Ties keep their order.
func SortProducts(products []domain.Product, s Sort) {
	switch s {
	case SortNewest:
		sort.SliceStable(products, func(i, j int) bool {
			return LastUpdate(products[i]).After(LastUpdate(products[j]))
		})
	case SortNameAsc, SortNameDesc:
		c := collate.New(language.French, collate.IgnoreCase)
		sort.SliceStable(products, func(i, j int) bool {
			cmp := c.CompareString(products[i].Name, products[j].Name)
			if s == SortNameDesc {
				return cmp > 0
			}
			return cmp < 0
		})
	}
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// LastUpdate is the technical sheet date of p, or the Unix epoch when the
// sheet or its date is missing or unreadable.
func LastUpdate(p domain.Product) time.Time {
	if p.Documentation.TechnicalSheet == nil {
		return time.Unix(0, 0)
	}
	raw := strings.TrimSpace(p.Documentation.TechnicalSheet.LastUpdate)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Unix(0, 0)
}

// FilterAndSort scopes products by q's category and subcategory, applies
// search and facets, then sorts. The input slice is left untouched.
func FilterAndSort(products []domain.Product, subs []domain.SubCategory, q Query) []domain.Product {
	out := Filter(Scope(products, subs, q.CategoryID, q.SubCategoryID), q)
	SortProducts(out, q.Sort)
	return out
}

// Page is one page of a listing.
type Page[T any] struct {
	Items      []T
	Number     int
	Size       int
	Total      int
	TotalPages int
}

// HasPrev and HasNext drive the pager links.
func (p Page[T]) HasPrev() bool { return p.Number > 1 }
func (p Page[T]) HasNext() bool { return p.Number < p.TotalPages }

// Pages lists 1..TotalPages for templates.
func (p Page[T]) Pages() []int {
	out := make([]int, p.TotalPages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// Paginate returns items[(page-1)*size : page*size]. page < 1 means the first
// page and size <= 0 means ProductPageSize. A page past the end is empty.
func Paginate[T any](items []T, page, size int) Page[T] {
	if size <= 0 {
		size = ProductPageSize
	}
	if page < 1 {
		page = 1
	}
	total := len(items)
	p := Page[T]{Number: page, Size: size, Total: total, TotalPages: total / size}
	if total%size != 0 {
		p.TotalPages++
	}
	if page > p.TotalPages {
		p.Items = []T{}
		return p
	}
	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	p.Items = items[start:end]
	return p
}

// Result is a rendered listing: the current page, the facets available in
// scope, and the query that produced them.
type Result struct {
	Query  Query
	Page   Page[domain.Product]
	Facets []Facet
}

// Run computes a full listing. Facets are drawn from the scoped products
// before search and facet filtering, so a selection never hides its siblings.
func Run(products []domain.Product, subs []domain.SubCategory, q Query, pageSize int) Result {
	scoped := Scope(products, subs, q.CategoryID, q.SubCategoryID)
	fields := FacetFields(scopeSubs(subs, q.CategoryID, q.SubCategoryID))

	filtered := Filter(scoped, q)
	SortProducts(filtered, q.Sort)
	return Result{
		Query:  q,
		Page:   Paginate(filtered, q.Page, pageSize),
		Facets: Facets(scoped, fields),
	}
}

func scopeSubs(subs []domain.SubCategory, categoryID, subCategoryID string) []domain.SubCategory {
	out := make([]domain.SubCategory, 0, len(subs))
	for _, s := range subs {
		if subCategoryID != "" && s.ID != subCategoryID {
			continue
		}
		if categoryID != "" && s.CategoryID != categoryID {
			continue
		}
		out = append(out, s)
	}
	return out
}
