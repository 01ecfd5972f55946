package listing

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Sort orders a listing.
type Sort string

const (
	SortDefault  Sort = ""
	SortNewest   Sort = "newest"
	SortNameAsc  Sort = "name_asc"
	SortNameDesc Sort = "name_desc"
)

// ParseSort maps unknown values to SortDefault.
func ParseSort(s string) Sort {
	switch Sort(s) {
	case SortNewest, SortNameAsc, SortNameDesc:
		return Sort(s)
	}
	return SortDefault
}

const facetPrefix = "f."

// Query is the state of a listing view. It round-trips through url.Values so
// every view can be bookmarked.
type Query struct {
	CategoryID    string
	SubCategoryID string
	Search        string
	Sort          Sort
	Page          int
	// Facets maps a specification key to the selected display values.
	Facets map[string][]string
}

// ParseQuery reads category, subcategory, q, sort, page and f.<key> params.
// Repeated f.<key> params select several values of the same facet.
func ParseQuery(v url.Values) Query {
	q := Query{
		CategoryID:    strings.TrimSpace(v.Get("category")),
		SubCategoryID: strings.TrimSpace(v.Get("subcategory")),
		Search:        strings.TrimSpace(v.Get("q")),
		Sort:          ParseSort(v.Get("sort")),
	}
	if n, err := strconv.Atoi(v.Get("page")); err == nil && n > 1 {
		q.Page = n
	}
	for key, vals := range v {
		name, ok := strings.CutPrefix(key, facetPrefix)
		if !ok || name == "" {
			continue
		}
		for _, val := range vals {
			if val = strings.TrimSpace(val); val != "" {
				q = q.with(name, val)
			}
		}
	}
	return q
}

// Values encodes q. Zero fields are omitted.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.CategoryID != "" {
		v.Set("category", q.CategoryID)
	}
	if q.SubCategoryID != "" {
		v.Set("subcategory", q.SubCategoryID)
	}
	if q.Search != "" {
		v.Set("q", q.Search)
	}
	if q.Sort != SortDefault {
		v.Set("sort", string(q.Sort))
	}
	if q.Page > 1 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	for key, vals := range q.Facets {
		for _, val := range vals {
			v.Add(facetPrefix+key, val)
		}
	}
	return v
}

// Encode is Values().Encode(), with a leading "?" when not empty.
func (q Query) Encode() string {
	s := q.Values().Encode()
	if s == "" {
		return ""
	}
	return "?" + s
}

// Selected reports whether value is selected for key, comparing folded forms.
func (q Query) Selected(key, value string) bool {
	f := Fold(value)
	for _, v := range q.Facets[key] {
		if Fold(v) == f {
			return true
		}
	}
	return false
}

// Toggle selects value for key, or unselects it if it already was. The
// returned query starts again at the first page.
func (q Query) Toggle(key, value string) Query {
	out := q.clone()
	out.Page = 0
	if !q.Selected(key, value) {
		return out.with(key, value)
	}
	f := Fold(value)
	var kept []string
	for _, v := range out.Facets[key] {
		if Fold(v) != f {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		delete(out.Facets, key)
	} else {
		out.Facets[key] = kept
	}
	return out
}

// Clear drops facets, search and scope. Only the sort order survives.
func (q Query) Clear() Query {
	return Query{Sort: q.Sort}
}

// WithPage returns q on page n.
func (q Query) WithPage(n int) Query {
	out := q.clone()
	out.Page = n
	return out
}

// WithSort returns q sorted by s, back on the first page.
func (q Query) WithSort(s Sort) Query {
	out := q.clone()
	out.Sort = s
	out.Page = 0
	return out
}

// Active reports whether any facet value or search restricts the view.
func (q Query) Active() bool {
	return q.Search != "" || len(q.Facets) > 0
}

// FacetKeys returns the keys with at least one selection, sorted.
func (q Query) FacetKeys() []string {
	keys := make([]string, 0, len(q.Facets))
	for k, v := range q.Facets {
		if len(v) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (q Query) with(key, value string) Query {
	if q.Selected(key, value) {
		return q
	}
	if q.Facets == nil {
		q.Facets = map[string][]string{}
	}
	q.Facets[key] = append(q.Facets[key], value)
	return q
}

func (q Query) clone() Query {
	out := q
	if q.Facets != nil {
		out.Facets = make(map[string][]string, len(q.Facets))
		for k, v := range q.Facets {
			out.Facets[k] = append([]string(nil), v...)
		}
	}
	return out
}
