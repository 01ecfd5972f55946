package listing

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"ppecatalog/internal/domain"
)

// FacetValue is one selectable value of a facet.
type FacetValue struct {
	Value string // first spelling seen in the catalog
	Count int    // products carrying the value
}

// Facet groups the values found for one specification key.
type Facet struct {
	Key    string
	Label  string
	Unit   string
	Values []FacetValue
}

// Facets extracts the specification values present in products. Keys follow
// the order of fields when declared there, the remaining keys come after in
// alphabetical order. Values within a facet are sorted with French collation.
func Facets(products []domain.Product, fields []domain.SpecificationField) []Facet {
	type acc struct {
		facet Facet
		index map[string]int // folded value -> position in facet.Values
	}
	byKey := map[string]*acc{}

	for _, p := range products {
		for key, raw := range p.Specifications {
			seen := map[string]bool{}
			for _, display := range SpecValues(raw) {
				folded := Fold(display)
				if seen[folded] {
					continue
				}
				seen[folded] = true

				a := byKey[key]
				if a == nil {
					a = &acc{facet: Facet{Key: key, Label: key}, index: map[string]int{}}
					byKey[key] = a
				}
				if i, ok := a.index[folded]; ok {
					a.facet.Values[i].Count++
					continue
				}
				a.index[folded] = len(a.facet.Values)
				a.facet.Values = append(a.facet.Values, FacetValue{Value: display, Count: 1})
			}
		}
	}

	c := collate.New(language.French, collate.IgnoreCase)
	out := make([]Facet, 0, len(byKey))
	emit := func(a *acc) {
		sort.SliceStable(a.facet.Values, func(i, j int) bool {
			return c.CompareString(a.facet.Values[i].Value, a.facet.Values[j].Value) < 0
		})
		out = append(out, a.facet)
	}

	for _, f := range fields {
		a := byKey[f.Name]
		if a == nil {
			continue
		}
		if f.Label != "" {
			a.facet.Label = f.Label
		}
		a.facet.Unit = f.Unit
		emit(a)
		delete(byKey, f.Name)
	}
	rest := make([]string, 0, len(byKey))
	for k := range byKey {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	for _, k := range rest {
		emit(byKey[k])
	}
	return out
}

// FacetFields collects the specification fields of subs, first declaration
// of a name wins.
func FacetFields(subs []domain.SubCategory) []domain.SpecificationField {
	seen := map[string]bool{}
	var out []domain.SpecificationField
	for _, s := range subs {
		for _, f := range s.SpecificationFields {
			if seen[f.Name] {
				continue
			}
			seen[f.Name] = true
			out = append(out, f)
		}
	}
	return out
}
