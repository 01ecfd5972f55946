// Package seed loads the catalog bundle the store starts from.
package seed

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"ppecatalog/internal/domain"
)

//go:embed catalog.json
var bundled []byte

// Bundle is the on-disk seed format.
type Bundle struct {
	Categories    []domain.Category    `json:"categories"`
	SubCategories []domain.SubCategory `json:"subCategories"`
	Products      []domain.Product     `json:"products"`
}

// Load reads the bundle at path, or the embedded default when path is empty.
func Load(path string) (Bundle, error) {
	if path == "" {
		return Parse(bundled)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Bundle{}, fmt.Errorf("seed: read %s: %w", path, err)
	}
	return Parse(b)
}

// Parse decodes a bundle. Shape drift is not validated here; see Check.
func Parse(b []byte) (Bundle, error) {
	var out Bundle
	if err := json.Unmarshal(b, &out); err != nil {
		return Bundle{}, fmt.Errorf("seed: decode: %w", err)
	}
	for i := range out.Products {
		if out.Products[i].Specifications == nil {
			out.Products[i].Specifications = map[string]any{}
		}
		if out.Products[i].Images == nil {
			out.Products[i].Images = []domain.Image{}
		}
	}
	for i := range out.SubCategories {
		if out.SubCategories[i].SpecificationFields == nil {
			out.SubCategories[i].SpecificationFields = []domain.SpecificationField{}
		}
	}
	return out, nil
}

// Check reports referential and shape problems in a bundle. An empty result
// means the bundle is consistent.
func Check(b Bundle) []string {
	var problems []string

	cats := map[string]bool{}
	for _, c := range b.Categories {
		if cats[c.ID] {
			problems = append(problems, fmt.Sprintf("category %q: duplicate id", c.ID))
		}
		cats[c.ID] = true
	}

	subs := map[string]domain.SubCategory{}
	for _, s := range b.SubCategories {
		if _, dup := subs[s.ID]; dup {
			problems = append(problems, fmt.Sprintf("subcategory %q: duplicate id", s.ID))
		}
		subs[s.ID] = s
		if !cats[s.CategoryID] {
			problems = append(problems, fmt.Sprintf("subcategory %q: unknown category %q", s.ID, s.CategoryID))
		}
	}

	prods := map[string]bool{}
	for _, p := range b.Products {
		if prods[p.ID] {
			problems = append(problems, fmt.Sprintf("product %q: duplicate id", p.ID))
		}
		prods[p.ID] = true
		sub, ok := subs[p.SubCategoryID]
		if !ok {
			problems = append(problems, fmt.Sprintf("product %q: unknown subcategory %q", p.ID, p.SubCategoryID))
			continue
		}
		declared := map[string]bool{}
		for _, f := range sub.SpecificationFields {
			declared[f.Name] = true
			if v, ok := p.Specifications[f.Name]; f.Required && (!ok || v == nil || v == "") {
				problems = append(problems, fmt.Sprintf("product %q: missing required specification %q", p.ID, f.Name))
			}
		}
		keys := make([]string, 0, len(p.Specifications))
		for k := range p.Specifications {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !declared[k] {
				problems = append(problems, fmt.Sprintf("product %q: specification %q not declared by %q", p.ID, k, sub.ID))
			}
		}
	}
	return problems
}
