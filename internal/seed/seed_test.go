package seed_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ppecatalog/internal/domain"
	"ppecatalog/internal/seed"
)

func TestEmbeddedBundleIsConsistent(t *testing.T) {
	b, err := seed.Load("")
	require.NoError(t, err)
	assert.Len(t, b.Categories, 4)
	assert.Len(t, b.SubCategories, 6)
	assert.Len(t, b.Products, 12)
	assert.Empty(t, seed.Check(b))

	for _, p := range b.Products {
		assert.NotNil(t, p.Specifications, p.ID)
		assert.NotNil(t, p.Images, p.ID)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
	  "categories": [{"id":"c1","name":"Casques","slug":"casques","imageUrl":""}],
	  "subCategories": [{"id":"s1","name":"Chantier","categoryId":"c1","slug":"chantier"}],
	  "products": [{"id":"p1","name":"Casque A","price":0,"subCategoryId":"s1"}]
	}`), 0o600))

	b, err := seed.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "c1", b.SubCategories[0].CategoryID)
	assert.NotNil(t, b.SubCategories[0].SpecificationFields)
	assert.Equal(t, map[string]any{}, b.Products[0].Specifications)

	_, err = seed.Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
	_, err = seed.Parse([]byte("{"))
	assert.Error(t, err)
}

func TestCheckReportsProblems(t *testing.T) {
	b := seed.Bundle{
		Categories: []domain.Category{{ID: "c1"}, {ID: "c1"}},
		SubCategories: []domain.SubCategory{
			{ID: "s1", CategoryID: "c1", SpecificationFields: []domain.SpecificationField{{Name: "norme", Required: true}}},
			{ID: "s2", CategoryID: "ghost"},
		},
		Products: []domain.Product{
			{ID: "p1", SubCategoryID: "s1", Specifications: map[string]any{"zeta": 1, "alpha": 2}},
			{ID: "p2", SubCategoryID: "gone"},
		},
	}
	assert.Equal(t, []string{
		`category "c1": duplicate id`,
		`subcategory "s2": unknown category "ghost"`,
		`product "p1": missing required specification "norme"`,
		`product "p1": specification "alpha" not declared by "s1"`,
		`product "p1": specification "zeta" not declared by "s1"`,
		`product "p2": unknown subcategory "gone"`,
	}, seed.Check(b))
}
