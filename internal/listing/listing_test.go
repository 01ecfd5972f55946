package listing_test

import (
	"fmt"
	"math"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ppecatalog/internal/domain"
	"ppecatalog/internal/listing"
	"ppecatalog/internal/seed"
)

func sheet(date string) domain.Documentation {
	return domain.Documentation{TechnicalSheet: &domain.Document{Title: "Fiche", URL: "/docs/x.pdf", LastUpdate: date}}
}

func fixture() ([]domain.Product, []domain.SubCategory) {
	subs := []domain.SubCategory{
		{ID: "s1", CategoryID: "c1", SpecificationFields: []domain.SpecificationField{
			{Name: "norme", Label: "Norme"}, {Name: "taille", Label: "Taille"},
		}},
		{ID: "s2", CategoryID: "c1"},
		{ID: "s3", CategoryID: "c2"},
	}
	products := []domain.Product{
		{ID: "p1", Name: "Écran facial", SubCategoryID: "s1", Reference: "EF-100",
			Specifications: map[string]any{"norme": "EN 166", "taille": "S, M, L", "ventile": true},
			Documentation:  sheet("2024-03-01")},
		{ID: "p2", Name: "casque chantier", SubCategoryID: "s1", Description: "Casque électricien",
			Specifications: map[string]any{"norme": []any{"EN 397", "en 166"}, "taille": "M"},
			Documentation:  sheet("2024-06-15")},
		{ID: "p3", Name: "Bouchons", SubCategoryID: "s2",
			Specifications: map[string]any{"poids": 12.50, "ventile": false}},
		{ID: "p4", Name: "Zèbre gant", SubCategoryID: "s3",
			Specifications: map[string]any{"norme": "EN 388"},
			Documentation:  sheet("2023-01-01")},
	}
	return products, subs
}

func ids(ps []domain.Product) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func TestFold(t *testing.T) {
	assert.Equal(t, "electrique", listing.Fold("Électrique"))
	assert.Equal(t, "en 166", listing.Fold("  EN   166 "))
	assert.Equal(t, listing.Fold("Oui"), listing.Fold("OUI"))
}

func TestSpecValues(t *testing.T) {
	cases := []struct {
		in   any
		want []string
	}{
		{nil, nil},
		{"", nil},
		{"S, M ,L,,", []string{"S", "M", "L"}},
		{[]any{"EN 397", []any{"EN 50365"}, 2.0}, []string{"EN 397", "EN 50365", "2"}},
		{true, []string{"Oui"}},
		{false, []string{"Non"}},
		{12.50, []string{"12.5"}},
		{3, []string{"3"}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, listing.SpecValues(tc.in), "%#v", tc.in)
	}
}

func TestScopePrecedence(t *testing.T) {
	products, subs := fixture()
	assert.Equal(t, []string{"p1", "p2", "p3"}, ids(listing.Scope(products, subs, "c1", "")))
	assert.Equal(t, []string{"p3"}, ids(listing.Scope(products, subs, "c1", "s2")))
	assert.Empty(t, listing.Scope(products, subs, "c2", "s1"))
	assert.Len(t, listing.Scope(products, subs, "", ""), 4)
}

func TestSearchMatchesFoldedFields(t *testing.T) {
	products, subs := fixture()
	cases := map[string][]string{
		"ecran":       {"p1"},
		"ELECTRICIEN": {"p2"},
		"ef-100":      {"p1"},
		"casque":      {"p2"},
		"introuvable": {},
		"":            {"p1", "p2", "p3", "p4"},
	}
	for q, want := range cases {
		got := listing.FilterAndSort(products, subs, listing.Query{Search: q})
		assert.Equal(t, want, ids(got), q)
	}
}

func TestFacetSelectionsOrWithinAndAcross(t *testing.T) {
	products, subs := fixture()

	q := listing.Query{}.Toggle("norme", "EN 166")
	assert.Equal(t, []string{"p1", "p2"}, ids(listing.FilterAndSort(products, subs, q)))

	q = q.Toggle("norme", "EN 388")
	assert.Equal(t, []string{"p1", "p2", "p4"}, ids(listing.FilterAndSort(products, subs, q)))

	q = q.Toggle("taille", "l")
	assert.Equal(t, []string{"p1"}, ids(listing.FilterAndSort(products, subs, q)))

	q = q.Toggle("ventile", "Oui")
	assert.Equal(t, []string{"p1"}, ids(listing.FilterAndSort(products, subs, q)))

	q = listing.Query{}.Toggle("ventile", "non")
	assert.Equal(t, []string{"p3"}, ids(listing.FilterAndSort(products, subs, q)))
}

func TestFacetSelectionIsMonotonic(t *testing.T) {
	b, err := seed.Load("")
	require.NoError(t, err)
	count := func(q listing.Query) int {
		return len(listing.FilterAndSort(b.Products, b.SubCategories, q))
	}

	q := listing.Query{}
	prev := count(q)
	steps := []listing.Query{q}
	for _, f := range listing.Facets(b.Products, nil) {
		q = q.Toggle(f.Key, f.Values[0].Value)
		n := count(q)
		assert.LessOrEqual(t, n, prev, "selecting %s", f.Key)
		prev = n
		steps = append(steps, q)
	}

	// Walking the selections back never shrinks the result.
	for i := len(steps) - 1; i > 0; i-- {
		assert.GreaterOrEqual(t, count(steps[i-1]), count(steps[i]))
	}
	assert.Equal(t, len(b.Products), count(q.Clear()))
}

func TestSecondValueWithinKeyNeverShrinks(t *testing.T) {
	products, subs := fixture()
	for _, f := range listing.Facets(products, nil) {
		if len(f.Values) < 2 {
			continue
		}
		one := listing.Query{}.Toggle(f.Key, f.Values[0].Value)
		two := one.Toggle(f.Key, f.Values[1].Value)
		assert.GreaterOrEqual(t,
			len(listing.FilterAndSort(products, subs, two)),
			len(listing.FilterAndSort(products, subs, one)), f.Key)
	}
}

func TestAddingSelectionInNewKeyNeverGrows(t *testing.T) {
	products, subs := fixture()
	facets := listing.Facets(products, nil)
	for _, a := range facets {
		for _, av := range a.Values {
			base := listing.Query{}.Toggle(a.Key, av.Value)
			before := len(listing.FilterAndSort(products, subs, base))
			for _, b := range facets {
				if b.Key == a.Key {
					continue
				}
				for _, bv := range b.Values {
					after := len(listing.FilterAndSort(products, subs, base.Toggle(b.Key, bv.Value)))
					assert.LessOrEqual(t, after, before, "%s=%s then %s=%s", a.Key, av.Value, b.Key, bv.Value)
				}
			}
		}
	}
}

func TestFacetsFoldDuplicatesAndSortFrench(t *testing.T) {
	products, subs := fixture()
	facets := listing.Facets(products, listing.FacetFields(subs))

	keys := make([]string, 0, len(facets))
	for _, f := range facets {
		keys = append(keys, f.Key)
	}
	// Declared fields first, then the rest alphabetically.
	assert.Equal(t, []string{"norme", "taille", "poids", "ventile"}, keys)
	assert.Equal(t, "Norme", facets[0].Label)

	want := []listing.FacetValue{{Value: "EN 166", Count: 2}, {Value: "EN 388", Count: 1}, {Value: "EN 397", Count: 1}}
	if diff := cmp.Diff(want, facets[0].Values); diff != "" {
		t.Errorf("norme values (-want +got):\n%s", diff)
	}

	names := []domain.Product{{Name: "Zèbre"}, {Name: "éclat"}, {Name: "Eau"}, {Name: "ecran"}}
	fs := listing.Facets([]domain.Product{
		{Specifications: map[string]any{"k": "Zèbre, éclat, Eau, ecran"}},
	}, nil)
	var got []string
	for _, v := range fs[0].Values {
		got = append(got, v.Value)
	}
	assert.Equal(t, []string{"Eau", "éclat", "ecran", "Zèbre"}, got)

	listing.SortProducts(names, listing.SortNameAsc)
	assert.Equal(t, "Eau", names[0].Name)
	assert.Equal(t, "Zèbre", names[3].Name)
}

func TestSortOrders(t *testing.T) {
	products, subs := fixture()

	newest := listing.FilterAndSort(products, subs, listing.Query{Sort: listing.SortNewest})
	// p3 has no technical sheet and sinks to the bottom.
	assert.Equal(t, []string{"p2", "p1", "p4", "p3"}, ids(newest))

	asc := listing.FilterAndSort(products, subs, listing.Query{Sort: listing.SortNameAsc})
	assert.Equal(t, []string{"p3", "p2", "p1", "p4"}, ids(asc))

	desc := listing.FilterAndSort(products, subs, listing.Query{Sort: listing.SortNameDesc})
	assert.Equal(t, []string{"p4", "p1", "p2", "p3"}, ids(desc))

	unsorted := listing.FilterAndSort(products, subs, listing.Query{})
	assert.Equal(t, []string{"p1", "p2", "p3", "p4"}, ids(unsorted))
	assert.Equal(t, "p1", products[0].ID, "input untouched")
}

func TestNewestIsStableForMissingDates(t *testing.T) {
	ps := []domain.Product{{ID: "a"}, {ID: "b", Documentation: sheet("not a date")}, {ID: "c"}}
	listing.SortProducts(ps, listing.SortNewest)
	assert.Equal(t, []string{"a", "b", "c"}, ids(ps))
}

func TestPaginateCoversEveryItemOnce(t *testing.T) {
	for _, size := range []int{listing.ProductPageSize, listing.CatalogPageSize} {
		for n := 0; n <= 37; n++ {
			items := make([]int, n)
			for i := range items {
				items[i] = i
			}
			first := listing.Paginate(items, 1, size)
			assert.Equal(t, (n+size-1)/size, first.TotalPages, "n=%d size=%d", n, size)

			var joined []int
			for page := 1; page <= first.TotalPages; page++ {
				p := listing.Paginate(items, page, size)
				assert.LessOrEqual(t, len(p.Items), size)
				joined = append(joined, p.Items...)
			}
			if n == 0 {
				assert.Empty(t, joined)
				continue
			}
			if diff := cmp.Diff(items, joined); diff != "" {
				t.Errorf("n=%d size=%d (-want +got):\n%s", n, size, diff)
			}
		}
	}
}

func TestPaginateEdges(t *testing.T) {
	items := []string{"a", "b", "c"}

	p := listing.Paginate(items, 0, 2)
	assert.Equal(t, 1, p.Number)
	assert.Equal(t, []string{"a", "b"}, p.Items)
	assert.True(t, p.HasNext())
	assert.False(t, p.HasPrev())

	p = listing.Paginate(items, 9, 2)
	assert.Empty(t, p.Items)
	assert.Equal(t, 2, p.TotalPages)

	p = listing.Paginate(items, 1, 0)
	assert.Equal(t, listing.ProductPageSize, p.Size)
	assert.Equal(t, []int{1}, p.Pages())
}

func TestPaginateHugePageIsEmpty(t *testing.T) {
	items := []int{1, 2, 3}

	for _, raw := range []string{"768614336404564652", fmt.Sprint(math.MaxInt)} {
		q := listing.ParseQuery(url.Values{"page": {raw}})
		p := listing.Paginate(items, q.Page, listing.ProductPageSize)
		assert.Empty(t, p.Items, raw)
		assert.Equal(t, 1, p.TotalPages, raw)
		assert.False(t, p.HasNext(), raw)
	}

	p := listing.Paginate(items, math.MaxInt, math.MaxInt)
	assert.Empty(t, p.Items)
	assert.Equal(t, 1, p.TotalPages)
}

func TestQueryRoundTrip(t *testing.T) {
	v, err := url.ParseQuery("category=c1&subcategory=s1&q=casque&sort=name_desc&page=3&f.norme=EN+397&f.norme=EN+166&f.taille=M&f.=x&junk=1")
	require.NoError(t, err)

	q := listing.ParseQuery(v)
	assert.Equal(t, "c1", q.CategoryID)
	assert.Equal(t, "s1", q.SubCategoryID)
	assert.Equal(t, "casque", q.Search)
	assert.Equal(t, listing.SortNameDesc, q.Sort)
	assert.Equal(t, 3, q.Page)
	assert.Equal(t, map[string][]string{"norme": {"EN 397", "EN 166"}, "taille": {"M"}}, q.Facets)

	again := listing.ParseQuery(q.Values())
	if diff := cmp.Diff(q, again); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}

	assert.Equal(t, listing.SortDefault, listing.ParseQuery(url.Values{"sort": {"price"}}).Sort)
	assert.Equal(t, 0, listing.ParseQuery(url.Values{"page": {"-2"}}).Page)
	assert.Equal(t, "", listing.Query{}.Encode())
}

func TestToggleDropsPageAndClearResetsScope(t *testing.T) {
	q := listing.Query{CategoryID: "c1", SubCategoryID: "s1", Search: "gant", Sort: listing.SortNewest, Page: 4}

	on := q.Toggle("norme", "EN 388")
	assert.Equal(t, 0, on.Page)
	assert.True(t, on.Selected("norme", "en 388"))
	assert.Equal(t, 4, q.Page, "receiver untouched")
	assert.Empty(t, q.Facets)
	assert.NotContains(t, on.Values(), "page")

	off := on.WithPage(2).Toggle("norme", "en 388")
	assert.False(t, off.Selected("norme", "EN 388"))
	assert.Empty(t, off.Facets)
	assert.Equal(t, 0, off.Page)

	cleared := on.Clear()
	assert.Equal(t, listing.Query{Sort: listing.SortNewest}, cleared)
	assert.Equal(t, "?sort=newest", cleared.Encode())
}

func TestRunFacetsIgnoreSelections(t *testing.T) {
	products, subs := fixture()
	q := listing.Query{CategoryID: "c1"}.Toggle("norme", "EN 397")

	res := listing.Run(products, subs, q, listing.ProductPageSize)
	assert.Equal(t, []string{"p2"}, ids(res.Page.Items))
	assert.Equal(t, 1, res.Page.Total)

	var norme listing.Facet
	for _, f := range res.Facets {
		if f.Key == "norme" {
			norme = f
		}
	}
	require.NotEmpty(t, norme.Values)
	assert.Len(t, norme.Values, 2, "EN 388 belongs to c2 and stays out of scope")
}

func TestRunOnSeedCatalog(t *testing.T) {
	b, err := seed.Load("")
	require.NoError(t, err)
	for page := 1; page <= 3; page++ {
		res := listing.Run(b.Products, b.SubCategories, listing.Query{Page: page}, listing.CatalogPageSize)
		assert.Equal(t, len(b.Products), res.Page.Total)
		assert.NotEmpty(t, res.Facets, fmt.Sprint("page ", page))
	}
}
