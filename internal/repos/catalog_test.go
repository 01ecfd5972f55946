package repos_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ppecatalog/internal/domain"
	"ppecatalog/internal/repos"
	"ppecatalog/internal/seed"
)

// scenarioBundle is the casques example: one category, one subcategory, two products.
func scenarioBundle() seed.Bundle {
	return seed.Bundle{
		Categories: []domain.Category{{ID: "c1", Name: "Casques", Slug: "casques"}},
		SubCategories: []domain.SubCategory{{
			ID: "s1", Name: "Chantier", CategoryID: "c1", Slug: "chantier",
			SpecificationFields: []domain.SpecificationField{
				{ID: "f1", Name: "norme", Label: "Norme", Type: domain.FieldSelect},
				{ID: "f2", Name: "couleur", Label: "Couleur", Type: domain.FieldText},
			},
		}},
		Products: []domain.Product{
			{ID: "p1", SubCategoryID: "s1", Name: "Casque A", Specifications: map[string]any{"norme": "EN 397", "poids": 350.0}},
			{ID: "p2", SubCategoryID: "s1", Name: "Casque B"},
		},
	}
}

type storeFactory func(t *testing.T, b seed.Bundle, opts ...repos.Option) repos.Store

func stores() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T, b seed.Bundle, opts ...repos.Option) repos.Store {
			return repos.NewMemory(b, opts...)
		},
		"sqlite": func(t *testing.T, b seed.Bundle, opts ...repos.Option) repos.Store {
			db, err := repos.OpenDB(":memory:", b)
			require.NoError(t, err)
			s := repos.NewSQL(db, opts...)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func ids[T any](items []T, id func(T) string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, id(it))
	}
	return out
}

func productIDs(ps []domain.Product) []string { return ids(ps, func(p domain.Product) string { return p.ID }) }

func TestCatalogScenario(t *testing.T) {
	ctx := context.Background()
	for name, open := range stores() {
		t.Run(name, func(t *testing.T) {
			s := open(t, scenarioBundle())

			byCat, err := s.Products(ctx, "c1", "")
			require.NoError(t, err)
			assert.Equal(t, []string{"p1", "p2"}, productIDs(byCat))

			bySub, err := s.Products(ctx, "", "s1")
			require.NoError(t, err)
			assert.Equal(t, []string{"p1", "p2"}, productIDs(bySub))

			ok, err := s.DeleteCategory(ctx, "c1")
			require.NoError(t, err)
			assert.True(t, ok)

			subs, err := s.SubCategories(ctx, "c1")
			require.NoError(t, err)
			assert.Empty(t, subs)

			// Products stay behind, pointing at a deleted subcategory.
			orphans, err := s.Products(ctx, "", "s1")
			require.NoError(t, err)
			assert.Equal(t, []string{"p1", "p2"}, productIDs(orphans))

			// With the subcategory gone the raw product comes back unchanged.
			p, err := s.Product(ctx, "p1")
			require.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, 350.0, p.Specifications["poids"])
		})
	}
}

func TestDeleteCategoryCascadeProducts(t *testing.T) {
	ctx := context.Background()
	for name, open := range stores() {
		t.Run(name, func(t *testing.T) {
			s := open(t, scenarioBundle(), repos.WithDeletePolicy(repos.CascadeProducts))
			ok, err := s.DeleteCategory(ctx, "c1")
			require.NoError(t, err)
			require.True(t, ok)

			left, err := s.Products(ctx, "", "")
			require.NoError(t, err)
			assert.Empty(t, left)
		})
	}
}

func TestProductsPrecedenceAndSubsets(t *testing.T) {
	ctx := context.Background()
	b, err := seed.Load("")
	require.NoError(t, err)

	for name, open := range stores() {
		t.Run(name, func(t *testing.T) {
			s := open(t, b)
			all, err := s.Products(ctx, "", "")
			require.NoError(t, err)
			assert.Len(t, all, len(b.Products))

			cats, err := s.Categories(ctx)
			require.NoError(t, err)
			for _, c := range cats {
				subs, err := s.SubCategories(ctx, c.ID)
				require.NoError(t, err)

				var union []string
				for _, sub := range subs {
					assert.Equal(t, c.ID, sub.CategoryID)

					onlySub, err := s.Products(ctx, "", sub.ID)
					require.NoError(t, err)
					both, err := s.Products(ctx, c.ID, sub.ID)
					require.NoError(t, err)
					// The subcategory wins when both are given.
					assert.Equal(t, productIDs(onlySub), productIDs(both))

					// A mismatched category does not change the result either.
					mismatched, err := s.Products(ctx, "cat-unknown", sub.ID)
					require.NoError(t, err)
					assert.Equal(t, productIDs(onlySub), productIDs(mismatched))

					union = append(union, productIDs(onlySub)...)
				}
				byCat, err := s.Products(ctx, c.ID, "")
				require.NoError(t, err)
				assert.ElementsMatch(t, union, productIDs(byCat))
			}
		})
	}
}

func TestProductReshapesSpecifications(t *testing.T) {
	ctx := context.Background()
	for name, open := range stores() {
		t.Run(name, func(t *testing.T) {
			s := open(t, scenarioBundle())

			for i := 0; i < 2; i++ {
				p, err := s.Product(ctx, "p1")
				require.NoError(t, err)
				require.NotNil(t, p)
				assert.Equal(t, map[string]any{"norme": "EN 397", "couleur": nil}, p.Specifications)
			}

			p2, err := s.Product(ctx, "p2")
			require.NoError(t, err)
			require.NotNil(t, p2)
			assert.Equal(t, map[string]any{"norme": nil, "couleur": nil}, p2.Specifications)

			missing, err := s.Product(ctx, "nope")
			require.NoError(t, err)
			assert.Nil(t, missing)

			// Listing does not reshape.
			raw, err := s.Products(ctx, "", "s1")
			require.NoError(t, err)
			assert.Equal(t, 350.0, raw[0].Specifications["poids"])
		})
	}
}

func TestCategoryLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, open := range stores() {
		t.Run(name, func(t *testing.T) {
			s := open(t, scenarioBundle())

			c, err := s.AddCategory(ctx, domain.Category{ID: "ignored", Name: "Gants", Slug: "gants"})
			require.NoError(t, err)
			assert.NotEqual(t, "ignored", c.ID)
			assert.NotEmpty(t, c.ID)

			all, err := s.Categories(ctx)
			require.NoError(t, err)
			count := 0
			for _, x := range all {
				if x.ID == c.ID {
					count++
				}
			}
			assert.Equal(t, 1, count)
			assert.Equal(t, c.ID, all[len(all)-1].ID, "insertion order")

			bySlug, err := s.CategoryBySlug(ctx, "gants")
			require.NoError(t, err)
			require.NotNil(t, bySlug)
			assert.Equal(t, c.ID, bySlug.ID)

			name := "Gants de travail"
			up, err := s.UpdateCategory(ctx, c.ID, domain.CategoryPatch{Name: &name})
			require.NoError(t, err)
			require.NotNil(t, up)
			assert.Equal(t, "Gants de travail", up.Name)
			assert.Equal(t, "gants", up.Slug)

			none, err := s.UpdateCategory(ctx, "missing", domain.CategoryPatch{Name: &name})
			require.NoError(t, err)
			assert.Nil(t, none)

			sub, err := s.AddSubCategory(ctx, domain.SubCategory{Name: "Nitrile", CategoryID: c.ID, Slug: "nitrile"})
			require.NoError(t, err)
			assert.NotNil(t, sub.SpecificationFields)

			ok, err := s.DeleteCategory(ctx, c.ID)
			require.NoError(t, err)
			assert.True(t, ok)
			subs, err := s.SubCategories(ctx, c.ID)
			require.NoError(t, err)
			assert.Empty(t, subs)

			ok, err = s.DeleteCategory(ctx, c.ID)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestProductLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, open := range stores() {
		t.Run(name, func(t *testing.T) {
			s := open(t, scenarioBundle())

			p, err := s.AddProduct(ctx, domain.Product{Name: "Casque C", SubCategoryID: "s1", Price: 10})
			require.NoError(t, err)
			assert.NotEmpty(t, p.ID)
			assert.NotNil(t, p.Specifications)

			price := 12.5
			brand := "Protekt"
			up, err := s.UpdateProduct(ctx, p.ID, domain.ProductPatch{Price: &price, Brand: &brand})
			require.NoError(t, err)
			require.NotNil(t, up)
			assert.Equal(t, 12.5, up.Price)
			assert.Equal(t, "Casque C", up.Name)
			assert.Equal(t, "Protekt", up.Brand)

			ok, err := s.DeleteProduct(ctx, p.ID)
			require.NoError(t, err)
			assert.True(t, ok)
			ok, err = s.DeleteProduct(ctx, p.ID)
			require.NoError(t, err)
			assert.False(t, ok)

			ok, err = s.DeleteSubCategory(ctx, "s1")
			require.NoError(t, err)
			assert.True(t, ok)
			sub, err := s.SubCategory(ctx, "s1")
			require.NoError(t, err)
			assert.Nil(t, sub)
		})
	}
}

func TestQuotes(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	for name, open := range stores() {
		t.Run(name, func(t *testing.T) {
			s := open(t, scenarioBundle(), repos.WithClock(func() time.Time { return now }))

			q, err := s.AddQuote(ctx, domain.Quote{
				ProductID: "p1", Name: "Alice", Email: "alice@example.com", Quantity: 3,
				Status: domain.QuoteCompleted, CreatedAt: "1999-01-01T00:00:00Z",
			})
			require.NoError(t, err)
			assert.Equal(t, domain.QuotePending, q.Status)
			created, err := time.Parse(time.RFC3339, q.CreatedAt)
			require.NoError(t, err)
			assert.True(t, created.Equal(now))

			got, err := s.Quote(ctx, q.ID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, q, *got)

			// Every status is reachable from every other one.
			for _, st := range []domain.QuoteStatus{domain.QuoteCompleted, domain.QuotePending, domain.QuoteRejected, domain.QuoteProcessing, domain.QuotePending} {
				up, err := s.UpdateQuoteStatus(ctx, q.ID, st)
				require.NoError(t, err)
				require.NotNil(t, up)
				assert.Equal(t, st, up.Status)
				assert.Equal(t, q.CreatedAt, up.CreatedAt)
			}

			none, err := s.UpdateQuoteStatus(ctx, "missing", domain.QuoteCompleted)
			require.NoError(t, err)
			assert.Nil(t, none)

			_, err = s.UpdateQuoteStatus(ctx, q.ID, "shipped")
			assert.ErrorIs(t, err, repos.ErrUnknownStatus)

			all, err := s.Quotes(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 1)
		})
	}
}

func TestSpecificationFields(t *testing.T) {
	ctx := context.Background()
	for name, open := range stores() {
		t.Run(name, func(t *testing.T) {
			s := open(t, scenarioBundle())

			f, err := s.AddSpecificationField(ctx, "s1", domain.SpecificationField{Name: "poids", Label: "Poids", Type: domain.FieldNumber, Unit: "g"})
			require.NoError(t, err)
			require.NotNil(t, f)

			fields, err := s.SpecificationFields(ctx, "s1")
			require.NoError(t, err)
			assert.Len(t, fields, 3)

			// The new field is now part of the reshaped product.
			p, err := s.Product(ctx, "p1")
			require.NoError(t, err)
			assert.Equal(t, 350.0, p.Specifications["poids"])

			label := "Masse"
			up, err := s.UpdateSpecificationField(ctx, "s1", f.ID, domain.SpecificationFieldPatch{Label: &label})
			require.NoError(t, err)
			require.NotNil(t, up)
			assert.Equal(t, "Masse", up.Label)
			assert.Equal(t, "g", up.Unit)

			none, err := s.UpdateSpecificationField(ctx, "s1", "missing", domain.SpecificationFieldPatch{Label: &label})
			require.NoError(t, err)
			assert.Nil(t, none)

			ok, err := s.DeleteSpecificationField(ctx, "s1", f.ID)
			require.NoError(t, err)
			assert.True(t, ok)
			ok, err = s.DeleteSpecificationField(ctx, "s1", f.ID)
			require.NoError(t, err)
			assert.False(t, ok)

			noSub, err := s.AddSpecificationField(ctx, "missing", domain.SpecificationField{Name: "x"})
			require.NoError(t, err)
			assert.Nil(t, noSub)
			empty, err := s.SpecificationFields(ctx, "missing")
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestOutboxDueAndMarks(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for name, open := range stores() {
		t.Run(name, func(t *testing.T) {
			s := open(t, scenarioBundle(), repos.WithClock(func() time.Time { return now }))

			a, err := s.Enqueue(ctx, domain.Notification{Kind: domain.NotifyQuote, To: "sales@example.com", Subject: "a", Body: "a"})
			require.NoError(t, err)
			b, err := s.Enqueue(ctx, domain.Notification{Kind: domain.NotifyContact, To: "sales@example.com", Subject: "b", Body: "b"})
			require.NoError(t, err)
			assert.Equal(t, domain.NotificationPending, a.Status)

			due, err := s.Due(ctx, now, 10)
			require.NoError(t, err)
			assert.Len(t, due, 2)

			require.NoError(t, s.MarkSent(ctx, a.ID, now))
			require.NoError(t, s.MarkRetry(ctx, b.ID, "dial timeout", now.Add(time.Minute)))

			due, err = s.Due(ctx, now, 10)
			require.NoError(t, err)
			assert.Empty(t, due)

			due, err = s.Due(ctx, now.Add(time.Minute), 10)
			require.NoError(t, err)
			require.Len(t, due, 1)
			assert.Equal(t, b.ID, due[0].ID)
			assert.Equal(t, 1, due[0].Attempts)
			assert.Equal(t, "dial timeout", due[0].LastError)

			require.NoError(t, s.MarkFailed(ctx, b.ID, "still down"))
			all, err := s.Notifications(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, domain.NotificationSent, all[0].Status)
			assert.Equal(t, domain.NotificationFailed, all[1].Status)
			assert.Equal(t, 2, all[1].Attempts)
		})
	}
}

func TestMemoryConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	s := repos.NewMemory(scenarioBundle())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.AddQuote(ctx, domain.Quote{ProductID: "p1", Name: fmt.Sprintf("client-%d", i), Email: "c@example.com", Quantity: 1})
			assert.NoError(t, err)
			_, err = s.Products(ctx, "c1", "")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	all, err := s.Quotes(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 50)
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := repos.NewMemory(scenarioBundle())

	ps, err := s.Products(ctx, "", "s1")
	require.NoError(t, err)
	ps[0].Specifications["norme"] = "changed"
	ps[0].Name = "changed"

	again, err := s.Products(ctx, "", "s1")
	require.NoError(t, err)
	assert.Equal(t, "EN 397", again[0].Specifications["norme"])
	assert.Equal(t, "Casque A", again[0].Name)
}

func TestProductsDoNotShareNestedSpecifications(t *testing.T) {
	ctx := context.Background()
	b := scenarioBundle()
	b.Products[1].Specifications = map[string]any{
		"dimensions": map[string]any{"longueur": 30.0, "tailles": []any{"M", "L"}},
	}
	for name, open := range stores() {
		t.Run(name, func(t *testing.T) {
			s := open(t, b)

			got, err := s.Products(ctx, "", "s1")
			require.NoError(t, err)
			require.Len(t, got, 2)
			dims := got[1].Specifications["dimensions"].(map[string]any)
			dims["longueur"] = 99.0
			dims["tailles"].([]any)[0] = "XXL"

			again, err := s.Products(ctx, "", "s1")
			require.NoError(t, err)
			assert.Equal(t, map[string]any{"longueur": 30.0, "tailles": []any{"M", "L"}}, again[1].Specifications["dimensions"])
		})
	}
}
