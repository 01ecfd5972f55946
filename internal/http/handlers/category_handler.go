package handlers

import (
	"github.com/gofiber/fiber/v2"

	"ppecatalog/internal/listing"
	"ppecatalog/internal/services"
	"ppecatalog/internal/validate"
)

type CategoryHandler struct {
	Catalog *services.CatalogService
}

// GET /
func (h *CategoryHandler) Home(c *fiber.Ctx) error {
	cats, err := h.Catalog.ListCategories(c.UserContext())
	if err != nil {
		return serverError(c, "home.categories.fail", err, nil)
	}
	return render(c, "home", fiber.Map{"Categories": cats})
}

// GET /categories/:slug
func (h *CategoryHandler) Category(c *fiber.Ctx) error {
	slug, ok := validate.Slug(c.Params("slug"))
	if !ok {
		return notFound(c, "Cette catégorie n'existe pas")
	}
	v, err := h.Catalog.CategoryPage(c.UserContext(), slug)
	if err != nil {
		return serverError(c, "category.load.fail", err, map[string]any{"slug": slug})
	}
	if v == nil {
		return notFound(c, "Cette catégorie n'existe pas")
	}
	return render(c, "category", fiber.Map{"View": v, "Title": v.Category.Name})
}

// GET /categories/:slug/:sub
func (h *CategoryHandler) SubCategory(c *fiber.Ctx) error {
	catSlug, ok1 := validate.Slug(c.Params("slug"))
	subSlug, ok2 := validate.Slug(c.Params("sub"))
	if !ok1 || !ok2 {
		return notFound(c, "Cette sous-catégorie n'existe pas")
	}
	q := queryFrom(c)
	v, err := h.Catalog.SubCategoryPage(c.UserContext(), catSlug, subSlug, q)
	if err != nil {
		return serverError(c, "subcategory.load.fail", err, map[string]any{"slug": catSlug, "sub": subSlug})
	}
	if v == nil {
		return notFound(c, "Cette sous-catégorie n'existe pas")
	}
	return render(c, "listing", fiber.Map{
		"Title":  v.SubCategory.Name,
		"Base":   "/categories/" + v.Category.Slug + "/" + v.SubCategory.Slug,
		"Crumbs": []crumb{{Name: v.Category.Name, URL: "/categories/" + v.Category.Slug}},
		"Result": v.Result,
		// The path already carries the scope.
		"Q": scopeless(v.Result.Query),
	})
}

type crumb struct {
	Name string
	URL  string
}

// queryFrom parses the listing parameters of the request URL.
func queryFrom(c *fiber.Ctx) listing.Query {
	args := c.Request().URI().QueryArgs()
	vals := map[string][]string{}
	args.VisitAll(func(k, v []byte) {
		vals[string(k)] = append(vals[string(k)], string(v))
	})
	q := listing.ParseQuery(vals)
	q.Search = validate.Q(q.Search)
	return q
}

func scopeless(q listing.Query) listing.Query {
	q.CategoryID, q.SubCategoryID = "", ""
	return q
}
