package handlers

import (
	"github.com/gofiber/fiber/v2"

	"ppecatalog/internal/log"
	"ppecatalog/internal/services"
	"ppecatalog/internal/validate"
)

type ProductHandler struct {
	Catalog *services.CatalogService
}

const goneMessage = "Ce produit n'est plus disponible"

// GET /produits/:id
func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "product"})
		return notFound(c, goneMessage)
	}
	v, err := h.Catalog.ProductPage(c.UserContext(), id)
	if err != nil {
		return serverError(c, "product.load.fail", err, map[string]any{"product_id": id})
	}
	if v == nil {
		return notFound(c, goneMessage)
	}
	return render(c, "product", fiber.Map{"View": v, "Title": v.Product.Name})
}

// GET /produits
func (h *ProductHandler) List(c *fiber.Ctx) error {
	q := queryFrom(c)
	res, err := h.Catalog.Listing(c.UserContext(), q)
	if err != nil {
		return serverError(c, "products.list.fail", err, nil)
	}
	return render(c, "listing", fiber.Map{
		"Title":  "Tous nos produits",
		"Base":   "/produits",
		"Result": res,
		"Q":      res.Query,
	})
}

// GET /catalogue
func (h *ProductHandler) Catalogue(c *fiber.Ctx) error {
	q := queryFrom(c)
	res, err := h.Catalog.Catalogue(c.UserContext(), q)
	if err != nil {
		return serverError(c, "catalogue.list.fail", err, nil)
	}
	return render(c, "catalogue", fiber.Map{
		"Title":  "Catalogue et documentation",
		"Base":   "/catalogue",
		"Result": res,
		"Q":      res.Query,
	})
}
