package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	applog "ppecatalog/internal/log"
	"ppecatalog/internal/services"
	"ppecatalog/internal/validate"
)

type QuoteHandler struct {
	Quotes  *services.QuoteService
	Catalog *services.CatalogService
}

// GET /devis?product=<id>
func (h *QuoteHandler) Form(c *fiber.Ctx) error {
	data := fiber.Map{"Title": "Demande de devis", "Form": services.QuoteRequest{Quantity: 1}}
	if id, ok := validate.ID(c.Query("product")); ok {
		v, err := h.Catalog.ProductPage(c.UserContext(), id)
		if err != nil {
			return serverError(c, "quote.form.fail", err, map[string]any{"product_id": id})
		}
		if v != nil {
			data["Product"] = v.Product
			data["Form"] = services.QuoteRequest{ProductID: id, Quantity: 1}
		}
	}
	return render(c, "quote", data)
}

// POST /devis
func (h *QuoteHandler) Submit(c *fiber.Ctx) error {
	req := services.QuoteRequest{
		ProductID: c.FormValue("productId"),
		Name:      c.FormValue("name"),
		Email:     c.FormValue("email"),
		Phone:     c.FormValue("phone"),
		Message:   c.FormValue("message"),
	}
	data := fiber.Map{"Title": "Demande de devis", "Form": req}
	qty, ok := validate.Quantity(c.FormValue("quantity", "1"))
	if !ok {
		applog.Info(c, "quote.submit.invalid", map[string]any{"field": "quantity"})
		data["Err"] = "La quantité doit être au moins de 1."
		return render(c.Status(fiber.StatusBadRequest), "quote", data)
	}
	req.Quantity = qty
	data["Form"] = req

	q, err := h.Quotes.Submit(c.UserContext(), req)
	if err != nil {
		if p, perr := h.Catalog.ProductPage(c.UserContext(), strings.TrimSpace(req.ProductID)); perr == nil && p != nil {
			data["Product"] = p.Product
		}
		return formError(c, "quote", "quote.submit", err, data)
	}
	applog.Audit(c, "quote.submit", map[string]any{"quote_id": q.ID, "product_id": q.ProductID, "quantity": q.Quantity})
	return render(c, "quote", fiber.Map{"Title": "Demande de devis", "Done": true, "Quote": q})
}
