package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "ppecatalog/internal/log"
	"ppecatalog/internal/repos"
	"ppecatalog/internal/services"
	"ppecatalog/internal/validate"
)

type AdminHandler struct {
	Quotes *services.QuoteService
	Store  repos.Outbox
}

// GET /admin/quotes
func (h *AdminHandler) QuotesPage(c *fiber.Ctx) error {
	qs, err := h.Quotes.List(c.UserContext())
	if err != nil {
		return serverError(c, "admin.quotes.list.fail", err, nil)
	}
	notes, err := h.Store.Notifications(c.UserContext())
	if err != nil {
		return serverError(c, "admin.notifications.list.fail", err, nil)
	}
	return render(c, "admin_quotes", fiber.Map{
		"Title":         "Demandes de devis",
		"Quotes":        qs,
		"Notifications": notes,
		"Statuses":      quoteStatuses,
	})
}

var quoteStatuses = []string{"pending", "processing", "completed", "rejected"}

// POST /admin/quotes/:id/status
func (h *AdminHandler) UpdateQuoteStatus(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	status := c.FormValue("status")
	if !ok || status == "" {
		return c.Status(fiber.StatusBadRequest).SendString("missing id or status")
	}
	q, err := h.Quotes.UpdateStatus(c.UserContext(), id, status)
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		applog.Security(c, "admin.quotes.status.invalid", map[string]any{"quote_id": id, "status": status})
		return c.Status(fiber.StatusBadRequest).SendString("unknown status")
	case err != nil:
		applog.Error(c, "admin.quotes.status.fail", err, map[string]any{"quote_id": id})
		return c.Status(fiber.StatusInternalServerError).SendString(GenericError)
	case q == nil:
		return notFound(c, "Ce devis n'existe pas")
	}
	applog.Audit(c, "admin.quotes.status", map[string]any{"quote_id": id, "status": status})
	return c.Redirect("/admin/quotes?ok=status", fiber.StatusSeeOther)
}
