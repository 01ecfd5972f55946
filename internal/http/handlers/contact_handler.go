package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "ppecatalog/internal/log"
	"ppecatalog/internal/services"
)

type ContactHandler struct {
	Contact *services.ContactService
}

// GET /contact
func (h *ContactHandler) Form(c *fiber.Ctx) error {
	return render(c, "contact", fiber.Map{"Title": "Contact", "Form": services.ContactRequest{}})
}

// POST /contact
func (h *ContactHandler) Submit(c *fiber.Ctx) error {
	req := services.ContactRequest{
		Name:    c.FormValue("name"),
		Email:   c.FormValue("email"),
		Phone:   c.FormValue("phone"),
		Company: c.FormValue("company"),
		Subject: c.FormValue("subject"),
		Message: c.FormValue("message"),
	}
	if err := h.Contact.Contact(c.UserContext(), req); err != nil {
		return formError(c, "contact", "contact.submit", err, fiber.Map{"Title": "Contact", "Form": req})
	}
	applog.Audit(c, "contact.submit", map[string]any{"subject": req.Subject})
	return render(c, "contact", fiber.Map{"Title": "Contact", "Done": true})
}

// POST /newsletter
func (h *ContactHandler) Subscribe(c *fiber.Ctx) error {
	if err := h.Contact.Subscribe(c.UserContext(), c.FormValue("email")); err != nil {
		return formError(c, "contact", "newsletter.subscribe", err, fiber.Map{"Title": "Newsletter", "Form": services.ContactRequest{}})
	}
	applog.Audit(c, "newsletter.subscribe", nil)
	return c.Redirect("/?ok=newsletter", fiber.StatusSeeOther)
}
