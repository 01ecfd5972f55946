package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	applog "ppecatalog/internal/log"
	"ppecatalog/internal/services"
)

// GenericError is the only failure text visitors ever see.
const GenericError = "Une erreur est survenue"

func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if nav := c.Locals("nav"); nav != nil {
		data["Nav"] = nav
	}
	// Pick up the token the CSRF middleware put into Locals
	if tok, _ := c.Locals("CSRFToken").(string); tok != "" {
		data["CSRFToken"] = tok
	} else if cookTok := c.Cookies("csrf_"); cookTok != "" {
		data["CSRFToken"] = cookTok
	}
	if flash, ok := flashes[c.Query("ok")]; ok {
		data["Flash"] = flash
	}
	return c.Render(tmpl, data)
}

var flashes = map[string]string{
	"newsletter": "Merci ! Votre inscription à la newsletter est enregistrée.",
	"status":     "Statut mis à jour.",
}

func notFound(c *fiber.Ctx, msg string) error {
	if msg == "" {
		msg = "Page introuvable"
	}
	return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": msg, "Nav": c.Locals("nav")})
}

// serverError logs err and renders the generic error page.
func serverError(c *fiber.Ctx, action string, err error, fields map[string]any) error {
	applog.Error(c, action, err, fields)
	return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": GenericError, "Nav": c.Locals("nav")})
}

// formError re-renders tmpl with the validation message, or falls back to
// the error page for anything that is not the visitor's fault.
func formError(c *fiber.Ctx, tmpl, action string, err error, data fiber.Map) error {
	if !errors.Is(err, services.ErrInvalidInput) {
		return serverError(c, action, err, nil)
	}
	var fe *services.FieldError
	if errors.As(err, &fe) {
		applog.Info(c, action+".invalid", map[string]any{"field": fe.Field})
	}
	data["Err"] = services.Message(err)
	c.Status(fiber.StatusBadRequest)
	return render(c, tmpl, data)
}

func apiError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// apiFail maps a service error onto a JSON response.
func apiFail(c *fiber.Ctx, action string, err error) error {
	if errors.Is(err, services.ErrInvalidInput) {
		return apiError(c, fiber.StatusBadRequest, services.Message(err))
	}
	applog.Error(c, action, err, nil)
	return apiError(c, fiber.StatusInternalServerError, GenericError)
}

var (
	pricePrinter = message.NewPrinter(language.French)
	// Every grouping mark becomes a no-break space.
	priceSpaces = strings.NewReplacer("\u202f", "\u00a0", " ", "\u00a0")
)

// Price formats an amount the French way: "1\u00a0234,50\u00a0€".
func Price(v float64) string {
	return priceSpaces.Replace(pricePrinter.Sprintf("%.2f", v)) + "\u00a0€"
}
