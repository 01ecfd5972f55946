package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ppecatalog/internal/config"
	applog "ppecatalog/internal/log"
)

// MaxBodySize caps every request body.
const MaxBodySize = 1 << 20

// NewApp builds the fiber app with its middleware chain and every route.
func NewApp(deps *Deps, cfg config.Config) *fiber.App {
	engine := html.New(cfg.TemplatesDir, ".html")
	engine.AddFunc("price", Price)
	engine.AddFunc("add", func(a, b int) int { return a + b })

	app := fiber.New(fiber.Config{
		Views:        engine,
		BodyLimit:    MaxBodySize,
		ErrorHandler: errorHandler,
		// Form values end up in the store.
		Immutable: true,
	})

	// ---------- Middlewares ----------
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(helmet.New())
	if cfg.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit,
			Expiration: time.Minute,
			Next: func(c *fiber.Ctx) bool {
				return strings.HasPrefix(c.Path(), "/static/")
			},
			LimitReached: func(c *fiber.Ctx) error {
				applog.Security(c, "rate.global.hit", nil)
				return c.Status(fiber.StatusTooManyRequests).SendString("Trop de requêtes, réessayez dans un instant.")
			},
		}))
	}
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     2 * time.Hour,
		// The JSON API carries no cookies worth protecting.
		Next: func(c *fiber.Ctx) bool { return isAPI(c) },
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", nil)
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Vérification de sécurité échouée. Rechargez la page et réessayez."})
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})
	app.Use(navMiddleware(deps))

	// ---------- Static assets ----------
	app.Static("/static", cfg.StaticDir)

	// ---------- Pages ----------
	app.Get("/", deps.CategoryHandler.Home)
	app.Get("/categories/:slug", deps.CategoryHandler.Category)
	app.Get("/categories/:slug/:sub", deps.CategoryHandler.SubCategory)
	app.Get("/produits", deps.ProductHandler.List)
	app.Get("/produits/:id", deps.ProductHandler.Detail)
	app.Get("/catalogue", deps.ProductHandler.Catalogue)
	app.Get("/pages/:slug", deps.PageHandler.Show)

	forms := formLimiter(cfg.FormRateLimit, func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusTooManyRequests).Render("notfound", fiber.Map{"Message": "Trop d'envois. Merci de réessayer plus tard."})
	})
	app.Get("/devis", deps.QuoteHandler.Form)
	app.Post("/devis", forms, deps.QuoteHandler.Submit)
	app.Get("/contact", deps.ContactHandler.Form)
	app.Post("/contact", forms, deps.ContactHandler.Submit)
	app.Post("/newsletter", forms, deps.ContactHandler.Subscribe)

	// ---------- Admin ----------
	admin := app.Group("/admin")
	admin.Get("/quotes", deps.AdminHandler.QuotesPage)
	admin.Post("/quotes/:id/status", deps.AdminHandler.UpdateQuoteStatus)

	// ---------- API ----------
	api := app.Group("/api")
	deps.APIHandler.Register(api)
	api.Post("/chatbot", formLimiter(cfg.FormRateLimit, func(c *fiber.Ctx) error {
		return apiError(c, fiber.StatusTooManyRequests, "Trop de messages, réessayez dans un instant.")
	}), deps.APIHandler.Chatbot)

	// ---------- Health, metrics & 404 ----------
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Use(func(c *fiber.Ctx) error {
		if isAPI(c) {
			return apiError(c, fiber.StatusNotFound, msgNotFound)
		}
		return notFound(c, "")
	})
	return app
}

// formLimiter throttles submissions per IP. max <= 0 disables it.
func formLimiter(max int, reached fiber.Handler) fiber.Handler {
	if max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|forms"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.forms.hit", nil)
			return reached(c)
		},
	})
}

// navMiddleware loads the categories shown in the header of every page.
func navMiddleware(deps *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodGet || isAPI(c) || strings.HasPrefix(c.Path(), "/static/") {
			return c.Next()
		}
		cats, err := deps.Catalog.ListCategories(c.UserContext())
		if err != nil {
			applog.Error(c, "nav.categories.fail", err, nil)
		} else {
			c.Locals("nav", cats)
		}
		return c.Next()
	}
}

func isAPI(c *fiber.Ctx) bool {
	return c.Path() == "/api" || strings.HasPrefix(c.Path(), "/api/")
}

// errorHandler shows a friendly page. Client errors keep their status;
// anything else is logged and reported as a generic failure.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	msg := GenericError
	if code < fiber.StatusInternalServerError {
		applog.Info(c, "request.rejected", map[string]any{"code": code})
		msg = "Requête invalide"
		if code == fiber.StatusNotFound {
			msg = "Page introuvable"
		}
	} else {
		applog.Error(c, "server.error", err, nil)
	}
	if isAPI(c) {
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
	if rerr := c.Status(code).Render("notfound", fiber.Map{"Message": msg}); rerr != nil {
		return c.Status(code).SendString(msg)
	}
	return nil
}
