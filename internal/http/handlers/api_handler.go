package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"ppecatalog/internal/domain"
	applog "ppecatalog/internal/log"
	"ppecatalog/internal/repos"
	"ppecatalog/internal/services"
	"ppecatalog/internal/validate"
)

// APIHandler serves the JSON API under /api.
type APIHandler struct {
	Store   repos.Catalog
	Quotes  *services.QuoteService
	Contact *services.ContactService
}

const (
	msgBadJSON  = "Corps de requête invalide"
	msgNotFound = "Ressource introuvable"
)

func (h *APIHandler) Register(api fiber.Router) {
	api.Get("/categories", h.ListCategories)
	api.Post("/categories", h.CreateCategory)
	api.Patch("/categories/:id", h.UpdateCategory)
	api.Delete("/categories/:id", h.DeleteCategory)

	api.Get("/subcategories", h.ListSubCategories)
	api.Post("/subcategories", h.CreateSubCategory)
	api.Get("/subcategories/:id", h.GetSubCategory)
	api.Patch("/subcategories/:id", h.UpdateSubCategory)
	api.Delete("/subcategories/:id", h.DeleteSubCategory)

	api.Get("/subcategories/:id/fields", h.ListFields)
	api.Post("/subcategories/:id/fields", h.CreateField)
	api.Patch("/subcategories/:id/fields/:fieldId", h.UpdateField)
	api.Delete("/subcategories/:id/fields/:fieldId", h.DeleteField)

	api.Get("/products", h.ListProducts)
	api.Post("/products", h.CreateProduct)
	api.Get("/products/:id", h.GetProduct)
	api.Patch("/products/:id", h.UpdateProduct)
	api.Delete("/products/:id", h.DeleteProduct)

	api.Get("/quotes", h.ListQuotes)
	api.Post("/quotes", h.CreateQuote)
	api.Get("/quotes/:id", h.GetQuote)
	api.Patch("/quotes/:id/status", h.UpdateQuoteStatus)
}

// found writes v, or a 404 when the store returned nothing.
func found[T any](c *fiber.Ctx, v *T) error {
	if v == nil {
		return apiError(c, fiber.StatusNotFound, msgNotFound)
	}
	return c.JSON(v)
}

func deleted(c *fiber.Ctx, ok bool) error {
	if !ok {
		return apiError(c, fiber.StatusNotFound, msgNotFound)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func required(s string) bool { return strings.TrimSpace(s) != "" }

// ---------- Categories ----------

func (h *APIHandler) ListCategories(c *fiber.Ctx) error {
	cats, err := h.Store.Categories(c.UserContext())
	if err != nil {
		return apiFail(c, "api.categories.list.fail", err)
	}
	return c.JSON(cats)
}

func (h *APIHandler) CreateCategory(c *fiber.Ctx) error {
	var in domain.Category
	if err := c.BodyParser(&in); err != nil {
		return apiError(c, fiber.StatusBadRequest, msgBadJSON)
	}
	if _, ok := validate.Slug(in.Slug); !ok || !required(in.Name) {
		return apiError(c, fiber.StatusBadRequest, "Nom et slug requis")
	}
	out, err := h.Store.AddCategory(c.UserContext(), in)
	if err != nil {
		return apiFail(c, "api.categories.create.fail", err)
	}
	applog.Audit(c, "api.categories.create", map[string]any{"category_id": out.ID})
	return c.Status(fiber.StatusCreated).JSON(out)
}

func (h *APIHandler) UpdateCategory(c *fiber.Ctx) error {
	var p domain.CategoryPatch
	if err := c.BodyParser(&p); err != nil {
		return apiError(c, fiber.StatusBadRequest, msgBadJSON)
	}
	out, err := h.Store.UpdateCategory(c.UserContext(), c.Params("id"), p)
	if err != nil {
		return apiFail(c, "api.categories.update.fail", err)
	}
	if out != nil {
		applog.Audit(c, "api.categories.update", map[string]any{"category_id": out.ID})
	}
	return found(c, out)
}

func (h *APIHandler) DeleteCategory(c *fiber.Ctx) error {
	ok, err := h.Store.DeleteCategory(c.UserContext(), c.Params("id"))
	if err != nil {
		return apiFail(c, "api.categories.delete.fail", err)
	}
	if ok {
		applog.Audit(c, "api.categories.delete", map[string]any{"category_id": c.Params("id")})
	}
	return deleted(c, ok)
}

// ---------- Subcategories ----------

func (h *APIHandler) ListSubCategories(c *fiber.Ctx) error {
	subs, err := h.Store.SubCategories(c.UserContext(), c.Query("category"))
	if err != nil {
		return apiFail(c, "api.subcategories.list.fail", err)
	}
	return c.JSON(subs)
}

func (h *APIHandler) GetSubCategory(c *fiber.Ctx) error {
	sub, err := h.Store.SubCategory(c.UserContext(), c.Params("id"))
	if err != nil {
		return apiFail(c, "api.subcategories.get.fail", err)
	}
	return found(c, sub)
}

func (h *APIHandler) CreateSubCategory(c *fiber.Ctx) error {
	var in domain.SubCategory
	if err := c.BodyParser(&in); err != nil {
		return apiError(c, fiber.StatusBadRequest, msgBadJSON)
	}
	if _, ok := validate.Slug(in.Slug); !ok || !required(in.Name) || !required(in.CategoryID) {
		return apiError(c, fiber.StatusBadRequest, "Nom, slug et catégorie requis")
	}
	out, err := h.Store.AddSubCategory(c.UserContext(), in)
	if err != nil {
		return apiFail(c, "api.subcategories.create.fail", err)
	}
	applog.Audit(c, "api.subcategories.create", map[string]any{"subcategory_id": out.ID})
	return c.Status(fiber.StatusCreated).JSON(out)
}

func (h *APIHandler) UpdateSubCategory(c *fiber.Ctx) error {
	var p domain.SubCategoryPatch
	if err := c.BodyParser(&p); err != nil {
		return apiError(c, fiber.StatusBadRequest, msgBadJSON)
	}
	out, err := h.Store.UpdateSubCategory(c.UserContext(), c.Params("id"), p)
	if err != nil {
		return apiFail(c, "api.subcategories.update.fail", err)
	}
	if out != nil {
		applog.Audit(c, "api.subcategories.update", map[string]any{"subcategory_id": out.ID})
	}
	return found(c, out)
}

func (h *APIHandler) DeleteSubCategory(c *fiber.Ctx) error {
	ok, err := h.Store.DeleteSubCategory(c.UserContext(), c.Params("id"))
	if err != nil {
		return apiFail(c, "api.subcategories.delete.fail", err)
	}
	if ok {
		applog.Audit(c, "api.subcategories.delete", map[string]any{"subcategory_id": c.Params("id")})
	}
	return deleted(c, ok)
}

// ---------- Specification fields ----------

func (h *APIHandler) ListFields(c *fiber.Ctx) error {
	sub, err := h.Store.SubCategory(c.UserContext(), c.Params("id"))
	if err != nil {
		return apiFail(c, "api.fields.list.fail", err)
	}
	if sub == nil {
		return apiError(c, fiber.StatusNotFound, msgNotFound)
	}
	return c.JSON(sub.SpecificationFields)
}

func validField(f domain.SpecificationField) bool {
	switch f.Type {
	case domain.FieldText, domain.FieldNumber, domain.FieldSelect, domain.FieldBoolean:
	default:
		return false
	}
	return required(f.Name) && required(f.Label)
}

func (h *APIHandler) CreateField(c *fiber.Ctx) error {
	var in domain.SpecificationField
	if err := c.BodyParser(&in); err != nil {
		return apiError(c, fiber.StatusBadRequest, msgBadJSON)
	}
	if !validField(in) {
		return apiError(c, fiber.StatusBadRequest, "Nom, libellé et type requis")
	}
	out, err := h.Store.AddSpecificationField(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return apiFail(c, "api.fields.create.fail", err)
	}
	if out == nil {
		return apiError(c, fiber.StatusNotFound, msgNotFound)
	}
	applog.Audit(c, "api.fields.create", map[string]any{"subcategory_id": c.Params("id"), "field_id": out.ID})
	return c.Status(fiber.StatusCreated).JSON(out)
}

func (h *APIHandler) UpdateField(c *fiber.Ctx) error {
	var p domain.SpecificationFieldPatch
	if err := c.BodyParser(&p); err != nil {
		return apiError(c, fiber.StatusBadRequest, msgBadJSON)
	}
	out, err := h.Store.UpdateSpecificationField(c.UserContext(), c.Params("id"), c.Params("fieldId"), p)
	if err != nil {
		return apiFail(c, "api.fields.update.fail", err)
	}
	if out != nil {
		applog.Audit(c, "api.fields.update", map[string]any{"subcategory_id": c.Params("id"), "field_id": out.ID})
	}
	return found(c, out)
}

func (h *APIHandler) DeleteField(c *fiber.Ctx) error {
	ok, err := h.Store.DeleteSpecificationField(c.UserContext(), c.Params("id"), c.Params("fieldId"))
	if err != nil {
		return apiFail(c, "api.fields.delete.fail", err)
	}
	if ok {
		applog.Audit(c, "api.fields.delete", map[string]any{"subcategory_id": c.Params("id"), "field_id": c.Params("fieldId")})
	}
	return deleted(c, ok)
}

// ---------- Products ----------

// GET /api/products?category=&subcategory=
func (h *APIHandler) ListProducts(c *fiber.Ctx) error {
	prods, err := h.Store.Products(c.UserContext(), c.Query("category"), c.Query("subcategory"))
	if err != nil {
		applog.Error(c, "api.products.list.fail", err, nil)
		return apiError(c, fiber.StatusInternalServerError, "Erreur lors de la récupération des produits")
	}
	return c.JSON(prods)
}

func (h *APIHandler) GetProduct(c *fiber.Ctx) error {
	p, err := h.Store.Product(c.UserContext(), c.Params("id"))
	if err != nil {
		return apiFail(c, "api.products.get.fail", err)
	}
	return found(c, p)
}

func (h *APIHandler) CreateProduct(c *fiber.Ctx) error {
	var in domain.Product
	if err := c.BodyParser(&in); err != nil {
		return apiError(c, fiber.StatusBadRequest, msgBadJSON)
	}
	if !required(in.Name) || !required(in.SubCategoryID) || in.Price < 0 {
		return apiError(c, fiber.StatusBadRequest, "Nom et sous-catégorie requis")
	}
	out, err := h.Store.AddProduct(c.UserContext(), in)
	if err != nil {
		return apiFail(c, "api.products.create.fail", err)
	}
	applog.Audit(c, "api.products.create", map[string]any{"product_id": out.ID})
	return c.Status(fiber.StatusCreated).JSON(out)
}

func (h *APIHandler) UpdateProduct(c *fiber.Ctx) error {
	var p domain.ProductPatch
	if err := c.BodyParser(&p); err != nil {
		return apiError(c, fiber.StatusBadRequest, msgBadJSON)
	}
	out, err := h.Store.UpdateProduct(c.UserContext(), c.Params("id"), p)
	if err != nil {
		return apiFail(c, "api.products.update.fail", err)
	}
	if out != nil {
		applog.Audit(c, "api.products.update", map[string]any{"product_id": out.ID})
	}
	return found(c, out)
}

func (h *APIHandler) DeleteProduct(c *fiber.Ctx) error {
	ok, err := h.Store.DeleteProduct(c.UserContext(), c.Params("id"))
	if err != nil {
		return apiFail(c, "api.products.delete.fail", err)
	}
	if ok {
		applog.Audit(c, "api.products.delete", map[string]any{"product_id": c.Params("id")})
	}
	return deleted(c, ok)
}

// ---------- Quotes ----------

func (h *APIHandler) ListQuotes(c *fiber.Ctx) error {
	qs, err := h.Quotes.List(c.UserContext())
	if err != nil {
		return apiFail(c, "api.quotes.list.fail", err)
	}
	return c.JSON(qs)
}

func (h *APIHandler) GetQuote(c *fiber.Ctx) error {
	q, err := h.Quotes.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return apiFail(c, "api.quotes.get.fail", err)
	}
	return found(c, q)
}

func (h *APIHandler) CreateQuote(c *fiber.Ctx) error {
	var in services.QuoteRequest
	if err := c.BodyParser(&in); err != nil {
		return apiError(c, fiber.StatusBadRequest, msgBadJSON)
	}
	q, err := h.Quotes.Submit(c.UserContext(), in)
	if err != nil {
		return apiFail(c, "api.quotes.create.fail", err)
	}
	applog.Audit(c, "api.quotes.create", map[string]any{"quote_id": q.ID, "product_id": q.ProductID})
	return c.Status(fiber.StatusCreated).JSON(q)
}

func (h *APIHandler) UpdateQuoteStatus(c *fiber.Ctx) error {
	var in struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&in); err != nil {
		return apiError(c, fiber.StatusBadRequest, msgBadJSON)
	}
	q, err := h.Quotes.UpdateStatus(c.UserContext(), c.Params("id"), in.Status)
	if err != nil {
		return apiFail(c, "api.quotes.status.fail", err)
	}
	if q != nil {
		applog.Audit(c, "api.quotes.status", map[string]any{"quote_id": q.ID, "status": in.Status})
	}
	return found(c, q)
}

// ---------- Chatbot ----------

// POST /api/chatbot
func (h *APIHandler) Chatbot(c *fiber.Ctx) error {
	var in services.ChatRequest
	if err := c.BodyParser(&in); err != nil {
		return apiError(c, fiber.StatusBadRequest, msgBadJSON)
	}
	reply, err := h.Contact.Chat(c.UserContext(), in)
	if err != nil {
		return apiFail(c, "api.chatbot.fail", err)
	}
	applog.Info(c, "api.chatbot", map[string]any{"suggestions": len(reply.Suggestions), "with_email": in.Email != ""})
	return c.JSON(reply)
}
