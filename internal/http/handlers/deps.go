package handlers

import (
	"go.uber.org/zap"

	"ppecatalog/internal/config"
	"ppecatalog/internal/repos"
	"ppecatalog/internal/services"
)

type Deps struct {
	CategoryHandler *CategoryHandler
	ProductHandler  *ProductHandler
	QuoteHandler    *QuoteHandler
	ContactHandler  *ContactHandler
	PageHandler     *PageHandler
	AdminHandler    *AdminHandler
	APIHandler      *APIHandler

	Catalog *services.CatalogService
}

func NewDeps(store repos.Store, cfg config.Config, logger *zap.Logger) *Deps {
	catalogSvc := services.NewCatalogService(store)
	quoteSvc := services.NewQuoteService(store, store, cfg.NotifyTo, logger)
	contactSvc := services.NewContactService(store, catalogSvc, cfg.NotifyTo, logger)

	return &Deps{
		CategoryHandler: &CategoryHandler{Catalog: catalogSvc},
		ProductHandler:  &ProductHandler{Catalog: catalogSvc},
		QuoteHandler:    &QuoteHandler{Quotes: quoteSvc, Catalog: catalogSvc},
		ContactHandler:  &ContactHandler{Contact: contactSvc},
		PageHandler:     &PageHandler{},
		AdminHandler:    &AdminHandler{Quotes: quoteSvc, Store: store},
		APIHandler:      &APIHandler{Store: store, Quotes: quoteSvc, Contact: contactSvc},
		Catalog:         catalogSvc,
	}
}
