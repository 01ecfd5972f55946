package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ppecatalog/internal/domain"
	"ppecatalog/internal/metrics"
	"ppecatalog/internal/notify"
	"ppecatalog/internal/repos"
	"ppecatalog/internal/validate"
)

// QuoteRequest is what the quote form and the API accept.
type QuoteRequest struct {
	ProductID string `json:"productId" form:"productId"`
	Name      string `json:"name" form:"name"`
	Email     string `json:"email" form:"email"`
	Phone     string `json:"phone" form:"phone"`
	Message   string `json:"message" form:"message"`
	Quantity  int    `json:"quantity" form:"quantity"`
}

type QuoteService struct {
	Store    repos.Catalog
	Outbox   repos.Outbox
	NotifyTo string
	Log      *zap.Logger
}

func NewQuoteService(store repos.Catalog, outbox repos.Outbox, notifyTo string, log *zap.Logger) *QuoteService {
	if log == nil {
		log = zap.NewNop()
	}
	return &QuoteService{Store: store, Outbox: outbox, NotifyTo: notifyTo, Log: log}
}

// Validate checks r and returns it trimmed.
func (s *QuoteService) Validate(ctx context.Context, r QuoteRequest) (QuoteRequest, error) {
	var ok bool
	if r.Name, ok = validate.Name(r.Name); !ok {
		return r, invalid("name", "Veuillez indiquer votre nom.")
	}
	if r.Email, ok = validate.Email(r.Email); !ok {
		return r, invalid("email", "Adresse email invalide.")
	}
	if r.Phone, ok = validate.Phone(r.Phone); !ok {
		return r, invalid("phone", "Numéro de téléphone invalide.")
	}
	if r.Quantity < 1 || r.Quantity > validate.MaxQuantity {
		return r, invalid("quantity", "La quantité doit être au moins de 1.")
	}
	if r.ProductID, ok = validate.ID(r.ProductID); !ok {
		return r, invalid("productId", "Produit manquant.")
	}
	p, err := s.Store.Product(ctx, r.ProductID)
	if err != nil {
		return r, fmt.Errorf("lookup product %s: %w", r.ProductID, err)
	}
	if p == nil {
		return r, invalid("productId", "Ce produit n'existe pas.")
	}
	r.Message = validate.Message(r.Message)
	return r, nil
}

// Submit stores the quote and queues the sales notification. Once the quote
// is stored the caller gets it back even if queueing fails.
func (s *QuoteService) Submit(ctx context.Context, r QuoteRequest) (domain.Quote, error) {
	r, err := s.Validate(ctx, r)
	if err != nil {
		metrics.FormsTotal.WithLabelValues("quote", outcome(err)).Inc()
		return domain.Quote{}, err
	}
	q, err := s.Store.AddQuote(ctx, domain.Quote{
		ProductID: r.ProductID, Name: r.Name, Email: r.Email,
		Phone: r.Phone, Message: r.Message, Quantity: r.Quantity,
	})
	if err != nil {
		metrics.FormsTotal.WithLabelValues("quote", "error").Inc()
		return domain.Quote{}, fmt.Errorf("add quote: %w", err)
	}
	metrics.FormsTotal.WithLabelValues("quote", "accepted").Inc()

	name := r.ProductID
	if p, err := s.Store.Product(ctx, r.ProductID); err == nil && p != nil {
		name = p.Name
	}
	if _, err := s.Outbox.Enqueue(ctx, notify.QuoteRequest(s.NotifyTo, q, name)); err != nil {
		s.Log.Error("quote_notification_enqueue_failed", zap.String("quote_id", q.ID), zap.Error(err))
	}
	return q, nil
}

func (s *QuoteService) List(ctx context.Context) ([]domain.Quote, error) {
	return s.Store.Quotes(ctx)
}

func (s *QuoteService) Get(ctx context.Context, id string) (*domain.Quote, error) {
	return s.Store.Quote(ctx, id)
}

// UpdateStatus moves a quote to any of the four statuses. It returns nil
// when the quote does not exist.
func (s *QuoteService) UpdateStatus(ctx context.Context, id, status string) (*domain.Quote, error) {
	st := domain.QuoteStatus(status)
	if !st.Valid() {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, repos.ErrUnknownStatus)
	}
	return s.Store.UpdateQuoteStatus(ctx, id, st)
}

func outcome(err error) string {
	if isInvalid(err) {
		return "invalid"
	}
	return "error"
}
