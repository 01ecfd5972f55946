package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"ppecatalog/internal/domain"
	"ppecatalog/internal/listing"
	"ppecatalog/internal/metrics"
	"ppecatalog/internal/notify"
	"ppecatalog/internal/repos"
	"ppecatalog/internal/validate"
)

// ContactService handles the forms that only produce a notification:
// contact, newsletter and chatbot.
type ContactService struct {
	Outbox   repos.Outbox
	Catalog  *CatalogService
	NotifyTo string
	Log      *zap.Logger
}

func NewContactService(outbox repos.Outbox, catalog *CatalogService, notifyTo string, log *zap.Logger) *ContactService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ContactService{Outbox: outbox, Catalog: catalog, NotifyTo: notifyTo, Log: log}
}

// ContactRequest is the contact form.
type ContactRequest struct {
	Name    string `json:"name" form:"name"`
	Email   string `json:"email" form:"email"`
	Phone   string `json:"phone" form:"phone"`
	Company string `json:"company" form:"company"`
	Subject string `json:"subject" form:"subject"`
	Message string `json:"message" form:"message"`
}

func (s *ContactService) Contact(ctx context.Context, r ContactRequest) error {
	r, err := validateContact(r)
	if err != nil {
		metrics.FormsTotal.WithLabelValues("contact", "invalid").Inc()
		return err
	}
	metrics.FormsTotal.WithLabelValues("contact", "accepted").Inc()
	s.enqueue(ctx, "contact", notify.Contact(s.NotifyTo, notify.ContactForm{
		Name: r.Name, Email: r.Email, Phone: r.Phone,
		Company: r.Company, Subject: r.Subject, Message: r.Message,
	}))
	return nil
}

func validateContact(r ContactRequest) (ContactRequest, error) {
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
	if r.Message = validate.Message(r.Message); r.Message == "" {
		return r, invalid("message", "Votre message est vide.")
	}
	r.Company = strings.TrimSpace(r.Company)
	r.Subject = strings.TrimSpace(r.Subject)
	return r, nil
}

func (s *ContactService) Subscribe(ctx context.Context, email string) error {
	email, ok := validate.Email(email)
	if !ok {
		metrics.FormsTotal.WithLabelValues("newsletter", "invalid").Inc()
		return invalid("email", "Adresse email invalide.")
	}
	metrics.FormsTotal.WithLabelValues("newsletter", "accepted").Inc()
	s.enqueue(ctx, "newsletter", notify.Newsletter(s.NotifyTo, email))
	return nil
}

// ChatRequest is a message typed into the chatbot widget. Email is optional.
type ChatRequest struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}

// ChatSuggestion is a product the chatbot links to.
type ChatSuggestion struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type ChatReply struct {
	Reply       string           `json:"reply"`
	Suggestions []ChatSuggestion `json:"suggestions"`
}

const maxSuggestions = 3

// chatTopics are matched against the folded message, first hit wins.
var chatTopics = []struct {
	words []string
	reply string
}{
	{[]string{"devis", "prix", "tarif"}, "Pour un tarif adapté à vos volumes, demandez un devis depuis la fiche produit : notre équipe commerciale vous répond sous 24 h ouvrées."},
	{[]string{"livraison", "delai", "expedition"}, "Nous expédions sous 48 h les produits en stock, partout en France métropolitaine."},
	{[]string{"norme", "certification", "fiche", "notice"}, "Les fiches techniques et certificats sont disponibles dans l'onglet Documentation de chaque produit et dans notre catalogue."},
	{[]string{"bonjour", "salut", "hello"}, "Bonjour ! Décrivez le produit ou la protection dont vous avez besoin, je vous oriente."},
}

const chatDefault = "Merci pour votre message. Un conseiller peut vous recontacter : laissez-nous votre email ou utilisez le formulaire de contact."

// Chat answers with a canned reply and a few matching products. When an
// email is given, the question is forwarded to the sales inbox.
func (s *ContactService) Chat(ctx context.Context, r ChatRequest) (ChatReply, error) {
	msg := validate.Message(r.Message)
	if msg == "" {
		metrics.FormsTotal.WithLabelValues("chatbot", "invalid").Inc()
		return ChatReply{}, invalid("message", "Votre message est vide.")
	}
	email := strings.TrimSpace(r.Email)
	if email != "" {
		var ok bool
		if email, ok = validate.Email(email); !ok {
			metrics.FormsTotal.WithLabelValues("chatbot", "invalid").Inc()
			return ChatReply{}, invalid("email", "Adresse email invalide.")
		}
	}

	reply := ChatReply{Reply: chatDefault, Suggestions: []ChatSuggestion{}}
	folded := listing.Fold(msg)
topics:
	for _, t := range chatTopics {
		for _, w := range t.words {
			if strings.Contains(folded, w) {
				reply.Reply = t.reply
				break topics
			}
		}
	}

	prods, err := s.Catalog.Suggest(ctx, msg, maxSuggestions)
	if err != nil {
		// Answer without suggestions.
		s.Log.Error("chatbot_suggest_failed", zap.Error(err))
	}
	names := make([]string, 0, len(prods))
	for _, p := range prods {
		reply.Suggestions = append(reply.Suggestions, ChatSuggestion{ID: p.ID, Name: p.Name, URL: "/produits/" + p.ID})
		names = append(names, p.Name)
	}

	metrics.FormsTotal.WithLabelValues("chatbot", "accepted").Inc()
	if email != "" {
		s.enqueue(ctx, "chatbot", notify.Chatbot(s.NotifyTo, email, msg, names))
	}
	return reply, nil
}

func (s *ContactService) enqueue(ctx context.Context, form string, n domain.Notification) {
	if _, err := s.Outbox.Enqueue(ctx, n); err != nil {
		s.Log.Error("notification_enqueue_failed", zap.String("form", form), zap.Error(err))
	}
}
