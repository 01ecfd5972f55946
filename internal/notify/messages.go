package notify

import (
	"fmt"
	"strings"

	"ppecatalog/internal/domain"
)

// QuoteRequest is the sales notification for a new quote.
func QuoteRequest(to string, q domain.Quote, productName string) domain.Notification {
	if productName == "" {
		productName = q.ProductID
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Nouvelle demande de devis (%s)\n\n", q.ID)
	fmt.Fprintf(&b, "Produit : %s (%s)\n", productName, q.ProductID)
	fmt.Fprintf(&b, "Quantité : %d\n", q.Quantity)
	fmt.Fprintf(&b, "Nom : %s\nEmail : %s\n", q.Name, q.Email)
	if q.Phone != "" {
		fmt.Fprintf(&b, "Téléphone : %s\n", q.Phone)
	}
	if q.Message != "" {
		fmt.Fprintf(&b, "\nMessage :\n%s\n", q.Message)
	}
	return domain.Notification{
		Kind:    domain.NotifyQuote,
		To:      to,
		ReplyTo: q.Email,
		Subject: fmt.Sprintf("Demande de devis : %s x%d", productName, q.Quantity),
		Body:    b.String(),
	}
}

// ContactForm carries a message from the contact page.
type ContactForm struct {
	Name    string
	Email   string
	Phone   string
	Company string
	Subject string
	Message string
}

func Contact(to string, f ContactForm) domain.Notification {
	subject := f.Subject
	if subject == "" {
		subject = "Message du formulaire de contact"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Nom : %s\nEmail : %s\n", f.Name, f.Email)
	if f.Company != "" {
		fmt.Fprintf(&b, "Société : %s\n", f.Company)
	}
	if f.Phone != "" {
		fmt.Fprintf(&b, "Téléphone : %s\n", f.Phone)
	}
	fmt.Fprintf(&b, "\n%s\n", f.Message)
	return domain.Notification{
		Kind:    domain.NotifyContact,
		To:      to,
		ReplyTo: f.Email,
		Subject: "Contact : " + subject,
		Body:    b.String(),
	}
}

func Newsletter(to, email string) domain.Notification {
	return domain.Notification{
		Kind:    domain.NotifyNewsletter,
		To:      to,
		ReplyTo: email,
		Subject: "Nouvelle inscription à la newsletter",
		Body:    fmt.Sprintf("Adresse inscrite : %s\n", email),
	}
}

// Chatbot forwards a visitor question that came with a contact email.
func Chatbot(to, email, question string, suggestions []string) domain.Notification {
	var b strings.Builder
	fmt.Fprintf(&b, "Question posée au chatbot par %s :\n\n%s\n", email, question)
	if len(suggestions) > 0 {
		b.WriteString("\nProduits suggérés :\n")
		for _, s := range suggestions {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	return domain.Notification{
		Kind:    domain.NotifyChatbot,
		To:      to,
		ReplyTo: email,
		Subject: "Question chatbot à rappeler",
		Body:    b.String(),
	}
}
