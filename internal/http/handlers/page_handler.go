package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// StaticPage is an informational page with fixed content.
type StaticPage struct {
	Title      string
	Paragraphs []string
}

var staticPages = map[string]StaticPage{
	"a-propos": {
		Title: "À propos",
		Paragraphs: []string{
			"Nous distribuons des équipements de protection individuelle aux entreprises du BTP, de l'industrie et de la logistique.",
			"Notre équipe sélectionne des produits certifiés et vous accompagne dans le choix des protections adaptées à vos risques.",
		},
	},
	"mentions-legales": {
		Title: "Mentions légales",
		Paragraphs: []string{
			"Ce site est édité par notre société de distribution d'EPI. Les informations sur les produits sont fournies à titre indicatif.",
		},
	},
	"confidentialite": {
		Title: "Politique de confidentialité",
		Paragraphs: []string{
			"Les données saisies dans nos formulaires servent uniquement à traiter vos demandes de devis et de contact.",
			"Vous pouvez demander la suppression de vos données à tout moment via le formulaire de contact.",
		},
	},
	"cookies": {
		Title: "Cookies",
		Paragraphs: []string{
			"Ce site n'utilise qu'un cookie technique de sécurité pour protéger l'envoi des formulaires.",
		},
	},
	"faq": {
		Title: "Questions fréquentes",
		Paragraphs: []string{
			"Comment obtenir un tarif ? Demandez un devis depuis la fiche du produit, nous répondons sous 24 h ouvrées.",
			"Où trouver les certificats ? Dans l'onglet Documentation de chaque produit et dans le catalogue.",
		},
	},
	"cgv": {
		Title: "Conditions générales de vente",
		Paragraphs: []string{
			"Les ventes sont conclues sur devis accepté. Les prix affichés sont hors taxes et indicatifs.",
		},
	},
	"retours": {
		Title: "Retours",
		Paragraphs: []string{
			"Les produits non portés peuvent être retournés sous 30 jours dans leur emballage d'origine.",
		},
	},
	"conseils-securite": {
		Title: "Conseils de sécurité",
		Paragraphs: []string{
			"Vérifiez la date de péremption des casques et remplacez-les après tout choc important.",
			"Choisissez le niveau de protection des gants selon l'évaluation des risques de chaque poste.",
		},
	},
}

type PageHandler struct{}

// GET /pages/:slug
func (h *PageHandler) Show(c *fiber.Ctx) error {
	p, ok := staticPages[c.Params("slug")]
	if !ok {
		return notFound(c, "")
	}
	return render(c, "page", fiber.Map{"Title": p.Title, "Page": p})
}
