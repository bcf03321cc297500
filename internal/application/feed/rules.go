package feed

import (
	"strings"

	"github.com/edudash-core/internal/domain"
)

// Category is a display bucket for a notification: the bell dropdown tints
// the row with Color and shows Icon. Escalate marks the category for SMS
// forwarding when escalation is configured.
type Category struct {
	Name     string `json:"name"`
	Color    string `json:"background_color"`
	Icon     string `json:"icon"`
	Keywords []string
	Escalate bool
}

// DefaultCategory applies when no rule matches.
var DefaultCategory = Category{Name: "general", Color: "#F3F4F6", Icon: "bell"}

// Categorize returns the first category whose keywords match the
// notification's type or message, lowercased. Rule order is the precedence
// contract: a notification matching several categories resolves to the
// earliest one.
func Categorize(rules []Category, n domain.Notification) Category {
	typ := strings.ToLower(n.Type)
	msg := strings.ToLower(n.Message)
	for _, c := range rules {
		for _, kw := range c.Keywords {
			if strings.Contains(typ, kw) || strings.Contains(msg, kw) {
				return c
			}
		}
	}
	return DefaultCategory
}

// RulesForScope returns the ordered categorization rules for a role scope.
func RulesForScope(scope domain.Scope) []Category {
	switch scope {
	case domain.ScopeState:
		return []Category{
			{Name: "batch", Color: "#DBEAFE", Icon: "layers", Keywords: []string{"batch"}},
			{Name: "center", Color: "#DCFCE7", Icon: "building", Keywords: []string{"center"}},
			{Name: "user", Color: "#F3E8FF", Icon: "user", Keywords: []string{"user"}},
			{Name: "finance", Color: "#FEF3C7", Icon: "credit-card", Keywords: []string{"finance", "payment", "invoice"}, Escalate: true},
		}
	case domain.ScopeCardAdmin:
		return []Category{
			{Name: "card", Color: "#FCE7F3", Icon: "credit-card", Keywords: []string{"card"}},
			{Name: "payment", Color: "#FEF3C7", Icon: "banknote", Keywords: []string{"payment"}, Escalate: true},
			{Name: "request", Color: "#DBEAFE", Icon: "inbox", Keywords: []string{"request"}},
		}
	case domain.ScopeCenter:
		return []Category{
			{Name: "batch", Color: "#DBEAFE", Icon: "layers", Keywords: []string{"batch"}},
			{Name: "student", Color: "#DCFCE7", Icon: "graduation-cap", Keywords: []string{"student"}},
			{Name: "certificate", Color: "#F3E8FF", Icon: "award", Keywords: []string{"certificate"}},
			{Name: "payment", Color: "#FEF3C7", Icon: "credit-card", Keywords: []string{"payment", "invoice"}},
		}
	case domain.ScopeCoordinator:
		return []Category{
			{Name: "exam", Color: "#FEE2E2", Icon: "file-text", Keywords: []string{"exam"}},
			{Name: "batch", Color: "#DBEAFE", Icon: "layers", Keywords: []string{"batch"}},
			{Name: "student", Color: "#DCFCE7", Icon: "graduation-cap", Keywords: []string{"student"}},
		}
	default:
		return nil
	}
}
