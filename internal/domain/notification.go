package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Scope identifies the role/tenant context a notification feed is bound to.
// Each scope maps to its own upstream endpoint and categorization rules.
type Scope string

const (
	ScopeState       Scope = "state"
	ScopeCenter      Scope = "center"
	ScopeCardAdmin   Scope = "card-admin"
	ScopeCoordinator Scope = "coordinator"
)

// NotificationID is an opaque identifier. The upstream backend emits it as
// either a JSON string or a JSON number depending on the endpoint, so it
// accepts both on unmarshal.
type NotificationID string

func (id *NotificationID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = NotificationID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = NotificationID(n.String())
	return nil
}

type Notification struct {
	ID        NotificationID `json:"id"`
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	CreatedAt time.Time      `json:"created_at"`
	IsRead    bool           `json:"is_read"`
}

// Title returns the embedded title and the remaining body when the message
// carries a "<title>\n<body>" payload. A message without a newline is all body.
func (n Notification) Title() (title, body string) {
	if i := strings.IndexByte(n.Message, '\n'); i >= 0 {
		return n.Message[:i], n.Message[i+1:]
	}
	return "", n.Message
}
