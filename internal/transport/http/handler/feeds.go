package handler

import (
	"net/http"
	"time"

	"github.com/edudash-core/internal/application/feed"
	"github.com/edudash-core/internal/domain"
	"github.com/edudash-core/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// FeedHandler serves the per-scope notification feeds.
type FeedHandler struct {
	feeds map[domain.Scope]*feed.Feed
}

func NewFeedHandler(feeds map[domain.Scope]*feed.Feed) *FeedHandler {
	return &FeedHandler{feeds: feeds}
}

// NotificationView is one unread notification prepared for display.
type NotificationView struct {
	ID           domain.NotificationID `json:"id"`
	Type         string                `json:"type"`
	Title        string                `json:"title"`
	Body         string                `json:"body"`
	CreatedAt    time.Time             `json:"created_at"`
	RelativeTime string                `json:"relative_time"`
	Category     feed.Category         `json:"category"`
}

// FeedView is one scope's feed prepared for display.
type FeedView struct {
	Scope         domain.Scope       `json:"scope"`
	State         feed.State         `json:"state"`
	UnreadCount   int                `json:"unread_count"`
	DisplayCount  string             `json:"display_count"`
	Notifications []NotificationView `json:"notifications"`
}

func (h *FeedHandler) feed(w http.ResponseWriter, r *http.Request) (*feed.Feed, bool) {
	scope := domain.Scope(chi.URLParam(r, "scope"))
	f, ok := h.feeds[scope]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown feed scope")
		return nil, false
	}
	return f, true
}

// List returns a summary snapshot of every enabled feed.
func (h *FeedHandler) List(w http.ResponseWriter, _ *http.Request) {
	snapshots := make([]feed.Snapshot, 0, len(h.feeds))
	for _, f := range h.feeds {
		snapshots = append(snapshots, f.Snapshot())
	}
	writeJSON(w, http.StatusOK, snapshots)
}

// Get returns one scope's feed with categorized, display-ready items.
func (h *FeedHandler) Get(w http.ResponseWriter, r *http.Request) {
	f, ok := h.feed(w, r)
	if !ok {
		return
	}
	snap := f.Snapshot()
	now := time.Now()
	view := FeedView{
		Scope:         snap.Scope,
		State:         snap.State,
		UnreadCount:   snap.UnreadCount,
		DisplayCount:  snap.DisplayCount,
		Notifications: make([]NotificationView, 0, len(snap.Unread)),
	}
	for _, n := range snap.Unread {
		title, body := n.Title()
		view.Notifications = append(view.Notifications, NotificationView{
			ID:           n.ID,
			Type:         n.Type,
			Title:        title,
			Body:         body,
			CreatedAt:    n.CreatedAt,
			RelativeTime: feed.RelativeTime(n.CreatedAt, now),
			Category:     f.CategoryFor(n),
		})
	}
	writeJSON(w, http.StatusOK, view)
}

// MarkAsRead marks one notification read upstream with the caller's token and
// removes it from the unread set on success.
func (h *FeedHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	f, ok := h.feed(w, r)
	if !ok {
		return
	}
	token := middleware.TokenFromContext(r.Context())
	id := domain.NotificationID(chi.URLParam(r, "id"))
	if err := f.MarkAsReadWithToken(r.Context(), token, id); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f.Snapshot())
}
