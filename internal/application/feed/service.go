package feed

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/edudash-core/internal/domain"
	"github.com/edudash-core/internal/pkg/bus"
)

// State is the lifecycle phase of a feed.
type State string

const (
	StateIdle    State = "idle"    // no credential, feed never starts
	StateLoading State = "loading" // started, first fetch not yet completed
	StateReady   State = "ready"
	StateError   State = "error" // last fetch failed; self-heals on the next tick
)

const defaultInterval = 5 * time.Second

// notificationClient is the upstream subset a feed needs.
type notificationClient interface {
	Notifications(ctx context.Context, token string, scope domain.Scope) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, token string, id domain.NotificationID) error
}

// smsSender escalates flagged notifications. Optional.
type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// Options configures one scoped feed.
type Options struct {
	Scope    domain.Scope
	Token    string
	Interval time.Duration // defaults to 5s
	// EmptyOnError clears the list on fetch failure instead of keeping the
	// last-known data. Used for scopes whose endpoint 404s when no
	// notifications are configured.
	EmptyOnError bool
	// Rules overrides the scope's default categorization rules.
	Rules []Category
	// Bus, when set, receives a Snapshot on TopicFeedUpdated after every
	// list replacement.
	Bus *bus.Bus
	// SMS plus EscalationPhone enable SMS forwarding of escalatable
	// categories. Each notification escalates at most once.
	SMS             smsSender
	EscalationPhone string
}

// Snapshot is the display-ready view of a feed published on the bus and
// served to the UI.
type Snapshot struct {
	Scope        domain.Scope          `json:"scope"`
	State        State                 `json:"state"`
	Unread       []domain.Notification `json:"unread"`
	UnreadCount  int                   `json:"unread_count"`
	DisplayCount string                `json:"display_count"`
}

// Feed polls one role-scoped notification endpoint at a fixed rate and
// maintains the deduplicated unread set. The list is replaced wholesale on
// every successful fetch; overlapping fetches resolve last-write-wins under
// the mutex, which is the contract the UI depends on.
type Feed struct {
	client       notificationClient
	scope        domain.Scope
	token        string
	interval     time.Duration
	emptyOnError bool
	rules        []Category
	bus          *bus.Bus
	sms          smsSender
	phone        string

	mu        sync.Mutex
	state     State
	unread    []domain.Notification
	escalated map[domain.NotificationID]bool

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	ticker    *time.Ticker
}

func New(client notificationClient, opts Options) *Feed {
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	rules := opts.Rules
	if rules == nil {
		rules = RulesForScope(opts.Scope)
	}
	state := StateIdle
	if opts.Token != "" {
		state = StateLoading
	}
	return &Feed{
		client:       client,
		scope:        opts.Scope,
		token:        opts.Token,
		interval:     interval,
		emptyOnError: opts.EmptyOnError,
		rules:        rules,
		bus:          opts.Bus,
		sms:          opts.SMS,
		phone:        opts.EscalationPhone,
		state:        state,
		escalated:    make(map[domain.NotificationID]bool),
		done:         make(chan struct{}),
	}
}

// Start performs one immediate fetch and then schedules recurring fetches at
// the fixed interval. Each fetch runs in its own goroutine so a slow
// response never delays the next tick. Without a credential the feed stays
// Idle and Start is a no-op.
func (f *Feed) Start() {
	if f.token == "" {
		return
	}
	f.startOnce.Do(func() {
		go f.pollOnce()
		f.ticker = time.NewTicker(f.interval)
		go func() {
			for {
				select {
				case <-f.done:
					return
				case <-f.ticker.C:
					go f.pollOnce()
				}
			}
		}()
	})
}

// Stop cancels the poll schedule synchronously. Idempotent. An in-flight
// fetch is not aborted; its result is discarded.
func (f *Feed) Stop() {
	f.stopOnce.Do(func() {
		close(f.done)
		if f.ticker != nil {
			f.ticker.Stop()
		}
	})
}

func (f *Feed) stopped() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func (f *Feed) pollOnce() {
	items, err := f.client.Notifications(context.Background(), f.token, f.scope)

	f.mu.Lock()
	if f.stopped() {
		f.mu.Unlock()
		return
	}
	if err != nil {
		slog.Warn("notification poll failed", "scope", f.scope, "err", err)
		f.state = StateError
		if f.emptyOnError {
			f.unread = nil
		}
		f.mu.Unlock()
		return
	}
	unread := items[:0:0]
	for _, n := range items {
		if !n.IsRead {
			unread = append(unread, n)
		}
	}
	f.unread = unread
	f.state = StateReady
	toEscalate := f.collectEscalations(unread)
	snap := f.snapshotLocked()
	f.mu.Unlock()

	if f.bus != nil {
		f.bus.Publish(bus.TopicFeedUpdated, snap)
	}
	f.escalate(toEscalate)
}

// collectEscalations returns unread notifications in escalatable categories
// not yet forwarded. Caller holds f.mu.
func (f *Feed) collectEscalations(unread []domain.Notification) []domain.Notification {
	if f.sms == nil || f.phone == "" {
		return nil
	}
	var out []domain.Notification
	for _, n := range unread {
		if f.escalated[n.ID] {
			continue
		}
		if Categorize(f.rules, n).Escalate {
			f.escalated[n.ID] = true
			out = append(out, n)
		}
	}
	return out
}

func (f *Feed) escalate(items []domain.Notification) {
	for _, n := range items {
		title, body := n.Title()
		msg := body
		if title != "" {
			msg = title + ": " + body
		}
		if err := f.sms.SendSMS(context.Background(), f.phone, msg); err != nil {
			slog.Warn("notification escalation failed", "scope", f.scope, "notification_id", n.ID, "err", err)
		}
	}
}

// MarkAsRead sends the mark-read request and, on success only, removes the
// notification from the local unread list ahead of the next poll. On failure
// the item stays put; the operator may click again.
func (f *Feed) MarkAsRead(ctx context.Context, notificationID domain.NotificationID) error {
	return f.MarkAsReadWithToken(ctx, "", notificationID)
}

// MarkAsReadWithToken is the pass-through variant for user-initiated calls
// arriving on the local API with their own bearer. An empty token falls back
// to the feed's service credential.
func (f *Feed) MarkAsReadWithToken(ctx context.Context, token string, notificationID domain.NotificationID) error {
	if token == "" {
		token = f.token
	}
	if err := f.client.MarkNotificationRead(ctx, token, notificationID); err != nil {
		slog.Warn("mark-as-read failed", "scope", f.scope, "notification_id", notificationID, "err", err)
		return err
	}
	f.mu.Lock()
	kept := f.unread[:0:0]
	for _, n := range f.unread {
		if n.ID != notificationID {
			kept = append(kept, n)
		}
	}
	f.unread = kept
	snap := f.snapshotLocked()
	f.mu.Unlock()

	if f.bus != nil {
		f.bus.Publish(bus.TopicFeedUpdated, snap)
	}
	return nil
}

// State reports the current lifecycle phase.
func (f *Feed) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// CategoryFor classifies a notification with this feed's rule table.
func (f *Feed) CategoryFor(n domain.Notification) Category {
	return Categorize(f.rules, n)
}

// Scope returns the role scope this feed is bound to.
func (f *Feed) Scope() domain.Scope { return f.scope }

// UnreadCount is the length of the current unread list.
func (f *Feed) UnreadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.unread)
}

// Unread returns a copy of the current unread list.
func (f *Feed) Unread() []domain.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Notification, len(f.unread))
	copy(out, f.unread)
	return out
}

// Snapshot returns the display-ready view of the feed.
func (f *Feed) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Feed) snapshotLocked() Snapshot {
	unread := make([]domain.Notification, len(f.unread))
	copy(unread, f.unread)
	return Snapshot{
		Scope:        f.scope,
		State:        f.state,
		Unread:       unread,
		UnreadCount:  len(unread),
		DisplayCount: DisplayCount(len(unread)),
	}
}

// DisplayCount renders an unread count for the bell badge, clamped to "9+"
// above nine.
func DisplayCount(n int) string {
	if n > 9 {
		return "9+"
	}
	return strconv.Itoa(n)
}
