package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/edudash-core/internal/domain"
	"github.com/edudash-core/internal/pkg/bus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

// fakeClient serves scripted poll responses in order, repeating the last one.
type fakeClient struct {
	mu        sync.Mutex
	responses [][]domain.Notification
	errs      []error
	calls     int
	markErr   error
	marked    []domain.NotificationID
}

func (f *fakeClient) Notifications(ctx context.Context, token string, scope domain.Scope) ([]domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return f.responses[i], err
}

func (f *fakeClient) MarkNotificationRead(ctx context.Context, token string, id domain.NotificationID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	f.marked = append(f.marked, id)
	return nil
}

type fakeSMS struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSMS) SendSMS(ctx context.Context, to, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, message)
	return nil
}

func notif(id string, read bool) domain.Notification {
	return domain.Notification{
		ID:        domain.NotificationID(id),
		Type:      "batch_request",
		Message:   "msg " + id,
		CreatedAt: time.Now().UTC(),
		IsRead:    read,
	}
}

func ids(ns []domain.Notification) []domain.NotificationID {
	out := make([]domain.NotificationID, len(ns))
	for i, n := range ns {
		out[i] = n.ID
	}
	return out
}

// --- tests ---

func TestNew_NoCredentialStaysIdle(t *testing.T) {
	f := New(&fakeClient{responses: [][]domain.Notification{nil}}, Options{Scope: domain.ScopeState})

	assert.Equal(t, StateIdle, f.State())
	f.Start() // no-op without a token
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateIdle, f.State())
}

func TestPollCycle_ReplacesListWholesale(t *testing.T) {
	c := &fakeClient{responses: [][]domain.Notification{
		{notif("1", false), notif("2", true)},
		{notif("1", false), notif("3", false)},
	}}
	f := New(c, Options{Scope: domain.ScopeState, Token: "tok"})

	f.pollOnce()
	assert.Equal(t, StateReady, f.State())
	assert.Equal(t, []domain.NotificationID{"1"}, ids(f.Unread()))

	f.pollOnce()
	assert.Equal(t, []domain.NotificationID{"1", "3"}, ids(f.Unread()))
}

func TestPoll_ErrorKeepsLastKnownList(t *testing.T) {
	c := &fakeClient{
		responses: [][]domain.Notification{{notif("1", false)}, nil},
		errs:      []error{nil, errors.New("boom")},
	}
	f := New(c, Options{Scope: domain.ScopeState, Token: "tok"})

	f.pollOnce()
	f.pollOnce()

	assert.Equal(t, StateError, f.State())
	assert.Equal(t, []domain.NotificationID{"1"}, ids(f.Unread()))
}

func TestPoll_ErrorClearsListWhenEmptyOnError(t *testing.T) {
	c := &fakeClient{
		responses: [][]domain.Notification{{notif("1", false)}, nil, {notif("2", false)}},
		errs:      []error{nil, errors.New("404"), nil},
	}
	f := New(c, Options{Scope: domain.ScopeCoordinator, Token: "tok", EmptyOnError: true})

	f.pollOnce()
	f.pollOnce()
	assert.Equal(t, StateError, f.State())
	assert.Empty(t, f.Unread())

	// Self-heals on the next tick.
	f.pollOnce()
	assert.Equal(t, StateReady, f.State())
	assert.Equal(t, []domain.NotificationID{"2"}, ids(f.Unread()))
}

func TestMarkAsRead_OptimisticRemoval(t *testing.T) {
	c := &fakeClient{responses: [][]domain.Notification{{notif("1", false), notif("2", false)}}}
	f := New(c, Options{Scope: domain.ScopeState, Token: "tok"})
	f.pollOnce()

	require.NoError(t, f.MarkAsRead(context.Background(), "1"))
	assert.Equal(t, []domain.NotificationID{"2"}, ids(f.Unread()))

	// Marking the same id again is a no-op for the list.
	require.NoError(t, f.MarkAsRead(context.Background(), "1"))
	assert.Equal(t, []domain.NotificationID{"2"}, ids(f.Unread()))
}

func TestMarkAsRead_FailureLeavesItemInPlace(t *testing.T) {
	c := &fakeClient{
		responses: [][]domain.Notification{{notif("1", false)}},
		markErr:   errors.New("upstream down"),
	}
	f := New(c, Options{Scope: domain.ScopeState, Token: "tok"})
	f.pollOnce()

	err := f.MarkAsRead(context.Background(), "1")

	require.Error(t, err)
	assert.Equal(t, []domain.NotificationID{"1"}, ids(f.Unread()))
}

func TestStartStop_SchedulingStops(t *testing.T) {
	c := &fakeClient{responses: [][]domain.Notification{{notif("1", false)}}}
	f := New(c, Options{Scope: domain.ScopeState, Token: "tok", Interval: 5 * time.Millisecond})

	f.Start()
	require.Eventually(t, func() bool { return f.State() == StateReady }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.calls >= 3
	}, time.Second, time.Millisecond)

	f.Stop()
	f.Stop() // idempotent
	c.mu.Lock()
	after := c.calls
	c.mu.Unlock()
	time.Sleep(30 * time.Millisecond)
	c.mu.Lock()
	defer c.mu.Unlock()
	assert.LessOrEqual(t, c.calls, after+1) // at most one already-scheduled fetch
}

func TestPoll_PublishesSnapshotOnBus(t *testing.T) {
	b := bus.New()
	var got []Snapshot
	var mu sync.Mutex
	b.Subscribe(bus.TopicFeedUpdated, func(e bus.Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.Data.(Snapshot))
	})

	c := &fakeClient{responses: [][]domain.Notification{{notif("1", false), notif("2", false)}}}
	f := New(c, Options{Scope: domain.ScopeCardAdmin, Token: "tok", Bus: b})
	f.pollOnce()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, domain.ScopeCardAdmin, got[0].Scope)
	assert.Equal(t, 2, got[0].UnreadCount)
	assert.Equal(t, "2", got[0].DisplayCount)
}

func TestPoll_EscalatesFlaggedCategoriesOnce(t *testing.T) {
	sms := &fakeSMS{}
	payment := domain.Notification{ID: "p1", Type: "card_payment", Message: "Payment due\ninvoice 42 unpaid"}
	c := &fakeClient{responses: [][]domain.Notification{{payment}, {payment}}}
	f := New(c, Options{
		Scope: domain.ScopeState, Token: "tok",
		SMS: sms, EscalationPhone: "+15550100",
	})

	f.pollOnce()
	f.pollOnce() // same notification again: no second SMS

	sms.mu.Lock()
	defer sms.mu.Unlock()
	require.Len(t, sms.sent, 1)
	assert.Equal(t, "Payment due: invoice 42 unpaid", sms.sent[0])
}
