package app

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"juice_subscription_bot/internal/domain/subscription"
	idb "juice_subscription_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
)

var ist = time.FixedZone("IST", 5*3600+1800)

func at(y int, m time.Month, d, hour, min int) time.Time {
	return time.Date(y, m, d, hour, min, 0, 0, ist)
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type sentMessage struct {
	chatID int64
	text   string
}

type fakeNotifier struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor map[int64]bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{failFor: make(map[int64]bool)}
}

func (n *fakeNotifier) Notify(ctx context.Context, chatID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFor[chatID] {
		return errors.New("telegram: bot was blocked by the user")
	}
	n.sent = append(n.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func (n *fakeNotifier) messagesTo(chatID int64) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, m := range n.sent {
		if m.chatID == chatID {
			out = append(out, m.text)
		}
	}
	return out
}

// memRepo is an in-memory subscription.Repository.
type memRepo struct {
	mu         sync.Mutex
	subs       map[int64]subscription.Subscription
	deliveries map[int64]subscription.Delivery
	nextSubID  int64
	nextDelID  int64
	bulkErr    error
	updateErr  error
}

func newMemRepo() *memRepo {
	return &memRepo{
		subs:       make(map[int64]subscription.Subscription),
		deliveries: make(map[int64]subscription.Delivery),
	}
}

func (r *memRepo) Create(ctx context.Context, s *subscription.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSubID++
	s.ID = r.nextSubID
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	r.subs[s.ID] = *s
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id int64) (*subscription.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok {
		return nil, idb.ErrSubscriptionNotFound
	}
	return &s, nil
}

func (r *memRepo) Update(ctx context.Context, s *subscription.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.subs[s.ID]; !ok {
		return idb.ErrSubscriptionNotFound
	}
	s.UpdatedAt = time.Now()
	r.subs[s.ID] = *s
	return nil
}

func (r *memRepo) ListByCustomer(ctx context.Context, customerTelegramID int64) ([]*subscription.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*subscription.Subscription, 0)
	for _, s := range r.subs {
		if s.CustomerTelegramID == customerTelegramID {
			s := s
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRepo) BulkCreateDeliveries(ctx context.Context, deliveries []*subscription.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bulkErr != nil {
		return r.bulkErr
	}
	for _, d := range deliveries {
		r.nextDelID++
		d.ID = r.nextDelID
		r.deliveries[d.ID] = *d
	}
	return nil
}

func (r *memRepo) GetDeliveryByID(ctx context.Context, id int64) (*subscription.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deliveries[id]
	if !ok {
		return nil, idb.ErrDeliveryNotFound
	}
	return &d, nil
}

func (r *memRepo) UpdateDeliveryStatus(ctx context.Context, id int64, status subscription.DeliveryStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deliveries[id]
	if !ok {
		return idb.ErrDeliveryNotFound
	}
	d.Status = status
	r.deliveries[id] = d
	return nil
}

func (r *memRepo) sorted(keep func(subscription.Delivery) bool) []*subscription.Delivery {
	out := make([]*subscription.Delivery, 0)
	for _, d := range r.deliveries {
		if keep(d) {
			d := d
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DeliveryDate.Equal(out[j].DeliveryDate) {
			return out[i].DeliveryDate.Before(out[j].DeliveryDate)
		}
		if out[i].SubscriptionID != out[j].SubscriptionID {
			return out[i].SubscriptionID < out[j].SubscriptionID
		}
		return out[i].SequenceIndex < out[j].SequenceIndex
	})
	return out
}

func (r *memRepo) ListDeliveries(ctx context.Context, subscriptionID int64) ([]*subscription.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(d subscription.Delivery) bool {
		return d.SubscriptionID == subscriptionID && d.Status != subscription.DeliveryCancelled
	}), nil
}

func (r *memRepo) ListDeliveriesOn(ctx context.Context, day time.Time, statuses []subscription.DeliveryStatus) ([]*subscription.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	y, m, dd := day.Date()
	return r.sorted(func(d subscription.Delivery) bool {
		dy, dm, ddd := d.DeliveryDate.In(day.Location()).Date()
		if dy != y || dm != m || ddd != dd {
			return false
		}
		if r.subs[d.SubscriptionID].Status != subscription.StatusActive {
			return false
		}
		for _, s := range statuses {
			if d.Status == s {
				return true
			}
		}
		return false
	}), nil
}

func (r *memRepo) CancelPendingDeliveries(ctx context.Context, subscriptionID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, d := range r.deliveries {
		if d.SubscriptionID == subscriptionID && d.Status == subscription.DeliveryScheduled {
			d.Status = subscription.DeliveryCancelled
			r.deliveries[id] = d
			n++
		}
	}
	return n, nil
}

func (r *memRepo) CountDeliveriesByStatus(ctx context.Context, subscriptionID int64, status subscription.DeliveryStatus) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range r.deliveries {
		if d.SubscriptionID == subscriptionID && d.Status == status {
			n++
		}
	}
	return n, nil
}
