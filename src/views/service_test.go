package views

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taiga-shiokawa/miyakobook/src/errs"
)

type ledgerEntry struct {
	newsID primitive.ObjectID
	key    string
	at     time.Time
}

// fakeLedger commits entries and the counter under one mutex so a failed
// Record leaves neither behind, matching the real transaction.
type fakeLedger struct {
	mu      sync.Mutex
	entries []ledgerEntry
	counts  map[primitive.ObjectID]int64
	fail    bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{counts: map[primitive.ObjectID]int64{}}
}

func (l *fakeLedger) Seen(_ context.Context, newsID primitive.ObjectID, key string, since time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.newsID == newsID && e.key == key && !e.at.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (l *fakeLedger) Record(_ context.Context, newsID primitive.ObjectID, keys []string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail {
		return errs.Transient("transaction aborted", nil)
	}
	for _, key := range keys {
		l.entries = append(l.entries, ledgerEntry{newsID: newsID, key: key, at: at})
	}
	l.counts[newsID]++
	return nil
}

func newTestService(ledger *fakeLedger) (*Service, *time.Time) {
	svc := NewService(ledger)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &now
	svc.now = func() time.Time { return *clock }
	return svc, clock
}

func TestRegisterViewRequiresKey(t *testing.T) {
	svc, _ := newTestService(newFakeLedger())
	if _, err := svc.RegisterView(context.Background(), primitive.NewObjectID(), nil); !errs.Is(err, errs.KindValidation) {
		t.Errorf("got %v, want validation error", err)
	}
}

func TestRegisterViewDedupSameKey(t *testing.T) {
	ledger := newFakeLedger()
	svc, _ := newTestService(ledger)
	newsID := primitive.NewObjectID()
	keys := []string{UserKey(primitive.NewObjectID())}

	incremented, err := svc.RegisterView(context.Background(), newsID, keys)
	if err != nil {
		t.Fatal(err)
	}
	if !incremented {
		t.Fatal("first view must increment")
	}

	incremented, err = svc.RegisterView(context.Background(), newsID, keys)
	if err != nil {
		t.Fatal(err)
	}
	if incremented {
		t.Error("repeat view inside the window must not increment")
	}
	if ledger.counts[newsID] != 1 {
		t.Errorf("counter = %d, want 1", ledger.counts[newsID])
	}
}

func TestRegisterViewDistinctKeys(t *testing.T) {
	ledger := newFakeLedger()
	svc, _ := newTestService(ledger)
	newsID := primitive.NewObjectID()

	for _, keys := range [][]string{
		{UserKey(primitive.NewObjectID())},
		{IPKey("203.0.113.7")},
	} {
		incremented, err := svc.RegisterView(context.Background(), newsID, keys)
		if err != nil {
			t.Fatal(err)
		}
		if !incremented {
			t.Errorf("distinct viewer %v must increment", keys)
		}
	}
	if ledger.counts[newsID] != 2 {
		t.Errorf("counter = %d, want 2", ledger.counts[newsID])
	}
}

func TestRegisterViewWindowExpiry(t *testing.T) {
	ledger := newFakeLedger()
	svc, clock := newTestService(ledger)
	newsID := primitive.NewObjectID()
	keys := []string{UserKey(primitive.NewObjectID())}

	if _, err := svc.RegisterView(context.Background(), newsID, keys); err != nil {
		t.Fatal(err)
	}

	*clock = clock.Add(Window - time.Minute)
	incremented, _ := svc.RegisterView(context.Background(), newsID, keys)
	if incremented {
		t.Error("view just inside the window must not increment")
	}

	*clock = clock.Add(2 * time.Minute)
	incremented, _ = svc.RegisterView(context.Background(), newsID, keys)
	if !incremented {
		t.Error("view past the window must increment again")
	}
	if ledger.counts[newsID] != 2 {
		t.Errorf("counter = %d, want 2", ledger.counts[newsID])
	}
}

func TestRegisterViewFailedTransaction(t *testing.T) {
	ledger := newFakeLedger()
	ledger.fail = true
	svc, _ := newTestService(ledger)
	newsID := primitive.NewObjectID()

	incremented, err := svc.RegisterView(context.Background(), newsID, []string{IPKey("198.51.100.2")})
	if !errs.Is(err, errs.KindTransient) {
		t.Errorf("got %v, want transient error", err)
	}
	if incremented {
		t.Error("failed transaction must report no increment")
	}
	if ledger.counts[newsID] != 0 || len(ledger.entries) != 0 {
		t.Error("failed transaction must leave no partial state")
	}
}

func TestRegisterViewWritesAllKeys(t *testing.T) {
	ledger := newFakeLedger()
	svc, _ := newTestService(ledger)
	newsID := primitive.NewObjectID()
	userKey := UserKey(primitive.NewObjectID())
	ipKey := IPKey("203.0.113.7")

	incremented, err := svc.RegisterView(context.Background(), newsID, []string{userKey, ipKey})
	if err != nil {
		t.Fatal(err)
	}
	if !incremented {
		t.Fatal("first view must increment")
	}
	if ledger.counts[newsID] != 1 {
		t.Errorf("counter = %d, want 1: one view yields one increment even with two keys", ledger.counts[newsID])
	}
	if len(ledger.entries) != 2 {
		t.Errorf("%d ledger entries, want 2: both keys recorded", len(ledger.entries))
	}

	// The authenticated key dedups a later anonymous-looking view from the
	// same identity.
	incremented, _ = svc.RegisterView(context.Background(), newsID, []string{userKey, IPKey("192.0.2.9")})
	if incremented {
		t.Error("same authenticated viewer from a new address must not increment")
	}
}
