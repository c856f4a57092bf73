// Package views implements deduplicated view counting for news articles.
// A viewer increments an article's counter at most once per rolling
// 24-hour window; the ledger insert and the counter increment commit in
// one storage transaction.
package views

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taiga-shiokawa/miyakobook/src/errs"
)

// Window is the rolling dedup window.
const Window = 24 * time.Hour

// UserKey is the viewer key for an authenticated identity. It takes
// precedence over the network-address key.
func UserKey(id primitive.ObjectID) string { return "user_" + id.Hex() }

// IPKey is the fallback viewer key for unauthenticated viewers.
func IPKey(addr string) string { return "ip_" + addr }

// Ledger is the persistence surface for the dedup ledger and the counter.
type Ledger interface {
	// Seen reports whether a ledger entry exists for (newsID, key) with a
	// timestamp at or after since.
	Seen(ctx context.Context, newsID primitive.ObjectID, key string, since time.Time) (bool, error)

	// Record appends one ledger entry per key and increments the article's
	// view counter by one, all in a single all-or-nothing transaction.
	Record(ctx context.Context, newsID primitive.ObjectID, keys []string, at time.Time) error
}

type Service struct {
	ledger Ledger
	now    func() time.Time
}

func NewService(ledger Ledger) *Service {
	return &Service{ledger: ledger, now: time.Now}
}

// RegisterView counts one view for the article unless the viewer already
// counted one inside the window. keys must be ordered preferred-first
// (authenticated key before the address fallback); the dedup lookup uses
// the preferred key, while every key is written to the ledger on an
// increment. Returns whether the counter was incremented.
func (s *Service) RegisterView(ctx context.Context, newsID primitive.ObjectID, keys []string) (bool, error) {
	if len(keys) == 0 {
		return false, errs.Validation("A viewer key is required")
	}

	now := s.now()
	seen, err := s.ledger.Seen(ctx, newsID, keys[0], now.Add(-Window))
	if err != nil {
		return false, err
	}
	if seen {
		return false, nil
	}

	// Under-counting is the safe failure mode: a transaction that cannot
	// commit reports no increment.
	if err := s.ledger.Record(ctx, newsID, keys, now); err != nil {
		return false, err
	}
	return true, nil
}
