// Package ledger records daily attendance. A student is marked at most
// once per calendar day.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/store"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Record is one attendance entry. Date and Time are local wall-clock
// values.
type Record struct {
	Name  string `json:"name"`
	RegNo string `json:"reg_no"`
	Date  string `json:"date"`
	Time  string `json:"time"`
}

// Outcome is the result of TryMark.
type Outcome int

const (
	Marked Outcome = iota + 1
	AlreadyMarked
)

func (o Outcome) String() string {
	switch o {
	case Marked:
		return "marked"
	case AlreadyMarked:
		return "already_marked"
	default:
		return "unknown"
	}
}

// Ledger guards the attendance collection with a single mutex held across
// read, duplicate check and write.
type Ledger struct {
	mu      sync.Mutex
	backend store.Backend
	now     func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates a ledger on top of a store backend.
func New(backend store.Backend, opts ...Option) *Ledger {
	l := &Ledger{backend: backend, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Today returns the current date in DateLayout.
func (l *Ledger) Today() string {
	return l.now().Format(DateLayout)
}

// TryMark records attendance of regNo for today unless it already has a
// record for today. It returns the new record, or the existing one with
// AlreadyMarked.
func (l *Ledger) TryMark(ctx context.Context, regNo, name string) (Outcome, Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	today := now.Format(DateLayout)

	records, err := store.ReadForUpdate[Record](ctx, l.backend, store.Ledger)
	if err != nil {
		return 0, Record{}, fmt.Errorf("loading attendance: %w", err)
	}
	for _, r := range records {
		if r.RegNo == regNo && r.Date == today {
			return AlreadyMarked, r, nil
		}
	}

	rec := Record{
		Name:  name,
		RegNo: regNo,
		Date:  today,
		Time:  now.Format(TimeLayout),
	}
	if err := store.Replace(ctx, l.backend, store.Ledger, append(records, rec)); err != nil {
		return 0, Record{}, fmt.Errorf("saving attendance: %w", err)
	}
	return Marked, rec, nil
}

// List returns every record in insertion order.
func (l *Ledger) List(ctx context.Context) []Record {
	return store.Read[Record](ctx, l.backend, store.Ledger)
}

// Reset clears the ledger and returns how many records were dropped.
func (l *Ledger) Reset(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := store.ReadForUpdate[Record](ctx, l.backend, store.Ledger)
	if err != nil {
		return 0, fmt.Errorf("loading attendance: %w", err)
	}
	if err := store.Replace(ctx, l.backend, store.Ledger, []Record{}); err != nil {
		return 0, fmt.Errorf("resetting attendance: %w", err)
	}
	return len(records), nil
}
