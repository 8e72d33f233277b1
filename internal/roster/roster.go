// Package roster keeps the registered students in the persistent store.
package roster

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/store"
)

// ErrNotFound is returned when no student has the requested reg no.
var ErrNotFound = errors.New("student not found")

// Student is one registered identity.
type Student struct {
	Name         string `json:"name"`
	RegNo        string `json:"reg_no"`
	Dept         string `json:"dept"`
	Photo        string `json:"photo"`
	RegisteredOn string `json:"registered_on"`
}

// Roster serialises every read-modify-write of the students collection.
type Roster struct {
	mu      sync.Mutex
	backend store.Backend
}

// New creates a roster on top of a store backend.
func New(backend store.Backend) *Roster {
	return &Roster{backend: backend}
}

// List returns all students in stored order.
func (r *Roster) List(ctx context.Context) []Student {
	return store.Read[Student](ctx, r.backend, store.Roster)
}

// Find returns the student with regNo.
func (r *Roster) Find(ctx context.Context, regNo string) (Student, error) {
	for _, s := range r.List(ctx) {
		if s.RegNo == regNo {
			return s, nil
		}
	}
	return Student{}, ErrNotFound
}

// Search returns students whose name, reg no or department contain every
// word of query, ignoring case and diacritics.
func (r *Roster) Search(ctx context.Context, query string) []Student {
	all := r.List(ctx)
	matches := make([]Student, 0, len(all))
	for _, s := range all {
		if facematch.MatchesQuery(query, s.Name, s.RegNo, s.Dept) {
			matches = append(matches, s)
		}
	}
	return matches
}

// Txn is the view of the roster inside Update. Changes are written back
// when the update function returns nil.
type Txn struct {
	students   []Student
	onCommit   []func()
	onRollback []func()
}

// Students returns the current students of the transaction.
func (t *Txn) Students() []Student {
	return slices.Clone(t.students)
}

// Find returns the student with regNo.
func (t *Txn) Find(regNo string) (Student, bool) {
	i := slices.IndexFunc(t.students, func(s Student) bool { return s.RegNo == regNo })
	if i < 0 {
		return Student{}, false
	}
	return t.students[i], true
}

// Add appends a student.
func (t *Txn) Add(s Student) {
	t.students = append(t.students, s)
}

// Remove drops every student with regNo and returns how many were removed.
func (t *Txn) Remove(regNo string) int {
	before := len(t.students)
	t.students = slices.DeleteFunc(t.students, func(s Student) bool { return s.RegNo == regNo })
	return before - len(t.students)
}

// OnCommit registers fn to run after the roster has been written, while
// the roster lock is still held.
func (t *Txn) OnCommit(fn func()) {
	t.onCommit = append(t.onCommit, fn)
}

// OnRollback registers fn to run when the update fails, in reverse
// registration order.
func (t *Txn) OnRollback(fn func()) {
	t.onRollback = append(t.onRollback, fn)
}

// Update runs fn on the current roster under the roster lock and writes
// the result back. When fn or the write fails nothing is written and the
// rollback hooks run; otherwise the commit hooks run.
func (r *Roster) Update(ctx context.Context, fn func(*Txn) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	students, err := store.ReadForUpdate[Student](ctx, r.backend, store.Roster)
	if err != nil {
		return fmt.Errorf("loading roster: %w", err)
	}
	txn := &Txn{students: students}

	if err := fn(txn); err != nil {
		txn.rollback()
		return err
	}
	if err := store.Replace(ctx, r.backend, store.Roster, txn.students); err != nil {
		txn.rollback()
		return fmt.Errorf("saving roster: %w", err)
	}
	for _, hook := range txn.onCommit {
		hook()
	}
	return nil
}

func (t *Txn) rollback() {
	for i := len(t.onRollback) - 1; i >= 0; i-- {
		t.onRollback[i]()
	}
}
