// Package admin checks administrator credentials kept in the persistent
// store.
package admin

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"

	"github.com/kozaktomas/face-attendance/internal/store"
)

// Credential is one administrator login.
type Credential struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Credentials reads the credentials collection.
type Credentials struct {
	backend store.Backend
}

// New creates a credential checker.
func New(backend store.Backend) *Credentials {
	return &Credentials{backend: backend}
}

// Seed writes the default credential when the collection is empty and
// reports whether it did.
func (c *Credentials) Seed(ctx context.Context, def Credential) (bool, error) {
	if len(store.Read[Credential](ctx, c.backend, store.Credentials)) > 0 {
		return false, nil
	}
	if def.Username == "" {
		return false, errors.New("default admin username is empty")
	}
	if err := store.Replace(ctx, c.backend, store.Credentials, []Credential{def}); err != nil {
		return false, fmt.Errorf("seeding admin credentials: %w", err)
	}
	log.Printf("warning: seeded default admin credential for %q, change it", def.Username)
	return true, nil
}

// Verify reports whether username and password match a stored credential.
func (c *Credentials) Verify(ctx context.Context, username, password string) bool {
	if username == "" {
		return false
	}
	ok := false
	for _, cred := range store.Read[Credential](ctx, c.backend, store.Credentials) {
		userMatch := subtle.ConstantTimeCompare([]byte(cred.Username), []byte(username)) == 1
		passMatch := subtle.ConstantTimeCompare([]byte(cred.Password), []byte(password)) == 1
		if userMatch && passMatch {
			ok = true
		}
	}
	return ok
}
