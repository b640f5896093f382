// Package session persists the logged-in user of the messenger client.
package session

import (
	"context"
	"fmt"

	"github.com/zhouzirui/z-messenger/internal/model/auth"
)

// Store holds at most one session per backend origin. Implementations are
// safe for concurrent use.
type Store interface {
	// Get returns the stored session. ok is false when no token is stored.
	Get(ctx context.Context) (s auth.Session, ok bool, err error)
	// Set replaces both the token and the username.
	Set(ctx context.Context, s auth.Session) error
	// Clear removes both entries. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
	Close() error
}

// Open returns the store selected by driver: "pebble" (default) keeps the
// session in a pebble database at path, "memory" forgets it on exit.
func Open(driver, path, origin string) (Store, error) {
	switch driver {
	case "", "pebble":
		return OpenPebble(path, origin)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown session driver %q", driver)
	}
}
