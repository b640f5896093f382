package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/pebble/v2"

	"github.com/zhouzirui/z-messenger/internal/model/auth"
)

const (
	tokenKey    = "token"
	usernameKey = "username"
)

// PebbleStore keeps the session in a pebble database. Keys are prefixed
// with the backend origin so one database can hold sessions for several
// servers.
type PebbleStore struct {
	db     *pebble.DB
	origin string
}

// OpenPebble opens (or creates) the database at dir.
func OpenPebble(dir, origin string) (*PebbleStore, error) {
	if dir == "" {
		return nil, errors.New("session path is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	return &PebbleStore{db: db, origin: origin}, nil
}

func (s *PebbleStore) key(name string) []byte {
	return []byte(s.origin + "\x00" + name)
}

func (s *PebbleStore) get(name string) (string, error) {
	val, closer, err := s.db.Get(s.key(name))
	if errors.Is(err, pebble.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer closer.Close()
	return string(val), nil
}

func (s *PebbleStore) Get(_ context.Context) (auth.Session, bool, error) {
	token, err := s.get(tokenKey)
	if err != nil {
		return auth.Session{}, false, fmt.Errorf("read token: %w", err)
	}
	username, err := s.get(usernameKey)
	if err != nil {
		return auth.Session{}, false, fmt.Errorf("read username: %w", err)
	}
	sess := auth.Session{Token: token, Username: username}
	return sess, sess.Valid(), nil
}

func (s *PebbleStore) Set(_ context.Context, sess auth.Session) error {
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(s.key(tokenKey), []byte(sess.Token), nil); err != nil {
		return err
	}
	if err := b.Set(s.key(usernameKey), []byte(sess.Username), nil); err != nil {
		return err
	}
	return b.Commit(pebble.Sync)
}

func (s *PebbleStore) Clear(_ context.Context) error {
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Delete(s.key(tokenKey), nil); err != nil {
		return err
	}
	if err := b.Delete(s.key(usernameKey), nil); err != nil {
		return err
	}
	return b.Commit(pebble.Sync)
}

func (s *PebbleStore) Close() error {
	return s.db.Close()
}
