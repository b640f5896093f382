// Package app is the session-gated chat client: it owns the login state and
// drives a View from the backend's auth and chat endpoints.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/z-messenger/internal/client/api"
	"github.com/zhouzirui/z-messenger/internal/client/session"
	"github.com/zhouzirui/z-messenger/internal/model/auth"
	"github.com/zhouzirui/z-messenger/internal/model/chat"
)

var (
	// ErrBusy is returned when the same operation is already in flight.
	ErrBusy = errors.New("operation already in progress")
	// ErrNoSession is returned by operations that need a logged-in user.
	ErrNoSession = errors.New("not logged in")
)

// Page is a navigation target.
type Page string

const (
	PageLanding Page = "/index.html"
	PageChats   Page = "/chats.html"
)

// State is the UI state decided by session presence.
type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// API is the subset of the backend the controller needs.
type API interface {
	Register(ctx context.Context, creds auth.Credentials) error
	Login(ctx context.Context, creds auth.Credentials) (auth.TokenResponse, error)
	ListChats(ctx context.Context, token string) ([]chat.Summary, error)
}

// View renders the two mutually exclusive sections and user notices.
type View interface {
	ShowAuth()
	ShowChats()
	// RenderChats replaces the chat list with items, in order.
	RenderChats(items []chat.Summary)
	Notify(msg string)
	Navigate(page Page)
}

// App coordinates the session store, the backend and the view.
type App struct {
	api     API
	store   session.Store
	view    View
	pending [opCount]atomic.Bool
}

type op int

const (
	opInitialize op = iota
	opRegister
	opLogin
	opFetch
	opCount
)

func New(client API, store session.Store, view View) *App {
	return &App{api: client, store: store, view: view}
}

func (a *App) acquire(o op) bool {
	return a.pending[o].CompareAndSwap(false, true)
}

func (a *App) release(o op) {
	a.pending[o].Store(false)
}

// Session returns the stored session, treating read failures as absent.
func (a *App) Session(ctx context.Context) (auth.Session, bool) {
	sess, ok, err := a.store.Get(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("[app] read session failed, treating as logged out")
		return auth.Session{}, false
	}
	return sess, ok
}

// Initialize shows the view matching the stored session. With a session the
// chat list is fetched as well; a fetch failure is reported but the returned
// state is the one the view ends in.
func (a *App) Initialize(ctx context.Context) (State, error) {
	if !a.acquire(opInitialize) {
		return Unauthenticated, ErrBusy
	}
	defer a.release(opInitialize)

	if _, ok := a.Session(ctx); !ok {
		a.view.ShowAuth()
		return Unauthenticated, nil
	}

	a.view.ShowChats()
	err := a.FetchAndRenderChats(ctx)
	if errors.Is(err, api.ErrUnauthorized) {
		return Unauthenticated, err
	}
	return Authenticated, err
}

// Register creates the account and logs in with the same credentials.
func (a *App) Register(ctx context.Context, username, password string) error {
	if !a.acquire(opRegister) {
		return ErrBusy
	}
	defer a.release(opRegister)

	creds := auth.Credentials{Username: username, Password: password}
	if err := a.api.Register(ctx, creds); err != nil {
		a.fail(err)
		return fmt.Errorf("register: %w", err)
	}
	a.view.Notify("Registration successful!")
	log.Info().Str("username", username).Msg("[app] registered")

	if !a.acquire(opLogin) {
		a.view.Notify("Error: another login is in progress, log in again once it finishes")
		return fmt.Errorf("login after register: %w", ErrBusy)
	}
	defer a.release(opLogin)
	return a.login(ctx, creds)
}

// Login stores the issued token and moves to the chat page.
func (a *App) Login(ctx context.Context, username, password string) error {
	if !a.acquire(opLogin) {
		return ErrBusy
	}
	defer a.release(opLogin)
	return a.login(ctx, auth.Credentials{Username: username, Password: password})
}

func (a *App) login(ctx context.Context, creds auth.Credentials) error {
	token, err := a.api.Login(ctx, creds)
	if err != nil {
		a.fail(err)
		return fmt.Errorf("login: %w", err)
	}
	if err := a.store.Set(ctx, auth.Session{Token: token.AccessToken, Username: creds.Username}); err != nil {
		a.fail(err)
		return fmt.Errorf("save session: %w", err)
	}
	log.Info().Str("username", creds.Username).Msg("[app] logged in")
	a.view.Navigate(PageChats)
	return nil
}

// Logout forgets the session and returns to the landing page. It never
// talks to the backend.
func (a *App) Logout(ctx context.Context) error {
	if err := a.store.Clear(ctx); err != nil {
		log.Error().Err(err).Msg("[app] clear session failed")
	}
	a.view.Navigate(PageLanding)
	return nil
}

// FetchAndRenderChats replaces the rendered chat list with the backend's.
// A 401 drops the stale session and switches back to the auth view.
func (a *App) FetchAndRenderChats(ctx context.Context) error {
	if !a.acquire(opFetch) {
		return ErrBusy
	}
	defer a.release(opFetch)

	sess, ok := a.Session(ctx)
	if !ok {
		return ErrNoSession
	}

	items, err := a.api.ListChats(ctx, sess.Token)
	if errors.Is(err, api.ErrUnauthorized) {
		if clearErr := a.store.Clear(ctx); clearErr != nil {
			log.Error().Err(clearErr).Msg("[app] clear session failed")
		}
		a.view.ShowAuth()
		a.view.Notify("Session expired, please log in again.")
		return fmt.Errorf("fetch chats: %w", err)
	}
	if err != nil {
		a.fail(err)
		return fmt.Errorf("fetch chats: %w", err)
	}

	a.view.RenderChats(items)
	return nil
}

func (a *App) fail(err error) {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		a.view.Notify("Error: " + apiErr.Detail)
		return
	}
	a.view.Notify("Error: " + err.Error())
}
