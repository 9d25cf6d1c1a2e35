// Package session tracks whether the shell is signed in and who the current
// user is. A Manager is created once at startup and shared by the commands.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/GophTodo/internal/models"
	"github.com/atinyakov/GophTodo/internal/token"
)

// State is the authentication state of a Manager.
type State int

const (
	Unauthenticated State = iota
	Verifying
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Verifying:
		return "verifying"
	case Authenticated:
		return "authenticated"
	}
	return "unknown"
}

var (
	// ErrNoIdentity means the credential carries no subject and the
	// server sent no user object.
	ErrNoIdentity = errors.New("session: cannot determine user identity")
	// ErrNoCredential means the server accepted the request but returned
	// no access token.
	ErrNoCredential = errors.New("session: server returned no access token")
)

// Authenticator is the part of the API client the Manager drives.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*models.AuthResponse, error)
	Register(ctx context.Context, name, email, password string) (*models.AuthResponse, error)
	Logout()
	VerifyToken(ctx context.Context) (bool, error)
}

// Credentials is the stored token and cached user.
type Credentials interface {
	Get() (string, bool)
	Clear() error
	SaveUser(u models.User) error
	User() (models.User, bool)
	ClearUser() error
}

// Manager owns the login, registration, logout and verification flows.
type Manager struct {
	auth  Authenticator
	creds Credentials
	log   *zap.Logger

	mu       sync.Mutex
	state    State
	user     *models.User
	onAuth   []func(context.Context, models.User)
	onChange []func(State)
}

// NewManager returns a Manager in the Verifying state. Call Init before use.
func NewManager(auth Authenticator, creds Credentials, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		auth:  auth,
		creds: creds,
		log:   log,
		state: Verifying,
	}
}

// OnAuthenticated registers fn to run after every successful sign-in,
// including one restored by Init.
func (m *Manager) OnAuthenticated(fn func(ctx context.Context, u models.User)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onAuth = append(m.onAuth, fn)
}

// OnChange registers fn to observe state transitions.
func (m *Manager) OnChange(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsAuthenticated reports whether a user is signed in.
func (m *Manager) IsAuthenticated() bool {
	return m.State() == Authenticated
}

// User returns the signed-in user.
func (m *Manager) User() (models.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return models.User{}, false
	}
	return *m.user, true
}

// Init checks the stored credential. A network failure leaves the shell
// signed out but keeps the credential so a later Init can retry.
func (m *Manager) Init(ctx context.Context) error {
	tok, ok := m.creds.Get()
	if !ok {
		m.signOut()
		return nil
	}

	m.setState(Verifying)
	valid, err := m.auth.VerifyToken(ctx)
	if err != nil {
		m.log.Warn("could not verify stored credential", zap.Error(err))
		m.signOut()
		return err
	}
	if !valid {
		m.log.Info("stored credential rejected")
		m.clearCredentials()
		m.signOut()
		return nil
	}

	user, ok := m.creds.User()
	if !ok {
		user, err = identity(tok, nil, models.User{})
		if err != nil {
			m.clearCredentials()
			m.signOut()
			return err
		}
		m.cacheUser(user)
	}

	m.signIn(ctx, user)
	return nil
}

// Login signs in with email and password. Invalid input fails before any
// request is made.
func (m *Manager) Login(ctx context.Context, email, password string) (models.User, error) {
	email = strings.TrimSpace(email)
	if err := (models.LoginRequest{Email: email, Password: password}).Validate(); err != nil {
		return models.User{}, err
	}

	m.setState(Verifying)
	resp, err := m.auth.Login(ctx, email, password)
	if err != nil {
		m.signOut()
		return models.User{}, err
	}
	return m.complete(ctx, resp, models.User{Name: localPart(email), Email: email})
}

// Register creates an account and signs in with it.
func (m *Manager) Register(ctx context.Context, name, email, password string) (models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	req := models.RegisterRequest{Name: name, Email: email, Password: password}
	if err := req.Validate(); err != nil {
		return models.User{}, err
	}

	m.setState(Verifying)
	resp, err := m.auth.Register(ctx, name, email, password)
	if err != nil {
		m.signOut()
		return models.User{}, err
	}
	return m.complete(ctx, resp, models.User{Name: name, Email: email})
}

func (m *Manager) complete(ctx context.Context, resp *models.AuthResponse, fallback models.User) (models.User, error) {
	if resp.AccessToken == "" {
		m.signOut()
		return models.User{}, ErrNoCredential
	}
	user, err := identity(resp.AccessToken, resp.User, fallback)
	if err != nil {
		m.clearCredentials()
		m.signOut()
		return models.User{}, err
	}
	m.cacheUser(user)
	m.signIn(ctx, user)
	return user, nil
}

// Logout forgets the credential. It never fails.
func (m *Manager) Logout() {
	m.auth.Logout()
	m.signOut()
}

// HandleUnauthorized is the API client's 401 callback. The client has
// already cleared the credential.
func (m *Manager) HandleUnauthorized() {
	if m.State() == Authenticated {
		m.log.Info("session expired")
	}
	m.signOut()
}

// identity picks the user object when the server sent one, otherwise
// builds the user from the token claims, filling gaps from fallback.
func identity(tok string, u *models.User, fallback models.User) (models.User, error) {
	if u != nil && u.ID != "" {
		return *u, nil
	}

	claims, ok := token.DecodeClaims(tok)
	if !ok || claims.Subject == "" {
		return models.User{}, ErrNoIdentity
	}
	user := models.User{ID: claims.Subject, Name: claims.Name, Email: claims.Email}
	if user.Name == "" {
		user.Name = fallback.Name
	}
	if user.Email == "" {
		user.Email = fallback.Email
	}
	return user, nil
}

func localPart(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}

func (m *Manager) cacheUser(u models.User) {
	if err := m.creds.SaveUser(u); err != nil {
		m.log.Error("failed to cache user", zap.Error(err))
	}
}

func (m *Manager) clearCredentials() {
	if err := m.creds.Clear(); err != nil {
		m.log.Error("failed to clear token", zap.Error(err))
	}
	if err := m.creds.ClearUser(); err != nil {
		m.log.Error("failed to clear cached user", zap.Error(err))
	}
}

func (m *Manager) signIn(ctx context.Context, u models.User) {
	m.mu.Lock()
	m.user = &u
	hooks := append([]func(context.Context, models.User){}, m.onAuth...)
	m.mu.Unlock()

	m.setState(Authenticated)
	m.log.Info("signed in", zap.String("user_id", u.ID))
	for _, fn := range hooks {
		fn(ctx, u)
	}
}

func (m *Manager) signOut() {
	m.mu.Lock()
	m.user = nil
	m.mu.Unlock()
	m.setState(Unauthenticated)
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	if m.state == s {
		m.mu.Unlock()
		return
	}
	m.state = s
	listeners := append([]func(State){}, m.onChange...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}
