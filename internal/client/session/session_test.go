package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/GophTodo/internal/client/api"
	"github.com/atinyakov/GophTodo/internal/client/storage"
	"github.com/atinyakov/GophTodo/internal/models"
)

func jwtLike(payload string) string {
	return "h." + base64.RawURLEncoding.EncodeToString([]byte(payload)) + ".s"
}

// fakeAuth is a scripted Authenticator that stores tokens like the real
// client does.
type fakeAuth struct {
	creds *storage.TokenStore

	loginResp *models.AuthResponse
	loginErr  error
	valid     bool
	verifyErr error

	loginCalls  int
	verifyCalls int
}

func (f *fakeAuth) Login(_ context.Context, _, _ string) (*models.AuthResponse, error) {
	f.loginCalls++
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	if f.loginResp.AccessToken != "" {
		_ = f.creds.Save(f.loginResp.AccessToken)
	}
	return f.loginResp, nil
}

func (f *fakeAuth) Register(ctx context.Context, _, email, password string) (*models.AuthResponse, error) {
	return f.Login(ctx, email, password)
}

func (f *fakeAuth) Logout() {
	_ = f.creds.Clear()
	_ = f.creds.ClearUser()
}

func (f *fakeAuth) VerifyToken(context.Context) (bool, error) {
	f.verifyCalls++
	return f.valid, f.verifyErr
}

func newCreds(t *testing.T) *storage.TokenStore {
	t.Helper()
	ls := storage.NewLocalStorage(filepath.Join(t.TempDir(), "todo_storage.json"), nil)
	return storage.NewTokenStore(ls)
}

func TestManager_LoginScenario(t *testing.T) {
	tok := jwtLike(`{"sub":"42","exp":` + fmt.Sprint(time.Now().Add(time.Hour).Unix()) + `}`)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"`+tok+`"}`)
	}))
	defer srv.Close()

	creds := newCreds(t)
	client, err := api.New(api.Options{BaseURL: srv.URL, Tokens: creds})
	require.NoError(t, err)
	m := NewManager(client, creds, nil)
	assert.Equal(t, Verifying, m.State())

	u, err := m.Login(context.Background(), "a@b.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, Authenticated, m.State())
	assert.Equal(t, models.User{ID: "42", Name: "a", Email: "a@b.com"}, u)

	stored, ok := creds.Get()
	require.True(t, ok)
	assert.Equal(t, tok, stored)
	cached, ok := creds.User()
	require.True(t, ok)
	assert.Equal(t, u, cached)
}

func TestManager_LoginPrefersServerUser(t *testing.T) {
	creds := newCreds(t)
	server := &models.User{ID: "u1", Name: "Ann", Email: "ann@b.com"}
	auth := &fakeAuth{creds: creds, loginResp: &models.AuthResponse{
		AccessToken: jwtLike(`{"sub":"other"}`),
		User:        server,
	}}
	m := NewManager(auth, creds, nil)

	u, err := m.Login(context.Background(), "ann@b.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, *server, u)
}

func TestManager_LoginValidation(t *testing.T) {
	creds := newCreds(t)
	auth := &fakeAuth{creds: creds}
	m := NewManager(auth, creds, nil)

	tests := []struct {
		email, password, want string
	}{
		{"", "secret123", "Email is required"},
		{"  ", "secret123", "Email is required"},
		{"a@b.com", "", "Password is required"},
	}
	for _, tt := range tests {
		_, err := m.Login(context.Background(), tt.email, tt.password)
		var ve *models.ValidationError
		require.True(t, errors.As(err, &ve), "got %v", err)
		assert.Equal(t, tt.want, ve.Message)
	}
	assert.Zero(t, auth.loginCalls)

	_, err := m.Register(context.Background(), "Ann", "a@b.com", "short")
	var ve *models.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "Password must be at least 8 characters", ve.Message)
	assert.Zero(t, auth.loginCalls)
}

func TestManager_LoginFailure(t *testing.T) {
	creds := newCreds(t)
	auth := &fakeAuth{creds: creds, loginErr: &api.Error{StatusCode: 401, Detail: "Invalid email or password"}}
	m := NewManager(auth, creds, nil)

	var states []State
	m.OnChange(func(s State) { states = append(states, s) })

	_, err := m.Login(context.Background(), "a@b.com", "wrongpass")
	require.Error(t, err)
	assert.Equal(t, Unauthenticated, m.State())
	assert.Equal(t, []State{Unauthenticated}, states, "Verifying to Unauthenticated")
	_, ok := m.User()
	assert.False(t, ok)
}

func TestManager_LoginWithoutIdentity(t *testing.T) {
	creds := newCreds(t)
	auth := &fakeAuth{creds: creds, loginResp: &models.AuthResponse{AccessToken: "opaque"}}
	m := NewManager(auth, creds, nil)

	_, err := m.Login(context.Background(), "a@b.com", "secret123")
	assert.ErrorIs(t, err, ErrNoIdentity)
	assert.Equal(t, Unauthenticated, m.State())
	_, ok := creds.Get()
	assert.False(t, ok, "unusable credential is dropped")

	auth.loginResp = &models.AuthResponse{}
	_, err = m.Login(context.Background(), "a@b.com", "secret123")
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestManager_RegisterFallsBackToSubmittedName(t *testing.T) {
	creds := newCreds(t)
	auth := &fakeAuth{creds: creds, loginResp: &models.AuthResponse{AccessToken: jwtLike(`{"sub":"7"}`)}}
	m := NewManager(auth, creds, nil)

	u, err := m.Register(context.Background(), " Ann ", "ann@b.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, models.User{ID: "7", Name: "Ann", Email: "ann@b.com"}, u)
}

func TestManager_Init(t *testing.T) {
	valid := jwtLike(`{"sub":"42","name":"Ann","email":"a@b.com"}`)

	tests := []struct {
		name       string
		token      string
		cached     *models.User
		valid      bool
		verifyErr  error
		wantState  State
		wantErr    bool
		wantToken  bool
		wantUser   models.User
		wantVerify int
	}{
		{name: "no credential", wantState: Unauthenticated},
		{name: "valid from claims", token: valid, valid: true, wantState: Authenticated, wantToken: true,
			wantUser: models.User{ID: "42", Name: "Ann", Email: "a@b.com"}, wantVerify: 1},
		{name: "valid from cache", token: valid, valid: true, cached: &models.User{ID: "42", Name: "Cached"},
			wantState: Authenticated, wantToken: true, wantUser: models.User{ID: "42", Name: "Cached"}, wantVerify: 1},
		{name: "rejected", token: valid, valid: false, cached: &models.User{ID: "42"}, wantState: Unauthenticated, wantVerify: 1},
		{name: "network failure keeps credential", token: valid, verifyErr: &api.NetworkError{Op: "POST /auth/verify", Err: errors.New("refused")},
			wantState: Unauthenticated, wantErr: true, wantToken: true, wantVerify: 1},
		{name: "no identity", token: "opaque", valid: true, wantState: Unauthenticated, wantErr: true, wantVerify: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds := newCreds(t)
			if tt.token != "" {
				require.NoError(t, creds.Save(tt.token))
			}
			if tt.cached != nil {
				require.NoError(t, creds.SaveUser(*tt.cached))
			}
			auth := &fakeAuth{creds: creds, valid: tt.valid, verifyErr: tt.verifyErr}
			m := NewManager(auth, creds, nil)

			err := m.Init(context.Background())
			assert.Equal(t, tt.wantErr, err != nil, "err = %v", err)
			assert.Equal(t, tt.wantState, m.State())
			assert.Equal(t, tt.wantVerify, auth.verifyCalls)
			_, has := creds.Get()
			assert.Equal(t, tt.wantToken, has)

			u, ok := m.User()
			assert.Equal(t, tt.wantState == Authenticated, ok)
			if ok {
				assert.Equal(t, tt.wantUser, u)
			}
		})
	}
}

func TestManager_OnAuthenticatedAndLogout(t *testing.T) {
	creds := newCreds(t)
	auth := &fakeAuth{creds: creds, loginResp: &models.AuthResponse{AccessToken: jwtLike(`{"sub":"42"}`)}}
	m := NewManager(auth, creds, nil)

	var hooked []models.User
	m.OnAuthenticated(func(_ context.Context, u models.User) {
		assert.Equal(t, Authenticated, m.State(), "hooks run after the transition")
		hooked = append(hooked, u)
	})

	_, err := m.Login(context.Background(), "a@b.com", "secret123")
	require.NoError(t, err)
	require.Len(t, hooked, 1)
	assert.Equal(t, "42", hooked[0].ID)

	m.Logout()
	assert.Equal(t, Unauthenticated, m.State())
	_, ok := creds.Get()
	assert.False(t, ok)
	_, ok = creds.User()
	assert.False(t, ok)

	m.Logout()
	assert.Equal(t, Unauthenticated, m.State(), "logout is idempotent")
}

func TestManager_UnauthorizedResponseSignsOut(t *testing.T) {
	tok := jwtLike(`{"sub":"42"}`)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			_, _ = io.WriteString(w, `{"access_token":"`+tok+`"}`)
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Token expired"}`)
		}
	}))
	defer srv.Close()

	creds := newCreds(t)
	client, err := api.New(api.Options{BaseURL: srv.URL, Tokens: creds})
	require.NoError(t, err)
	m := NewManager(client, creds, nil)
	client.SetOnUnauthorized(m.HandleUnauthorized)

	_, err = m.Login(context.Background(), "a@b.com", "secret123")
	require.NoError(t, err)
	require.True(t, m.IsAuthenticated())

	_, err = client.ListTasks(context.Background(), models.StatusAll)
	assert.True(t, api.IsUnauthorized(err))
	assert.False(t, m.IsAuthenticated())
	_, ok := m.User()
	assert.False(t, ok)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "verifying", Verifying.String())
	assert.Equal(t, "unknown", State(9).String())
}
