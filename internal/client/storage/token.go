package storage

import (
	"encoding/json"
	"fmt"

	"github.com/atinyakov/GophTodo/internal/models"
)

// Keys under which the credential and the cached user are stored.
const (
	TokenKey = "authToken"
	UserKey  = "userData"
)

// TokenStore holds the bearer credential and an optional cached user.
// It never inspects the token.
type TokenStore struct {
	ls *LocalStorage
}

// NewTokenStore returns a TokenStore backed by ls.
func NewTokenStore(ls *LocalStorage) *TokenStore {
	return &TokenStore{ls: ls}
}

// Save stores token, replacing any previous credential.
func (s *TokenStore) Save(token string) error {
	return s.ls.SetItem(TokenKey, token)
}

// Get returns the stored credential, if any.
func (s *TokenStore) Get() (string, bool) {
	tok, ok := s.ls.GetItem(TokenKey)
	if !ok || tok == "" {
		return "", false
	}
	return tok, true
}

// Clear removes the credential.
func (s *TokenStore) Clear() error {
	return s.ls.RemoveItem(TokenKey)
}

// SaveUser caches u as JSON.
func (s *TokenStore) SaveUser(u models.User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return s.ls.SetItem(UserKey, string(b))
}

// User returns the cached user. Unparseable data is reported as absent.
func (s *TokenStore) User() (models.User, bool) {
	raw, ok := s.ls.GetItem(UserKey)
	if !ok {
		return models.User{}, false
	}
	var u models.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		s.ls.log.Warn("cached user is corrupt")
		return models.User{}, false
	}
	return u, true
}

// ClearUser removes the cached user.
func (s *TokenStore) ClearUser() error {
	return s.ls.RemoveItem(UserKey)
}
