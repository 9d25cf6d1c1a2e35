// Package models defines the core data structures for users, tasks and the
// request/response payloads exchanged with the task API.
package models

import "time"

// User is the identity record returned by the API or derived from a token.
type User struct {
	// ID is the subject of the user's access token.
	ID string `json:"id"`
	// Name is the display name chosen at registration.
	Name string `json:"name"`
	// Email is the login address.
	Email string `json:"email"`
}

// Account is the server-side user row, including the password hash.
type Account struct {
	User
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Task is a single todo item owned by a user.
type Task struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PendingTask is a task drafted before the user authenticated. Timestamp
// (Unix milliseconds) doubles as its key in the pending buffer.
type PendingTask struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Timestamp   int64  `json:"timestamp"`
}

// TaskCreate is the body of POST /tasks.
type TaskCreate struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

// TaskUpdate is the body of PUT /tasks/{id}. Nil fields are left unchanged.
type TaskUpdate struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// ToggleRequest is the body of PATCH /tasks/{id}/complete. A nil Completed
// flips the current state.
type ToggleRequest struct {
	Completed *bool `json:"completed,omitempty"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by login and registration. User is optional:
// some backends return only the token.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	User        *User  `json:"user,omitempty"`
}

// StatusFilter selects a subset of tasks when listing.
type StatusFilter string

const (
	// StatusAll returns every task.
	StatusAll StatusFilter = "all"
	// StatusPending returns tasks that are not completed.
	StatusPending StatusFilter = "pending"
	// StatusCompleted returns completed tasks.
	StatusCompleted StatusFilter = "completed"
)

// ParseStatusFilter maps user input to a StatusFilter. Empty input means all.
func ParseStatusFilter(s string) (StatusFilter, bool) {
	switch StatusFilter(s) {
	case "", StatusAll:
		return StatusAll, true
	case StatusPending:
		return StatusPending, true
	case StatusCompleted:
		return StatusCompleted, true
	}
	return "", false
}

// Matches reports whether t belongs to the subset selected by f.
func (f StatusFilter) Matches(t Task) bool {
	switch f {
	case StatusPending:
		return !t.Completed
	case StatusCompleted:
		return t.Completed
	default:
		return true
	}
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool { return &b }
