package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/atinyakov/GophTodo/internal/models"
)

func setupUserMock(t *testing.T) (*PostgresUserRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresUserRepository(db)
	cleanup := func() { db.Close() }
	return repo, mock, cleanup
}

func TestUserExists(t *testing.T) {
	for _, want := range []bool{true, false} {
		repo, mock, cleanup := setupUserMock(t)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`)).
			WithArgs("a@b.com").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(want))

		exists, err := repo.UserExists(context.Background(), "a@b.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if exists != want {
			t.Errorf("UserExists = %v, want %v", exists, want)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		cleanup()
	}
}

func TestCreateUser(t *testing.T) {
	acc := models.Account{
		User:         models.User{ID: "u1", Name: "Ann", Email: "a@b.com"},
		PasswordHash: []byte("hash"),
		CreatedAt:    time.Now(),
	}
	insert := regexp.QuoteMeta(`INSERT INTO users (id, name, email, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)`)

	cases := []struct {
		name    string
		execErr error
		wantErr error
	}{
		{"success", nil, nil},
		{"duplicate email", &pq.Error{Code: "23505"}, ErrEmailTaken},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock, cleanup := setupUserMock(t)
			defer cleanup()

			exp := mock.ExpectExec(insert).
				WithArgs("u1", "Ann", "a@b.com", []byte("hash"), sqlmock.AnyArg())
			if tc.execErr != nil {
				exp.WillReturnError(tc.execErr)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(1, 1))
			}

			err := repo.CreateUser(context.Background(), acc)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("CreateUser error = %v, want %v", err, tc.wantErr)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestCreateUser_OtherError(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO users").WillReturnError(errors.New("db down"))

	err := repo.CreateUser(context.Background(), models.Account{})
	if err == nil || errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestFindByEmail(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, email, password_hash, created_at FROM users WHERE email = $1`)).
		WithArgs("a@b.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "created_at"}).
			AddRow("u1", "Ann", "a@b.com", []byte("hash"), created))

	acc, err := repo.FindByEmail(context.Background(), "a@b.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acc.ID != "u1" || acc.Name != "Ann" || string(acc.PasswordHash) != "hash" || !acc.CreatedAt.Equal(created) {
		t.Errorf("unexpected account: %+v", acc)
	}
}

func TestFindByID_NotFound(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectQuery("FROM users WHERE id = ").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "created_at"}))

	_, err := repo.FindByID(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
