package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/centralrepo/centralrepo/internal/model"
	"github.com/centralrepo/centralrepo/internal/repository"
)

var testSecret = []byte("test-secret")

// fakeUserDB serves single-row user lookups for the auth middleware.
type fakeUserDB struct {
	users map[uuid.UUID]model.User
}

func (db *fakeUserDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	id, ok := args[0].(uuid.UUID)
	if !ok {
		return errRow{fmt.Errorf("unexpected arg %#v", args[0])}
	}
	u, ok := db.users[id]
	if !ok {
		return errRow{pgx.ErrNoRows}
	}
	return userRow{u}
}

func (db *fakeUserDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	panic("not used")
}

func (db *fakeUserDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("not used")
}

func (db *fakeUserDB) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	panic("not used")
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

type userRow struct{ u model.User }

func (r userRow) Scan(dest ...any) error {
	*dest[0].(*uuid.UUID) = r.u.ID
	*dest[1].(*string) = r.u.Username
	*dest[2].(*bool) = r.u.IsSuperuser
	*dest[3].(*bool) = r.u.Active
	return nil
}

func signToken(t *testing.T, subject string, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString(testSecret)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func authTestSetup(users ...model.User) (*authenticator, http.Handler) {
	db := &fakeUserDB{users: make(map[uuid.UUID]model.User)}
	for _, u := range users {
		db.users[u.ID] = u
	}
	auth := &authenticator{secret: testSecret, users: repository.NewUserRepo(db)}

	handler := auth.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFrom(r.Context())
		if user == nil {
			http.Error(w, "no user in context", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(user.Username))
	}))
	return auth, handler
}

func TestAuthMiddleware(t *testing.T) {
	alice := model.User{ID: uuid.New(), Username: "alice", Active: true}
	inactive := model.User{ID: uuid.New(), Username: "mallory", Active: false}
	_, handler := authTestSetup(alice, inactive)

	future := time.Now().Add(time.Hour)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "valid token",
			header:     "Bearer " + signToken(t, alice.ID.String(), future),
			wantStatus: http.StatusOK,
			wantBody:   "alice",
		},
		{
			name:       "missing header",
			header:     "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong scheme",
			header:     "Basic Zm9vOmJhcg==",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "garbage token",
			header:     "Bearer not.a.token",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "expired token",
			header:     "Bearer " + signToken(t, alice.ID.String(), time.Now().Add(-time.Hour)),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "subject is not a uuid",
			header:     "Bearer " + signToken(t, "charlie", future),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unknown user",
			header:     "Bearer " + signToken(t, uuid.NewString(), future),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "inactive user",
			header:     "Bearer " + signToken(t, inactive.ID.String(), future),
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/format", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d (body %q)", w.Code, tc.wantStatus, w.Body.String())
			}
			if tc.wantBody != "" && w.Body.String() != tc.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tc.wantBody)
			}
		})
	}
}

func TestAuthMiddleware_RejectsTokenWithoutExpiry(t *testing.T) {
	alice := model.User{ID: uuid.New(), Username: "alice", Active: true}
	_, handler := authTestSetup(alice)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: alice.ID.String(),
	})
	signed, err := token.SignedString(testSecret)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/api/format", nil)
	r.Header.Set("Authorization", "Bearer "+signed)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for token without exp", w.Code)
	}
}

func TestRequireSuperuser(t *testing.T) {
	handler := requireSuperuser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	admin := &model.User{ID: uuid.New(), Username: "root", IsSuperuser: true, Active: true}
	regular := &model.User{ID: uuid.New(), Username: "alice", Active: true}

	tests := []struct {
		name       string
		user       *model.User
		wantStatus int
	}{
		{"superuser passes", admin, http.StatusNoContent},
		{"regular user rejected", regular, http.StatusForbidden},
		{"missing user rejected", nil, http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/format", nil)
			if tc.user != nil {
				r = r.WithContext(withUser(r.Context(), tc.user))
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			if tc.wantStatus == http.StatusForbidden {
				var resp ErrorResponse
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("response is not the error envelope: %v", err)
				}
				if resp.Code != "FORBIDDEN" {
					t.Errorf("code = %q, want FORBIDDEN", resp.Code)
				}
			}
		})
	}
}
