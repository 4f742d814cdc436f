package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"trailwise/internal/common"
	"trailwise/internal/common/security"
	"trailwise/internal/domain/model"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	users   map[string]*model.User
	findErr error
}

func (f *fakeUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if user, ok := f.users[id]; ok {
		return user, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeUserRepo) Create(context.Context, *model.User) error { return nil }
func (f *fakeUserRepo) FindByEmail(context.Context, string) (*model.User, error) {
	return nil, common.ErrNotFound
}
func (f *fakeUserRepo) UpdatePassword(context.Context, string, string, time.Time) error { return nil }
func (f *fakeUserRepo) SetResetToken(context.Context, string, string, time.Time) error  { return nil }
func (f *fakeUserRepo) FindByResetToken(context.Context, string) (*model.User, error) {
	return nil, common.ErrNotFound
}

func newGuardedServer(issuer *security.TokenIssuer, repo *fakeUserRepo, extra ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(jwtauth.Verifier(issuer.JWTAuth()))
	r.Use(Authenticator(repo))
	for _, mw := range extra {
		r.Use(mw)
	}
	r.Get("/protected", func(w http.ResponseWriter, r *http.Request) {
		user, ok := CurrentUser(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(user.ID))
	})
	return r
}

func doRequest(t *testing.T, srv http.Handler, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticator_NoToken(t *testing.T) {
	t.Parallel()

	issuer := security.NewTokenIssuer([]byte("test-secret"), time.Hour)
	srv := newGuardedServer(issuer, &fakeUserRepo{})

	rec := doRequest(t, srv, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "not logged in")
}

func TestAuthenticator_InvalidToken(t *testing.T) {
	t.Parallel()

	issuer := security.NewTokenIssuer([]byte("test-secret"), time.Hour)
	srv := newGuardedServer(issuer, &fakeUserRepo{})

	rec := doRequest(t, srv, "garbage.token.value")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticator_ExpiredToken(t *testing.T) {
	t.Parallel()

	issuer := security.NewTokenIssuer([]byte("test-secret"), -time.Minute)
	user := &model.User{ID: "u1", Role: model.RoleUser}
	srv := newGuardedServer(issuer, &fakeUserRepo{users: map[string]*model.User{"u1": user}})

	token, err := issuer.Issue("u1")
	require.NoError(t, err)

	rec := doRequest(t, srv, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticator_SubjectDeleted(t *testing.T) {
	t.Parallel()

	issuer := security.NewTokenIssuer([]byte("test-secret"), time.Hour)
	srv := newGuardedServer(issuer, &fakeUserRepo{users: map[string]*model.User{}})

	token, err := issuer.Issue("ghost")
	require.NoError(t, err)

	rec := doRequest(t, srv, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "no longer exist")
}

func TestAuthenticator_RepositoryFailure(t *testing.T) {
	t.Parallel()

	issuer := security.NewTokenIssuer([]byte("test-secret"), time.Hour)
	repo := &fakeUserRepo{findErr: errors.New("dial tcp: connection refused")}
	srv := newGuardedServer(issuer, repo)

	token, err := issuer.Issue("u1")
	require.NoError(t, err)

	// A broken subject lookup is not evidence the account is gone; the
	// guard must fail with a 500, not claim the user no longer exists.
	rec := doRequest(t, srv, token)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "no longer exist")
}

func TestAuthenticator_PasswordChangedAfterIssuance(t *testing.T) {
	t.Parallel()

	issuer := security.NewTokenIssuer([]byte("test-secret"), time.Hour)
	changed := time.Now().Add(time.Hour)
	user := &model.User{ID: "u1", Role: model.RoleUser, PasswordChangedAt: &changed}
	srv := newGuardedServer(issuer, &fakeUserRepo{users: map[string]*model.User{"u1": user}})

	token, err := issuer.Issue("u1")
	require.NoError(t, err)

	// Cryptographically valid token, but the subject rotated the password
	// after issuance.
	rec := doRequest(t, srv, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "recently changed password")
}

func TestAuthenticator_Success(t *testing.T) {
	t.Parallel()

	issuer := security.NewTokenIssuer([]byte("test-secret"), time.Hour)
	past := time.Now().Add(-time.Hour)
	user := &model.User{ID: "u1", Role: model.RoleUser, PasswordChangedAt: &past}
	srv := newGuardedServer(issuer, &fakeUserRepo{users: map[string]*model.User{"u1": user}})

	token, err := issuer.Issue("u1")
	require.NoError(t, err)

	rec := doRequest(t, srv, token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", rec.Body.String())
}

func TestRestrictTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		role     string
		allowed  []string
		wantCode int
	}{
		{"admin allowed", model.RoleAdmin, []string{model.RoleAdmin}, http.StatusOK},
		{"user forbidden", model.RoleUser, []string{model.RoleAdmin}, http.StatusForbidden},
		{"lead-guide in multi-role set", model.RoleLeadGuide, []string{model.RoleAdmin, model.RoleLeadGuide}, http.StatusOK},
		{"guide not in multi-role set", model.RoleGuide, []string{model.RoleAdmin, model.RoleLeadGuide}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			issuer := security.NewTokenIssuer([]byte("test-secret"), time.Hour)
			user := &model.User{ID: "u1", Role: tt.role}
			srv := newGuardedServer(issuer,
				&fakeUserRepo{users: map[string]*model.User{"u1": user}},
				RestrictTo(tt.allowed...))

			token, err := issuer.Issue("u1")
			require.NoError(t, err)

			rec := doRequest(t, srv, token)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}
