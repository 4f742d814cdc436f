package middleware

import (
	"context"
	"errors"
	"net/http"
	"trailwise/internal/common"
	"trailwise/internal/common/security"
	"trailwise/internal/domain/model"
	"trailwise/internal/domain/repository"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const currentUserCtxKey contextKey = "currentUser"

// Authenticator is the session guard for protected routes. It runs after the
// router-level jwtauth.Verifier and walks the full chain: token present →
// signature/expiry valid → subject still exists → password not changed since
// issuance. Every failure maps to the same 401 kind so a caller cannot tell
// a bad token from a deleted account.
func Authenticator(userRepo repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, _, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				common.RespondWithError(w, http.StatusUnauthorized, "You are not logged in! Please log in to get access.")
				return
			}

			userID, err := security.SubjectFromToken(token)
			if err != nil {
				common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims")
				return
			}

			// A token can outlive its account. Re-resolving the subject on
			// every request closes that window. Only a confirmed missing
			// subject is a 401; a failing lookup is an internal error, not
			// proof the account is gone.
			user, err := userRepo.FindByID(r.Context(), userID)
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					common.RespondWithError(w, http.StatusUnauthorized, "The user belonging to this token does no longer exist.")
					return
				}
				common.RespondWithError(w, http.StatusInternalServerError, common.ErrInternalServer.Error())
				return
			}

			// Stolen tokens die the moment the owner rotates the password.
			if user.PasswordChangedAfter(token.IssuedAt()) {
				common.RespondWithError(w, http.StatusUnauthorized, "User recently changed password! Please log in again.")
				return
			}

			ctx := context.WithValue(r.Context(), currentUserCtxKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RestrictTo authorizes the request only when the authenticated identity
// carries one of the allowed roles. Pure set membership, no I/O; must run
// after Authenticator.
func RestrictTo(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := CurrentUser(r.Context())
			if !ok {
				common.RespondWithError(w, http.StatusUnauthorized, "You are not logged in! Please log in to get access.")
				return
			}
			if !allowed[user.Role] {
				common.RespondWithError(w, http.StatusForbidden, common.ErrForbidden.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CurrentUser returns the identity attached by Authenticator.
func CurrentUser(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(currentUserCtxKey).(*model.User)
	return user, ok
}
