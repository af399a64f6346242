package middleware

import (
	"context"
	"net/http"

	"github.com/ridepool/ridepool/internal/models"
	"github.com/ridepool/ridepool/pkg/utils"
)

// Identity headers set by the upstream gateway after authentication.
const (
	UserIDHeader   = "X-User-ID"
	UserRoleHeader = "X-User-Role"
)

type actorContextKey struct{}

// Identity extracts the authenticated caller from the gateway headers and
// stores it on the request context. Requests without a user id are
// rejected before reaching any handler.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(UserIDHeader)
		if userID == "" {
			utils.Unauthorized(w, "missing identity")
			return
		}

		role := r.Header.Get(UserRoleHeader)
		if role == "" {
			role = models.RolePassenger
		}

		actor := models.Actor{ID: userID, Role: role}
		ctx := context.WithValue(r.Context(), actorContextKey{}, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ActorFrom returns the caller stored by Identity.
func ActorFrom(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(models.Actor)
	return actor, ok
}
