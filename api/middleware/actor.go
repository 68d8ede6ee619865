package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/hwinventory-backend/api/responses"
	pkgerrors "github.com/angelmondragon/hwinventory-backend/pkg/errors"
	"github.com/angelmondragon/hwinventory-backend/pkg/logger"
)

const userIDHeader = "X-User-Id"

// Actor resolves the acting user from the X-User-Id header. Identity is issued
// upstream; requests without the header act as defaultID.
func Actor(defaultID int64, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := defaultID
			if raw := strings.TrimSpace(r.Header.Get(userIDHeader)); raw != "" {
				parsed, err := strconv.ParseInt(raw, 10, 64)
				if err != nil || parsed <= 0 {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-User-Id must be a positive integer"))
					return
				}
				userID = parsed
			}

			ctx := WithUserID(r.Context(), userID)
			if logg != nil {
				ctx = logg.WithActor(ctx, userID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
