package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/hwinventory-backend/api/responses"
	"github.com/angelmondragon/hwinventory-backend/api/validators"
	pkgerrors "github.com/angelmondragon/hwinventory-backend/pkg/errors"
	"github.com/angelmondragon/hwinventory-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/hwinventory-backend/pkg/redis"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayHeader      = "Idempotent-Replay"
	defaultReplayTTL  = 24 * time.Hour
	defaultClaimTTL   = 30 * time.Second
)

// Creating a part allocates an id and creating an order reserves stock, so a
// retried POST must not run twice.
var idempotentRoutes = map[string]struct{}{
	http.MethodPost + " /api/v1/parts":  {},
	http.MethodPost + " /api/v1/orders": {},
}

type IdempotencyOptions struct {
	// TTL is how long a finished response can be replayed.
	TTL time.Duration
	// ClaimTTL bounds how long a crashed request blocks its key.
	ClaimTTL time.Duration
	// RequireKey rejects guarded requests that arrive without a key.
	RequireKey bool
}

// storedResponse is the redis value under an idempotency key. A claim written
// before the handler runs has Done unset.
type storedResponse struct {
	Done        bool   `json:"done"`
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency replays the first response for a repeated Idempotency-Key on the
// guarded routes. Keys are scoped by actor, method and path. 5xx responses are
// not kept so the caller can retry with the same key.
func Idempotency(store pkgredis.IdempotencyStore, opts IdempotencyOptions, logg *logger.Logger) func(http.Handler) http.Handler {
	if opts.TTL <= 0 {
		opts.TTL = defaultReplayTTL
	}
	if opts.ClaimTTL <= 0 {
		opts.ClaimTTL = defaultClaimTTL
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil || !guarded(r.Method, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			fail := func(err error) { responses.WriteError(ctx, logg, w, err) }

			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if clientKey == "" {
				if opts.RequireKey {
					fail(pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, validators.MaxBodyBytes)
			body, err := io.ReadAll(r.Body)
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					fail(pkgerrors.Wrap(pkgerrors.CodeValidation, err, "request body too large").
						WithDetails(map[string]any{"max_bytes": tooLarge.Limit}))
					return
				}
				fail(pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			hash := requestHash(body)
			key := store.IdempotencyKey(scopeOf(r), clientKey)

			claim, _ := json.Marshal(storedResponse{RequestHash: hash})
			claimed, err := store.SetNX(ctx, key, string(claim), opts.ClaimTTL)
			if err != nil {
				fail(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				replay(w, r, store, key, hash, fail)
				return
			}

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			var captured bytes.Buffer
			ww.Tee(&captured)
			next.ServeHTTP(ww, r)

			status := statusOf(ww)
			if status >= http.StatusInternalServerError {
				if err := store.Del(ctx, key); err != nil && logg != nil {
					logg.Error(ctx, "release idempotency claim", err)
				}
				return
			}
			final, _ := json.Marshal(storedResponse{
				Done:        true,
				RequestHash: hash,
				Status:      status,
				ContentType: ww.Header().Get("Content-Type"),
				Body:        captured.Bytes(),
			})
			if err := store.Set(ctx, key, string(final), opts.TTL); err != nil && logg != nil {
				logg.Error(ctx, "store idempotent response", err)
			}
		})
	}
}

func replay(w http.ResponseWriter, r *http.Request, store pkgredis.IdempotencyStore, key, hash string, fail func(error)) {
	raw, err := store.Get(r.Context(), key)
	if errors.Is(err, redis.Nil) {
		fail(pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key just finished, retry"))
		return
	}
	if err != nil {
		fail(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotent response"))
		return
	}
	var prev storedResponse
	if err := json.Unmarshal([]byte(raw), &prev); err != nil {
		fail(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotent response"))
		return
	}
	switch {
	case prev.RequestHash != hash:
		fail(pkgerrors.New(pkgerrors.CodeIdempotency, "Idempotency-Key already used with a different request body"))
	case !prev.Done:
		fail(pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key is still in progress"))
	default:
		if prev.ContentType != "" {
			w.Header().Set("Content-Type", prev.ContentType)
		}
		w.Header().Set(replayHeader, "true")
		w.WriteHeader(prev.Status)
		_, _ = w.Write(prev.Body)
	}
}

func scopeOf(r *http.Request) string {
	return strings.Join([]string{
		strconv.FormatInt(UserIDFromContext(r.Context()), 10),
		r.Method,
		strings.TrimSuffix(r.URL.Path, "/"),
	}, "|")
}

func requestHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func guarded(method, path string) bool {
	_, ok := idempotentRoutes[method+" "+strings.TrimSuffix(path, "/")]
	return ok
}

// routePattern is the matched chi pattern, or the raw path before routing.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
