package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. If you use a plain string like
// context.WithValue(ctx, "userID", id), ANY package that knows the string "userID"
// can read or shadow your value. Using a package-private type prevents collisions:
// only THIS package can create a key of type contextKey, so only this package
// can read or write userID values in the context.
type contextKey string

const userIDKey contextKey = "userID"

// DefaultHeader is the request header the gate reads the token from, and
// the response header register/login write it to.
const DefaultHeader = "Authorization"

// Rejection reasons. These go to logs and the rejection counter only,
// never into a response.
const (
	ReasonMissing        = "missing"
	ReasonInvalid        = "invalid"
	ReasonUnknownSubject = "unknown_subject"
)

// The gate writes its own bodies rather than importing the handler package.
// They match handler.writeError byte for byte (json.Encoder appends "\n").
const (
	unauthorizedBody = `{"error":"unauthorized","message":"Unauthorized"}` + "\n"
	internalBody     = `{"error":"internal_error","message":"An internal error occurred"}` + "\n"
)

// GateOptions configures RequireAuth. The zero value is usable.
type GateOptions struct {
	// Header names the request header carrying the token.
	// Empty means DefaultHeader.
	Header string

	// Logger receives one debug line per rejection. Nil means slog.Default().
	Logger *slog.Logger

	// Rejections, when set, is incremented with the reason label on every
	// rejection. Build it with NewRejectionCounter.
	Rejections *prometheus.CounterVec
}

// NewRejectionCounter registers notes_auth_rejections_total on reg.
//
// Pass a dedicated registry, not prometheus.DefaultRegisterer, so tests can
// build as many servers as they like without "duplicate metrics collector"
// panics.
func NewRejectionCounter(reg prometheus.Registerer) *prometheus.CounterVec {
	return promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Name: "notes_auth_rejections_total",
		Help: "Requests rejected by the authorization gate, by reason.",
	}, []string{"reason"})
}

// RequireAuth is the authorization gate for protected routes.
//
// STATE MACHINE (per request, strictly in this order, no retries):
//
//	no token in header          → 401
//	token fails Validate        → 401
//	subject doesn't resolve     → 401
//	resolver's store fails      → 500
//	resolved                    → userID into context → next handler
//
// Every 401 has the same body. The client can't tell "no header" from
// "forged token" from "deleted account"; that's what stops probing. The
// reason is still recorded, at debug level and in the rejection counter.
//
// MIDDLEWARE PATTERN IN GO:
// A middleware is a function that takes an http.Handler and returns a new
// http.Handler. The new handler "wraps" the original:
//
//	func Middleware(next http.Handler) http.Handler {
//	    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	        // ... do stuff before the handler ...
//	        next.ServeHTTP(w, r)
//	        // ... do stuff after the handler ...
//	    })
//	}
//
// On rejection we simply don't call next.ServeHTTP, so no downstream
// handler runs and nothing touches the note store.
func RequireAuth(tokens *TokenService, resolver *Resolver, opts GateOptions) func(http.Handler) http.Handler {
	header := opts.Header
	if header == "" {
		header = DefaultHeader
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	reject := func(w http.ResponseWriter, r *http.Request, reason string, err error) {
		attrs := []any{
			slog.String("reason", reason),
			slog.String("path", r.URL.Path),
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		logger.Debug("request rejected by auth gate", attrs...)

		if opts.Rejections != nil {
			opts.Rejections.WithLabelValues(reason).Inc()
		}
		writeRaw(w, http.StatusUnauthorized, unauthorizedBody)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokenFromHeader(r.Header.Get(header))
			if raw == "" {
				reject(w, r, ReasonMissing, nil)
				return
			}

			subject, err := tokens.Validate(raw)
			if err != nil {
				reject(w, r, ReasonInvalid, err)
				return
			}

			userID, err := resolver.Resolve(r.Context(), subject)
			if err != nil {
				if errors.Is(err, ErrIdentityNotFound) {
					reject(w, r, ReasonUnknownSubject, err)
					return
				}
				logger.Error("auth gate: identity lookup failed",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				writeRaw(w, http.StatusInternalServerError, internalBody)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// UserIDFromContext retrieves the authenticated user's ID from the request context.
//
// Returns ("", false) if no identity was attached, i.e. the route isn't
// behind RequireAuth. Handlers behind the gate can rely on ok being true.
//
// Usage in handlers:
//
//	userID, ok := auth.UserIDFromContext(r.Context())
//	if !ok {
//	    // not behind the gate
//	}
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// WithUserID returns a copy of ctx carrying userID. RequireAuth is the only
// production caller; handler tests use it to skip the token round trip.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// tokenFromHeader accepts either the raw token (what register/login hand
// out) or the conventional "Bearer <token>" form.
func tokenFromHeader(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "bearer") {
		return ""
	}
	if len(v) > 7 && strings.EqualFold(v[:7], "bearer ") {
		v = strings.TrimSpace(v[7:])
	}
	return v
}

func writeRaw(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
