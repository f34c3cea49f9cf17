package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	appsession "github.com/T0MGL/0rdefy-sub009/internal/admin/session"
	"github.com/T0MGL/0rdefy-sub009/internal/platform/observability"
	"github.com/T0MGL/0rdefy-sub009/internal/platform/requestctx"
)

type authContextKey struct{}

// User is the authenticated staff member acting on one store.
type User struct {
	UID     string
	Email   string
	Roles   []string
	Token   string
	StoreID string
}

// Authenticator resolves a bearer token into a User.
type Authenticator interface {
	Authenticate(r *http.Request, token string) (*User, error)
}

// ErrUnauthorized is returned when authentication fails.
var ErrUnauthorized = errors.New("unauthorized")

const (
	// ReasonMissingToken: no credentials on the request.
	ReasonMissingToken = "missing_token"
	// ReasonTokenInvalid: the token did not verify.
	ReasonTokenInvalid = "token_invalid"
	// ReasonTokenExpired: the token verified but expired; the client may refresh it.
	ReasonTokenExpired = "token_expired"
	// ReasonStoreForbidden: the requested store is not granted to the account.
	ReasonStoreForbidden = "store_forbidden"
)

// AuthError carries the reason an authentication attempt failed.
type AuthError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError constructs an AuthError with the provided reason.
func NewAuthError(reason string, err error) error {
	return &AuthError{Reason: reason, Err: err}
}

// tokenCookies lists the cookies that may carry the ID token, in lookup order.
var tokenCookies = []string{"Authorization", "__session", "idToken"}

// Auth requires an authenticated staff member. The user is attached to the context, its
// store scope to requestctx, and its identity to the session. Failures redirect to
// loginPath, or answer 401 with htmx instructions.
func Auth(authenticator Authenticator, loginPath string) func(http.Handler) http.Handler {
	if authenticator == nil {
		authenticator = DefaultAuthenticator()
	}
	if loginPath == "" {
		loginPath = "/login"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := requestToken(r)
			if token == "" {
				rejectRequest(w, r, loginPath, ReasonMissingToken, nil)
				return
			}

			user, err := authenticator.Authenticate(r, token)
			if err != nil || user == nil {
				reason := ReasonTokenInvalid
				var authErr *AuthError
				if errors.As(err, &authErr) && authErr.Reason != "" {
					reason = authErr.Reason
				}
				if err == nil {
					err = ErrUnauthorized
				}
				rejectRequest(w, r, loginPath, reason, err)
				return
			}

			if sess, ok := SessionFromContext(ctx); ok {
				sess.SetStaff(&appsession.Staff{
					UID:     user.UID,
					Email:   user.Email,
					Roles:   user.Roles,
					StoreID: user.StoreID,
				})
			}
			observability.RecordUserID(ctx, user.UID)
			next.ServeHTTP(w, r.WithContext(ContextWithUser(ctx, user)))
		})
	}
}

// ContextWithUser attaches the user and its store scope to ctx.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	ctx = context.WithValue(ctx, authContextKey{}, user)
	if user != nil {
		ctx = requestctx.WithStoreID(ctx, user.StoreID)
	}
	return ctx
}

// UserFromContext retrieves the authenticated user if present.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(authContextKey{}).(*User)
	return user, ok && user != nil
}

// requestToken reads the bearer token from the Authorization header or a token cookie.
func requestToken(r *http.Request) string {
	if token, ok := stripBearer(r.Header.Get("Authorization")); ok {
		return token
	}
	for _, name := range tokenCookies {
		c, err := r.Cookie(name)
		if err != nil {
			continue
		}
		value := strings.TrimSpace(c.Value)
		if token, ok := stripBearer(value); ok {
			return token
		}
		if value != "" {
			return value
		}
	}
	return ""
}

func stripBearer(value string) (string, bool) {
	const prefix = "bearer "
	if len(value) < len(prefix) || !strings.EqualFold(value[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(value[len(prefix):])
	return token, token != ""
}

func rejectRequest(w http.ResponseWriter, r *http.Request, loginPath, reason string, err error) {
	logger := requestctx.Logger(r.Context())
	if err != nil {
		logger.Warn("auth failure", zap.String("reason", reason), zap.Error(err))
	} else {
		logger.Info("auth failure", zap.String("reason", reason))
	}
	if sess, ok := SessionFromContext(r.Context()); ok {
		sess.Destroy()
	}

	target := loginPath
	if reason == ReasonTokenExpired || reason == ReasonStoreForbidden {
		if u, perr := url.Parse(loginPath); perr == nil {
			q := u.Query()
			q.Set("reason", reason)
			u.RawQuery = q.Encode()
			target = u.String()
		}
	}

	if IsHTMXRequest(r.Context()) {
		if reason == ReasonTokenExpired {
			w.Header().Set("HX-Refresh", "true")
		} else {
			w.Header().Set("HX-Redirect", target)
		}
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// DefaultAuthenticator is the development authenticator. It accepts tokens of the form
// "uid[:role,role][@store]" without verification; a bare uid is an admin of store "local".
func DefaultAuthenticator() Authenticator {
	return devAuthenticator{}
}

type devAuthenticator struct{}

func (devAuthenticator) Authenticate(_ *http.Request, token string) (*User, error) {
	raw := strings.TrimSpace(token)
	if raw == "" {
		return nil, NewAuthError(ReasonMissingToken, ErrUnauthorized)
	}

	store := "local"
	if at := strings.LastIndex(raw, "@"); at >= 0 {
		store = strings.TrimSpace(raw[at+1:])
		raw = raw[:at]
	}
	uid, rolesPart, _ := strings.Cut(raw, ":")
	uid = strings.TrimSpace(uid)
	if uid == "" || store == "" {
		return nil, NewAuthError(ReasonTokenInvalid, ErrUnauthorized)
	}

	roles := []string{"admin"}
	if rolesPart != "" {
		roles = roles[:0]
		for _, role := range strings.Split(rolesPart, ",") {
			if role = strings.TrimSpace(role); role != "" {
				roles = append(roles, role)
			}
		}
	}
	return &User{UID: uid, Roles: roles, Token: token, StoreID: store}, nil
}
