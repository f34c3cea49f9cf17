package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	firebaseauth "firebase.google.com/go/v4/auth"

	"github.com/T0MGL/0rdefy-sub009/internal/admin/rbac"
)

// StoreHeader lets staff working for several stores pick the one a request acts for.
const StoreHeader = "X-Store-ID"

var (
	// ErrTokenExpired is returned when the Firebase token has expired.
	ErrTokenExpired = errors.New("firebase token expired")
	// ErrStoreNotAllowed is returned when the requested store is not among the token's stores.
	ErrStoreNotAllowed = errors.New("store not granted to this account")
)

// FirebaseTokenVerifier is the part of the Firebase Admin auth client the console needs.
type FirebaseTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// FirebaseAuthenticator turns Firebase ID tokens into order desk staff. Custom claims carry
// the staff roles ("role" or "roles") and the stores they may operate ("store_id" or
// "stores").
type FirebaseAuthenticator struct {
	verifier FirebaseTokenVerifier
}

// NewFirebaseAuthenticator constructs an Authenticator backed by the provided verifier.
func NewFirebaseAuthenticator(verifier FirebaseTokenVerifier) *FirebaseAuthenticator {
	if verifier == nil {
		panic("firebase token verifier is required")
	}
	return &FirebaseAuthenticator{verifier: verifier}
}

// Authenticate verifies token and resolves the store the request is scoped to.
func (f *FirebaseAuthenticator) Authenticate(r *http.Request, token string) (*User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, NewAuthError(ReasonMissingToken, ErrUnauthorized)
	}

	verified, err := f.verifier.VerifyIDToken(r.Context(), token)
	if err != nil {
		if firebaseauth.IsIDTokenExpired(err) || errors.Is(err, ErrTokenExpired) {
			return nil, NewAuthError(ReasonTokenExpired, err)
		}
		return nil, NewAuthError(ReasonTokenInvalid, err)
	}

	c := claims(verified.Claims)
	store, err := activeStore(r, c.strings("store_id", "storeId", "stores"))
	if err != nil {
		return nil, NewAuthError(ReasonStoreForbidden, err)
	}

	roles := rbac.NormaliseRoles(c.strings("role", "roles"))
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	return &User{
		UID:     verified.UID,
		Email:   c.first("email"),
		Roles:   names,
		Token:   token,
		StoreID: store,
	}, nil
}

// activeStore honours StoreHeader when the account holds that store and falls back to the
// first granted store otherwise.
func activeStore(r *http.Request, granted []string) (string, error) {
	requested := strings.TrimSpace(r.Header.Get(StoreHeader))
	if requested == "" {
		if len(granted) == 0 {
			return "", nil
		}
		return granted[0], nil
	}
	for _, store := range granted {
		if store == requested {
			return store, nil
		}
	}
	return "", ErrStoreNotAllowed
}

type claims map[string]any

func (c claims) first(keys ...string) string {
	for _, key := range keys {
		if s, ok := c[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// strings flattens string, list and {name: true} claim shapes, keeping first-seen order.
func (c claims) strings(keys ...string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, key := range keys {
		switch v := c[key].(type) {
		case string:
			add(v)
		case []string:
			for _, item := range v {
				add(item)
			}
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					add(s)
				}
			}
		case map[string]any:
			for name, enabled := range v {
				if b, ok := enabled.(bool); ok && b {
					add(name)
				}
			}
		}
	}
	return out
}
