package httpserver

import (
	"errors"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	custommw "github.com/T0MGL/0rdefy-sub009/internal/admin/httpserver/middleware"
	appsession "github.com/T0MGL/0rdefy-sub009/internal/admin/session"
	"github.com/T0MGL/0rdefy-sub009/internal/admin/templates/auth"
	"github.com/T0MGL/0rdefy-sub009/internal/platform/requestctx"
)

// authCookie carries the ID token between page loads. middleware.Auth reads it back.
const authCookie = "Authorization"

// Login page notices keyed by the ?status= or ?reason= query value.
var loginNotices = map[string]string{
	"logged_out":                  "Cerraste sesión.",
	custommw.ReasonTokenExpired:   "Tu sesión expiró. Ingresá de nuevo.",
	custommw.ReasonMissingToken:   "Necesitás ingresar para continuar.",
	custommw.ReasonTokenInvalid:   "Las credenciales no son válidas. Intentá de nuevo.",
	custommw.ReasonStoreForbidden: "Tu cuenta no tiene acceso a esa tienda.",
}

// sessionCloser drops the order list kept for a browser session.
type sessionCloser interface {
	Remove(id string) bool
}

type loginHandlers struct {
	authenticator custommw.Authenticator
	lists         sessionCloser
	base          string
	loginPath     string
}

func newAuthHandlers(authenticator custommw.Authenticator, lists sessionCloser, base, loginPath string) *loginHandlers {
	if authenticator == nil {
		panic("httpserver: login requires an authenticator")
	}
	base = normalizeBasePath(base)
	return &loginHandlers{
		authenticator: authenticator,
		lists:         lists,
		base:          base,
		loginPath:     resolveLoginPath(base, loginPath),
	}
}

// LoginForm renders the sign-in page, or sends signed-in staff straight to their target.
func (h *loginHandlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if staff := sessionStaff(r); staff != nil && !truthy(q.Get("force")) {
		http.Redirect(w, r, h.landing(q.Get("next")), http.StatusFound)
		return
	}

	notice := loginNotices[q.Get("status")]
	if notice == "" {
		notice = loginNotices[q.Get("reason")]
	}
	remember := false
	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		remember = sess.RememberMe()
	}
	h.render(w, r, http.StatusOK, auth.LoginPageData{
		Email:    strings.TrimSpace(q.Get("email")),
		Notice:   notice,
		Remember: remember,
		Next:     h.safeNext(q.Get("next")),
	})
}

// LoginSubmit verifies the submitted ID token, records the operator in the session and sets
// the token cookie.
func (h *loginHandlers) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	logger := requestctx.Logger(r.Context())
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, auth.LoginPageData{Error: "No se pudo enviar el formulario. Intentá de nuevo."})
		return
	}

	form := auth.LoginPageData{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Remember: truthy(r.PostFormValue("remember")),
		Next:     h.safeNext(r.PostFormValue("next")),
	}
	token := strings.TrimSpace(r.PostFormValue("id_token"))
	if token == "" {
		form.Error = "Ingresá tu token de acceso."
		h.render(w, r, http.StatusBadRequest, form)
		return
	}

	user, err := h.authenticator.Authenticate(r, token)
	if err == nil && user == nil {
		err = custommw.ErrUnauthorized
	}
	if err != nil {
		logger.Warn("login rejected", zap.String("email", form.Email), zap.Error(err))
		form.Error = loginFailure(err)
		h.render(w, r, http.StatusUnauthorized, form)
		return
	}
	if user.Email == "" {
		user.Email = form.Email
	}

	var expires time.Time
	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		sess.SetStaff(&appsession.Staff{UID: user.UID, Email: user.Email, Roles: user.Roles, StoreID: user.StoreID})
		sess.SetRememberMe(form.Remember)
		if refresh := strings.TrimSpace(r.PostFormValue("refresh_token")); refresh != "" {
			sess.SetRefreshToken(refresh)
		}
		if form.Remember {
			expires = sess.ExpiresAt()
		}
	}
	if user.Token != "" {
		token = user.Token
	}
	http.SetCookie(w, h.tokenCookie("Bearer "+token, expires, r.TLS != nil))

	logger.Info("login accepted", zap.String("uid", user.UID), zap.String("store_id", user.StoreID))
	h.redirect(w, r, h.landing(form.Next))
}

// Logout forgets the operator, their order list and the token cookie.
func (h *loginHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if sess, ok := custommw.SessionFromContext(ctx); ok {
		if h.lists != nil {
			h.lists.Remove(sess.ID())
		}
		sess.Destroy()
	}
	if user, ok := custommw.UserFromContext(ctx); ok && h.lists != nil {
		h.lists.Remove(user.UID)
	}

	gone := h.tokenCookie("", time.Unix(0, 0), false)
	gone.MaxAge = -1
	http.SetCookie(w, gone)
	h.redirect(w, r, h.loginPath+"?status=logged_out")
}

func (h *loginHandlers) render(w http.ResponseWriter, r *http.Request, status int, data auth.LoginPageData) {
	data.Action = h.loginPath
	data.CSRFToken = custommw.CSRFTokenFromContext(r.Context())
	templ.Handler(auth.LoginPage(data), templ.WithStatus(status)).ServeHTTP(w, r)
}

func (h *loginHandlers) redirect(w http.ResponseWriter, r *http.Request, target string) {
	if custommw.IsHTMXRequest(r.Context()) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *loginHandlers) tokenCookie(value string, expires time.Time, secure bool) *http.Cookie {
	c := &http.Cookie{
		Name:     authCookie,
		Value:    value,
		Path:     h.base,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	if !expires.IsZero() {
		c.Expires = expires.UTC()
		if left := time.Until(expires); left > 0 {
			c.MaxAge = int(left.Round(time.Second).Seconds())
		}
	}
	return c
}

// landing is where a successful login goes: the sanitised next target or the base path.
func (h *loginHandlers) landing(next string) string {
	if target := h.safeNext(next); target != "" {
		return target
	}
	return h.base
}

// safeNext keeps only same-origin targets under the base path that are not the login page.
func (h *loginHandlers) safeNext(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return ""
	}
	p, err := url.PathUnescape(u.Path)
	if err != nil || strings.Contains(p, `\`) {
		return ""
	}
	p = path.Clean("/" + p)
	if strings.HasPrefix(p, "//") || !underBase(p, h.base) || p == h.loginPath {
		return ""
	}
	u.Path, u.RawPath = p, ""
	return u.String()
}

func underBase(p, base string) bool {
	if base == "/" || p == base {
		return true
	}
	return strings.HasPrefix(p, base+"/")
}

func sessionStaff(r *http.Request) *appsession.Staff {
	sess, ok := custommw.SessionFromContext(r.Context())
	if !ok {
		return nil
	}
	if staff := sess.Staff(); staff != nil && staff.UID != "" {
		return staff
	}
	return nil
}

func loginFailure(err error) string {
	var authErr *custommw.AuthError
	if errors.As(err, &authErr) {
		switch authErr.Reason {
		case custommw.ReasonTokenExpired:
			return "Tu sesión expiró. Ingresá de nuevo."
		case custommw.ReasonMissingToken:
			return "Faltan credenciales. Revisá los datos."
		case custommw.ReasonStoreForbidden:
			return "Tu cuenta no tiene acceso a esa tienda."
		}
	}
	if authErr != nil || errors.Is(err, custommw.ErrUnauthorized) {
		return "No pudimos verificar tu identidad. Revisá los datos."
	}
	return "No se pudo ingresar. Intentá más tarde."
}

func truthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "on", "true", "yes":
		return true
	}
	return false
}
