package middleware

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/T0MGL/0rdefy-sub009/internal/platform/requestctx"

	appsession "github.com/T0MGL/0rdefy-sub009/internal/admin/session"
)

type sessionKey struct{}

// SessionStore is the cookie session manager as seen by the middleware.
type SessionStore interface {
	Load(*http.Request) (*appsession.Session, error)
	New() *appsession.Session
	Save(http.ResponseWriter, *appsession.Session) error
	Destroy(http.ResponseWriter)
}

// Session loads the browser session into the request context and writes it back with the
// response. Expired or unreadable sessions are replaced by a fresh one.
func Session(store SessionStore) func(http.Handler) http.Handler {
	if store == nil {
		panic("middleware: session store is required")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := requestctx.Logger(r.Context())
			sess := openSession(w, r, store, logger)

			sw := &sessionWriter{ResponseWriter: w, save: func() {
				if err := store.Save(w, sess); err != nil {
					logger.Error("session save failed", zap.String("session_id", sess.ID()), zap.Error(err))
				}
			}}
			next.ServeHTTP(sw, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
			sw.commit()
		})
	}
}

func openSession(w http.ResponseWriter, r *http.Request, store SessionStore, logger *zap.Logger) *appsession.Session {
	sess, err := store.Load(r)
	switch {
	case errors.Is(err, appsession.ErrExpired):
		logger.Debug("session expired")
		store.Destroy(w)
	case err != nil:
		logger.Warn("session load failed", zap.Error(err))
	case sess != nil:
		return sess
	}
	return store.New()
}

// sessionWriter persists the session right before the response headers go out, so the
// cookie is still part of the response.
type sessionWriter struct {
	http.ResponseWriter
	save      func()
	committed bool
}

func (w *sessionWriter) commit() {
	if w.committed {
		return
	}
	w.committed = true
	w.save()
}

func (w *sessionWriter) WriteHeader(status int) {
	w.commit()
	w.ResponseWriter.WriteHeader(status)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.commit()
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) Flush() {
	w.commit()
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// SessionFromContext returns the session loaded by Session.
func SessionFromContext(ctx context.Context) (*appsession.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(*appsession.Session)
	return sess, ok && sess != nil
}
