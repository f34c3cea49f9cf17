package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLoggerRecordsRouteAndUser(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	router := chi.NewRouter()
	router.Use(InjectLoggerMiddleware(zap.New(core)))
	router.Use(RequestLoggerMiddleware(nil))
	router.Post("/orders/{orderID}/confirm", func(w http.ResponseWriter, r *http.Request) {
		RecordUserID(r.Context(), "staff-1")
		w.WriteHeader(http.StatusConflict)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders/o-9/confirm", nil))
	require.Equal(t, http.StatusConflict, rec.Code)

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	require.Equal(t, zapcore.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	require.Equal(t, "/orders/{orderID}/confirm", fields["route"])
	require.Equal(t, "/orders/o-9/confirm", fields["path"])
	require.Equal(t, int64(http.StatusConflict), fields["status"])
	require.Equal(t, "staff-1", fields["user_id"])
}

func TestRecoveryMiddlewareAnswers500(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.ErrorLevel)
	handler := RecoveryMiddleware(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestSanitizeDropsControlCharacters(t *testing.T) {
	t.Parallel()

	require.Equal(t, "/orders", SanitizeRoute("/ord\ners\r"))
	require.Equal(t, "/", SanitizeRoute(""))
	require.Len(t, []rune(SanitizeUserID("ñandú-"+strings.Repeat("x", 100))), 64)
}
