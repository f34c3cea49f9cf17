package orders_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/T0MGL/0rdefy-sub009/internal/admin/orders"
	"github.com/T0MGL/0rdefy-sub009/internal/platform/requestctx"
)

func TestHTTPServiceListEncodesQuery(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/orders", r.URL.Path)
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "Bearer staff-token", r.Header.Get("Authorization"))
		require.Equal(t, "store-42", r.Header.Get(orders.StoreHeader))

		q := r.URL.Query()
		require.Equal(t, "confirmed", q.Get("status"))
		require.Equal(t, "pickup", q.Get("carrier_id"))
		require.Equal(t, "ready", q.Get("scheduled_filter"))
		require.Equal(t, "America/Asuncion", q.Get("timezone"))
		require.Equal(t, "2025-03-01", q.Get("startDate"))
		require.Equal(t, "2025-03-07", q.Get("endDate"))
		require.Equal(t, "50", q.Get("limit"))
		require.Equal(t, "50", q.Get("offset"))
		require.False(t, q.Has("search"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"ord-1","order_number":"#1001","status":"confirmed","total":"150000","currency":"PYG"}],"pagination":{"total":51,"limit":50,"offset":50,"hasMore":false}}`))
	}))
	t.Cleanup(ts.Close)

	svc, err := orders.NewHTTPService(ts.URL+"/api", ts.Client())
	require.NoError(t, err)

	ctx := requestctx.WithStoreID(context.Background(), "store-42")
	result, err := svc.List(ctx, "staff-token", orders.Query{
		StartDate: &start,
		EndDate:   &end,
		Status:    orders.StatusConfirmed,
		Carrier:   orders.CarrierPickup,
		Scheduled: orders.ScheduledReady,
		Timezone:  "America/Asuncion",
		Limit:     50,
		Offset:    50,
	})
	require.NoError(t, err)
	require.Len(t, result.Orders, 1)
	require.Equal(t, "ord-1", result.Orders[0].ID)
	require.Equal(t, "150000", result.Orders[0].Total.String())
	require.Equal(t, orders.Pagination{Total: 51, Limit: 50, Offset: 50, HasMore: false}, result.Pagination)
}

func TestHTTPServiceConfirmSendsPayload(t *testing.T) {
	t.Parallel()

	var payload orders.ConfirmRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/orders/ord-9/confirm", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		defer r.Body.Close()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": "ord-9", "status": "confirmed", "carrier_id": payload.CarrierID},
		})
	}))
	t.Cleanup(ts.Close)

	svc, err := orders.NewHTTPService(ts.URL, ts.Client())
	require.NoError(t, err)

	order, err := svc.Confirm(context.Background(), "tok", "ord-9", orders.ConfirmRequest{CarrierID: "carrier-aex"})
	require.NoError(t, err)
	require.Equal(t, "carrier-aex", payload.CarrierID)
	require.Equal(t, orders.StatusConfirmed, order.Status)
	require.Equal(t, "carrier-aex", order.CarrierID)
}

func TestHTTPServiceEmptyMutationResponse(t *testing.T) {
	t.Parallel()

	for _, body := range []string{"", "null", "{}", `{"data":null}`} {
		body := body
		t.Run("body="+body, func(t *testing.T) {
			t.Parallel()
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, http.MethodPatch, r.Method)
				require.Equal(t, "/orders/ord-1/status", r.URL.Path)
				_, _ = w.Write([]byte(body))
			}))
			t.Cleanup(ts.Close)

			svc, err := orders.NewHTTPService(ts.URL, ts.Client())
			require.NoError(t, err)

			_, err = svc.UpdateStatus(context.Background(), "tok", "ord-1", orders.StatusUpdateRequest{Status: orders.StatusShipped})
			require.ErrorIs(t, err, orders.ErrEmptyResponse)
		})
	}
}

func TestHTTPServiceTransitionRejection(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"invalid_transition","message":"No se puede pasar de Pendiente a Entregado","details":{"from":"pending","to":"delivered"}}`))
	}))
	t.Cleanup(ts.Close)

	svc, err := orders.NewHTTPService(ts.URL, ts.Client())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), "tok", "ord-1", orders.StatusUpdateRequest{Status: orders.StatusDelivered})
	require.Error(t, err)
	require.True(t, errors.Is(err, orders.ErrInvalidTransition))

	var apiErr *orders.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	require.Equal(t, "invalid_transition", apiErr.Code)

	from, to, ok := orders.TransitionDetail(err)
	require.True(t, ok)
	require.Equal(t, orders.StatusPending, from)
	require.Equal(t, orders.StatusDelivered, to)
	require.Equal(t, "No se puede pasar de Pendiente a Entregado", orders.ErrorMessage(err))
}

func TestHTTPServiceDeletePermanent(t *testing.T) {
	t.Parallel()

	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/orders/ord-7", r.URL.Path)
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(ts.Close)

	svc, err := orders.NewHTTPService(ts.URL, ts.Client())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "tok", "ord-7", true))
	require.Equal(t, "permanent=true", gotQuery)

	require.NoError(t, svc.Delete(context.Background(), "tok", "ord-7", false))
	require.Empty(t, gotQuery)
}

func TestHTTPServiceNotFound(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(ts.Close)

	svc, err := orders.NewHTTPService(ts.URL, ts.Client())
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "tok", "ghost")
	require.ErrorIs(t, err, orders.ErrOrderNotFound)
}

func TestHTTPServiceBulkPrintDispatch(t *testing.T) {
	t.Parallel()

	var body struct {
		OrderIDs []string `json:"order_ids"`
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/orders/bulk-print", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		defer r.Body.Close()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"order_id":"a","success":true,"order":{"id":"a","status":"shipped"}},{"order_id":"b","success":false,"error":"carrier rejected"}]}`))
	}))
	t.Cleanup(ts.Close)

	svc, err := orders.NewHTTPService(ts.URL, ts.Client())
	require.NoError(t, err)

	result, err := svc.BulkPrintDispatch(context.Background(), "tok", []string{"a", "b"})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, body.OrderIDs)
	require.Len(t, result.Succeeded(), 1)
	require.Equal(t, orders.StatusShipped, result.Succeeded()[0].Order.Status)
	failed := result.Failed()
	require.Len(t, failed, 1)
	require.Equal(t, "b", failed[0].OrderID)
	require.Equal(t, "carrier rejected", failed[0].Error)
}

func TestNewHTTPServiceRequiresBaseURL(t *testing.T) {
	t.Parallel()

	_, err := orders.NewHTTPService("  ", nil)
	require.Error(t, err)
}
