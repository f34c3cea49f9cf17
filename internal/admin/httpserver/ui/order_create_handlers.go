package ui

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	custommw "github.com/T0MGL/0rdefy-sub009/internal/admin/httpserver/middleware"
	"github.com/T0MGL/0rdefy-sub009/internal/admin/orderlist"
	adminorders "github.com/T0MGL/0rdefy-sub009/internal/admin/orders"
	orderstpl "github.com/T0MGL/0rdefy-sub009/internal/admin/templates/orders"
	"github.com/T0MGL/0rdefy-sub009/internal/platform/requestctx"
)

var newOrderFields = []string{
	"name", "phone", "address", "city", "product", "quantity", "unit_price",
	"currency", "carrier_id", "scheduled_for", "pickup", "is_test",
}

// NewOrderForm renders the manual order page.
func (h *Handlers) NewOrderForm(w http.ResponseWriter, r *http.Request) {
	basePath := custommw.BasePathFromContext(r.Context())
	templ.Handler(orderstpl.NewOrderPage(orderstpl.NewOrderPayload(basePath, nil, ""))).ServeHTTP(w, r)
}

// NewOrderSubmit validates the form and creates the order. Validation and API errors
// re-render the form with the submitted values.
func (h *Handlers) NewOrderSubmit(w http.ResponseWriter, r *http.Request) {
	session, _, ok := h.orderSession(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	basePath := custommw.BasePathFromContext(ctx)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "No se pudo leer el formulario.", http.StatusBadRequest)
		return
	}

	values := make(map[string]string, len(newOrderFields))
	for _, field := range newOrderFields {
		values[field] = strings.TrimSpace(r.PostForm.Get(field))
	}

	req, msg := buildCreateRequest(values, h.location)
	if msg != "" {
		h.renderNewOrderForm(w, r, session, orderstpl.NewOrderPayload(basePath, values, msg))
		return
	}

	order, err := session.Controller.Create(ctx, req)
	if err != nil && order.ID == "" {
		requestctx.Logger(ctx).Info("manual order rejected", zap.Error(err))
		h.renderNewOrderForm(w, r, session, orderstpl.NewOrderPayload(basePath, values, adminorders.ErrorMessage(err)))
		return
	}
	requestctx.Logger(ctx).Info("manual order created", zap.String("order_id", order.ID))

	target := consolePath(basePath, "orders")
	if custommw.IsHTMXRequest(ctx) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handlers) renderNewOrderForm(w http.ResponseWriter, r *http.Request, session *orderlist.Session, data orderstpl.NewOrderData) {
	writeTrigger(w, r, session, nil)
	if custommw.IsHTMXRequest(r.Context()) {
		templ.Handler(orderstpl.NewOrderForm(data)).ServeHTTP(w, r)
		return
	}
	templ.Handler(orderstpl.NewOrderPage(data), templ.WithStatus(http.StatusUnprocessableEntity)).ServeHTTP(w, r)
}

// buildCreateRequest converts the form into a create request. It returns a user facing
// message when the form is incomplete.
func buildCreateRequest(values map[string]string, loc *time.Location) (adminorders.CreateRequest, string) {
	if values["name"] == "" || values["phone"] == "" {
		return adminorders.CreateRequest{}, "Completá el nombre y el teléfono del cliente."
	}
	if values["product"] == "" {
		return adminorders.CreateRequest{}, "Falta el producto."
	}
	quantity, err := strconv.Atoi(values["quantity"])
	if err != nil || quantity < 1 {
		return adminorders.CreateRequest{}, "La cantidad debe ser un número mayor a cero."
	}
	price, err := decimal.NewFromString(strings.ReplaceAll(values["unit_price"], " ", ""))
	if err != nil || price.IsNegative() {
		return adminorders.CreateRequest{}, "El precio unitario no es válido."
	}

	req := adminorders.CreateRequest{
		Customer: adminorders.Customer{
			Name:    values["name"],
			Phone:   values["phone"],
			Address: values["address"],
			City:    values["city"],
		},
		LineItems: []adminorders.LineItem{{
			Name:      values["product"],
			Quantity:  quantity,
			UnitPrice: price,
		}},
		CarrierID: values["carrier_id"],
		Pickup:    parseCheckbox(values["pickup"]),
		Currency:  strings.ToUpper(values["currency"]),
		IsTest:    parseCheckbox(values["is_test"]),
	}
	if req.Pickup && req.CarrierID != "" {
		return adminorders.CreateRequest{}, "Un retiro en tienda no lleva transportadora."
	}
	if raw := values["scheduled_for"]; raw != "" {
		day, err := parseDay(raw, loc)
		if err != nil {
			return adminorders.CreateRequest{}, "La fecha de entrega no es válida."
		}
		req.ScheduledFor = day
	}
	return req, ""
}

func parseCheckbox(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "on", "yes":
		return true
	default:
		return false
	}
}
