package ui

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	custommw "github.com/T0MGL/0rdefy-sub009/internal/admin/httpserver/middleware"
	"github.com/T0MGL/0rdefy-sub009/internal/admin/notifications"
	"github.com/T0MGL/0rdefy-sub009/internal/admin/orderlist"
	adminorders "github.com/T0MGL/0rdefy-sub009/internal/admin/orders"
	"github.com/T0MGL/0rdefy-sub009/internal/platform/requestctx"
)

// LabelsReadyEvent is the client event carrying the download URL of a printed label sheet.
const LabelsReadyEvent = "labels:ready"

// orderAction runs a single order mutation and re-renders the table. Failures were already
// turned into toasts by the controller, except for orders that left the view.
func (h *Handlers) orderAction(w http.ResponseWriter, r *http.Request, action string, run func(session *orderlist.Session, orderID string) error) {
	session, user, ok := h.orderSession(w, r)
	if !ok {
		return
	}
	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		http.Error(w, "Falta el pedido.", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "No se pudo leer el formulario.", http.StatusBadRequest)
		return
	}

	if err := run(session, orderID); err != nil {
		if errors.Is(err, orderlist.ErrNotInView) {
			notifyNotInView(session, action)
		}
		requestctx.Logger(r.Context()).Info("order action failed",
			zap.String("action", action),
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}
	h.renderTable(w, r, session, user, nil)
}

// OrderConfirm confirms an order, optionally assigning a carrier.
func (h *Handlers) OrderConfirm(w http.ResponseWriter, r *http.Request) {
	h.orderAction(w, r, "Confirmar pedido", func(session *orderlist.Session, orderID string) error {
		_, err := session.Controller.Confirm(r.Context(), orderID,
			strings.TrimSpace(r.PostForm.Get("carrier_id")),
			strings.TrimSpace(r.PostForm.Get("note")))
		return err
	})
}

// OrderReject cancels an order that has not been dispatched.
func (h *Handlers) OrderReject(w http.ResponseWriter, r *http.Request) {
	h.orderAction(w, r, "Rechazar pedido", func(session *orderlist.Session, orderID string) error {
		_, err := session.Controller.Reject(r.Context(), orderID, strings.TrimSpace(r.PostForm.Get("reason")))
		return err
	})
}

// OrderStatus moves an order to the submitted status.
func (h *Handlers) OrderStatus(w http.ResponseWriter, r *http.Request) {
	h.orderAction(w, r, "Cambiar estado", func(session *orderlist.Session, orderID string) error {
		status, err := adminorders.ParseStatus(r.PostForm.Get("status"))
		if err != nil {
			session.Toasts.Notify(notifications.Toast{
				Tone:    notifications.ToneDanger,
				Title:   "Cambiar estado",
				Message: "Estado desconocido.",
				Action:  "Cambiar estado",
			})
			return err
		}
		_, err = session.Controller.UpdateStatus(r.Context(), orderID, status, strings.TrimSpace(r.PostForm.Get("note")))
		return err
	})
}

// OrderContact records that the customer was contacted.
func (h *Handlers) OrderContact(w http.ResponseWriter, r *http.Request) {
	h.orderAction(w, r, "Contactar cliente", func(session *orderlist.Session, orderID string) error {
		_, err := session.Controller.MarkContacted(r.Context(), orderID)
		return err
	})
}

// OrderRestore clears a soft delete.
func (h *Handlers) OrderRestore(w http.ResponseWriter, r *http.Request) {
	h.orderAction(w, r, "Restaurar pedido", func(session *orderlist.Session, orderID string) error {
		_, err := session.Controller.Restore(r.Context(), orderID)
		return err
	})
}

// OrderMarkTest flags or unflags a test order.
func (h *Handlers) OrderMarkTest(w http.ResponseWriter, r *http.Request) {
	h.orderAction(w, r, "Marcar prueba", func(session *orderlist.Session, orderID string) error {
		isTest := true
		if raw := strings.TrimSpace(r.PostForm.Get("is_test")); raw != "" {
			if parsed, err := strconv.ParseBool(raw); err == nil {
				isTest = parsed
			}
		}
		_, err := session.Controller.MarkTest(r.Context(), orderID, isTest)
		return err
	})
}

// OrderDelete deletes an order according to the caller's roles.
func (h *Handlers) OrderDelete(w http.ResponseWriter, r *http.Request) {
	h.orderAction(w, r, "Eliminar pedido", func(session *orderlist.Session, orderID string) error {
		return session.Controller.Delete(r.Context(), session.Controller.Actor(), orderID)
	})
}

// OrdersSelection toggles one order, selects every printable order or clears the selection.
func (h *Handlers) OrdersSelection(w http.ResponseWriter, r *http.Request) {
	session, user, ok := h.orderSession(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "No se pudo leer el formulario.", http.StatusBadRequest)
		return
	}

	switch op := strings.ToLower(strings.TrimSpace(r.PostForm.Get("op"))); op {
	case "toggle":
		err := session.Controller.ToggleSelection(strings.TrimSpace(r.PostForm.Get("id")))
		switch {
		case errors.Is(err, adminorders.ErrMissingDeliveryToken):
			session.Toasts.Notify(notifications.Toast{
				Tone:    notifications.ToneWarning,
				Title:   "No se puede seleccionar",
				Message: "El pedido todavía no tiene código de entrega.",
				Action:  "Seleccionar pedido",
			})
		case errors.Is(err, orderlist.ErrNotInView):
			notifyNotInView(session, "Seleccionar pedido")
		}
	case "all":
		session.Controller.SelectAll()
	case "clear":
		session.Controller.ClearSelection()
	default:
		http.Error(w, "Operación de selección desconocida.", http.StatusBadRequest)
		return
	}
	h.renderTable(w, r, session, user, nil)
}

// OrdersPrint renders the label sheet for the selection, marks the orders dispatched and
// hands the sheet URL to the client.
func (h *Handlers) OrdersPrint(w http.ResponseWriter, r *http.Request) {
	session, user, ok := h.orderSession(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	outcome, err := session.Controller.BulkPrint(ctx)
	if err != nil {
		requestctx.Logger(ctx).Info("bulk print failed", zap.Error(err))
		h.renderTable(w, r, session, user, nil)
		return
	}

	outcome.Artifact.Owner = labelOwner(user)
	h.labels.Put(outcome.Artifact)
	requestctx.Logger(ctx).Info("label sheet generated",
		zap.String("artifact_id", outcome.Artifact.ID),
		zap.Int("printed", len(outcome.Printed)),
		zap.Int("failed", len(outcome.Failed)),
	)
	basePath := custommw.BasePathFromContext(ctx)
	events := map[string]any{
		LabelsReadyEvent: map[string]string{
			"url":      consolePath(basePath, "orders", "labels", outcome.Artifact.ID),
			"filename": outcome.Artifact.Filename,
		},
	}
	h.renderTable(w, r, session, user, events)
}

// OrderLabels serves a generated label sheet to the operator who printed it.
func (h *Handlers) OrderLabels(w http.ResponseWriter, r *http.Request) {
	user, _ := custommw.UserFromContext(r.Context())
	artifactID := strings.TrimSpace(chi.URLParam(r, "artifactID"))
	artifact, ok := h.labels.Owned(artifactID, labelOwner(user))
	if !ok {
		http.Error(w, "Las etiquetas ya no están disponibles. Imprimí de nuevo.", http.StatusNotFound)
		return
	}
	contentType := artifact.ContentType
	if contentType == "" {
		contentType = "text/html; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", artifact.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Body)))
	if _, err := w.Write(artifact.Body); err != nil {
		requestctx.Logger(r.Context()).Debug("write label sheet failed", zap.Error(err))
	}
}

func labelOwner(user *custommw.User) string {
	if user == nil || user.UID == "" {
		return ""
	}
	return user.StoreID + "/" + user.UID
}
