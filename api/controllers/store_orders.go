package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/relaydrop/relaydrop-backend/api/middleware"
	"github.com/relaydrop/relaydrop-backend/api/responses"
	"github.com/relaydrop/relaydrop-backend/api/validators"
	internalorders "github.com/relaydrop/relaydrop-backend/internal/orders"
	"github.com/relaydrop/relaydrop-backend/pkg/enums"
	pkgerrors "github.com/relaydrop/relaydrop-backend/pkg/errors"
	"github.com/relaydrop/relaydrop-backend/pkg/logger"
	"github.com/relaydrop/relaydrop-backend/pkg/pagination"
)

type previewOrderRequest struct {
	DropoffAddress string  `json:"dropoff_address" validate:"required"`
	DeliverBefore  *string `json:"deliver_before,omitempty"`
	DeliverAfter   *string `json:"deliver_after,omitempty"`
}

type createOrderRequest struct {
	RecipientName  string  `json:"recipient_name" validate:"required"`
	RecipientPhone string  `json:"recipient_phone" validate:"required"`
	TagNumber      *string `json:"tag_number,omitempty"`
	DropoffAddress string  `json:"dropoff_address" validate:"required"`
	DeliverBefore  *string `json:"deliver_before,omitempty"`
	DeliverAfter   *string `json:"deliver_after,omitempty"`
	BuzzCode       *string `json:"buzz_code,omitempty"`
	Unit           *string `json:"unit,omitempty"`
	Note           *string `json:"note,omitempty"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// PreviewOrder quotes distance, ETA and pricing without persisting anything.
func PreviewOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var payload previewOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		deliverBefore, err := parseTimeField(payload.DeliverBefore, "deliver_before")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		deliverAfter, err := parseTimeField(payload.DeliverAfter, "deliver_after")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Preview(r.Context(), internalorders.PreviewInput{
			StoreID:        middleware.ActorIDFromContext(r.Context()),
			DropoffAddress: validators.SanitizeString(payload.DropoffAddress, 500),
			DeliverBefore:  deliverBefore,
			DeliverAfter:   deliverAfter,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CreateOrder persists a new delivery order in CREATED.
func CreateOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		deliverBefore, err := parseTimeField(payload.DeliverBefore, "deliver_before")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		deliverAfter, err := parseTimeField(payload.DeliverAfter, "deliver_after")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Create(r.Context(), internalorders.CreateInput{
			StoreID:        middleware.ActorIDFromContext(r.Context()),
			RecipientName:  validators.SanitizeString(payload.RecipientName, 200),
			RecipientPhone: validators.SanitizeString(payload.RecipientPhone, 50),
			TagNumber:      payload.TagNumber,
			DropoffAddress: validators.SanitizeString(payload.DropoffAddress, 500),
			DeliverBefore:  deliverBefore,
			DeliverAfter:   deliverAfter,
			BuzzCode:       payload.BuzzCode,
			Unit:           payload.Unit,
			Note:           payload.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// ListStoreOrders pages through the calling store's orders, newest first.
func ListStoreOrders(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListStoreOrders(r.Context(), internalorders.ListInput{
			ActorID: middleware.ActorIDFromContext(r.Context()),
			Limit:   limit,
			Cursor:  strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// UpdateStoreOrderStatus moves an order to PREPARING or READY_FOR_PICKUP.
func UpdateStoreOrderStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		view, err := svc.StoreUpdateStatus(r.Context(), internalorders.StoreStatusInput{
			OrderID: orderID,
			StoreID: middleware.ActorIDFromContext(r.Context()),
			Target:  target,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// DeleteOrder removes an order that has not yet been offered to drivers.
func DeleteOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteOrder(r.Context(), orderID, middleware.ActorIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"success": true})
	}
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}

func parseTimeField(value *string, field string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	raw := strings.TrimSpace(*value)
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		t, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field).
				WithDetails(map[string]string{field: "must be an RFC3339 timestamp"})
		}
	}
	return &t, nil
}
