package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/hwinventory-backend/api/middleware"
	"github.com/angelmondragon/hwinventory-backend/api/responses"
	"github.com/angelmondragon/hwinventory-backend/api/validators"
	"github.com/angelmondragon/hwinventory-backend/internal/orders"
	"github.com/angelmondragon/hwinventory-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hwinventory-backend/pkg/errors"
	"github.com/angelmondragon/hwinventory-backend/pkg/logger"
)

// OrdersList returns orders with pending ones first, newest date first.
func OrdersList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.NewOrderDTOs(list))
	}
}

func OrdersGet(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		order, err := svc.Get(r.Context(), chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.NewOrderDTO(*order))
	}
}

func OrdersNextID(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		id, err := svc.NextOrderID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"order_id": id})
	}
}

// OrdersCreate places a pending order and reserves its stock.
func OrdersCreate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := orders.CreateOrderInput{
			OrderID:    validators.CleanText(payload.OrderID, 32),
			CategoryID: validators.CleanText(payload.CategoryID, 32),
			Quantity:   payload.Quantity,
			ActorID:    middleware.UserIDFromContext(r.Context()),
		}
		if payload.Date != "" {
			date, err := orders.ParseDate(payload.Date)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date"))
				return
			}
			input.Date = date
		}

		order, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithOrderID(r.Context(), order.OrderID), "order created")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, orders.NewOrderDTO(*order))
	}
}

// OrdersUpdate edits an order or moves it through its lifecycle.
func OrdersUpdate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		var payload updateOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Update(r.Context(), chi.URLParam(r, "orderId"), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			ctx := logg.WithOrderID(r.Context(), order.OrderID)
			logg.Info(logg.WithField(ctx, "status", string(order.Status)), "order updated")
		}
		responses.WriteSuccess(w, orders.NewOrderDTO(*order))
	}
}

// OrdersDelete removes an order, returning stock still held by a pending order.
func OrdersDelete(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		orderID := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "orderId")))
		if err := svc.Delete(r.Context(), orderID, middleware.UserIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithOrderID(r.Context(), orderID), "order deleted")
		}
		responses.WriteSuccess(w, map[string]any{"order_id": orderID, "deleted": true})
	}
}

type createOrderRequest struct {
	OrderID    string `json:"order_id" validate:"omitempty,business_key"`
	CategoryID string `json:"category_id" validate:"required,business_key"`
	Date       string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Quantity   int    `json:"quantity" validate:"gt=0"`
}

type updateOrderRequest struct {
	CategoryID *string `json:"category_id,omitempty" validate:"omitempty,business_key"`
	Date       *string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Quantity   *int    `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	Status     *string `json:"status,omitempty"`
}

func (p updateOrderRequest) toInput(actorID int64) (orders.UpdateOrderInput, error) {
	input := orders.UpdateOrderInput{
		Quantity: p.Quantity,
		ActorID:  actorID,
	}
	if p.CategoryID != nil {
		categoryID := validators.CleanText(*p.CategoryID, 32)
		input.CategoryID = &categoryID
	}
	if p.Date != nil && strings.TrimSpace(*p.Date) != "" {
		date, err := orders.ParseDate(strings.TrimSpace(*p.Date))
		if err != nil {
			return orders.UpdateOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date")
		}
		input.Date = &date
	}
	if p.Status != nil && strings.TrimSpace(*p.Status) != "" {
		status, err := enums.ParseOrderStatus(strings.TrimSpace(*p.Status))
		if err != nil {
			return orders.UpdateOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		input.Status = &status
	}
	return input, nil
}
