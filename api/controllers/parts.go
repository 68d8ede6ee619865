package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/hwinventory-backend/api/middleware"
	"github.com/angelmondragon/hwinventory-backend/api/responses"
	"github.com/angelmondragon/hwinventory-backend/api/validators"
	"github.com/angelmondragon/hwinventory-backend/internal/parts"
	"github.com/angelmondragon/hwinventory-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hwinventory-backend/pkg/errors"
	"github.com/angelmondragon/hwinventory-backend/pkg/logger"
)

const maxTextLen = 255

// PartsList returns every part ordered by category id.
func PartsList(svc parts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "part service unavailable"))
			return
		}
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, parts.NewPartDTOs(list))
	}
}

// PartsGet returns a single part by category id.
func PartsGet(svc parts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "part service unavailable"))
			return
		}
		part, err := svc.Get(r.Context(), chi.URLParam(r, "categoryId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, parts.NewPartDTO(*part))
	}
}

// PartsNextID previews the id the next part in a category would receive.
func PartsNextID(svc parts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "part service unavailable"))
			return
		}
		category, err := enums.ParsePartCategory(strings.TrimSpace(r.URL.Query().Get("category")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
			return
		}
		id, err := svc.NextCategoryID(r.Context(), category)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"category_id": id})
	}
}

// PartsCreate adds a part to the inventory.
func PartsCreate(svc parts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "part service unavailable"))
			return
		}

		var payload createPartRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		part, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithPartID(r.Context(), part.CategoryID), "part created")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, parts.NewPartDTO(*part))
	}
}

// PartsUpdate edits a part; omitted fields keep their stored values.
func PartsUpdate(svc parts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "part service unavailable"))
			return
		}

		var payload updatePartRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		part, err := svc.Update(r.Context(), chi.URLParam(r, "categoryId"), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithPartID(r.Context(), part.CategoryID), "part updated")
		}
		responses.WriteSuccess(w, parts.NewPartDTO(*part))
	}
}

// PartsDelete removes a part that no order references.
func PartsDelete(svc parts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "part service unavailable"))
			return
		}
		categoryID := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "categoryId")))
		if err := svc.Delete(r.Context(), categoryID, middleware.UserIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithPartID(r.Context(), categoryID), "part deleted")
		}
		responses.WriteSuccess(w, map[string]any{"category_id": categoryID, "deleted": true})
	}
}

type createPartRequest struct {
	CategoryID     string          `json:"category_id" validate:"omitempty,business_key"`
	Name           string          `json:"name" validate:"required"`
	Brand          string          `json:"brand" validate:"required"`
	Category       string          `json:"category" validate:"required"`
	Price          decimal.Decimal `json:"price"`
	Quantity       int             `json:"quantity" validate:"gte=0"`
	AlertThreshold int             `json:"alert_threshold" validate:"gte=0"`
	Status         string          `json:"status,omitempty"`
}

func (p createPartRequest) toInput(actorID int64) (parts.CreatePartInput, error) {
	category, err := enums.ParsePartCategory(strings.TrimSpace(p.Category))
	if err != nil {
		return parts.CreatePartInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
	}
	var status enums.StockStatus
	if raw := strings.TrimSpace(p.Status); raw != "" {
		status, err = enums.ParseStockStatus(raw)
		if err != nil {
			return parts.CreatePartInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
	}
	return parts.CreatePartInput{
		CategoryID:     validators.CleanText(p.CategoryID, 32),
		Name:           validators.CleanText(p.Name, maxTextLen),
		Brand:          validators.CleanText(p.Brand, maxTextLen),
		Category:       category,
		Price:          p.Price,
		Quantity:       p.Quantity,
		AlertThreshold: p.AlertThreshold,
		Status:         status,
		ActorID:        actorID,
	}, nil
}

type updatePartRequest struct {
	Name           *string          `json:"name,omitempty"`
	Brand          *string          `json:"brand,omitempty"`
	Category       *string          `json:"category,omitempty"`
	Price          *decimal.Decimal `json:"price,omitempty"`
	Quantity       *int             `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	AlertThreshold *int             `json:"alert_threshold,omitempty" validate:"omitempty,gte=0"`
	Status         *string          `json:"status,omitempty"`
}

func (p updatePartRequest) toInput(actorID int64) (parts.UpdatePartInput, error) {
	input := parts.UpdatePartInput{
		Name:           sanitizeOptional(p.Name),
		Brand:          sanitizeOptional(p.Brand),
		Price:          p.Price,
		Quantity:       p.Quantity,
		AlertThreshold: p.AlertThreshold,
		ActorID:        actorID,
	}
	if p.Category != nil && strings.TrimSpace(*p.Category) != "" {
		category, err := enums.ParsePartCategory(strings.TrimSpace(*p.Category))
		if err != nil {
			return parts.UpdatePartInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
		}
		input.Category = &category
	}
	if p.Status != nil && strings.TrimSpace(*p.Status) != "" {
		status, err := enums.ParseStockStatus(strings.TrimSpace(*p.Status))
		if err != nil {
			return parts.UpdatePartInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		input.Status = &status
	}
	return input, nil
}

func sanitizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	clean := validators.CleanText(*value, maxTextLen)
	return &clean
}
