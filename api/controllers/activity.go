package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/hwinventory-backend/api/middleware"
	"github.com/angelmondragon/hwinventory-backend/api/responses"
	"github.com/angelmondragon/hwinventory-backend/api/validators"
	"github.com/angelmondragon/hwinventory-backend/internal/activity"
	"github.com/angelmondragon/hwinventory-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hwinventory-backend/pkg/errors"
	"github.com/angelmondragon/hwinventory-backend/pkg/logger"
)

const (
	defaultActivityLimit = 100
	maxActivityLimit     = 1000

	resultLimitHeader     = "X-Result-Limit"
	resultTruncatedHeader = "X-Result-Truncated"
)

// ActivityList returns ledger entries newest first. Supports from, to, action,
// category_id, order_id and limit query parameters. The applied limit and
// whether older entries were cut off are reported in X-Result-Limit and
// X-Result-Truncated.
func ActivityList(svc activity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "activity service unavailable"))
			return
		}

		filter, err := activityFilterFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// One extra row tells a full page apart from a cut one.
		limit := filter.Limit
		filter.Limit = limit + 1
		entries, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		truncated := len(entries) > limit
		if truncated {
			entries = entries[:limit]
		}
		w.Header().Set(resultLimitHeader, strconv.Itoa(limit))
		w.Header().Set(resultTruncatedHeader, strconv.FormatBool(truncated))
		responses.WriteSuccess(w, activity.NewEntryDTOs(entries))
	}
}

// ActivityAppend records a manual ledger entry.
func ActivityAppend(svc activity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "activity service unavailable"))
			return
		}

		var payload appendActivityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		action, err := enums.ParseActivityAction(strings.TrimSpace(payload.ActionType))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid action_type"))
			return
		}

		input := activity.AppendInput{
			PartName:   validators.CleanText(payload.PartName, maxTextLen),
			CategoryID: validators.CleanText(payload.CategoryID, 32),
			ActionType: action,
			Details:    strings.TrimSpace(payload.Details),
			UserID:     middleware.UserIDFromContext(r.Context()),
			OrderID:    payload.OrderID,
		}
		entry, err := svc.Append(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, activity.NewEntryDTO(*entry))
	}
}

type appendActivityRequest struct {
	PartName   string  `json:"part_name" validate:"required"`
	CategoryID string  `json:"category_id" validate:"required,business_key"`
	ActionType string  `json:"action_type" validate:"required"`
	Details    string  `json:"details"`
	OrderID    *string `json:"order_id,omitempty"`
}

func activityFilterFromQuery(r *http.Request) (activity.Filter, error) {
	from, err := validators.ParseQueryDate(r, "from")
	if err != nil {
		return activity.Filter{}, err
	}
	to, err := validators.ParseQueryDate(r, "to")
	if err != nil {
		return activity.Filter{}, err
	}
	limit, err := validators.ParseQueryInt(r, "limit", defaultActivityLimit, 1, maxActivityLimit)
	if err != nil {
		return activity.Filter{}, err
	}

	query := r.URL.Query()
	filter := activity.Filter{
		From:       from,
		To:         to,
		CategoryID: strings.ToUpper(strings.TrimSpace(query.Get("category_id"))),
		OrderID:    strings.ToUpper(strings.TrimSpace(query.Get("order_id"))),
		Limit:      limit,
	}
	if raw := strings.TrimSpace(query.Get("action")); raw != "" {
		action, err := enums.ParseActivityAction(raw)
		if err != nil {
			return activity.Filter{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid action")
		}
		filter.Action = action
	}
	return filter, nil
}
