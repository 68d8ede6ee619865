package responses

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	pkgerrors "github.com/angelmondragon/hwinventory-backend/pkg/errors"
	"github.com/angelmondragon/hwinventory-backend/pkg/logger"
	"github.com/angelmondragon/hwinventory-backend/pkg/types"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	encode(w, status, types.DataEnvelope{Data: data})
}

// WriteError maps err onto its status code and public body. Errors without a
// code are reported as internal and their text never reaches the client.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		if err == nil {
			err = errors.New("error response without cause")
		}
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unclassified failure")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	body := types.ErrorBody{
		Code:      string(typed.Code()),
		Message:   typed.PublicMessage(),
		Retryable: meta.Retryable,
	}
	if meta.DetailsAllowed {
		body.Details = typed.Details()
	}

	if logg != nil {
		ctx = logg.WithFields(ctx, pkgerrors.Dump(err).Fields())
		if meta.HTTPStatus < http.StatusInternalServerError {
			logg.Warn(ctx, "request rejected")
		} else {
			logg.Error(ctx, "request failed", err)
		}
	}
	encode(w, meta.HTTPStatus, types.ErrorEnvelope{Error: body})
}

// WriteFile sends data as a download named filename.
func WriteFile(w http.ResponseWriter, filename, contentType string, data []byte) {
	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	h.Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Warn().Err(err).Str("filename", filename).Msg("download interrupted")
	}
}

func encode(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Int("status", status).Msg("response body not written")
	}
}
