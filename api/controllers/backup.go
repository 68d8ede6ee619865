package controllers

import (
	"errors"
	"net/http"

	"github.com/angelmondragon/hwinventory-backend/api/responses"
	"github.com/angelmondragon/hwinventory-backend/internal/backup"
	pkgerrors "github.com/angelmondragon/hwinventory-backend/pkg/errors"
	"github.com/angelmondragon/hwinventory-backend/pkg/logger"
)

// ReportsBackup downloads a JSON snapshot of parts, orders and the activity ledger.
func ReportsBackup(svc backup.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "backup service unavailable"))
			return
		}
		snap, err := svc.Export(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		data, err := backup.Marshal(snap)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode snapshot"))
			return
		}
		if logg != nil {
			logg.Info(logg.WithFields(r.Context(), map[string]any{
				"parts":  len(snap.Parts),
				"orders": len(snap.Orders),
				"bytes":  len(data),
			}), "backup exported")
		}
		responses.WriteFile(w, backup.FileName(snap.ExportedAt), backup.ContentType, data)
	}
}

// ReportsRestore replaces all inventory data with the snapshot in the request
// body. It is only routed when restores are enabled.
func ReportsRestore(svc backup.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "backup service unavailable"))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, backup.MaxSnapshotBytes)
		snap, err := backup.Decode(r.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				err = pkgerrors.Wrap(pkgerrors.CodeValidation, err, "snapshot too large").
					WithDetails(map[string]any{"max_bytes": tooLarge.Limit})
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		counts, err := svc.Restore(r.Context(), snap)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, counts)
	}
}
