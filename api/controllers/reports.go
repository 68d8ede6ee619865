package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/hwinventory-backend/api/responses"
	"github.com/angelmondragon/hwinventory-backend/internal/reports"
	pkgerrors "github.com/angelmondragon/hwinventory-backend/pkg/errors"
	"github.com/angelmondragon/hwinventory-backend/pkg/logger"
)

var exportKinds = []string{"inventory", "stock-alert", "order"}

// reportHandler guards every report endpoint against a missing service.
func reportHandler(svc reports.Service, logg *logger.Logger, fn func(w http.ResponseWriter, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		if svc == nil {
			err = pkgerrors.New(pkgerrors.CodeInternal, "report service unavailable")
		} else {
			err = fn(w, r)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
		}
	}
}

// ReportsSummary serves stock valuation, status counts and order totals.
func ReportsSummary(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return reportHandler(svc, logg, func(w http.ResponseWriter, r *http.Request) error {
		summary, err := svc.Summary(r.Context())
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, reports.NewSummaryDTO(*summary))
		return nil
	})
}

func ReportsStockAlerts(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return reportHandler(svc, logg, func(w http.ResponseWriter, r *http.Request) error {
		alerts, err := svc.StockAlerts(r.Context())
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, reports.NewStockAlertsDTO(*alerts))
		return nil
	})
}

// ReportsExport streams the XLSX workbook named by ?type=.
func ReportsExport(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return reportHandler(svc, logg, func(w http.ResponseWriter, r *http.Request) error {
		kind, err := reports.ParseExportKind(strings.TrimSpace(r.URL.Query().Get("type")))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid report type").
				WithDetails(map[string]any{"field": "type", "allowed": exportKinds})
		}
		export, err := svc.Export(r.Context(), kind)
		if err != nil {
			return err
		}
		if logg != nil {
			logg.Info(logg.WithFields(r.Context(), map[string]any{"report": string(kind), "bytes": len(export.Data)}), "report exported")
		}
		responses.WriteFile(w, export.Filename, export.ContentType, export.Data)
		return nil
	})
}
