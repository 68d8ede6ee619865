package reports

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/angelmondragon/hwinventory-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/hwinventory-backend/pkg/errors"
)

// ExportKind names a downloadable report.
type ExportKind string

const (
	ExportInventory  ExportKind = "inventory"
	ExportStockAlert ExportKind = "stock-alert"
	ExportOrders     ExportKind = "order"
)

// XLSXContentType is the media type of every export.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const timestampLayout = "2006-01-02 15:04:05"

var validExportKinds = []ExportKind{ExportInventory, ExportStockAlert, ExportOrders}

// ParseExportKind converts raw input into an ExportKind.
func ParseExportKind(value string) (ExportKind, error) {
	for _, candidate := range validExportKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid report type %q", value)
}

// Export is a rendered spreadsheet ready to stream to a client.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (s *service) Export(ctx context.Context, kind ExportKind) (*Export, error) {
	parts, orders, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	generatedAt := s.now()

	var f *excelize.File
	switch kind {
	case ExportInventory:
		f, err = inventoryWorkbook(parts, orders, generatedAt.Format(timestampLayout))
	case ExportStockAlert:
		f, err = stockAlertWorkbook(parts, generatedAt.Format(timestampLayout))
	case ExportOrders:
		f, err = orderWorkbook(parts, orders, generatedAt.Format(timestampLayout))
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid report type %q", kind))
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render report")
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write report")
	}
	return &Export{
		Filename:    fmt.Sprintf("%s-report-%s.xlsx", kind, generatedAt.Format("20060102")),
		ContentType: XLSXContentType,
		Data:        buf.Bytes(),
	}, nil
}

func inventoryWorkbook(parts []models.Part, orders []models.Order, generated string) (*excelize.File, error) {
	summary := summarize(parts, orders)
	w, err := newSheetWriter("Inventory")
	if err != nil {
		return nil, err
	}
	w.line("HARDWARE INVENTORY REPORT")
	w.line("Generated", generated)
	w.blank()
	w.line("Total Units", summary.TotalUnits)
	w.line("Total Value", summary.TotalValue.InexactFloat64())
	w.line("Low Stock Items", summary.LowStock)
	w.line("Out of Stock Items", summary.OutOfStock)
	w.blank()
	w.line("Part ID", "Name", "Brand", "Category", "Quantity", "Price", "Status")
	for _, part := range parts {
		w.line(part.CategoryID, part.Name, part.Brand, string(part.Category), part.Quantity, part.Price.InexactFloat64(), string(part.Status))
	}
	return w.finish()
}

func stockAlertWorkbook(parts []models.Part, generated string) (*excelize.File, error) {
	alerts := collectAlerts(parts)
	w, err := newSheetWriter("Stock Alerts")
	if err != nil {
		return nil, err
	}
	w.line("HARDWARE STOCK ALERT REPORT")
	w.line("Generated", generated)
	w.blank()
	w.line("Out of Stock Items", len(alerts.OutOfStock))
	w.line("Low Stock Items", len(alerts.LowStock))
	if len(alerts.OutOfStock) > 0 {
		w.blank()
		w.line("OUT OF STOCK ITEMS")
		w.line("Part ID", "Name", "Brand", "Category")
		for _, part := range alerts.OutOfStock {
			w.line(part.CategoryID, part.Name, part.Brand, string(part.Category))
		}
	}
	if len(alerts.LowStock) > 0 {
		w.blank()
		w.line("LOW STOCK ITEMS")
		w.line("Part ID", "Name", "Current", "Threshold", "Category")
		for _, part := range alerts.LowStock {
			w.line(part.CategoryID, part.Name, part.Quantity, part.AlertThreshold, string(part.Category))
		}
	}
	return w.finish()
}

func orderWorkbook(parts []models.Part, orders []models.Order, generated string) (*excelize.File, error) {
	summary := summarize(parts, orders)
	w, err := newSheetWriter("Orders")
	if err != nil {
		return nil, err
	}
	w.line("HARDWARE ORDER REPORT")
	w.line("Generated", generated)
	w.blank()
	w.line("Total Orders", summary.TotalOrders)
	w.line("Pending Orders", summary.PendingOrders)
	w.line("Completed Orders", summary.CompletedOrders)
	w.line("Cancelled Orders", summary.CancelledOrders)
	w.blank()
	w.line("Order ID", "Part ID", "Part Name", "Quantity", "Date", "Status")
	for _, order := range orders {
		w.line(order.OrderID, order.CategoryID, order.PartName, order.Quantity, order.Date.Format("2006-01-02"), string(order.Status))
	}
	return w.finish()
}

// sheetWriter appends rows to a single-sheet workbook and keeps the first error.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
	err   error
}

func newSheetWriter(sheet string) (*sheetWriter, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &sheetWriter{f: f, sheet: sheet}, nil
}

func (w *sheetWriter) line(values ...interface{}) {
	w.row++
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetSheetRow(w.sheet, cell, &values)
}

func (w *sheetWriter) blank() {
	w.row++
}

func (w *sheetWriter) finish() (*excelize.File, error) {
	if w.err != nil {
		_ = w.f.Close()
		return nil, w.err
	}
	return w.f, nil
}
