package export

import (
	"context"
	"fmt"

	"github.com/garyjia/procurement/internal/application/port"
	"github.com/garyjia/procurement/internal/domain/entity"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	sheetDocument = "Document"
	sheetApproval = "Approval"

	// itemHeaderRow is the first row of the line item table
	itemHeaderRow = 11
	timeLayout    = "2006-01-02 15:04"
)

// XLSXExporter renders a document and its approval trail as an Excel workbook
type XLSXExporter struct {
	companyName string
	logger      *zap.Logger
}

// NewXLSXExporter creates a new Excel exporter
func NewXLSXExporter(companyName string, logger *zap.Logger) *XLSXExporter {
	return &XLSXExporter{companyName: companyName, logger: logger}
}

// ContentType returns the MIME type of exported files
func (e *XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Extension returns the file extension of exported files
func (e *XLSXExporter) Extension() string {
	return ".xlsx"
}

// Export builds the workbook in memory
func (e *XLSXExporter) Export(ctx context.Context, doc *entity.Document) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetDocument); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetApproval); err != nil {
		return nil, fmt.Errorf("failed to create approval sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	if err := e.writeHeader(f, doc, bold); err != nil {
		return nil, err
	}
	if err := e.writeItems(f, doc, bold); err != nil {
		return nil, err
	}
	if err := e.writeApprovals(f, doc, bold); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Debug("Document exported", zap.String("number", doc.Number), zap.Int("size", buf.Len()))
	return buf.Bytes(), nil
}

func (e *XLSXExporter) writeHeader(f *excelize.File, doc *entity.Document, bold int) error {
	title := "Material Request"
	if doc.IsPurchaseOrder() {
		title = "Purchase Order"
	}

	rows := [][]interface{}{
		{e.companyName},
		{title},
		{"Number", doc.Number},
		{"Title", doc.Title},
		{"Company", doc.Company},
		{"Department", doc.Department},
		{"Requester", doc.RequesterName},
		{"Status", string(doc.Status)},
		{"Created", doc.CreatedAt.Format(timeLayout)},
	}
	if doc.IsPurchaseOrder() {
		rows = append(rows, []interface{}{"Vendor", doc.VendorName})
	}

	for i, row := range rows {
		if err := setRow(f, sheetDocument, 1, i+1, row); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheetDocument, "A1", "A9", bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	return f.SetColWidth(sheetDocument, "A", "B", 18)
}

func (e *XLSXExporter) writeItems(f *excelize.File, doc *entity.Document, bold int) error {
	header := []interface{}{"No", "Item", "Description", "Quantity", "Unit", "Unit Price", "Subtotal"}
	if err := setRow(f, sheetDocument, 1, itemHeaderRow, header); err != nil {
		return err
	}
	if err := styleRow(f, sheetDocument, itemHeaderRow, len(header), bold); err != nil {
		return err
	}

	row := itemHeaderRow + 1
	for i, item := range doc.Items {
		values := []interface{}{i + 1, item.Name, item.Description, item.Quantity, item.Unit, item.UnitPrice, item.Subtotal()}
		if err := setRow(f, sheetDocument, 1, row, values); err != nil {
			return err
		}
		row++
	}

	if err := setRow(f, sheetDocument, 6, row, []interface{}{"Total", doc.Total()}); err != nil {
		return err
	}
	return styleRow(f, sheetDocument, row, 7, bold)
}

func (e *XLSXExporter) writeApprovals(f *excelize.File, doc *entity.Document, bold int) error {
	header := []interface{}{"No", "Name", "Role", "Department", "Kind", "Status", "Processed At"}
	if err := setRow(f, sheetApproval, 1, 1, header); err != nil {
		return err
	}
	if err := styleRow(f, sheetApproval, 1, len(header), bold); err != nil {
		return err
	}

	for i, entry := range doc.Chain {
		processed := ""
		if entry.ProcessedAt != nil {
			processed = entry.ProcessedAt.Format(timeLayout)
		}
		values := []interface{}{i + 1, entry.Name, entry.Role, entry.Department, string(entry.Kind), string(entry.Status), processed}
		if err := setRow(f, sheetApproval, 1, i+2, values); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, col, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s!%s: %w", sheet, cell, err)
	}
	return nil
}

func styleRow(f *excelize.File, sheet string, row, cols, style int) error {
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(cols, row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, first, last, style)
}

var _ port.DocumentExporter = (*XLSXExporter)(nil)
