package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/garyjia/procurement/internal/domain/approval"
	"github.com/garyjia/procurement/internal/domain/entity"
	"github.com/garyjia/procurement/internal/domain/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func TestXLSXExporter_Export(t *testing.T) {
	processed := time.Date(2024, 3, 4, 10, 30, 0, 0, time.UTC)
	doc := &entity.Document{
		Kind:          entity.KindPurchaseOrder,
		Number:        "PO-2024-0007",
		Title:         "Site materials",
		Company:       "ACME",
		RequesterName: "Budi",
		VendorName:    "PT Semen",
		Status:        workflow.StatePendingBAST,
		Items: []entity.LineItem{
			{Name: "Cement", Quantity: 10, Unit: "sak", UnitPrice: 65000},
			{Name: "Sand", Quantity: 2, Unit: "m3", UnitPrice: 250000},
		},
		Chain: approval.Chain{
			{UserID: "a", Name: "Ani", Role: "approver", Kind: approval.KindApprove, Status: approval.StatusApproved, ProcessedAt: &processed},
			{UserID: "k", Name: "Koko", Role: "approver", Kind: approval.KindAcknowledge, Status: approval.StatusPending},
		},
	}

	e := NewXLSXExporter("ACME Corp", zap.NewNop())
	content, err := e.Export(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, ".xlsx", e.Extension())

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	cell := func(sheet, axis string) string {
		t.Helper()
		v, err := f.GetCellValue(sheet, axis)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "ACME Corp", cell(sheetDocument, "A1"))
	assert.Equal(t, "Purchase Order", cell(sheetDocument, "A2"))
	assert.Equal(t, "PO-2024-0007", cell(sheetDocument, "B3"))
	assert.Equal(t, "PT Semen", cell(sheetDocument, "B10"))

	assert.Equal(t, "Item", cell(sheetDocument, "B11"))
	assert.Equal(t, "Cement", cell(sheetDocument, "B12"))
	assert.Equal(t, "Sand", cell(sheetDocument, "B13"))
	assert.Equal(t, "Total", cell(sheetDocument, "F14"))
	assert.Equal(t, "1150000", cell(sheetDocument, "G14"))

	assert.Equal(t, "Ani", cell(sheetApproval, "B2"))
	assert.Equal(t, "Menyetujui", cell(sheetApproval, "E2"))
	assert.Equal(t, "2024-03-04 10:30", cell(sheetApproval, "G2"))
	assert.Equal(t, "Mengetahui", cell(sheetApproval, "E3"))
	assert.Equal(t, "", cell(sheetApproval, "G3"))
}
