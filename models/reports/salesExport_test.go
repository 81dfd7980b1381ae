package reports_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/florist_backend/models"
	"github.com/mmdatafocus/florist_backend/models/reports"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteSalesWorkbook(t *testing.T) {
	saleId := uuid.New()
	sales := []*models.Sale{{
		ID:            saleId,
		SaleDate:      time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC),
		TotalAmount:   decimal.RequireFromString("25"),
		CustomerName:  "Ada",
		PaymentMethod: models.PaymentMethodCard,
		Items: []models.SaleItem{
			{LineNo: 1, FlowerName: "Roses", Quantity: 4, UnitPrice: decimal.RequireFromString("5"), Subtotal: decimal.RequireFromString("20")},
			{LineNo: 2, FlowerName: "Tulips", Quantity: 2, UnitPrice: decimal.RequireFromString("2.5"), Subtotal: decimal.RequireFromString("5")},
		},
	}}

	var buf bytes.Buffer
	require.NoError(t, reports.WriteSalesWorkbook(&buf, sales))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{reports.SalesSheet, reports.ItemsSheet}, f.GetSheetList())

	saleRows, err := f.GetRows(reports.SalesSheet)
	require.NoError(t, err)
	require.Len(t, saleRows, 2)
	assert.Equal(t, "SaleId", saleRows[0][0])
	assert.Equal(t, saleId.String(), saleRows[1][0])
	assert.Equal(t, "2026-02-14T09:30:00Z", saleRows[1][1])
	assert.Equal(t, "card", saleRows[1][4])
	assert.Equal(t, "2", saleRows[1][5])
	assert.Equal(t, "25", saleRows[1][6])

	itemRows, err := f.GetRows(reports.ItemsSheet)
	require.NoError(t, err)
	require.Len(t, itemRows, 3)
	assert.Equal(t, []string{saleId.String(), "2", "Tulips", "2", "2.5", "5"}, itemRows[2])
}

func TestWriteSalesWorkbook_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, reports.WriteSalesWorkbook(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(reports.SalesSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
