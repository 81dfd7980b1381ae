package reports

import (
	"fmt"
	"io"
	"time"

	"github.com/mmdatafocus/florist_backend/models"
	"github.com/xuri/excelize/v2"
)

const (
	SalesSheet = "Sales"
	ItemsSheet = "Items"
)

var (
	salesHeadings = []interface{}{"SaleId", "SaleDate", "CustomerName", "CustomerPhone", "PaymentMethod", "ItemCount", "TotalAmount", "Notes"}
	itemsHeadings = []interface{}{"SaleId", "LineNo", "Flower", "Quantity", "UnitPrice", "Subtotal"}
)

// WriteSalesWorkbook writes sales as an xlsx workbook with one row per sale and one row per sale item.
func WriteSalesWorkbook(w io.Writer, sales []*models.Sale) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SalesSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(ItemsSheet); err != nil {
		return err
	}
	if err := setRow(f, SalesSheet, 1, salesHeadings); err != nil {
		return err
	}
	if err := setRow(f, ItemsSheet, 1, itemsHeadings); err != nil {
		return err
	}

	itemRow := 2
	for i, sale := range sales {
		err := setRow(f, SalesSheet, i+2, []interface{}{
			sale.ID.String(),
			sale.SaleDate.UTC().Format(time.RFC3339),
			sale.CustomerName,
			sale.CustomerPhone,
			string(sale.PaymentMethod),
			len(sale.Items),
			sale.TotalAmount.InexactFloat64(),
			sale.Notes,
		})
		if err != nil {
			return err
		}
		for _, item := range sale.Items {
			err := setRow(f, ItemsSheet, itemRow, []interface{}{
				sale.ID.String(),
				item.LineNo,
				item.FlowerName,
				item.Quantity,
				item.UnitPrice.InexactFloat64(),
				item.Subtotal.InexactFloat64(),
			})
			if err != nil {
				return err
			}
			itemRow++
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write sales workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowNo int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
