// Package report renders stock and transfer exports as xlsx workbooks.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jwZhang-1102/goodsManagement/internal/domain/inventory"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	stockHeader = []interface{}{
		"item_code", "item_name", "location_code", "location_name",
		"quantity", "safety_threshold", "below_threshold", "updated_at",
	}
	transferHeader = []interface{}{
		"id", "created_at", "item_code", "item_name",
		"source_location", "source_location_name", "dest_location", "dest_location_name",
		"quantity", "initiator",
	}
)

// StockWorkbook writes one row per stock record.
func StockWorkbook(w io.Writer, recs []inventory.StockRecord) error {
	rows := make([][]interface{}, 0, len(recs))
	for _, r := range recs {
		below := ""
		if r.BelowThreshold() {
			below = "yes"
		}
		rows = append(rows, []interface{}{
			r.ItemCode, r.ItemName, r.LocationCode, r.LocationName,
			r.Quantity, r.SafetyThreshold, below, r.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return write(w, "Stock", stockHeader, rows)
}

// TransferWorkbook writes the given transfers in the order received.
func TransferWorkbook(w io.Writer, recs []inventory.TransferRecord) error {
	rows := make([][]interface{}, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []interface{}{
			r.ID, r.CreatedAt.UTC().Format(time.RFC3339), r.ItemCode, r.ItemName,
			r.SourceLocation, r.SourceLocationName, r.DestLocation, r.DestLocationName,
			r.Quantity, r.Initiator,
		})
	}
	return write(w, "Transfers", transferHeader, rows)
}

func write(w io.Writer, title string, header []interface{}, rows [][]interface{}) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetName(sheet, title); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	sheet = title

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	return f.Write(w)
}
