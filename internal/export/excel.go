package export

import (
	"fmt"
	"io"
	"time"

	"github.com/wdallo/libraryApp-sub000/internal/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Reservations"

var headers = []string{"ID", "Book", "User", "Status", "Due Date", "Extensions", "Overdue", "Created", "Updated"}

// WriteReservations renders the reservations into an xlsx workbook and
// writes it to w.
func WriteReservations(w io.Writer, reservations []*models.Reservation, now time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, r := range reservations {
		row := []interface{}{
			r.ID,
			r.BookTitle,
			r.UserName,
			r.Status,
			r.DueDate.Format("2006-01-02"),
			r.ExtensionsUsed,
			r.IsOverdue(now),
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.UpdatedAt.Format("2006-01-02 15:04"),
		}
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return fmt.Errorf("failed to write row %d: %w", i+2, err)
			}
		}
	}

	if err := f.SetColWidth(sheetName, "B", "C", 28); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "D", "I", 16); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
