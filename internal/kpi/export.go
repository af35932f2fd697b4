package kpi

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const sheetName = "KPI"

// exportHeader is the column order of the workbook.
var exportHeader = []string{
	"Tarih",
	"Ofis",
	"Gelen Talep",
	"Zamanında İlk Arama",
	"İlk Arama İhlali",
	"Oluşturulan Randevu",
	"Onaylanan Randevu",
	"Gelmedi",
	"Rapor",
	"Geç Rapor",
	"Ort. Doluluk",
	"Kazanılan",
	"Kaybedilen",
}

var exportWidths = []float64{12, 28, 12, 18, 16, 18, 18, 10, 10, 10, 12, 12, 12}

// WriteWorkbook renders snaps into an xlsx file. Rows with no office are
// labelled "Tümü"; unknown offices fall back to their id.
func WriteWorkbook(snaps []Snapshot, officeNames map[uuid.UUID]string) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, title := range exportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, title); err != nil {
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		colName, _ := excelize.ColumnNumberToName(col + 1)
		if err := f.SetColWidth(sheetName, colName, colName, exportWidths[col]); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, s := range snaps {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		row := []interface{}{
			s.Date.Format(dateLayout),
			officeLabel(s.OfficeID, officeNames),
			s.LeadsReceived,
			s.FirstCallsOnTime,
			s.FirstCallBreaches,
			s.AppointmentsCreated,
			s.AppointmentsConfirmed,
			s.NoShows,
			s.ReportsSubmitted,
			s.LateReports,
			s.AvgCompleteness,
			s.Won,
			s.Lost,
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func officeLabel(id *uuid.UUID, names map[uuid.UUID]string) string {
	if id == nil {
		return "Tümü"
	}
	if name, ok := names[*id]; ok {
		return name
	}
	return id.String()
}
