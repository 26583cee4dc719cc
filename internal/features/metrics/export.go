package metrics

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExportPerUserTable renders a per-user metric table as an xlsx workbook.
func ExportPerUserTable(table *PerUserTable) ([]byte, string, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Metrics"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, "", err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	headers := append([]string{"User"}, table.MetricNames...)
	for i, col := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, col)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, row := range table.Rows {
		label := row.UserName
		if label == "" {
			label = row.UserID
		}
		cell, _ := excelize.CoordinatesToCellName(1, rowIdx+2)
		f.SetCellValue(sheetName, cell, label)

		for colIdx, metric := range table.MetricNames {
			cell, _ := excelize.CoordinatesToCellName(colIdx+2, rowIdx+2)
			f.SetCellValue(sheetName, cell, row.Values[metric])
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("per_user_metrics_%d_users.xlsx", len(table.Rows))
	return buf.Bytes(), filename, nil
}
