package utils

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"orbita/internal/models"

	"github.com/xuri/excelize/v2"
)

const timeLayout = "2006-01-02 15:04:05"

// WriteCSVFile сохраняет записи телеметрии в CSV
func WriteCSVFile(path string, records []models.Telemetry) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"id", "satellite_id", "timestamp", "altitude", "velocity", "status", "created"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, record := range records {
		row := []string{
			fmt.Sprintf("%d", record.ID),
			record.SatelliteID,
			record.Timestamp.Format(timeLayout),
			fmt.Sprintf("%.3f", record.Altitude),
			fmt.Sprintf("%.3f", record.Velocity),
			string(record.Status),
			record.Created.Format(timeLayout),
		}

		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return writer.Error()
}

// CreateExcelFile создает Excel файл с данными телеметрии
func CreateExcelFile(path string, records []models.Telemetry) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet("Telemetry")
	if err != nil {
		return err
	}

	headers := []string{"ID", "Satellite", "Timestamp", "Altitude (km)", "Velocity (km/s)", "Status", "Created"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue("Telemetry", cell, header)
	}

	for rowIdx, record := range records {
		rowNum := rowIdx + 2 // Заголовок в первой строке

		f.SetCellValue("Telemetry", fmt.Sprintf("A%d", rowNum), record.ID)
		f.SetCellValue("Telemetry", fmt.Sprintf("B%d", rowNum), record.SatelliteID)
		f.SetCellValue("Telemetry", fmt.Sprintf("C%d", rowNum),
			record.Timestamp.Format(timeLayout))
		f.SetCellValue("Telemetry", fmt.Sprintf("D%d", rowNum), record.Altitude)
		f.SetCellValue("Telemetry", fmt.Sprintf("E%d", rowNum), record.Velocity)
		f.SetCellValue("Telemetry", fmt.Sprintf("F%d", rowNum), string(record.Status))
		f.SetCellValue("Telemetry", fmt.Sprintf("G%d", rowNum),
			record.Created.Format(timeLayout))
	}

	for i := 1; i <= len(headers); i++ {
		colName, _ := excelize.ColumnNumberToName(i)
		f.SetColWidth("Telemetry", colName, colName, 20)
	}

	// Подсвечиваем записи со статусом critical
	criticalRule := []excelize.ConditionalFormatOptions{
		{
			Type:     "cell",
			Criteria: "==",
			Value:    `"critical"`,
			Format:   conditionalFillStyle(f, "#FFCCCC"),
		},
	}
	lastRow := len(records) + 1
	if err := f.SetConditionalFormat("Telemetry",
		fmt.Sprintf("F2:F%d", lastRow), criticalRule); err != nil {
		return err
	}

	if len(records) > 1 {
		addAltitudeChart(f, len(records))
	}

	createInfoSheet(f, records)

	f.SetActiveSheet(index)

	return f.SaveAs(path)
}

func addAltitudeChart(f *excelize.File, count int) {
	chart := &excelize.Chart{
		Type: excelize.Line,
		Series: []excelize.ChartSeries{
			{
				Name:       "Altitude",
				Categories: fmt.Sprintf("Telemetry!$C$2:$C$%d", count+1),
				Values:     fmt.Sprintf("Telemetry!$D$2:$D$%d", count+1),
			},
		},
		Title: []excelize.RichTextRun{
			{
				Text: "Altitude Over Time",
			},
		},
		XAxis: excelize.ChartAxis{
			MajorGridLines: true,
		},
		YAxis: excelize.ChartAxis{
			MajorGridLines: true,
		},
		Dimension: excelize.ChartDimension{
			Width:  600,
			Height: 400,
		},
	}

	f.AddChart("Telemetry", "I2", chart)
}

func createInfoSheet(f *excelize.File, records []models.Telemetry) {
	f.NewSheet("Info")

	minAlt, maxAlt := valueRange(records, func(t models.Telemetry) float64 { return t.Altitude })
	minVel, maxVel := valueRange(records, func(t models.Telemetry) float64 { return t.Velocity })

	rows := [][2]interface{}{
		{"Report Generated", time.Now().UTC().Format(timeLayout)},
		{"Total Records", len(records)},
		{"Time Range", fmt.Sprintf("%s to %s",
			records[len(records)-1].Timestamp.Format(timeLayout),
			records[0].Timestamp.Format(timeLayout))},
		{"Altitude Range", fmt.Sprintf("%.3f km - %.3f km", minAlt, maxAlt)},
		{"Velocity Range", fmt.Sprintf("%.3f km/s - %.3f km/s", minVel, maxVel)},
	}

	for i, row := range rows {
		f.SetCellValue("Info", fmt.Sprintf("A%d", i+1), row[0])
		f.SetCellValue("Info", fmt.Sprintf("B%d", i+1), row[1])
	}
}

func valueRange(records []models.Telemetry, value func(models.Telemetry) float64) (min, max float64) {
	if len(records) == 0 {
		return 0, 0
	}
	min, max = value(records[0]), value(records[0])
	for _, r := range records[1:] {
		v := value(r)
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// SaveAsJSON сохраняет данные в JSON файл
func SaveAsJSON(path string, data interface{}) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func conditionalFillStyle(f *excelize.File, color string) *int {
	style, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{color},
			Pattern: 1,
		},
	})
	if err != nil {
		return nil
	}
	return &style
}
