package excel

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/onegreenvn/stockplus-backend/internal/models"
	"github.com/xuri/excelize/v2"
)

// Service writes detailed reports to Excel files in the exports directory
type Service struct {
	exportsDir string
	shopName   string
	now        func() time.Time
}

// NewExcelService creates a new Excel service instance
func NewExcelService(exportsDir, shopName string) *Service {
	// Create exports directory if it doesn't exist
	if _, err := os.Stat(exportsDir); os.IsNotExist(err) {
		os.MkdirAll(exportsDir, 0755)
	}

	return &Service{
		exportsDir: exportsDir,
		shopName:   shopName,
		now:        time.Now,
	}
}

// ExportResult contains the result of an export operation
type ExportResult struct {
	Message  string
	Filename string
	Path     string
}

type column struct {
	title string
	width float64
	value func(row models.ReportRow) interface{}
}

var (
	billNoCol   = column{"Bill No", 18, func(r models.ReportRow) interface{} { return r.BillNo }}
	customerCol = column{"Customer", 22, func(r models.ReportRow) interface{} { return r.CustomerName }}
	codeCol     = column{"Barcode", 14, func(r models.ReportRow) interface{} { return r.Code }}
	statusCol   = column{"Status", 12, func(r models.ReportRow) interface{} { return r.Status }}
	itemCol     = column{"Item", 25, func(r models.ReportRow) interface{} { return r.ItemName }}
	hsnCol      = column{"HSN", 10, func(r models.ReportRow) interface{} { return r.HSN }}
	priceCol    = column{"Price", 12, func(r models.ReportRow) interface{} { return r.Price.InexactFloat64() }}
	dateCol     = column{"Date", 20, func(r models.ReportRow) interface{} { return r.Date.Format("2006-01-02 15:04") }}
	locationCol = column{"Location", 20, func(r models.ReportRow) interface{} { return r.LocationName }}
	soldByCol   = column{"Sold By", 18, func(r models.ReportRow) interface{} { return r.SoldBy }}
)

func columnsFor(reportType string) []column {
	if reportType == models.ReportTypeInventory {
		return []column{codeCol, statusCol, itemCol, hsnCol, priceCol, dateCol, locationCol}
	}
	return []column{billNoCol, customerCol, codeCol, itemCol, hsnCol, priceCol, dateCol, locationCol, soldByCol}
}

// ExportReport writes the report to a new xlsx file and returns where it was saved
func (s *Service) ExportReport(report *models.DetailedReport) (*ExportResult, error) {
	filename := fmt.Sprintf("%s_report_%s_%s_%d.xlsx", report.Type, report.StartDate, report.EndDate, s.now().UnixNano())
	filePath := filepath.Join(s.exportsDir, filename)

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Report"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	f.SetActiveSheet(0)

	columns := columnsFor(report.Type)
	lastCol := columnToLetter(len(columns))

	// Title rows
	f.SetCellValue(sheet, "A1", s.shopName)
	f.SetCellValue(sheet, "A2", fmt.Sprintf("%s report %s to %s", report.Type, report.StartDate, report.EndDate))
	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err == nil {
		f.SetCellStyle(sheet, "A1", "A1", titleStyle)
	}

	const headerRow = 4
	for i, col := range columns {
		letter := columnToLetter(i + 1)
		f.SetCellValue(sheet, letter+strconv.Itoa(headerRow), col.title)
		f.SetColWidth(sheet, letter, letter, col.width)
	}

	// Apply header styling
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"FFFF00"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err == nil {
		f.SetCellStyle(sheet, "A"+strconv.Itoa(headerRow), lastCol+strconv.Itoa(headerRow), headerStyle)
	}

	soldStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"D9D9D9"}, // Gray
			Pattern: 1,
		},
	})
	inStockStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"C6EFCE"}, // Light green
			Pattern: 1,
		},
	})

	for j, row := range report.Rows {
		rowNum := headerRow + 1 + j
		for i, col := range columns {
			f.SetCellValue(sheet, columnToLetter(i+1)+strconv.Itoa(rowNum), col.value(row))
		}

		rowStyle := 0
		switch row.Status {
		case "SOLD":
			rowStyle = soldStyle
		case "IN STOCK":
			rowStyle = inStockStyle
		}
		if rowStyle != 0 {
			f.SetCellStyle(sheet, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("%s%d", lastCol, rowNum), rowStyle)
		}
	}

	// Total row under the price column
	totalRow := headerRow + 1 + len(report.Rows)
	if len(report.Rows) == 0 {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", totalRow), "no rows in this period")
		totalRow++
	}
	for i, col := range columns {
		if col.title != priceCol.title {
			continue
		}
		f.SetCellValue(sheet, fmt.Sprintf("%s%d", columnToLetter(i), totalRow), "Total")
		f.SetCellValue(sheet, fmt.Sprintf("%s%d", columnToLetter(i+1), totalRow), report.TotalAmount.InexactFloat64())
		if boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
			f.SetCellStyle(sheet, fmt.Sprintf("A%d", totalRow), fmt.Sprintf("%s%d", lastCol, totalRow), boldStyle)
		}
	}

	// Save the file
	if err := f.SaveAs(filePath); err != nil {
		return nil, fmt.Errorf("failed to save Excel file: %w", err)
	}

	return &ExportResult{
		Message:  fmt.Sprintf("Exported %d %s rows", len(report.Rows), report.Type),
		Filename: filename,
		Path:     filePath,
	}, nil
}

// Helper function to convert column number to Excel column letter
func columnToLetter(col int) string {
	var result string
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}
