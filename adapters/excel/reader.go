package excel

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"cloneselect/domain/clone"
	"cloneselect/domain/core"
)

// DataReader handles reading Excel and CSV files of clone measurements
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &DataReader{filePath: filePath, fileType: fileType}
}

// Sheets lists the workbook's sheets in order. A CSV file has a single
// unnamed sheet.
func (r *DataReader) Sheets() ([]string, error) {
	if r.fileType == "csv" {
		return []string{filepath.Base(r.filePath)}, nil
	}

	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.NewInvalidDataError("no sheets found in the Excel file")
	}
	return sheets, nil
}

// ReadData reads the named sheet (the first sheet when empty) as raw strings
func (r *DataReader) ReadData(sheet string) (*RawSheet, error) {
	log.Printf("[DataReader] Starting to read %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	switch r.fileType {
	case "csv":
		return r.readCSVData()
	case "xlsx":
		return r.readExcelData(sheet)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
}

// LoadTable reads a sheet and cleans it into a clone table
func (r *DataReader) LoadTable(sheet string) (*LoadResult, error) {
	raw, err := r.ReadData(sheet)
	if err != nil {
		return nil, err
	}
	return BuildTable(raw)
}

func (r *DataReader) readExcelData(sheet string) (*RawSheet, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()
	log.Printf("[DataReader] Excel file opened in %.2fms", float64(time.Since(startTime).Nanoseconds())/1e6)

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.NewInvalidDataError("no sheets found in the Excel file")
	}
	if sheet == "" {
		sheet = sheets[0]
	} else if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		return nil, core.NewInvalidDataError(fmt.Sprintf("sheet %q not found (available: %s)", sheet, strings.Join(sheets, ", ")))
	}

	readStart := time.Now()
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheet, err)
	}
	log.Printf("[DataReader] %s read in %.2fms (%d rows)", sheet, float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	return splitRows(sheet, rows)
}

func (r *DataReader) readCSVData() (*RawSheet, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	readStart := time.Now()
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	log.Printf("[DataReader] CSV file read in %.2fms (%d rows)", float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	return splitRows(filepath.Base(r.filePath), rows)
}

func splitRows(name string, rows [][]string) (*RawSheet, error) {
	if len(rows) < 2 {
		return nil, core.NewInvalidDataError(fmt.Sprintf("sheet %q is empty: need a header row and at least one data row", name))
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	data := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = strings.TrimSpace(cell)
		}
		data = append(data, cells)
	}

	return &RawSheet{Name: name, Headers: headers, Rows: data}, nil
}

// BuildTable cleans a raw sheet: it requires a Results column, drops rows
// whose Results value is not numeric, and parses every column whose name
// starts with "criteria" (any case). Unparsable criteria cells become NaN.
func BuildTable(raw *RawSheet) (*LoadResult, error) {
	resultsIdx := -1
	var criteriaIdx []int
	for i, h := range raw.Headers {
		switch {
		case h == clone.ResultsColumn:
			resultsIdx = i
		case clone.IsCriteriaColumn(h):
			criteriaIdx = append(criteriaIdx, i)
		}
	}
	if resultsIdx < 0 {
		return nil, core.NewInvalidDataError("no 'Results' column found; the data needs a column named 'Results'")
	}

	results := make([]float64, 0, len(raw.Rows))
	criteria := make(map[string][]float64, len(criteriaIdx))
	for _, idx := range criteriaIdx {
		criteria[raw.Headers[idx]] = make([]float64, 0, len(raw.Rows))
	}

	total, dropped := 0, 0
	for _, row := range raw.Rows {
		if isBlank(row) {
			continue
		}
		total++

		value, ok := parseNumber(cell(row, resultsIdx))
		if !ok {
			dropped++
			continue
		}
		results = append(results, value)
		for _, idx := range criteriaIdx {
			v, ok := parseNumber(cell(row, idx))
			if !ok {
				v = math.NaN()
			}
			criteria[raw.Headers[idx]] = append(criteria[raw.Headers[idx]], v)
		}
	}

	if dropped > 0 {
		log.Printf("[DataReader] Removed %d rows with invalid Results values", dropped)
	}
	if len(results) == 0 {
		return nil, core.NewInvalidDataError("no rows with a numeric Results value")
	}

	table, err := clone.NewTable(results, criteria)
	if err != nil {
		return nil, err
	}

	log.Printf("[DataReader] %s loaded (%d clones, %d criteria columns)", raw.Name, table.Len(), len(criteriaIdx))
	return &LoadResult{
		Table:           table,
		Sheet:           raw.Name,
		CriteriaColumns: table.CriteriaColumns(),
		TotalRows:       total,
		DroppedRows:     dropped,
	}, nil
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}

func isBlank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}

func parseNumber(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
