package excel

import "cloneselect/domain/clone"

// RawSheet is a header row plus trimmed string cells as read from disk
type RawSheet struct {
	Name    string     // sheet name, or the file base name for CSV
	Headers []string   // column headers
	Rows    [][]string // data rows, ragged rows allowed
}

// LoadResult is a cleaned clone table plus what the loader did to get there
type LoadResult struct {
	Table           *clone.Table `json:"-"`
	Sheet           string       `json:"sheet"`
	CriteriaColumns []string     `json:"criteria_columns"`
	TotalRows       int          `json:"total_rows"`
	DroppedRows     int          `json:"dropped_rows"`
}
