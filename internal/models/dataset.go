package models

// Dataset is a parsed CSV file. Cell values are kept exactly as they appear
// in the file.
type Dataset struct {
	FileName string     `json:"fileName" msgpack:"fileName"`
	Columns  []string   `json:"columns" msgpack:"columns"`
	Rows     [][]string `json:"rows" msgpack:"rows"`
	BlobID   string     `json:"-" msgpack:"-"`
}

// RowCount returns the number of data rows.
func (d *Dataset) RowCount() int {
	return len(d.Rows)
}

// Page returns rows for a 1-based page. Out of range pages are empty.
func (d *Dataset) Page(page, pageSize int) [][]string {
	if page < 1 || pageSize < 1 {
		return [][]string{}
	}
	start := (page - 1) * pageSize
	if start >= len(d.Rows) {
		return [][]string{}
	}
	end := start + pageSize
	if end > len(d.Rows) {
		end = len(d.Rows)
	}
	return d.Rows[start:end]
}
