package utils

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
)

// CountCSVDataRows counts CSV records after the header row. Quoted fields
// may span lines. Ragged rows are counted, not rejected; the warehouse is
// the one that decides whether they load.
func CountCSVDataRows(content []byte) (int64, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = true

	var n int64
	for {
		_, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return n - 1, nil
}
