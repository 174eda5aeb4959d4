package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
)

var errNoColumns = errors.New("export: dataset has no headers")

// Dataset is a titled table. Rows are keyed by header.
type Dataset struct {
	Title    string
	Subtitle string
	Headers  []string
	Rows     []map[string]string
}

func (d Dataset) record(row map[string]string) []string {
	out := make([]string, len(d.Headers))
	for i, h := range d.Headers {
		out[i] = row[h]
	}
	return out
}

// CSVExporter writes the header row followed by one line per row. Title and subtitle are dropped.
type CSVExporter struct{}

func NewCSVExporter() *CSVExporter { return &CSVExporter{} }

func (*CSVExporter) ContentType() string { return "text/csv" }

func (*CSVExporter) Extension() string { return "csv" }

// Write streams data to w.
func (*CSVExporter) Write(w io.Writer, data Dataset) error {
	if len(data.Headers) == 0 {
		return errNoColumns
	}
	cw := csv.NewWriter(w)
	records := make([][]string, 0, len(data.Rows)+1)
	records = append(records, data.Headers)
	for _, row := range data.Rows {
		records = append(records, data.record(row))
	}
	return cw.WriteAll(records)
}

func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Write(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
