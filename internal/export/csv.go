// Package export implements the streaming CSV export pipeline: a
// bounded multi-worker fan-out/fan-in that turns a compiled record
// search into a byte stream without holding the result set in memory.
package export

import (
	"strconv"
	"strings"

	"github.com/centralrepo/centralrepo/internal/model"
)

// fixedColumns lead every export, before the schema-union columns.
var fixedColumns = []string{"ID", "FormatId", "UploadSessionId"}

// ColumnUnion returns the deduplicated document column names across
// the resolved formats, in first-appearance order. The caller passes
// formats ordered by id, which makes the union deterministic.
func ColumnUnion(formats []model.Format) []string {
	var cols []string
	seen := make(map[string]struct{})
	for _, f := range formats {
		for _, col := range f.Schema {
			if _, ok := seen[col.Name]; ok {
				continue
			}
			seen[col.Name] = struct{}{}
			cols = append(cols, col.Name)
		}
	}
	return cols
}

// Header renders the CSV header line: the fixed columns followed by
// the schema-union column names, every cell quoted.
func Header(columns []string) []byte {
	var b strings.Builder
	for i, col := range append(append([]string{}, fixedColumns...), columns...) {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(quoteAlways(col))
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

// EncodeRow renders one record as a CSV line. Columns absent from the
// record's document render empty. Cells are escaped per RFC 4180;
// unescaped document values can silently corrupt the export otherwise.
func EncodeRow(rec *model.Record, columns []string) []byte {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(rec.ID, 10))
	b.WriteByte(',')
	b.WriteString(strconv.FormatInt(rec.FormatID, 10))
	b.WriteByte(',')
	b.WriteString(strconv.FormatInt(rec.UploadSessionID, 10))
	for _, col := range columns {
		b.WriteByte(',')
		value, ok := rec.Data[col]
		if !ok {
			continue
		}
		b.WriteString(quoteIfNeeded(formatCell(value)))
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

// formatCell renders a document value as text. Numbers drop the
// trailing ".0" a naive float format would add to integral values.
func formatCell(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	case nil:
		return ""
	default:
		// Schema validation keeps nested objects out; this is a
		// fallback for forward compatibility.
		return ""
	}
}

// quoteAlways wraps a cell in double quotes unconditionally, doubling
// embedded quotes. Header cells are always quoted.
func quoteAlways(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// quoteIfNeeded quotes a data cell only when it contains a separator,
// quote, or line break.
func quoteIfNeeded(s string) string {
	if strings.ContainsAny(s, ",\"\n\r") {
		return quoteAlways(s)
	}
	return s
}
