// Package chat answers staff questions with a language model grounded on a
// snapshot of the restaurant's own data.
package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/restodesk/api/internal/database"
)

const (
	maxSummaryFields = 6
	maxArrayValues   = 5
)

// ignoredColumns never reach the model.
var ignoredColumns = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"restaurant_id": true,
	"profile_id":    true,
	"user_id":       true,
}

// SummarizeRows renders rows as numbered "key: value | ..." lines. Null and
// empty values are dropped, at most six fields are kept per row and arrays
// are cut to five elements.
func SummarizeRows(rows []database.SnapshotRow) string {
	if len(rows) == 0 {
		return "No rows found."
	}

	lines := make([]string, len(rows))
	for i, row := range rows {
		entries := make([]string, 0, maxSummaryFields)
		for _, f := range row {
			if len(entries) == maxSummaryFields {
				break
			}
			if ignoredColumns[f.Name] || isBlank(f.Value) {
				continue
			}
			entries = append(entries, f.Name+": "+formatValue(f.Value))
		}
		lines[i] = strconv.Itoa(i+1) + ". " + strings.Join(entries, " | ")
	}
	return strings.Join(lines, "\n")
}

func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	}
	return false
}

func formatValue(v any) string {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		n := rv.Len()
		parts := make([]string, 0, maxArrayValues)
		for i := 0; i < n && i < maxArrayValues; i++ {
			parts = append(parts, encodeJSON(rv.Index(i).Interface()))
		}
		suffix := ""
		if n > maxArrayValues {
			suffix = ", ..."
		}
		return "[" + strings.Join(parts, ", ") + suffix + "]"
	}
	return encodeJSON(v)
}

func encodeJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
