package pages

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// maxColumns — ограничение числа колонок таблицы.
const maxColumns = 8

// TableFromJSON строит таблицу из ответа backend: массив объектов или
// объект с первым полем-массивом объектов ({"users": [...]}).
// Остальные ответы показываются как отформатированный JSON.
func TableFromJSON(body []byte) *Table {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return &Table{Raw: string(body)}
	}

	rows, ok := objectRows(v)
	if !ok {
		pretty, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return &Table{Raw: string(body)}
		}
		return &Table{Raw: string(pretty)}
	}
	if len(rows) == 0 {
		return &Table{}
	}

	cols := columns(rows)
	t := &Table{Columns: cols, Rows: make([][]string, 0, len(rows))}
	for _, row := range rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = cell(row[c])
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

// objectRows извлекает массив объектов из ответа.
func objectRows(v any) ([]map[string]any, bool) {
	switch x := v.(type) {
	case []any:
		return toObjects(x)
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if arr, ok := x[k].([]any); ok {
				return toObjects(arr)
			}
		}
	}
	return nil, false
}

func toObjects(arr []any) ([]map[string]any, bool) {
	out := make([]map[string]any, 0, len(arr))
	for _, item := range arr {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		out = append(out, obj)
	}
	return out, true
}

// columns — скалярные поля первой строки, id/_id первыми, остальные по алфавиту.
func columns(rows []map[string]any) []string {
	var cols []string
	first := rows[0]
	for _, id := range []string{"_id", "id"} {
		if _, ok := first[id]; ok {
			cols = append(cols, id)
		}
	}
	keys := make([]string, 0, len(first))
	for k, v := range first {
		if k == "_id" || k == "id" || k == "__v" {
			continue
		}
		switch v.(type) {
		case map[string]any, []any:
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	cols = append(cols, keys...)
	if len(cols) > maxColumns {
		cols = cols[:maxColumns]
	}
	return cols
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
