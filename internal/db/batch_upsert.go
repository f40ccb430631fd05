package db

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"
)

const defaultBatchSize = 100

// Upsert writes a slice of flat structs into table in batches, inside tx.
// Column names are the snake_case field names. Rows colliding on
// conflictColumn have every other column overwritten.
func Upsert(tx *sql.Tx, table string, conflictColumn string, data interface{}) error {
	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Slice {
		return fmt.Errorf("data must be a slice, got %T", data)
	}
	if v.Len() == 0 {
		return nil
	}

	elemType := v.Type().Elem()
	if elemType.Kind() != reflect.Struct {
		return fmt.Errorf("data must be a slice of structs, got %T", data)
	}
	numFields := elemType.NumField()
	columns := make([]string, numFields)
	var updates []string
	for i := 0; i < numFields; i++ {
		columns[i] = snakeCase(elemType.Field(i).Name)
		if columns[i] != conflictColumn {
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", columns[i], columns[i]))
		}
	}
	if len(updates) == 0 {
		return fmt.Errorf("table %s has no columns besides %s", table, conflictColumn)
	}

	placeholders := "(" + strings.Repeat("?, ", numFields-1) + "?)"

	for i := 0; i < v.Len(); i += defaultBatchSize {
		end := i + defaultBatchSize
		if end > v.Len() {
			end = v.Len()
		}

		values := []interface{}{}
		batchPlaceholders := []string{}
		for j := i; j < end; j++ {
			elem := v.Index(j)
			for k := 0; k < numFields; k++ {
				values = append(values, elem.Field(k).Interface())
			}
			batchPlaceholders = append(batchPlaceholders, placeholders)
		}

		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s ON CONFLICT(%s) DO UPDATE SET %s",
			table,
			strings.Join(columns, ", "),
			strings.Join(batchPlaceholders, ", "),
			conflictColumn,
			strings.Join(updates, ", "),
		)
		if _, err := tx.Exec(query, values...); err != nil {
			return err
		}
	}
	return nil
}

// snakeCase converts CamelCase to snake_case
func snakeCase(s string) string {
	var result strings.Builder
	for i, c := range s {
		if i > 0 && c >= 'A' && c <= 'Z' {
			result.WriteRune('_')
		}
		result.WriteRune(c)
	}
	return strings.ToLower(result.String())
}
