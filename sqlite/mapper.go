package sqlite

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/asaidimu/go-criteria/core/schema"
)

// quoteIdentifier properly quotes an identifier for SQLite.
func quoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// CreateTableSQL generates the DDL for a table holding records of sc.
// Columns are emitted in name order.
func CreateTableSQL(table string, sc *schema.RecordSchema, ifNotExists bool) (string, error) {
	if sc == nil || len(sc.Fields) == 0 {
		return "", fmt.Errorf("schema for table %s defines no fields", table)
	}

	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	if ifNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	sb.WriteString(quoteIdentifier(table) + " (\n")

	names := sc.FieldNames()
	columns := make([]string, 0, len(names))
	for _, name := range names {
		field := sc.Fields[name]
		def := quoteIdentifier(name) + " " + ColumnType(field.Type)
		if field.Required {
			def += " NOT NULL"
		}
		columns = append(columns, "    "+def)
	}
	sb.WriteString(strings.Join(columns, ",\n"))
	sb.WriteString("\n);")
	return sb.String(), nil
}

// ColumnType maps a schema.FieldType to its SQLite storage class.
func ColumnType(fieldType schema.FieldType) string {
	switch fieldType {
	case schema.FieldTypeString:
		return "TEXT"
	case schema.FieldTypeNumber:
		return "REAL"
	case schema.FieldTypeInteger, schema.FieldTypeBoolean:
		return "INTEGER"
	case schema.FieldTypeObject, schema.FieldTypeArray:
		return "TEXT"
	default:
		return "BLOB"
	}
}

// encodeValue converts a document value into what the column stores.
func encodeValue(field *schema.FieldDefinition, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	if b, ok := value.(bool); ok {
		if b {
			return int64(1), nil
		}
		return int64(0), nil
	}
	switch value.(type) {
	case map[string]any, schema.Document, []any:
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal value to JSON: %w", err)
		}
		return string(raw), nil
	}
	if field != nil && (field.Type == schema.FieldTypeObject || field.Type == schema.FieldTypeArray) {
		if _, isString := value.(string); !isString {
			raw, err := json.Marshal(value)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal value to JSON: %w", err)
			}
			return string(raw), nil
		}
	}
	return value, nil
}

// decodeRow types the raw values of a scanned row by the schema: integers
// back to booleans, text back to strings and JSON text back to objects and
// arrays. Columns the schema does not know keep their raw value.
func decodeRow(logger *zap.Logger, sc *schema.RecordSchema, raw map[string]any) schema.Document {
	row := make(schema.Document, len(raw))
	for col, val := range raw {
		if b, isBytes := val.([]byte); isBytes {
			val = string(b)
		}
		if val == nil {
			row[col] = nil
			continue
		}

		var fieldDef *schema.FieldDefinition
		if sc != nil {
			fieldDef = sc.Fields[col]
		}
		if fieldDef == nil {
			if sc != nil {
				logger.Warn("Column not found in schema, using raw value", zap.String("column", col))
			}
			row[col] = val
			continue
		}

		switch fieldDef.Type {
		case schema.FieldTypeBoolean:
			switch v := val.(type) {
			case int64:
				row[col] = v != 0
			default:
				row[col] = val
			}
		case schema.FieldTypeInteger:
			if f, isFloat := val.(float64); isFloat {
				row[col] = int64(f)
			} else {
				row[col] = val
			}
		case schema.FieldTypeNumber:
			if i, isInt := val.(int64); isInt {
				row[col] = float64(i)
			} else {
				row[col] = val
			}
		case schema.FieldTypeObject, schema.FieldTypeArray:
			s, isString := val.(string)
			if !isString {
				row[col] = val
				continue
			}
			var decoded any
			if err := json.UnmarshalFromString(s, &decoded); err != nil {
				logger.Warn("Stored JSON could not be decoded", zap.String("column", col), zap.Error(err))
				row[col] = val
				continue
			}
			row[col] = decoded
		default:
			row[col] = val
		}
	}
	return row
}
