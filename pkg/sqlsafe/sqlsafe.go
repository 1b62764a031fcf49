// Package sqlsafe provides quoting primitives for generated DuckDB SQL.
// Every identifier, literal, and option value that originates in catalog
// configuration must pass through these functions before it is embedded in a
// statement. Nothing here ever falls back to raw interpolation.
package sqlsafe

import (
	"fmt"
	"strconv"
	"strings"
)

// OptionTypeError is returned when an option value has a type that cannot be
// rendered safely. There is deliberately no string-coercion fallback.
type OptionTypeError struct {
	Key   string
	Value any
}

func (e *OptionTypeError) Error() string {
	return fmt.Sprintf("option %q has unsupported type %T (allowed: bool, int, float, string)", e.Key, e.Value)
}

// QuoteIdent quotes s as a DuckDB identifier, doubling any embedded double
// quote. Extended-but-legal content is quoted rather than rejected.
func QuoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// QuoteQualified quotes a possibly schema-qualified name. An empty schema
// yields just the quoted name.
func QuoteQualified(schema, name string) string {
	if schema == "" {
		return QuoteIdent(name)
	}
	return QuoteIdent(schema) + "." + QuoteIdent(name)
}

// QuoteLiteral quotes s as a SQL string literal, doubling embedded single
// quotes. DuckDB standard strings treat backslash literally, so no escape
// processing beyond quote doubling is needed for the round trip.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// RenderOptionValue renders an option value for embedding in generated SQL.
// Only bool, integer, float, and string values are accepted; anything else
// is an *OptionTypeError naming the offending key.
func RenderOptionValue(key string, v any) (string, error) {
	switch val := v.(type) {
	case bool:
		if val {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.Itoa(val), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case uint:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), nil
	case string:
		return QuoteLiteral(val), nil
	default:
		return "", &OptionTypeError{Key: key, Value: v}
	}
}
