package otel

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// attr converts a loosely typed span field into an otel attribute, keeping numbers and
// bools typed so the text exporter can print them without quoting.
func attr(key string, val any) attribute.KeyValue {
	switch v := val.(type) {
	case nil:
		return attribute.Key(key).String("")
	case string:
		return attribute.Key(key).String(v)
	case []byte:
		return attribute.Key(key).String(string(v))
	case bool:
		return attribute.Key(key).Bool(v)
	case int:
		return attribute.Key(key).Int64(int64(v))
	case int32:
		return attribute.Key(key).Int64(int64(v))
	case int64:
		return attribute.Key(key).Int64(v)
	case uint32:
		return attribute.Key(key).Int64(int64(v))
	case float64:
		return attribute.Key(key).Float64(v)
	case time.Duration:
		return attribute.Key(key).String(v.String())
	case error:
		return attribute.Key(key).String(v.Error())
	case fmt.Stringer:
		return attribute.Key(key).String(v.String())
	default:
		return attribute.Key(key).String(fmt.Sprintf("%v", v))
	}
}
