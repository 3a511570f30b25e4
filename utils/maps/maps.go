package maps

import (
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Map2Struct Decode takes an input structure and uses reflection to translate it to
// the output structure. output must be a pointer to a map or struct.
func Map2Struct(input interface{}, output interface{}) error {
	return mapstructure.Decode(input, output)
}

// Get resolves a dotted path such as "invoice.client.name" inside nested
// maps. Returns nil when any segment is missing or not traversable.
func Get(data map[string]interface{}, path string) interface{} {
	if data == nil || path == "" {
		return nil
	}
	var current interface{} = data
	for _, segment := range strings.Split(path, ".") {
		m, ok := toStringMap(current)
		if !ok {
			return nil
		}
		current, ok = m[segment]
		if !ok {
			return nil
		}
	}
	return current
}

// Has reports whether the dotted path resolves to an existing key, even
// one holding a nil value.
func Has(data map[string]interface{}, path string) bool {
	if data == nil || path == "" {
		return false
	}
	var current interface{} = data
	segments := strings.Split(path, ".")
	for i, segment := range segments {
		m, ok := toStringMap(current)
		if !ok {
			return false
		}
		current, ok = m[segment]
		if !ok {
			return false
		}
		if i == len(segments)-1 {
			return true
		}
	}
	return true
}

// toStringMap also accepts named map types such as types.Configuration
// and types.Row, hence the reflection fallback.
func toStringMap(value interface{}) (map[string]interface{}, bool) {
	if m, ok := value.(map[string]interface{}); ok {
		return m, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		out := make(map[string]interface{}, rv.Len())
		for _, key := range rv.MapKeys() {
			out[key.String()] = rv.MapIndex(key).Interface()
		}
		return out, true
	}
	return nil, false
}
