// Package str provides utility functions for string manipulation and
// template substitution used throughout the engine:
// - ExecuteTemplate: replaces ${} variables in string templates
// - SprintfDict: formats strings using a dictionary for variable substitution
// - ToString: converts various types to string representations
// - ConvertDollarPlaceholder: rewrites SQL placeholders per driver
package str

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bizflow/bizflow/utils/json"
	"github.com/bizflow/bizflow/utils/maps"
)

const varPatternLeft = "${"
const varPatternRight = "}"

// matches ${aa} or ${aa.bb}
var tplVarRegex = regexp.MustCompile(`\$\{ *([^}]+) *\}`)

// ExecuteTemplate replaces ${key} placeholders in original with values
// from dict. Multi-level variables such as ${key.subKey} are supported.
// Placeholders without a matching value are kept as-is.
func ExecuteTemplate(original string, dict map[string]interface{}) string {
	return tplVarRegex.ReplaceAllStringFunc(original, func(s string) string {
		matches := tplVarRegex.FindStringSubmatch(s)
		if len(matches) < 2 {
			return s
		}
		v := maps.Get(dict, strings.TrimSpace(matches[1]))
		if v == nil {
			return s
		}
		return ToString(v)
	})
}

// SprintfDict replaces ${key} placeholders in original with values from
// dict. Multi-level variables are not supported. Placeholders without a
// matching value are kept as-is.
func SprintfDict(original string, dict map[string]string) string {
	return tplVarRegex.ReplaceAllStringFunc(original, func(s string) string {
		matches := tplVarRegex.FindStringSubmatch(s)
		if len(matches) < 2 {
			return s
		}
		result, ok := dict[strings.TrimSpace(matches[1])]
		if !ok {
			return s
		}
		return result
	})
}

// CheckHasVar checks if the string contains ${} variables.
func CheckHasVar(str string) bool {
	return strings.Contains(str, varPatternLeft) && strings.Contains(str, varPatternRight)
}

// ParseVars returns the variable names referenced by ${} placeholders.
func ParseVars(str string) []string {
	matches := tplVarRegex.FindAllStringSubmatch(str, -1)
	var result []string
	for _, match := range matches {
		if len(match) > 1 {
			result = append(result, strings.TrimSpace(match[1]))
		}
	}
	return result
}

// ToString converts input to a string, ignoring errors.
func ToString(input interface{}) string {
	v, _ := ToStringMaybeErr(input)
	return v
}

// ToStringMaybeErr converts input to a string. Maps and slices are
// rendered as JSON.
func ToStringMaybeErr(input interface{}) (string, error) {
	switch v := input.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case fmt.Stringer:
		return v.String(), nil
	case error:
		return v.Error(), nil
	case map[string]interface{}, []interface{}, []string:
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v), nil
		}
		return strings.Trim(string(b), `"`), nil
	}
}

// ConvertDollarPlaceholder converts ? placeholders to $1, $2... for the
// postgres driver; the mysql driver keeps ? placeholders.
func ConvertDollarPlaceholder(sql, dbType string) string {
	if dbType == "postgres" {
		var count = 1
		for strings.Contains(sql, "?") {
			sql = strings.Replace(sql, "?", "$"+strconv.Itoa(count), 1)
			count++
		}
	}
	return sql
}

// Contains reports whether target is present in list.
func Contains(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}
	return false
}
