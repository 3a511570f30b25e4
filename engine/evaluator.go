/*
 * Copyright 2025 The BizFlow Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package engine

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/bizflow/bizflow/api/types"
	"github.com/bizflow/bizflow/utils/cast"
	"github.com/bizflow/bizflow/utils/maps"
	"github.com/bizflow/bizflow/utils/str"
)

// undefinedValue marks a field path that does not resolve in the context.
// Distinct from nil so is-empty can treat a present-but-nil value and a
// missing path the same while equals treats neither as a match.
type undefinedType struct{}

var undefinedValue = undefinedType{}

var validOperators = map[types.Operator]bool{
	types.OperatorEquals:      true,
	types.OperatorNotEquals:   true,
	types.OperatorGreaterThan: true,
	types.OperatorLessThan:    true,
	types.OperatorGte:         true,
	types.OperatorLte:         true,
	types.OperatorContains:    true,
	types.OperatorNotContains: true,
	types.OperatorIsEmpty:     true,
	types.OperatorIsNotEmpty:  true,
	types.OperatorIn:          true,
	types.OperatorExpr:        true,
}

// ValidateConditions rejects malformed conditions at authoring time.
// Evaluation never raises; everything that can be wrong is caught here.
func ValidateConditions(conditions []types.Condition) error {
	for i, condition := range conditions {
		if !validOperators[condition.Operator] {
			return fmt.Errorf("condition %d: %w: %q", i, types.ErrInvalidOperator, condition.Operator)
		}
		switch condition.Join {
		case "", types.JoinAnd, types.JoinOr:
		default:
			return fmt.Errorf("condition %d: %w: %q", i, types.ErrInvalidJoin, condition.Join)
		}
		switch condition.Operator {
		case types.OperatorIsEmpty, types.OperatorIsNotEmpty:
			// no value needed
		case types.OperatorExpr:
			expression := str.ToString(condition.Value)
			if expression == "" {
				return fmt.Errorf("condition %d: expr operator needs an expression", i)
			}
			if _, err := expr.Compile(expression, expr.AllowUndefinedVariables()); err != nil {
				return fmt.Errorf("condition %d: %v", i, err)
			}
		case types.OperatorIn:
			if !isList(condition.Value) {
				return fmt.Errorf("condition %d: in operator needs a list value", i)
			}
		default:
			if condition.Field == "" {
				return fmt.Errorf("condition %d: field is required", i)
			}
		}
	}
	return nil
}

// EvaluateConditions folds the condition list left to right against the
// context. The empty list is vacuously true. Each condition's Join
// combines its accumulated result with the next condition; empty Join
// means AND. Evaluation is side-effect free and never raises: anything
// non-coercible simply evaluates to false.
func EvaluateConditions(conditions []types.Condition, context types.Configuration) bool {
	if len(conditions) == 0 {
		return true
	}
	result := evaluateCondition(conditions[0], context)
	for i := 1; i < len(conditions); i++ {
		next := evaluateCondition(conditions[i], context)
		if conditions[i-1].Join == types.JoinOr {
			result = result || next
		} else {
			result = result && next
		}
	}
	return result
}

func evaluateCondition(condition types.Condition, context types.Configuration) bool {
	field := resolveField(context, condition.Field)
	switch condition.Operator {
	case types.OperatorEquals:
		return equalValues(field, condition.Value)
	case types.OperatorNotEquals:
		return !equalValues(field, condition.Value)
	case types.OperatorGreaterThan:
		return compareNumeric(field, condition.Value, func(a, b float64) bool { return a > b })
	case types.OperatorLessThan:
		return compareNumeric(field, condition.Value, func(a, b float64) bool { return a < b })
	case types.OperatorGte:
		return compareNumeric(field, condition.Value, func(a, b float64) bool { return a >= b })
	case types.OperatorLte:
		return compareNumeric(field, condition.Value, func(a, b float64) bool { return a <= b })
	case types.OperatorContains:
		return containsValue(field, condition.Value)
	case types.OperatorNotContains:
		return !containsValue(field, condition.Value)
	case types.OperatorIsEmpty:
		return isEmptyValue(field)
	case types.OperatorIsNotEmpty:
		return !isEmptyValue(field)
	case types.OperatorIn:
		return inList(field, condition.Value)
	case types.OperatorExpr:
		return evaluateExpr(condition.Value, context)
	default:
		// unreachable for rules that passed authoring validation
		return false
	}
}

func resolveField(context types.Configuration, path string) interface{} {
	if path == "" {
		return undefinedValue
	}
	m := map[string]interface{}(context)
	if !maps.Has(m, path) {
		return undefinedValue
	}
	return maps.Get(m, path)
}

func isUndefined(value interface{}) bool {
	_, ok := value.(undefinedType)
	return ok
}

// equalValues compares numerically when both sides coerce to numbers,
// by string rendering otherwise. The undefined sentinel equals nothing.
func equalValues(field, value interface{}) bool {
	if isUndefined(field) {
		return false
	}
	a, errA := cast.ToFloat64E(field)
	b, errB := cast.ToFloat64E(value)
	if errA == nil && errB == nil {
		return a == b
	}
	return str.ToString(field) == str.ToString(value)
}

func compareNumeric(field, value interface{}, cmp func(a, b float64) bool) bool {
	if isUndefined(field) {
		return false
	}
	a, errA := cast.ToFloat64E(field)
	b, errB := cast.ToFloat64E(value)
	if errA != nil || errB != nil {
		return false
	}
	return cmp(a, b)
}

func containsValue(field, value interface{}) bool {
	if isUndefined(field) {
		return false
	}
	want := str.ToString(value)
	if items, ok := listItems(field); ok {
		for _, item := range items {
			if str.ToString(item) == want {
				return true
			}
		}
		return false
	}
	return strings.Contains(str.ToString(field), want)
}

func isEmptyValue(field interface{}) bool {
	if isUndefined(field) || field == nil {
		return true
	}
	return str.ToString(field) == ""
}

// inList reports whether the field equals any element of the configured
// list. A non-list value never matches.
func inList(field, value interface{}) bool {
	if isUndefined(field) {
		return false
	}
	items, ok := listItems(value)
	if !ok {
		return false
	}
	for _, item := range items {
		if equalValues(field, item) {
			return true
		}
	}
	return false
}

func evaluateExpr(value interface{}, context types.Configuration) bool {
	expression := str.ToString(value)
	if expression == "" {
		return false
	}
	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return false
	}
	result, err := expr.Run(program, map[string]interface{}(context))
	if err != nil {
		return false
	}
	b, ok := result.(bool)
	return ok && b
}

func isList(value interface{}) bool {
	_, ok := listItems(value)
	return ok
}

func listItems(value interface{}) ([]interface{}, bool) {
	switch v := value.(type) {
	case []interface{}:
		return v, true
	case []string:
		out := make([]interface{}, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	case nil, string, []byte:
		return nil, false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	}
	return nil, false
}
