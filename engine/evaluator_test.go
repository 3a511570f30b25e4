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
	"errors"
	"testing"

	"github.com/bizflow/bizflow/api/types"
	"github.com/bizflow/bizflow/test/assert"
)

func TestEvaluateConditionsEmpty(t *testing.T) {
	assert.True(t, EvaluateConditions(nil, types.Configuration{"a": 1}))
	assert.True(t, EvaluateConditions([]types.Condition{}, nil))
}

func TestEvaluateOperators(t *testing.T) {
	context := types.Configuration{
		"status":    "pending",
		"amount":    1500.0,
		"count":     "3",
		"tags":      []interface{}{"vip", "late"},
		"note":      "",
		"invoice":   map[string]interface{}{"total": 250, "status": "sent"},
		"remaining": 0,
	}
	cases := []struct {
		name      string
		condition types.Condition
		want      bool
	}{
		{"equals string", types.Condition{Field: "status", Operator: types.OperatorEquals, Value: "pending"}, true},
		{"equals numeric coercion", types.Condition{Field: "count", Operator: types.OperatorEquals, Value: 3}, true},
		{"equals zero", types.Condition{Field: "remaining", Operator: types.OperatorEquals, Value: 0}, true},
		{"not equals", types.Condition{Field: "status", Operator: types.OperatorNotEquals, Value: "paid"}, true},
		{"greater than", types.Condition{Field: "amount", Operator: types.OperatorGreaterThan, Value: 1000}, true},
		{"greater than false", types.Condition{Field: "amount", Operator: types.OperatorGreaterThan, Value: 2000}, false},
		{"less than string number", types.Condition{Field: "count", Operator: types.OperatorLessThan, Value: 5}, true},
		{"gte boundary", types.Condition{Field: "amount", Operator: types.OperatorGte, Value: 1500}, true},
		{"lte boundary", types.Condition{Field: "amount", Operator: types.OperatorLte, Value: 1500}, true},
		{"contains substring", types.Condition{Field: "status", Operator: types.OperatorContains, Value: "pend"}, true},
		{"contains list element", types.Condition{Field: "tags", Operator: types.OperatorContains, Value: "vip"}, true},
		{"not contains", types.Condition{Field: "tags", Operator: types.OperatorNotContains, Value: "gold"}, true},
		{"is empty", types.Condition{Field: "note", Operator: types.OperatorIsEmpty}, true},
		{"is not empty", types.Condition{Field: "status", Operator: types.OperatorIsNotEmpty}, true},
		{"in list", types.Condition{Field: "status", Operator: types.OperatorIn, Value: []interface{}{"draft", "pending"}}, true},
		{"in list miss", types.Condition{Field: "status", Operator: types.OperatorIn, Value: []interface{}{"paid"}}, false},
		{"nested field", types.Condition{Field: "invoice.total", Operator: types.OperatorGreaterThan, Value: 100}, true},
		{"nested equals", types.Condition{Field: "invoice.status", Operator: types.OperatorEquals, Value: "sent"}, true},
		{"expr", types.Condition{Operator: types.OperatorExpr, Value: "amount > 1000 && status == 'pending'"}, true},
		{"expr false", types.Condition{Operator: types.OperatorExpr, Value: "amount > 9000"}, false},
	}
	for _, item := range cases {
		got := EvaluateConditions([]types.Condition{item.condition}, context)
		assert.Equal(t, item.want, got, item.name)
	}
}

func TestEvaluateMissingField(t *testing.T) {
	context := types.Configuration{"present": "x"}
	// a missing path is undefined: it matches nothing except is-empty
	assert.False(t, EvaluateConditions([]types.Condition{
		{Field: "absent", Operator: types.OperatorEquals, Value: ""},
	}, context))
	assert.False(t, EvaluateConditions([]types.Condition{
		{Field: "absent.deep", Operator: types.OperatorNotEquals, Value: "x"},
	}, context))
	assert.True(t, EvaluateConditions([]types.Condition{
		{Field: "absent", Operator: types.OperatorIsEmpty},
	}, context))
	assert.False(t, EvaluateConditions([]types.Condition{
		{Field: "absent", Operator: types.OperatorIsNotEmpty},
	}, context))
}

func TestEvaluateCoercionFailureIsFalse(t *testing.T) {
	context := types.Configuration{"status": "pending"}
	assert.False(t, EvaluateConditions([]types.Condition{
		{Field: "status", Operator: types.OperatorGreaterThan, Value: 10},
	}, context))
	assert.False(t, EvaluateConditions([]types.Condition{
		{Field: "status", Operator: types.OperatorIn, Value: "not-a-list"},
	}, context))
}

func TestEvaluateJoinFold(t *testing.T) {
	context := types.Configuration{"a": 1, "b": 2, "c": 3}
	eq := func(field string, value int, join types.Join) types.Condition {
		return types.Condition{Field: field, Operator: types.OperatorEquals, Value: value, Join: join}
	}
	// (a==1 AND b==2) is true; empty join defaults to AND
	assert.True(t, EvaluateConditions([]types.Condition{eq("a", 1, ""), eq("b", 2, "")}, context))
	// (a==9 OR b==2) folds to true
	assert.True(t, EvaluateConditions([]types.Condition{eq("a", 9, types.JoinOr), eq("b", 2, "")}, context))
	// ((a==9 OR b==2) AND c==9) folds to false
	assert.False(t, EvaluateConditions([]types.Condition{
		eq("a", 9, types.JoinOr), eq("b", 2, types.JoinAnd), eq("c", 9, ""),
	}, context))
	// ((a==9 AND b==2) OR c==3) folds to true
	assert.True(t, EvaluateConditions([]types.Condition{
		eq("a", 9, types.JoinAnd), eq("b", 2, types.JoinOr), eq("c", 3, ""),
	}, context))
}

func TestValidateConditions(t *testing.T) {
	assert.Nil(t, ValidateConditions(nil))
	assert.Nil(t, ValidateConditions([]types.Condition{
		{Field: "status", Operator: types.OperatorEquals, Value: "paid"},
		{Field: "note", Operator: types.OperatorIsEmpty, Join: types.JoinOr},
		{Operator: types.OperatorExpr, Value: "amount > 0"},
	}))

	err := ValidateConditions([]types.Condition{{Field: "a", Operator: "like", Value: "x"}})
	assert.True(t, errors.Is(err, types.ErrInvalidOperator))

	err = ValidateConditions([]types.Condition{{Field: "a", Operator: types.OperatorEquals, Value: 1, Join: "XOR"}})
	assert.True(t, errors.Is(err, types.ErrInvalidJoin))

	err = ValidateConditions([]types.Condition{{Operator: types.OperatorEquals, Value: 1}})
	assert.NotNil(t, err)

	err = ValidateConditions([]types.Condition{{Operator: types.OperatorExpr, Value: "amount >"}})
	assert.NotNil(t, err)

	err = ValidateConditions([]types.Condition{{Field: "a", Operator: types.OperatorIn, Value: "x"}})
	assert.NotNil(t, err)
}
