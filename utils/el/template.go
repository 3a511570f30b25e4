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

// Package el implements ${} expression templates on top of expr-lang.
// A template that is exactly one ${...} placeholder evaluates to the
// expression result with its original type; templates mixing literal text
// and placeholders render to a string.
package el

import (
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/bizflow/bizflow/utils/str"
)

// Template is a parsed ${} template ready for repeated execution.
type Template interface {
	// Execute evaluates the template against data.
	Execute(data map[string]interface{}) (interface{}, error)
	// HasVar reports whether the template references any variable.
	HasVar() bool
}

// matches ${...} placeholders
var placeholderRegex = regexp.MustCompile(`\$\{([^}]*)\}`)

// NewTemplate parses tmpl into an executable template.
func NewTemplate(tmpl string) (Template, error) {
	trimmed := strings.TrimSpace(tmpl)
	if strings.HasPrefix(trimmed, "${") && strings.HasSuffix(trimmed, "}") &&
		len(placeholderRegex.FindAllString(trimmed, -1)) == 1 {
		return newExprTemplate(strings.TrimSuffix(strings.TrimPrefix(trimmed, "${"), "}"))
	}
	if str.CheckHasVar(tmpl) {
		return newMixedTemplate(tmpl)
	}
	return &notTemplate{tmpl: tmpl}, nil
}

// ExecuteToString parses and executes tmpl, rendering the result as a
// string. Convenience for one-shot callers.
func ExecuteToString(tmpl string, data map[string]interface{}) (string, error) {
	t, err := NewTemplate(tmpl)
	if err != nil {
		return "", err
	}
	result, err := t.Execute(data)
	if err != nil {
		return "", err
	}
	return str.ToString(result), nil
}

// exprTemplate evaluates a single expression, e.g. ${invoice.total * 1.5}.
type exprTemplate struct {
	program *vm.Program
}

func newExprTemplate(expression string) (*exprTemplate, error) {
	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}
	return &exprTemplate{program: program}, nil
}

func (t *exprTemplate) Execute(data map[string]interface{}) (interface{}, error) {
	if data == nil {
		data = map[string]interface{}{}
	}
	return expr.Run(t.program, data)
}

func (t *exprTemplate) HasVar() bool {
	return true
}

// mixedTemplate renders literal text with embedded placeholders to a
// string, e.g. "Invoice ${invoice.number} is ${invoice.status}".
type mixedTemplate struct {
	tmpl     string
	programs map[string]*vm.Program
}

func newMixedTemplate(tmpl string) (*mixedTemplate, error) {
	t := &mixedTemplate{tmpl: tmpl, programs: make(map[string]*vm.Program)}
	for _, match := range placeholderRegex.FindAllStringSubmatch(tmpl, -1) {
		expression := strings.TrimSpace(match[1])
		if _, ok := t.programs[expression]; ok {
			continue
		}
		program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
		if err != nil {
			return nil, err
		}
		t.programs[expression] = program
	}
	return t, nil
}

func (t *mixedTemplate) Execute(data map[string]interface{}) (interface{}, error) {
	if data == nil {
		data = map[string]interface{}{}
	}
	result := placeholderRegex.ReplaceAllStringFunc(t.tmpl, func(s string) string {
		match := placeholderRegex.FindStringSubmatch(s)
		program, ok := t.programs[strings.TrimSpace(match[1])]
		if !ok {
			return s
		}
		// an unresolvable placeholder, whether the value is nil or the
		// expression fails over missing data, stays as literal text
		value, err := expr.Run(program, data)
		if err != nil || value == nil {
			return s
		}
		return str.ToString(value)
	})
	return result, nil
}

func (t *mixedTemplate) HasVar() bool {
	return true
}

// notTemplate returns the literal string unchanged.
type notTemplate struct {
	tmpl string
}

func (t *notTemplate) Execute(data map[string]interface{}) (interface{}, error) {
	return t.tmpl, nil
}

func (t *notTemplate) HasVar() bool {
	return false
}
