// Package str tests.
package str

import (
	"testing"

	"github.com/bizflow/bizflow/test/assert"
)

func TestExecuteTemplate(t *testing.T) {
	dict := map[string]interface{}{
		"name": "Acme",
		"invoice": map[string]interface{}{
			"number": "INV-7",
			"total":  1015.5,
		},
	}
	assert.Equal(t, "Dear Acme", ExecuteTemplate("Dear ${name}", dict))
	assert.Equal(t, "Invoice INV-7 totals 1015.5",
		ExecuteTemplate("Invoice ${invoice.number} totals ${invoice.total}", dict))
	// unresolved placeholders stay literal
	assert.Equal(t, "Hi ${missing}", ExecuteTemplate("Hi ${missing}", dict))
}

func TestSprintfDict(t *testing.T) {
	dict := map[string]string{"host": "db1", "port": "5432"}
	assert.Equal(t, "db1:5432", SprintfDict("${host}:${port}", dict))
	assert.Equal(t, "${user}@db1", SprintfDict("${user}@${host}", dict))
}

func TestCheckHasVarAndParseVars(t *testing.T) {
	assert.True(t, CheckHasVar("a ${b} c"))
	assert.False(t, CheckHasVar("plain"))
	assert.Equal(t, []string{"a", "b.c"}, ParseVars("${a} and ${b.c}"))
	assert.Nil(t, ParseVars("nothing"))
}

func TestToString(t *testing.T) {
	assert.Equal(t, "", ToString(nil))
	assert.Equal(t, "text", ToString("text"))
	assert.Equal(t, "42", ToString(42))
	assert.Equal(t, "42.5", ToString(42.5))
	assert.Equal(t, "true", ToString(true))
	assert.Equal(t, `{"a":1}`, ToString(map[string]interface{}{"a": 1}))
	assert.Equal(t, `["x","y"]`, ToString([]string{"x", "y"}))
}

func TestConvertDollarPlaceholder(t *testing.T) {
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2",
		ConvertDollarPlaceholder("SELECT * FROM t WHERE a = ? AND b = ?", "postgres"))
	assert.Equal(t, "SELECT * FROM t WHERE a = ?",
		ConvertDollarPlaceholder("SELECT * FROM t WHERE a = ?", "mysql"))
}

func TestContains(t *testing.T) {
	assert.True(t, Contains([]string{"a", "b"}, "b"))
	assert.False(t, Contains([]string{"a", "b"}, "c"))
	assert.False(t, Contains(nil, "a"))
}
