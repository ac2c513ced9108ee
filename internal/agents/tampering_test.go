package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStdDev(t *testing.T) {
	assert.Equal(t, 0.0, stdDev(nil))
	assert.Equal(t, 0.0, stdDev([]float64{5}))
	assert.InDelta(t, 2.138089935, stdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 0.01)
}

func TestMaxMinFloat(t *testing.T) {
	vals := []float64{3.5, 1.2, 9.9, -2.0}
	assert.Equal(t, 9.9, maxFloat(vals))
	assert.Equal(t, -2.0, minFloat(vals))
	assert.Equal(t, 0.0, maxFloat(nil))
	assert.Equal(t, 0.0, minFloat(nil))
}

func TestSymmetricDifference(t *testing.T) {
	a := toSet([]string{"Arial", "Helvetica", "Times"})
	b := toSet([]string{"Arial", "Times", "Courier"})
	diff := symmetricDifference(a, b)
	assert.Len(t, diff, 2)
	assert.True(t, diff["Helvetica"])
	assert.True(t, diff["Courier"])
}

func TestUniqueExcluding(t *testing.T) {
	m := map[string]string{
		"a.pdf": "Canva",
		"b.pdf": "Unknown",
		"c.pdf": "Canva",
		"d.pdf": "Error",
		"e.pdf": "Adobe Acrobat",
	}
	assert.Equal(t, []string{"Adobe Acrobat", "Canva"}, uniqueExcluding(m, "Unknown", "Error"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 10))
	assert.Equal(t, "hello", truncate("hello world", 5))
}

func TestIntFromMap(t *testing.T) {
	m := map[string]interface{}{"a": 3, "b": 4.0, "c": "not a number"}
	assert.Equal(t, 3, intFromMap(m, "a"))
	assert.Equal(t, 4, intFromMap(m, "b"))
	assert.Equal(t, 0, intFromMap(m, "c"))
	assert.Equal(t, 0, intFromMap(m, "missing"))
}

func TestComputeRisk_RollupThresholds(t *testing.T) {
	tests := []struct {
		name   string
		checks []Check
		want   string
	}{
		{"all pass", []Check{{Name: "a", Status: "pass"}, {Name: "b", Status: "pass"}}, "low"},
		{"one fail", []Check{{Name: "a", Status: "fail"}, {Name: "b", Status: "pass"}}, "medium"},
		{"two fails", []Check{{Name: "a", Status: "fail"}, {Name: "b", Status: "fail"}}, "high"},
		{"four fails", []Check{{Status: "fail"}, {Status: "fail"}, {Status: "fail"}, {Status: "fail"}}, "critical"},
		{"three warnings", []Check{{Status: "warning"}, {Status: "warning"}, {Status: "warning"}}, "medium"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			risk, _, _ := ComputeRisk(tc.checks)
			assert.Equal(t, tc.want, string(risk))
		})
	}
}
