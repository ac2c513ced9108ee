package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type parsed struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

func TestSmartParse(t *testing.T) {
	t.Run("plain JSON", func(t *testing.T) {
		var out parsed
		require.NoError(t, SmartParse(`{"status":"pass","count":3}`, &out))
		assert.Equal(t, parsed{Status: "pass", Count: 3}, out)
	})

	t.Run("markdown fence stripped", func(t *testing.T) {
		var out parsed
		require.NoError(t, SmartParse("```json\n{\"status\":\"fail\",\"count\":1}\n```", &out))
		assert.Equal(t, parsed{Status: "fail", Count: 1}, out)
	})

	t.Run("json-repair recovers trailing comma", func(t *testing.T) {
		var out parsed
		require.NoError(t, SmartParse(`{"status": "warning", "count": 2,}`, &out))
		assert.Equal(t, parsed{Status: "warning", Count: 2}, out)
	})

	t.Run("hjson fallback recovers unquoted keys", func(t *testing.T) {
		var out parsed
		require.NoError(t, SmartParse("{status: pass, count: 5}", &out))
		assert.Equal(t, parsed{Status: "pass", Count: 5}, out)
	})

	t.Run("unparseable input errors", func(t *testing.T) {
		var out parsed
		assert.Error(t, SmartParse("not json at all {{{", &out))
	})
}

func TestMustRepair(t *testing.T) {
	t.Run("falls back to a non-empty object", func(t *testing.T) {
		assert.NotEmpty(t, MustRepair("{{{ not json"))
	})

	t.Run("repaired output itself parses", func(t *testing.T) {
		got := MustRepair(`{"a": 1,}`)
		var out map[string]interface{}
		assert.NoError(t, SmartParse(got, &out))
	})
}
