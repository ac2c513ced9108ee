package modelclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textResponse(text string) map[string]interface{} {
	return map[string]interface{}{
		"candidates": []map[string]interface{}{
			{"content": map[string]interface{}{"parts": []map[string]interface{}{{"text": text}}}},
		},
	}
}

func TestCompleteText(t *testing.T) {
	t.Run("not configured fails", func(t *testing.T) {
		c := New("", "", "")
		res := c.CompleteText(context.Background(), []Message{{Role: "user", Content: "hi"}}, 0.2, 100, false)
		assert.False(t, res.Success())
	})

	t.Run("success round trip", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.URL.Path, "gemini-1.5-flash")
			assert.Equal(t, "test-key", r.URL.Query().Get("key"))
			json.NewEncoder(w).Encode(textResponse("hello back"))
		}))
		defer server.Close()

		c := New(server.URL, "test-key", "")
		res := c.CompleteText(context.Background(), []Message{{Role: "user", Content: "hi"}}, 0.2, 100, false)
		require.NoError(t, res.Err)
		assert.Equal(t, "hello back", res.Text)
	})

	t.Run("uses configured deployment", func(t *testing.T) {
		var gotPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			json.NewEncoder(w).Encode(textResponse("ok"))
		}))
		defer server.Close()

		c := NewWithDeployments(server.URL, "k", "custom-deployment", "")
		c.CompleteText(context.Background(), []Message{{Role: "user", Content: "hi"}}, 0, 10, false)
		assert.Contains(t, gotPath, "custom-deployment")
	})

	t.Run("non-200 response fails", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))
		defer server.Close()

		c := New(server.URL, "k", "")
		assert.False(t, c.CompleteText(context.Background(), nil, 0, 10, false).Success())
	})

	t.Run("empty candidates is a failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{"candidates": []map[string]interface{}{}})
		}))
		defer server.Close()

		c := New(server.URL, "k", "")
		assert.False(t, c.CompleteText(context.Background(), nil, 0, 10, false).Success())
	})
}

func TestCompleteVision_UsesVisionDeployment(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(textResponse(`{"status":"pass"}`))
	}))
	defer server.Close()

	c := New(server.URL, "k", "vision-model")
	res := c.CompleteVision(context.Background(), "describe this", []byte{0xff, 0xd8}, "image/jpeg", 0.1, 200)
	require.NoError(t, res.Err)
	assert.Contains(t, gotPath, "vision-model")
}

func TestWithAPIVersion_AppendsQueryParam(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(textResponse("ok"))
	}))
	defer server.Close()

	c := New(server.URL, "k", "").WithAPIVersion("2024-06-01")
	c.CompleteText(context.Background(), nil, 0, 10, false)
	assert.Contains(t, gotQuery, "api-version=2024-06-01")
}
