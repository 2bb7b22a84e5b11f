package generation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"trendbot/config"
)

func TestNewCohereRequiresKey(t *testing.T) {
	_, err := NewCohere(config.GenerationConfig{})
	require.ErrorIs(t, err, ErrNoAPIKey)
}

func TestCohereGenerate(t *testing.T) {
	var body map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response_id":"r1","generation_id":"g1","text":"[{\"title\":\"x\"}]","finish_reason":"COMPLETE"}`))
	}))
	defer srv.Close()

	c, err := NewCohere(config.GenerationConfig{APIKey: "secret", Model: "command-r", MaxTokens: 512},
		WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	text, err := c.Generate(context.Background(), "find topics")
	require.NoError(t, err)
	require.Equal(t, `[{"title":"x"}]`, text)
	require.True(t, strings.HasSuffix(auth, "secret"))
	require.Equal(t, "find topics", body["message"])
	require.Equal(t, "command-r", body["model"])
}

func TestFuncAdapter(t *testing.T) {
	var svc Service = Func(func(_ context.Context, prompt string) (string, error) {
		if prompt == "" {
			return "", errors.New("empty prompt")
		}
		return "ok:" + prompt, nil
	})
	out, err := svc.Generate(context.Background(), "p")
	require.NoError(t, err)
	require.Equal(t, "ok:p", out)
}
