package openai_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Chuabacca/Medley-AI/pkg/adapters/openai"
	"github.com/Chuabacca/Medley-AI/pkg/domain"
	"github.com/Chuabacca/Medley-AI/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.Backend = (*openai.Backend)(nil)

func collect(t *testing.T, ch <-chan ports.Snapshot) []ports.Snapshot {
	t.Helper()
	var out []ports.Snapshot
	timeout := time.After(5 * time.Second)
	for {
		select {
		case s, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, s)
		case <-timeout:
			t.Fatal("stream did not close")
		}
	}
}

func sse(w http.ResponseWriter, deltas ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	fmt.Fprint(w, ": keep-alive\n\n")
	for _, d := range deltas {
		fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", d)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":\"ignored\"}}]}\n\n")
}

func TestBackend_StreamAccumulates(t *testing.T) {
	var (
		mu   sync.Mutex
		auth string
		body map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		mu.Lock()
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Unlock()
		sse(w, "Before ", "", "we continue.")
	}))
	defer srv.Close()

	b := openai.New(openai.Config{BaseURL: srv.URL + "/v1", APIKey: "sk-test", Model: "m"})
	ch, err := b.GenerateStream(context.Background(), ports.Prompt{Lines: []string{"hello"}})
	require.NoError(t, err)

	var texts []string
	for _, s := range collect(t, ch) {
		require.NoError(t, s.Err)
		texts = append(texts, s.Text)
	}
	assert.Equal(t, []string{"Before ", "Before we continue."}, texts)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "m", body["model"])
	assert.Equal(t, true, body["stream"])
}

func TestBackend_StreamErrorEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"error\":{\"message\":\"rate limited\"}}\n\n")
	}))
	defer srv.Close()

	ch, err := openai.New(openai.Config{BaseURL: srv.URL}).GenerateStream(context.Background(), ports.Prompt{})
	require.NoError(t, err)

	snaps := collect(t, ch)
	require.Len(t, snaps, 2)
	assert.Equal(t, "Hi", snaps[0].Text)
	assert.ErrorContains(t, snaps[1].Err, "rate limited")
}

func TestBackend_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Nil(t, req["stream"])
		temp, ok := req["temperature"].(float64)
		if assert.True(t, ok, "temperature must be sent even at zero") {
			assert.Less(t, temp, 1e-6)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"hairline"}}]}`)
	}))
	defer srv.Close()

	b := openai.New(openai.Config{BaseURL: srv.URL})
	text, err := b.Categorize(context.Background(), ports.Prompt{Lines: []string{"x"}})
	require.NoError(t, err)
	assert.Equal(t, "hairline", text)
}

func TestBackend_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	_, err := openai.New(openai.Config{BaseURL: srv.URL}).Generate(context.Background(), ports.Prompt{})
	assert.Error(t, err)
}

func TestBackend_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	b := openai.New(openai.Config{BaseURL: srv.URL})
	_, err := b.Generate(context.Background(), ports.Prompt{})
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
	_, err = b.GenerateStream(context.Background(), ports.Prompt{})
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
}
