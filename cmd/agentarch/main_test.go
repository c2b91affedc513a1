package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aixgo-dev/agentarch/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("SESSION_STORE", "memory")
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommands(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{"list", []string{"list"}, "tree_of_thoughts\n", false},
		{"show", []string{"show", "rlhf"}, "name: rlhf_root", false},
		{"show unknown", []string{"show", "nope"}, "", true},
		{"run", []string{"run", "default", "--model", "mock", "-m", "hello"}, "[default_agent] hello\n", false},
		{"run events", []string{"run", "rlhf", "--events"}, "[revise_agent] Revised: applied fixes to A/B/C\n", false},
		{"run cellular", []string{"run", "cellular_automata", "-m", "hello world"}, "Hello, World!", false},
		{"schedule bad cron", []string{"schedule", "default", "--cron", "not a cron"}, "", true},
		{"models unsupported", []string{"models", "--provider", "openai"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestRefArg(t *testing.T) {
	tests := []struct {
		name string
		env  string
		args []string
		want string
	}{
		{"explicit argument", "rlhf", []string{"graph"}, "graph"},
		{"environment override", "rlhf", nil, "rlhf"},
		{"default entry", "", nil, "default"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("AGENT_CONFIG", tt.env)
			assert.Equal(t, tt.want, refArg(tt.args))
		})
	}

	t.Run("run without an argument uses AGENT_CONFIG", func(t *testing.T) {
		t.Setenv("AGENT_CONFIG", "rlhf")
		out, err := execute(t, "run", "--events")
		require.NoError(t, err)
		assert.Contains(t, out, "[revise_agent] Revised: applied fixes to A/B/C\n")
	})
}

func newTestApp(t *testing.T) *app {
	t.Helper()
	t.Setenv("SESSION_STORE", "memory")
	a, err := openApp(context.Background(), &globalOptions{model: "mock", user: "tester", memory: "memory", burst: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServeRun(t *testing.T) {
	a := newTestApp(t)
	h := a.routes(0).Handler()

	rec := post(t, h, "/v1/run/default", `{"message": "hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var first runResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.Equal(t, "[default_agent] hi", first.Response)
	assert.NotEmpty(t, first.SessionID)
	assert.Len(t, first.Events, 1)

	rec = post(t, h, "/v1/run/default", `{"session_id": "`+first.SessionID+`", "message": "again"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var second runResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, first.SessionID, second.SessionID)

	sess, err := a.sessions.Get(context.Background(), first.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "tester", sess.UserID)
	assert.Len(t, sess.Events, 4)
}

func TestServeErrors(t *testing.T) {
	h := newTestApp(t).routes(0).Handler()

	t.Run("unknown architecture", func(t *testing.T) {
		rec := post(t, h, "/v1/run/nope", `{"message": "hi"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, security.ErrCodeNotFound, resp.Error.Code)
	})

	t.Run("bad body", func(t *testing.T) {
		rec := post(t, h, "/v1/run/default", `{`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("health", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
