package client

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClient_GetDecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/notes", r.URL.Path)
		assert.Equal(t, "login", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"items":[],"has_more":false}}`))
	}))
	defer srv.Close()

	resp, err := NewAPIClientWithURL(srv.URL+"/").Get("/notes", url.Values{"q": {"login"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[],"has_more":false}`, string(resp.Data))
}

func TestAPIClient_PostSendsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"transcript":"hi"}`, string(body))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	_, err := NewAPIClientWithURL(srv.URL).Post("/notes", CaptureRequest{Transcript: "hi"})
	require.NoError(t, err)
}

func TestAPIClient_ErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"note not found"}`))
	}))
	defer srv.Close()

	_, err := NewAPIClientWithURL(srv.URL).Get("/notes/x", nil)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "note not found", apiErr.Message)
	assert.Equal(t, "API error (404): note not found", apiErr.Error())
}

func TestAPIClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewAPIClientWithURL(srv.URL).Delete("/notes/x")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "bad gateway", apiErr.Message)
}

func TestAPIClient_DeleteNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	resp, err := NewAPIClientWithURL(srv.URL).Delete("/notes/x")
	require.NoError(t, err)
	assert.Empty(t, resp.Data)
}

func TestAPIClient_Download(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ics", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Write([]byte("BEGIN:VCALENDAR\r\n"))
	}))
	defer srv.Close()

	body, contentType, err := NewAPIClientWithURL(srv.URL).Download("/notes/x/export", url.Values{"format": {"ics"}})
	require.NoError(t, err)
	assert.Equal(t, "BEGIN:VCALENDAR\r\n", string(body))
	assert.Equal(t, "text/calendar; charset=utf-8", contentType)
}

func TestAPIClient_DownloadError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "no action items with due dates found"})
	}))
	defer srv.Close()

	_, _, err := NewAPIClientWithURL(srv.URL).Download("/notes/x/export", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no action items with due dates found")
}

func TestNewAPIClientWithCmd_Cascade(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	oldGetConfigPath := getConfigPathFunc
	getConfigPathFunc = func() (string, error) { return configPath, nil }
	defer func() { getConfigPathFunc = oldGetConfigPath }()

	t.Setenv(envAPIURL, "")
	api, err := NewAPIClientWithCmd(nil)
	require.NoError(t, err)
	assert.Equal(t, defaultAPIURL, api.baseURL)

	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIURL: "http://config:1"}))
	api, err = NewAPIClientWithCmd(nil)
	require.NoError(t, err)
	assert.Equal(t, "http://config:1", api.baseURL)

	t.Setenv(envAPIURL, "http://env:2")
	api, err = NewAPIClientWithCmd(nil)
	require.NoError(t, err)
	assert.Equal(t, "http://env:2", api.baseURL)

	cmd := &cobra.Command{}
	cmd.Flags().String("api-url", "", "")
	require.NoError(t, cmd.Flags().Set("api-url", "http://flag:3"))
	api, err = NewAPIClientWithCmd(cmd)
	require.NoError(t, err)
	assert.Equal(t, "http://flag:3", api.baseURL)
}
