//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/nocturne/internal/api/handlers"
	"github.com/cloo-solutions/nocturne/internal/enrich"
	"github.com/cloo-solutions/nocturne/internal/kv"
	"github.com/cloo-solutions/nocturne/internal/llm"
	"github.com/cloo-solutions/nocturne/internal/pipeline"
	"github.com/cloo-solutions/nocturne/internal/server"
	"github.com/cloo-solutions/nocturne/internal/service"
	"github.com/cloo-solutions/nocturne/internal/store"
	"github.com/cloo-solutions/nocturne/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	Backend      kv.Backend
	Model        *FakeModel
	ServerURL    string
	ServerCloser func()
	BinaryDir    string
	HTTPClient   *http.Client
}

// SetupE2EEnv starts a postgres container and serves the API on top of it
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	env := &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		Pool:       pool,
		Backend:    kv.NewPostgres(pool),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
	env.start()
	return env
}

// SetupE2EEnvS3 starts a RustFS container and serves the API on top of it
func SetupE2EEnvS3(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	s3C := testutil.NewRustFSContainer(ctx, t)

	backend, err := kv.NewS3(ctx, kv.S3Config{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     testutil.RustFSAccessKey,
		SecretAccessKey: testutil.RustFSSecretKey,
		Bucket:          "e2e-notes",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 backend: %v", err)
	}
	if err := backend.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	env := &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		RustFSC:    s3C,
		Backend:    backend,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
	env.start()
	return env
}

func (e *E2ETestEnv) start() {
	e.Model = NewFakeModel()

	port, err := getFreePort()
	if err != nil {
		e.T.Fatalf("failed to get free port: %v", err)
	}

	e.ServerURL, e.ServerCloser = startServer(e.T, e.Backend, e.Model.URL(), port)
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Model != nil {
		e.Model.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// BuildBinaries builds the nocturne CLI
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "nocturne-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "nocturne"), "./cmd/nocturne")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build nocturne: %v\n%s", err, out)
	}
}

// RunNocturne runs the nocturne CLI command
func (e *E2ETestEnv) RunNocturne(workDir string, args ...string) (string, error) {
	return e.RunNocturneWithInput(workDir, "", args...)
}

// RunNocturneWithInput runs the nocturne CLI command with stdin input
func (e *E2ETestEnv) RunNocturneWithInput(workDir string, input string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "nocturne"), args...)
	cmd.Dir = workDir
	cmd.Stdin = strings.NewReader(input)
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("NOCTURNE_API_URL=%s", e.ServerURL),
		fmt.Sprintf("HOME=%s", workDir),
		fmt.Sprintf("XDG_CONFIG_HOME=%s", workDir),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, nil)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, body)
}

// Patch performs a PATCH request
func (e *E2ETestEnv) Patch(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest(http.MethodPatch, path, body)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path string) error {
	req, err := http.NewRequest(http.MethodDelete, e.ServerURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, body)
	}
	return nil
}

// PostRaw performs a POST request and returns the undecoded body
func (e *E2ETestEnv) PostRaw(path string, body interface{}) (int, []byte, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal body: %w", err)
	}

	resp, err := e.HTTPClient.Post(e.ServerURL+path, "application/json", bytes.NewReader(jsonData))
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp.StatusCode, respBody, err
}

// Download performs a GET request and returns the raw body and content type
func (e *E2ETestEnv) Download(path string) ([]byte, string, error) {
	resp, err := e.HTTPClient.Get(e.ServerURL + path)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, body)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, e.ServerURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// FakeModel serves OpenAI-compatible chat completions with canned stage output
type FakeModel struct {
	server *httptest.Server
	calls  atomic.Int32
	// FailActions makes the actions stage answer with prose on every call
	FailActions atomic.Bool
}

// NewFakeModel starts a fake completion endpoint
func NewFakeModel() *FakeModel {
	m := &FakeModel{}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// URL returns the base URL to configure the model client with
func (m *FakeModel) URL() string {
	return m.server.URL + "/v1"
}

// Calls returns how many completions were requested
func (m *FakeModel) Calls() int {
	return int(m.calls.Load())
}

// Close stops the server
func (m *FakeModel) Close() {
	m.server.Close()
}

func (m *FakeModel) handle(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
		http.NotFound(w, r)
		return
	}
	m.calls.Add(1)

	var req openai.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	resp := openai.ChatCompletionResponse{
		ID:     "chatcmpl-e2e",
		Object: "chat.completion",
		Model:  req.Model,
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: m.answer(req.Messages[0].Content),
			},
			FinishReason: openai.FinishReasonStop,
		}},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (m *FakeModel) answer(prompt string) string {
	switch {
	case strings.Contains(prompt, "Structured Note JSON"):
		return `{
			"title": "Budget review handoff",
			"key_takeaways": ["Priya owns the budget review", "Deadline is July 4th"],
			"summary": "Priya will run the Q3 budget review and circulate numbers before the holiday.",
			"entities": {"people": ["Priya"], "organizations": ["Finance"], "products": []},
			"topic": "Finance",
			"tags": ["budget", "q3"]
		}`
	case strings.Contains(prompt, "Extract crisp"):
		if m.FailActions.Load() {
			return "I could not find any action items."
		}
		return `{"actions": [
			{"title": "Circulate Q3 budget numbers", "owner": "Priya", "due_date": "2025-07-04", "priority": "high", "confidence": 0.9},
			{"title": "Book review meeting", "owner": null, "due_date": null, "priority": "urgent", "confidence": 3}
		]}`
	default:
		return `{"persona": "Product Manager", "observations": [
			{"headline": "Check variance", "detail": "Compare actuals against the Q2 forecast before circulating."}
		]}`
	}
}

// startServer starts the HTTP server with all handlers
func startServer(t *testing.T, backend kv.Backend, modelURL string, port int) (string, func()) {
	model, err := llm.NewClient(llm.Config{
		APIKey:  "e2e-test-key",
		BaseURL: modelURL,
		Model:   "e2e-model",
	})
	if err != nil {
		t.Fatalf("failed to create model client: %v", err)
	}

	stages := enrich.NewClient(model, enrich.WithTimeout(10*time.Second))
	noteSvc := service.NewNoteService(pipeline.NewOrchestrator(stages), store.New(backend))

	router := server.NewRouter(server.RouterConfig{
		StageHandler:  handlers.NewStageHandler(stages),
		NoteHandler:   handlers.NewNoteHandler(noteSvc),
		ActionHandler: handlers.NewActionHandler(noteSvc),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
