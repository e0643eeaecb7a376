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
	"sync"
	"testing"
	"time"
)

// E2ETestEnv holds the built binaries, a working directory laid out like a
// project checkout and a fake OpenAI-compatible API.
type E2ETestEnv struct {
	T          *testing.T
	WorkDir    string
	BinaryDir  string
	LLM        *FakeLLM
	LLMServer  *httptest.Server
	Env        []string
	HTTPClient *http.Client
}

// SetupE2EEnv builds the binaries and prepares data/books in a temp dir.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	workDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(workDir, "data", "books"), 0o755); err != nil {
		t.Fatalf("failed to create data dir: %v", err)
	}

	llm := &FakeLLM{Reply: "The White Rabbit is late for the Duchess."}
	llmServer := httptest.NewServer(llm.Handler())

	env := &E2ETestEnv{
		T:          t,
		WorkDir:    workDir,
		LLM:        llm,
		LLMServer:  llmServer,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Env: []string{
			"OPENAI_API_KEY=test-key",
			"OPENAI_BASE_URL=" + llmServer.URL + "/v1",
			"EMBEDDING_DIMENSIONS=0",
		},
	}
	env.BuildBinaries()
	return env
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.LLMServer != nil {
		e.LLMServer.Close()
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// BuildBinaries builds ragindex, ragquery and ragd
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "ragdocs-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	for _, name := range []string{"ragindex", "ragquery", "ragd"} {
		cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, name), "./cmd/"+name)
		cmd.Dir = "../.."
		if out, err := cmd.CombinedOutput(); err != nil {
			e.T.Fatalf("failed to build %s: %v\n%s", name, err, out)
		}
	}
}

// WriteBook adds a document under data/books and returns its source path
// as the indexer records it.
func (e *E2ETestEnv) WriteBook(name, content string) string {
	rel := filepath.Join("data", "books", name)
	if err := os.WriteFile(filepath.Join(e.WorkDir, rel), []byte(content), 0o644); err != nil {
		e.T.Fatalf("failed to write %s: %v", name, err)
	}
	return rel
}

// CommandResult separates the two output streams of a CLI run.
type CommandResult struct {
	Stdout string
	Stderr string
	Err    error
}

// Run executes one of the built binaries in WorkDir with extra env vars.
func (e *E2ETestEnv) Run(binary string, extraEnv []string, args ...string) CommandResult {
	cmd := exec.Command(filepath.Join(e.BinaryDir, binary), args...)
	cmd.Dir = e.WorkDir
	cmd.Env = append(append(os.Environ(), e.Env...), extraEnv...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return CommandResult{Stdout: stdout.String(), Stderr: stderr.String(), Err: err}
}

// QueryOutput is the JSON object ragquery prints.
type QueryOutput struct {
	Response string    `json:"response"`
	Sources  []*string `json:"sources"`
}

// StartDaemon runs `ragd serve` on a free port until the test ends.
func (e *E2ETestEnv) StartDaemon(extraEnv []string) string {
	port, err := getFreePort()
	if err != nil {
		e.T.Fatalf("failed to get free port: %v", err)
	}

	cmd := exec.Command(filepath.Join(e.BinaryDir, "ragd"), "serve", "--port", fmt.Sprint(port))
	cmd.Dir = e.WorkDir
	cmd.Env = append(append(os.Environ(), e.Env...), extraEnv...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		e.T.Fatalf("failed to start ragd: %v", err)
	}
	e.T.Cleanup(func() {
		_ = cmd.Process.Signal(os.Interrupt)
		done := make(chan struct{})
		go func() {
			_ = cmd.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			_ = cmd.Process.Kill()
		}
	})

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(e.T, serverURL, 15*time.Second)
	return serverURL
}

// APIResponse represents a standard API response
type APIResponse struct {
	Status int
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error,omitempty"`
}

// Post performs a POST request with a JSON body
func (e *E2ETestEnv) Post(url string, body interface{}) (*APIResponse, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(jsonData))
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

	apiResp := APIResponse{Status: resp.StatusCode}
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	return &apiResp, nil
}

// GetText performs a GET request and returns the raw body
func (e *E2ETestEnv) GetText(url string) (int, string, error) {
	resp, err := e.HTTPClient.Get(url)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body), err
}

// FakeLLM is an OpenAI-compatible server. Texts that mention a rabbit embed
// to [1,0,0], texts about the sea to [0,1,0], anything else to [0,0,1].
type FakeLLM struct {
	Reply string

	mu      sync.Mutex
	prompts []string
}

func fakeEmbedding(text string) []float32 {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "rabbit"):
		return []float32{1, 0, 0}
	case strings.Contains(lower, "sea"):
		return []float32{0, 1, 0}
	default:
		return []float32{0, 0, 1}
	}
}

// Prompts returns every chat prompt received so far.
func (f *FakeLLM) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

func (f *FakeLLM) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data := make([]map[string]any, len(req.Input))
		for i, text := range req.Input {
			data[i] = map[string]any{"object": "embedding", "index": i, "embedding": fakeEmbedding(text)}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": "text-embedding-3-small"})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.prompts = append(f.prompts, req.Messages[len(req.Messages)-1].Content)
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-e2e",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": f.Reply},
				"finish_reason": "stop",
			}},
		})
	})
	return mux
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
