package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdftranslate/client/internal/model"
)

const minimalPDF = "%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n"

// syncBuffer is written by the renderer goroutines and read by the test
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// fakeBackend serves /generate-url, the presigned PUT target and /status
type fakeBackend struct {
	srv         *httptest.Server
	status      model.JobStatus
	calls       atomic.Int32
	contentType atomic.Value
	uploaded    atomic.Value
}

func newFakeBackend(t *testing.T, status model.JobStatus) *fakeBackend {
	t.Helper()
	b := &fakeBackend{status: status}

	mux := http.NewServeMux()
	mux.HandleFunc("/generate-url", func(w http.ResponseWriter, r *http.Request) {
		b.calls.Add(1)
		inner, _ := json.Marshal(map[string]string{"url": b.srv.URL + "/put", "request_id": "req-1"})
		_ = json.NewEncoder(w).Encode(map[string]string{"body": string(inner)})
	})
	mux.HandleFunc("/put", func(w http.ResponseWriter, r *http.Request) {
		b.calls.Add(1)
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var body bytes.Buffer
		_, _ = body.ReadFrom(r.Body)
		b.contentType.Store(r.Header.Get("Content-Type"))
		b.uploaded.Store(body.String())
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		b.calls.Add(1)
		if r.URL.Query().Get("request_id") != "req-1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		resp := map[string]string{"status": string(b.status)}
		if b.status == model.JobStatusCompleted {
			resp["translated_text"] = "hola"
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

// isolateEnv points every env-configured setting somewhere the flags must override
func isolateEnv(t *testing.T) string {
	t.Helper()
	envOut := t.TempDir()
	t.Setenv("API_URL", "http://127.0.0.1:1")
	t.Setenv("POLL_INTERVAL_MS", "600000")
	t.Setenv("OUTPUT_DIR", envOut)
	t.Setenv("API_MAX_WAIT", "0")
	return envOut
}

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out, errOut syncBuffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)

	err = root.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func TestUpload_FlagsOverrideEnvAndTranslate(t *testing.T) {
	envOut := isolateEnv(t)
	backend := newFakeBackend(t, model.JobStatusCompleted)
	outDir := t.TempDir()
	input := writeInput(t, "report.pdf", minimalPDF)

	stdout, _, err := runCLI(t, "upload", input,
		"--api-url", backend.srv.URL,
		"--poll-interval", "5",
		"-o", outDir,
	)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, "report.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hola", string(data))

	entries, err := os.ReadDir(envOut)
	require.NoError(t, err)
	assert.Empty(t, entries, "env output dir must not be used")

	assert.Equal(t, model.ContentTypePDF, backend.contentType.Load())
	assert.Equal(t, minimalPDF, backend.uploaded.Load())
	assert.Contains(t, stdout, "Download report.txt")
	assert.Contains(t, stdout, "100%")
}

func TestUpload_RenamedTextFileRejectedWithoutNetwork(t *testing.T) {
	isolateEnv(t)
	backend := newFakeBackend(t, model.JobStatusCompleted)
	input := writeInput(t, "notes.pdf", "just some plain text, not a PDF\n")

	_, stderr, err := runCLI(t, "upload", input, "--api-url", backend.srv.URL, "--poll-interval", "5")
	require.ErrorIs(t, err, errReported)
	assert.Contains(t, stderr, "Only PDF files are allowed")
	assert.Zero(t, backend.calls.Load())
}

func TestUpload_FailedTranslation(t *testing.T) {
	isolateEnv(t)
	backend := newFakeBackend(t, model.JobStatusFailed)
	outDir := t.TempDir()
	input := writeInput(t, "report.pdf", minimalPDF)

	_, stderr, err := runCLI(t, "upload", input,
		"--api-url", backend.srv.URL,
		"--poll-interval", "5",
		"-o", outDir,
	)
	require.ErrorIs(t, err, errReported)
	assert.Contains(t, stderr, "Translation failed. Please try again.")

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpload_InvalidPollIntervalFlag(t *testing.T) {
	isolateEnv(t)
	backend := newFakeBackend(t, model.JobStatusCompleted)
	input := writeInput(t, "report.pdf", minimalPDF)

	_, _, err := runCLI(t, "upload", input, "--api-url", backend.srv.URL, "--poll-interval", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Zero(t, backend.calls.Load())
}

func TestUpload_InvalidAPIURLFlag(t *testing.T) {
	isolateEnv(t)
	input := writeInput(t, "report.pdf", minimalPDF)

	_, _, err := runCLI(t, "upload", input, "--api-url", "not a url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestUpload_RequiresOneArgument(t *testing.T) {
	isolateEnv(t)

	_, _, err := runCLI(t, "upload")
	require.Error(t, err)
}

func TestReadFile_SniffsContentType(t *testing.T) {
	file, err := readFile(writeInput(t, "report.pdf", minimalPDF))
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", file.Name)
	assert.Equal(t, model.ContentTypePDF, file.ContentType)

	// extension is not trusted
	file, err = readFile(writeInput(t, "notes.pdf", "hello\n"))
	require.NoError(t, err)
	assert.NotEqual(t, model.ContentTypePDF, file.ContentType)

	_, err = readFile(filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
}

func TestLimiterRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	alive := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer alive.Close()
	assert.Same(t, alive, limiterRedis(context.Background(), alive))

	dead := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer dead.Close()
	assert.Nil(t, limiterRedis(context.Background(), dead))
}
