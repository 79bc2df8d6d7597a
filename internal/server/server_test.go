package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repostat/internal/model"
	"repostat/internal/repo"
)

// fakeCloner 记录克隆地址，并在临时目录中创建工作区。
type fakeCloner struct {
	t    *testing.T
	err  error
	mu   sync.Mutex
	urls []string
	dirs []string
}

func (f *fakeCloner) Clone(_ context.Context, url string) (*repo.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, f.err
	}
	dir, err := os.MkdirTemp(f.t.TempDir(), "ws-")
	require.NoError(f.t, err)
	f.dirs = append(f.dirs, dir)
	return &repo.Workspace{Dir: dir}, nil
}

func fixedResult() model.AnalysisResult {
	aggregator := model.NewAggregator()
	aggregator.Fold(model.FileRecord{Path: "src/main.go", Lines: 40, FileType: ".go", Size: 900})
	aggregator.Fold(model.FileRecord{Path: "README.md", Lines: 10, FileType: ".md", Size: 300})
	return aggregator.Finalize()
}

func postStats(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	request := httptest.NewRequest(http.MethodPost, "/api/stats", strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	handler := New(&fakeCloner{t: t}, nil, Config{}, nil).Handler()

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "*", recorder.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "ok", decodeBody(t, recorder)["status"])
}

func TestPreflight(t *testing.T) {
	handler := New(&fakeCloner{t: t}, nil, Config{}, nil).Handler()

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodOptions, "/api/stats", nil))

	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Contains(t, recorder.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestStatsSuccessRemovesWorkspace(t *testing.T) {
	cloner := &fakeCloner{t: t}
	var analyzed string
	analyze := func(dir string) (model.AnalysisResult, error) {
		analyzed = dir
		return fixedResult(), nil
	}
	handler := New(cloner, analyze, Config{}, nil).Handler()

	recorder := postStats(t, handler, `{"repoUrl":"https://github.com/octo/hello.git","owner":"octo","repo":"hello"}`)

	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	body := decodeBody(t, recorder)
	assert.EqualValues(t, 50, body["totalLines"])
	assert.EqualValues(t, 2, body["totalFiles"])
	assert.Equal(t, false, body["processing"])
	assert.Equal(t, false, body["cached"])

	stats := body["stats"].(map[string]any)
	folders := stats["folderStats"].(map[string]any)
	assert.Contains(t, folders, "src")

	require.Len(t, cloner.dirs, 1)
	assert.Equal(t, cloner.dirs[0], analyzed)
	assert.Eventually(t, func() bool {
		_, err := os.Stat(analyzed)
		return os.IsNotExist(err)
	}, time.Second, 10*time.Millisecond)
}

func TestStatsBuildsGitHubURL(t *testing.T) {
	cloner := &fakeCloner{t: t}
	analyze := func(string) (model.AnalysisResult, error) { return fixedResult(), nil }
	handler := New(cloner, analyze, Config{}, nil).Handler()

	recorder := postStats(t, handler, `{"owner":"octo","repo":"hello"}`)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, []string{"https://github.com/octo/hello.git"}, cloner.urls)
}

func TestStatsDerivesOwnerFromURL(t *testing.T) {
	cloner := &fakeCloner{t: t}
	analyze := func(string) (model.AnalysisResult, error) { return fixedResult(), nil }
	handler := New(cloner, analyze, Config{}, nil).Handler()

	recorder := postStats(t, handler, `{"repoUrl":"git@github.com:octo/hello.git"}`)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, []string{"git@github.com:octo/hello.git"}, cloner.urls)
}

func TestStatsBadRequests(t *testing.T) {
	handler := New(&fakeCloner{t: t}, nil, Config{}, nil).Handler()

	for _, body := range []string{`not json`, `{}`, `{"owner":"octo"}`} {
		recorder := postStats(t, handler, body)
		assert.Equal(t, http.StatusBadRequest, recorder.Code, body)
		assert.NotEmpty(t, decodeBody(t, recorder)["error"], body)
	}
}

func TestStatsCloneFailure(t *testing.T) {
	cloner := &fakeCloner{t: t, err: errors.New("repository not found")}
	handler := New(cloner, nil, Config{}, nil).Handler()

	recorder := postStats(t, handler, `{"owner":"octo","repo":"missing"}`)

	assert.Equal(t, http.StatusBadGateway, recorder.Code)
	assert.Contains(t, decodeBody(t, recorder)["error"], "repository not found")
}

func TestStatsAnalysisFailure(t *testing.T) {
	analyze := func(string) (model.AnalysisResult, error) {
		return model.AnalysisResult{}, errors.New("disk on fire")
	}
	handler := New(&fakeCloner{t: t}, analyze, Config{}, nil).Handler()

	recorder := postStats(t, handler, `{"owner":"octo","repo":"hello"}`)

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}

func TestStatsAnalysisTimeout(t *testing.T) {
	release := make(chan struct{})
	cloner := &fakeCloner{t: t}
	analyze := func(string) (model.AnalysisResult, error) {
		<-release
		return fixedResult(), nil
	}
	handler := New(cloner, analyze, Config{AnalysisTimeout: 20 * time.Millisecond}, nil).Handler()

	recorder := postStats(t, handler, `{"owner":"octo","repo":"slow"}`)
	close(release)

	assert.Equal(t, http.StatusGatewayTimeout, recorder.Code)
	require.Len(t, cloner.dirs, 1)
	assert.Eventually(t, func() bool {
		_, err := os.Stat(cloner.dirs[0])
		return os.IsNotExist(err)
	}, time.Second, 10*time.Millisecond)
}

func TestStatusEndpoint(t *testing.T) {
	handler := New(&fakeCloner{t: t}, nil, Config{}, nil).Handler()

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/stats/status/octo/hello", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, false, decodeBody(t, recorder)["ready"])
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(&fakeCloner{t: t}, nil, Config{}, nil).ListenAndServe(ctx, "127.0.0.1:0")
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
