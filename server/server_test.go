package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedroll/feedroll/pkg/domain"
	"github.com/feedroll/feedroll/pkg/scheduler"
	"github.com/feedroll/feedroll/server/mocks"
)

func testConfig(t *testing.T, listen string) *mocks.ConfigProviderMock {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>roll</html>"), 0o600))
	return &mocks.ConfigProviderMock{
		GetServerConfigFunc: func() (string, time.Duration) { return listen, 30 * time.Second },
		GetStaticDirFunc:    func() string { return dir },
	}
}

func idleScheduler() *mocks.SchedulerMock {
	return &mocks.SchedulerMock{
		TriggerRefreshFunc: func() bool { return true },
		RunningFunc:        func() bool { return false },
		LastReportFunc:     func() (scheduler.CycleReport, bool) { return scheduler.CycleReport{}, false },
	}
}

func TestServer_New(t *testing.T) {
	srv := New(testConfig(t, ":8080"), &mocks.FeedListerMock{}, idleScheduler(), "1.0.0", false)
	assert.NotNil(t, srv)
	assert.Equal(t, "1.0.0", srv.version)
	assert.False(t, srv.debug)
}

func TestServer_Run(t *testing.T) {
	// find free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	srv := New(testConfig(t, fmt.Sprintf("127.0.0.1:%d", port)), &mocks.FeedListerMock{}, idleScheduler(), "1.0.0", true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	// wait for server to start
	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/ping", port))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK && string(body) == "pong"
	}, time.Second, 20*time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/", port))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<html>roll</html>", string(body))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_statusHandler(t *testing.T) {
	t.Run("no cycle yet", func(t *testing.T) {
		srv := New(testConfig(t, ":8080"), &mocks.FeedListerMock{}, idleScheduler(), "1.2.3", false)
		req := httptest.NewRequest("GET", "/api/v1/status", http.NoBody)
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		var status map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		assert.Equal(t, "ok", status["status"])
		assert.Equal(t, "1.2.3", status["version"])
		assert.Equal(t, false, status["refreshing"])
		assert.NotContains(t, status, "last_cycle")
	})

	t.Run("with last cycle", func(t *testing.T) {
		started := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
		sched := idleScheduler()
		sched.RunningFunc = func() bool { return true }
		sched.LastReportFunc = func() (scheduler.CycleReport, bool) {
			return scheduler.CycleReport{StartedAt: started, Duration: 1500 * time.Millisecond, Feeds: 3, Succeeded: 2,
				Failed: 1, PostsStored: 12, PostsSkipped: 1, Pruned: 4, Rendered: true}, true
		}
		srv := New(testConfig(t, ":8080"), &mocks.FeedListerMock{}, sched, "1.2.3", false)
		w := httptest.NewRecorder()
		srv.statusHandler(w, httptest.NewRequest("GET", "/api/v1/status", http.NoBody))

		var status struct {
			Refreshing bool        `json:"refreshing"`
			LastCycle  cycleStatus `json:"last_cycle"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		assert.True(t, status.Refreshing)
		assert.Equal(t, cycleStatus{StartedAt: started, Duration: "1.5s", Feeds: 3, Succeeded: 2, Failed: 1,
			PostsStored: 12, PostsSkipped: 1, Pruned: 4, Rendered: true}, status.LastCycle)
	})
}

func TestServer_feedsHandler(t *testing.T) {
	lastSuccess := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	feeds := &mocks.FeedListerMock{GetFeedsFunc: func(ctx context.Context) ([]domain.Feed, error) {
		return []domain.Feed{
			{Link: "https://a.com/feed", Domain: "a.com", Title: "A", LastSuccess: &lastSuccess},
			{Link: "https://b.com/feed", Domain: "b.com", Title: "B", FailureCount: 2, LastError: "connectivity: timeout"},
		}, nil
	}}
	srv := New(testConfig(t, ":8080"), feeds, idleScheduler(), "test", false)

	t.Run("all feeds", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/feeds", http.NoBody))
		require.Equal(t, http.StatusOK, w.Code)

		var res []feedStatus
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		require.Len(t, res, 2)
		assert.True(t, res[0].Healthy)
		require.NotNil(t, res[0].LastSuccess)
		assert.True(t, lastSuccess.Equal(*res[0].LastSuccess))
		assert.False(t, res[1].Healthy)
		assert.Equal(t, 2, res[1].FailureCount)
		assert.Equal(t, "connectivity: timeout", res[1].LastError)
	})

	t.Run("unhealthy only", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/feeds?unhealthy=true", http.NoBody))
		var res []feedStatus
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		require.Len(t, res, 1)
		assert.Equal(t, "https://b.com/feed", res[0].Link)
	})

	t.Run("store error", func(t *testing.T) {
		failing := &mocks.FeedListerMock{GetFeedsFunc: func(ctx context.Context) ([]domain.Feed, error) {
			return nil, errors.New("database is closed")
		}}
		srv := New(testConfig(t, ":8080"), failing, idleScheduler(), "test", false)
		w := httptest.NewRecorder()
		srv.feedsHandler(w, httptest.NewRequest("GET", "/api/v1/feeds", http.NoBody))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"database is closed"}`, w.Body.String())
	})

	assert.Len(t, feeds.GetFeedsCalls(), 2)
}

func TestServer_refreshHandler(t *testing.T) {
	sched := idleScheduler()
	queued := true
	sched.TriggerRefreshFunc = func() bool {
		res := queued
		queued = false
		return res
	}
	srv := New(testConfig(t, ":8080"), &mocks.FeedListerMock{}, sched, "test", false)

	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/refresh", http.NoBody))
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"queued":true,"running":false}`, w.Body.String())

	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/refresh", http.NoBody))
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"queued":false,"running":false}`, w.Body.String(), "coalesced with pending request")

	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/refresh", http.NoBody))
	assert.NotEqual(t, http.StatusAccepted, w.Code, "only POST triggers refresh")
	assert.Len(t, sched.TriggerRefreshCalls(), 2)
}

func TestServer_metrics(t *testing.T) {
	srv := New(testConfig(t, ":8080"), &mocks.FeedListerMock{}, idleScheduler(), "test", false)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", http.NoBody))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestServer_staticMissingDir(t *testing.T) {
	cfg := &mocks.ConfigProviderMock{
		GetServerConfigFunc: func() (string, time.Duration) { return ":8080", time.Second },
		GetStaticDirFunc:    func() string { return "/non/existent/static" },
	}
	srv := New(cfg, &mocks.FeedListerMock{}, idleScheduler(), "test", false)

	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest("GET", "/index.html", http.NoBody))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest("GET", "/ping", http.NoBody))
	assert.Equal(t, http.StatusOK, w.Code, "api still served")
}

func TestRenderError(t *testing.T) {
	w := httptest.NewRecorder()
	renderError(w, httptest.NewRequest("GET", "/", http.NoBody), nil, http.StatusBadRequest)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"unknown error"}`, w.Body.String())
}

func TestServer_RunListenFailure(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	srv := New(testConfig(t, busy.Addr().String()), &mocks.FeedListerMock{}, idleScheduler(), "test", false)
	err = srv.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serve on "+busy.Addr().String())
}

func TestRenderJSON_EncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()
	renderJSON(w, httptest.NewRequest("GET", "/", http.NoBody), http.StatusOK, map[string]any{"ch": make(chan int)})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"response encoding failed"}`, w.Body.String())
}
