// Package server 通过 HTTP 暴露仓库统计能力，供浏览器扩展等跨域调用方使用。
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"repostat/internal/model"
	"repostat/internal/repo"
)

// Cloner 把远程仓库克隆到本地工作区。
type Cloner interface {
	Clone(ctx context.Context, url string) (*repo.Workspace, error)
}

// AnalyzeFunc 统计本地目录。
type AnalyzeFunc func(dir string) (model.AnalysisResult, error)

// Config 是服务端超时配置，零值表示不限制。
type Config struct {
	CloneTimeout    time.Duration
	AnalysisTimeout time.Duration
}

// Server 处理统计请求。
type Server struct {
	cloner  Cloner
	analyze AnalyzeFunc
	config  Config
	logger  *slog.Logger
}

// statsRequest 是 POST /api/stats 的请求体。
type statsRequest struct {
	RepoURL string `json:"repoUrl"`
	Owner   string `json:"owner"`
	Repo    string `json:"repo"`
}

// statsResponse 是 POST /api/stats 的响应体。
type statsResponse struct {
	TotalLines int64                `json:"totalLines"`
	TotalFiles int64                `json:"totalFiles"`
	Processing bool                 `json:"processing"`
	Cached     bool                 `json:"cached"`
	Stats      model.AnalysisResult `json:"stats"`
}

type analysisOutcome struct {
	result model.AnalysisResult
	err    error
}

// New 创建服务，logger 为空时丢弃日志。
func New(cloner Cloner, analyze AnalyzeFunc, config Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		cloner:  cloner,
		analyze: analyze,
		config:  config,
		logger:  logger,
	}
}

// Handler 返回带 CORS 与请求日志的路由。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/stats/status/{owner}/{repo}", s.handleStatus)
	return cors(s.logRequests(mux))
}

// ListenAndServe 在 addr 上提供服务，ctx 取消后优雅退出。
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("server shutting down")
	return httpServer.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "repostat server is running",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("status requested", "owner", r.PathValue("owner"), "repo", r.PathValue("repo"))
	writeJSON(w, http.StatusOK, map[string]any{
		"ready":   false,
		"message": "no cached statistics, call POST /api/stats",
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var request statsRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	repoURL, err := resolveTarget(&request)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cloneCtx, cancelClone := withOptionalTimeout(r.Context(), s.config.CloneTimeout)
	defer cancelClone()

	workspace, err := s.cloner.Clone(cloneCtx, repoURL)
	if err != nil {
		s.logger.Warn("clone failed", "url", repoURL, "error", err)
		writeError(w, http.StatusBadGateway, "clone failed: "+err.Error())
		return
	}

	// 统计在独立协程中执行，超时后放弃等待，工作区在统计结束后删除。
	outcome := make(chan analysisOutcome, 1)
	go func() {
		defer func() {
			if removeErr := workspace.Remove(); removeErr != nil {
				s.logger.Warn("remove workspace failed", "dir", workspace.Dir, "error", removeErr)
			}
		}()
		result, analyzeErr := s.analyze(workspace.Dir)
		outcome <- analysisOutcome{result: result, err: analyzeErr}
	}()

	analysisCtx, cancelAnalysis := withOptionalTimeout(r.Context(), s.config.AnalysisTimeout)
	defer cancelAnalysis()

	select {
	case <-analysisCtx.Done():
		s.logger.Warn("analysis abandoned", "owner", request.Owner, "repo", request.Repo, "error", analysisCtx.Err())
		writeError(w, http.StatusGatewayTimeout, "analysis timed out")
	case item := <-outcome:
		if item.err != nil {
			s.logger.Error("analysis failed", "owner", request.Owner, "repo", request.Repo, "error", item.err)
			writeError(w, http.StatusInternalServerError, "analysis failed: "+item.err.Error())
			return
		}
		s.logger.Info("analysis complete",
			"owner", request.Owner,
			"repo", request.Repo,
			"lines", item.result.TotalLines,
			"files", item.result.TotalFiles,
		)
		writeJSON(w, http.StatusOK, statsResponse{
			TotalLines: item.result.TotalLines,
			TotalFiles: item.result.TotalFiles,
			Stats:      item.result,
		})
	}
}

// resolveTarget 补齐请求中的地址与 owner/repo，返回克隆地址。
func resolveTarget(request *statsRequest) (string, error) {
	request.RepoURL = strings.TrimSpace(request.RepoURL)
	request.Owner = strings.TrimSpace(request.Owner)
	request.Repo = strings.TrimSpace(request.Repo)

	if request.RepoURL == "" {
		if request.Owner == "" || request.Repo == "" {
			return "", errors.New("missing repository url")
		}
		request.RepoURL = repo.GitHubURL(request.Owner, request.Repo)
		return request.RepoURL, nil
	}

	if request.Owner == "" || request.Repo == "" {
		owner, name, err := repo.ParseURL(request.RepoURL)
		if err != nil {
			return "", err
		}
		if request.Owner == "" {
			request.Owner = owner
		}
		if request.Repo == "" {
			request.Repo = name
		}
	}
	if request.Owner == "" || request.Repo == "" {
		return "", errors.New("missing repository owner or name")
	}
	return request.RepoURL, nil
}

func withOptionalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
