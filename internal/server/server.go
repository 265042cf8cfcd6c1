// Package server 以 HTTP/JSON 暴露词典加载与分词。
//
//	POST /api/v1/dictionaries     {name, path | words}  → {message, success}
//	GET  /api/v1/dictionaries                           → {names}
//	POST /api/v1/segment          {text, dict, safe, parallel}  → {tokens}
//	POST /api/v1/segment/batch    {texts, dict, safe, parallel} → {results}
//	GET  /healthz
//	GET  /metrics                 Prometheus 指标
//
// 配置 Options.Rate 后，两个分词路由按调用方限流，超额返回 429。
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/PyThaiNLP/nlpo3/internal/diag"
	"github.com/PyThaiNLP/nlpo3/internal/rate"
	"github.com/PyThaiNLP/nlpo3/pkg/contract"
	"github.com/PyThaiNLP/nlpo3/pkg/engine"
	"github.com/PyThaiNLP/nlpo3/pkg/registry"
	"github.com/PyThaiNLP/nlpo3/plugins/source/file"
	"github.com/PyThaiNLP/nlpo3/plugins/source/list"
)

const comp = "server"

// Options 为服务配置。
type Options struct {
	// CacheSize: 分词结果 LRU 容量；<=0 关闭缓存。
	CacheSize int
	// MaxBatch: 单次批量请求的文本数上限；<=0 使用默认 1024。
	MaxBatch int
	// ShutdownTimeout: 优雅退出等待时长；<=0 使用默认 10s。
	ShutdownTimeout time.Duration
	// Rate: 按调用方（X-API-Key 或客户端地址）的分词限额；全零关闭。
	Rate rate.Limits
	// RateWait: 额度不足时的最长排队时长；<=0 立即返回 429。
	RateWait time.Duration
}

// APIKeyHeader 为限流分组使用的请求头。
const APIKeyHeader = "X-API-Key"

var errRateLimited = errors.New("rate limited")

// Server 持有引擎与路由；并发安全。
type Server struct {
	eng      *engine.Engine
	cache    *resultCache
	gate     *rate.Gate
	rateWait time.Duration
	maxBatch int
	shutdown time.Duration
	logger   *diag.Logger
	router   *gin.Engine
}

// New 创建服务并注册路由。
func New(eng *engine.Engine, opts Options, logger *diag.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		eng:      eng,
		cache:    newResultCache(opts.CacheSize),
		maxBatch: opts.MaxBatch,
		shutdown: opts.ShutdownTimeout,
		rateWait: opts.RateWait,
		logger:   logger,
	}
	if opts.Rate.Enabled() {
		s.gate = rate.NewGate(opts.Rate, 0, nil)
	}
	if s.maxBatch <= 0 {
		s.maxBatch = 1024
	}
	if s.shutdown <= 0 {
		s.shutdown = 10 * time.Second
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.observe())
	v1 := r.Group("/api/v1")
	v1.POST("/dictionaries", s.loadDictionary)
	v1.GET("/dictionaries", s.listDictionaries)
	v1.POST("/segment", s.segment)
	v1.POST("/segment/batch", s.segmentBatch)
	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(diag.MetricsHandler()))
	s.router = r
	return s
}

// Handler 返回 HTTP 处理器（测试与嵌入用）。
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe 监听 addr，ctx 取消后优雅退出。
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	t := s.logger.StartWithKV(comp, "listen", "", "", map[string]string{"addr": addr})

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), s.shutdown)
		defer cancel()
		err := srv.Shutdown(sctx)
		t.Finish("listen", 0)
		return err
	}
}

type loadRequest struct {
	Name  string   `json:"name" binding:"required"`
	Path  string   `json:"path"`
	Words []string `json:"words"`
}

type loadResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

type segmentRequest struct {
	Text     string `json:"text"`
	Dict     string `json:"dict"`
	Safe     bool   `json:"safe"`
	Parallel bool   `json:"parallel"`
}

type segmentResponse struct {
	Tokens []string `json:"tokens"`
}

type batchRequest struct {
	Texts    []string `json:"texts" binding:"required"`
	Dict     string   `json:"dict"`
	Safe     bool     `json:"safe"`
	Parallel bool     `json:"parallel"`
}

type batchResponse struct {
	Results [][]string `json:"results"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) loadDictionary(c *gin.Context) {
	var req loadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Code: string(diag.CodeInvariant)})
		return
	}
	var (
		src   contract.WordSource
		label string
		err   error
	)
	switch {
	case len(req.Words) > 0 && req.Path == "":
		src, label = list.New(&list.Options{Words: req.Words}), "<list>"
	case req.Path != "" && len(req.Words) == 0:
		src, err = file.New(&file.Options{Path: req.Path})
		label = req.Path
	default:
		err = fmt.Errorf("%w: exactly one of path or words is required", contract.ErrInvalidInput)
	}
	if err == nil {
		err = s.eng.LoadSource(c.Request.Context(), req.Name, src)
	}
	msg, ok := engine.LoadMessage(label, req.Name, err)
	status := http.StatusCreated
	if !ok {
		status = statusOf(err)
	}
	c.JSON(status, loadResponse{Message: msg, Success: ok})
}

func (s *Server) listDictionaries(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"names": s.eng.Registry().Names()})
}

func (s *Server) segment(c *gin.Context) {
	var req segmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Code: string(diag.CodeInvariant)})
		return
	}
	if !s.admit(c, utf8.RuneCountInString(req.Text)) {
		return
	}
	toks, err := s.segmentOne(c.Request.Context(), req.Text, req.Dict, req.Safe, req.Parallel)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, segmentResponse{Tokens: toks})
}

func (s *Server) segmentBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Code: string(diag.CodeInvariant)})
		return
	}
	if len(req.Texts) > s.maxBatch {
		c.JSON(http.StatusRequestEntityTooLarge, errorResponse{
			Error: "too many texts: " + strconv.Itoa(len(req.Texts)) + " > " + strconv.Itoa(s.maxBatch),
			Code:  string(diag.CodeInvariant),
		})
		return
	}
	runes := 0
	for _, t := range req.Texts {
		runes += utf8.RuneCountInString(t)
	}
	if !s.admit(c, runes) {
		return
	}
	// 词典不存在时在任何分词之前失败
	if _, err := s.eng.Registry().Get(dictName(req.Dict)); err != nil {
		s.fail(c, err)
		return
	}
	results := make([][]string, len(req.Texts))
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, text := range req.Texts {
		g.Go(func() error {
			toks, err := s.segmentOne(ctx, text, req.Dict, req.Safe, req.Parallel)
			if err != nil {
				return err
			}
			results[i] = toks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, batchResponse{Results: results})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"dictionaries": len(s.eng.Registry().Names()),
		"cached":       s.cache.len(),
		"rate_keys":    s.gate.Keys(),
	})
}

// admit 按调用方扣减请求与字符额度；未放行时已写出响应。
func (s *Server) admit(c *gin.Context, runes int) bool {
	if s.gate == nil {
		return true
	}
	a := rate.Ask{Key: rate.KeyOf(c.GetHeader(APIKeyHeader), c.ClientIP()), Requests: 1, Runes: runes}
	var err error
	if s.rateWait > 0 {
		ctx, cancel := context.WithTimeout(c.Request.Context(), s.rateWait)
		err = s.gate.Wait(ctx, a)
		cancel()
		if errors.Is(err, context.DeadlineExceeded) {
			err = errRateLimited
		}
	} else {
		ok, terr := s.gate.Try(a)
		if err = terr; err == nil && !ok {
			err = errRateLimited
		}
	}
	switch {
	case err == nil:
		return true
	case errors.Is(err, errRateLimited):
		diag.IncError(comp, "rate_limited")
		c.JSON(http.StatusTooManyRequests, errorResponse{Error: err.Error(), Code: "rate_limited"})
	case errors.Is(err, contract.ErrInvalidInput):
		diag.IncError(comp, string(diag.CodeInvariant))
		c.JSON(http.StatusRequestEntityTooLarge, errorResponse{
			Error: "text exceeds per-request rune limit: " + strconv.Itoa(runes),
			Code:  string(diag.CodeInvariant),
		})
	default:
		s.fail(c, err)
	}
	return false
}

// segmentOne 先查缓存，未命中再分词并回填。
func (s *Server) segmentOne(ctx context.Context, text, dict string, safe, parallel bool) ([]string, error) {
	name := dictName(dict)
	flags := flagsOf(safe, parallel)
	if toks, ok := s.cache.get(name, flags, text); ok {
		diag.IncOp(comp, "cache", "hit")
		return toks, nil
	}
	toks, err := s.eng.Segment(ctx, text, name, safe, parallel)
	if err != nil {
		return nil, err
	}
	diag.IncOp(comp, "cache", "miss")
	s.cache.add(name, flags, text, toks)
	return toks, nil
}

func (s *Server) fail(c *gin.Context, err error) {
	code := diag.Classify(err)
	diag.IncError(comp, string(code))
	c.JSON(statusOf(err), errorResponse{Error: err.Error(), Code: string(code)})
}

// observe: 访问日志与请求计数。
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		t0 := time.Now()
		c.Next()
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		result := "ok"
		if status >= http.StatusBadRequest {
			result = "error"
		}
		diag.IncOp(comp, route, result)
		diag.ObserveDuration(comp, route, time.Since(t0).Milliseconds())
		if s.logger.Enabled(diag.Debug) {
			s.logger.DebugStart(comp, "request", "", "", map[string]string{
				"method": c.Request.Method,
				"route":  route,
				"status": strconv.Itoa(status),
			})
		}
	}
}

func dictName(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return registry.DefaultName
	}
	return s
}

// statusOf 将错误分类映射为 HTTP 状态码。
func statusOf(err error) int {
	switch diag.Classify(err) {
	case diag.CodeNotFound:
		return http.StatusNotFound
	case diag.CodeConflict:
		return http.StatusConflict
	case diag.CodeInvariant:
		return http.StatusBadRequest
	case diag.CodeIO:
		return http.StatusUnprocessableEntity
	case diag.CodeCancel:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
