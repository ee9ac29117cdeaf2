package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"netmodifier/internal/logger"
	api "netmodifier/pkg/api"
	"netmodifier/pkg/domain"
	"netmodifier/pkg/errx"
	"netmodifier/pkg/rulespec"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server 规则管理的 HTTP 接口入口
type Server struct {
	svc api.Service
	log logger.Logger
}

// NewServer 创建 HTTP 接口服务
func NewServer(svc api.Service, l logger.Logger) *Server {
	if l == nil {
		l = logger.NewNop()
	}
	return &Server{svc: svc, log: l}
}

// Router 返回挂载了全部路由的 chi 路由器
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/api", s.ServeHTTP)
	return r
}

// ServeHTTP 处理 JSON 方法调用
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ErrInvalidRequest.withError(err))
		return
	}
	res := s.dispatch(r.Context(), &req)
	writeResponse(w, res)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.Debug("HTTP 请求", "method", r.Method, "path", r.URL.Path, "requestId", middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r)
	})
}

// Request 表示通用请求结构
type Request struct {
	Method string          `json:"method"`
	ID     string          `json:"id,omitempty"`
	Params json.RawMessage `json:"params"`
}

// Response 表示通用响应结构
type Response struct {
	ID     string       `json:"id,omitempty"`
	Result any          `json:"result,omitempty"`
	Error  *ErrorObject `json:"error,omitempty"`
}

// ErrorObject 表示错误信息
type ErrorObject struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ApiError 表示内部错误类型
type ApiError struct {
	Code string
	Err  error
}

func (e ApiError) withError(err error) ApiError {
	return ApiError{Code: e.Code, Err: err}
}

var (
	// ErrInvalidRequest 无效请求
	ErrInvalidRequest = ApiError{Code: "invalid_request"}
	// ErrMethodNotFound 方法不存在
	ErrMethodNotFound = ApiError{Code: "method_not_found"}
	// ErrInvalidParams 参数错误
	ErrInvalidParams = ApiError{Code: "invalid_params"}
	// ErrInternal 内部错误
	ErrInternal = ApiError{Code: "internal"}
)

type ruleIDParams struct {
	RuleID string `json:"ruleId"`
}

type setDisabledParams struct {
	RuleID  string `json:"ruleId"`
	Disable bool   `json:"disable"`
}

type patternTestParams struct {
	SourceURL string `json:"sourceUrl"`
	Pattern   string `json:"pattern"`
}

type patternPreviewParams struct {
	ExampleURL string `json:"exampleUrl"`
	Pattern    string `json:"pattern"`
	Template   string `json:"template"`
}

type tabParams struct {
	TabID string `json:"tabId"`
}

type historyParams struct {
	Limit int `json:"limit"`
}

type patternTestResult struct {
	Matched bool     `json:"matched"`
	Groups  []string `json:"groups"`
}

// handlerFunc 单个方法的处理函数
type handlerFunc func(ctx context.Context, params json.RawMessage) (any, *ErrorObject)

// dispatch 根据 method 分发请求
func (s *Server) dispatch(ctx context.Context, req *Request) *Response {
	handlers := map[string]handlerFunc{
		"rules.list":          s.handleRulesList,
		"rules.get":           s.handleRulesGet,
		"rules.save":          s.handleRulesSave,
		"rules.delete":        s.handleRulesDelete,
		"rules.setDisabled":   s.handleRulesSetDisabled,
		"rules.compile":       s.handleRulesCompile,
		"rules.install":       s.handleRulesInstall,
		"engine.installed":    s.handleEngineInstalled,
		"pattern.test":        s.handlePatternTest,
		"pattern.preview":     s.handlePatternPreview,
		"navigation.simulate": s.handleNavigationSimulate,
		"navigation.history":  s.handleNavigationHistory,
		"navigation.pending":  s.handleNavigationPending,
	}

	h, ok := handlers[req.Method]
	if !ok {
		return &Response{ID: req.ID, Error: toErrorObject(ErrMethodNotFound)}
	}
	result, err := h(ctx, req.Params)
	if err != nil {
		s.log.Warn("接口调用失败", "method", req.Method, "code", err.Code, "message", err.Message)
	}
	return &Response{ID: req.ID, Result: result, Error: err}
}

// writeResponse 写出统一响应
func writeResponse(w http.ResponseWriter, res *Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	_ = enc.Encode(res)
}

// writeError 写出错误响应
func writeError(w http.ResponseWriter, apiErr ApiError) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	_ = enc.Encode(&Response{Error: toErrorObject(apiErr)})
}

// toErrorObject 转换错误为响应错误对象
func toErrorObject(e ApiError) *ErrorObject {
	msg := e.Code
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return &ErrorObject{Code: e.Code, Message: msg}
}

// serviceError 业务错误使用 errx 错误码，其余为 internal
func serviceError(err error) *ErrorObject {
	if code := errx.CodeOf(err); code != "" {
		return toErrorObject(ApiError{Code: string(code), Err: err})
	}
	return toErrorObject(ErrInternal.withError(err))
}

// decode 解析参数，params 为空时保持零值
func decode(params json.RawMessage, v any) *ErrorObject {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return toErrorObject(ErrInvalidParams.withError(err))
	}
	return nil
}

func required(name, value string) *ErrorObject {
	if strings.TrimSpace(value) == "" {
		return toErrorObject(ErrInvalidParams.withError(errors.New(name + " is required")))
	}
	return nil
}

func (s *Server) handleRulesList(ctx context.Context, _ json.RawMessage) (any, *ErrorObject) {
	list, err := s.svc.ListRules(ctx)
	if err != nil {
		return nil, serviceError(err)
	}
	return list, nil
}

func (s *Server) handleRulesGet(ctx context.Context, params json.RawMessage) (any, *ErrorObject) {
	var p ruleIDParams
	if e := decode(params, &p); e != nil {
		return nil, e
	}
	if e := required("ruleId", p.RuleID); e != nil {
		return nil, e
	}
	rule, err := s.svc.GetRule(ctx, p.RuleID)
	if err != nil {
		return nil, serviceError(err)
	}
	return rule, nil
}

func (s *Server) handleRulesSave(ctx context.Context, params json.RawMessage) (any, *ErrorObject) {
	var rule rulespec.NetworkRule
	if e := decode(params, &rule); e != nil {
		return nil, e
	}
	saved, err := s.svc.SaveRule(ctx, rule)
	if err != nil {
		return nil, serviceError(err)
	}
	return saved, nil
}

func (s *Server) handleRulesDelete(ctx context.Context, params json.RawMessage) (any, *ErrorObject) {
	var p ruleIDParams
	if e := decode(params, &p); e != nil {
		return nil, e
	}
	if e := required("ruleId", p.RuleID); e != nil {
		return nil, e
	}
	if err := s.svc.DeleteRule(ctx, p.RuleID); err != nil {
		return nil, serviceError(err)
	}
	return nil, nil
}

func (s *Server) handleRulesSetDisabled(ctx context.Context, params json.RawMessage) (any, *ErrorObject) {
	var p setDisabledParams
	if e := decode(params, &p); e != nil {
		return nil, e
	}
	if e := required("ruleId", p.RuleID); e != nil {
		return nil, e
	}
	if err := s.svc.SetRuleDisabled(ctx, p.RuleID, p.Disable); err != nil {
		return nil, serviceError(err)
	}
	return nil, nil
}

func (s *Server) handleRulesCompile(ctx context.Context, _ json.RawMessage) (any, *ErrorObject) {
	actions, err := s.svc.CompileRules(ctx)
	if err != nil {
		return nil, serviceError(err)
	}
	return actions, nil
}

func (s *Server) handleRulesInstall(ctx context.Context, _ json.RawMessage) (any, *ErrorObject) {
	res, err := s.svc.InstallRules(ctx)
	if err != nil {
		return nil, serviceError(err)
	}
	return res, nil
}

func (s *Server) handleEngineInstalled(ctx context.Context, _ json.RawMessage) (any, *ErrorObject) {
	st, err := s.svc.EngineState(ctx)
	if err != nil {
		return nil, serviceError(err)
	}
	return st, nil
}

func (s *Server) handlePatternTest(_ context.Context, params json.RawMessage) (any, *ErrorObject) {
	var p patternTestParams
	if e := decode(params, &p); e != nil {
		return nil, e
	}
	groups, err := s.svc.TestPattern(p.SourceURL, p.Pattern)
	if err != nil {
		return nil, serviceError(err)
	}
	if groups == nil {
		groups = []string{}
	}
	return patternTestResult{Matched: len(groups) > 0, Groups: groups}, nil
}

func (s *Server) handlePatternPreview(_ context.Context, params json.RawMessage) (any, *ErrorObject) {
	var p patternPreviewParams
	if e := decode(params, &p); e != nil {
		return nil, e
	}
	res, err := s.svc.PreviewPattern(p.ExampleURL, p.Pattern, p.Template)
	if err != nil {
		return nil, serviceError(err)
	}
	return res, nil
}

func (s *Server) handleNavigationSimulate(ctx context.Context, params json.RawMessage) (any, *ErrorObject) {
	var ev domain.NavigationEvent
	if e := decode(params, &ev); e != nil {
		return nil, e
	}
	if e := required("url", ev.URL); e != nil {
		return nil, e
	}
	d, err := s.svc.SimulateNavigation(ctx, ev)
	if err != nil {
		// 标签页更新失败时决策已生效，随错误一起返回
		if d.Outcome != "" {
			return d, serviceError(err)
		}
		return nil, serviceError(err)
	}
	return d, nil
}

func (s *Server) handleNavigationHistory(_ context.Context, params json.RawMessage) (any, *ErrorObject) {
	var p historyParams
	if e := decode(params, &p); e != nil {
		return nil, e
	}
	return s.svc.NavigationHistory(p.Limit), nil
}

func (s *Server) handleNavigationPending(_ context.Context, params json.RawMessage) (any, *ErrorObject) {
	var p tabParams
	if e := decode(params, &p); e != nil {
		return nil, e
	}
	if e := required("tabId", p.TabID); e != nil {
		return nil, e
	}
	return s.svc.PendingRedirect(domain.TabID(p.TabID)), nil
}
