package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// methodOnly 包一层方法过滤
func methodOnly(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, req)
	}
}

// RegisterProtectionRoutes 注册弧闪/保护协调 API 路由
func (r *Router) RegisterProtectionRoutes(p *PointHandler, c *CheckHandler, a *AutofillHandler) {
	r.Handle("/api/v1/points", methodOnly(http.MethodGet, p.ListPoints))
	r.Handle("/api/v1/points/export", methodOnly(http.MethodGet, p.ExportPoints))
	r.Handle("/api/v1/parameters", methodOnly(http.MethodPost, p.UpdateParameters))
	r.Handle("/api/v1/reset", methodOnly(http.MethodPost, p.Reset))

	r.Handle("/api/v1/check", methodOnly(http.MethodGet, c.RunCheck))
	r.Handle("/api/v1/curves", methodOnly(http.MethodGet, c.GetCurves))

	r.Handle("/api/v1/autofill", methodOnly(http.MethodPost, a.Autofill))
}

// RegisterHealthRoute 健康检查
func (r *Router) RegisterHealthRoute(serviceName, version string) {
	r.Handle("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"service": serviceName,
			"version": version,
		})
	})
}
