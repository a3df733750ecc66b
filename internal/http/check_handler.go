package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"electrohub-protection/internal/service"
)

// CheckHandler 弧闪检查与距离-能量曲线
type CheckHandler struct {
	checkService service.CheckService
	logger       *zap.Logger
}

func NewCheckHandler(checkService service.CheckService, logger *zap.Logger) *CheckHandler {
	return &CheckHandler{
		checkService: checkService,
		logger:       logger,
	}
}

// pointFromQuery 点位定位统一从查询参数取（/check 与 /curves 共用）
func pointFromQuery(r *http.Request) service.PointRequest {
	q := r.URL.Query()
	return service.PointRequest{
		Site:          q.Get("site"),
		SwitchboardID: q.Get("switchboard"),
		DeviceID:      q.Get("device"),
	}
}

// RunCheck 执行弧闪检查
// GET /api/v1/check?site=...&switchboard=...&device=...
func (h *CheckHandler) RunCheck(w http.ResponseWriter, r *http.Request) {
	resp, err := h.checkService.RunCheck(r.Context(), pointFromQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// GetCurves 距离-能量曲线
// GET /api/v1/curves?site=...&switchboard=...&device=...
func (h *CheckHandler) GetCurves(w http.ResponseWriter, r *http.Request) {
	resp, err := h.checkService.GenerateCurve(r.Context(), pointFromQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}
