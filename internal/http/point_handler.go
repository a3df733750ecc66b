package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"electrohub-protection/internal/service"
)

const maxBodyBytes = 1 << 20

// PointHandler 点位列表、导出、参数更新与重置
type PointHandler struct {
	pointService service.PointService
	logger       *zap.Logger
}

func NewPointHandler(pointService service.PointService, logger *zap.Logger) *PointHandler {
	return &PointHandler{
		pointService: pointService,
		logger:       logger,
	}
}

// listRequestFromQuery /points 与 /points/export 共用的查询参数解析
func listRequestFromQuery(r *http.Request) service.ListPointsRequest {
	q := r.URL.Query()
	return service.ListPointsRequest{
		Site:          q.Get("site"),
		Query:         q.Get("q"),
		SwitchboardID: q.Get("switchboard"),
		Building:      q.Get("building"),
		Floor:         q.Get("floor"),
		Sort:          q.Get("sort"),
		Dir:           q.Get("dir"),
		Page:          parseInt(q.Get("page"), 1),
		PageSize:      parseInt(q.Get("pageSize"), 20),
	}
}

// ListPoints 点位列表
// GET /api/v1/points?site=...&q=...&switchboard=...&building=...&floor=...&sort=energy&dir=desc&page=1&pageSize=20
func (h *PointHandler) ListPoints(w http.ResponseWriter, r *http.Request) {
	req := listRequestFromQuery(r)

	resp, err := h.pointService.ListPoints(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(resp.Items))
	for _, row := range resp.Items {
		items = append(items, row.ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": items,
		"pagination": map[string]any{
			"page":  req.Page,
			"size":  req.PageSize,
			"total": resp.Total,
		},
	}))
}

// ExportPoints 点位清单 xlsx 导出
// GET /api/v1/points/export?site=...（接受与列表相同的过滤参数）
func (h *PointHandler) ExportPoints(w http.ResponseWriter, r *http.Request) {
	req := listRequestFromQuery(r)
	req.Page = 1
	req.PageSize = 10000 // 导出不分页

	resp, err := h.pointService.ListPoints(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := GeneratePointsExport(resp.Items)
	if err != nil {
		h.logger.Error("ExportPoints: excel generation failed",
			zap.String("site", req.Site),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Fail("failed to generate export"))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="arc_flash_points.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// UpdateParameters 参数/整定值/上游链接更新
// POST /api/v1/parameters
func (h *PointHandler) UpdateParameters(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateParametersRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	resp, err := h.pointService.UpdateParameters(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp.Params.ToJSON()))
}

// Reset 清空租户的检查与参数
// POST /api/v1/reset
func (h *PointHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Site string `json:"site"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	if req.Site == "" {
		req.Site = r.URL.Query().Get("site")
	}

	if err := h.pointService.Reset(r.Context(), req.Site); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"site": req.Site, "reset": true}))
}
