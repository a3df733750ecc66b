package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"electrohub-protection/internal/service"
)

// AutofillHandler AI 辅助补全
type AutofillHandler struct {
	autofillService service.AutofillService
	logger          *zap.Logger
}

func NewAutofillHandler(autofillService service.AutofillService, logger *zap.Logger) *AutofillHandler {
	return &AutofillHandler{
		autofillService: autofillService,
		logger:          logger,
	}
}

// Autofill 对租户做一次补全扫描
// POST /api/v1/autofill?site=...（site 也可放在 body 里）
func (h *AutofillHandler) Autofill(w http.ResponseWriter, r *http.Request) {
	var req service.AutofillRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	if req.Site == "" {
		req.Site = r.URL.Query().Get("site")
	}

	resp, err := h.autofillService.Autofill(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}
