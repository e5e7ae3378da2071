package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kube-rca/migration-audit/internal/model"
)

// auditService - 서비스 인터페이스
type auditService interface {
	Run(ctx context.Context, req model.AuditRequest) (*model.AuditReport, error)
	ListAudits(ctx context.Context, limit int) ([]model.AuditListResponse, error)
	GetAudit(ctx context.Context, auditID string) (*model.AuditReport, error)
	GetVerdicts(ctx context.Context, auditID string, status model.MatchStatus) ([]model.VerdictResponse, error)
}

// AuditHandler - 감사 실행/조회 핸들러
type AuditHandler struct {
	svc auditService
}

func NewAuditHandler(svc auditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// RunAudit godoc
// @Summary Run an audit over hosts and a time range
// @Tags audits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.AuditRunRequest true "Audit scope"
// @Success 200 {object} model.AuditRunResponse
// @Failure 400,500,502 {object} model.ErrorResponse
// @Router /api/v1/audits [post]
func (h *AuditHandler) RunAudit(c *gin.Context) {
	var req model.AuditRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid start: RFC3339 required"})
		return
	}
	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid end: RFC3339 required"})
		return
	}

	report, err := h.svc.Run(c.Request.Context(), model.AuditRequest{Hosts: req.Hosts, Start: start.UTC(), End: end.UTC()})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.AuditRunResponse{
		Status:  "success",
		AuditID: report.ID,
		Summary: report.Summary,
	})
}

// ListAudits godoc
// @Summary List stored audit runs
// @Tags audits
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Max rows (default 50)"
// @Success 200 {object} model.AuditListEnvelope
// @Failure 400,500,503 {object} model.ErrorResponse
// @Router /api/v1/audits [get]
func (h *AuditHandler) ListAudits(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid limit"})
			return
		}
		limit = v
	}

	list, err := h.svc.ListAudits(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.AuditListEnvelope{Status: "success", Data: list})
}

// GetAudit godoc
// @Summary Get a stored audit report
// @Tags audits
// @Produce json
// @Security BearerAuth
// @Param id path string true "Audit ID"
// @Success 200 {object} model.AuditDetailEnvelope
// @Failure 404,500,503 {object} model.ErrorResponse
// @Router /api/v1/audits/{id} [get]
func (h *AuditHandler) GetAudit(c *gin.Context) {
	report, err := h.svc.GetAudit(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.AuditDetailEnvelope{Status: "success", Data: report})
}

// GetVerdicts godoc
// @Summary List incident verdicts of an audit
// @Tags audits
// @Produce json
// @Security BearerAuth
// @Param id path string true "Audit ID"
// @Param status query string false "exact | partial | unmatched"
// @Success 200 {object} model.VerdictListEnvelope
// @Failure 400,500,503 {object} model.ErrorResponse
// @Router /api/v1/audits/{id}/verdicts [get]
func (h *AuditHandler) GetVerdicts(c *gin.Context) {
	verdicts, err := h.svc.GetVerdicts(c.Request.Context(), c.Param("id"), model.MatchStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.VerdictListEnvelope{Status: "success", Data: verdicts})
}
