package model

type ErrorResponse struct {
	Error string `json:"error"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type PingResponse struct {
	Message string `json:"message"`
}

type RootResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// AuditRunRequest - 감사 실행 요청 구조체 (RFC3339 시각)
type AuditRunRequest struct {
	Hosts []string `json:"hosts" binding:"required,min=1"`
	Start string   `json:"start" binding:"required"`
	End   string   `json:"end" binding:"required"`
}

type AuditRunResponse struct {
	Status  string       `json:"status"`
	AuditID string       `json:"audit_id"`
	Summary AuditSummary `json:"summary"`
}

type AuditDetailEnvelope struct {
	Status string       `json:"status"`
	Data   *AuditReport `json:"data"`
}

type AuditListEnvelope struct {
	Status string              `json:"status"`
	Data   []AuditListResponse `json:"data"`
}

type VerdictListEnvelope struct {
	Status string            `json:"status"`
	Data   []VerdictResponse `json:"data"`
}
