package model

import "time"

// WebhookTrigger - 감사 결과 알림을 보낼 조건
type WebhookTrigger string

const (
	WebhookTriggerAlways     WebhookTrigger = "always"      // 모든 감사 완료 시
	WebhookTriggerOnMismatch WebhookTrigger = "on_mismatch" // 미매칭 이벤트/인시던트가 있을 때만
)

// WebhookHeader - 헤더 키-값 쌍
type WebhookHeader struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// WebhookConfig - DB에 저장되는 감사 결과 웹훅 설정
type WebhookConfig struct {
	ID        int             `json:"id"`
	URL       string          `json:"url"`
	Method    string          `json:"method"`
	Trigger   WebhookTrigger  `json:"trigger"`
	Headers   []WebhookHeader `json:"headers"`
	Body      string          `json:"body"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Fires - 요약 결과가 trigger 조건을 만족하는지
func (c WebhookConfig) Fires(s AuditSummary) bool {
	if c.Trigger == WebhookTriggerOnMismatch {
		return s.Mismatched()
	}
	return true
}

// WebhookConfigRequest - 웹훅 설정 생성/수정 요청 구조체
type WebhookConfigRequest struct {
	URL     string          `json:"url" binding:"required"`
	Method  string          `json:"method"`
	Trigger WebhookTrigger  `json:"trigger"`
	Headers []WebhookHeader `json:"headers"`
	Body    string          `json:"body"`
}

// WebhookConfigResponse - 단건 조회 응답
type WebhookConfigResponse struct {
	Status string         `json:"status"`
	Data   *WebhookConfig `json:"data"`
}

// WebhookConfigListResponse - 목록 조회 응답
type WebhookConfigListResponse struct {
	Status string          `json:"status"`
	Data   []WebhookConfig `json:"data"`
}

// WebhookConfigMutationResponse - 생성/수정/삭제 응답
type WebhookConfigMutationResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	ID      int    `json:"id,omitempty"`
}
