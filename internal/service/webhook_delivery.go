package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/kube-rca/migration-audit/internal/model"
	tmpl "github.com/kube-rca/migration-audit/internal/template"
)

// webhookConfigReader - DB 인터페이스 (delivery 전용)
type webhookConfigReader interface {
	GetWebhookConfigs(ctx context.Context) ([]model.WebhookConfig, error)
}

// WebhookDeliveryService - 사용자 설정 Webhook으로 감사 요약을 전송하는 서비스
type WebhookDeliveryService struct {
	configDB   webhookConfigReader
	httpClient *http.Client
	logger     *zap.Logger
}

// NewWebhookDeliveryService 생성자
func NewWebhookDeliveryService(configDB webhookConfigReader, logger *zap.Logger) *WebhookDeliveryService {
	return &WebhookDeliveryService{
		configDB: configDB,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Deliver - trigger 조건을 만족하는 webhook config에 렌더링된 body를 HTTP로 전송
//
// 개별 config 실패는 모아서 반환하고 나머지는 계속 전송합니다.
func (s *WebhookDeliveryService) Deliver(ctx context.Context, report *model.AuditReport) error {
	configs, err := s.configDB.GetWebhookConfigs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load webhook configs: %w", err)
	}

	data := tmpl.AuditDataFromReport(report)

	var result *multierror.Error
	for _, cfg := range configs {
		if cfg.URL == "" {
			s.logger.Warn("Skipping webhook config with empty URL", zap.Int("config_id", cfg.ID))
			continue
		}
		if !cfg.Fires(report.Summary) {
			continue
		}

		rendered := tmpl.RenderBody(cfg.Body, &data)
		if err := s.sendHTTP(ctx, cfg, rendered); err != nil {
			result = multierror.Append(result, fmt.Errorf("webhook %d (%s): %w", cfg.ID, cfg.URL, err))
			continue
		}
		s.logger.Info("Delivered audit webhook",
			zap.Int("config_id", cfg.ID),
			zap.String("url", cfg.URL),
			zap.String("audit_id", report.ID))
	}
	return result.ErrorOrNil()
}

// sendHTTP - 단일 webhook config로 HTTP 요청 전송
func (s *WebhookDeliveryService) sendHTTP(ctx context.Context, cfg model.WebhookConfig, body string) error {
	method := cfg.Method
	if method == "" {
		method = http.MethodPost
	}
	req, err := http.NewRequestWithContext(ctx, method, cfg.URL, bytes.NewBufferString(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Content-Type 기본값 설정 (없으면 application/json)
	hasContentType := false
	for _, h := range cfg.Headers {
		if h.Key != "" {
			req.Header.Set(h.Key, h.Value)
		}
		if http.CanonicalHeaderKey(h.Key) == "Content-Type" {
			hasContentType = true
		}
	}
	if !hasContentType {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
