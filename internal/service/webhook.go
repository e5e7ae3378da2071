package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/kube-rca/migration-audit/internal/model"
)

// webhookRepo - DB 인터페이스
type webhookRepo interface {
	GetWebhookConfigs(ctx context.Context) ([]model.WebhookConfig, error)
	GetWebhookConfigByID(ctx context.Context, id int) (*model.WebhookConfig, error)
	CreateWebhookConfig(ctx context.Context, cfg model.WebhookConfig) (int, error)
	UpdateWebhookConfig(ctx context.Context, id int, cfg model.WebhookConfig) error
	DeleteWebhookConfig(ctx context.Context, id int) error
}

// WebhookService - 웹훅 설정 비즈니스 로직
type WebhookService struct {
	db webhookRepo
}

func NewWebhookService(db webhookRepo) *WebhookService {
	return &WebhookService{db: db}
}

func (s *WebhookService) ListWebhookConfigs(ctx context.Context) ([]model.WebhookConfig, error) {
	return s.db.GetWebhookConfigs(ctx)
}

func (s *WebhookService) GetWebhookConfig(ctx context.Context, id int) (*model.WebhookConfig, error) {
	return s.db.GetWebhookConfigByID(ctx, id)
}

func (s *WebhookService) CreateWebhookConfig(ctx context.Context, req model.WebhookConfigRequest) (int, error) {
	cfg, err := configFromRequest(req)
	if err != nil {
		return 0, err
	}
	return s.db.CreateWebhookConfig(ctx, cfg)
}

func (s *WebhookService) UpdateWebhookConfig(ctx context.Context, id int, req model.WebhookConfigRequest) error {
	cfg, err := configFromRequest(req)
	if err != nil {
		return err
	}
	return s.db.UpdateWebhookConfig(ctx, id, cfg)
}

func (s *WebhookService) DeleteWebhookConfig(ctx context.Context, id int) error {
	return s.db.DeleteWebhookConfig(ctx, id)
}

// configFromRequest - 기본값 적용 (method: POST, trigger: always) 및 검증
func configFromRequest(req model.WebhookConfigRequest) (model.WebhookConfig, error) {
	cfg := model.WebhookConfig{
		URL:     req.URL,
		Method:  strings.ToUpper(req.Method),
		Trigger: req.Trigger,
		Body:    req.Body,
		Headers: req.Headers,
	}
	if cfg.Method == "" {
		cfg.Method = http.MethodPost
	}
	if cfg.Trigger == "" {
		cfg.Trigger = model.WebhookTriggerAlways
	}
	if cfg.Headers == nil {
		cfg.Headers = []model.WebhookHeader{}
	}

	switch cfg.Trigger {
	case model.WebhookTriggerAlways, model.WebhookTriggerOnMismatch:
	default:
		return cfg, fmt.Errorf("%w: unknown trigger %q", ErrInvalidInput, cfg.Trigger)
	}
	switch cfg.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return cfg, fmt.Errorf("%w: unsupported method %q", ErrInvalidInput, cfg.Method)
	}
	return cfg, nil
}
