package handler

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/kube-rca/migration-audit/internal/db"
	"github.com/kube-rca/migration-audit/internal/model"
	"github.com/kube-rca/migration-audit/internal/service"
)

type fakeWebhookService struct{}

func (fakeWebhookService) ListWebhookConfigs(context.Context) ([]model.WebhookConfig, error) {
	return []model.WebhookConfig{}, nil
}

func (fakeWebhookService) GetWebhookConfig(_ context.Context, id int) (*model.WebhookConfig, error) {
	if id != 1 {
		return nil, fmt.Errorf("webhook config %d: %w", id, db.ErrNotFound)
	}
	return &model.WebhookConfig{ID: 1, Trigger: model.WebhookTriggerOnMismatch}, nil
}

func (fakeWebhookService) CreateWebhookConfig(_ context.Context, req model.WebhookConfigRequest) (int, error) {
	if req.Trigger == "sometimes" {
		return 0, fmt.Errorf("%w: unknown trigger", service.ErrInvalidInput)
	}
	return 3, nil
}

func (fakeWebhookService) UpdateWebhookConfig(context.Context, int, model.WebhookConfigRequest) error {
	return nil
}

func (fakeWebhookService) DeleteWebhookConfig(_ context.Context, id int) error {
	return fmt.Errorf("webhook config %d: %w", id, db.ErrNotFound)
}

func TestWebhookSettingsRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(RouterConfig{
		Audits:   NewAuditHandler(&fakeAuditService{}),
		Webhooks: NewWebhookSettingsHandler(fakeWebhookService{}),
	})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{name: "list", method: http.MethodGet, path: "/api/v1/settings/webhooks", want: http.StatusOK},
		{name: "get", method: http.MethodGet, path: "/api/v1/settings/webhooks/1", want: http.StatusOK},
		{name: "get-missing", method: http.MethodGet, path: "/api/v1/settings/webhooks/2", want: http.StatusNotFound},
		{name: "get-bad-id", method: http.MethodGet, path: "/api/v1/settings/webhooks/abc", want: http.StatusBadRequest},
		{name: "create", method: http.MethodPost, path: "/api/v1/settings/webhooks", body: `{"url":"http://hook","trigger":"on_mismatch"}`, want: http.StatusCreated},
		{name: "create-no-url", method: http.MethodPost, path: "/api/v1/settings/webhooks", body: `{"trigger":"always"}`, want: http.StatusBadRequest},
		{name: "create-bad-trigger", method: http.MethodPost, path: "/api/v1/settings/webhooks", body: `{"url":"http://hook","trigger":"sometimes"}`, want: http.StatusBadRequest},
		{name: "update", method: http.MethodPut, path: "/api/v1/settings/webhooks/1", body: `{"url":"http://hook"}`, want: http.StatusOK},
		{name: "delete-missing", method: http.MethodDelete, path: "/api/v1/settings/webhooks/9", want: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, tt.method, tt.path, tt.body, nil)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}
