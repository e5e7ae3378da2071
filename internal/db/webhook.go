package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kube-rca/migration-audit/internal/model"
)

// EnsureWebhookSchema - webhook_configs 테이블 생성 (없으면)
// trigger_on: always | on_mismatch (기존 테이블에는 컬럼 추가)
func (p *Postgres) EnsureWebhookSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS webhook_configs (
			id         SERIAL       PRIMARY KEY,
			url        TEXT         NOT NULL DEFAULT '',
			method     TEXT         NOT NULL DEFAULT 'POST',
			trigger_on TEXT         NOT NULL DEFAULT 'always',
			headers    JSONB        NOT NULL DEFAULT '[]',
			body       TEXT         NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);
		`,
		`ALTER TABLE webhook_configs ADD COLUMN IF NOT EXISTS trigger_on TEXT NOT NULL DEFAULT 'always'`,
	}
	for _, query := range queries {
		if _, err := p.Pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to create webhook_configs table: %w", err)
		}
	}
	return nil
}

const webhookColumns = `id, url, method, trigger_on, headers, body, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanWebhookConfig - headers(JSONB)는 []WebhookHeader로 변환
func scanWebhookConfig(row rowScanner) (model.WebhookConfig, error) {
	var cfg model.WebhookConfig
	var headersJSON []byte
	if err := row.Scan(&cfg.ID, &cfg.URL, &cfg.Method, &cfg.Trigger, &headersJSON, &cfg.Body, &cfg.UpdatedAt); err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(headersJSON, &cfg.Headers); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal headers of webhook %d: %w", cfg.ID, err)
	}
	return cfg, nil
}

// GetWebhookConfigs - 웹훅 설정 전체 목록 (최근 수정순)
func (p *Postgres) GetWebhookConfigs(ctx context.Context) ([]model.WebhookConfig, error) {
	rows, err := p.Pool.Query(ctx, `SELECT `+webhookColumns+` FROM webhook_configs ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query webhook configs: %w", err)
	}

	configs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.WebhookConfig, error) {
		return scanWebhookConfig(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan webhook configs: %w", err)
	}
	if configs == nil {
		configs = []model.WebhookConfig{}
	}
	return configs, nil
}

// GetWebhookConfigByID - 없으면 ErrNotFound
func (p *Postgres) GetWebhookConfigByID(ctx context.Context, id int) (*model.WebhookConfig, error) {
	row := p.Pool.QueryRow(ctx, `SELECT `+webhookColumns+` FROM webhook_configs WHERE id = $1`, id)
	cfg, err := scanWebhookConfig(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, fmt.Errorf("webhook config %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query webhook config %d: %w", id, err)
	}
	return &cfg, nil
}

// CreateWebhookConfig - 신규 웹훅 설정 저장
func (p *Postgres) CreateWebhookConfig(ctx context.Context, cfg model.WebhookConfig) (int, error) {
	headersJSON, err := json.Marshal(cfg.Headers)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal headers: %w", err)
	}

	var id int
	err = p.Pool.QueryRow(ctx, `
		INSERT INTO webhook_configs (url, method, trigger_on, headers, body, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id;
	`, cfg.URL, cfg.Method, string(cfg.Trigger), headersJSON, cfg.Body).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert webhook config: %w", err)
	}
	return id, nil
}

// UpdateWebhookConfig - ID로 웹훅 설정 수정
func (p *Postgres) UpdateWebhookConfig(ctx context.Context, id int, cfg model.WebhookConfig) error {
	headersJSON, err := json.Marshal(cfg.Headers)
	if err != nil {
		return fmt.Errorf("failed to marshal headers: %w", err)
	}

	tag, err := p.Pool.Exec(ctx, `
		UPDATE webhook_configs
		SET url = $1, method = $2, trigger_on = $3, headers = $4, body = $5, updated_at = NOW()
		WHERE id = $6;
	`, cfg.URL, cfg.Method, string(cfg.Trigger), headersJSON, cfg.Body, id)
	if err != nil {
		return fmt.Errorf("failed to update webhook config: %w", err)
	}
	return requireAffected(tag.RowsAffected(), id)
}

// DeleteWebhookConfig - ID로 웹훅 설정 삭제
func (p *Postgres) DeleteWebhookConfig(ctx context.Context, id int) error {
	tag, err := p.Pool.Exec(ctx, `DELETE FROM webhook_configs WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("failed to delete webhook config: %w", err)
	}
	return requireAffected(tag.RowsAffected(), id)
}

func requireAffected(n int64, id int) error {
	if n == 0 {
		return fmt.Errorf("webhook config %d: %w", id, ErrNotFound)
	}
	return nil
}
