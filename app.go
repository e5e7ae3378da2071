package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kube-rca/migration-audit/internal/client"
	"github.com/kube-rca/migration-audit/internal/config"
	"github.com/kube-rca/migration-audit/internal/correlation"
	"github.com/kube-rca/migration-audit/internal/db"
	"github.com/kube-rca/migration-audit/internal/handler"
	"github.com/kube-rca/migration-audit/internal/metrics"
	"github.com/kube-rca/migration-audit/internal/model"
	"github.com/kube-rca/migration-audit/internal/parser"
	"github.com/kube-rca/migration-audit/internal/service"
)

// app - 실행에 필요한 구성 요소 묶음
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
	audit    *service.AuditService
	webhooks *service.WebhookService
	closers  []func()
}

// buildApp - 설정에 따라 어댑터, 저장소, 알림 채널을 연결
//
// DB, Slack, NATS는 설정된 경우에만 연결한다.
func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, metrics: metrics.New()}

	strategies, err := buildStrategies(cfg.Audit)
	if err != nil {
		return nil, err
	}

	source := client.NewSourceClient(cfg.Source)
	target := client.NewTargetClient(cfg.Target)
	notifier := service.NewNotifier(logger)

	a.audit = service.NewAuditService(source, target, target, nil, notifier, a.metrics, logger, service.AuditOptions{
		Strategies:  strategies,
		Concurrency: cfg.Audit.Concurrency,
		DedupScope:  cfg.Audit.DedupScope,
	})

	if cfg.Postgres.Enabled() {
		pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)

		pg := &db.Postgres{Pool: pool}
		if err := pg.EnsureAuditSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		if err := pg.EnsureWebhookSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		a.audit.UseStorage(pg)
		a.webhooks = service.NewWebhookService(pg)
		notifier.AddChannel("webhook", service.NewWebhookDeliveryService(pg, logger).Deliver)
	} else {
		logger.Warn("Postgres not configured, audit results will not be stored")
	}

	slack := client.NewSlackClient(cfg.Slack)
	if slack.IsConfigured() {
		notifier.AddChannel("slack", slack.SendAuditSummary)
	}

	if cfg.NATS.URL != "" {
		conn, err := client.ConnectNATS(cfg.NATS.URL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = conn.Drain() })

		publisher := client.NewReportPublisher(conn, cfg.NATS.Subject, logger)
		notifier.AddChannel("nats", func(_ context.Context, report *model.AuditReport) error {
			return publisher.PublishReport(report)
		})
	}

	logger.Info("Audit components ready",
		zap.Int("strategies", len(strategies)),
		zap.Strings("notify_channels", notifier.Channels()),
		zap.String("dedup_scope", cfg.Audit.DedupScope),
		zap.Int("concurrency", cfg.Audit.Concurrency))
	return a, nil
}

// buildStrategies - syslog, trap 순서로 매칭 (trap 규칙은 TRAP_RULES_FILE)
func buildStrategies(cfg config.AuditConfig) ([]correlation.Strategy, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: SYSLOG_TIMEZONE %q: %v", config.ErrInvalidConfig, cfg.Timezone, err)
	}
	rules, err := config.LoadTrapRules(cfg.TrapRulesFile)
	if err != nil {
		return nil, err
	}

	return []correlation.Strategy{
		correlation.NewSyslogMatcher(parser.NewSyslogParser(loc), cfg.FuzzTolerance),
		correlation.NewTrapMatcher(cfg.TrapWindow, correlation.SearchMode(cfg.TrapSearchMode), parser.NewInterfaceResolver(0), rules),
	}, nil
}

func (a *app) routerConfig() handler.RouterConfig {
	rc := handler.RouterConfig{
		Audits:         handler.NewAuditHandler(a.audit),
		Metrics:        a.metrics.Handler(),
		JWTSecret:      a.cfg.Auth.JWTSecret,
		AllowedOrigins: a.cfg.Server.CORSAllowedOrigins,
		Logger:         a.logger,
	}
	if a.webhooks != nil {
		rc.Webhooks = handler.NewWebhookSettingsHandler(a.webhooks)
	}
	return rc
}

// Close - 연결 해제 (등록 역순)
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
