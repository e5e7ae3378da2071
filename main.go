package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kube-rca/migration-audit/internal/config"
	"github.com/kube-rca/migration-audit/internal/handler"
	"github.com/kube-rca/migration-audit/internal/logger"
	"github.com/kube-rca/migration-audit/internal/model"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "migration-audit",
		Short: "Cross-system event and incident audit for monitoring migrations",
		Long: `migration-audit compares events, alarms and incidents recorded by a legacy (Source)
monitoring system with those recorded by its replacement (Target) for the same hosts and time range.

Syslog and trap events are matched one-to-one, alarm lifespans are derived from Target state
documents, and every Source incident receives an exact, partial or unmatched verdict.`,
		SilenceUsage: true,
	}
	rootCmd.AddCommand(newServeCmd(), newRunCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// serve - gin API 서버 실행
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the audit REST API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			router := handler.NewRouter(a.routerConfig())
			srv := &http.Server{
				Addr:              ":" + cfg.Server.Port,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("HTTP server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info("Shutting down HTTP server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

// run - 감사 1회 실행 후 결과 JSON 출력
func newRunCmd() *cobra.Command {
	var (
		hosts  []string
		start  string
		end    string
		output string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one audit and print the report as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			// 리포트가 stdout으로 나가므로 로그는 stderr
			if cfg.Log.Output == "stdout" {
				cfg.Log.Output = "stderr"
			}
			log, err := logger.New(cfg.Log)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			req, err := runRequest(cfg.Audit, hosts, start, end)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.audit.Run(ctx, req)
			if err != nil {
				return err
			}
			return writeReport(output, report)
		},
	}

	cmd.Flags().StringSliceVar(&hosts, "hosts", nil, "Hosts to audit (default AUDIT_HOSTS)")
	cmd.Flags().StringVar(&start, "start", "", "Range start, RFC3339 (default AUDIT_START)")
	cmd.Flags().StringVar(&end, "end", "", "Range end, RFC3339 (default AUDIT_END)")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Report file path, - for stdout")
	return cmd
}

// runRequest - 플래그가 있으면 환경변수 값보다 우선
func runRequest(cfg config.AuditConfig, hosts []string, start, end string) (model.AuditRequest, error) {
	req := model.AuditRequest{Hosts: cfg.Hosts, Start: cfg.Start, End: cfg.End}
	if len(hosts) > 0 {
		req.Hosts = hosts
	}
	if start != "" {
		t, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return req, fmt.Errorf("invalid --start: %w", err)
		}
		req.Start = t.UTC()
	}
	if end != "" {
		t, err := time.Parse(time.RFC3339, end)
		if err != nil {
			return req, fmt.Errorf("invalid --end: %w", err)
		}
		req.End = t.UTC()
	}
	return req, nil
}

func writeReport(path string, report *model.AuditReport) error {
	out := os.Stdout
	if path != "-" && path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
