// 감사 실행 결과 저장/조회
//
// 테이블:
//   - audit_runs: 실행 1회 (요청 범위, 요약, 전체 리포트 JSONB)
//   - audit_event_matches: Source -> Target 이벤트 매핑
//   - audit_unmatched_events: 호스트별 미매칭 Source 이벤트 / 파싱 실패
//   - audit_verdicts: Source 인시던트별 판정

package db

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kube-rca/migration-audit/internal/model"
)

// EnsureAuditSchema - 감사 결과 테이블 생성
func (db *Postgres) EnsureAuditSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS audit_runs (
			audit_id TEXT PRIMARY KEY,
			hosts JSONB NOT NULL DEFAULT '[]',
			range_start TIMESTAMPTZ NOT NULL,
			range_end TIMESTAMPTZ NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ,
			summary JSONB NOT NULL DEFAULT '{}',
			report JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`
		CREATE TABLE IF NOT EXISTS audit_event_matches (
			audit_id TEXT NOT NULL REFERENCES audit_runs(audit_id) ON DELETE CASCADE,
			source_event_id TEXT NOT NULL,
			target_event_id TEXT NOT NULL,
			PRIMARY KEY (audit_id, source_event_id)
		)
		`,
		`
		CREATE TABLE IF NOT EXISTS audit_unmatched_events (
			audit_id TEXT NOT NULL REFERENCES audit_runs(audit_id) ON DELETE CASCADE,
			host TEXT NOT NULL,
			event_id TEXT NOT NULL,
			system TEXT NOT NULL DEFAULT 'source',
			kind TEXT NOT NULL DEFAULT '',
			type_key TEXT NOT NULL DEFAULT '',
			event_time TIMESTAMPTZ,
			reason TEXT NOT NULL DEFAULT ''
		)
		`,
		`
		CREATE TABLE IF NOT EXISTS audit_verdicts (
			audit_id TEXT NOT NULL REFERENCES audit_runs(audit_id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			source_incident_id TEXT NOT NULL,
			status TEXT NOT NULL,
			verdict JSONB NOT NULL DEFAULT '{}',
			PRIMARY KEY (audit_id, seq)
		)
		`,
		`CREATE INDEX IF NOT EXISTS audit_runs_started_at_idx ON audit_runs(started_at DESC)`,
		`CREATE INDEX IF NOT EXISTS audit_unmatched_events_host_idx ON audit_unmatched_events(audit_id, host)`,
		`CREATE INDEX IF NOT EXISTS audit_verdicts_status_idx ON audit_verdicts(audit_id, status)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to ensure audit schema: %w", err)
		}
	}
	return nil
}

// SaveAuditReport - 실행 결과 전체를 하나의 트랜잭션으로 저장
func (db *Postgres) SaveAuditReport(ctx context.Context, report *model.AuditReport) error {
	hostsJSON, err := json.Marshal(report.Request.Hosts)
	if err != nil {
		return fmt.Errorf("failed to marshal hosts: %w", err)
	}
	summaryJSON, err := json.Marshal(report.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	verdicts, err := verdictRows(report)
	if err != nil {
		return err
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err = tx.Exec(ctx, `
		INSERT INTO audit_runs (audit_id, hosts, range_start, range_end, started_at, finished_at, summary, report)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, report.ID, hostsJSON, report.Request.Start, report.Request.End,
		report.StartedAt, nullableTime(report.FinishedAt), summaryJSON, reportJSON); err != nil {
		return fmt.Errorf("failed to insert audit run: %w", err)
	}

	copies := []struct {
		table   string
		columns []string
		rows    [][]any
	}{
		{"audit_event_matches", []string{"audit_id", "source_event_id", "target_event_id"}, eventMatchRows(report)},
		{"audit_unmatched_events", []string{"audit_id", "host", "event_id", "system", "kind", "type_key", "event_time", "reason"}, unmatchedRows(report)},
		{"audit_verdicts", []string{"audit_id", "seq", "source_incident_id", "status", "verdict"}, verdicts},
	}
	for _, c := range copies {
		if len(c.rows) == 0 {
			continue
		}
		if _, err = tx.CopyFrom(ctx, pgx.Identifier{c.table}, c.columns, pgx.CopyFromRows(c.rows)); err != nil {
			return fmt.Errorf("failed to copy %s: %w", c.table, err)
		}
	}

	return tx.Commit(ctx)
}

// GetAuditList - 감사 실행 목록 (최신순)
func (db *Postgres) GetAuditList(ctx context.Context, limit int) ([]model.AuditListResponse, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT audit_id, hosts, range_start, range_end, started_at, finished_at, summary
		FROM audit_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit runs: %w", err)
	}
	defer rows.Close()

	var list []model.AuditListResponse
	for rows.Next() {
		var item model.AuditListResponse
		var hostsJSON, summaryJSON []byte
		if err := rows.Scan(&item.AuditID, &hostsJSON, &item.RangeStart, &item.RangeEnd,
			&item.StartedAt, &item.FinishedAt, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan audit run: %w", err)
		}
		if err := json.Unmarshal(hostsJSON, &item.Hosts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal hosts: %w", err)
		}
		if err := json.Unmarshal(summaryJSON, &item.Summary); err != nil {
			return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
		}
		list = append(list, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit runs: %w", err)
	}

	if list == nil {
		list = []model.AuditListResponse{}
	}
	return list, nil
}

// GetAuditDetail - 저장된 전체 리포트 조회
func (db *Postgres) GetAuditDetail(ctx context.Context, auditID string) (*model.AuditReport, error) {
	var reportJSON []byte
	err := db.Pool.QueryRow(ctx, `SELECT report FROM audit_runs WHERE audit_id = $1`, auditID).Scan(&reportJSON)
	if err != nil {
		if IsNoRows(err) {
			return nil, fmt.Errorf("audit %s: %w", auditID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query audit run: %w", err)
	}

	var report model.AuditReport
	if err := json.Unmarshal(reportJSON, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

// GetVerdicts - 인시던트 판정 목록 (status 필터 선택, 빈 문자열이면 전체)
func (db *Postgres) GetVerdicts(ctx context.Context, auditID string, status model.MatchStatus) ([]model.VerdictResponse, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT source_incident_id, status, verdict
		FROM audit_verdicts
		WHERE audit_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY seq
	`, auditID, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query verdicts: %w", err)
	}
	defer rows.Close()

	var list []model.VerdictResponse
	for rows.Next() {
		var item model.VerdictResponse
		var verdictJSON []byte
		if err := rows.Scan(&item.SourceIncidentID, &item.Status, &verdictJSON); err != nil {
			return nil, fmt.Errorf("failed to scan verdict: %w", err)
		}
		if err := json.Unmarshal(verdictJSON, &item.Verdict); err != nil {
			return nil, fmt.Errorf("failed to unmarshal verdict: %w", err)
		}
		list = append(list, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate verdicts: %w", err)
	}

	if list == nil {
		list = []model.VerdictResponse{}
	}
	return list, nil
}

// ============================================================================
// CopyFrom 행 변환
// ============================================================================

// eventMatchRows - Source ID 순으로 정렬된 매핑 행
func eventMatchRows(report *model.AuditReport) [][]any {
	sources := make([]string, 0, len(report.Mapping))
	for src := range report.Mapping {
		sources = append(sources, src)
	}
	sort.Strings(sources)

	rows := make([][]any, 0, len(sources))
	for _, src := range sources {
		rows = append(rows, []any{report.ID, src, report.Mapping[src]})
	}
	return rows
}

// unmatchedRows - 미매칭 이벤트와 파싱 실패를 한 테이블에 저장 (reason으로 구분)
func unmatchedRows(report *model.AuditReport) [][]any {
	var rows [][]any
	for _, host := range report.Hosts {
		for _, ev := range host.UnmatchedEvents {
			rows = append(rows, []any{report.ID, host.Host, ev.ID, string(ev.System), string(ev.Kind), ev.TypeKey, nullableTime(ev.Timestamp), ""})
		}
		for _, pf := range host.ParseFailures {
			rows = append(rows, []any{report.ID, host.Host, pf.EventID, string(pf.System), "", "", nil, pf.Reason})
		}
	}
	return rows
}

func verdictRows(report *model.AuditReport) ([][]any, error) {
	rows := make([][]any, 0, len(report.Verdicts))
	for i, v := range report.Verdicts {
		verdictJSON, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal verdict %s: %w", v.Source.SourceID, err)
		}
		rows = append(rows, []any{report.ID, int32(i), v.Source.SourceID, string(v.Status()), verdictJSON})
	}
	return rows, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
