// 완료된 감사 결과를 NATS subject로 발행하는 publisher
//
// 환경변수:
//   - NATS_URL: NATS 서버 주소 (비어 있으면 발행 비활성화)
//   - NATS_SUBJECT: 발행 subject (기본 audit.reports)

package client

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/kube-rca/migration-audit/internal/model"
)

// msgPublisher - *nats.Conn 중 publisher가 사용하는 부분
type msgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// ReportPublisher 구조체 정의
type ReportPublisher struct {
	conn    msgPublisher
	subject string
	logger  *zap.Logger
}

// reportEnvelope - 발행 메시지 본문 (이벤트 상세는 제외하고 요약/판정만 포함)
type reportEnvelope struct {
	AuditID    string                  `json:"audit_id"`
	Request    model.AuditRequest      `json:"request"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`
	Summary    model.AuditSummary      `json:"summary"`
	Verdicts   []model.VerdictResponse `json:"verdicts"`
}

// ConnectNATS - NATS 서버 연결
func ConnectNATS(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("migration-audit"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(60),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

// ReportPublisher 객체 생성
func NewReportPublisher(conn msgPublisher, subject string, logger *zap.Logger) *ReportPublisher {
	return &ReportPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger,
	}
}

// PublishReport - 감사 결과를 헤더와 함께 발행
func (p *ReportPublisher) PublishReport(report *model.AuditReport) error {
	if p.conn == nil {
		return fmt.Errorf("NATS connection not available")
	}

	verdicts := make([]model.VerdictResponse, 0, len(report.Verdicts))
	for _, v := range report.Verdicts {
		verdicts = append(verdicts, model.VerdictResponse{
			SourceIncidentID: v.Source.SourceID,
			Status:           v.Status(),
			Verdict:          v,
		})
	}

	data, err := json.Marshal(reportEnvelope{
		AuditID:    report.ID,
		Request:    report.Request,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Summary:    report.Summary,
		Verdicts:   verdicts,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal audit report: %w", err)
	}

	headers := nats.Header{}
	headers.Set("x-audit-id", report.ID)
	headers.Set("x-range-start", report.Request.Start.Format(time.RFC3339))
	headers.Set("x-range-end", report.Request.End.Format(time.RFC3339))
	headers.Set("x-mismatch", strconv.FormatBool(report.Summary.Mismatched()))
	headers.Set("x-timestamp", report.FinishedAt.Format(time.RFC3339))

	msg := &nats.Msg{
		Subject: p.subject,
		Data:    data,
		Header:  headers,
	}
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish audit report: %w", err)
	}

	p.logger.Info("Published audit report",
		zap.String("audit_id", report.ID),
		zap.String("subject", p.subject),
		zap.Int("verdicts", len(verdicts)))
	return nil
}
