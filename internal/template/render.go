// Package template provides webhook body template rendering.
//
// 지원하는 변수 형식:
//
//	{{audit.id}}, {{audit.status}}, {{audit.hosts}},
//	{{audit.start}}, {{audit.end}}, {{audit.finished_at}}
//
//	{{audit.source_events}}, {{audit.matched}}, {{audit.unmatched}},
//	{{audit.parse_failures}}, {{audit.alarms}}, {{audit.missing_state_docs}}
//
//	{{audit.incidents}}, {{audit.exact}}, {{audit.partial}}, {{audit.unmatched_incidents}}
package template

import (
	"strconv"
	"strings"
	"time"

	"github.com/kube-rca/migration-audit/internal/model"
)

const (
	StatusClean    = "clean"
	StatusMismatch = "mismatch"
)

// AuditData - 템플릿 렌더링에 사용할 감사 결과 데이터
type AuditData struct {
	ID         string
	Hosts      []string
	Start      time.Time
	End        time.Time
	FinishedAt time.Time
	Summary    model.AuditSummary
}

// AuditDataFromReport - AuditReport에서 AuditData 생성
func AuditDataFromReport(report *model.AuditReport) AuditData {
	return AuditData{
		ID:         report.ID,
		Hosts:      report.Request.Hosts,
		Start:      report.Request.Start,
		End:        report.Request.End,
		FinishedAt: report.FinishedAt,
		Summary:    report.Summary,
	}
}

// Status - 불일치 여부 문자열
func (d AuditData) Status() string {
	if d.Summary.Mismatched() {
		return StatusMismatch
	}
	return StatusClean
}

// RenderBody - webhook body 템플릿의 변수를 실제 값으로 치환
//
// audit이 nil이면 모든 변수를 빈 문자열로 치환합니다.
func RenderBody(body string, audit *AuditData) string {
	blank := audit == nil
	if blank {
		audit = &AuditData{}
	}
	return strings.NewReplacer(auditPairs(audit, blank)...).Replace(body)
}

func auditPairs(d *AuditData, blank bool) []string {
	s := d.Summary
	values := []struct {
		key   string
		value string
	}{
		{"id", d.ID},
		{"status", d.Status()},
		{"hosts", strings.Join(d.Hosts, ",")},
		{"start", formatTime(d.Start)},
		{"end", formatTime(d.End)},
		{"finished_at", formatTime(d.FinishedAt)},
		{"source_events", strconv.Itoa(s.SourceEvents)},
		{"matched", strconv.Itoa(s.MatchedEvents)},
		{"unmatched", strconv.Itoa(s.UnmatchedEvents)},
		{"parse_failures", strconv.Itoa(s.ParseFailures)},
		{"alarms", strconv.Itoa(s.Alarms)},
		{"missing_state_docs", strconv.Itoa(s.MissingStateDocs)},
		{"incidents", strconv.Itoa(s.SourceIncidents)},
		{"exact", strconv.Itoa(s.ExactIncidents)},
		{"partial", strconv.Itoa(s.PartialIncidents)},
		{"unmatched_incidents", strconv.Itoa(s.UnmatchedIncidents)},
	}

	pairs := make([]string, 0, len(values)*2)
	for _, v := range values {
		value := v.value
		if blank {
			value = ""
		}
		pairs = append(pairs, "{{audit."+v.key+"}}", value)
	}
	return pairs
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
