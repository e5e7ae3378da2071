package model

import "time"

// ============================================================================
// Audit 실행 요청/결과 모델
// ============================================================================

// AuditRequest - 감사 실행 범위 (호스트 목록 + 시간 범위)
type AuditRequest struct {
	Hosts []string  `json:"hosts"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ParseFailure - 파싱 실패로 매칭에서 제외된 이벤트
type ParseFailure struct {
	EventID string `json:"event_id"`
	System  System `json:"system"`
	Host    string `json:"host"`
	Reason  string `json:"reason"`
}

// HostReport - 호스트 단위 이벤트 매칭 결과
type HostReport struct {
	Host            string         `json:"host"`
	SourceEvents    int            `json:"source_events"`
	TargetEvents    int            `json:"target_events"`
	Matched         int            `json:"matched"`
	MatchedByKind   map[string]int `json:"matched_by_kind"`
	UnmatchedEvents []Event        `json:"unmatched_events"`
	ParseFailures   []ParseFailure `json:"parse_failures"`
}

// AuditSummary - 감사 실행 요약 카운트
type AuditSummary struct {
	Hosts              int `json:"hosts"`
	SourceEvents       int `json:"source_events"`
	MatchedEvents      int `json:"matched_events"`
	UnmatchedEvents    int `json:"unmatched_events"`
	ParseFailures      int `json:"parse_failures"`
	Alarms             int `json:"alarms"`
	MissingStateDocs   int `json:"missing_state_documents"`
	SourceIncidents    int `json:"source_incidents"`
	ExactIncidents     int `json:"exact_incidents"`
	PartialIncidents   int `json:"partial_incidents"`
	UnmatchedIncidents int `json:"unmatched_incidents"`
}

// Mismatched - 두 시스템 간 불일치가 하나라도 있는지
func (s AuditSummary) Mismatched() bool {
	return s.UnmatchedEvents > 0 || s.UnmatchedIncidents > 0 || s.PartialIncidents > 0
}

// AuditReport - 감사 실행 1회의 전체 결과
type AuditReport struct {
	ID         string       `json:"id"`
	Request    AuditRequest `json:"request"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Mapping    EventMapping `json:"mapping"`
	Hosts      []HostReport `json:"hosts"`
	Alarms     []Alarm      `json:"alarms"`
	Verdicts   []Verdict    `json:"verdicts"`
	Summary    AuditSummary `json:"summary"`
}

// Summarize - 호스트/alarm/verdict 결과로 요약 카운트 계산
func (r *AuditReport) Summarize() {
	s := AuditSummary{Hosts: len(r.Hosts), Alarms: len(r.Alarms), SourceIncidents: len(r.Verdicts)}
	for _, h := range r.Hosts {
		s.SourceEvents += h.SourceEvents
		s.MatchedEvents += h.Matched
		s.UnmatchedEvents += len(h.UnmatchedEvents)
		s.ParseFailures += len(h.ParseFailures)
	}
	for _, a := range r.Alarms {
		if a.StateDocuments == 0 {
			s.MissingStateDocs++
		}
	}
	for _, v := range r.Verdicts {
		switch v.Status() {
		case MatchStatusExact:
			s.ExactIncidents++
		case MatchStatusPartial:
			s.PartialIncidents++
		default:
			s.UnmatchedIncidents++
		}
	}
	r.Summary = s
}

// ============================================================================
// 조회 API 모델
// ============================================================================

// AuditListResponse - 감사 실행 목록 조회용 구조체
type AuditListResponse struct {
	AuditID    string       `json:"audit_id"`
	Hosts      []string     `json:"hosts"`
	RangeStart time.Time    `json:"range_start"`
	RangeEnd   time.Time    `json:"range_end"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at"`
	Summary    AuditSummary `json:"summary"`
}

// VerdictResponse - 저장된 인시던트 판정 1건
type VerdictResponse struct {
	SourceIncidentID string      `json:"source_incident_id"`
	Status           MatchStatus `json:"status"`
	Verdict          Verdict     `json:"verdict"`
}
