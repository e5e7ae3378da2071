// 감사 실행 서비스
//
// 처리 흐름:
//  1. 호스트별로 Source/Target 이벤트 조회 후 전략(syslog, trap) 순서대로 매칭
//  2. 매칭된 Target 이벤트의 reduction key로 alarm 상태 문서 조회 -> lifespan 계산, 이벤트 귀속
//  3. Source ticket / Target situation 조회 -> Target 이벤트 ID 집합으로 정규화
//  4. 인시던트 매칭 -> 판정 목록, 요약 계산
//  5. 결과 저장 (DB 설정 시) 및 알림 전송
//
// 호스트는 AUDIT_CONCURRENCY만큼 병렬 처리한다.
// dedup 집합은 기본적으로 실행 단위로 공유하고 (Session 내부 잠금), host 모드에서는 호스트마다 새로 만든다.

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kube-rca/migration-audit/internal/correlation"
	"github.com/kube-rca/migration-audit/internal/metrics"
	"github.com/kube-rca/migration-audit/internal/model"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrRunFailed       = errors.New("audit run failed")
	ErrStorageDisabled = errors.New("audit storage not configured")
)

const (
	DedupScopeRun  = "run"
	DedupScopeHost = "host"
)

// eventSource - Source/Target 이벤트 및 인시던트 조회 어댑터
type eventSource interface {
	FetchEvents(ctx context.Context, kind model.EventKind, host string, start, end time.Time) ([]model.Event, error)
	FetchIncidents(ctx context.Context, start, end time.Time) ([]model.Incident, error)
	FetchIncidentMembers(ctx context.Context, incidentID string) ([]string, error)
}

// alarmStateSource - Target alarm 상태 문서 조회 어댑터
type alarmStateSource interface {
	FetchAlarmStateDocuments(ctx context.Context, reductionKey string) ([]model.AlarmStateDoc, error)
}

// auditRepo - 감사 결과 저장소
type auditRepo interface {
	SaveAuditReport(ctx context.Context, report *model.AuditReport) error
	GetAuditList(ctx context.Context, limit int) ([]model.AuditListResponse, error)
	GetAuditDetail(ctx context.Context, auditID string) (*model.AuditReport, error)
	GetVerdicts(ctx context.Context, auditID string, status model.MatchStatus) ([]model.VerdictResponse, error)
}

// reportNotifier - 완료된 감사 결과 알림
type reportNotifier interface {
	Notify(ctx context.Context, report *model.AuditReport)
}

// AuditOptions - 실행 파라미터
type AuditOptions struct {
	Strategies  []correlation.Strategy
	Concurrency int
	DedupScope  string
}

// AuditService 구조체 정의
type AuditService struct {
	source   eventSource
	target   eventSource
	alarms   alarmStateSource
	repo     auditRepo
	notifier reportNotifier
	metrics  *metrics.Metrics
	logger   *zap.Logger
	opts     AuditOptions

	now func() time.Time
}

// AuditService 객체 생성
// repo, notifier는 nil이면 저장/알림을 건너뜀
func NewAuditService(
	source eventSource,
	target eventSource,
	alarms alarmStateSource,
	repo auditRepo,
	notifier reportNotifier,
	m *metrics.Metrics,
	logger *zap.Logger,
	opts AuditOptions,
) *AuditService {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.DedupScope == "" {
		opts.DedupScope = DedupScopeRun
	}
	return &AuditService{
		source:   source,
		target:   target,
		alarms:   alarms,
		repo:     repo,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// UseStorage - 결과 저장소 연결 (DB 설정 시에만 호출)
func (s *AuditService) UseStorage(repo auditRepo) {
	s.repo = repo
}

// hostOutcome - 호스트 1개 매칭 결과
type hostOutcome struct {
	report         model.HostReport
	mapping        model.EventMapping
	matchedTargets []model.Event
	session        *correlation.Session
}

// ============================================================================
// 실행
// ============================================================================

// Run - 감사 1회 실행
func (s *AuditService) Run(ctx context.Context, req model.AuditRequest) (*model.AuditReport, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	startedAt := s.now()
	report := &model.AuditReport{
		ID:        uuid.NewString(),
		Request:   req,
		StartedAt: startedAt,
		Mapping:   model.EventMapping{},
	}
	logger := s.logger.With(zap.String("audit_id", report.ID))
	logger.Info("Audit run started",
		zap.Strings("hosts", req.Hosts),
		zap.Time("start", req.Start),
		zap.Time("end", req.End))

	if err := s.execute(ctx, logger, report); err != nil {
		s.metrics.ObserveRun("failed", s.now().Sub(startedAt).Seconds())
		logger.Error("Audit run failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrRunFailed, err)
	}

	report.FinishedAt = s.now()
	report.Summarize()
	s.metrics.ObserveRun("success", report.FinishedAt.Sub(startedAt).Seconds())
	for _, v := range report.Verdicts {
		s.metrics.AddVerdict(string(v.Status()))
	}

	logger.Info("Audit run finished",
		zap.Int("source_events", report.Summary.SourceEvents),
		zap.Int("matched", report.Summary.MatchedEvents),
		zap.Int("unmatched", report.Summary.UnmatchedEvents),
		zap.Int("exact_incidents", report.Summary.ExactIncidents),
		zap.Int("partial_incidents", report.Summary.PartialIncidents),
		zap.Int("unmatched_incidents", report.Summary.UnmatchedIncidents))

	if s.repo != nil {
		if err := s.repo.SaveAuditReport(ctx, report); err != nil {
			logger.Error("Failed to save audit report", zap.Error(err))
		}
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, report)
	}
	return report, nil
}

func validateRequest(req model.AuditRequest) error {
	if len(req.Hosts) == 0 {
		return fmt.Errorf("%w: at least one host is required", ErrInvalidInput)
	}
	if req.Start.IsZero() || req.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidInput)
	}
	if !req.Start.Before(req.End) {
		return fmt.Errorf("%w: start must be before end", ErrInvalidInput)
	}
	return nil
}

func (s *AuditService) execute(ctx context.Context, logger *zap.Logger, report *model.AuditReport) error {
	req := report.Request

	outcomes, err := s.matchHosts(ctx, req)
	if err != nil {
		return err
	}

	var matchedTargets []model.Event
	claimed := 0
	counted := make(map[*correlation.Session]struct{})
	for _, o := range outcomes {
		report.Hosts = append(report.Hosts, o.report)
		report.Mapping.Merge(o.mapping)
		matchedTargets = append(matchedTargets, o.matchedTargets...)
		if _, ok := counted[o.session]; !ok {
			counted[o.session] = struct{}{}
			claimed += o.session.Len()
		}
		for _, pf := range o.report.ParseFailures {
			logger.Warn("Event excluded by parse failure",
				zap.String("host", pf.Host),
				zap.String("system", string(pf.System)),
				zap.String("event_id", pf.EventID),
				zap.String("reason", pf.Reason))
		}
	}
	s.metrics.SetDedupClaimed(claimed)

	alarms, err := s.buildAlarms(ctx, logger, req, matchedTargets)
	if err != nil {
		return err
	}
	report.Alarms = alarms

	verdicts, err := s.matchIncidents(ctx, req, report.Mapping, alarms)
	if err != nil {
		return err
	}
	report.Verdicts = verdicts
	return nil
}

// matchHosts - 호스트별 이벤트 매칭 (결과는 요청 호스트 순서 유지)
// 어댑터 오류는 모든 호스트에 대해 모아서 반환
func (s *AuditService) matchHosts(ctx context.Context, req model.AuditRequest) ([]hostOutcome, error) {
	runSession := correlation.NewSession()
	outcomes := make([]hostOutcome, len(req.Hosts))
	hostErrs := make([]error, len(req.Hosts))

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i, host := range req.Hosts {
		session := runSession
		if s.opts.DedupScope == DedupScopeHost {
			session = correlation.NewSession()
		}
		g.Go(func() error {
			outcome, err := s.matchHost(ctx, host, req.Start, req.End, session)
			if err != nil {
				hostErrs[i] = fmt.Errorf("host %s: %w", host, err)
				return nil
			}
			outcomes[i] = outcome
			return nil
		})
	}
	_ = g.Wait()

	var result *multierror.Error
	for _, err := range hostErrs {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// matchHost - 전략 순서대로 한 호스트의 이벤트 매칭
func (s *AuditService) matchHost(ctx context.Context, host string, start, end time.Time, session *correlation.Session) (hostOutcome, error) {
	out := hostOutcome{
		report: model.HostReport{
			Host:            host,
			MatchedByKind:   map[string]int{},
			UnmatchedEvents: []model.Event{},
			ParseFailures:   []model.ParseFailure{},
		},
		mapping: model.EventMapping{},
		session: session,
	}

	for _, strategy := range s.opts.Strategies {
		kind := strategy.Kind()
		sourceEvents, err := s.source.FetchEvents(ctx, kind, host, start, end)
		if err != nil {
			return out, err
		}
		targetEvents, err := s.target.FetchEvents(ctx, kind, host, start, end)
		if err != nil {
			return out, err
		}

		res := strategy.Match(session, sourceEvents, targetEvents)

		out.report.SourceEvents += len(sourceEvents)
		out.report.TargetEvents += len(targetEvents)
		out.report.Matched += len(res.Mapping)
		out.report.MatchedByKind[string(kind)] += len(res.Mapping)
		out.report.UnmatchedEvents = append(out.report.UnmatchedEvents, res.Unmatched...)
		out.report.ParseFailures = append(out.report.ParseFailures, res.ParseFailures...)
		out.mapping.Merge(res.Mapping)

		matched := res.Mapping.Targets()
		for _, ev := range targetEvents {
			if _, ok := matched[ev.ID]; ok {
				out.matchedTargets = append(out.matchedTargets, ev)
			}
		}

		s.metrics.AddEvents(string(kind), "matched", len(res.Mapping))
		s.metrics.AddEvents(string(kind), "unmatched", len(res.Unmatched))
		for _, pf := range res.ParseFailures {
			s.metrics.AddParseFailure(string(pf.System))
		}
	}
	return out, nil
}

// buildAlarms - 매칭된 Target 이벤트의 reduction key별로 alarm 구성 (첫 등장 순서)
// 상태 문서가 없는 alarm은 경고만 남기고 감사 범위 전체를 lifespan으로 사용
func (s *AuditService) buildAlarms(ctx context.Context, logger *zap.Logger, req model.AuditRequest, matchedTargets []model.Event) ([]model.Alarm, error) {
	var keys []string
	seen := make(map[string]struct{})
	for _, ev := range matchedTargets {
		if ev.ReductionKey == "" {
			continue
		}
		if _, ok := seen[ev.ReductionKey]; ok {
			continue
		}
		seen[ev.ReductionKey] = struct{}{}
		keys = append(keys, ev.ReductionKey)
	}

	alarms := make([]model.Alarm, 0, len(keys))
	var ambiguous *multierror.Error
	for _, key := range keys {
		docs, err := s.alarms.FetchAlarmStateDocuments(ctx, key)
		if err != nil {
			return nil, err
		}

		alarm, err := correlation.BuildAlarm(key, docs, matchedTargets, req.Start, req.End)
		switch {
		case errors.Is(err, correlation.ErrMissingStateDocuments):
			logger.Warn("Alarm has no state documents, lifespan defaults to audit range",
				zap.String("reduction_key", key))
			s.metrics.AddMissingStateDocuments()
		case err != nil:
			ambiguous = multierror.Append(ambiguous, err)
			continue
		}
		alarms = append(alarms, alarm)
	}
	if err := ambiguous.ErrorOrNil(); err != nil {
		return nil, err
	}
	return alarms, nil
}

// matchIncidents - 인시던트 조회/정규화 후 조회 순서대로 매칭
func (s *AuditService) matchIncidents(ctx context.Context, req model.AuditRequest, mapping model.EventMapping, alarms []model.Alarm) ([]model.Verdict, error) {
	byKey := make(map[string]model.Alarm, len(alarms))
	for _, a := range alarms {
		byKey[a.ReductionKey] = a
	}

	var sources, targets []model.Incident
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sources, err = s.loadIncidents(gctx, s.source, req)
		return err
	})
	g.Go(func() error {
		var err error
		targets, err = s.loadIncidents(gctx, s.target, req)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sourceCanon := make([]model.CanonicalIncident, 0, len(sources))
	for _, inc := range sources {
		sourceCanon = append(sourceCanon, correlation.Canonicalize(inc, mapping))
	}
	targetCanon := make([]model.CanonicalIncident, 0, len(targets))
	for _, inc := range targets {
		targetCanon = append(targetCanon, correlation.Canonicalize(correlation.ExpandAlarmMembers(inc, byKey), mapping))
	}

	return correlation.MatchIncidents(sourceCanon, targetCanon), nil
}

// loadIncidents - 목록에 구성 이벤트가 없는 인시던트는 개별 조회로 채움
func (s *AuditService) loadIncidents(ctx context.Context, src eventSource, req model.AuditRequest) ([]model.Incident, error) {
	incidents, err := src.FetchIncidents(ctx, req.Start, req.End)
	if err != nil {
		return nil, err
	}
	for i := range incidents {
		if incidents[i].EventIDs != nil {
			continue
		}
		members, err := src.FetchIncidentMembers(ctx, incidents[i].ID)
		if err != nil {
			return nil, err
		}
		incidents[i].EventIDs = members
	}
	return incidents, nil
}

// ============================================================================
// 조회
// ============================================================================

// ListAudits - 저장된 감사 실행 목록
func (s *AuditService) ListAudits(ctx context.Context, limit int) ([]model.AuditListResponse, error) {
	if s.repo == nil {
		return nil, ErrStorageDisabled
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.repo.GetAuditList(ctx, limit)
}

// GetAudit - 저장된 감사 결과 상세
func (s *AuditService) GetAudit(ctx context.Context, auditID string) (*model.AuditReport, error) {
	if s.repo == nil {
		return nil, ErrStorageDisabled
	}
	return s.repo.GetAuditDetail(ctx, auditID)
}

// GetVerdicts - 인시던트 판정 목록 (status 필터 선택)
func (s *AuditService) GetVerdicts(ctx context.Context, auditID string, status model.MatchStatus) ([]model.VerdictResponse, error) {
	if s.repo == nil {
		return nil, ErrStorageDisabled
	}
	switch status {
	case "", model.MatchStatusExact, model.MatchStatusPartial, model.MatchStatusUnmatched:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	return s.repo.GetVerdicts(ctx, auditID, status)
}
