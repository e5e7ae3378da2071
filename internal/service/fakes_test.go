package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kube-rca/migration-audit/internal/correlation"
	"github.com/kube-rca/migration-audit/internal/metrics"
	"github.com/kube-rca/migration-audit/internal/model"
	"github.com/kube-rca/migration-audit/internal/parser"
)

// fakeSystem - 호스트/종류별 고정 이벤트와 인시던트를 반환하는 어댑터
type fakeSystem struct {
	events    map[string]map[model.EventKind][]model.Event
	incidents []model.Incident
	members   map[string][]string
	failHosts map[string]bool
}

func newFakeSystem() *fakeSystem {
	return &fakeSystem{
		events:    map[string]map[model.EventKind][]model.Event{},
		members:   map[string][]string{},
		failHosts: map[string]bool{},
	}
}

func (f *fakeSystem) add(evs ...model.Event) {
	for _, ev := range evs {
		if f.events[ev.Host] == nil {
			f.events[ev.Host] = map[model.EventKind][]model.Event{}
		}
		f.events[ev.Host][ev.Kind] = append(f.events[ev.Host][ev.Kind], ev)
	}
}

func (f *fakeSystem) FetchEvents(_ context.Context, kind model.EventKind, host string, _, _ time.Time) ([]model.Event, error) {
	if f.failHosts[host] {
		return nil, fmt.Errorf("elasticsearch returned status 503 for %s", host)
	}
	return f.events[host][kind], nil
}

func (f *fakeSystem) FetchIncidents(_ context.Context, _, _ time.Time) ([]model.Incident, error) {
	out := make([]model.Incident, len(f.incidents))
	copy(out, f.incidents)
	return out, nil
}

func (f *fakeSystem) FetchIncidentMembers(_ context.Context, id string) ([]string, error) {
	return f.members[id], nil
}

type fakeAlarms struct {
	docs map[string][]model.AlarmStateDoc
}

func (f *fakeAlarms) FetchAlarmStateDocuments(_ context.Context, key string) ([]model.AlarmStateDoc, error) {
	return f.docs[key], nil
}

type fakeRepo struct {
	mu    sync.Mutex
	saved []*model.AuditReport
}

func (f *fakeRepo) SaveAuditReport(_ context.Context, r *model.AuditReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, r)
	return nil
}

func (f *fakeRepo) GetAuditList(_ context.Context, limit int) ([]model.AuditListResponse, error) {
	return []model.AuditListResponse{{AuditID: fmt.Sprintf("limit-%d", limit)}}, nil
}

func (f *fakeRepo) GetAuditDetail(_ context.Context, id string) (*model.AuditReport, error) {
	return &model.AuditReport{ID: id}, nil
}

func (f *fakeRepo) GetVerdicts(_ context.Context, id string, status model.MatchStatus) ([]model.VerdictResponse, error) {
	return []model.VerdictResponse{{SourceIncidentID: id, Status: status}}, nil
}

type fakeNotifier struct {
	reports []*model.AuditReport
}

func (f *fakeNotifier) Notify(_ context.Context, r *model.AuditReport) {
	f.reports = append(f.reports, r)
}

var t0 = time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)

func at(offset time.Duration) time.Time {
	return t0.Add(offset)
}

func syslogEvent(system model.System, id, host string, ts time.Time, raw string) model.Event {
	return model.Event{ID: id, System: system, Host: host, Timestamp: ts, Kind: model.EventKindSyslog, RawMessage: raw}
}

func trapEvent(system model.System, id, host string, ts time.Time, typeKey string) model.Event {
	return model.Event{ID: id, System: system, Host: host, Timestamp: ts, Kind: model.EventKindTrap, TypeKey: typeKey}
}

func defaultStrategies() []correlation.Strategy {
	return []correlation.Strategy{
		correlation.NewSyslogMatcher(parser.NewSyslogParser(time.UTC), correlation.DefaultFuzzTolerance),
		correlation.NewTrapMatcher(correlation.DefaultTrapWindow, correlation.SearchFirstMinimum,
			parser.NewInterfaceResolver(0), correlation.DefaultTrapRules()),
	}
}

func newTestService(source, target *fakeSystem, alarms *fakeAlarms, repo auditRepo, notifier reportNotifier, opts AuditOptions) *AuditService {
	if opts.Strategies == nil {
		opts.Strategies = defaultStrategies()
	}
	return NewAuditService(source, target, alarms, repo, notifier, metrics.New(), zap.NewNop(), opts)
}
