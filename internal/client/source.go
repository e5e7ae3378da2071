// Source(기존) 시스템 Elasticsearch 어댑터
//
// syslog/trap 인덱스는 종류별로 분리되어 있고, ticket 인덱스에 인시던트가 저장된다.

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kube-rca/migration-audit/internal/config"
	"github.com/kube-rca/migration-audit/internal/model"
)

// SourceClient 구조체 정의
type SourceClient struct {
	es  *ElasticClient
	cfg config.SourceConfig
}

// SourceClient 객체 생성
func NewSourceClient(cfg config.SourceConfig) *SourceClient {
	return &SourceClient{
		es:  NewElasticClient(cfg.BaseURL, cfg.Username, cfg.Password),
		cfg: cfg,
	}
}

type sourceEventDoc struct {
	EventID     string `json:"event_id"`
	Host        string `json:"host"`
	Timestamp   esTime `json:"@timestamp"`
	Message     string `json:"message"`
	TemplateKey string `json:"template_key"`
	TrapType    string `json:"trap_type"`
	Location    string `json:"location"`
}

type sourceTicketDoc struct {
	TicketID string   `json:"ticket_id"`
	Title    string   `json:"title"`
	Created  esTime   `json:"created_at"`
	EventIDs []string `json:"event_ids"`
	AlarmIDs []string `json:"alarm_ids"`
}

// FetchEvents - host/시간 범위의 Source 이벤트 조회
func (c *SourceClient) FetchEvents(ctx context.Context, kind model.EventKind, host string, start, end time.Time) ([]model.Event, error) {
	index := c.cfg.SyslogIndex
	if kind == model.EventKindTrap {
		index = c.cfg.TrapIndex
	}

	hits, err := c.es.searchAll(ctx, index, hostTimeRangeQuery("host", host, "@timestamp", start, end), "@timestamp")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source %s events: %w", kind, err)
	}

	events := make([]model.Event, 0, len(hits))
	for _, hit := range hits {
		var doc sourceEventDoc
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			return nil, fmt.Errorf("malformed source event %s: %w", hit.ID, err)
		}
		events = append(events, doc.toEvent(hit.ID, kind))
	}
	return events, nil
}

// FetchIncidents - 시간 범위 안에 생성된 ticket 목록 (조회 순서 유지)
func (c *SourceClient) FetchIncidents(ctx context.Context, start, end time.Time) ([]model.Incident, error) {
	query := map[string]any{"bool": map[string]any{"filter": []map[string]any{
		timeRange("created_at", start, end),
	}}}
	hits, err := c.es.searchAll(ctx, c.cfg.TicketIndex, query, "created_at")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source tickets: %w", err)
	}

	incidents := make([]model.Incident, 0, len(hits))
	for _, hit := range hits {
		var doc sourceTicketDoc
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			return nil, fmt.Errorf("malformed source ticket %s: %w", hit.ID, err)
		}
		id := doc.TicketID
		if id == "" {
			id = hit.ID
		}
		incidents = append(incidents, model.Incident{
			ID:       id,
			System:   model.SystemSource,
			Title:    doc.Title,
			EventIDs: doc.EventIDs,
			AlarmIDs: doc.AlarmIDs,
		})
	}
	return incidents, nil
}

// FetchIncidentMembers - ticket 하나의 구성 이벤트 ID
func (c *SourceClient) FetchIncidentMembers(ctx context.Context, incidentID string) ([]string, error) {
	query := map[string]any{"term": map[string]any{"ticket_id": incidentID}}
	hits, err := c.es.searchAll(ctx, c.cfg.TicketIndex, query, "created_at")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source ticket %s: %w", incidentID, err)
	}
	return collectMembers(hits, func(raw json.RawMessage) ([]string, error) {
		var doc sourceTicketDoc
		err := json.Unmarshal(raw, &doc)
		return doc.EventIDs, err
	})
}

func (d sourceEventDoc) toEvent(hitID string, kind model.EventKind) model.Event {
	id := d.EventID
	if id == "" {
		id = hitID
	}
	typeKey := d.TemplateKey
	if kind == model.EventKindTrap {
		typeKey = d.TrapType
	}
	return model.Event{
		ID:         id,
		System:     model.SystemSource,
		Host:       d.Host,
		Timestamp:  d.Timestamp.Time,
		Kind:       kind,
		TypeKey:    typeKey,
		RawMessage: d.Message,
		Location:   d.Location,
	}
}

// collectMembers - 여러 문서의 이벤트 ID를 순서 유지하며 중복 제거
func collectMembers(hits []searchHit, decode func(json.RawMessage) ([]string, error)) ([]string, error) {
	seen := make(map[string]struct{})
	var members []string
	for _, hit := range hits {
		ids, err := decode(hit.Source)
		if err != nil {
			return nil, fmt.Errorf("malformed incident document %s: %w", hit.ID, err)
		}
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			members = append(members, id)
		}
	}
	return members, nil
}
