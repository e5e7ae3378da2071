// Target(신규) 시스템 Elasticsearch 어댑터
//
// 이벤트 인덱스 하나에 syslog/trap이 함께 저장되며 kind 필드로 구분한다.
// alarm 인덱스에는 reduction key별 상태 문서, situation 인덱스에는 인시던트가 저장된다.

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kube-rca/migration-audit/internal/config"
	"github.com/kube-rca/migration-audit/internal/model"
)

// TargetClient 구조체 정의
type TargetClient struct {
	es  *ElasticClient
	cfg config.TargetConfig
}

// TargetClient 객체 생성
func NewTargetClient(cfg config.TargetConfig) *TargetClient {
	return &TargetClient{
		es:  NewElasticClient(cfg.BaseURL, cfg.Username, cfg.Password),
		cfg: cfg,
	}
}

type targetEventDoc struct {
	ID           string            `json:"id"`
	Host         string            `json:"host"`
	Timestamp    esTime            `json:"@timestamp"`
	Kind         string            `json:"kind"`
	UEI          string            `json:"uei"`
	LogMessage   string            `json:"log_message"`
	Parms        map[string]string `json:"parms"`
	ReductionKey string            `json:"reduction_key"`
	ClearKey     string            `json:"clear_key"`
}

type alarmStateDoc struct {
	AlarmID        flexID `json:"alarm_id"`
	ReductionKey   string `json:"reduction_key"`
	FirstEventTime esTime `json:"first_event_time"`
	LastEventTime  esTime `json:"last_event_time"`
	DeletionTime   esTime `json:"deletion_time"`
}

type situationDoc struct {
	SituationID   string   `json:"situation_id"`
	Title         string   `json:"title"`
	Created       esTime   `json:"created_at"`
	EventIDs      []string `json:"event_ids"`
	ReductionKeys []string `json:"reduction_keys"`
}

// FetchEvents - host/시간 범위의 Target 이벤트 조회
func (c *TargetClient) FetchEvents(ctx context.Context, kind model.EventKind, host string, start, end time.Time) ([]model.Event, error) {
	query := hostTimeRangeQuery("host", host, "@timestamp", start, end,
		map[string]any{"term": map[string]any{"kind": string(kind)}})

	hits, err := c.es.searchAll(ctx, c.cfg.EventIndex, query, "@timestamp")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch target %s events: %w", kind, err)
	}

	events := make([]model.Event, 0, len(hits))
	for _, hit := range hits {
		var doc targetEventDoc
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			return nil, fmt.Errorf("malformed target event %s: %w", hit.ID, err)
		}
		events = append(events, doc.toEvent(hit.ID, kind))
	}
	return events, nil
}

// FetchAlarmStateDocuments - reduction key에 해당하는 alarm 상태 문서 전체
func (c *TargetClient) FetchAlarmStateDocuments(ctx context.Context, reductionKey string) ([]model.AlarmStateDoc, error) {
	query := map[string]any{"term": map[string]any{"reduction_key": reductionKey}}
	hits, err := c.es.searchAll(ctx, c.cfg.AlarmIndex, query, "first_event_time")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch alarm state documents: %w", err)
	}

	docs := make([]model.AlarmStateDoc, 0, len(hits))
	for _, hit := range hits {
		var doc alarmStateDoc
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			return nil, fmt.Errorf("malformed alarm state document %s: %w", hit.ID, err)
		}
		docs = append(docs, model.AlarmStateDoc{
			ID:             hit.ID,
			AlarmID:        string(doc.AlarmID),
			ReductionKey:   doc.ReductionKey,
			FirstEventTime: doc.FirstEventTime.Time,
			LastEventTime:  doc.LastEventTime.Time,
			DeletionTime:   doc.DeletionTime.ptr(),
		})
	}
	return docs, nil
}

// FetchIncidents - 시간 범위 안에 생성된 situation 목록 (조회 순서 유지)
func (c *TargetClient) FetchIncidents(ctx context.Context, start, end time.Time) ([]model.Incident, error) {
	query := map[string]any{"bool": map[string]any{"filter": []map[string]any{
		timeRange("created_at", start, end),
	}}}
	hits, err := c.es.searchAll(ctx, c.cfg.SituationIndex, query, "created_at")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch target situations: %w", err)
	}

	incidents := make([]model.Incident, 0, len(hits))
	for _, hit := range hits {
		var doc situationDoc
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			return nil, fmt.Errorf("malformed target situation %s: %w", hit.ID, err)
		}
		id := doc.SituationID
		if id == "" {
			id = hit.ID
		}
		incidents = append(incidents, model.Incident{
			ID:       id,
			System:   model.SystemTarget,
			Title:    doc.Title,
			EventIDs: doc.EventIDs,
			AlarmIDs: doc.ReductionKeys,
		})
	}
	return incidents, nil
}

// FetchIncidentMembers - situation 하나의 구성 이벤트 ID
func (c *TargetClient) FetchIncidentMembers(ctx context.Context, incidentID string) ([]string, error) {
	query := map[string]any{"term": map[string]any{"situation_id": incidentID}}
	hits, err := c.es.searchAll(ctx, c.cfg.SituationIndex, query, "created_at")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch target situation %s: %w", incidentID, err)
	}
	return collectMembers(hits, func(raw json.RawMessage) ([]string, error) {
		var doc situationDoc
		err := json.Unmarshal(raw, &doc)
		return doc.EventIDs, err
	})
}

func (d targetEventDoc) toEvent(hitID string, kind model.EventKind) model.Event {
	id := d.ID
	if id == "" {
		id = hitID
	}
	return model.Event{
		ID:           id,
		System:       model.SystemTarget,
		Host:         d.Host,
		Timestamp:    d.Timestamp.Time,
		Kind:         kind,
		TypeKey:      d.UEI,
		RawMessage:   d.LogMessage,
		Attributes:   d.Parms,
		ReductionKey: d.ReductionKey,
		ClearKey:     d.ClearKey,
	}
}
