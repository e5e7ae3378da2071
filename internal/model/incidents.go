package model

import (
	"encoding/json"
	"sort"
)

// ============================================================================
// Incident 모델 (Source ticket / Target situation)
// ============================================================================

// Incident - 여러 alarm/이벤트를 묶은 인시던트
// Source는 ticketId, Target은 situationId를 ID로 사용
// 구성 이벤트 목록은 생성 이후 변경되지 않음
type Incident struct {
	ID       string   `json:"id"`
	System   System   `json:"system"`
	Title    string   `json:"title,omitempty"`
	EventIDs []string `json:"event_ids"`
	AlarmIDs []string `json:"alarm_ids,omitempty"`
}

// ============================================================================
// CanonicalIncident (비교 전용 투영)
// ============================================================================

// CanonicalIncident - Target 이벤트 ID 집합으로 투영된 인시던트
type CanonicalIncident struct {
	SourceID                 string              `json:"source_id"`
	System                   System              `json:"system"`
	TargetEventIDs           map[string]struct{} `json:"-"`
	HasUnmatchedSourceEvents bool                `json:"has_unmatched_source_events"`
}

// NewCanonicalIncident - 주어진 Target ID 목록으로 CanonicalIncident 생성
func NewCanonicalIncident(sourceID string, system System, targetIDs ...string) CanonicalIncident {
	set := make(map[string]struct{}, len(targetIDs))
	for _, id := range targetIDs {
		set[id] = struct{}{}
	}
	return CanonicalIncident{SourceID: sourceID, System: system, TargetEventIDs: set}
}

// Equals - 두 집합이 같고 양쪽 모두 미매칭 이벤트가 없을 때만 true
func (c CanonicalIncident) Equals(other CanonicalIncident) bool {
	if c.HasUnmatchedSourceEvents || other.HasUnmatchedSourceEvents {
		return false
	}
	if len(c.TargetEventIDs) != len(other.TargetEventIDs) {
		return false
	}
	return isSubset(other.TargetEventIDs, c.TargetEventIDs)
}

// Contains - other의 집합이 c의 부분집합이고 양쪽 모두 미매칭 이벤트가 없을 때 true
func (c CanonicalIncident) Contains(other CanonicalIncident) bool {
	if c.HasUnmatchedSourceEvents || other.HasUnmatchedSourceEvents {
		return false
	}
	return isSubset(other.TargetEventIDs, c.TargetEventIDs)
}

// SortedTargetIDs - 보고용 정렬된 Target ID 목록
func (c CanonicalIncident) SortedTargetIDs() []string {
	return sortedKeys(c.TargetEventIDs)
}

func isSubset(sub, super map[string]struct{}) bool {
	for id := range sub {
		if _, ok := super[id]; !ok {
			return false
		}
	}
	return true
}

// ============================================================================
// Verdict (인시던트 매칭 결과)
// ============================================================================

// MatchStatus - Source 인시던트의 최종 매칭 상태
type MatchStatus string

const (
	MatchStatusExact     MatchStatus = "exact"
	MatchStatusPartial   MatchStatus = "partial"
	MatchStatusUnmatched MatchStatus = "unmatched"
)

// Verdict - Source 인시던트 1건에 대한 판정
type Verdict struct {
	Source         CanonicalIncident   `json:"source"`
	ExactMatch     *CanonicalIncident  `json:"exact_match,omitempty"`
	PartialMatches []CanonicalIncident `json:"partial_matches"`
}

// Status - exact가 있으면 exact, partial이 하나라도 있으면 partial, 아니면 unmatched
func (v Verdict) Status() MatchStatus {
	switch {
	case v.ExactMatch != nil:
		return MatchStatusExact
	case len(v.PartialMatches) > 0:
		return MatchStatusPartial
	default:
		return MatchStatusUnmatched
	}
}

type canonicalIncidentJSON struct {
	SourceID                 string   `json:"source_id"`
	System                   System   `json:"system"`
	TargetEventIDs           []string `json:"target_event_ids"`
	HasUnmatchedSourceEvents bool     `json:"has_unmatched_source_events"`
}

// MarshalJSON - 집합을 정렬된 배열로 직렬화
func (c CanonicalIncident) MarshalJSON() ([]byte, error) {
	return json.Marshal(canonicalIncidentJSON{
		SourceID:                 c.SourceID,
		System:                   c.System,
		TargetEventIDs:           c.SortedTargetIDs(),
		HasUnmatchedSourceEvents: c.HasUnmatchedSourceEvents,
	})
}

// UnmarshalJSON - 저장된 verdict 복원용
func (c *CanonicalIncident) UnmarshalJSON(data []byte) error {
	var raw canonicalIncidentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = NewCanonicalIncident(raw.SourceID, raw.System, raw.TargetEventIDs...)
	c.HasUnmatchedSourceEvents = raw.HasUnmatchedSourceEvents
	return nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
