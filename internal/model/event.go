// Source/Target 두 시스템에서 수집한 원본 이벤트 구조체 정의
// correlation, client, service 레이어에서 공통으로 사용하기 때문에 model 레이어에 별도로 정의

package model

import "time"

// System - 이벤트/인시던트가 속한 시스템
type System string

const (
	SystemSource System = "source" // 기존(legacy) 모니터링 시스템
	SystemTarget System = "target" // 신규(replacement) 모니터링 시스템
)

// EventKind - 이벤트 종류 (매칭 전략 선택에 사용)
type EventKind string

const (
	EventKindSyslog EventKind = "syslog"
	EventKindTrap   EventKind = "trap"
)

// Event - 단일 원본 이벤트
// ID는 소속 시스템 내에서만 고유 (시스템 간 고유성은 보장되지 않음)
type Event struct {
	ID        string    `json:"id"`
	System    System    `json:"system"`
	Host      string    `json:"host"`
	Timestamp time.Time `json:"timestamp"`
	Kind      EventKind `json:"kind"`

	// TypeKey: trap이면 trap type 식별자, syslog면 메시지 템플릿 키
	TypeKey    string `json:"type_key"`
	RawMessage string `json:"raw_message"`

	// Location: Source 이벤트의 위치 메타데이터 (예: "r1 / GigabitEthernet0/1")
	// trap 후보 필터링 시 attribute 추출에 사용
	Location string `json:"location,omitempty"`

	// Attributes: Target trap에 포함된 varbind 등 부가 속성 (예: ifDescr)
	Attributes map[string]string `json:"attributes,omitempty"`

	// ReductionKey / ClearKey: Target 이벤트를 alarm으로 묶고 해제하는 키
	ReductionKey string `json:"reduction_key,omitempty"`
	ClearKey     string `json:"clear_key,omitempty"`
}

// ParsedMessage - syslog 원문에서 추출한 본문과 시각
type ParsedMessage struct {
	Body      string
	Timestamp time.Time
}

// EventMapping - SourceEventID -> TargetEventID 매핑 (단방향, 부분 함수)
type EventMapping map[string]string

// Merge - 다른 매핑의 항목을 더함 (이미 있는 Source ID는 덮어쓰지 않음)
func (m EventMapping) Merge(other EventMapping) {
	for src, dst := range other {
		if _, ok := m[src]; !ok {
			m[src] = dst
		}
	}
}

// Targets - 매핑된 Target ID 집합
func (m EventMapping) Targets() map[string]struct{} {
	set := make(map[string]struct{}, len(m))
	for _, dst := range m {
		set[dst] = struct{}{}
	}
	return set
}
