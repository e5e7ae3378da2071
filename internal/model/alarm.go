package model

import "time"

// AlarmStateDoc - Target alarm 인덱스에 기록된 alarm 상태 문서 (lifecycle 레코드)
// DeletionTime이 nil이면 아직 active 상태에서 관측된 문서
type AlarmStateDoc struct {
	ID             string     `json:"id"`
	AlarmID        string     `json:"alarm_id"`
	ReductionKey   string     `json:"reduction_key"`
	FirstEventTime time.Time  `json:"first_event_time"`
	LastEventTime  time.Time  `json:"last_event_time"`
	DeletionTime   *time.Time `json:"deletion_time,omitempty"`
}

// Deleted - 삭제(clear)된 상태의 문서인지 여부
func (d AlarmStateDoc) Deleted() bool {
	return d.DeletionTime != nil
}

// Lifespan - alarm의 시작/종료 시각
// 상태 문서가 없어 감사 범위 경계로 대체된 경우 *Defaulted 가 true
type Lifespan struct {
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	StartDefaulted bool      `json:"start_defaulted"`
	EndDefaulted   bool      `json:"end_defaulted"`
}

// Contains - t가 lifespan 구간 [Start, End] 안에 있는지
func (l Lifespan) Contains(t time.Time) bool {
	return !t.Before(l.Start) && !t.After(l.End)
}

// Alarm - 하나의 reduction key로 묶인 Target 이벤트 그룹
type Alarm struct {
	ReductionKey  string   `json:"reduction_key"`
	Lifespan      Lifespan `json:"lifespan"`
	EventIDs      []string `json:"event_ids"`
	ClearEventIDs []string `json:"clear_event_ids"`

	// StateDocuments: lifespan 계산에 사용된 상태 문서 개수 (0이면 MissingStateDocuments)
	StateDocuments int `json:"state_documents"`
}
