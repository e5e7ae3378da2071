package correlation

import (
	"errors"
	"fmt"
	"time"

	"github.com/kube-rca/migration-audit/internal/model"
)

// ComputeLifespan - alarm 상태 문서로 alarm 시작/종료 시각 계산
//
//   - Start: 삭제 시각이 없는(active) 문서 중 가장 이른 FirstEventTime, 없으면 rangeStart
//   - End: 삭제 시각이 있는 문서 중 가장 늦은 DeletionTime, 없으면 rangeEnd
//
// 문서 순서와 무관하게 같은 결과를 낸다.
// 문서가 하나도 없으면 감사 범위 전체를 돌려주면서 ErrMissingStateDocuments를 함께 반환한다 (non-fatal).
// 문서들이 서로 다른 reduction key를 갖거나 active 문서가 서로 다른 alarm을 가리키면
// ErrAmbiguousReductionKey를 반환한다.
func ComputeLifespan(docs []model.AlarmStateDoc, rangeStart, rangeEnd time.Time) (model.Lifespan, error) {
	span := model.Lifespan{
		Start:          rangeStart,
		End:            rangeEnd,
		StartDefaulted: true,
		EndDefaulted:   true,
	}
	if len(docs) == 0 {
		return span, ErrMissingStateDocuments
	}
	if err := checkConsistency(docs); err != nil {
		return model.Lifespan{}, err
	}

	for _, d := range docs {
		if d.Deleted() {
			if span.EndDefaulted || d.DeletionTime.After(span.End) {
				span.End = *d.DeletionTime
				span.EndDefaulted = false
			}
			continue
		}
		if span.StartDefaulted || d.FirstEventTime.Before(span.Start) {
			span.Start = d.FirstEventTime
			span.StartDefaulted = false
		}
	}
	return span, nil
}

func checkConsistency(docs []model.AlarmStateDoc) error {
	key := ""
	activeAlarm := ""
	for _, d := range docs {
		if d.ReductionKey != "" {
			if key != "" && d.ReductionKey != key {
				return fmt.Errorf("%w: documents for %q and %q returned together", ErrAmbiguousReductionKey, key, d.ReductionKey)
			}
			key = d.ReductionKey
		}
		if d.Deleted() || d.AlarmID == "" {
			continue
		}
		if activeAlarm != "" && d.AlarmID != activeAlarm {
			return fmt.Errorf("%w: %q has active alarms %s and %s", ErrAmbiguousReductionKey, key, activeAlarm, d.AlarmID)
		}
		activeAlarm = d.AlarmID
	}
	return nil
}

// BuildAlarm - reduction key의 lifespan을 계산하고 lifespan 안의 이벤트를 alarm에 귀속
//
// events는 매칭된 Target 이벤트로 한정해 전달한다.
// ReductionKey가 같은 이벤트는 구성 이벤트, ClearKey가 같은 이벤트는 해제 이벤트로 분류한다.
// ErrMissingStateDocuments는 alarm과 함께 반환된다.
func BuildAlarm(reductionKey string, docs []model.AlarmStateDoc, events []model.Event, rangeStart, rangeEnd time.Time) (model.Alarm, error) {
	span, err := ComputeLifespan(docs, rangeStart, rangeEnd)
	if err != nil && !errors.Is(err, ErrMissingStateDocuments) {
		return model.Alarm{}, err
	}

	alarm := model.Alarm{
		ReductionKey:   reductionKey,
		Lifespan:       span,
		EventIDs:       []string{},
		ClearEventIDs:  []string{},
		StateDocuments: len(docs),
	}
	for _, ev := range events {
		if !span.Contains(ev.Timestamp) {
			continue
		}
		switch reductionKey {
		case ev.ReductionKey:
			alarm.EventIDs = append(alarm.EventIDs, ev.ID)
		case ev.ClearKey:
			alarm.ClearEventIDs = append(alarm.ClearEventIDs, ev.ID)
		}
	}
	return alarm, err
}
