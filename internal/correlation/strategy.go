package correlation

import (
	"time"

	"github.com/kube-rca/migration-audit/internal/model"
)

// Strategy - 이벤트 종류별 매칭 전략 (syslog, trap)
//
// source, target은 하나의 호스트/시간 범위로 한정된 목록이다.
// Kind()와 다른 종류의 이벤트는 무시한다.
type Strategy interface {
	Kind() model.EventKind
	Match(session *Session, source, target []model.Event) MatchResult
}

// MatchResult - 전략 1회 실행 결과
type MatchResult struct {
	Mapping model.EventMapping

	// Unmatched: 후보를 찾지 못한 Source 이벤트 (입력 순서 유지, 파싱 실패 제외)
	Unmatched []model.Event

	// ParseFailures: 파싱에 실패해 매칭에서 제외된 이벤트 (Source, Target 모두)
	ParseFailures []model.ParseFailure
}

func newMatchResult() MatchResult {
	return MatchResult{
		Mapping:       model.EventMapping{},
		Unmatched:     []model.Event{},
		ParseFailures: []model.ParseFailure{},
	}
}

// MessageParser - syslog 원문을 본문/시각으로 분해 (parser 패키지가 구현)
type MessageParser interface {
	Parse(raw string, received time.Time) (model.ParsedMessage, error)
}

// AttributeResolver - Source 이벤트 위치 메타데이터에서 비교용 속성값 추출
// 해당 없으면 빈 문자열
type AttributeResolver interface {
	Resolve(ev model.Event) string
}

func ofKind(events []model.Event, kind model.EventKind) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
