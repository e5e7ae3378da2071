package correlation

import (
	"fmt"
	"time"

	"github.com/kube-rca/migration-audit/internal/model"
)

// DefaultFuzzTolerance - fuzzy pass에서 허용하는 시각 차이 기본값
const DefaultFuzzTolerance = time.Second

// SyslogMatcher - 본문 + 시각 기준 syslog 매칭
//
// 매칭 순서:
//  1. exact pass: (본문, 시각)이 같고 아직 점유되지 않은 첫 Target 이벤트 (host는 무시)
//  2. fuzzy pass: exact가 없을 때만, 시각 차이가 fuzz 이내인 첫 Target 이벤트
//
// Source는 입력 순서대로 처리하고 후보도 입력 순서대로 비교한다.
// 매칭 즉시 세션에 점유를 기록하므로 먼저 처리된 Source가 중복 메시지를 가져간다.
type SyslogMatcher struct {
	parser MessageParser
	fuzz   time.Duration
}

// NewSyslogMatcher - fuzz가 음수면 DefaultFuzzTolerance 사용
func NewSyslogMatcher(parser MessageParser, fuzz time.Duration) *SyslogMatcher {
	if fuzz < 0 {
		fuzz = DefaultFuzzTolerance
	}
	return &SyslogMatcher{parser: parser, fuzz: fuzz}
}

func (m *SyslogMatcher) Kind() model.EventKind {
	return model.EventKindSyslog
}

type normalizedSyslog struct {
	event  model.Event
	parsed model.ParsedMessage
}

func (m *SyslogMatcher) Match(session *Session, source, target []model.Event) MatchResult {
	res := newMatchResult()

	sources := m.normalize(ofKind(source, model.EventKindSyslog), &res)
	targets := m.normalize(ofKind(target, model.EventKindSyslog), &res)

	for _, src := range sources {
		targetID, ok := m.claim(session, src, targets, 0)
		if !ok && m.fuzz > 0 {
			targetID, ok = m.claim(session, src, targets, m.fuzz)
		}
		if !ok {
			res.Unmatched = append(res.Unmatched, src.event)
			continue
		}
		res.Mapping[src.event.ID] = targetID
	}
	return res
}

// normalize - 파싱 실패 이벤트는 ParseFailure로 기록하고 제외
func (m *SyslogMatcher) normalize(events []model.Event, res *MatchResult) []normalizedSyslog {
	out := make([]normalizedSyslog, 0, len(events))
	for _, ev := range events {
		parsed, err := m.parser.Parse(ev.RawMessage, ev.Timestamp)
		if err != nil {
			res.ParseFailures = append(res.ParseFailures, model.ParseFailure{
				EventID: ev.ID,
				System:  ev.System,
				Host:    ev.Host,
				Reason:  fmt.Errorf("%w: %v", ErrParseFailure, err).Error(),
			})
			continue
		}
		out = append(out, normalizedSyslog{event: ev, parsed: parsed})
	}
	return out
}

// claim - tolerance 이내의 첫 미점유 후보를 점유하고 ID 반환
func (m *SyslogMatcher) claim(session *Session, src normalizedSyslog, targets []normalizedSyslog, tolerance time.Duration) (string, bool) {
	for _, t := range targets {
		if t.parsed.Body != src.parsed.Body {
			continue
		}
		if absDuration(t.parsed.Timestamp.Sub(src.parsed.Timestamp)) > tolerance {
			continue
		}
		if session.Claim(t.event.ID) {
			return t.event.ID, true
		}
	}
	return "", false
}
