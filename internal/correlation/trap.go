package correlation

import (
	"sort"
	"time"

	"github.com/kube-rca/migration-audit/internal/model"
)

// DefaultTrapWindow - trap 근접 탐색 기본 윈도우
const DefaultTrapWindow = 120 * time.Second

// SearchMode - 윈도우 내 최근접 후보 탐색 방식
type SearchMode string

const (
	// SearchFirstMinimum: 시각 차이가 커지기 시작하면 즉시 탐색 중단 (윈도우 내 극소값이 하나라고 가정)
	SearchFirstMinimum SearchMode = "first-minimum"
	// SearchFullWindow: 윈도우 전체를 훑어 최소 차이 후보 선택
	SearchFullWindow SearchMode = "full-window"
)

// TrapRule - 상태 전이 trap 종류에 대한 후보 필터 규칙
// TypeKey가 같은 Source trap은 Target 후보의 Attributes[Attribute]가
// Source 위치 메타데이터에서 추출한 값과 같아야 한다.
type TrapRule struct {
	TypeKey   string `yaml:"type_key" json:"type_key"`
	Attribute string `yaml:"attribute" json:"attribute"`
}

// DefaultTrapRules - link up/down trap은 interface 이름으로 후보를 좁힘
func DefaultTrapRules() []TrapRule {
	return []TrapRule{
		{TypeKey: "linkDown", Attribute: "ifDescr"},
		{TypeKey: "linkUp", Attribute: "ifDescr"},
	}
}

// TrapMatcher - trap type별 시간 윈도우 최근접 매칭
type TrapMatcher struct {
	window   time.Duration
	mode     SearchMode
	resolver AttributeResolver
	rules    map[string]string
}

// NewTrapMatcher - window가 0 이하면 DefaultTrapWindow, mode가 비어 있으면 SearchFirstMinimum
func NewTrapMatcher(window time.Duration, mode SearchMode, resolver AttributeResolver, rules []TrapRule) *TrapMatcher {
	if window <= 0 {
		window = DefaultTrapWindow
	}
	if mode == "" {
		mode = SearchFirstMinimum
	}
	ruleMap := make(map[string]string, len(rules))
	for _, r := range rules {
		ruleMap[r.TypeKey] = r.Attribute
	}
	return &TrapMatcher{window: window, mode: mode, resolver: resolver, rules: ruleMap}
}

func (m *TrapMatcher) Kind() model.EventKind {
	return model.EventKindTrap
}

// Match - Source trap을 입력 순서대로 처리
//
// Target 후보는 type key별로 묶어 시각 오름차순(동일 시각은 입력 순서) 정렬한다.
// 매칭된 후보는 풀에서 제거되어 같은 type의 다음 Source trap이 재사용할 수 없다.
func (m *TrapMatcher) Match(session *Session, source, target []model.Event) MatchResult {
	res := newMatchResult()
	pool := m.groupByType(ofKind(target, model.EventKindTrap))

	for _, src := range ofKind(source, model.EventKindTrap) {
		targetID, ok := m.claimNearest(session, src, pool)
		if !ok {
			res.Unmatched = append(res.Unmatched, src)
			continue
		}
		res.Mapping[src.ID] = targetID
	}
	return res
}

func (m *TrapMatcher) groupByType(events []model.Event) map[string][]model.Event {
	pool := make(map[string][]model.Event)
	for _, ev := range events {
		pool[ev.TypeKey] = append(pool[ev.TypeKey], ev)
	}
	for key := range pool {
		group := pool[key]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Timestamp.Before(group[j].Timestamp)
		})
	}
	return pool
}

// claimNearest - 후보 선택 후 점유. 다른 스코프가 먼저 점유한 후보는 풀에서 빼고 재탐색
func (m *TrapMatcher) claimNearest(session *Session, src model.Event, pool map[string][]model.Event) (string, bool) {
	for {
		candidates := m.refine(session, src, pool[src.TypeKey])
		idx := nearest(candidates, src.Timestamp, m.window, m.mode)
		if idx < 0 {
			return "", false
		}
		chosen := candidates[idx].ID
		pool[src.TypeKey] = removeByID(pool[src.TypeKey], chosen)
		if session.Claim(chosen) {
			return chosen, true
		}
	}
}

// refine - 점유된 후보를 제외하고, 규칙이 있는 type이면 attribute 값으로 필터
// resolver가 빈 값을 돌려주면 필터를 적용하지 않음
func (m *TrapMatcher) refine(session *Session, src model.Event, group []model.Event) []model.Event {
	attr, hasRule := m.rules[src.TypeKey]
	want := ""
	if hasRule && m.resolver != nil {
		want = m.resolver.Resolve(src)
	}

	out := make([]model.Event, 0, len(group))
	for _, c := range group {
		if session.Claimed(c.ID) {
			continue
		}
		if want != "" && c.Attributes[attr] != want {
			continue
		}
		out = append(out, c)
	}
	return out
}

// nearest - 시각 오름차순 후보에서 |delta|가 최소인 인덱스 (-1: 없음)
//
// candidateTime <= sourceTime + window 동안 앞으로 진행한다.
// SearchFirstMinimum이면 delta가 증가하는 순간 멈춘다. 동일 delta는 먼저 나온 후보 유지.
func nearest(candidates []model.Event, ts time.Time, window time.Duration, mode SearchMode) int {
	best := -1
	var bestDelta time.Duration
	limit := ts.Add(window)

	for i, c := range candidates {
		if c.Timestamp.After(limit) {
			break
		}
		delta := absDuration(c.Timestamp.Sub(ts))
		if delta > window {
			continue
		}
		if best < 0 || delta < bestDelta {
			best, bestDelta = i, delta
			continue
		}
		if mode == SearchFirstMinimum && delta > bestDelta {
			break
		}
	}
	return best
}

func removeByID(events []model.Event, id string) []model.Event {
	for i, ev := range events {
		if ev.ID == id {
			return append(events[:i:i], events[i+1:]...)
		}
	}
	return events
}
