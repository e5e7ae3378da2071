package correlation

import (
	"testing"
	"time"

	"github.com/kube-rca/migration-audit/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withLocation(ev model.Event, loc string) model.Event {
	ev.Location = loc
	return ev
}

func withAttr(ev model.Event, key, value string) model.Event {
	ev.Attributes = map[string]string{key: value}
	return ev
}

func TestTrapMatcherConsumesCandidate(t *testing.T) {
	m := NewTrapMatcher(DefaultTrapWindow, SearchFirstMinimum, locationResolver{}, DefaultTrapRules())
	src := []model.Event{
		withLocation(trap(model.SystemSource, "s1", 1000, "linkDown"), "eth0"),
		withLocation(trap(model.SystemSource, "s2", 1005, "linkDown"), "eth0"),
	}
	dst := []model.Event{withAttr(trap(model.SystemTarget, "t1", 1002, "linkDown"), "ifDescr", "eth0")}

	res := m.Match(NewSession(), src, dst)

	assert.Equal(t, model.EventMapping{"s1": "t1"}, res.Mapping)
	require.Len(t, res.Unmatched, 1)
	assert.Equal(t, "s2", res.Unmatched[0].ID)
}

func TestTrapMatcherRefinesByAttribute(t *testing.T) {
	m := NewTrapMatcher(DefaultTrapWindow, SearchFirstMinimum, locationResolver{}, DefaultTrapRules())
	src := []model.Event{withLocation(trap(model.SystemSource, "s1", 10000, "linkDown"), "eth1")}
	dst := []model.Event{
		withAttr(trap(model.SystemTarget, "t0", 10000, "linkDown"), "ifDescr", "eth0"),
		withAttr(trap(model.SystemTarget, "t1", 15000, "linkDown"), "ifDescr", "eth1"),
	}

	res := m.Match(NewSession(), src, dst)
	assert.Equal(t, model.EventMapping{"s1": "t1"}, res.Mapping)
}

func TestTrapMatcherNoRefinementForOtherTypes(t *testing.T) {
	m := NewTrapMatcher(DefaultTrapWindow, SearchFirstMinimum, locationResolver{}, DefaultTrapRules())
	src := []model.Event{withLocation(trap(model.SystemSource, "s1", 10000, "coldStart"), "eth1")}
	dst := []model.Event{withAttr(trap(model.SystemTarget, "t0", 10000, "coldStart"), "ifDescr", "eth0")}

	res := m.Match(NewSession(), src, dst)
	assert.Equal(t, model.EventMapping{"s1": "t0"}, res.Mapping)
}

func TestTrapMatcherEmptyAttributeSkipsRefinement(t *testing.T) {
	m := NewTrapMatcher(DefaultTrapWindow, SearchFirstMinimum, locationResolver{}, DefaultTrapRules())
	src := []model.Event{trap(model.SystemSource, "s1", 10000, "linkUp")}
	dst := []model.Event{withAttr(trap(model.SystemTarget, "t0", 10500, "linkUp"), "ifDescr", "eth0")}

	res := m.Match(NewSession(), src, dst)
	assert.Equal(t, model.EventMapping{"s1": "t0"}, res.Mapping)
}

func TestTrapMatcherTypeKeyMustMatch(t *testing.T) {
	m := NewTrapMatcher(DefaultTrapWindow, SearchFirstMinimum, nil, nil)
	src := []model.Event{trap(model.SystemSource, "s1", 10000, "linkDown")}
	dst := []model.Event{trap(model.SystemTarget, "t0", 10000, "linkUp")}

	res := m.Match(NewSession(), src, dst)
	assert.Empty(t, res.Mapping)
	assert.Len(t, res.Unmatched, 1)
}

func TestTrapMatcherWindowBounds(t *testing.T) {
	tests := []struct {
		name     string
		targetTS int64
		matched  bool
	}{
		{name: "after-within", targetTS: 100000 + 120000, matched: true},
		{name: "after-outside", targetTS: 100000 + 120001, matched: false},
		{name: "before-within", targetTS: 100000 - 120000, matched: true},
		{name: "before-outside", targetTS: 100000 - 120001, matched: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewTrapMatcher(DefaultTrapWindow, SearchFirstMinimum, nil, nil)
			src := []model.Event{trap(model.SystemSource, "s1", 100000, "coldStart")}
			dst := []model.Event{trap(model.SystemTarget, "t1", tt.targetTS, "coldStart")}

			res := m.Match(NewSession(), src, dst)
			_, ok := res.Mapping["s1"]
			assert.Equal(t, tt.matched, ok)
		})
	}
}

func TestTrapMatcherSortsUnorderedCandidates(t *testing.T) {
	m := NewTrapMatcher(DefaultTrapWindow, SearchFirstMinimum, nil, nil)
	src := []model.Event{trap(model.SystemSource, "s1", 50000, "coldStart")}
	dst := []model.Event{
		trap(model.SystemTarget, "far", 90000, "coldStart"),
		trap(model.SystemTarget, "near", 51000, "coldStart"),
		trap(model.SystemTarget, "early", 10000, "coldStart"),
	}

	res := m.Match(NewSession(), src, dst)
	assert.Equal(t, model.EventMapping{"s1": "near"}, res.Mapping)
}

func TestNearestSearchModes(t *testing.T) {
	src := ms(50000)

	sorted := []model.Event{
		trap(model.SystemTarget, "a", 40000, "x"), // d=10s
		trap(model.SystemTarget, "b", 45000, "x"), // d=5s
		trap(model.SystemTarget, "c", 50500, "x"), // d=0.5s
		trap(model.SystemTarget, "d", 52000, "x"), // d=2s
		trap(model.SystemTarget, "e", 58000, "x"), // d=8s
	}
	assert.Equal(t, 2, nearest(sorted, src, DefaultTrapWindow, SearchFirstMinimum))
	assert.Equal(t, 2, nearest(sorted, src, DefaultTrapWindow, SearchFullWindow))

	// 정렬 전제가 깨지면 first-minimum은 첫 극소값에서 멈춤
	unsorted := []model.Event{
		trap(model.SystemTarget, "left", 49000, "x"),  // d=1s
		trap(model.SystemTarget, "mid", 53000, "x"),   // d=3s
		trap(model.SystemTarget, "right", 50500, "x"), // d=0.5s
	}
	assert.Equal(t, 0, nearest(unsorted, src, DefaultTrapWindow, SearchFirstMinimum))
	assert.Equal(t, 2, nearest(unsorted, src, DefaultTrapWindow, SearchFullWindow))

	assert.Equal(t, -1, nearest(nil, src, DefaultTrapWindow, SearchFirstMinimum))
}

func TestNearestKeepsFirstOnTie(t *testing.T) {
	candidates := []model.Event{
		trap(model.SystemTarget, "before", 45000, "x"),
		trap(model.SystemTarget, "after", 55000, "x"),
	}
	assert.Equal(t, 0, nearest(candidates, ms(50000), time.Minute, SearchFirstMinimum))
	assert.Equal(t, 0, nearest(candidates, ms(50000), time.Minute, SearchFullWindow))
}

func TestTrapMatcherSharedSessionAcrossScopes(t *testing.T) {
	session := NewSession()
	m := NewTrapMatcher(DefaultTrapWindow, SearchFirstMinimum, nil, nil)
	dst := []model.Event{trap(model.SystemTarget, "t1", 10000, "coldStart")}

	first := m.Match(session, []model.Event{trap(model.SystemSource, "s1", 10000, "coldStart")}, dst)
	second := m.Match(session, []model.Event{trap(model.SystemSource, "s2", 10000, "coldStart")}, dst)

	assert.Equal(t, model.EventMapping{"s1": "t1"}, first.Mapping)
	assert.Empty(t, second.Mapping)
	assert.Equal(t, 1, session.Len())
}
