package correlation

import "github.com/kube-rca/migration-audit/internal/model"

// MatchIncidents - Source 인시던트별로 Target 인시던트를 입력 순서대로 스캔
//
// 입력 순서는 인시던트를 조회한 순서이며 결과는 이 순서에 의존한다.
//   - source.Equals(target): exact match로 기록하고 스캔 종료 (먼저 찾은 하나만)
//   - target.Contains(source) 또는 source.Contains(target): partial match에 추가하고 계속 스캔
//
// exact 이전에 찾은 partial match는 그대로 남는다. 최적 이분 매칭이 아니다.
func MatchIncidents(sources, targets []model.CanonicalIncident) []model.Verdict {
	verdicts := make([]model.Verdict, 0, len(sources))
	for _, src := range sources {
		verdicts = append(verdicts, matchOne(src, targets))
	}
	return verdicts
}

func matchOne(src model.CanonicalIncident, targets []model.CanonicalIncident) model.Verdict {
	v := model.Verdict{Source: src, PartialMatches: []model.CanonicalIncident{}}
	for i := range targets {
		t := targets[i]
		if src.Equals(t) {
			v.ExactMatch = &t
			break
		}
		if t.Contains(src) || src.Contains(t) {
			v.PartialMatches = append(v.PartialMatches, t)
		}
	}
	return v
}
