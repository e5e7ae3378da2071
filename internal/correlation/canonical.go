package correlation

import "github.com/kube-rca/migration-audit/internal/model"

// Canonicalize - 인시던트 소속 시스템에 따라 Source/Target 빌더 선택
func Canonicalize(inc model.Incident, mapping model.EventMapping) model.CanonicalIncident {
	if inc.System == model.SystemTarget {
		return BuildTargetCanonical(inc)
	}
	return BuildSourceCanonical(inc, mapping)
}

// BuildSourceCanonical - Source ticket 구성 이벤트를 매핑으로 Target ID로 변환
// 매핑이 없는 이벤트가 하나라도 있으면 HasUnmatchedSourceEvents = true (해당 이벤트는 집합에 넣지 않음)
//
// Source alarm ID는 Target 이벤트로 풀 수 없으므로, 이벤트 없이 alarm ID만 있는 ticket은
// 빈 집합(모든 situation과 partial)이 아니라 미매칭으로 본다.
func BuildSourceCanonical(inc model.Incident, mapping model.EventMapping) model.CanonicalIncident {
	c := model.NewCanonicalIncident(inc.ID, model.SystemSource)
	if len(inc.EventIDs) == 0 && len(inc.AlarmIDs) > 0 {
		c.HasUnmatchedSourceEvents = true
		return c
	}
	for _, id := range inc.EventIDs {
		targetID, ok := mapping[id]
		if !ok {
			c.HasUnmatchedSourceEvents = true
			continue
		}
		c.TargetEventIDs[targetID] = struct{}{}
	}
	return c
}

// BuildTargetCanonical - Target situation은 이미 Target ID이므로 그대로 사용
func BuildTargetCanonical(inc model.Incident) model.CanonicalIncident {
	return model.NewCanonicalIncident(inc.ID, model.SystemTarget, inc.EventIDs...)
}

// ExpandAlarmMembers - situation이 alarm(reduction key) 단위로 구성된 경우
// alarm 구성 이벤트와 해제 이벤트를 인시던트 이벤트 목록에 펼침 (중복 제거, 순서 유지)
func ExpandAlarmMembers(inc model.Incident, alarms map[string]model.Alarm) model.Incident {
	seen := make(map[string]struct{}, len(inc.EventIDs))
	ids := make([]string, 0, len(inc.EventIDs))
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, id := range inc.EventIDs {
		add(id)
	}
	for _, key := range inc.AlarmIDs {
		alarm, ok := alarms[key]
		if !ok {
			continue
		}
		for _, id := range alarm.EventIDs {
			add(id)
		}
		for _, id := range alarm.ClearEventIDs {
			add(id)
		}
	}

	out := inc
	out.EventIDs = ids
	return out
}
