// 매칭 세션 정의
//
// Session은 한 번의 감사 실행(또는 호스트 단위) 동안 이미 점유된 Target 이벤트 ID 집합(dedup set)을 소유한다.
// 전역 상태가 아니라 매처 호출마다 명시적으로 전달되므로 테스트마다 독립된 세션을 만들 수 있다.
//
// 호스트를 병렬로 처리할 때는 하나의 세션을 공유해도 된다.
// 락은 dedup 삽입(Claim)에만 걸리고 매칭 패스 전체에는 걸리지 않는다.

package correlation

import "sync"

// Session - Target 이벤트 점유 상태 (dedup set)
type Session struct {
	mu      sync.Mutex
	claimed map[string]struct{}
}

// NewSession - 빈 dedup set으로 세션 생성
func NewSession() *Session {
	return &Session{claimed: make(map[string]struct{})}
}

// Claim - targetID를 점유. 이미 다른 Source 이벤트가 점유했으면 false
func (s *Session) Claim(targetID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.claimed[targetID]; ok {
		return false
	}
	s.claimed[targetID] = struct{}{}
	return true
}

// Claimed - targetID가 이미 점유되었는지
func (s *Session) Claimed(targetID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.claimed[targetID]
	return ok
}

// Len - 점유된 Target 이벤트 수
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.claimed)
}
