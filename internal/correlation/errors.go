package correlation

import "errors"

var (
	// ErrParseFailure - syslog 원문에서 본문/시각을 추출하지 못함 (이벤트 단위, non-fatal)
	ErrParseFailure = errors.New("message parse failure")

	// ErrMissingStateDocuments - alarm 상태 문서가 하나도 없음 (lifespan은 감사 범위로 대체, non-fatal)
	ErrMissingStateDocuments = errors.New("missing alarm state documents")

	// ErrAmbiguousReductionKey - 하나의 reduction key가 서로 충돌하는 lifecycle 레코드에 매핑됨 (run-level)
	ErrAmbiguousReductionKey = errors.New("ambiguous reduction key")
)
