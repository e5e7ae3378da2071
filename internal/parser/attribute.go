package parser

import (
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/kube-rca/migration-audit/internal/model"
)

const defaultResolverCacheSize = 4096

var (
	keyedInterfacePattern = regexp.MustCompile(`(?i)\b(?:ifDescr|ifName|interface|port)\s*[=:]\s*([^\s,;]+)`)
	interfacePattern      = regexp.MustCompile(`(?i)\b((?:Gigabit|TenGigabit|FortyGigabit|Hundred[Gg]ig|Fast)?Ethernet\d+(?:/\d+)*(?:\.\d+)?|(?:ge|xe|et|fe)-\d+/\d+/\d+(?:\.\d+)?|(?:Gi|Te|Fa|Hu)\d+(?:/\d+)+(?:\.\d+)?|eth\d+(?:\.\d+)?|Port-channel\d+|ae\d+|Vlan\d+)\b`)
)

// InterfaceResolver - Source 이벤트 위치 문자열에서 interface 이름 추출 (AttributeResolver 구현)
//
// 같은 위치 문자열이 반복되므로 결과를 LRU로 보관한다.
type InterfaceResolver struct {
	cache *lru.Cache[string, string]
}

// NewInterfaceResolver - size가 0 이하면 기본 크기
func NewInterfaceResolver(size int) *InterfaceResolver {
	if size <= 0 {
		size = defaultResolverCacheSize
	}
	cache, _ := lru.New[string, string](size)
	return &InterfaceResolver{cache: cache}
}

// Resolve - "ifDescr=eth0" 같은 키-값 형식을 먼저 찾고, 없으면 interface 이름 패턴으로 검색
func (r *InterfaceResolver) Resolve(ev model.Event) string {
	loc := strings.TrimSpace(ev.Location)
	if loc == "" {
		return ""
	}
	if v, ok := r.cache.Get(loc); ok {
		return v
	}

	value := ""
	if m := keyedInterfacePattern.FindStringSubmatch(loc); m != nil {
		value = m[1]
	} else if m := interfacePattern.FindStringSubmatch(loc); m != nil {
		value = m[1]
	}
	r.cache.Add(loc, value)
	return value
}

// Len - 캐시된 위치 문자열 수
func (r *InterfaceResolver) Len() int {
	return r.cache.Len()
}
