// syslog 원문 파서
//
// 지원 형식:
//   - RFC5424: <PRI>1 2024-01-02T03:04:05.000Z host app procid msgid [sd] message
//   - RFC3164: <PRI>Jan  2 03:04:05 host tag[pid]: message
//
// <PRI>는 생략 가능. RFC3164 형식에는 연도가 없으므로 수신 시각 기준으로 보정한다.

package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kube-rca/migration-audit/internal/model"
)

var (
	ErrEmptyMessage       = errors.New("empty message")
	ErrUnrecognizedFormat = errors.New("unrecognized syslog format")
)

var (
	priPattern     = regexp.MustCompile(`^<\d{1,3}>`)
	rfc3164Pattern = regexp.MustCompile(`^([A-Z][a-z]{2}\s+\d{1,2}\s\d{2}:\d{2}:\d{2}(?:\.\d{1,6})?)\s+(\S+)\s+(.*)$`)
	tagPattern     = regexp.MustCompile(`^[\w./-]+(?:\[\d+\])?:\s*`)
)

// SyslogParser - MessageParser 구현
type SyslogParser struct {
	location *time.Location
}

// NewSyslogParser - location이 nil이면 UTC로 해석
func NewSyslogParser(location *time.Location) *SyslogParser {
	if location == nil {
		location = time.UTC
	}
	return &SyslogParser{location: location}
}

// Parse - 원문에서 헤더(호스트, 태그)를 제거한 본문과 메시지 시각 추출
func (p *SyslogParser) Parse(raw string, received time.Time) (model.ParsedMessage, error) {
	msg := strings.TrimSpace(raw)
	msg = strings.TrimSpace(priPattern.ReplaceAllString(msg, ""))
	if msg == "" {
		return model.ParsedMessage{}, ErrEmptyMessage
	}

	if strings.HasPrefix(msg, "1 ") {
		return p.parseRFC5424(msg[2:])
	}
	if m := rfc3164Pattern.FindStringSubmatch(msg); m != nil {
		return p.parseRFC3164(m[1], m[3], received)
	}
	return model.ParsedMessage{}, ErrUnrecognizedFormat
}

func (p *SyslogParser) parseRFC5424(msg string) (model.ParsedMessage, error) {
	// TIMESTAMP HOSTNAME APP-NAME PROCID MSGID REST
	fields := strings.SplitN(msg, " ", 6)
	if len(fields) < 5 {
		return model.ParsedMessage{}, fmt.Errorf("%w: truncated RFC5424 header", ErrUnrecognizedFormat)
	}
	ts, err := time.Parse(time.RFC3339Nano, fields[0])
	if err != nil {
		return model.ParsedMessage{}, fmt.Errorf("invalid RFC5424 timestamp %q: %w", fields[0], err)
	}

	body := ""
	if len(fields) == 6 {
		body = stripStructuredData(fields[5])
	}
	// MSG 앞의 BOM은 SD 뒤 공백 다음에 온다
	body = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(body), "\ufeff"))
	if body == "" {
		return model.ParsedMessage{}, ErrEmptyMessage
	}
	return model.ParsedMessage{Body: body, Timestamp: ts.UTC()}, nil
}

func (p *SyslogParser) parseRFC3164(stamp, rest string, received time.Time) (model.ParsedMessage, error) {
	// 소수점 초는 time.Stamp 레이아웃으로도 파싱됨
	ts, err := time.ParseInLocation(time.Stamp, strings.Join(strings.Fields(stamp), " "), p.location)
	if err != nil {
		return model.ParsedMessage{}, fmt.Errorf("invalid RFC3164 timestamp %q: %w", stamp, err)
	}
	ts = withYear(ts, received.In(p.location))

	body := strings.TrimSpace(tagPattern.ReplaceAllString(rest, ""))
	if body == "" {
		return model.ParsedMessage{}, ErrEmptyMessage
	}
	return model.ParsedMessage{Body: body, Timestamp: ts.UTC()}, nil
}

// withYear - 수신 연도를 붙이되, 결과가 수신 시각보다 하루 넘게 미래면 전년도로 봄 (연말 경계)
func withYear(ts, received time.Time) time.Time {
	if received.IsZero() {
		received = time.Now().In(ts.Location())
	}
	out := time.Date(received.Year(), ts.Month(), ts.Day(), ts.Hour(), ts.Minute(), ts.Second(), ts.Nanosecond(), ts.Location())
	if out.After(received.Add(24 * time.Hour)) {
		out = out.AddDate(-1, 0, 0)
	}
	return out
}

// stripStructuredData - "-" 또는 [..][..] 형태의 structured data 제거
//
// PARAM-VALUE 안의 ']'와 escape된 '\]', '\"'는 SD 종료로 보지 않는다.
// 닫히지 않은 SD는 원문 그대로 반환.
func stripStructuredData(rest string) string {
	if rest == "-" || strings.HasPrefix(rest, "- ") {
		return rest[1:]
	}
	if !strings.HasPrefix(rest, "[") {
		return rest
	}

	inElement, inQuote, escaped := false, false, false
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		switch {
		case escaped:
			escaped = false
		case inQuote:
			switch c {
			case '\\':
				escaped = true
			case '"':
				inQuote = false
			}
		case inElement:
			switch c {
			case '"':
				inQuote = true
			case ']':
				inElement = false
				if i+1 == len(rest) || rest[i+1] != '[' {
					return rest[i+1:]
				}
			}
		case c == '[':
			inElement = true
		default:
			return rest[i:]
		}
	}
	return rest
}
