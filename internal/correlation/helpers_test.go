package correlation

import (
	"errors"
	"strings"
	"time"

	"github.com/kube-rca/migration-audit/internal/model"
)

// passthroughParser - 원문 전체를 본문으로, 수신 시각을 그대로 사용
type passthroughParser struct{}

func (passthroughParser) Parse(raw string, received time.Time) (model.ParsedMessage, error) {
	if strings.HasPrefix(raw, "!") {
		return model.ParsedMessage{}, errors.New("garbled")
	}
	return model.ParsedMessage{Body: raw, Timestamp: received}, nil
}

// locationResolver - Location 값을 그대로 attribute로 사용
type locationResolver struct{}

func (locationResolver) Resolve(ev model.Event) string {
	return ev.Location
}

func ms(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

func syslog(system model.System, id, host string, ts int64, body string) model.Event {
	return model.Event{ID: id, System: system, Host: host, Timestamp: ms(ts), Kind: model.EventKindSyslog, RawMessage: body}
}

func trap(system model.System, id string, ts int64, typeKey string) model.Event {
	return model.Event{ID: id, System: system, Host: "r1", Timestamp: ms(ts), Kind: model.EventKindTrap, TypeKey: typeKey}
}
