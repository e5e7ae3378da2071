package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/kube-rca/migration-audit/internal/model"
)

// NotifyFunc - 알림 채널 하나의 전송 함수
type NotifyFunc func(ctx context.Context, report *model.AuditReport) error

type notifyChannel struct {
	name string
	send NotifyFunc
}

// Notifier - 감사 완료 알림 (Slack, NATS, Webhook 등 채널을 순서대로 호출)
//
// 채널 실패는 로그만 남기고 다음 채널을 계속 호출한다.
type Notifier struct {
	channels []notifyChannel
	logger   *zap.Logger
}

func NewNotifier(logger *zap.Logger) *Notifier {
	return &Notifier{logger: logger}
}

// AddChannel - 알림 채널 등록
func (n *Notifier) AddChannel(name string, send NotifyFunc) {
	n.channels = append(n.channels, notifyChannel{name: name, send: send})
}

// Channels - 등록된 채널 이름
func (n *Notifier) Channels() []string {
	names := make([]string, 0, len(n.channels))
	for _, c := range n.channels {
		names = append(names, c.name)
	}
	return names
}

func (n *Notifier) Notify(ctx context.Context, report *model.AuditReport) {
	for _, c := range n.channels {
		if err := c.send(ctx, report); err != nil {
			n.logger.Error("Failed to send audit notification",
				zap.String("channel", c.name),
				zap.String("audit_id", report.ID),
				zap.Error(err))
		}
	}
}
