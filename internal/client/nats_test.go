package client

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kube-rca/migration-audit/internal/model"
)

type fakeConn struct {
	msgs []*nats.Msg
	err  error
}

func (f *fakeConn) PublishMsg(m *nats.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, m)
	return nil
}

func TestPublishReport(t *testing.T) {
	conn := &fakeConn{}
	p := NewReportPublisher(conn, "audit.reports", zap.NewNop())

	report := sampleReport()
	exact := model.NewCanonicalIncident("SIT-1", model.SystemTarget, "1001")
	report.Verdicts = []model.Verdict{
		{Source: model.NewCanonicalIncident("T-1", model.SystemSource, "1001"), ExactMatch: &exact, PartialMatches: []model.CanonicalIncident{}},
	}

	require.NoError(t, p.PublishReport(report))
	require.Len(t, conn.msgs, 1)

	msg := conn.msgs[0]
	assert.Equal(t, "audit.reports", msg.Subject)
	assert.Equal(t, "audit-1", msg.Header.Get("x-audit-id"))
	assert.Equal(t, "true", msg.Header.Get("x-mismatch"))

	var body reportEnvelope
	require.NoError(t, json.Unmarshal(msg.Data, &body))
	assert.Equal(t, "audit-1", body.AuditID)
	require.Len(t, body.Verdicts, 1)
	assert.Equal(t, model.MatchStatusExact, body.Verdicts[0].Status)
	assert.Equal(t, "T-1", body.Verdicts[0].SourceIncidentID)
}

func TestPublishReportErrors(t *testing.T) {
	p := NewReportPublisher(nil, "audit.reports", zap.NewNop())
	assert.Error(t, p.PublishReport(sampleReport()))

	conn := &fakeConn{err: errors.New("nats: connection closed")}
	p = NewReportPublisher(conn, "audit.reports", zap.NewNop())
	err := p.PublishReport(sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection closed")
}
