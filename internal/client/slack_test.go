package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kube-rca/migration-audit/internal/config"
	"github.com/kube-rca/migration-audit/internal/model"
)

func newTestSlack(t *testing.T, handler http.HandlerFunc) *SlackClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewSlackClient(config.SlackConfig{BotToken: "xoxb-test", ChannelID: "C123"})
	c.apiURL = srv.URL
	return c
}

func sampleReport() *model.AuditReport {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return &model.AuditReport{
		ID:         "audit-1",
		Request:    model.AuditRequest{Hosts: []string{"r1", "r2"}, Start: start, End: start.Add(time.Hour)},
		FinishedAt: start.Add(2 * time.Hour),
		Hosts: []model.HostReport{
			{Host: "r1"},
			{Host: "r2", UnmatchedEvents: []model.Event{{ID: "S9", Kind: model.EventKindTrap, TypeKey: "linkDown", Timestamp: start}}},
		},
		Summary: model.AuditSummary{Hosts: 2, SourceEvents: 3, MatchedEvents: 2, UnmatchedEvents: 1},
	}
}

func TestSendAuditSummaryThreadsHostDetails(t *testing.T) {
	var got []SlackMessage
	c := newTestSlack(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer xoxb-test", r.Header.Get("Authorization"))
		var msg SlackMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		got = append(got, msg)
		_, _ = w.Write([]byte(`{"ok":true,"ts":"1700000000.000100"}`))
	})

	require.NoError(t, c.SendAuditSummary(t.Context(), sampleReport()))

	// 요약 1건 + 불일치가 있는 r2 상세 1건
	require.Len(t, got, 2)
	require.Len(t, got[0].Attachments, 1)
	assert.Equal(t, colorMismatch, got[0].Attachments[0].Color)
	assert.Equal(t, "audit audit-1", got[0].Attachments[0].Footer)
	assert.Empty(t, got[0].ThreadTS)

	assert.Equal(t, "1700000000.000100", got[1].ThreadTS)
	assert.Contains(t, got[1].Text, "*r2*")
	assert.Contains(t, got[1].Text, "`S9`")
}

func TestSendAuditSummaryCleanRun(t *testing.T) {
	var got []SlackMessage
	c := newTestSlack(t, func(w http.ResponseWriter, r *http.Request) {
		var msg SlackMessage
		_ = json.NewDecoder(r.Body).Decode(&msg)
		got = append(got, msg)
		_, _ = w.Write([]byte(`{"ok":true,"ts":"1"}`))
	})

	report := sampleReport()
	report.Hosts[1].UnmatchedEvents = nil
	report.Summary.UnmatchedEvents = 0

	require.NoError(t, c.SendAuditSummary(t.Context(), report))
	require.Len(t, got, 1)
	assert.Equal(t, colorClean, got[0].Attachments[0].Color)
}

func TestSendAuditSummaryAPIError(t *testing.T) {
	c := newTestSlack(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	})

	err := c.SendAuditSummary(t.Context(), sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
}

func TestSlackNotConfigured(t *testing.T) {
	c := NewSlackClient(config.SlackConfig{})
	assert.False(t, c.IsConfigured())
	assert.Error(t, c.SendAuditSummary(t.Context(), sampleReport()))
}

func TestFormatHostDetailTruncates(t *testing.T) {
	host := model.HostReport{Host: "r1"}
	for i := 0; i < maxUnmatchedPerHost+5; i++ {
		host.UnmatchedEvents = append(host.UnmatchedEvents, model.Event{ID: "S", Kind: model.EventKindSyslog})
	}
	assert.Contains(t, formatHostDetail(host), "... 5 more")
}
