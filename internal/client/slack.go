// 외부 Slack API와 통신하는 클라이언트 정의
//
// 환경변수:
//   - SLACK_BOT_TOKEN: Slack Bot Token (xoxb-...)
//   - SLACK_CHANNEL_ID: Slack 채널 ID (C...)
//
// 감사 요약은 채널 메시지로, 호스트별 불일치 상세는 같은 스레드의 답글로 전송한다.

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kube-rca/migration-audit/internal/config"
	"github.com/kube-rca/migration-audit/internal/model"
)

const (
	slackPostMessageURL = "https://slack.com/api/chat.postMessage"

	colorClean    = "#36a64f" // 초록
	colorMismatch = "#ffc107" // 노랑

	// 스레드 답글 하나에 나열할 최대 미매칭 이벤트 수
	maxUnmatchedPerHost = 20
)

// SlackClient 구조체 정의
type SlackClient struct {
	botToken   string
	channelID  string
	apiURL     string
	httpClient *http.Client
}

// SlackMessage(메시지 내용) 구조체 정의
type SlackMessage struct {
	Channel     string            `json:"channel"`               // 메시지를 보낼 채널 ID
	Text        string            `json:"text,omitempty"`        // 메시지 본문
	Attachments []SlackAttachment `json:"attachments,omitempty"` // 색상, 필드
	ThreadTS    string            `json:"thread_ts,omitempty"`   // 쓰레드 메시지의 timestamp
}

// SlackAttachment(메시지 포맷) 구조체 정의
type SlackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text"`
	Footer string       `json:"footer,omitempty"`
	Ts     int64        `json:"ts,omitempty"`
	Fields []SlackField `json:"fields,omitempty"`
}

// SlackField(메시지 포맷 필드) 구조체 정의
type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"` // true면 좁은 너비 (한 줄에 2개)
}

// SlackResponse(메시지 응답) 구조체 정의
type SlackResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	TS    string `json:"ts,omitempty"`
}

// SlackClient 객체 생성
func NewSlackClient(cfg config.SlackConfig) *SlackClient {
	return &SlackClient{
		botToken:  cfg.BotToken,
		channelID: cfg.ChannelID,
		apiURL:    slackPostMessageURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SlackClient에 Bot Token과 Channel ID가 모두 설정되어 있는지 체크
func (c *SlackClient) IsConfigured() bool {
	return c.botToken != "" && c.channelID != ""
}

// SendAuditSummary - 감사 요약 전송 후 불일치 호스트 상세를 스레드로 전송
func (c *SlackClient) SendAuditSummary(ctx context.Context, report *model.AuditReport) error {
	if !c.IsConfigured() {
		return fmt.Errorf("slack bot token or channel ID not configured")
	}

	resp, err := c.send(ctx, buildSummaryMessage(c.channelID, report))
	if err != nil {
		return err
	}

	for _, host := range report.Hosts {
		if len(host.UnmatchedEvents) == 0 && len(host.ParseFailures) == 0 {
			continue
		}
		reply := SlackMessage{
			Channel:  c.channelID,
			ThreadTS: resp.TS,
			Text:     formatHostDetail(host),
		}
		if _, err := c.send(ctx, reply); err != nil {
			return fmt.Errorf("failed to send host detail for %s: %w", host.Host, err)
		}
	}
	return nil
}

func buildSummaryMessage(channel string, report *model.AuditReport) SlackMessage {
	s := report.Summary
	color := colorClean
	title := "✅ 마이그레이션 감사 완료: 불일치 없음"
	if s.Mismatched() {
		color = colorMismatch
		title = "⚠️ 마이그레이션 감사 완료: 불일치 발견"
	}

	return SlackMessage{
		Channel: channel,
		Attachments: []SlackAttachment{
			{
				Color: color,
				Title: title,
				Text: fmt.Sprintf("%s ~ %s (%s)",
					report.Request.Start.Format(time.RFC3339),
					report.Request.End.Format(time.RFC3339),
					strings.Join(report.Request.Hosts, ", ")),
				Footer: "audit " + report.ID,
				Ts:     report.FinishedAt.Unix(),
				Fields: []SlackField{
					{Title: "Source Events", Value: strconv.Itoa(s.SourceEvents), Short: true},
					{Title: "Matched", Value: strconv.Itoa(s.MatchedEvents), Short: true},
					{Title: "Unmatched", Value: strconv.Itoa(s.UnmatchedEvents), Short: true},
					{Title: "Parse Failures", Value: strconv.Itoa(s.ParseFailures), Short: true},
					{Title: "Incidents (exact/partial/none)", Value: fmt.Sprintf("%d / %d / %d", s.ExactIncidents, s.PartialIncidents, s.UnmatchedIncidents), Short: true},
					{Title: "Alarms (missing docs)", Value: fmt.Sprintf("%d (%d)", s.Alarms, s.MissingStateDocs), Short: true},
				},
			},
		},
	}
}

func formatHostDetail(host model.HostReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*: unmatched %d, parse failures %d\n", host.Host, len(host.UnmatchedEvents), len(host.ParseFailures))
	for i, ev := range host.UnmatchedEvents {
		if i == maxUnmatchedPerHost {
			fmt.Fprintf(&b, "... %d more\n", len(host.UnmatchedEvents)-maxUnmatchedPerHost)
			break
		}
		fmt.Fprintf(&b, "• `%s` %s %s %s\n", ev.ID, ev.Kind, ev.Timestamp.Format(time.RFC3339), ev.TypeKey)
	}
	return b.String()
}

// Slack API 호출
func (c *SlackClient) send(ctx context.Context, msg SlackMessage) (*SlackResponse, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.botToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var slackResp SlackResponse
	if err := json.Unmarshal(body, &slackResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if !slackResp.OK {
		return nil, fmt.Errorf("slack API error: %s", slackResp.Error)
	}
	return &slackResp, nil
}
