// Elasticsearch REST 검색 클라이언트 (Source/Target 어댑터 공통)
//
// _search API를 search_after 방식으로 페이지 단위 조회한다.
// 쿼리 구성은 어댑터별 파일(source.go, target.go)에서 담당.

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
)

const defaultPageSize = 1000

// ElasticClient 구조체 정의
type ElasticClient struct {
	baseURL    string
	username   string
	password   string
	pageSize   int
	httpClient *http.Client
}

// ElasticClient 객체 생성
func NewElasticClient(baseURL, username, password string) *ElasticClient {
	return &ElasticClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		pageSize: defaultPageSize,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// IsConfigured - base URL 설정 여부
func (c *ElasticClient) IsConfigured() bool {
	return c.baseURL != ""
}

type searchRequest struct {
	Size        int              `json:"size"`
	Query       map[string]any   `json:"query"`
	Sort        []map[string]any `json:"sort"`
	SearchAfter []any            `json:"search_after,omitempty"`
}

type searchResponse struct {
	Hits struct {
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

type searchHit struct {
	ID     string          `json:"_id"`
	Source json.RawMessage `json:"_source"`
	Sort   []any           `json:"sort"`
}

// searchAll - 정렬 필드 기준으로 모든 페이지 조회 (정렬 동점은 _id로 고정)
func (c *ElasticClient) searchAll(ctx context.Context, index string, query map[string]any, sortField string) ([]searchHit, error) {
	if !c.IsConfigured() {
		return nil, fmt.Errorf("elasticsearch base URL not configured")
	}

	req := searchRequest{
		Size:  c.pageSize,
		Query: query,
		Sort: []map[string]any{
			{sortField: map[string]any{"order": "asc"}},
			{"_id": map[string]any{"order": "asc"}},
		},
	}

	var all []searchHit
	for {
		resp, err := c.search(ctx, index, req)
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Hits.Hits...)
		if len(resp.Hits.Hits) < req.Size {
			return all, nil
		}
		req.SearchAfter = resp.Hits.Hits[len(resp.Hits.Hits)-1].Sort
	}
}

// POST /{index}/_search
func (c *ElasticClient) search(ctx context.Context, index string, body searchRequest) (*searchResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+index+"/_search", bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.username != "" {
		httpReq.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to elasticsearch: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elasticsearch returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var out searchResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &out, nil
}

// hostTimeRangeQuery - host 일치 + [start, end) 시간 범위
func hostTimeRangeQuery(hostField, host, timeField string, start, end time.Time, extra ...map[string]any) map[string]any {
	filters := []map[string]any{
		{"term": map[string]any{hostField: host}},
		timeRange(timeField, start, end),
	}
	filters = append(filters, extra...)
	return map[string]any{"bool": map[string]any{"filter": filters}}
}

func timeRange(field string, start, end time.Time) map[string]any {
	return map[string]any{"range": map[string]any{field: map[string]any{
		"gte":    start.UnixMilli(),
		"lt":     end.UnixMilli(),
		"format": "epoch_millis",
	}}}
}

// esTime - epoch millis 숫자, 숫자 문자열, RFC3339 문자열 모두 허용
type esTime struct {
	time.Time
}

func (t *esTime) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		t.Time = time.Time{}
		return nil
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		t.Time = time.UnixMilli(ms).UTC()
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", raw, err)
	}
	t.Time = parsed.UTC()
	return nil
}

// ptr - 값이 없으면 nil
func (t esTime) ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

// flexID - 숫자/문자열 어느 쪽으로 저장된 ID든 문자열로 변환
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "null" {
		raw = ""
	}
	*f = flexID(raw)
	return nil
}
