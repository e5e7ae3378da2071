// 환경변수 기반 설정 로드
//
// 실행 디렉토리에 .env 파일이 있으면 먼저 읽는다 (이미 설정된 환경변수는 덮어쓰지 않음).

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Source   SourceConfig
	Target   TargetConfig
	Audit    AuditConfig
	Postgres PostgresConfig
	Slack    SlackConfig
	NATS     NATSConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port               string
	CORSAllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string // json, console
	Output string // stdout, stderr, 파일 경로
}

// SourceConfig - 기존 시스템 Elasticsearch 인덱스
type SourceConfig struct {
	BaseURL     string
	Username    string
	Password    string
	SyslogIndex string
	TrapIndex   string
	TicketIndex string
}

// TargetConfig - 신규 시스템 Elasticsearch 인덱스
type TargetConfig struct {
	BaseURL        string
	Username       string
	Password       string
	EventIndex     string
	AlarmIndex     string
	SituationIndex string
}

type AuditConfig struct {
	Hosts          []string
	Start          time.Time
	End            time.Time
	FuzzTolerance  time.Duration
	TrapWindow     time.Duration
	TrapSearchMode string
	TrapRulesFile  string
	Concurrency    int
	DedupScope     string // run, host
	Timezone       string
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

// Enabled - DB 접속 정보가 있으면 감사 결과를 저장
func (c PostgresConfig) Enabled() bool {
	return c.DatabaseURL != "" || (c.User != "" && c.Database != "")
}

type SlackConfig struct {
	BotToken  string
	ChannelID string
}

type NATSConfig struct {
	URL     string
	Subject string
}

type AuthConfig struct {
	JWTSecret string
}

var ErrInvalidConfig = errors.New("invalid config")

func Load() (Config, error) {
	_ = godotenv.Load()

	var errs []string
	duration := func(key, fallback string) time.Duration {
		d, err := time.ParseDuration(getenv(key, fallback))
		if err != nil {
			errs = append(errs, key)
		}
		return d
	}
	timestamp := func(key string) time.Time {
		v := os.Getenv(key)
		if v == "" {
			return time.Time{}
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			errs = append(errs, key)
		}
		return t
	}

	concurrency, err := strconv.Atoi(getenv("AUDIT_CONCURRENCY", "1"))
	if err != nil || concurrency < 1 {
		errs = append(errs, "AUDIT_CONCURRENCY")
	}

	cfg := Config{
		Server: ServerConfig{
			Port:               getenv("PORT", "8080"),
			CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		},
		Log: LogConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "json"),
			Output: getenv("LOG_OUTPUT", "stdout"),
		},
		Source: SourceConfig{
			BaseURL:     os.Getenv("SOURCE_ES_URL"),
			Username:    os.Getenv("SOURCE_ES_USERNAME"),
			Password:    os.Getenv("SOURCE_ES_PASSWORD"),
			SyslogIndex: getenv("SOURCE_SYSLOG_INDEX", "source-syslog-*"),
			TrapIndex:   getenv("SOURCE_TRAP_INDEX", "source-trap-*"),
			TicketIndex: getenv("SOURCE_TICKET_INDEX", "source-tickets"),
		},
		Target: TargetConfig{
			BaseURL:        os.Getenv("TARGET_ES_URL"),
			Username:       os.Getenv("TARGET_ES_USERNAME"),
			Password:       os.Getenv("TARGET_ES_PASSWORD"),
			EventIndex:     getenv("TARGET_EVENT_INDEX", "target-events-*"),
			AlarmIndex:     getenv("TARGET_ALARM_INDEX", "target-alarms-*"),
			SituationIndex: getenv("TARGET_SITUATION_INDEX", "target-situations"),
		},
		Audit: AuditConfig{
			Hosts:          splitList(os.Getenv("AUDIT_HOSTS")),
			Start:          timestamp("AUDIT_START"),
			End:            timestamp("AUDIT_END"),
			FuzzTolerance:  duration("MATCH_FUZZ_TOLERANCE", "1s"),
			TrapWindow:     duration("TRAP_MATCH_WINDOW", "120s"),
			TrapSearchMode: getenv("TRAP_SEARCH_MODE", "first-minimum"),
			TrapRulesFile:  os.Getenv("TRAP_RULES_FILE"),
			Concurrency:    concurrency,
			DedupScope:     getenv("AUDIT_DEDUP_SCOPE", "run"),
			Timezone:       getenv("SYSLOG_TIMEZONE", "UTC"),
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
		Slack: SlackConfig{
			BotToken:  os.Getenv("SLACK_BOT_TOKEN"),
			ChannelID: os.Getenv("SLACK_CHANNEL_ID"),
		},
		NATS: NATSConfig{
			URL:     os.Getenv("NATS_URL"),
			Subject: getenv("NATS_SUBJECT", "audit.reports"),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
		},
	}

	switch cfg.Audit.TrapSearchMode {
	case "first-minimum", "full-window":
	default:
		errs = append(errs, "TRAP_SEARCH_MODE")
	}
	switch cfg.Audit.DedupScope {
	case "run", "host":
	default:
		errs = append(errs, "AUDIT_DEDUP_SCOPE")
	}

	if len(errs) > 0 {
		return cfg, fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, ", "))
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
