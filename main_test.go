package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kube-rca/migration-audit/internal/config"
	"github.com/kube-rca/migration-audit/internal/model"
)

func TestRunRequestFlagsOverrideConfig(t *testing.T) {
	cfg := config.AuditConfig{
		Hosts: []string{"r1"},
		Start: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
	}

	req, err := runRequest(cfg, nil, "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, req.Hosts)
	assert.Equal(t, cfg.Start, req.Start)

	req, err = runRequest(cfg, []string{"r2", "r3"}, "2024-03-10T09:00:00+09:00", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"r2", "r3"}, req.Hosts)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), req.Start)
	assert.Equal(t, cfg.End, req.End)

	_, err = runRequest(cfg, nil, "", "yesterday")
	assert.Error(t, err)
}

func TestWriteReportToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	report := &model.AuditReport{ID: "a-1"}

	require.NoError(t, writeReport(path, report))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got model.AuditReport
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "a-1", got.ID)
}

func TestBuildStrategies(t *testing.T) {
	cfg := config.AuditConfig{
		FuzzTolerance:  time.Second,
		TrapWindow:     120 * time.Second,
		TrapSearchMode: "first-minimum",
		Timezone:       "UTC",
	}
	strategies, err := buildStrategies(cfg)
	require.NoError(t, err)
	require.Len(t, strategies, 2)
	assert.Equal(t, model.EventKindSyslog, strategies[0].Kind())
	assert.Equal(t, model.EventKindTrap, strategies[1].Kind())

	cfg.Timezone = "Mars/Olympus"
	_, err = buildStrategies(cfg)
	assert.True(t, errors.Is(err, config.ErrInvalidConfig))
}
