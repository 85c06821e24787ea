package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/flatgo/distance"
	"github.com/hupe1980/flatgo/persistence"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flatgo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
index:
  dimension: 64
  metric: ip
scheduler:
  policy: weighted
  weights:
    cpu: 1
    blas: 3
  fallback: cpu
storage:
  backend: local
  compression: zstd
  local:
    root: ./snapshots
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 64, cfg.Index.Dimension)
	assert.Equal(t, distance.MetricInnerProduct, cfg.Metric())
	assert.Equal(t, map[string]float64{"cpu": 1, "blas": 3}, cfg.Scheduler.Weights)
	require.NotNil(t, cfg.Scheduler.Fallback)
	assert.Equal(t, "cpu", *cfg.Scheduler.Fallback)
	assert.Equal(t, persistence.CompressionZstd, cfg.Compression())
	assert.Equal(t, filepath.Join(filepath.Dir(path), "snapshots"), cfg.Storage.Local.Root)
	assert.True(t, cfg.Logger().Enabled(t.Context(), slog.LevelDebug))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "index:\n  dimension: 8\n"))
	require.NoError(t, err)

	assert.Equal(t, distance.MetricL2, cfg.Metric())
	assert.Equal(t, "even", cfg.Scheduler.Policy)
	assert.Equal(t, 10000, cfg.Scheduler.SmallWorkloadThreshold)
	assert.Nil(t, cfg.Scheduler.Fallback)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, persistence.CompressionNone, cfg.Compression())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "index: ["))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"dimension", "index:\n  dimension: 0\n"},
		{"metric", "index:\n  dimension: 4\n  metric: cosine\n"},
		{"policy", "index:\n  dimension: 4\nscheduler:\n  policy: random\n"},
		{"weights", "index:\n  dimension: 4\nscheduler:\n  policy: weighted\n"},
		{"negative weight", "index:\n  dimension: 4\nscheduler:\n  policy: weighted\n  weights: {cpu: -1}\n"},
		{"compression", "index:\n  dimension: 4\nstorage:\n  compression: gzip\n"},
		{"backend", "index:\n  dimension: 4\nstorage:\n  backend: ftp\n"},
		{"minio", "index:\n  dimension: 4\nstorage:\n  backend: minio\n"},
		{"s3", "index:\n  dimension: 4\nstorage:\n  backend: s3\n"},
		{"level", "index:\n  dimension: 4\nlog:\n  level: loud\n"},
		{"format", "index:\n  dimension: 4\nlog:\n  format: xml\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestNewIndex(t *testing.T) {
	cfg, err := Parse([]byte(`
index:
  dimension: 2
  metric: l2
  initial_capacity: 16
scheduler:
  policy: weighted
  weights: {cpu: 1}
  fallback: ""
resources:
  max_workers: 2
`))
	require.NoError(t, err)

	idx, err := cfg.NewIndex()
	require.NoError(t, err)
	assert.Equal(t, 16, idx.Cap())

	require.NoError(t, idx.AddVector([]float32{0, 0, 1, 1}, 2))
	res, err := idx.Search(t.Context(), []float32{1, 1}, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Indices[0])
}

func TestSave(t *testing.T) {
	cfg, err := Parse([]byte("index:\n  dimension: 3\n"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Index, loaded.Index)
	assert.Equal(t, cfg.Scheduler, loaded.Scheduler)
}
