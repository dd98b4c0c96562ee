package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arashan/vecdb/pkg/distance"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvOverrides(t *testing.T) {
	os.Setenv("VECDB_DATA_DIR", "/tmp/vecdb-test")
	os.Setenv("VECDB_METRIC", "cosine")
	os.Setenv("VECDB_HNSW_M", "32")
	defer func() {
		os.Unsetenv("VECDB_DATA_DIR")
		os.Unsetenv("VECDB_METRIC")
		os.Unsetenv("VECDB_HNSW_M")
	}()

	cfg := LoadFromEnv(nil)
	assert.Equal(t, "/tmp/vecdb-test", cfg.DataDir)
	assert.Equal(t, "cosine", cfg.Metric)
	assert.Equal(t, 32, cfg.HNSW.M)

	metric, err := cfg.DistanceMetric()
	require.NoError(t, err)
	assert.Equal(t, distance.Cosine, metric)
}

func TestValidateRejectsBadMetric(t *testing.T) {
	cfg := Default()
	cfg.Metric = "manhattan"
	err := cfg.Validate()
	require.Error(t, err)
}

func TestValidateRejectsNonPositiveCheckpointInterval(t *testing.T) {
	cfg := Default()
	cfg.CheckpointInterval = 0
	require.Error(t, cfg.Validate())
}
