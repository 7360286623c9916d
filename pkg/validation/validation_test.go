package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/annotation-benchmark/pkg/config"
	"github.com/gilchrisn/annotation-benchmark/pkg/models"
)

func writeStudy(t *testing.T, cfg *config.Config, s models.Study, header string, embedding bool) {
	t.Helper()
	dir := s.Dir(cfg.DataDir)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ResultFile), []byte(header+"\n"), 0644))
	if embedding {
		require.NoError(t, os.WriteFile(filepath.Join(dir, config.EmbeddingFile), []byte("\tx\ty\n"), 0644))
	}
}

func setupTestData(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Studies = []models.Study{
		{ID: "full", Tissue: "bone marrow", Source: "*"},
		{ID: "partial", Tissue: "eye"},
	}
	require.NoError(t, os.WriteFile(cfg.GroupTablePath(), []byte("Cell type\tGroup\nCD4 T\tT cells\n"), 0644))

	writeStudy(t, cfg, cfg.Studies[0], "\tTruth\tAzimuth - standardized\tOmnibusX - standardized", true)
	writeStudy(t, cfg, cfg.Studies[1], "\tTruth\tOmnibusX - standardized", false)
	return cfg
}

func TestValidateDataDir(t *testing.T) {
	cfg := setupTestData(t)

	checks, err := ValidateDataDir(cfg)
	require.NoError(t, err)
	require.Len(t, checks, 2)

	assert.True(t, checks[0].Eligible())
	assert.True(t, checks[0].HasEmbedding)
	assert.Equal(t, []string{"Azimuth"}, checks[1].MissingTools)
	assert.False(t, checks[1].HasEmbedding)
	assert.Equal(t, 1, EligibleCount(checks))
}

func TestValidateDataDirProblems(t *testing.T) {
	cfg := setupTestData(t)
	cfg.Studies = append(cfg.Studies,
		models.Study{ID: "ghost", Tissue: "lung"},
		models.Study{ID: "notruth", Tissue: "lung"},
		models.Study{ID: "noembed", Tissue: "lung"},
	)
	writeStudy(t, cfg, cfg.Studies[3], "\tLabel\tAzimuth - standardized\tOmnibusX - standardized", true)
	writeStudy(t, cfg, cfg.Studies[4], "\tTruth\tAzimuth - standardized\tOmnibusX - standardized", false)
	require.NoError(t, os.Remove(cfg.GroupTablePath()))

	checks, err := ValidateDataDir(cfg)
	require.Error(t, err)
	assert.Len(t, checks, 2)

	var ve models.ValidationErrors
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve, 4)
	assert.Equal(t, "group_table", ve[0].Field)
	assert.Equal(t, "studies[ghost]", ve[1].Field)
	assert.Equal(t, "studies[notruth]", ve[2].Field)
	assert.Equal(t, "studies[noembed]", ve[3].Field)
}

func TestValidateDataDirMissing(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = filepath.Join(t.TempDir(), "nope")

	_, err := ValidateDataDir(cfg)
	assert.Error(t, err)
}

func TestValidateOutputDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "figures")
	require.NoError(t, ValidateOutputDirectory(dir))
	assert.DirExists(t, dir)
	require.NoError(t, ValidateOutputDirectory(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	file := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	assert.Error(t, ValidateOutputDirectory(file))
}
