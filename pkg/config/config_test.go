package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/annotation-benchmark/pkg/models"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.Len(t, cfg.Studies, 22)
	assert.Equal(t, "human_m1_10x", cfg.Studies[0].ID)
	assert.True(t, cfg.Studies[0].IsReference())
	assert.Equal(t, "bone marrow", cfg.Studies[12].Tissue)
	assert.False(t, cfg.Studies[21].IsReference())

	reference := 0
	for _, s := range cfg.Studies {
		if s.IsReference() {
			reference++
		}
	}
	assert.Equal(t, 7, reference)

	assert.Equal(t, []string{"Azimuth - standardized", "OmnibusX - standardized"}, cfg.ToolColumns())
	assert.Equal(t, 1000, cfg.MinClusterCells)
	assert.Equal(t, 0.8, cfg.GoodAgreement)
	require.NoError(t, cfg.Validate())
}

func TestPaths(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "data"
	study := models.Study{ID: "GSE216005", Tissue: "bone marrow"}

	assert.Equal(t, filepath.Join("data", "studies", "bone_marrow", "GSE216005", "result.tsv"), cfg.ResultPath(study))
	assert.Equal(t, filepath.Join("data", "studies", "bone_marrow", "GSE216005", "tsne.tsv"), cfg.EmbeddingPath(study))
	assert.Equal(t, filepath.Join("data", "celltype_group.tsv"), cfg.GroupTablePath())
}

func TestLoad(t *testing.T) {
	t.Run("FileOverridesDefaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bench.yaml")
		content := `data_dir: /srv/data
workers: 3
studies:
  - {id: s1, tissue: lung, source: "*"}
  - {id: s2, tissue: lung}
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "/srv/data", cfg.DataDir)
		assert.Equal(t, 3, cfg.Workers)
		assert.Len(t, cfg.Studies, 2)
		assert.Len(t, cfg.Tools, 2)
	})

	t.Run("EnvOverridesFile", func(t *testing.T) {
		t.Setenv("BENCH_DATA_DIR", "/env/data")
		t.Setenv("BENCH_WORKERS", "7")
		t.Setenv("BENCH_GOOD_AGREEMENT", "0.9")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "/env/data", cfg.DataDir)
		assert.Equal(t, 7, cfg.Workers)
		assert.Equal(t, 0.9, cfg.GoodAgreement)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("InvalidValues", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		content := `workers: 0
studies:
  - {id: s1, tissue: lung, source: "+"}
  - {id: s2, tissue: lung}
  - {id: s2, tissue: lung}
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		_, err := Load(path)
		require.Error(t, err)

		var errs models.ValidationErrors
		require.ErrorAs(t, err, &errs)
		assert.Len(t, errs, 3)
	})
}
