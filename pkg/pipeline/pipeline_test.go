package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gilchrisn/annotation-benchmark/pkg/config"
	"github.com/gilchrisn/annotation-benchmark/pkg/models"
	"github.com/gilchrisn/annotation-benchmark/pkg/report"
	"github.com/gilchrisn/annotation-benchmark/pkg/store"
)

// setupTestData writes two studies whose T cells form a scored cluster and
// returns a config over them.
func setupTestData(t *testing.T) *config.Config {
	t.Helper()
	dataDir := t.TempDir()
	groups := "Cell type\tGroup\nCD4 T\tT cells\nCD8 T\tT cells\nB naive\tB cells\n"
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, config.GroupTableFile), []byte(groups), 0644))

	studies := []models.Study{
		{ID: "ref1", Tissue: "bone marrow", Source: "*"},
		{ID: "ext1", Tissue: "lung"},
	}
	gaps := map[string]float64{"ref1": 20, "ext1": 4}

	for _, s := range studies {
		dir := s.Dir(dataDir)
		require.NoError(t, os.MkdirAll(dir, 0755))

		var result, tsne strings.Builder
		result.WriteString("\tTruth\tAzimuth - standardized\tOmnibusX - standardized\n")
		tsne.WriteString("\ttSNE_1\ttSNE_2\n")
		n := 0
		add := func(truth, azimuth, omnibusx string, x, y float64) {
			fmt.Fprintf(&result, "c%d\t%s\t%s\t%s\n", n, truth, azimuth, omnibusx)
			fmt.Fprintf(&tsne, "c%d\t%g\t%g\n", n, x, y)
			n++
		}
		for i := 0; i < 3; i++ {
			add("CD4 T", "CD4 T", "CD4 T", float64(i), 0)
			add("CD8 T", "CD4 T", "CD8 T", gaps[s.ID]+float64(i), 0)
			add("B naive", "B naive", "B naive", 100, float64(i))
		}

		require.NoError(t, os.WriteFile(filepath.Join(dir, config.ResultFile), []byte(result.String()), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, config.EmbeddingFile), []byte(tsne.String()), 0644))
	}

	cfg := config.Default()
	cfg.DataDir = dataDir
	cfg.OutputDir = t.TempDir()
	cfg.Workers = 2
	cfg.MinClusterCells = 4
	cfg.Studies = studies
	return cfg
}

func TestRunAllStages(t *testing.T) {
	cfg := setupTestData(t)
	p := New(cfg, zap.NewNop())

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	require.NotNil(t, res.Study)
	require.NotNil(t, res.Celltype)
	require.NotNil(t, res.Cluster)
	assert.Len(t, res.Summary, 4)
	assert.Equal(t, 2, res.Cluster.Len())
	assert.Len(t, res.Fits, 2)
	assert.Len(t, res.Dispersion, 2)
	assert.Nil(t, res.Run)

	for _, name := range []string{report.StudyTableFile, report.StudyBoxFile, report.CelltypeTableFile, report.ClusterFile} {
		assert.FileExists(t, filepath.Join(cfg.OutputDir, name))
	}
	assert.Len(t, res.Figures, 4)

	summary, err := os.ReadFile(filepath.Join(cfg.OutputDir, SummaryFile))
	require.NoError(t, err)
	assert.Contains(t, string(summary), "Agreement per study")
	assert.Contains(t, string(summary), "T cells")
}

func TestRunSingleStageWithStore(t *testing.T) {
	cfg := setupTestData(t)
	db, err := store.Open(filepath.Join(t.TempDir(), "bench.db"), zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	p := New(cfg, zap.NewNop())
	p.Store = db
	p.SkipFigures = true

	res, err := p.Run(context.Background(), StageStudy)
	require.NoError(t, err)
	assert.Nil(t, res.Celltype)
	assert.Empty(t, res.Figures)
	require.NotNil(t, res.Run)

	loaded, err := db.LoadStudyScores(context.Background(), res.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Study.Kappa, loaded.Kappa)
}

func TestRunSkipsIneligibleStages(t *testing.T) {
	cfg := setupTestData(t)
	cfg.Tools = append(cfg.Tools, models.Tool{Name: "Other", Column: "Other - standardized"})

	res, err := New(cfg, nil).Run(context.Background(), StageStudy, StageCelltype)
	require.NoError(t, err)
	require.NotNil(t, res.Study)
	assert.Nil(t, res.Celltype)
}

func TestRunFailsWhenFigureCannotBeWritten(t *testing.T) {
	cfg := setupTestData(t)
	// a directory in place of the figure makes creating it fail
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.OutputDir, report.StudyTableFile), 0755))

	_, err := New(cfg, zap.NewNop()).Run(context.Background(), StageStudy)
	require.Error(t, err)
	assert.Contains(t, err.Error(), report.StudyTableFile)
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, SummaryFile))
}

func TestRunWithoutClusters(t *testing.T) {
	cfg := setupTestData(t)
	cfg.MinClusterCells = 100

	res, err := New(cfg, zap.NewNop()).Run(context.Background(), StageCluster)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Cluster.Len())
	assert.Empty(t, res.Figures)
}

func TestRunUnknownStage(t *testing.T) {
	cfg := setupTestData(t)

	_, err := New(cfg, nil).Run(context.Background(), Stage("bogus"))
	assert.Error(t, err)
}

func TestWriteSummary(t *testing.T) {
	cfg := setupTestData(t)
	res, err := New(cfg, nil).Run(context.Background(), StageStudy)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, res.Summary))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "TOOL"))
	assert.Contains(t, lines[1], "reference")

	buf.Reset()
	require.NoError(t, WriteStudyTable(&buf, res.Study))
	assert.Contains(t, buf.String(), "ref1")
	assert.Contains(t, buf.String(), "Azimuth KAPPA")
}
