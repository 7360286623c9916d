package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gilchrisn/annotation-benchmark/pkg/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs", "bench.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testReport() *models.Report {
	study := models.NewStudyScores([]models.Study{
		{ID: "r1", Tissue: "bone marrow", Source: "*"},
		{ID: "e1", Tissue: "eye"},
	}, []string{"Azimuth", "OmnibusX"})
	study.Kappa[0] = []float64{0.9, math.NaN()}
	study.Kappa[1] = []float64{0.8, 0.7}
	study.F1[0] = []float64{0.95, 0}
	study.F1[1] = []float64{0.85, 0.75}

	return &models.Report{
		Study: study,
		Celltype: &models.CelltypeScores{
			Groups: []string{"T cells"},
			Tools:  []string{"Azimuth", "OmnibusX"},
			F1:     [][]float64{{0.5, 0.9}},
			Cells:  []int{42},
		},
		Cluster: &models.ClusterScores{
			Studies:    []string{"r1"},
			Groups:     []string{"T cells"},
			Silhouette: []float64{0.3},
			F1:         map[string][]float64{"Azimuth": {0.4}, "OmnibusX": {0.6}},
		},
	}
}

func TestSaveAndLoad(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run, err := s.SaveReport(ctx, "/data", testReport())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, 2, run.Studies)
	assert.Equal(t, 1, run.Groups)
	assert.Equal(t, 1, run.Clusters)

	scores, err := s.LoadStudyScores(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Azimuth", "OmnibusX"}, scores.Tools)
	require.Len(t, scores.Studies, 2)
	assert.Equal(t, "bone marrow", scores.Studies[0].Tissue)
	assert.True(t, scores.Studies[0].IsReference())
	assert.False(t, scores.Studies[1].IsReference())

	assert.Equal(t, 0.9, scores.Kappa[0][0])
	assert.True(t, math.IsNaN(scores.Kappa[0][1]))
	assert.Equal(t, 0.0, scores.F1[0][1])
	assert.Equal(t, 0.7, scores.Kappa[1][1])
}

func TestListRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)

	first, err := s.SaveReport(ctx, "/a", testReport())
	require.NoError(t, err)
	second, err := s.SaveReport(ctx, "/b", &models.Report{})
	require.NoError(t, err)

	runs, err = s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)
	assert.Equal(t, "/a", runs[1].DataDir)
	assert.Equal(t, 0, runs[0].Studies)
}

func TestLoadUnknownRun(t *testing.T) {
	s := openTestStore(t)

	_, err := s.LoadStudyScores(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}
