package models

import (
	"encoding/json"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudyDir(t *testing.T) {
	s := Study{ID: "GSE216005", Tissue: "bone marrow"}
	assert.Equal(t, filepath.Join("data", "studies", "bone_marrow", "GSE216005"), s.Dir("data"))
	assert.False(t, s.IsReference())
	assert.True(t, Study{ID: "x", Tissue: "lung", Source: "*"}.IsReference())
}

func TestStudyValidate(t *testing.T) {
	assert.NoError(t, Study{ID: "a", Tissue: "lung"}.Validate())
	assert.Error(t, Study{Tissue: "lung"}.Validate())
	assert.Error(t, Study{ID: "a"}.Validate())

	err := Study{ID: "a", Tissue: "lung", Source: "+"}.Validate()
	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "source", ve.Field)
}

func TestResultTableHasAll(t *testing.T) {
	rt := &ResultTable{
		Truth:       []string{"a", "b"},
		Predictions: map[string][]string{"Azimuth - standardized": {"a", "a"}},
	}
	assert.Equal(t, 2, rt.Len())
	assert.False(t, rt.HasAll(DefaultTools()))
	assert.True(t, rt.HasAll(DefaultTools()[:1]))

	_, ok := rt.Prediction("OmnibusX - standardized")
	assert.False(t, ok)
}

func TestAvailable(t *testing.T) {
	assert.True(t, Available(0.5))
	assert.False(t, Available(0))
	assert.False(t, Available(math.NaN()))
}

func TestStudyScoresJSON(t *testing.T) {
	scores := NewStudyScores([]Study{{ID: "a", Tissue: "lung"}}, []string{"Azimuth"})
	scores.Kappa[0][0] = math.NaN()
	scores.F1[0][0] = 0.5

	data, err := json.Marshal(scores)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"studies": [{"id": "a", "tissue": "lung"}],
		"tools": ["Azimuth"],
		"kappa": [[null]],
		"f1": [[0.5]],
		"nmi": [[0]]
	}`, string(data))
}

func TestValidationErrors(t *testing.T) {
	var errs ValidationErrors
	assert.NoError(t, errs.ErrOrNil())

	errs = append(errs, ValidationError{Field: "a", Message: "bad"}, ValidationError{Field: "b", Message: "worse", Value: "x"})
	assert.Contains(t, errs.Error(), "2 validation errors")
	assert.Contains(t, errs[1].Error(), "(value: x)")
}
