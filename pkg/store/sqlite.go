// Package store persists benchmark runs in a SQLite database so that
// scores can be compared across runs without recomputing them.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/gilchrisn/annotation-benchmark/pkg/models"
)

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	data_dir TEXT NOT NULL,
	studies INTEGER NOT NULL DEFAULT 0,
	groups_count INTEGER NOT NULL DEFAULT 0,
	clusters INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS study_scores (
	run_id TEXT NOT NULL REFERENCES runs(id),
	tool_pos INTEGER NOT NULL,
	tool TEXT NOT NULL,
	study_pos INTEGER NOT NULL,
	study_id TEXT NOT NULL,
	tissue TEXT NOT NULL,
	source TEXT NOT NULL,
	kappa REAL,
	f1 REAL,
	nmi REAL,
	PRIMARY KEY (run_id, tool_pos, study_pos)
);
CREATE TABLE IF NOT EXISTS celltype_scores (
	run_id TEXT NOT NULL REFERENCES runs(id),
	group_pos INTEGER NOT NULL,
	group_name TEXT NOT NULL,
	cells INTEGER NOT NULL,
	tool TEXT NOT NULL,
	f1 REAL,
	PRIMARY KEY (run_id, group_pos, tool)
);
CREATE TABLE IF NOT EXISTS cluster_scores (
	run_id TEXT NOT NULL REFERENCES runs(id),
	pos INTEGER NOT NULL,
	study_id TEXT NOT NULL,
	group_name TEXT NOT NULL,
	silhouette REAL,
	tool TEXT NOT NULL,
	f1 REAL,
	PRIMARY KEY (run_id, pos, tool)
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`

// Run describes one persisted benchmark run.
type Run struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	DataDir   string    `json:"data_dir"`
	Studies   int       `json:"studies"`
	Groups    int       `json:"groups"`
	Clusters  int       `json:"clusters"`
}

// Store is a SQLite backed run history.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens or creates the database at path.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer at a time
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveReport stores every score of a report under a new run ID.
func (s *Store) SaveReport(ctx context.Context, dataDir string, rep *models.Report) (Run, error) {
	run := Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		DataDir:   dataDir,
	}
	if rep.Study != nil {
		run.Studies = len(rep.Study.Studies)
	}
	if rep.Celltype != nil {
		run.Groups = len(rep.Celltype.Groups)
	}
	if rep.Cluster != nil {
		run.Clusters = rep.Cluster.Len()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, data_dir, studies, groups_count, clusters) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.Format(time.RFC3339), run.DataDir, run.Studies, run.Groups, run.Clusters); err != nil {
		return Run{}, fmt.Errorf("failed to insert run: %w", err)
	}

	if rep.Study != nil {
		if err := saveStudyScores(ctx, tx, run.ID, rep.Study); err != nil {
			return Run{}, err
		}
	}
	if rep.Celltype != nil {
		if err := saveCelltypeScores(ctx, tx, run.ID, rep.Celltype); err != nil {
			return Run{}, err
		}
	}
	if rep.Cluster != nil {
		if err := saveClusterScores(ctx, tx, run.ID, rep.Cluster); err != nil {
			return Run{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("failed to commit run: %w", err)
	}

	s.logger.Info("saved run",
		zap.String("run", run.ID),
		zap.Int("studies", run.Studies),
		zap.Int("groups", run.Groups),
		zap.Int("clusters", run.Clusters))
	return run, nil
}

func saveStudyScores(ctx context.Context, tx *sql.Tx, runID string, scores *models.StudyScores) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO study_scores (run_id, tool_pos, tool, study_pos, study_id, tissue, source, kappa, f1, nmi)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare study insert: %w", err)
	}
	defer stmt.Close()

	for i, tool := range scores.Tools {
		for j, study := range scores.Studies {
			if _, err := stmt.ExecContext(ctx, runID, i, tool, j, study.ID, study.Tissue, study.Source,
				nullable(scores.Kappa[i][j]), nullable(scores.F1[i][j]), nullable(scores.NMI[i][j])); err != nil {
				return fmt.Errorf("failed to insert study score %s/%s: %w", tool, study.ID, err)
			}
		}
	}
	return nil
}

func saveCelltypeScores(ctx context.Context, tx *sql.Tx, runID string, scores *models.CelltypeScores) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO celltype_scores (run_id, group_pos, group_name, cells, tool, f1) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare cell-type insert: %w", err)
	}
	defer stmt.Close()

	for i, group := range scores.Groups {
		for j, tool := range scores.Tools {
			if _, err := stmt.ExecContext(ctx, runID, i, group, scores.Cells[i], tool, nullable(scores.F1[i][j])); err != nil {
				return fmt.Errorf("failed to insert cell-type score %s/%s: %w", group, tool, err)
			}
		}
	}
	return nil
}

func saveClusterScores(ctx context.Context, tx *sql.Tx, runID string, scores *models.ClusterScores) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO cluster_scores (run_id, pos, study_id, group_name, silhouette, tool, f1) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare cluster insert: %w", err)
	}
	defer stmt.Close()

	for k := 0; k < scores.Len(); k++ {
		for tool, f1 := range scores.F1 {
			if _, err := stmt.ExecContext(ctx, runID, k, scores.Studies[k], scores.Groups[k],
				nullable(scores.Silhouette[k]), tool, nullable(f1[k])); err != nil {
				return fmt.Errorf("failed to insert cluster score %d/%s: %w", k, tool, err)
			}
		}
	}
	return nil
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, data_dir, studies, groups_count, clusters FROM runs ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var created string
		if err := rows.Scan(&run.ID, &created, &run.DataDir, &run.Studies, &run.Groups, &run.Clusters); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if run.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, fmt.Errorf("run %s has a malformed timestamp: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LoadStudyScores rebuilds the per-study scores saved with a run.
func (s *Store) LoadStudyScores(ctx context.Context, runID string) (*models.StudyScores, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to look up run: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT tool_pos, tool, study_pos, study_id, tissue, source, kappa, f1, nmi
		 FROM study_scores WHERE run_id = ? ORDER BY tool_pos, study_pos`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query study scores: %w", err)
	}
	defer rows.Close()

	type entry struct {
		tool, study   int
		kappa, f1, mi sql.NullFloat64
	}
	var entries []entry
	var tools []string
	var studies []models.Study
	for rows.Next() {
		var e entry
		var tool string
		var study models.Study
		if err := rows.Scan(&e.tool, &tool, &e.study, &study.ID, &study.Tissue, &study.Source, &e.kappa, &e.f1, &e.mi); err != nil {
			return nil, fmt.Errorf("failed to scan study score: %w", err)
		}
		if e.tool == len(tools) {
			tools = append(tools, tool)
		}
		if e.tool == 0 && e.study == len(studies) {
			studies = append(studies, study)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	scores := models.NewStudyScores(studies, tools)
	for _, e := range entries {
		if e.tool >= len(tools) || e.study >= len(studies) {
			return nil, fmt.Errorf("run %s: study scores are not a full matrix", runID)
		}
		scores.Kappa[e.tool][e.study] = fromNullable(e.kappa)
		scores.F1[e.tool][e.study] = fromNullable(e.f1)
		scores.NMI[e.tool][e.study] = fromNullable(e.mi)
	}
	return scores, nil
}

// SQLite has no NaN, so undefined scores are stored as NULL.
func nullable(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func fromNullable(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
