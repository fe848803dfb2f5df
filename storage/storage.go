// Package storage keeps a persistent record of cross validation runs using
// BoltDB so completed experiments can be listed and inspected later from the
// dashboard.
package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/fendouba123/DCNN/stats"
)

const runsBucket = "runs"

// FoldResult holds the evaluation of one cross validation fold.
type FoldResult struct {
	Fold        int
	Metrics     stats.Metrics
	TPR, FPR    []float64 // ROC curve points for the held out fold
	WeightsFile string
}

// Run is the stored record of one cross validation run.
type Run struct {
	ID      string
	Name    string
	Model   string
	DataSet string
	Folds   int
	Seed    int64
	Started time.Time
	Elapsed time.Duration
	Results []FoldResult
	Summary map[string]string // metric name -> mean±stddev
}

// Store provides persistent storage for run records.
type Store struct {
	db *bbolt.DB
}

// Open creates or opens the database at the given path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(runsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: create bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Close the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// PutRun stores a run record keyed by its ID.
func (s *Store) PutRun(run Run) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("storage: marshal run: %w", err)
		}
		return tx.Bucket([]byte(runsBucket)).Put([]byte(run.ID), data)
	})
}

// GetRun retrieves a run record by ID.
func (s *Store) GetRun(id string) (run Run, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(runsBucket)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("storage: run %s not found", id)
		}
		return json.Unmarshal(data, &run)
	})
	return run, err
}

// ListRuns returns all stored runs, most recent first.
func (s *Store) ListRuns() ([]Run, error) {
	var runs []Run
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(runsBucket)).ForEach(func(k, v []byte) error {
			var run Run
			if err := json.Unmarshal(v, &run); err != nil {
				return fmt.Errorf("storage: unmarshal run %s: %w", k, err)
			}
			runs = append(runs, run)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Started.After(runs[j].Started) })
	return runs, nil
}

// NewRunID builds a unique run ID from the name and start time.
func NewRunID(name string, started time.Time) string {
	return fmt.Sprintf("%s_%s", name, started.Format("20060102T150405"))
}
