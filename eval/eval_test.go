package eval

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fendouba123/DCNN/nnet"
	"github.com/fendouba123/DCNN/storage"
)

func writeTestCSV(t *testing.T, dir string) string {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	path := filepath.Join(dir, "synth.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	fmt.Fprintln(f, "f1,f2,f3,f4,label")
	for i := 0; i < 20; i++ {
		fmt.Fprintf(f, "%.3f,%.3f,%.3f,%.3f,neg\n",
			rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64())
	}
	for i := 0; i < 10; i++ {
		fmt.Fprintf(f, "%.3f,%.3f,%.3f,%.3f,pos\n",
			5+rng.NormFloat64(), 5+rng.NormFloat64(), 5+rng.NormFloat64(), 5+rng.NormFloat64())
	}
	return path
}

func denseConfig() nnet.Config {
	return nnet.Config{
		DataSet:       "synth",
		Eta:           0.05,
		MaxEpoch:      50,
		TrainBatch:    8,
		NormalWeights: true,
		Shuffle:       true,
		RandSeed:      42,
	}.Defaults().AddLayers(
		nnet.Conv{Nfeats: 8, Size: 3, Pad: 1},
		nnet.Activation{Atype: "relu"},
		nnet.MaxPool{Size: 2},
		nnet.Flatten{},
		nnet.Linear{Nout: 8},
		nnet.Activation{Atype: "relu"},
		nnet.Linear{Nout: 1},
		nnet.SigmoidOut{},
	)
}

func TestLoadExperiment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exp.yaml")
	src := `name: synth
dataset: synth.csv
folds: 3
seed: 1
smote:
  enabled: true
  k: 2
outDir: out
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	exp, err := LoadExperiment(path)
	require.NoError(t, err)
	assert.Equal(t, "synth", exp.Name)
	assert.Equal(t, 3, exp.Folds)
	assert.Equal(t, 2, exp.Smote.K)
	assert.True(t, exp.Scale, "scale defaults on")
}

func TestExperimentValidate(t *testing.T) {
	exp := Experiment{Name: "x", DataSet: "x.csv", Folds: 5, Smote: SmoteConfig{Enabled: true, K: 5}}
	assert.NoError(t, exp.Validate())
	exp.Folds = 1
	assert.Error(t, exp.Validate())
	exp.Folds = 5
	exp.DataSet = ""
	assert.Error(t, exp.Validate())
}

func TestRunCrossValidation(t *testing.T) {
	dir := t.TempDir()
	dataPath := writeTestCSV(t, dir)
	store, err := storage.Open(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	var epochs int
	r := &Runner{
		Exp: Experiment{
			Name:    "synth",
			DataSet: dataPath,
			Folds:   3,
			Seed:    42,
			Scale:   true,
			Smote:   SmoteConfig{Enabled: true, K: 3},
			OutDir:  dir,
		},
		Model:    "dense",
		Conf:     denseConfig(),
		Store:    store,
		Log:      zerolog.Nop(),
		Progress: func(fold int, s nnet.Stats) { epochs++ },
	}
	run, err := r.Run()
	require.NoError(t, err)
	require.Len(t, run.Results, 3)
	assert.Equal(t, 150, epochs, "progress called once per epoch per fold")

	for _, res := range run.Results {
		assert.Greater(t, res.Metrics.Accuracy, 0.7, "fold %d accuracy", res.Fold)
		assert.Greater(t, res.Metrics.AUC, 0.7, "fold %d auc", res.Fold)
		assert.FileExists(t, res.WeightsFile)
		assert.NotEmpty(t, res.TPR)
	}
	assert.Contains(t, run.Summary, "accuracy")
	assert.Contains(t, run.Summary, "mcc")

	// report has a header, one row per fold and two summary rows
	f, err := os.Open(filepath.Join(dir, run.ID+"_folds.csv"))
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 6)
	assert.Equal(t, "fold", records[0][0])
	assert.Equal(t, "mean", records[4][0])

	// run record was persisted
	stored, err := store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Results, 3)
}

func TestRunTooManyFolds(t *testing.T) {
	dir := t.TempDir()
	dataPath := writeTestCSV(t, dir)
	r := &Runner{
		Exp: Experiment{Name: "synth", DataSet: dataPath, Folds: 11, Seed: 1,
			Smote: SmoteConfig{Enabled: true, K: 3}},
		Model: "dense",
		Conf:  denseConfig(),
		Log:   zerolog.Nop(),
	}
	_, err := r.Run()
	assert.ErrorContains(t, err, "minority")
}
