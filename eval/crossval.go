package eval

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/fendouba123/DCNN/nnet"
	"github.com/fendouba123/DCNN/stats"
	"github.com/fendouba123/DCNN/storage"
	"github.com/fendouba123/DCNN/tabular"
)

// Progress is called after each training epoch of each fold.
type Progress func(fold int, s nnet.Stats)

// Runner trains and evaluates one model config with stratified k fold cross
// validation. Oversampling and feature scaling are fitted on the training
// portion of each fold only.
type Runner struct {
	Exp      Experiment
	Model    string
	Conf     nnet.Config
	Store    *storage.Store
	Log      zerolog.Logger
	Progress Progress
}

// Run executes the experiment and returns the stored run record.
func (r *Runner) Run() (storage.Run, error) {
	run := storage.Run{
		Name:    r.Exp.Name,
		Model:   r.Model,
		DataSet: r.Exp.DataSet,
		Folds:   r.Exp.Folds,
		Seed:    r.Exp.Seed,
		Started: time.Now(),
	}
	run.ID = storage.NewRunID(r.Exp.Name, run.Started)

	tab, err := tabular.Load(r.Exp.DataSet)
	if err != nil {
		return run, err
	}
	if tab.Nfeatures() == 0 {
		return run, fmt.Errorf("eval: dataset has no feature columns")
	}
	n0, n1 := tab.ClassCounts()
	minority := n0
	if n1 < n0 {
		minority = n1
	}
	if r.Exp.Folds > minority {
		return run, fmt.Errorf("eval: %d folds but minority class has only %d samples",
			r.Exp.Folds, minority)
	}
	if r.Exp.OutDir != "" {
		if err := os.MkdirAll(r.Exp.OutDir, 0o755); err != nil {
			return run, err
		}
	}
	r.Log.Info().Str("run", run.ID).Str("model", r.Model).
		Int("rows", tab.Len()).Int("features", tab.Nfeatures()).
		Int("class0", n0).Int("class1", n1).Msg("starting cross validation")

	rng := rand.New(rand.NewSource(r.Exp.Seed))
	folds := tabular.StratifiedKFold(tab.Y, r.Exp.Folds, rng)
	averages := make([]stats.Average, len(stats.MetricNames))
	for fold := range folds {
		result, err := r.runFold(run.ID, tab, folds, fold, rng)
		if err != nil {
			return run, err
		}
		run.Results = append(run.Results, result)
		for i, v := range result.Metrics.Values() {
			averages[i].Add(v)
		}
		r.Log.Info().Int("fold", fold+1).Str("metrics", result.Metrics.String()).Msg("fold done")
	}
	run.Elapsed = time.Since(run.Started)
	run.Summary = make(map[string]string)
	for i, name := range stats.MetricNames {
		run.Summary[name] = averages[i].String()
	}
	if r.Exp.OutDir != "" {
		report := filepath.Join(r.Exp.OutDir, run.ID+"_folds.csv")
		if err := WriteReport(report, run.Results, averages); err != nil {
			return run, err
		}
		r.Log.Info().Str("file", report).Msg("wrote fold report")
	}
	if r.Store != nil {
		if err := r.Store.PutRun(run); err != nil {
			return run, err
		}
	}
	r.Log.Info().Dur("elapsed", run.Elapsed).Msg("run complete")
	return run, nil
}

func (r *Runner) runFold(runID string, tab *tabular.Table, folds [][]int, fold int, rng *rand.Rand) (storage.FoldResult, error) {
	result := storage.FoldResult{Fold: fold + 1}
	trainX, trainY := tab.Select(tabular.TrainIndexes(folds, fold, tab.Len()))
	testX, testY := tab.Select(folds[fold])
	if r.Exp.Scale {
		scaler := new(tabular.Scaler).Fit(trainX)
		scaler.Transform(trainX)
		scaler.Transform(testX)
	}
	if r.Exp.Smote.Enabled {
		trainX, trainY = tabular.SMOTE(trainX, trainY, r.Exp.Smote.K, rng)
	}
	data := map[string]nnet.Data{
		"train": nnet.NewData(trainX, trainY),
		"test":  nnet.NewData(testX, testY),
	}
	dset := nnet.NewDataset(data["train"], r.Conf.TrainBatch, r.Conf.FlattenInput, rng)
	net := nnet.New(r.Conf, dset.BatchSize, dset.Shape)
	net.InitWeights(rng)
	tester := &foldTester{
		TestBase: nnet.NewTestBase().Init(r.Conf, data, rng).Predict(),
		log:      r.Log.With().Int("fold", fold+1).Logger(),
		every:    r.Conf.LogEvery,
		progress: r.Progress,
		fold:     fold + 1,
	}
	nnet.Train(net, dset, tester)

	last := tester.Stats[len(tester.Stats)-1]
	result.Metrics = stats.Evaluate(testY, tester.Pred["test"], tester.Probs["test"], last.Values[0])
	result.TPR, result.FPR = stats.ROCCurve(testY, tester.Probs["test"])
	if r.Exp.OutDir != "" {
		result.WeightsFile = filepath.Join(r.Exp.OutDir, fmt.Sprintf("%s_fold%d.wgt", runID, fold+1))
		if err := net.SaveWeights(result.WeightsFile); err != nil {
			return result, err
		}
	}
	return result, nil
}

// foldTester wraps the base tester with structured epoch logging and the
// optional progress callback. The logged loss is smoothed with an
// exponential moving average to damp batch noise.
type foldTester struct {
	*nnet.TestBase
	log      zerolog.Logger
	every    int
	progress Progress
	fold     int
	smoothed stats.EMA
}

func (t *foldTester) Test(net *nnet.Network, epoch int, loss float64, start time.Time) bool {
	done := t.TestBase.Test(net, epoch, loss, start)
	s := t.Stats[len(t.Stats)-1]
	t.smoothed = stats.EMA(t.smoothed.Add(s.Values[0], 10))
	if done || t.every == 0 || epoch%t.every == 0 {
		ev := t.log.Debug().Int("epoch", epoch).Float64("loss", s.Values[0]).
			Float64("smoothed", float64(t.smoothed))
		for i, h := range t.Headers[1:] {
			ev = ev.Float64(h, s.Values[i+1])
		}
		ev.Msg("epoch")
	}
	if t.progress != nil {
		t.progress(t.fold, s)
	}
	return done
}
