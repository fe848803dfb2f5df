package web

import (
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/fendouba123/DCNN/stats"
	"github.com/fendouba123/DCNN/storage"
)

// Base data for the handler functions listing stored runs.
type RunsPage struct {
	*Templates
	sync.Mutex
	Runs  []runRow
	store *storage.Store
}

type runRow struct {
	ID, Model, DataSet string
	Folds              int
	Accuracy, AUC      string
	Started, Elapsed   string
}

func NewRunsPage(t *Templates, store *storage.Store) *RunsPage {
	return &RunsPage{Templates: t, store: store}
}

// Handler function for the run list page
func (p *RunsPage) Base() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		runs, err := p.store.ListRuns()
		if err != nil {
			logError(w, err)
			return
		}
		p.Lock()
		defer p.Unlock()
		p.Runs = p.Runs[:0]
		for _, run := range runs {
			p.Runs = append(p.Runs, runRow{
				ID: run.ID, Model: run.Model, DataSet: run.DataSet, Folds: run.Folds,
				Accuracy: run.Summary["accuracy"],
				AUC:      run.Summary["auc"],
				Started:  run.Started.Format("2006-01-02 15:04:05"),
				Elapsed:  run.Elapsed.Round(time.Second).String(),
			})
		}
		p.Select("/")
		p.Heading = fmt.Sprintf("%d runs", len(runs))
		p.Exec(w, "runs", p)
	}
}

// Base data for the handler functions showing a single run.
type RunPage struct {
	*Templates
	sync.Mutex
	Run       storage.Run
	Folds     []foldRow
	Summaries []summaryRow
	store     *storage.Store
}

type foldRow struct {
	Fold   int
	Values []string
}

type summaryRow struct {
	Name   string
	Values []template.HTML
}

func NewRunPage(t *Templates, store *storage.Store) *RunPage {
	return &RunPage{Templates: t, store: store}
}

func (p *RunPage) Metrics() []string {
	return stats.MetricNames
}

// Handler function for the run detail page
func (p *RunPage) Base() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		run, err := p.store.GetRun(id)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		p.Lock()
		defer p.Unlock()
		p.Run = run
		p.Folds = p.Folds[:0]
		for _, res := range run.Results {
			p.Folds = append(p.Folds, foldRow{Fold: res.Fold, Values: formatValues(res.Metrics.Values())})
		}
		p.Summaries = summaryRows(run.Results)
		// the run detail page is reached from the run list
		p.Select("/")
		p.Heading = fmt.Sprintf("%s: %s on %s", run.ID, run.Model, run.DataSet)
		p.Exec(w, "run", p)
	}
}

func formatValues(vals []float64) []string {
	s := make([]string, len(vals))
	for i, v := range vals {
		s[i] = fmt.Sprintf("%.4f", v)
	}
	return s
}

func summaryRows(results []storage.FoldResult) []summaryRow {
	averages := make([]stats.Average, len(stats.MetricNames))
	for _, res := range results {
		for i, v := range res.Metrics.Values() {
			averages[i].Add(v)
		}
	}
	mean := summaryRow{Name: "mean"}
	for i := range averages {
		mean.Values = append(mean.Values, averages[i].HTML())
	}
	return []summaryRow{mean}
}
