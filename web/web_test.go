package web

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fendouba123/DCNN/stats"
	"github.com/fendouba123/DCNN/storage"
)

func testStore(t *testing.T) (*storage.Store, storage.Run) {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	run := storage.Run{
		ID: "demo_20260830T120000", Name: "demo", Model: "dense", DataSet: "demo.csv",
		Folds: 2, Started: time.Now(),
		Results: []storage.FoldResult{
			{Fold: 1, Metrics: stats.Metrics{Accuracy: 0.9, AUC: 0.95},
				FPR: []float64{0, 0.5, 1}, TPR: []float64{0, 1, 1}},
			{Fold: 2, Metrics: stats.Metrics{Accuracy: 0.8, AUC: 0.85},
				FPR: []float64{0, 1}, TPR: []float64{0, 1}},
		},
		Summary: map[string]string{"accuracy": "0.8500", "auc": "0.9000"},
	}
	require.NoError(t, store.PutRun(run))
	return store, run
}

func get(t *testing.T, r http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", url, nil))
	return w
}

func TestRunPages(t *testing.T) {
	store, run := testStore(t)
	r, live, err := NewRouter(store, "", "")
	require.NoError(t, err)
	require.NotNil(t, live)

	w := get(t, r, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), run.ID)

	w = get(t, r, "/run/"+run.ID)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<svg")
	assert.Contains(t, w.Body.String(), "0.9000")
	assert.Contains(t, w.Body.String(), "&PlusMinus;", "summary row shows mean and stddev")
	assert.Contains(t, w.Body.String(), `class="selected"`, "runs menu entry is highlighted")

	w = get(t, r, "/run/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(t, r, "/live")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "WebSocket")
}

// Page state is shared between requests so the handlers must serialise
// access to it.
func TestConcurrentPages(t *testing.T) {
	store, run := testStore(t)
	r, _, err := NewRouter(store, "", "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				for _, url := range []string{"/", "/run/" + run.ID, "/live"} {
					w := httptest.NewRecorder()
					r.ServeHTTP(w, httptest.NewRequest("GET", url, nil))
					if w.Code != http.StatusOK {
						t.Errorf("GET %s: status %d", url, w.Code)
					}
				}
			}
		}()
	}
	wg.Wait()
}

func TestBasicAuth(t *testing.T) {
	store, _ := testStore(t)
	r, _, err := NewRouter(store, "admin", "secret")
	require.NoError(t, err)

	w := get(t, r, "/")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest("GET", "/", nil)
	req.SetBasicAuth("admin", "secret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
