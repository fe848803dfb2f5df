package eval

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/fendouba123/DCNN/stats"
	"github.com/fendouba123/DCNN/storage"
)

// WriteReport saves the per fold metrics to a CSV file with one row per fold
// followed by mean and stddev summary rows.
func WriteReport(path string, results []storage.FoldResult, averages []stats.Average) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	header := append([]string{"fold"}, stats.MetricNames...)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, res := range results {
		row := []string{strconv.Itoa(res.Fold)}
		for _, v := range res.Metrics.Values() {
			row = append(row, formatMetric(v))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	mean := []string{"mean"}
	sd := []string{"stddev"}
	for _, avg := range averages {
		mean = append(mean, formatMetric(avg.Mean))
		sd = append(sd, formatMetric(avg.StdDev))
	}
	if err := w.Write(mean); err != nil {
		return err
	}
	if err := w.Write(sd); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func formatMetric(v float64) string {
	return fmt.Sprintf("%.4f", v)
}
