// Package charts turns dashboard snapshots into chart, detail and outlook views.
package charts

import (
	talib "github.com/markcheno/go-talib"

	"github.com/aristath/roi-tracker/internal/domain"
)

// Series names as shown in the chart legend
const (
	SeriesBreakEven  = "Break-even Line"
	SeriesActualROI  = "Actual ROI"
	SeriesForecast   = "Forecast"
	SeriesSavingsSMA = "Period Savings (3-period SMA)"
)

// ChartTitle is the heading of the ROI chart
const ChartTitle = "ROI Tracking Dashboard"

// SavingsSMAPeriod is the window of the savings moving average
const SavingsSMAPeriod = 3

// Series is one line of the chart. Nil entries are gaps.
type Series struct {
	Name string     `json:"name"`
	Data []*float64 `json:"data"`
}

// Chart is the line chart over all records, one label per record
type Chart struct {
	Title    string   `json:"title"`
	Labels   []string `json:"labels"`
	Series   []Series `json:"series"`
	Selected int      `json:"selected"`
}

// Point is the chart's view of a single record
type Point struct {
	Label    string  `json:"label"`
	ROI      float64 `json:"roi"`
	Forecast float64 `json:"forecast"`
}

// BuildChart lays out records in order. selected is echoed so clients can
// highlight the inspected point.
func BuildChart(records []domain.ROIRecord, selected int) Chart {
	n := len(records)
	labels := make([]string, n)
	breakEven := make([]*float64, n)
	actual := make([]*float64, n)
	forecast := make([]*float64, n)
	savings := make([]float64, n)

	for i, r := range records {
		labels[i] = r.Period
		breakEven[i] = value(0)
		actual[i] = value(r.ROI)
		forecast[i] = value(r.Forecast)
		savings[i] = r.RawNumbers.PeriodSavings
	}

	return Chart{
		Title:  ChartTitle,
		Labels: labels,
		Series: []Series{
			{Name: SeriesBreakEven, Data: breakEven},
			{Name: SeriesActualROI, Data: actual},
			{Name: SeriesForecast, Data: forecast},
			{Name: SeriesSavingsSMA, Data: movingAverage(savings, SavingsSMAPeriod)},
		},
		Selected: selected,
	}
}

// Points returns the label/ROI/forecast triple for every record
func Points(records []domain.ROIRecord) []Point {
	points := make([]Point, len(records))
	for i, r := range records {
		points[i] = Point{Label: r.Period, ROI: r.ROI, Forecast: r.Forecast}
	}
	return points
}

// SeriesByName returns the named series
func (c Chart) SeriesByName(name string) (Series, bool) {
	for _, s := range c.Series {
		if s.Name == name {
			return s, true
		}
	}
	return Series{}, false
}

// movingAverage leaves the warm-up window as gaps
func movingAverage(values []float64, period int) []*float64 {
	out := make([]*float64, len(values))
	if len(values) < period {
		return out
	}
	sma := talib.Sma(values, period)
	for i := period - 1; i < len(values); i++ {
		out[i] = value(sma[i])
	}
	return out
}

func value(v float64) *float64 {
	return &v
}
