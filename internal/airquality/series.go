package airquality

import (
	"sort"
	"strings"
	"time"
)

// DefaultCoverage is assumed when no hourly row reports its coverage.
const DefaultCoverage = 0.75

// SeriesWindow is the number of most recent hourly points exposed as a series.
const SeriesWindow = 24

// Series is a chart-ready hourly series, ascending by time.
type Series struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// NormalizeHourly converts raw hourly rows into points sorted by time.
//
// Rows without a value or without a parseable period start are dropped. The
// local period start is preferred so that points format as local wall time.
func NormalizeHourly(rows []HourlyRow) []MeasurementPoint {
	points := make([]MeasurementPoint, 0, len(rows))
	for _, row := range rows {
		if row.Value == nil {
			continue
		}

		ts, ok := parsePeriod(row.PeriodFromLocal)
		if !ok {
			ts, ok = parsePeriod(row.PeriodFromUTC)
		}
		if !ok {
			continue
		}

		p := MeasurementPoint{Timestamp: ts, Value: *row.Value}
		if row.PercentCoverage != nil {
			ratio := *row.PercentCoverage / 100.0
			p.Coverage = &ratio
		}
		points = append(points, p)
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
	return points
}

func parsePeriod(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Values returns the point values in order.
func Values(points []MeasurementPoint) []float64 {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	return values
}

// CoverageRatio is the mean reported coverage of points, clamped to [0,1].
// DefaultCoverage is returned when no point carries a coverage value.
func CoverageRatio(points []MeasurementPoint) float64 {
	var sum float64
	var n int
	for _, p := range points {
		if p.Coverage == nil {
			continue
		}
		sum += *p.Coverage
		n++
	}
	if n == 0 {
		return DefaultCoverage
	}
	return min(1, max(0, sum/float64(n)))
}

// Last24h returns the most recent SeriesWindow points as labels (HH:MM) and values.
func Last24h(points []MeasurementPoint) Series {
	if len(points) > SeriesWindow {
		points = points[len(points)-SeriesWindow:]
	}

	series := Series{
		Labels: make([]string, 0, len(points)),
		Values: make([]float64, 0, len(points)),
	}
	for _, p := range points {
		series.Labels = append(series.Labels, p.Timestamp.Format("15:04"))
		series.Values = append(series.Values, p.Value)
	}
	return series
}
