package sgapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

const (
	metricQueryPath      = "api/v4/grid/metric-query"
	metricQueryRangePath = "api/v4/grid/metric-query-range"
)

// ErrIncompleteRange is returned when a range query lacks start, end or step.
var ErrIncompleteRange = errors.New("range query needs start, end and step together")

// MetricQuery is a Prometheus expression evaluated by the grid.
type MetricQuery struct {
	Query string
	// Time is the evaluation instant, or the range start when End is set.
	Time    time.Time
	End     time.Time
	Step    time.Duration
	Timeout time.Duration
}

// IsRange reports whether any range parameter was supplied.
func (q MetricQuery) IsRange() bool {
	return !q.End.IsZero() || q.Step > 0
}

// Validate checks the query shape.
func (q MetricQuery) Validate() error {
	if q.Query == "" {
		return fmt.Errorf("metric query is empty")
	}
	if q.IsRange() && (q.Time.IsZero() || q.End.IsZero() || q.Step <= 0) {
		return ErrIncompleteRange
	}
	if q.IsRange() && q.End.Before(q.Time) {
		return fmt.Errorf("range end %s is before start %s", q.End.Format(time.RFC3339), q.Time.Format(time.RFC3339))
	}
	return nil
}

// MetricResult is the Prometheus-shaped query answer.
type MetricResult struct {
	ResultType string          `json:"resultType"`
	Result     json.RawMessage `json:"result"`
}

// QueryMetrics runs an instant or range query. It never mutates the grid.
func QueryMetrics(ctx context.Context, c Collaborator, q MetricQuery) (*MetricResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("query", q.Query)
	if q.Timeout > 0 {
		params.Set("timeout", seconds(q.Timeout))
	}

	path := metricQueryPath
	if q.IsRange() {
		path = metricQueryRangePath
		params.Set("start", q.Time.UTC().Format(time.RFC3339Nano))
		params.Set("end", q.End.UTC().Format(time.RFC3339Nano))
		params.Set("step", seconds(q.Step))
	} else if !q.Time.IsZero() {
		params.Set("time", q.Time.UTC().Format(time.RFC3339Nano))
	}

	resp, err := c.Get(ctx, path, params)
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}

	result := &MetricResult{}
	if err := resp.Decode(result); err != nil {
		return nil, err
	}
	return result, nil
}

// seconds renders a duration the way the Prometheus API expects it.
func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64) + "s"
}
