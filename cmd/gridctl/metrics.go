package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/gridctl/internal/config"
	"github.com/alexisbeaulieu97/gridctl/internal/sgapi"
)

type metricsOptions struct {
	ConfigPath string
	Time       string
	End        string
	Step       time.Duration
	Timeout    time.Duration
}

func newMetricsCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Read grid metrics",
	}
	cmd.AddCommand(newMetricsQueryCmd(root))
	return cmd
}

func newMetricsQueryCmd(root *rootFlags) *cobra.Command {
	opts := metricsOptions{}

	cmd := &cobra.Command{
		Use:   "query <promql>",
		Short: "Evaluate a Prometheus expression on the grid",
		Long: `Query evaluates an instant query, or a range query when --end-time and
--step are given together with --time as the range start.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := opts.query(args[0])
			if err != nil {
				return err
			}

			var base config.Connection
			if opts.ConfigPath != "" {
				cfg, err := config.ParseConfig(opts.ConfigPath)
				if err != nil {
					return err
				}
				base = cfg.Connection
			}

			return runMetricsQuery(cmd.Context(), root, base, q, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Read connection settings from a configuration file")
	cmd.Flags().StringVar(&opts.Time, "time", "", "Evaluation time or range start (RFC3339)")
	cmd.Flags().StringVar(&opts.End, "end-time", "", "Range end (RFC3339)")
	cmd.Flags().DurationVar(&opts.Step, "step", 0, "Range resolution, for example 1m")
	cmd.Flags().DurationVar(&opts.Timeout, "query-timeout", 0, "Evaluation timeout passed to the grid")

	return cmd
}

func (o metricsOptions) query(expr string) (sgapi.MetricQuery, error) {
	q := sgapi.MetricQuery{Query: expr, Step: o.Step, Timeout: o.Timeout}

	var err error
	if o.Time != "" {
		if q.Time, err = time.Parse(time.RFC3339, o.Time); err != nil {
			return sgapi.MetricQuery{}, fmt.Errorf("invalid --time: %w", err)
		}
	}
	if o.End != "" {
		if q.End, err = time.Parse(time.RFC3339, o.End); err != nil {
			return sgapi.MetricQuery{}, fmt.Errorf("invalid --end-time: %w", err)
		}
	}
	return q, q.Validate()
}

func runMetricsQuery(ctx context.Context, root *rootFlags, base config.Connection, q sgapi.MetricQuery, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	log, err := newLogger(root.verbose, true)
	if err != nil {
		return err
	}

	conn, err := resolveConnection(root.source, base)
	if err != nil {
		return err
	}
	client, err := sgapi.Connect(ctx, clientConfig(conn), log)
	if err != nil {
		return err
	}

	result, err := sgapi.QueryMetrics(ctx, client, q)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
