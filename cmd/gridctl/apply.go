package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/alexisbeaulieu97/gridctl/internal/config"
	"github.com/alexisbeaulieu97/gridctl/internal/engine"
	"github.com/alexisbeaulieu97/gridctl/internal/model"
	"github.com/alexisbeaulieu97/gridctl/internal/resources"
	"github.com/alexisbeaulieu97/gridctl/internal/tui"
)

type applyOptions struct {
	ConfigPath     string
	DryRun         bool
	Verbose        bool
	ShowDiffs      bool
	NonInteractive bool
	Source         *config.Source
	Out            io.Writer
}

var applyCmdRunner = runApply

func newApplyCmd(root *rootFlags) *cobra.Command {
	opts := applyOptions{}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Reconcile the grid with a configuration document",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.DryRun = root.dryRun
			opts.Verbose = root.verbose
			opts.Source = root.source
			opts.Out = cmd.OutOrStdout()
			opts.NonInteractive = opts.NonInteractive || !term.IsTerminal(int(os.Stdout.Fd()))

			if err := validateApplyOptions(opts); err != nil {
				return err
			}

			return applyCmdRunner(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().BoolVar(&opts.ShowDiffs, "diff", false, "Show the diff of every changed resource")
	cmd.Flags().BoolVar(&opts.NonInteractive, "no-tui", false, "Print a static report instead of the interactive view")
	cmd.MarkFlagRequired("config") //nolint:errcheck

	return cmd
}

func runApply(ctx context.Context, opts applyOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	cfg, err := config.ParseConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	plan, err := engine.PlanFor(cfg)
	if err != nil {
		return err
	}

	effectiveDryRun := opts.DryRun || cfg.Settings.DryRun
	effectiveVerbose := opts.Verbose || cfg.Settings.Verbose

	log, err := newLogger(effectiveVerbose, true)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client, gridVersion, err := connectGrid(ctx, opts.Source, cfg.Connection, log)
	if err != nil {
		return err
	}

	registry, err := resources.NewRegistry(client, log)
	if err != nil {
		return err
	}

	execCtx := engine.NewExecutionContext(ctx, cfg, registry, log)
	execCtx.DryRun = effectiveDryRun
	execCtx.Verbose = effectiveVerbose
	execCtx.GridVersion = gridVersion

	sink := &progressSink{state: tui.NewModel(cfg, plan, tui.Options{
		DryRun:    effectiveDryRun,
		ShowDiffs: opts.ShowDiffs || effectiveVerbose,
	})}
	execCtx.OnStart = func(id string) {
		sink.send(tui.ResourceStartMsg{ID: id, Time: time.Now()})
	}
	execCtx.OnResult = func(result model.ResourceResult) {
		sink.send(tui.ResourceCompleteMsg{Result: result})
	}

	interactive := !opts.NonInteractive
	var programErr error
	done := make(chan struct{})

	if interactive {
		sink.program = tea.NewProgram(sink.state, tea.WithOutput(out))
		go func() {
			final, err := sink.program.Run()
			programErr = err
			if m, ok := final.(tui.Model); ok && m.Cancelled() {
				cancel()
			}
			close(done)
		}()
	}

	report, execErr := engine.Apply(execCtx, plan)
	sink.send(tui.DoneMsg{Err: execErr})

	if interactive {
		<-done
		if programErr != nil {
			return programErr
		}
	} else {
		fmt.Fprintln(out, sink.view())
	}

	log.WithFields(map[string]any{
		"changed":  report.Changed,
		"failed":   report.Failed,
		"skipped":  report.Skipped,
		"dry_run":  report.DryRun,
		"duration": report.Duration.String(),
	}).Info(report.Summary())

	return execErr
}

// progressSink forwards execution events to the running program, or folds
// them into the static model when there is no terminal.
type progressSink struct {
	program *tea.Program

	mu    sync.Mutex
	state tui.Model
}

func (s *progressSink) send(msg tea.Msg) {
	if s.program != nil {
		s.program.Send(msg)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	updated, _ := s.state.Update(msg)
	if m, ok := updated.(tui.Model); ok {
		s.state = m
	}
}

func (s *progressSink) view() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.View()
}
