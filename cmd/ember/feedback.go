package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"ember/internal/config"
	"ember/internal/feedback"
	"ember/internal/trace"
	"ember/internal/ui"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Inspect and combine type-feedback profiles",
}

var feedbackShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Render a profile as a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		formatFlag, err := cmd.Flags().GetString("format")
		if err != nil {
			return fmt.Errorf("failed to get format flag: %w", err)
		}
		kindFlag, err := cmd.Flags().GetString("kind")
		if err != nil {
			return fmt.Errorf("failed to get kind flag: %w", err)
		}
		cfg, _ := configFrom(cmd.Context())
		format, err := profileFormat(args[0], formatFlag, cfg.Feedback)
		if err != nil {
			return err
		}
		p, err := feedback.Load(args[0], format)
		if err != nil {
			return err
		}

		opts := ui.TableOptions{Width: terminalWidth(os.Stdout)}
		if opts.Color, err = useColor(cmd); err != nil {
			return err
		}
		if kindFlag != "" {
			kind, err := feedback.ParseKind(kindFlag)
			if err != nil {
				return err
			}
			opts.Kind = &kind
		}
		return ui.RenderProfile(cmd.OutOrStdout(), p, opts)
	},
}

var feedbackMergeCmd = &cobra.Command{
	Use:   "merge -o <out> <file>...",
	Short: "Union several profiles into one",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath, err := cmd.Flags().GetString("output")
		if err != nil {
			return fmt.Errorf("failed to get output flag: %w", err)
		}
		if outPath == "" {
			return fmt.Errorf("missing --output")
		}
		formatFlag, err := cmd.Flags().GetString("format")
		if err != nil {
			return fmt.Errorf("failed to get format flag: %w", err)
		}
		uiFlag, err := cmd.Flags().GetString("ui")
		if err != nil {
			return fmt.Errorf("failed to get ui flag: %w", err)
		}
		mode, err := readUIMode(uiFlag)
		if err != nil {
			return err
		}
		cfg, _ := configFrom(cmd.Context())
		_, stopTrace, err := setupTracing(cmd, cfg.Trace, nil)
		if err != nil {
			return err
		}
		defer stopTrace()

		ctx := cmd.Context()
		span := trace.Begin(trace.FromContext(ctx), trace.ScopeRun, "merge", trace.ParentSpan(ctx)).
			WithExtra("inputs", strconv.Itoa(len(args)))
		defer span.End(outPath)
		ctx = trace.WithSpan(ctx, span)

		var profiles []*feedback.Profile
		if shouldUseTUI(mode) {
			profiles, err = loadProfilesWithUI(ctx, args, formatFlag, cfg.Feedback)
		} else {
			profiles, err = loadProfiles(ctx, args, formatFlag, cfg.Feedback, nil)
		}
		if err != nil {
			span.Fail(err)
			return err
		}

		merged := feedback.Merge(profiles...)
		format, err := profileFormat(outPath, formatFlag, cfg.Feedback)
		if err != nil {
			return err
		}
		if err := feedback.Save(outPath, merged, format); err != nil {
			return fmt.Errorf("save %s: %w", outPath, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "merged %d profile(s), %d site(s) into %s\n", len(profiles), len(merged.Sites), outPath)
		return nil
	},
}

func init() {
	feedbackShowCmd.Flags().String("format", "", "profile format (msgpack|cbor); default from extension or config")
	feedbackShowCmd.Flags().String("kind", "", "only show sites that observed this feedback kind")

	feedbackMergeCmd.Flags().StringP("output", "o", "", "output profile")
	feedbackMergeCmd.Flags().String("format", "", "profile format for inputs and output")
	feedbackMergeCmd.Flags().String("ui", "off", "show load progress (auto|on|off)")

	feedbackCmd.AddCommand(feedbackShowCmd)
	feedbackCmd.AddCommand(feedbackMergeCmd)
}

// loadProfiles reads paths concurrently, keeping input order. progress, if
// set, receives one event per state change. Each read is traced under the
// span carried by ctx.
func loadProfiles(ctx context.Context, paths []string, formatFlag string, cfg config.FeedbackConfig, progress chan<- ui.LoadEvent) ([]*feedback.Profile, error) {
	tracer := trace.FromContext(ctx)
	parent := trace.ParentSpan(ctx)
	notify := func(ev ui.LoadEvent) {
		if progress != nil {
			progress <- ev
		}
	}
	out := make([]*feedback.Profile, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			span := trace.Begin(tracer, trace.ScopeOp, "load", parent).WithExtra("path", path)
			notify(ui.LoadEvent{Path: path, Status: ui.LoadReading})
			format, err := profileFormat(path, formatFlag, cfg)
			if err != nil {
				span.Fail(err).End("")
				notify(ui.LoadEvent{Path: path, Status: ui.LoadFailed, Err: err})
				return err
			}
			p, err := feedback.Load(path, format)
			if err != nil {
				span.Fail(err).End("")
				notify(ui.LoadEvent{Path: path, Status: ui.LoadFailed, Err: err})
				return err
			}
			out[i] = p
			span.End(fmt.Sprintf("%d sites", len(p.Sites)))
			notify(ui.LoadEvent{Path: path, Status: ui.LoadDone, Sites: len(p.Sites)})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

type loadOutcome struct {
	profiles []*feedback.Profile
	err      error
}

func loadProfilesWithUI(ctx context.Context, paths []string, formatFlag string, cfg config.FeedbackConfig) ([]*feedback.Profile, error) {
	events := make(chan ui.LoadEvent, 64)
	outcomeCh := make(chan loadOutcome, 1)
	go func() {
		profiles, err := loadProfiles(ctx, paths, formatFlag, cfg, events)
		outcomeCh <- loadOutcome{profiles: profiles, err: err}
		close(events)
	}()

	model := ui.NewLoadModel("loading profiles", paths, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	if uiErr != nil {
		// Unblock the loader if the program stopped reading.
		go func() {
			for range events {
			}
		}()
	}
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.profiles, uiErr
	}
	return outcome.profiles, outcome.err
}

func terminalWidth(f *os.File) int {
	if !isTerminal(f) {
		return 0
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return w
}
