package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ember/internal/config"
	"ember/internal/feedback"
	"ember/internal/observ"
	"ember/internal/prof"
	"ember/internal/script"
	"ember/internal/tier"
	"ember/internal/trace"
	"ember/internal/ui"
	"ember/internal/value"
	"ember/internal/vm"
)

// errReported marks failures whose details were already printed.
var errReported = errors.New("reported")

var evalCmd = &cobra.Command{
	Use:   "eval <op> <operand>...",
	Short: "Evaluate one operation on literal operands",
	Long: `Evaluate one operation on literal operands and print the result together
with the type feedback it produced.

The operation runs as the body of a function called through the invocation
bridge, so --repeat can drive it into the compiled tier.

Operands: undefined null true false NaN Infinity -0 42 1.5 "str" 'str'
[1, "a"] {k: 1} u8(4) i32(4) f64(4)`,
	Args: cobra.ArbitraryArgs,
	RunE: runEval,
}

func init() {
	evalCmd.Flags().Bool("list", false, "list operations and exit")
	evalCmd.Flags().Int("repeat", 1, "number of calls")
	evalCmd.Flags().Bool("strict", false, "evaluate as strict-mode code")
	evalCmd.Flags().Bool("no-tier", false, "disable the compiled tier")
	evalCmd.Flags().String("profile", "", "save feedback to this file (default: feedback.profile_path)")
	evalCmd.Flags().String("format", "", "profile format (msgpack|cbor); default from extension or config")
	evalCmd.Flags().Bool("timings", false, "print phase timings")
	evalCmd.Flags().String("cpu-profile", "", "write a pprof CPU profile")
	evalCmd.Flags().String("mem-profile", "", "write a pprof heap profile")
	evalCmd.Flags().String("runtime-trace", "", "write a Go runtime trace")
}

type evalOptions struct {
	repeat  int
	strict  bool
	noTier  bool
	profile string
	format  string
	timings bool
	prof    prof.Options
}

func readEvalOptions(cmd *cobra.Command, cfg config.Config) (evalOptions, error) {
	var opts evalOptions
	var err error
	flags := cmd.Flags()
	if opts.repeat, err = flags.GetInt("repeat"); err != nil {
		return opts, fmt.Errorf("failed to get repeat flag: %w", err)
	}
	if opts.repeat < 1 {
		return opts, fmt.Errorf("--repeat must be at least 1, got %d", opts.repeat)
	}
	if opts.strict, err = flags.GetBool("strict"); err != nil {
		return opts, fmt.Errorf("failed to get strict flag: %w", err)
	}
	if opts.noTier, err = flags.GetBool("no-tier"); err != nil {
		return opts, fmt.Errorf("failed to get no-tier flag: %w", err)
	}
	if opts.profile, err = flags.GetString("profile"); err != nil {
		return opts, fmt.Errorf("failed to get profile flag: %w", err)
	}
	if opts.profile == "" {
		opts.profile = cfg.Feedback.ProfilePath
	}
	if opts.format, err = flags.GetString("format"); err != nil {
		return opts, fmt.Errorf("failed to get format flag: %w", err)
	}
	if opts.timings, err = flags.GetBool("timings"); err != nil {
		return opts, fmt.Errorf("failed to get timings flag: %w", err)
	}
	if opts.prof.CPUPath, err = flags.GetString("cpu-profile"); err != nil {
		return opts, fmt.Errorf("failed to get cpu-profile flag: %w", err)
	}
	if opts.prof.MemPath, err = flags.GetString("mem-profile"); err != nil {
		return opts, fmt.Errorf("failed to get mem-profile flag: %w", err)
	}
	if opts.prof.TracePath, err = flags.GetString("runtime-trace"); err != nil {
		return opts, fmt.Errorf("failed to get runtime-trace flag: %w", err)
	}
	return opts, nil
}

func runEval(cmd *cobra.Command, args []string) error {
	if list, _ := cmd.Flags().GetBool("list"); list {
		printOps(cmd.OutOrStdout())
		return nil
	}
	if len(args) == 0 {
		return fmt.Errorf("missing operation (see --list)")
	}
	op, err := lookupOp(args[0])
	if err != nil {
		return err
	}
	if len(args)-1 != op.arity {
		return fmt.Errorf("%s takes %d operand(s), got %d", op.name, op.arity, len(args)-1)
	}

	cfg, _ := configFrom(cmd.Context())
	opts, err := readEvalOptions(cmd, cfg)
	if err != nil {
		return err
	}
	if opts.noTier {
		cfg.Tier.Enabled = false
	}

	var sess *evalSession
	_, stopTrace, err := setupTracing(cmd, cfg.Trace, func() string {
		if sess == nil {
			return ""
		}
		return "depth=" + strconv.Itoa(sess.vm.Depth())
	})
	if err != nil {
		return err
	}
	defer stopTrace()

	ctx := cmd.Context()
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeRun, "eval", trace.ParentSpan(ctx)).WithExtra("op", op.name)
	defer span.End("")
	cmd.SetContext(trace.WithSpan(ctx, span))

	timer := observ.NewTimer()
	idx := timer.Begin("setup")
	sess = newEvalSession(cfg, tracer, op, opts.strict)
	timer.End(idx, "")

	idx = timer.Begin("operands")
	operands := make([]value.Value, 0, op.arity)
	for _, text := range args[1:] {
		v, err := parseOperand(sess.vm, text)
		if err != nil {
			return err
		}
		operands = append(operands, v)
	}
	timer.End(idx, fmt.Sprintf("%d operand(s)", len(operands)))

	var profSession *prof.Session
	if opts.prof.Enabled() {
		if profSession, err = prof.Start(opts.prof); err != nil {
			return err
		}
	}
	idx = timer.Begin("eval")
	result, vmErr := sess.call(operands, opts.repeat)
	timer.End(idx, fmt.Sprintf("%d call(s)", opts.repeat))
	if profSession != nil {
		if err := profSession.Stop(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "profiling: %v\n", err)
		}
	}

	out := cmd.OutOrStdout()
	if vmErr != nil {
		span.Fail(vmErr)
		fmt.Fprint(cmd.ErrOrStderr(), vmErr.Format())
	} else {
		fmt.Fprintf(out, "result: %s (%s)\n", display(sess.vm, result), result.Kind())
	}
	sess.printStats(out)

	snap := sess.rec.Snapshot()
	color, err := useColor(cmd)
	if err != nil {
		return err
	}
	if len(snap.Sites) == 0 {
		fmt.Fprintln(out, "feedback: none")
	} else if err := ui.RenderProfile(out, snap, ui.TableOptions{Color: color}); err != nil {
		return err
	}

	if opts.profile != "" {
		idx = timer.Begin("save")
		format, err := profileFormat(opts.profile, opts.format, cfg.Feedback)
		if err != nil {
			return err
		}
		if err := feedback.Save(opts.profile, snap, format); err != nil {
			return fmt.Errorf("save profile: %w", err)
		}
		timer.End(idx, opts.profile)
		fmt.Fprintf(out, "profile: %s (%s)\n", opts.profile, format)
	}
	if opts.timings {
		fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
	}
	if vmErr != nil {
		return errReported
	}
	return nil
}

func printOps(w io.Writer) {
	for _, name := range opNames() {
		op := evalOps[name]
		fmt.Fprintf(w, "  %-8s %d  %s\n", name, op.arity, op.help)
	}
}

// profileFormat picks the encoding: --format, then a known extension, then
// the config file.
func profileFormat(path, flag string, cfg config.FeedbackConfig) (feedback.Format, error) {
	if flag != "" {
		return feedback.ParseFormat(flag)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cbor", ".msgpack", ".mp":
		return feedback.FormatForPath(path), nil
	}
	return feedback.ParseFormat(cfg.Format)
}

// evalSession wires a VM whose only script body is one operation. The
// compiled tier "compiles" the script into a direct call of the same
// operation, so a hot script switches paths without changing results.
type evalSession struct {
	vm     *vm.VM
	rec    *feedback.Recorder
	tier   *tier.Registry
	script *script.Script
	fn     value.Value
}

func newEvalSession(cfg config.Config, tracer trace.Tracer, op evalOp, strict bool) *evalSession {
	sess := &evalSession{rec: feedback.NewRecorder()}
	scripts := script.NewRegistry()
	sess.script = scripts.New("eval:"+op.name, strict)

	compiler := tier.CompilerFunc(func(*script.Script) (tier.EntryPoint, int, error) {
		return func(_ value.Value, args []value.Value) (value.Value, error) {
			fr := sess.vm.CurrentFrame()
			if fr.Scope == nil {
				fr.Scope = sess.vm.Realm.Global
			}
			v, vmErr := op.run(sess.vm, fr, args)
			if vmErr != nil {
				return value.Undefined(), vmErr
			}
			return v, nil
		}, op.arity, nil
	})
	profiler := tier.NewProfiler(cfg.Tier.HotThreshold)
	sess.tier = tier.NewRegistry(compiler, profiler)

	sess.vm = vm.New(vm.Options{
		Config:   cfg,
		Feedback: sess.rec,
		Tier:     sess.tier,
		Profiler: profiler,
		Trace:    tracer,
		Interp: vm.InterpreterFunc(func(m *vm.VM, fr *vm.Frame) (value.Value, *vm.VMError) {
			if vmErr := m.CheckInterrupt(); vmErr != nil {
				return value.Undefined(), vmErr
			}
			return op.run(m, fr, fr.Actuals)
		}),
	})
	sess.fn = sess.vm.NewFunction(sess.script, nil)
	return sess
}

// call invokes the operation n times and returns the last result.
func (s *evalSession) call(operands []value.Value, n int) (value.Value, *vm.VMError) {
	var result value.Value
	for i := 0; i < n; i++ {
		v, vmErr := s.vm.Call(s.fn, value.Undefined(), operands)
		if vmErr != nil {
			return value.Undefined(), vmErr
		}
		result = v
	}
	return result, nil
}

func (s *evalSession) printStats(w io.Writer) {
	st := s.vm.CallStats()
	fmt.Fprintf(w, "calls: interpreted=%d compiled=%d skipped=%d tier-errors=%d (use count %d)\n",
		st.Interpreted, st.Compiled, st.Skipped, st.TierErrors, s.script.UseCount())
}
