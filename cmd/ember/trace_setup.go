package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ember/internal/config"
	"ember/internal/trace"
)

// traceSettings merges the trace flags over the config file.
func traceSettings(cmd *cobra.Command, cfg config.TraceConfig) (trace.Config, error) {
	flags := cmd.Root().PersistentFlags()
	output, err := flags.GetString("trace")
	if err != nil {
		return trace.Config{}, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := flags.GetString("trace-level")
	if err != nil {
		return trace.Config{}, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	modeStr, err := flags.GetString("trace-mode")
	if err != nil {
		return trace.Config{}, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	ringSize, err := flags.GetInt("trace-ring-size")
	if err != nil {
		return trace.Config{}, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	heartbeat, err := flags.GetDuration("trace-heartbeat")
	if err != nil {
		return trace.Config{}, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	if levelStr == "" {
		levelStr = cfg.Level
		// --trace alone turns tracing on.
		if output != "" && (levelStr == "" || levelStr == "off") {
			levelStr = "call"
		}
	}
	if output == "" {
		output = cfg.Output
	}
	if modeStr == "" {
		modeStr = cfg.Mode
	}
	if ringSize == 0 {
		ringSize = cfg.RingSize
	}
	if output == "stderr" {
		output = "-"
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return trace.Config{}, fmt.Errorf("invalid trace level: %w", err)
	}
	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return trace.Config{}, fmt.Errorf("invalid trace mode: %w", err)
	}
	return trace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: output,
		RingSize:   ringSize,
		Heartbeat:  heartbeat,
	}, nil
}

// setupTracing creates the tracer and attaches it to the command context.
// The probe feeds heartbeat events; it may be nil.
func setupTracing(cmd *cobra.Command, cfg config.TraceConfig, probe func() string) (trace.Tracer, func(), error) {
	tc, err := traceSettings(cmd, cfg)
	if err != nil {
		return nil, nil, err
	}
	if tc.Level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return trace.Nop, func() {}, nil
	}
	if tc.Mode == trace.ModeLog {
		configureLogging(int(tc.Level))
	}

	tracer, err := trace.New(tc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))

	var heartbeat *trace.Heartbeat
	if tc.Heartbeat > 0 {
		heartbeat = trace.StartHeartbeat(tracer, tc.Heartbeat, probe)
	}

	cleanup := func() {
		if heartbeat != nil {
			heartbeat.Stop()
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return tracer, cleanup, nil
}
