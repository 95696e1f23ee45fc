// Package trace provides structured tracing for the ember evaluation core.
//
// Events describe CLI runs, invocation-bridge decisions and individual
// operations, so a trace shows which path every call took and where a
// failure surfaced.
//
// # Usage
//
//	ember eval --trace=- --trace-level=call add 1 2
//
// # Tracers
//
//   - Nop: disabled tracing
//   - StreamTracer: immediate write to a file or stderr (text or NDJSON)
//   - RingTracer: keeps the last N events for post-mortem dumps
//   - LogTracer: forwards events to commonlog
//   - MultiTracer: fans out to several tracers
//
// # Levels and scopes
//
// LevelError keeps only error events. LevelCall adds run and call scopes,
// LevelOp adds per-operation events, LevelDebug adds everything else
// (argument materialization, rooting).
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeRun, "eval", 0)
//	defer span.End("")
package trace
