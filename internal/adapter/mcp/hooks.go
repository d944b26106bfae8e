package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/guillermoBallester/querytally/internal/core/port"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// callState holds per-request timing and span data.
type callState struct {
	start time.Time
	span  trace.Span
}

// callTracker maps in-flight request ids to their state.
type callTracker struct {
	calls sync.Map // id -> *callState
}

func (c *callTracker) begin(id any, state *callState) {
	c.calls.Store(id, state)
}

// finish removes the call and returns its duration and span (nil if untraced).
func (c *callTracker) finish(id any) (time.Duration, trace.Span) {
	v, ok := c.calls.LoadAndDelete(id)
	if !ok {
		return 0, nil
	}
	state := v.(*callState)
	return time.Since(state.start), state.span
}

// ToolCallHooks creates MCP hooks that log tool calls and optionally record OTel spans/metrics.
func ToolCallHooks(logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.Hooks {
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	hooks := &server.Hooks{}
	tracker := &callTracker{}

	hooks.AddBeforeCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest) {
		state := &callState{start: time.Now()}
		if tracer != nil {
			_, span := tracer.Start(ctx, "mcp.tool.call",
				trace.WithAttributes(attribute.String("mcp.tool", req.Params.Name)),
			)
			state.span = span
		}
		tracker.begin(id, state)
	})

	hooks.AddAfterCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest, result any) {
		duration, span := tracker.finish(id)

		level := slog.LevelInfo
		isErr := false
		if r, ok := result.(*mcp.CallToolResult); ok && r.IsError {
			level = slog.LevelError
			isErr = true
		}

		logger.LogAttrs(ctx, level, "tool call",
			slog.String("rpc.method", "tools/call"),
			slog.String("mcp.tool", req.Params.Name),
			slog.Duration("duration", duration),
			slog.Bool("error", isErr),
		)
		inst.RecordToolDuration(ctx, float64(duration.Microseconds())/1000)

		if span != nil {
			if isErr {
				span.SetStatus(codes.Error, "tool returned error")
				span.RecordError(fmt.Errorf("tool %s returned error", req.Params.Name))
			}
			span.End()
		}
	})

	hooks.AddOnError(func(ctx context.Context, id any, _ mcp.MCPMethod, message any, err error) {
		duration, span := tracker.finish(id)

		if req, ok := message.(*mcp.CallToolRequest); ok && req.Params.Name != "" {
			logger.LogAttrs(ctx, slog.LevelError, "tool call",
				slog.String("rpc.method", "tools/call"),
				slog.String("mcp.tool", req.Params.Name),
				slog.Duration("duration", duration),
				slog.Bool("error", true),
				slog.String("error.message", err.Error()),
			)
		}

		if span != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
		}
	})

	return hooks
}
