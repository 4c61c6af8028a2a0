package mcp

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Advisor chat turns call out to the LLM, so the default is generous.
const defaultRequestTimeout = 30 * time.Second

type ServerConfig struct {
	RequestTimeout time.Duration
}

func NewServer(tracer trace.Tracer, market SnapshotReader, advisor AdvisorCaller, portfolios PortfolioReader, cfg ServerConfig) *sdkmcp.Server {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	srv := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "portfolio-advisor-mcp",
		Version: "1.0.0",
	}, &sdkmcp.ServerOptions{
		Instructions: "Use these tools/resources to inspect market data and converse with the portfolio advisor.",
		Logger:       slog.Default(),
	})

	srv.AddReceivingMiddleware(withTimeout(timeout))
	if tracer != nil {
		srv.AddReceivingMiddleware(withTracing(tracer))
	}

	registerTools(srv, market, advisor, portfolios)
	registerResources(srv, market, portfolios)
	return srv
}

func NewHTTPTransportHandler(server *sdkmcp.Server, cfg HTTPHandlerConfig) http.Handler {
	base := sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server {
		return server
	}, &sdkmcp.StreamableHTTPOptions{})
	return wrapHTTPHandler(base, cfg)
}

func withTimeout(timeout time.Duration) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			bounded, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return next(bounded, method, req)
		}
	}
}

func withTracing(tracer trace.Tracer) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			name, attrs := describeRequest(method, req)
			ctx, span := tracer.Start(ctx, name)
			span.SetAttributes(attrs...)
			defer span.End()

			result, err := next(ctx, method, req)
			if err != nil {
				span.RecordError(err)
			}
			return result, err
		}
	}
}

// describeRequest maps an MCP method to a span name and its attributes.
// Tool calls get one span name per tool so traces group by operation.
func describeRequest(method string, req sdkmcp.Request) (string, []attribute.KeyValue) {
	attrs := []attribute.KeyValue{attribute.String("mcp.method", method)}

	switch r := req.(type) {
	case *sdkmcp.CallToolRequest:
		tool := strings.TrimSpace(r.Params.Name)
		attrs = append(attrs, attribute.String("mcp.tool", tool))
		if tool == "" {
			return "mcp.tool.call", attrs
		}
		return "mcp.tool." + strings.ReplaceAll(tool, "/", "."), attrs
	case *sdkmcp.ReadResourceRequest:
		attrs = append(attrs, attribute.String("mcp.resource.uri", strings.TrimSpace(r.Params.URI)))
		return "mcp.resource.read", attrs
	default:
		return "mcp." + strings.ReplaceAll(method, "/", "."), attrs
	}
}
