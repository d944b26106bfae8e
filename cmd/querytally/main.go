package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/guillermoBallester/querytally/internal/adapter/mcp"
	"github.com/guillermoBallester/querytally/internal/adapter/pgquery"
	"github.com/guillermoBallester/querytally/internal/adapter/postgres"
	"github.com/guillermoBallester/querytally/internal/audit"
	"github.com/guillermoBallester/querytally/internal/config"
	"github.com/guillermoBallester/querytally/internal/core/domain"
	"github.com/guillermoBallester/querytally/internal/core/port"
	"github.com/guillermoBallester/querytally/internal/core/service"
	"github.com/guillermoBallester/querytally/internal/telemetry"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	overrides, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Logs go to stderr; stdout is reserved for the MCP stdio transport.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	logger.Info("starting querytally",
		slog.String("version", version),
		slog.String("log_level", cfg.LogLevel.String()),
		slog.String("database_url", redactDSN(cfg.DatabaseURL)),
		slog.Bool("read_only", cfg.ReadOnly),
		slog.Int("max_rows", cfg.MaxRows),
		slog.String("query_timeout", cfg.QueryTimeout.String()),
		slog.String("transport", cfg.Transport),
		slog.Bool("audit_enabled", cfg.AuditEnabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Observability (optional).
	var (
		tracer trace.Tracer         = telemetry.NoopTracer()
		inst   port.Instrumentation = port.NoopInstrumentation{}
	)
	if cfg.OTelEnabled {
		provider, err := telemetry.Init(ctx, "querytally", version)
		if err != nil {
			return fmt.Errorf("initializing telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				logger.Error("telemetry shutdown failed", slog.String("error", err.Error()))
			}
		}()
		tracer = provider.Tracer("github.com/guillermoBallester/querytally")
		inst = telemetry.NewInstruments()
		logger.Info("telemetry enabled")
	}

	// Audit hook.
	hookOpts := []domain.HookOption{domain.WithEnabled(cfg.AuditEnabled)}
	if len(cfg.Commands) > 0 {
		hookOpts = append(hookOpts, domain.WithCommands(cfg.Commands...))
	}
	hook := domain.NewHook(logger, hookOpts...)
	defer hook.Close()

	// The catalog has its own untraced connection so refreshes are never audited.
	catalogPool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    1,
	})
	if err != nil {
		return fmt.Errorf("connecting catalog pool: %w", err)
	}
	defer catalogPool.Close()

	catalog := postgres.NewCatalog(catalogPool, cfg.Schemas, logger)
	if err := catalog.Refresh(ctx); err != nil {
		return fmt.Errorf("loading relation catalog: %w", err)
	}
	logger.Info("relation catalog loaded", slog.Int("relations", catalog.Len()))

	lexer := pgquery.NewLexer(catalog)

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DatabaseURL:     cfg.DatabaseURL,
		MaxConns:        cfg.PoolMaxConns,
		MinConns:        cfg.PoolMinConns,
		MaxConnLifetime: cfg.PoolMaxConnLifetime,
		Tracer:          postgres.NewAuditTracer(hook, lexer, inst),
	})
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	logger.Info("database pool connected",
		slog.String("db.system", "postgresql"),
		slog.Int("pool.max_conns", int(cfg.PoolMaxConns)),
		slog.Int("pool.min_conns", int(cfg.PoolMinConns)),
	)

	// Audit log (optional).
	var auditor port.QueryAuditor = port.NoopAuditor{}
	if cfg.AuditLog != "" {
		fa, err := audit.NewFileAuditor(cfg.AuditLog)
		if err != nil {
			return fmt.Errorf("opening audit log: %w", err)
		}
		defer func() { _ = fa.Close() }()
		auditor = fa
		logger.Info("audit log enabled", slog.String("path", cfg.AuditLog))
	}

	// Services
	executor := postgres.NewExecutor(pool, cfg.ReadOnly, cfg.MaxRows, cfg.QueryTimeout)
	validator := domain.NewPgQueryValidator(cfg.ReadOnly)
	querySvc := service.NewQueryService(validator, executor, lexer, auditor, pool.Config().ConnConfig.User, logger, tracer, inst)
	statusSvc := service.NewStatusService(hook, logger)

	mcpServer := mcp.NewServer(version, querySvc, statusSvc, logger, tracer, inst)

	g, gctx := errgroup.WithContext(ctx)
	if cfg.CatalogRefresh > 0 {
		g.Go(func() error {
			return catalog.Run(gctx, cfg.CatalogRefresh)
		})
	}
	g.Go(func() error {
		// Returning ends the process; stop the refresh loop with it.
		defer stop()
		if cfg.Transport == "http" {
			return serveHTTP(gctx, cfg, mcpServer, statusSvc, logger)
		}
		return serveStdio(gctx, mcpServer, logger)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	final := hook.Counters().Snapshot()
	logger.Info("shutdown complete",
		slog.Uint64("total_queries", final.TotalQueries),
		slog.Uint64("total_special_queries", final.TotalSpecialQueries),
		slog.Uint64("total_time_us", final.TotalTimeUS),
	)
	return nil
}

func serveStdio(ctx context.Context, s *mcpserver.MCPServer, logger *slog.Logger) error {
	stdioServer := mcpserver.NewStdioServer(s)

	logger.Info("serving MCP over stdio")
	if err := stdioServer.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server: %w", err)
	}
	return nil
}

func serveHTTP(ctx context.Context, cfg *config.Config, s *mcpserver.MCPServer, status *service.StatusService, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newRouter(s, status, cfg.HTTPBearerToken, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving MCP over HTTP", slog.String("addr", cfg.HTTPAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func newRouter(s *mcpserver.MCPServer, status *service.StatusService, token string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(func(next http.Handler) http.Handler { return recoveryMiddleware(next, logger) })

	r.Get("/health", healthHandler)

	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler { return bearerAuthMiddleware(next, token) })
		r.Get("/status", statusHandler(status))
		r.Handle("/mcp", mcpserver.NewStreamableHTTPServer(s))
	})

	return r
}

func parseFlags(args []string) (config.Overrides, error) {
	var o config.Overrides
	fs := flag.NewFlagSet("querytally", flag.ContinueOnError)

	var (
		databaseURL, logLevel, transport, httpAddr, token string
		commands, commandsFile                            string
		maxRows                                           int
		queryTimeout, maxConnLifetime, catalogRefresh     time.Duration
		maxConns, minConns                                int
		readOnly, auditEnabled                            bool
	)

	fs.StringVar(&o.EnvFile, "env-file", "", "dotenv file to load before reading environment variables")
	fs.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string (env DATABASE_URL)")
	fs.StringVar(&logLevel, "log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
	fs.BoolVar(&readOnly, "read-only", true, "accept only read-only statements (env READ_ONLY)")
	fs.IntVar(&maxRows, "max-rows", 0, "maximum rows returned per query (env MAX_ROWS)")
	fs.DurationVar(&queryTimeout, "query-timeout", 0, "per-statement timeout (env QUERY_TIMEOUT)")
	fs.StringVar(&transport, "transport", "", "stdio or http (env TRANSPORT)")
	fs.StringVar(&httpAddr, "http-addr", "", "HTTP listen address (env HTTP_ADDR)")
	fs.StringVar(&token, "http-bearer-token", "", "bearer token for HTTP transport (env HTTP_BEARER_TOKEN)")
	fs.IntVar(&maxConns, "pool-max-conns", 0, "connection pool maximum (env POOL_MAX_CONNS)")
	fs.IntVar(&minConns, "pool-min-conns", 0, "connection pool minimum (env POOL_MIN_CONNS)")
	fs.DurationVar(&maxConnLifetime, "pool-max-conn-lifetime", 0, "connection lifetime (env POOL_MAX_CONN_LIFETIME)")
	fs.BoolVar(&auditEnabled, "audit-enabled", true, "initial audit state (env AUDIT_ENABLED)")
	fs.StringVar(&commands, "commands", "", "comma-separated audited commands (env ALLOWED_COMMANDS)")
	fs.StringVar(&commandsFile, "commands-file", "", "YAML file listing audited commands (env COMMANDS_FILE)")
	fs.DurationVar(&catalogRefresh, "catalog-refresh", 0, "relation catalog refresh interval, 0 disables (env CATALOG_REFRESH)")
	fs.StringVar(&o.AuditLog, "audit-log", "", "path to NDJSON audit log (env AUDIT_LOG)")
	fs.BoolVar(&o.OTelEnabled, "otel", false, "enable OpenTelemetry tracing and metrics (env OTEL_ENABLED)")

	if err := fs.Parse(args); err != nil {
		return config.Overrides{}, err
	}

	// Only flags given on the command line override the environment.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "database-url":
			o.DatabaseURL = &databaseURL
		case "log-level":
			o.LogLevel = &logLevel
		case "read-only":
			o.ReadOnly = &readOnly
		case "max-rows":
			o.MaxRows = &maxRows
		case "query-timeout":
			o.QueryTimeout = &queryTimeout
		case "transport":
			o.Transport = &transport
		case "http-addr":
			o.HTTPAddr = &httpAddr
		case "http-bearer-token":
			o.HTTPBearerToken = &token
		case "pool-max-conns":
			n := int32(maxConns)
			o.PoolMaxConns = &n
		case "pool-min-conns":
			n := int32(minConns)
			o.PoolMinConns = &n
		case "pool-max-conn-lifetime":
			o.PoolMaxConnLifetime = &maxConnLifetime
		case "audit-enabled":
			o.AuditEnabled = &auditEnabled
		case "commands":
			o.Commands = &commands
		case "commands-file":
			o.CommandsFile = &commandsFile
		case "catalog-refresh":
			o.CatalogRefresh = &catalogRefresh
		}
	})

	return o, nil
}

// redactDSN masks the password in a connection URL for logging.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func statusHandler(status *service.StatusService) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, status.Status())
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func recoveryMiddleware(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("http handler panic",
					slog.Any("panic", rec),
					slog.String("http.method", r.Method),
					slog.String("url.path", r.URL.Path),
				)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func bearerAuthMiddleware(next http.Handler, token string) http.Handler {
	expected := []byte(token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), expected) != 1 {
			w.Header().Set("WWW-Authenticate", `Bearer realm="querytally"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
