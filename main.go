// Command connectn starts the Connect-N room server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing the lobby REST API, the per-slot WebSocket endpoints, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Settings come from an optional YAML file, then environment variables
// (a .env file is loaded first), then command line flags.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/connectn/api"
	"github.com/wricardo/connectn/game/config"
	"github.com/wricardo/connectn/game/service"
	"github.com/wricardo/connectn/game/session"
	"github.com/wricardo/connectn/transport/mcp"
	"github.com/wricardo/connectn/transport/nats"
	"github.com/wricardo/connectn/transport/websocket"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Connect-N Room Server"
)

// main loads .env, then runs the command line application.
func main() {
	// Load .env file if it exists (ignore error if not found)
	envErr := godotenv.Load()

	if err := newApp(envErr).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newApp builds the root command. Flags are inherited by the subcommands.
func newApp(envErr error) *cli.Command {
	return &cli.Command{
		Name:    "connectn",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML settings file",
				Sources: cli.EnvVars("CONNECTN_CONFIG"),
			},
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host"},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port"},
			&cli.StringFlag{Name: "presets-dir", Value: "presets", Usage: "Directory containing room presets"},
			&cli.StringFlag{Name: "nats-url", Usage: "NATS server for lobby events (disabled when empty)"},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel"},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token (or use NGROK_AUTHTOKEN env var)"},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runWith(ctx, cmd, envErr, runHTTPServer)
		},
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runWith(ctx, cmd, envErr, runHTTPServer)
				},
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runWith(ctx, cmd, envErr, runStdioMCPWithInternalServer)
				},
			},
		},
	}
}

type runner func(ctx context.Context, settings *config.Settings, logger *zap.Logger) error

// runWith resolves settings and the logger, then runs mode.
func runWith(ctx context.Context, cmd *cli.Command, envErr error, mode runner) error {
	settings, err := loadSettings(cmd, os.LookupEnv)
	if err != nil {
		return err
	}

	logger, err := newLogger(settings.Log.Level)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	if envErr == nil {
		logger.Info("loaded environment variables from .env file")
	} else if !errors.Is(envErr, os.ErrNotExist) {
		logger.Warn("error loading .env file", zap.Error(envErr))
	}

	logger.Info("starting", zap.String("app", AppName), zap.String("version", Version), zap.String("mode", cmd.Name))
	return mode(ctx, settings, logger)
}

// loadSettings layers the settings file, the environment and any flags
// that were set explicitly.
func loadSettings(cmd *cli.Command, lookup func(string) (string, bool)) (*config.Settings, error) {
	settings, err := config.LoadSettings(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if err := settings.ApplyEnv(lookup); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	if cmd.IsSet("host") {
		settings.Server.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		settings.Server.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("presets-dir") {
		settings.Presets.Dir = cmd.String("presets-dir")
	}
	if cmd.IsSet("nats-url") {
		settings.NATS.URL = cmd.String("nats-url")
	}
	if cmd.Bool("debug") {
		settings.Log.Level = "debug"
	}
	if cmd.Bool("ngrok") {
		settings.Ngrok.Enabled = true
	}
	if cmd.IsSet("ngrok-auth") {
		settings.Ngrok.AuthToken = cmd.String("ngrok-auth")
	}
	if cmd.IsSet("ngrok-domain") {
		settings.Ngrok.Domain = cmd.String("ngrok-domain")
	}
	return settings, settings.Validate()
}

// newLogger builds a production logger, or a development logger at debug
// level.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if lvl == zapcore.DebugLevel {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// stack is the wired server: pool, lobby, websocket hub and REST API.
type stack struct {
	pool   *session.Pool
	hub    *websocket.Hub
	api    *api.Server
	events *nats.Publisher
}

// initializeServices wires the pool, presets, lobby, hub and API.
func initializeServices(settings *config.Settings, logger *zap.Logger) (*stack, error) {
	presets, err := config.NewManager(settings.Presets.Dir, settings.Rooms.MaxDimension)
	if err != nil {
		return nil, fmt.Errorf("failed to create preset manager: %w", err)
	}

	events := nats.Nop()
	if settings.NATS.URL != "" {
		events, err = nats.Connect(settings.NATS.URL, settings.NATS.SubjectPrefix, logger.Named("nats"))
		if err != nil {
			return nil, err
		}
		logger.Info("publishing lobby events", zap.String("url", settings.NATS.URL), zap.String("prefix", settings.NATS.SubjectPrefix))
	}

	pool := session.NewPool(session.PoolConfig{
		MaxRooms:        settings.Rooms.MaxRooms,
		Slots:           settings.Rooms.Slots,
		EmptyCheckDelay: settings.Rooms.EmptyCheckDelay,
		MaxDimension:    settings.Rooms.MaxDimension,
		Observer:        events,
	}, logger.Named("pool"))

	hub := websocket.NewHub(pool, events, logger.Named("ws"))
	lobby := service.NewLobbyService(pool, presets, logger.Named("lobby"))

	return &stack{
		pool:   pool,
		hub:    hub,
		api:    api.NewServer(lobby, hub, logger.Named("api")),
		events: events,
	}, nil
}

// close drops every connection and room, then drains the event publisher.
func (s *stack) close(logger *zap.Logger) {
	s.hub.Shutdown()
	s.pool.Close()
	if err := s.events.Close(); err != nil {
		logger.Warn("failed to drain nats connection", zap.Error(err))
	}
}

// mcpHandler serves MCP JSON-RPC messages over HTTP POST.
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// runHTTPServer starts the HTTP server with the REST API, the WebSocket
// endpoints, and an /mcp proxy endpoint. If ngrok is enabled it also
// provisions a public tunnel.
func runHTTPServer(ctx context.Context, settings *config.Settings, logger *zap.Logger) error {
	st, err := initializeServices(settings, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer st.close(logger)

	addr := settings.Addr()
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))

	// Create main router that combines API and MCP
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", st.api)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  settings.Server.ReadTimeout,
		WriteTimeout: settings.Server.WriteTimeout,
		IdleTimeout:  settings.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Info("HTTP server listening",
			zap.String("addr", addr),
			zap.String("api", fmt.Sprintf("http://%s/api", addr)),
			zap.String("websocket", fmt.Sprintf("ws://%s/ws/<socket_id>", addr)),
			zap.String("mcp", fmt.Sprintf("http://%s/mcp", addr)))

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	if settings.Ngrok.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, settings, mainRouter, logger.Named("ngrok"))
		}()
	}

	// Wait for shutdown signal or a failed listener
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-serveErr:
		logger.Error("HTTP server failed", zap.Error(err))
		stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warn("HTTP server shutdown error", zap.Error(shutdownErr))
	}

	wg.Wait()
	logger.Info("server stopped")
	return err
}

// runNgrok serves handler through an ngrok tunnel until ctx is done.
func runNgrok(ctx context.Context, settings *config.Settings, handler http.Handler, logger *zap.Logger) {
	if settings.Ngrok.AuthToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	logger.Info("starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if settings.Ngrok.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(settings.Ngrok.Domain))
		logger.Info("using custom ngrok domain", zap.String("domain", settings.Ngrok.Domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(settings.Ngrok.AuthToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", zap.Error(err))
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", zap.Error(err))
		}
	}()

	ngrokURL := tun.URL()
	logger.Info("ngrok tunnel established",
		zap.String("url", ngrokURL),
		zap.String("api", ngrokURL+"/api"),
		zap.String("mcp", ngrokURL+"/mcp"))

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		logger.Warn("ngrok server error", zap.Error(err))
	}
	logger.Info("ngrok tunnel closed")
}

// runStdioMCPWithInternalServer runs an MCP stdio server. It reuses an
// API already listening on the configured address; otherwise it starts an
// internal HTTP API on a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, settings *config.Settings, logger *zap.Logger) error {
	externalURL := fmt.Sprintf("http://%s", settings.Addr())
	baseURL := externalURL
	logger.Info("checking for external API server", zap.String("url", externalURL))

	if !apiAvailable(externalURL) {
		logger.Info("no external API server found, starting internal HTTP server")

		st, err := initializeServices(settings, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		defer st.close(logger)

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		httpServer := &http.Server{Handler: st.api}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				logger.Error("internal HTTP server error", zap.Error(err))
			}
		}()
		defer httpServer.Close()

		baseURL = fmt.Sprintf("http://%s", listener.Addr().String())
		logger.Info("internal HTTP server started", zap.String("url", baseURL))
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Info("MCP stdio server ready", zap.String("api", baseURL))

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// apiAvailable reports whether a room server answers its health check at
// baseURL.
func apiAvailable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
