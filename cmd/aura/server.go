package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/auraarchive/aura/internal/api"
	"github.com/auraarchive/aura/internal/app"
	"github.com/auraarchive/aura/internal/backup"
	"github.com/auraarchive/aura/internal/config"
	"github.com/auraarchive/aura/internal/enrich"
	"github.com/auraarchive/aura/internal/merge"
	"github.com/auraarchive/aura/internal/storage"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the aura server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running aura server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show aura system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "aura.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func logLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "aura version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	})))

	apiToken, err := config.EnsureAPIToken(cfg)
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}

	// Refuse to double-start: probe the health endpoint before claiming the
	// PID file.
	pidPath := pidFilePath(cfg.Server.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("aura is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("aura is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Server.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Optional gateways: missing credentials disable the feature, they never
	// prevent startup.
	var cloud app.CloudGateway
	if cfg.Drive.CredentialsFile != "" {
		drive, err := backup.NewDriveFromCredentials(ctx, cfg.Drive.CredentialsFile)
		if err != nil {
			printWarning("cloud backup disabled: %v", err)
		} else {
			cloud = drive
			slog.Info("cloud backup enabled", "credentials", cfg.Drive.CredentialsFile)
		}
	}

	var enricher app.Enricher
	if cfg.Enrich.APIKey != "" {
		enricher = enrich.New(cfg.Enrich.APIKey, cfg.Enrich.BaseURL, cfg.Enrich.Model)
		slog.Info("enrichment enabled", "model", cfg.Enrich.Model)
	}

	strategy, err := merge.ParseStrategy(cfg.Merge.Strategy)
	if err != nil {
		printWarning("invalid merge.strategy %q, using %q", cfg.Merge.Strategy, merge.LocalWins)
		strategy = merge.LocalWins
	}

	application, err := app.New(store, cloud, enricher, strategy)
	if err != nil {
		return err
	}
	slog.Info("catalog loaded", "items", application.Count())

	handler := api.NewHandler(api.Deps{App: application, Token: apiToken, Version: version})
	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: handler}

	mcpSrv := api.NewMCPServer(application, version)
	stdioSrv := server.NewStdioServer(mcpSrv)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "aura listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		slog.Info("MCP server started (stdio transport)")
		if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Server.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("aura is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop aura (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to aura (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}

	resp, err := healthClient.Get(serverURL + "/health")
	running := false
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	if running {
		if client, err := newAPIClient(); err == nil {
			if statusResp, err := client.get(ctx, "/status"); err == nil {
				var st struct {
					Items           int    `json:"items"`
					CloudConfigured bool   `json:"cloud_configured"`
					Connected       bool   `json:"connected"`
					LastSynced      string `json:"last_synced"`
				}
				if json.NewDecoder(statusResp.Body).Decode(&st) == nil {
					printStatus("Items", "%d", st.Items)
					switch {
					case !st.CloudConfigured:
						printStatus("Cloud", "not configured")
					case st.Connected:
						printStatus("Cloud", "connected")
					default:
						printStatus("Cloud", "configured, unavailable")
					}
					if st.LastSynced != "" {
						printStatus("Last synced", "%s", st.LastSynced)
					}
				}
				statusResp.Body.Close()
			}
		}
	}

	printStatus("Merge strategy", "%s", cfg.Merge.Strategy)
	printStatus("Data dir", "%s", cfg.Server.DataDir)
	return nil
}
