package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wilhg/toolbridge/internal/config"
	"github.com/wilhg/toolbridge/pkg/capability"
	"github.com/wilhg/toolbridge/pkg/journal"
	"github.com/wilhg/toolbridge/pkg/mcpclient"
	"github.com/wilhg/toolbridge/pkg/mcpserver"
	"github.com/wilhg/toolbridge/pkg/otel"
	"github.com/wilhg/toolbridge/pkg/rpc"
	"github.com/wilhg/toolbridge/pkg/tool"
	"github.com/wilhg/toolbridge/pkg/tools"
	"github.com/wilhg/toolbridge/pkg/transport/httpapi"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

var (
	configPath   string
	stdioFlag    bool
	endpointFlag string
	argsFlag     string
)

var rootCmd = &cobra.Command{
	Use:           "toolbridge",
	Short:         "toolbridge - JSON-RPC tool server for a host application",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve tools over HTTP (JSON-RPC and MCP) or MCP stdio",
	RunE:  runServe,
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Print the registered tools as a tools/list result",
	RunE:  runTools,
}

var callCmd = &cobra.Command{
	Use:   "call <tool>",
	Short: "Call a tool on a running server over MCP",
	Args:  cobra.ExactArgs(1),
	RunE:  runCall,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and exit",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "toolbridge %s (commit=%s, date=%s)\n", version, commit, date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./toolbridge.yaml)")
	serveCmd.Flags().BoolVar(&stdioFlag, "stdio", false, "serve MCP over stdin/stdout instead of HTTP")
	callCmd.Flags().StringVar(&endpointFlag, "endpoint", "http://localhost:8765/mcp", "MCP streamable HTTP endpoint")
	callCmd.Flags().StringVarP(&argsFlag, "args", "a", "{}", "tool arguments as a JSON object")
	rootCmd.AddCommand(serveCmd, toolsCmd, callCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "toolbridge: %v\n", err)
		os.Exit(1)
	}
}

// app holds the wired components of a running server.
type app struct {
	cfg        *config.Config
	log        zerolog.Logger
	registry   *tool.Registry
	journal    journal.Journal
	dispatcher *rpc.Dispatcher
	mcp        *mcpserver.Server
	http       *httpapi.Server
}

// newApp builds the registry, journal and transports from cfg. The caller
// owns the returned app and must Close it.
func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	ctx = log.WithContext(ctx)

	var host capability.Context
	if cfg.Host.BridgeURL != "" {
		host = capability.NewBridge(cfg.Host.BridgeURL, nil, log)
	} else {
		host = capability.NewMemory()
	}

	reg := tool.NewRegistry(tool.WithLogger(log))
	if err := tools.RegisterBuiltInTools(ctx, reg, host, cfg.Policy()); err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}

	j, err := journal.Open(ctx, cfg.Journal.DSN, cfg.Journal.Capacity)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	d := rpc.New(reg,
		rpc.WithLogger(log),
		rpc.WithCallTimeout(cfg.CallTimeout),
		rpc.WithJournal(j),
		rpc.WithServerInfo(rpc.ServerInfo{Name: cfg.Server.Name, Version: cfg.Server.Version}),
	)
	m := mcpserver.New(reg, cfg.Server.Name, cfg.Server.Version,
		mcpserver.WithLogger(log),
		mcpserver.WithCallTimeout(cfg.CallTimeout),
		mcpserver.WithJournal(j),
	)
	h := httpapi.New(d,
		httpapi.WithLogger(log),
		httpapi.WithJournal(j),
		httpapi.WithMaxBodyBytes(cfg.MaxBodyBytes),
		httpapi.WithMCPHandler(m.Handler()),
	)
	return &app{cfg: cfg, log: log, registry: reg, journal: j, dispatcher: d, mcp: m, http: h}, nil
}

func (a *app) Close() error { return a.journal.Close() }

// serve blocks until ctx is cancelled or the transport fails.
func (a *app) serve(ctx context.Context, stdio bool) error {
	g, ctx := errgroup.WithContext(ctx)
	if stdio {
		g.Go(func() error {
			a.log.Info().Msg("serving MCP on stdio")
			return a.mcp.ServeStdio(ctx)
		})
	} else {
		g.Go(func() error { return a.http.ListenAndServe(ctx, a.cfg.Addr) })
	}
	return g.Wait()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// stdout carries the MCP stream in stdio mode, so logs always go to stderr.
	log := cfg.Logger(os.Stderr)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := otel.Init(ctx, otel.Config{
		ServiceName:    cfg.Server.Name,
		ServiceVersion: cfg.Server.Version,
		UseStdout:      cfg.OTel.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init otel: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.serve(ctx, stdioFlag); err != nil && ctx.Err() == nil {
		return err
	}
	log.Info().Msg("shutdown complete")
	return nil
}

func runTools(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, zerolog.Nop())
	if err != nil {
		return err
	}
	defer a.Close()
	return printTools(cmd.OutOrStdout(), a.registry)
}

func printTools(w io.Writer, reg *tool.Registry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"tools": reg.List()})
}

func runCall(cmd *cobra.Command, args []string) error {
	var toolArgs map[string]any
	if err := json.Unmarshal([]byte(argsFlag), &toolArgs); err != nil {
		return fmt.Errorf("--args must be a JSON object: %w", err)
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*rpc.DefaultCallTimeout)
	defer cancel()

	c, err := mcpclient.Dial(ctx, endpointFlag, mcpclient.WithImplementation("toolbridge-cli", version))
	if err != nil {
		return fmt.Errorf("connect %s: %w", endpointFlag, err)
	}
	defer c.Close()

	out, err := c.CallTool(ctx, args[0], toolArgs)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}
