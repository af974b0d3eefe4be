package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"fusionswap/config"
	"fusionswap/core/events"
	"fusionswap/core/state"
	"fusionswap/core/types"
	"fusionswap/native/fusion"
	"fusionswap/observability/logging"
	"fusionswap/storage"
)

var cliNow = func() int64 { return time.Now().Unix() }

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// env bundles the state and engine a command operates on.
type env struct {
	cfg    *config.Config
	db     storage.Database
	mgr    *state.Manager
	engine *fusion.Engine
	logger *slog.Logger
	closer io.Closer
}

func (e *env) Close() {
	if e.db != nil {
		e.db.Close()
	}
	if e.closer != nil {
		_ = e.closer.Close()
	}
}

func openEnv(configPath string, stdout io.Writer) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, closer := logging.SetupWithOptions(logging.Options{
		Service:   "fusionctl",
		Env:       cfg.LogEnv,
		Level:     cfg.LogLevel,
		File:      cfg.LogFile,
		MaxSizeMB: cfg.LogMaxSizeMB,
	})
	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("open state %s: %w", cfg.DataDir, err)
	}
	mgr := state.NewManager(db,
		state.WithHoldingReserve(cfg.HoldingReserve),
		state.WithWhitelistBootstrap(cfg.Bootstrap()),
	)
	engine := fusion.NewEngine(mgr)
	engine.SetNowFunc(cliNow)
	engine.SetLogger(logger)
	engine.SetEmitter(&jsonEmitter{w: stdout})
	return &env{cfg: cfg, db: db, mgr: mgr, engine: engine, logger: logger, closer: closer}, nil
}

// jsonEmitter writes every committed event to w as one JSON line.
type jsonEmitter struct {
	w io.Writer
}

type eventer interface {
	Event() *types.Event
}

func (j *jsonEmitter) Emit(evt events.Event) {
	payload, ok := evt.(eventer)
	if !ok {
		return
	}
	_ = json.NewEncoder(j.w).Encode(payload.Event())
}

type commandFunc func(e *env, args []string, stdout, stderr io.Writer) int

// commands lists the subcommands that need the state database.
var commands = map[string]commandFunc{
	"init-whitelist":      runInitWhitelist,
	"register-resolver":   runRegisterResolver,
	"deregister-resolver": runDeregisterResolver,
	"transfer-authority":  runTransferAuthority,
	"mint":                runMint,
	"balance":             runBalance,
	"create":              runCreate,
	"fill":                runFill,
	"cancel":              runCancel,
	"cancel-by-resolver":  runCancelByResolver,
	"status":              runStatus,
}

func run(args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("fusionctl", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprintln(stderr, usage()) }
	configPath := global.String("config", envOr("FUSION_CONFIG", "./fusion.toml"), "path to the TOML config file")
	if err := global.Parse(args); err != nil {
		return 1
	}
	rest := global.Args()
	if len(rest) == 0 {
		fmt.Fprintln(stderr, usage())
		return 1
	}

	name := rest[0]
	if name == "quote" {
		return runQuote(rest[1:], stdout, stderr)
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "Unknown command: %s\n", name)
		fmt.Fprintln(stderr, usage())
		return 1
	}
	e, err := openEnv(*configPath, stdout)
	if err != nil {
		return printError(stderr, err.Error())
	}
	defer e.Close()
	return cmd(e, rest[1:], stdout, stderr)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func usage() string {
	return strings.TrimSpace(`Usage:
  fusionctl [--config path] <command> [flags]

Commands:
  init-whitelist       Claim the resolver registry authority (bootstrap identity only)
  register-resolver    Add a resolver to the registry
  deregister-resolver  Remove a resolver from the registry
  transfer-authority   Hand the registry authority to another identity
  mint                 Credit an asset balance to an identity
  balance              Show an identity's balance of an asset
  create               Escrow an order
  fill                 Fill part or all of an escrowed order
  cancel               Cancel an escrowed order as its maker
  cancel-by-resolver   Reclaim an expired order for its incentive
  status               Show an order's escrow record and remaining balance
  quote                Price a fill offline
`)
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func printError(w io.Writer, msg string) int {
	fmt.Fprintf(w, "Error: %s\n", msg)
	return 1
}

func printJSON(w io.Writer, v interface{}) int {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(w, "Error: encode output: %v\n", err)
		return 1
	}
	return 0
}
