// Brewcore is an administrative console for the brewing recipe and
// progression engine. It loads brewing definitions, persists player
// progress and drives the engine with simulated players.
// Usage: brewcore [flags] [definitions.yml]
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nathoo/brewcore/cli"
	"github.com/nathoo/brewcore/console"
	"github.com/nathoo/brewcore/engine"
	"github.com/nathoo/brewcore/engine/attributes"
	"github.com/nathoo/brewcore/engine/chain"
	"github.com/nathoo/brewcore/engine/effects"
	"github.com/nathoo/brewcore/engine/rules"
	"github.com/nathoo/brewcore/engine/store"
	"github.com/nathoo/brewcore/loader"
	"github.com/nathoo/brewcore/logging"
	"github.com/nathoo/brewcore/persist/sqlitedb"
	"github.com/nathoo/brewcore/persist/yamlfs"
	"github.com/nathoo/brewcore/tui"
	"github.com/nathoo/brewcore/types"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := loadConfigFromOS()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	if cfg.Version {
		fmt.Printf("brewcore %s (commit %s, built %s)\n", version, commit, date)
		return 0
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating data directory: %v\n", err)
		return 1
	}
	logOut, closeLog, err := openLog(cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log: %v\n", err)
		return 1
	}
	defer closeLog()
	log := logging.New(logOut, logging.ParseLevel(cfg.LogLevel))

	records, pending, closeStore, err := openBackend(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s storage: %v\n", cfg.Backend, err)
		return 1
	}
	defer closeStore()

	static := attributes.NewStatic()
	var source rules.AttributeSource = static
	if cfg.AttributeScript != "" {
		lua, err := attributes.LoadLua(cfg.AttributeScript)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading attribute script: %v\n", err)
			return 1
		}
		defer lua.Close()
		source = attributes.Chain{static, lua}
	}

	out := &console.Buffer{}
	eng := engine.New(engine.Config{
		Records:    records,
		Effects:    pending,
		Runner:     out,
		Attributes: source,
		Catalogs:   rules.Catalogs{types.CatalogMythic: true, types.CatalogCrucible: true},
		Logger:     log,
	})
	defer eng.Close()

	reload := func() ([]string, error) {
		return loadDefinitions(eng, cfg, log)
	}
	warnings, err := reload()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading definitions: %v\n", err)
		return 1
	}

	maint, err := eng.StartMaintenance()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer maint.Stop()

	shell := console.New(eng, out, static)
	shell.Reload = reload
	shell.Trace = cfg.Trace

	// Script mode: open file, force plain, echo commands.
	if cfg.Script != "" {
		f, err := os.Open(cfg.Script)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening script: %v\n", err)
			return 1
		}
		defer f.Close()
		printWarnings(os.Stdout, warnings)
		c := cli.New(shell)
		c.In = f
		c.EchoInput = true
		c.Run()
		return 0
	}

	// Use plain CLI if --plain flag or stdout is not a terminal.
	if cfg.Plain || !isTerminal() {
		printWarnings(os.Stdout, warnings)
		cli.New(shell).Run()
		return 0
	}

	if err := tui.Run(shell); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// loadDefinitions reads the definitions file and swaps it into the engine.
// Rejected entries and reference problems come back as warnings.
func loadDefinitions(eng *engine.Engine, cfg Config, log logging.Logger) ([]string, error) {
	defs, ve, err := loader.Load(cfg.ConfigFile, log)
	if err != nil {
		return nil, err
	}
	if cfg.ChainPolicy != "" {
		defs.Chains.OutOfOrder = chain.ParsePolicy(cfg.ChainPolicy)
	}
	var warnings []string
	for _, e := range ve.Errors {
		warnings = append(warnings, "skipped: "+e)
	}
	warnings = append(warnings, ve.Warnings...)
	more, err := eng.Reload(defs)
	if err != nil {
		return warnings, err
	}
	return append(warnings, more...), nil
}

func openBackend(cfg Config, log logging.Logger) (store.Backend, effects.Backend, func(), error) {
	switch cfg.Backend {
	case "sqlite":
		db, err := sqlitedb.Open(filepath.Join(cfg.DataDir, "brewcore.db"), log)
		if err != nil {
			return nil, nil, nil, err
		}
		return db, db, func() {
			if err := db.Close(); err != nil {
				log.Errorf("closing database: %v", err)
			}
		}, nil
	default:
		b, err := yamlfs.Open(cfg.DataDir, log)
		if err != nil {
			return nil, nil, nil, err
		}
		return b, b, func() {}, nil
	}
}

// openLog returns the log destination. "-" is stderr.
func openLog(path string) (io.Writer, func(), error) {
	if path == "-" {
		return os.Stderr, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func printWarnings(w io.Writer, warnings []string) {
	for _, msg := range warnings {
		fmt.Fprintf(w, "[warning: %s]\n", msg)
	}
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
