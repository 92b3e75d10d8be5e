// Command migrate applies the embedded SQLite schema's pending migrations.
// Exit codes follow spec section 6.1's CLI surface: 0 success, 1 general
// failure, 2 usage error. Grounded on the teacher's thin cmd/* entrypoints
// (config load, one focused action, structured exit), restructured around
// a schema-migration action instead of a transport listener.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/agentmemory/memoryd/internal/config"
	"github.com/agentmemory/memoryd/internal/store/sqlite"
)

const (
	exitSuccess = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	configDir := fs.String("config-dir", "config", "directory containing base.yaml / <environment>.yaml")
	env := fs.String("env", "development", "deployment environment: development, staging, production")
	check := fs.Bool("check", false, "validate configuration only; do not open the database or apply migrations")

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "migrate: unexpected argument %q\n", fs.Arg(0))
		return exitUsage
	}

	loader := config.NewLoader(*configDir, config.Environment(*env))
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate: failed to load configuration: %v\n", err)
		return exitFailure
	}

	if *check {
		fmt.Println("migrate: configuration valid")
		return exitSuccess
	}

	db, err := sqlite.Open(context.Background(), cfg.Storage.SQLitePath, zap.NewNop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate: failed to apply migrations: %v\n", err)
		return exitFailure
	}
	defer db.Close()

	fmt.Printf("migrate: schema up to date at %s\n", cfg.Storage.SQLitePath)
	return exitSuccess
}
