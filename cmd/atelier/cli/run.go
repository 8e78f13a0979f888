package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-commerce/atelier/internal/app"
	"github.com/atelier-commerce/atelier/internal/catalog/categories"
)

// Run dispatches an operational subcommand and returns its exit code.
func Run(args []string) int {
	if len(args) == 0 {
		usage(os.Stderr)
		return 1
	}
	switch args[0] {
	case "paths":
		return runPaths(args[1:])
	case "warm":
		return runWarm(args[1:])
	case "help", "-h", "--help":
		usage(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		usage(os.Stderr)
		return 1
	}
}

func runPaths(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "paths: expected a subcommand: verify or repair")
		return 1
	}
	sub := args[0]
	fs := flag.NewFlagSet("paths "+sub, flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit machine readable output")
	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "paths: load config: %v\n", err)
		return 1
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "paths: connect postgres: %v\n", err)
		return 1
	}
	defer pool.Close()

	cli := NewPathsCLI(&pgPathsRepo{pool: pool})
	opts := PathsOptions{JSONOutput: *jsonOut}
	switch sub {
	case "verify":
		return cli.VerifyCommand(ctx, opts)
	case "repair":
		return cli.RepairCommand(ctx, opts)
	default:
		fmt.Fprintf(os.Stderr, "paths: unknown subcommand %q\n", sub)
		return 1
	}
}

func usage(out *os.File) {
	fmt.Fprintln(out, "usage: atelier [command]")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "commands:")
	fmt.Fprintln(out, "  paths verify [--json]   audit stored category paths against parent chains")
	fmt.Fprintln(out, "  paths repair [--json]   rewrite drifted category paths")
	fmt.Fprintln(out, "  warm [--trees] [--popular]   enqueue cache warmup jobs")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "running with no command starts the HTTP server")
}

// pgPathsRepo backs the paths commands with direct pool queries; the
// commands run outside the request path and need no caching.
type pgPathsRepo struct {
	pool *pgxpool.Pool
}

func (r *pgPathsRepo) ListAll(ctx context.Context) ([]categories.Category, error) {
	return categories.NewRepository(r.pool).ListAll(ctx)
}

func (r *pgPathsRepo) UpdateNodePath(ctx context.Context, id int64, level int, path string) error {
	_, err := r.pool.Exec(ctx, `UPDATE categories SET level = $2, path = $3, updated_at = now() WHERE id = $1`, id, level, path)
	return err
}
