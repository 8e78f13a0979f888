package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/atelier-commerce/atelier/internal/catalog/categories"
)

// PathsRepo provides the category access the paths commands need.
type PathsRepo interface {
	ListAll(ctx context.Context) ([]categories.Category, error)
	UpdateNodePath(ctx context.Context, id int64, level int, path string) error
}

// PathsCLI offers operational helpers to audit and repair the materialized
// category paths.
type PathsCLI struct {
	repo PathsRepo
}

// NewPathsCLI constructs a new helper instance.
func NewPathsCLI(repo PathsRepo) *PathsCLI {
	return &PathsCLI{repo: repo}
}

// PathsOptions defines available flags for the paths commands.
type PathsOptions struct {
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// PathDrift captures one category whose stored path or level disagrees with
// its parent chain.
type PathDrift struct {
	ID            int64  `json:"id"`
	Slug          string `json:"slug"`
	StoredPath    string `json:"stored_path"`
	ExpectedPath  string `json:"expected_path"`
	StoredLevel   int    `json:"stored_level"`
	ExpectedLevel int    `json:"expected_level"`
}

// PathsSummary describes the JSON response for paths verify/repair.
type PathsSummary struct {
	OK       bool        `json:"ok"`
	Checked  int         `json:"checked"`
	Drifted  []PathDrift `json:"drifted"`
	Repaired int         `json:"repaired"`
}

// VerifyCommand recomputes every category path from its parent chain and
// reports drift without changing anything. Exit code 10 signals drift.
func (c *PathsCLI) VerifyCommand(ctx context.Context, opts PathsOptions) int {
	opts = opts.withDefaults()
	summary, err := c.audit(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "paths verify: %v\n", err)
		return 1
	}
	if err := renderPathsSummary(opts, "verify", summary); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "paths verify: %v\n", err)
		return 1
	}
	if !summary.OK {
		return 10
	}
	return 0
}

// RepairCommand recomputes drifted paths and writes them back. Running it
// twice is safe; the second run finds nothing to do.
func (c *PathsCLI) RepairCommand(ctx context.Context, opts PathsOptions) int {
	opts = opts.withDefaults()
	summary, err := c.audit(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "paths repair: %v\n", err)
		return 1
	}
	for _, drift := range summary.Drifted {
		if err := c.repo.UpdateNodePath(ctx, drift.ID, drift.ExpectedLevel, drift.ExpectedPath); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "paths repair: update category %d: %v\n", drift.ID, err)
			return 1
		}
		summary.Repaired++
	}
	summary.OK = true
	if err := renderPathsSummary(opts, "repair", summary); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "paths repair: %v\n", err)
		return 1
	}
	return 0
}

func (c *PathsCLI) audit(ctx context.Context) (PathsSummary, error) {
	all, err := c.repo.ListAll(ctx)
	if err != nil {
		return PathsSummary{}, err
	}
	byID := make(map[int64]categories.Category, len(all))
	for _, cat := range all {
		byID[cat.ID] = cat
	}

	summary := PathsSummary{OK: true, Checked: len(all)}
	for _, cat := range all {
		expectedPath, expectedLevel, err := expectedPathFor(cat, byID)
		if err != nil {
			return PathsSummary{}, err
		}
		if cat.Path != expectedPath || cat.Level != expectedLevel {
			summary.OK = false
			summary.Drifted = append(summary.Drifted, PathDrift{
				ID:            cat.ID,
				Slug:          cat.Slug,
				StoredPath:    cat.Path,
				ExpectedPath:  expectedPath,
				StoredLevel:   cat.Level,
				ExpectedLevel: expectedLevel,
			})
		}
	}
	sort.Slice(summary.Drifted, func(i, j int) bool {
		return summary.Drifted[i].ID < summary.Drifted[j].ID
	})
	return summary, nil
}

// expectedPathFor walks the parent chain to the root. A chain longer than
// the category count means a parent cycle in stored data.
func expectedPathFor(cat categories.Category, byID map[int64]categories.Category) (string, int, error) {
	path := "/" + cat.Slug
	level := 0
	current := cat
	for steps := 0; current.ParentID != nil; steps++ {
		if steps > len(byID) {
			return "", 0, fmt.Errorf("parent cycle detected at category %d", cat.ID)
		}
		parent, ok := byID[*current.ParentID]
		if !ok {
			return "", 0, fmt.Errorf("category %d references missing parent %d", current.ID, *current.ParentID)
		}
		path = "/" + parent.Slug + path
		level++
		current = parent
	}
	return path, level, nil
}

func renderPathsSummary(opts PathsOptions, command string, summary PathsSummary) error {
	if opts.JSONOutput {
		return json.NewEncoder(opts.Stdout).Encode(summary)
	}
	_, _ = fmt.Fprintf(opts.Stdout, "paths %s: checked %d categories\n", command, summary.Checked)
	if len(summary.Drifted) == 0 {
		_, _ = fmt.Fprintln(opts.Stdout, "All category paths agree with their parent chains.")
		return nil
	}
	for _, drift := range summary.Drifted {
		_, _ = fmt.Fprintf(opts.Stdout, " - %s (%d): %s -> %s\n", drift.Slug, drift.ID, drift.StoredPath, drift.ExpectedPath)
	}
	if summary.Repaired > 0 {
		_, _ = fmt.Fprintf(opts.Stdout, "Repaired %d categories.\n", summary.Repaired)
	}
	return nil
}

func (o PathsOptions) withDefaults() PathsOptions {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	return o
}
