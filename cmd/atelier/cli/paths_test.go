package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atelier-commerce/atelier/internal/catalog/categories"
)

type stubPathsRepo struct {
	cats    map[int64]*categories.Category
	updates int
}

func (s *stubPathsRepo) ListAll(ctx context.Context) ([]categories.Category, error) {
	out := make([]categories.Category, 0, len(s.cats))
	for _, c := range s.cats {
		out = append(out, *c)
	}
	return out, nil
}

func (s *stubPathsRepo) UpdateNodePath(ctx context.Context, id int64, level int, path string) error {
	s.updates++
	c := s.cats[id]
	c.Level = level
	c.Path = path
	return nil
}

func ptr(v int64) *int64 { return &v }

func driftedRepo() *stubPathsRepo {
	// "lamps" was moved under lighting but kept its old stored path.
	return &stubPathsRepo{cats: map[int64]*categories.Category{
		1: {ID: 1, Slug: "home", Level: 0, Path: "/home"},
		2: {ID: 2, Slug: "lighting", ParentID: ptr(1), Level: 1, Path: "/home/lighting"},
		3: {ID: 3, Slug: "lamps", ParentID: ptr(2), Level: 1, Path: "/home/lamps"},
	}}
}

func TestVerifyCommandReportsDrift(t *testing.T) {
	cli := NewPathsCLI(driftedRepo())

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	exitCode := cli.VerifyCommand(context.Background(), PathsOptions{
		JSONOutput: true,
		Stdout:     stdout,
		Stderr:     stderr,
	})
	require.Equal(t, 10, exitCode)
	require.Empty(t, stderr.String())

	var summary PathsSummary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))
	require.False(t, summary.OK)
	require.Equal(t, 3, summary.Checked)
	require.Len(t, summary.Drifted, 1)
	require.Equal(t, int64(3), summary.Drifted[0].ID)
	require.Equal(t, "/home/lighting/lamps", summary.Drifted[0].ExpectedPath)
	require.Equal(t, 2, summary.Drifted[0].ExpectedLevel)
}

func TestVerifyCommandCleanTree(t *testing.T) {
	repo := &stubPathsRepo{cats: map[int64]*categories.Category{
		1: {ID: 1, Slug: "home", Level: 0, Path: "/home"},
		2: {ID: 2, Slug: "lighting", ParentID: ptr(1), Level: 1, Path: "/home/lighting"},
	}}
	cli := NewPathsCLI(repo)

	exitCode := cli.VerifyCommand(context.Background(), PathsOptions{
		Stdout: new(bytes.Buffer),
		Stderr: new(bytes.Buffer),
	})
	require.Zero(t, exitCode)
}

func TestRepairCommandIsIdempotent(t *testing.T) {
	repo := driftedRepo()
	cli := NewPathsCLI(repo)

	stdout := new(bytes.Buffer)
	exitCode := cli.RepairCommand(context.Background(), PathsOptions{
		JSONOutput: true,
		Stdout:     stdout,
		Stderr:     new(bytes.Buffer),
	})
	require.Zero(t, exitCode)
	require.Equal(t, 1, repo.updates)
	require.Equal(t, "/home/lighting/lamps", repo.cats[3].Path)
	require.Equal(t, 2, repo.cats[3].Level)

	var summary PathsSummary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))
	require.True(t, summary.OK)
	require.Equal(t, 1, summary.Repaired)

	// Second run finds nothing to rewrite.
	exitCode = cli.RepairCommand(context.Background(), PathsOptions{
		Stdout: new(bytes.Buffer),
		Stderr: new(bytes.Buffer),
	})
	require.Zero(t, exitCode)
	require.Equal(t, 1, repo.updates)
}

func TestVerifyCommandDetectsParentCycle(t *testing.T) {
	repo := &stubPathsRepo{cats: map[int64]*categories.Category{
		1: {ID: 1, Slug: "a", ParentID: ptr(2), Level: 0, Path: "/a"},
		2: {ID: 2, Slug: "b", ParentID: ptr(1), Level: 1, Path: "/a/b"},
	}}
	cli := NewPathsCLI(repo)

	stderr := new(bytes.Buffer)
	exitCode := cli.VerifyCommand(context.Background(), PathsOptions{
		Stdout: new(bytes.Buffer),
		Stderr: stderr,
	})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "cycle")
}
