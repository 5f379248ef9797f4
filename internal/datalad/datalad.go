// Package datalad shells out to the datalad CLI to install dataset clones
// and fetch annexed file content.
package datalad

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// runFunc executes one datalad invocation. Tests substitute a fake.
type runFunc func(ctx context.Context, binPath string, args ...string) error

// Client wraps the datalad CLI.
type Client struct {
	binPath string
	jobs    int
	run     runFunc
}

// New creates a Client. If binPath is empty, "datalad" is used. jobs is
// passed through to datalad get as its parallel-download count.
func New(binPath string, jobs int) *Client {
	if binPath == "" {
		binPath = "datalad"
	}
	if jobs <= 0 {
		jobs = 1
	}
	return &Client{binPath: binPath, jobs: jobs, run: runCommand}
}

func runCommand(ctx context.Context, binPath string, args ...string) error {
	cmd := exec.CommandContext(ctx, binPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return eris.Wrapf(err, "datalad: %s failed: %s", args[0], stderr.String())
	}
	return nil
}

// Install clones the dataset at uri into target. Already-installed targets
// are left alone.
func (c *Client) Install(ctx context.Context, uri, target string) error {
	if IsInstalled(target) {
		zap.L().Debug("dataset already installed", zap.String("path", target))
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return eris.Wrapf(err, "datalad: create parent of %s", target)
	}
	zap.L().Info("installing dataset",
		zap.String("uri", uri),
		zap.String("path", target))
	return c.run(ctx, c.binPath, "install", "--source", uri, target)
}

// Get fetches the content of the given dataset-relative paths. The paths are
// handed to datalad as-is; it resolves annexed content itself.
func (c *Client) Get(ctx context.Context, datasetPath string, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	args := []string{"get", "--dataset", datasetPath, "--jobs", strconv.Itoa(c.jobs)}
	args = append(args, paths...)
	return c.run(ctx, c.binPath, args...)
}

// IsInstalled reports whether path holds a datalad dataset clone.
func IsInstalled(path string) bool {
	info, err := os.Stat(filepath.Join(path, ".datalad"))
	return err == nil && info.IsDir()
}
