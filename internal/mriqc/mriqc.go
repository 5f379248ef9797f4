// Package mriqc regenerates MRIQC group reports for a constructed cohort by
// running the matching MRIQC docker image against each copied derivative.
package mriqc

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/neurodatascience/cohort-creator/internal/bids"
	"github.com/neurodatascience/cohort-creator/internal/model"
)

// runFunc executes one docker invocation with its output redirected to the
// docker log. Tests substitute a fake.
type runFunc func(ctx context.Context, output io.Writer, name string, args ...string) error

// Runner drives the dockerized MRIQC group-report generation.
type Runner struct {
	dockerBin string
	run       runFunc
}

// New creates a Runner. If dockerBin is empty, "docker" is used.
func New(dockerBin string) *Runner {
	if dockerBin == "" {
		dockerBin = "docker"
	}
	return &Runner{dockerBin: dockerBin, run: runCommand}
}

func runCommand(ctx context.Context, output io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = output
	cmd.Stderr = output
	return cmd.Run()
}

// imageOwner returns the docker namespace publishing a given MRIQC version.
// Releases before 1.0 predate the project's move to the nipreps organization.
func imageOwner(version string) string {
	if strings.SplitN(version, ".", 2)[0] == "0" {
		return "poldracklab"
	}
	return "nipreps"
}

// GroupReports regenerates the MRIQC group reports of every mriqc-* derivative
// folder in the cohort. Pull or run failures are logged and skip to the next
// derivative; docker output is captured in logs/docker.log.
func (r *Runner) GroupReports(ctx context.Context, outputDir string, datasets []string, datasetTypes []model.DatasetType) error {
	requested := false
	for _, dt := range datasetTypes {
		if dt == model.MRIQC {
			requested = true
		}
	}
	if !requested {
		return nil
	}

	logPath := filepath.Join(outputDir, "logs", "docker.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return eris.Wrapf(err, "mriqc: create log dir for %s", logPath)
	}
	dockerLog, err := os.Create(logPath)
	if err != nil {
		return eris.Wrapf(err, "mriqc: create %s", logPath)
	}
	defer dockerLog.Close()
	fmt.Fprint(dockerLog, "docker logs\n\n")

	zap.L().Info("recreating MRIQC group reports")

	for _, dataset := range datasets {
		log := zap.L().With(zap.String("dataset", dataset))

		targetPath := bids.TargetPath(outputDir, model.Raw, dataset, "")
		derivatives, err := filepath.Glob(filepath.Join(targetPath, "derivatives", "mriqc-*"))
		if err != nil || len(derivatives) == 0 {
			continue
		}

		for _, derivative := range derivatives {
			version := bids.PipelineVersion(derivative)
			if version == "" {
				log.Debug("could not determine mriqc version", zap.String("path", derivative))
				continue
			}

			image := fmt.Sprintf("%s/mriqc:%s", imageOwner(version), version)
			log.Info("regenerating group report", zap.String("image", image))

			if err := r.run(ctx, dockerLog, r.dockerBin, "pull", image); err != nil {
				log.Error("failed to pull docker image", zap.String("image", image), zap.Error(err))
				continue
			}

			args := []string{
				"run", "-t", "--rm",
				"-v", fmt.Sprintf("%s:/bids_dir", targetPath),
				"-v", fmt.Sprintf("%s:/output_dir", derivative),
				image, "/bids_dir", "/output_dir", "group",
			}
			if err := r.run(ctx, dockerLog, r.dockerBin, args...); err != nil {
				log.Error("failed to run docker image", zap.String("image", image), zap.Error(err))
			}
		}
	}
	return nil
}
