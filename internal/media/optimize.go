package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"crownworks/internal/fileutil"
	"crownworks/internal/logging"
)

// optimize produces the optimized derivative for sourcePath and returns its
// filename under the optimized directory. When the external tool is missing
// or fails the original bytes are copied through unchanged so the job still
// completes with a servable asset.
func (p *Processor) optimize(ctx context.Context, sourcePath string, kind Kind) (string, error) {
	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))

	var (
		tool    string
		outName string
		args    func(outPath string) []string
	)
	switch kind {
	case KindImage:
		tool = p.cfg.Media.ImageTool
		outName = base + ".webp"
		args = func(outPath string) []string {
			return []string{"-q", strconv.Itoa(p.cfg.Media.ImageQuality), sourcePath, "-o", outPath}
		}
	case KindVideo:
		tool = p.cfg.Media.VideoTool
		outName = base + ".mp4"
		args = func(outPath string) []string {
			return []string{
				"-i", sourcePath,
				"-c:v", "libx264",
				"-crf", strconv.Itoa(p.cfg.Media.VideoCRF),
				"-preset", p.cfg.Media.VideoPreset,
				"-c:a", "aac",
				"-movflags", "+faststart",
				"-y", outPath,
			}
		}
	default:
		return "", fmt.Errorf("optimize: unknown media kind %q", kind)
	}

	outPath := filepath.Join(p.cfg.Paths.OptimizedDir, outName)

	toolPath, err := exec.LookPath(tool)
	if err != nil {
		p.logger.Warn("optimizer tool not found, copying original through",
			logging.String("tool", tool),
			logging.String("media_type", string(kind)))
		return p.copyThrough(sourcePath)
	}

	cmd := exec.CommandContext(ctx, toolPath, args(outPath)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		p.logger.Warn("optimizer tool failed, copying original through",
			logging.String("tool", tool),
			logging.String("stderr", tailLines(stderr.String(), 3)),
			logging.Error(err))
		os.Remove(outPath)
		return p.copyThrough(sourcePath)
	}

	if info, err := os.Stat(outPath); err != nil || info.Size() == 0 {
		p.logger.Warn("optimizer produced no output, copying original through",
			logging.String("tool", tool),
			logging.String("output", outName))
		os.Remove(outPath)
		return p.copyThrough(sourcePath)
	}
	return outName, nil
}

// copyThrough places an unmodified copy of the source under the optimized
// directory, keeping the original extension.
func (p *Processor) copyThrough(sourcePath string) (string, error) {
	name := filepath.Base(sourcePath)
	if err := fileutil.CopyFile(sourcePath, filepath.Join(p.cfg.Paths.OptimizedDir, name)); err != nil {
		return "", fmt.Errorf("copy original to optimized directory: %w", err)
	}
	return name, nil
}

func tailLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
