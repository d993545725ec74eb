package system

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
)

// LookaheadFor sizes the crop queue from available memory: the queue may use
// up to a quarter of what is free, clamped to [1, 8] frames.
func LookaheadFor(frameBytes int) int {
	const maxFrames = 8
	if frameBytes <= 0 {
		return maxFrames
	}
	vm, err := mem.VirtualMemory()
	if err != nil || vm.Available == 0 {
		return 2
	}
	n := int(vm.Available / 4 / uint64(frameBytes))
	return max(1, min(n, maxFrames))
}

// FindFFmpeg resolves the ffmpeg binary, either a bare name on PATH or an
// explicit path.
func FindFFmpeg(path string) (string, error) {
	if path == "" {
		path = "ffmpeg"
	}
	p, err := exec.LookPath(path)
	if err != nil {
		return "", fmt.Errorf("ffmpeg not found (%s): %w", path, err)
	}
	return p, nil
}

// BestH264Encoder picks a hardware H.264 encoder when ffmpeg was built with
// one, falling back to libx264.
func BestH264Encoder(ctx context.Context, ffmpeg string) string {
	out, err := exec.CommandContext(ctx, ffmpeg, "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}
	return pickEncoder(string(out))
}

func pickEncoder(list string) string {
	// VideoToolbox (macOS), then NVENC
	for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
		if strings.Contains(list, name) {
			return name
		}
	}
	return "libx264"
}

// FindLatestInput returns the most recently modified sub-folder or PDF file
// in dir, used when no input is named on the command line.
func FindLatestInput(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latest string
	var latestTime time.Time
	for _, e := range entries {
		if !e.IsDir() && !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestTime) {
			latest = filepath.Join(dir, e.Name())
			latestTime = info.ModTime()
		}
	}

	if latest == "" {
		return "", fmt.Errorf("no image folder or PDF found in %s", dir)
	}
	return latest, nil
}
