package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/ivlev/seqcrop/internal/config"
	"github.com/ivlev/seqcrop/internal/export"
	"github.com/ivlev/seqcrop/internal/logger"
	"github.com/ivlev/seqcrop/internal/server"
	"github.com/ivlev/seqcrop/internal/session"
	"github.com/ivlev/seqcrop/internal/system"
	"github.com/ivlev/seqcrop/internal/video"
)

func main() {
	configPtr := flag.String("config", "", "Config file (.yaml or .toml); default: XDG config dir, then ./seqcrop.yaml")
	inputPtr := flag.String("input", "", "Image folder or PDF (default: newest entry in import/)")
	outputPtr := flag.String("output", "", "Export folder (default: export/ next to the input)")
	roiPtr := flag.String("roi", "", "ROI as x0,y0,x1,y1 in pixels of the first frame")
	presetPtr := flag.String("preset", "", "Load the ROI from a YAML preset")
	savePresetPtr := flag.String("save-preset", "", "Save the ROI used for this run to a YAML preset")
	suggestPtr := flag.Bool("suggest", false, "Print a suggested ROI for the first frame and exit")
	kindPtr := flag.String("kind", "images", "Export kind: images, gif, video")
	namePtr := flag.String("name", "", "Base filename (default: input folder name)")
	formatPtr := flag.String("format", "", "Image format for -kind images: png, jpeg")
	fpsPtr := flag.Float64("fps", 0, "Frame rate for gif/video, 1-30 (default from config)")
	loopPtr := flag.Int("loop", -1, "GIF repeat count, 0 = forever (default from config)")
	qualityPtr := flag.String("quality", "", "Video quality: low, medium, high, best")
	servePtr := flag.String("serve", "", "Start the editor API on this address instead of exporting (e.g. 127.0.0.1:8420)")
	logLevelPtr := flag.String("log-level", "", "Log level: debug, info, warn, error")

	flag.Parse()

	cfg, err := config.Load(*configPtr)
	if err != nil {
		log.Fatalf("[-] Config error: %v", err)
	}
	if *logLevelPtr != "" {
		cfg.LogLevel = *logLevelPtr
	}
	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("[-] Logger error: %v", err)
	}
	defer zlog.Sync()

	importDir, _, err := session.EnsureFolders(cfg, ".")
	if err != nil {
		log.Fatalf("[-] Cannot create working folders: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := session.New(cfg, zlog)
	defer sess.Close()

	if *servePtr != "" {
		cfg.Server.Addr = *servePtr
		if *inputPtr != "" {
			if err := sess.Open(*inputPtr); err != nil {
				log.Fatalf("[-] Cannot open %s: %v", *inputPtr, err)
			}
		}
		if *outputPtr != "" {
			sess.SetOutputFolder(*outputPtr)
		}
		fmt.Printf("[*] Editor API on http://%s\n", cfg.Server.Addr)
		if err := server.New(cfg, sess, zlog).Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[-] Server error: %v", err)
		}
		return
	}

	inputPath := *inputPtr
	if inputPath == "" {
		latest, err := system.FindLatestInput(importDir)
		if err != nil {
			log.Fatalf("[-] Error: %v. Put an image folder or a PDF into %s/", err, importDir)
		}
		inputPath = latest
		fmt.Printf("[*] Selected input: %s\n", inputPath)
	}

	if err := sess.Open(inputPath); err != nil {
		log.Fatalf("[-] Cannot open %s: %v", inputPath, err)
	}
	for _, sk := range sess.Skipped() {
		fmt.Printf("[!] Skipped %s: %v\n", sk.Path, sk.Err)
	}
	if *outputPtr != "" {
		sess.SetOutputFolder(*outputPtr)
	}

	if *suggestPtr {
		r, err := sess.SuggestROI()
		if err != nil {
			log.Fatalf("[-] No suggestion: %v", err)
		}
		fmt.Printf("[*] Suggested ROI: %s\n", formatROI(r))
		return
	}

	switch {
	case *roiPtr != "":
		r, err := parseROI(*roiPtr)
		if err != nil {
			log.Fatalf("[-] %v", err)
		}
		if err := sess.SetROI(r); err != nil {
			log.Fatalf("[-] Invalid ROI: %v", err)
		}
	case *presetPtr != "":
		if err := sess.LoadPreset(*presetPtr); err != nil {
			log.Fatalf("[-] Cannot load preset: %v", err)
		}
	default:
		log.Fatalf("[-] No ROI: pass -roi x0,y0,x1,y1 or -preset FILE (or -suggest to get one)")
	}
	r, _ := sess.ROI()
	fmt.Printf("[*] ROI: %s (%dx%d)\n", formatROI(r), r.Dx(), r.Dy())

	if *savePresetPtr != "" {
		if err := sess.SavePreset(*savePresetPtr, *namePtr); err != nil {
			log.Fatalf("[-] Cannot save preset: %v", err)
		}
		fmt.Printf("[*] Preset saved: %s\n", *savePresetPtr)
	}

	kind, err := export.ParseKind(*kindPtr)
	if err != nil {
		log.Fatalf("[-] %v", err)
	}
	base := *namePtr
	if base == "" {
		base = defaultBaseName(inputPath)
	}
	settings, err := sess.ExportSettings(kind, base)
	if err != nil {
		log.Fatalf("[-] %v", err)
	}
	if *formatPtr != "" {
		settings.ImageFormat = *formatPtr
	}
	if *fpsPtr > 0 {
		settings.FPS = *fpsPtr
	}
	if *loopPtr >= 0 {
		settings.LoopCount = *loopPtr
	}
	if *qualityPtr != "" {
		tier, err := video.ParseTier(*qualityPtr)
		if err != nil {
			log.Fatalf("[-] %v", err)
		}
		settings.Tier = tier
	}

	res, err := sess.Export(ctx, "", settings, func(done, total int) {
		fmt.Printf("\r[*] Frame %d/%d", done, total)
	})
	fmt.Println()
	if err != nil {
		log.Fatalf("[-] Export failed: %v", err)
	}

	fmt.Printf("[+++] Done! %s\n", res)
	for _, p := range res.Paths {
		if len(res.Paths) > 3 {
			fmt.Printf("      %s ... (%d files)\n", p, len(res.Paths))
			break
		}
		fmt.Printf("      %s\n", p)
	}
}

func parseROI(s string) (image.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("ROI %q: want x0,y0,x1,y1", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("ROI %q: %w", s, err)
		}
		v[i] = n
	}
	return image.Rect(v[0], v[1], v[2], v[3]), nil
}

func formatROI(r image.Rectangle) string {
	return fmt.Sprintf("%d,%d,%d,%d", r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)
}

func defaultBaseName(input string) string {
	name := filepath.Base(filepath.Clean(input))
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	name = strings.ReplaceAll(name, " ", "_")
	if name == "" || name == "." || name == string(os.PathSeparator) {
		return "crop"
	}
	return name + "_crop"
}
