package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const appName = "seqcrop"

// Config holds the static, load-time settings. Nothing here changes while a
// session is open.
type Config struct {
	Canvas   Canvas   `yaml:"canvas" toml:"canvas" envPrefix:"CANVAS_"`
	Zoom     Zoom     `yaml:"zoom" toml:"zoom" envPrefix:"ZOOM_"`
	ROI      ROIStyle `yaml:"roi" toml:"roi" envPrefix:"ROI_"`
	Export   Export   `yaml:"export" toml:"export" envPrefix:"EXPORT_"`
	Server   Server   `yaml:"server" toml:"server" envPrefix:"SERVER_"`
	Paths    Paths    `yaml:"paths" toml:"paths" envPrefix:"PATHS_"`
	PDFDPI   int      `yaml:"pdf_dpi" toml:"pdf_dpi" env:"PDF_DPI"`
	LogLevel string   `yaml:"log_level" toml:"log_level" env:"LOG_LEVEL"`
}

type Canvas struct {
	Width  int `yaml:"width" toml:"width" env:"WIDTH"`
	Height int `yaml:"height" toml:"height" env:"HEIGHT"`
	// MaxImageSize caps the longest side of a rendered preview.
	MaxImageSize int `yaml:"max_image_size" toml:"max_image_size" env:"MAX_IMAGE_SIZE"`
}

type Zoom struct {
	Min  float64 `yaml:"min" toml:"min" env:"MIN"`
	Max  float64 `yaml:"max" toml:"max" env:"MAX"`
	Step float64 `yaml:"step" toml:"step" env:"STEP"`
}

// ROIStyle describes how the ROI overlay is drawn and how close a press has
// to be to grab a handle.
type ROIStyle struct {
	Color       string    `yaml:"color" toml:"color" env:"COLOR"`
	HandleColor string    `yaml:"handle_color" toml:"handle_color" env:"HANDLE_COLOR"`
	LineWidth   float64   `yaml:"line_width" toml:"line_width" env:"LINE_WIDTH"`
	Dash        []float64 `yaml:"dash" toml:"dash" env:"DASH" envSeparator:","`
	HandleSize  float64   `yaml:"handle_size" toml:"handle_size" env:"HANDLE_SIZE"`
	MinSize     int       `yaml:"min_size" toml:"min_size" env:"MIN_SIZE"`
}

type Export struct {
	FPS         float64 `yaml:"fps" toml:"fps" env:"FPS"`
	LoopCount   int     `yaml:"loop_count" toml:"loop_count" env:"LOOP_COUNT"`
	Quality     string  `yaml:"quality" toml:"quality" env:"QUALITY"`
	ImageFormat string  `yaml:"image_format" toml:"image_format" env:"IMAGE_FORMAT"`
	JPEGQuality int     `yaml:"jpeg_quality" toml:"jpeg_quality" env:"JPEG_QUALITY"`
	FFmpegPath  string  `yaml:"ffmpeg_path" toml:"ffmpeg_path" env:"FFMPEG_PATH"`
	// Lookahead is the number of cropped frames allowed in flight between the
	// decoder and the writer. 0 means size it from available memory.
	Lookahead int `yaml:"lookahead" toml:"lookahead" env:"LOOKAHEAD"`
}

type Server struct {
	Addr string `yaml:"addr" toml:"addr" env:"ADDR"`
	Cors bool   `yaml:"cors" toml:"cors" env:"CORS"`
}

type Paths struct {
	Import     string   `yaml:"import" toml:"import" env:"IMPORT"`
	Export     string   `yaml:"export" toml:"export" env:"EXPORT"`
	Extensions []string `yaml:"extensions" toml:"extensions" env:"EXTENSIONS" envSeparator:","`
}

// Default returns the settings the tool ships with.
func Default() *Config {
	return &Config{
		Canvas: Canvas{Width: 800, Height: 600, MaxImageSize: 4000},
		Zoom:   Zoom{Min: 0.1, Max: 20.0, Step: 1.2},
		ROI: ROIStyle{
			Color:       "#4a6ea9",
			HandleColor: "#ff0000",
			LineWidth:   2,
			Dash:        []float64{4, 2},
			HandleSize:  6,
			MinSize:     1,
		},
		Export: Export{
			FPS:         5,
			LoopCount:   0,
			Quality:     "high",
			ImageFormat: "png",
			JPEGQuality: 95,
			FFmpegPath:  "ffmpeg",
		},
		Server: Server{Addr: "127.0.0.1:8420"},
		Paths: Paths{
			Import:     "import",
			Export:     "export",
			Extensions: []string{".jpg", ".jpeg", ".png", ".tif", ".tiff", ".bmp", ".gif"},
		},
		PDFDPI:   150,
		LogLevel: "info",
	}
}

// Load reads the first config file found, then applies SEQCROP_* environment
// overrides. An explicit path must exist; the search paths are optional.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	} else {
		for _, p := range searchPaths() {
			if _, err := os.Stat(p); err != nil {
				continue
			}
			if err := loadFile(cfg, p); err != nil {
				return nil, err
			}
			break
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "SEQCROP_"}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("config %s: unsupported format", path)
	}
	if err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

// searchPaths lists candidate files, working directory last so it wins over
// nothing but is only consulted when the user config is absent.
func searchPaths() []string {
	var paths []string
	for _, name := range []string{"config.yaml", "config.toml"} {
		paths = append(paths, filepath.Join(xdg.ConfigHome, appName, name))
	}
	return append(paths, "seqcrop.yaml", "seqcrop.toml")
}

func (c *Config) Validate() error {
	if c.Zoom.Min <= 0 || c.Zoom.Max < c.Zoom.Min {
		return fmt.Errorf("invalid zoom bounds [%g, %g]", c.Zoom.Min, c.Zoom.Max)
	}
	if c.Zoom.Step <= 1 {
		return fmt.Errorf("zoom step must be greater than 1, got %g", c.Zoom.Step)
	}
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return fmt.Errorf("invalid canvas %dx%d", c.Canvas.Width, c.Canvas.Height)
	}
	if c.ROI.MinSize < 1 {
		c.ROI.MinSize = 1
	}
	if len(c.Paths.Extensions) == 0 {
		return fmt.Errorf("no supported extensions configured")
	}
	for i, ext := range c.Paths.Extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Paths.Extensions[i] = ext
	}
	return nil
}

// DefaultFolders returns the conventional import and export folders under base.
func (c *Config) DefaultFolders(base string) (string, string) {
	return filepath.Join(base, c.Paths.Import), filepath.Join(base, c.Paths.Export)
}
