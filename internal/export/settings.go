package export

import (
	"fmt"
	"strings"

	"github.com/ivlev/seqcrop/internal/config"
	"github.com/ivlev/seqcrop/internal/video"
)

type Kind int

const (
	Images Kind = iota
	GIF
	Video
)

func (k Kind) String() string {
	switch k {
	case Images:
		return "images"
	case GIF:
		return "gif"
	case Video:
		return "video"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "images", "image", "png", "jpeg", "jpg":
		return Images, nil
	case "gif":
		return GIF, nil
	case "video", "mp4":
		return Video, nil
	}
	return 0, fmt.Errorf("unknown export kind %q", s)
}

const (
	MinFPS = 1
	MaxFPS = 30
)

// Settings describes one export run.
type Settings struct {
	Kind     Kind
	Folder   string
	BaseName string

	ImageFormat string // png or jpeg
	JPEGQuality int

	FPS       float64
	LoopCount int // NETSCAPE repeat count; 0 loops forever
	Tier      video.Tier

	// Lookahead bounds the crops in flight; 0 sizes it from free memory.
	Lookahead int
	FFmpeg    string
	Encoder   string // empty picks the best available H.264 encoder
}

// FromConfig fills the settings that come from the config file.
func FromConfig(cfg config.Export, kind Kind, folder, base string) (Settings, error) {
	tier, err := video.ParseTier(cfg.Quality)
	if err != nil {
		return Settings{}, invalid("%v", err)
	}
	return Settings{
		Kind:        kind,
		Folder:      folder,
		BaseName:    base,
		ImageFormat: cfg.ImageFormat,
		JPEGQuality: cfg.JPEGQuality,
		FPS:         cfg.FPS,
		LoopCount:   cfg.LoopCount,
		Tier:        tier,
		Lookahead:   cfg.Lookahead,
		FFmpeg:      cfg.FFmpegPath,
	}, nil
}

func (s *Settings) Validate() error {
	if strings.TrimSpace(s.Folder) == "" {
		return invalid("destination folder is empty")
	}
	if strings.TrimSpace(s.BaseName) == "" {
		return invalid("base filename is empty")
	}
	if strings.ContainsAny(s.BaseName, `/\`) {
		return invalid("base filename %q contains a path separator", s.BaseName)
	}
	if s.Lookahead < 0 {
		return invalid("negative lookahead %d", s.Lookahead)
	}

	switch s.Kind {
	case Images:
		switch strings.ToLower(s.ImageFormat) {
		case "", "png":
			s.ImageFormat = "png"
		case "jpeg", "jpg":
			s.ImageFormat = "jpeg"
			if s.JPEGQuality == 0 {
				s.JPEGQuality = 95
			}
			if s.JPEGQuality < 1 || s.JPEGQuality > 100 {
				return invalid("jpeg quality %d out of range", s.JPEGQuality)
			}
		default:
			return invalid("unsupported image format %q", s.ImageFormat)
		}
	case GIF, Video:
		if s.FPS < MinFPS || s.FPS > MaxFPS {
			return invalid("frame rate %g outside [%d, %d]", s.FPS, MinFPS, MaxFPS)
		}
		if s.LoopCount < 0 {
			return invalid("negative loop count %d", s.LoopCount)
		}
		if s.Tier < video.Low || s.Tier > video.Best {
			return invalid("unknown quality tier %v", s.Tier)
		}
	default:
		return invalid("unknown kind %v", s.Kind)
	}
	return nil
}

func (s *Settings) imageExt() string {
	if s.ImageFormat == "jpeg" {
		return "jpg"
	}
	return "png"
}
