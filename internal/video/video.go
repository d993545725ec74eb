package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os/exec"
	"strconv"
	"strings"
)

// Tier is a coarse quality setting mapped onto each encoder's own knob.
type Tier int

const (
	Low Tier = iota
	Medium
	High
	Best
)

var tierNames = [...]string{"low", "medium", "high", "best"}

func (t Tier) String() string {
	if t < Low || t > Best {
		return "tier(" + strconv.Itoa(int(t)) + ")"
	}
	return tierNames[t]
}

// ParseTier accepts the lower-case tier names.
func ParseTier(s string) (Tier, error) {
	for i, name := range tierNames {
		if strings.EqualFold(s, name) {
			return Tier(i), nil
		}
	}
	return 0, fmt.Errorf("unknown quality tier %q", s)
}

// CRF is the constant rate factor used by libx264 (and -cq for NVENC).
func (t Tier) CRF() int {
	return [...]int{32, 28, 23, 18}[t]
}

// Bitrate is used for VideoToolbox, which has no CRF mode.
func (t Tier) Bitrate() string {
	return [...]string{"1200k", "2500k", "5000k", "8000k"}[t]
}

// Options configures one ffmpeg encode.
type Options struct {
	FFmpeg  string
	Encoder string // libx264, h264_nvenc or h264_videotoolbox
	FPS     float64
	Tier    Tier
	Size    image.Point
}

// Writer feeds raw RGBA frames to an ffmpeg process through its stdin.
type Writer struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	size   image.Point
	buf    *image.RGBA
	frames int
}

// Start launches ffmpeg writing to path.
func Start(ctx context.Context, path string, opts Options) (*Writer, error) {
	if opts.Size.X <= 0 || opts.Size.Y <= 0 {
		return nil, fmt.Errorf("invalid frame size %v", opts.Size)
	}
	if opts.FPS <= 0 {
		return nil, fmt.Errorf("invalid frame rate %g", opts.FPS)
	}
	ffmpeg := opts.FFmpeg
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}

	w := &Writer{size: opts.Size}
	w.cmd = exec.CommandContext(ctx, ffmpeg, buildArgs(path, opts)...)
	w.cmd.Stderr = &w.stderr

	stdin, err := w.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}
	w.stdin = stdin

	if err := w.cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}
	return w, nil
}

func buildArgs(path string, opts Options) []string {
	fps := strconv.FormatFloat(opts.FPS, 'f', -1, 64)
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", opts.Size.X, opts.Size.Y),
		"-framerate", fps,
		"-i", "-",
		// yuv420p needs even dimensions
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-pix_fmt", "yuv420p",
	}

	encoder := opts.Encoder
	if encoder == "" {
		encoder = "libx264"
	}
	args = append(args, "-c:v", encoder)

	switch encoder {
	case "h264_videotoolbox":
		args = append(args, "-b:v", opts.Tier.Bitrate())
	case "h264_nvenc":
		args = append(args, "-cq", strconv.Itoa(opts.Tier.CRF()))
	default:
		args = append(args, "-crf", strconv.Itoa(opts.Tier.CRF()), "-preset", "medium")
	}

	return append(args, "-movflags", "+faststart", path)
}

// WriteFrame sends one frame. Frames smaller than the configured size are
// placed at the top-left over black; larger ones are cut.
func (w *Writer) WriteFrame(img image.Image) error {
	if err := writeRawRGBA(w.stdin, img, w.size, &w.buf); err != nil {
		return fmt.Errorf("write frame %d: %w", w.frames, err)
	}
	w.frames++
	return nil
}

// Close finishes the stream and waits for ffmpeg to exit.
func (w *Writer) Close() error {
	w.stdin.Close()
	if err := w.cmd.Wait(); err != nil {
		msg := strings.TrimSpace(w.stderr.String())
		if msg != "" {
			return fmt.Errorf("ffmpeg: %w: %s", err, msg)
		}
		return fmt.Errorf("ffmpeg: %w", err)
	}
	return nil
}

func writeRawRGBA(out io.Writer, img image.Image, size image.Point, scratch **image.RGBA) error {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect == (image.Rectangle{Max: size}) && rgba.Stride == size.X*4 {
		_, err := out.Write(rgba.Pix)
		return err
	}

	if *scratch == nil {
		*scratch = image.NewRGBA(image.Rectangle{Max: size})
	}
	buf := *scratch
	draw.Draw(buf, buf.Rect, image.Black, image.Point{}, draw.Src)
	draw.Draw(buf, buf.Rect, img, img.Bounds().Min, draw.Src)
	_, err := out.Write(buf.Pix)
	return err
}
