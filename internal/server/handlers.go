package server

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ivlev/seqcrop/internal/export"
	"github.com/ivlev/seqcrop/internal/preview"
	"github.com/ivlev/seqcrop/internal/video"
	"github.com/ivlev/seqcrop/internal/viewport"
)

var errBadRequest = errors.New("bad request")

func badRequest(err error) error {
	return fmt.Errorf("%w: %v", errBadRequest, err)
}

// State is the JSON snapshot of the session returned by most endpoints.
type State struct {
	Loaded      bool       `json:"loaded"`
	Input       string     `json:"input,omitempty"`
	Output      string     `json:"output,omitempty"`
	Frames      int        `json:"frames"`
	Index       int        `json:"index"`
	Name        string     `json:"name,omitempty"`
	Width       int        `json:"width"`
	Height      int        `json:"height"`
	Canvas      [2]int     `json:"canvas"`
	Zoom        float64    `json:"zoom"`
	DefaultZoom float64    `json:"default_zoom"`
	Pan         [2]float64 `json:"pan"`
	ROI         *Rect      `json:"roi,omitempty"`
	ROIState    string     `json:"roi_state"`
	Armed       bool       `json:"armed"`
	Skipped     []string   `json:"skipped,omitempty"`
}

type Rect struct {
	X0 int `json:"x0"`
	Y0 int `json:"y0"`
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
}

func (r Rect) rectangle() image.Rectangle { return image.Rect(r.X0, r.Y0, r.X1, r.Y1) }

func toRect(r image.Rectangle) *Rect {
	return &Rect{X0: r.Min.X, Y0: r.Min.Y, X1: r.Max.X, Y1: r.Max.Y}
}

// state must be called with s.mu held.
func (s *Server) state() State {
	sess := s.sess
	v := sess.View()
	st := State{
		Loaded:      sess.Loaded(),
		Input:       sess.Input(),
		Output:      sess.OutputFolder(),
		Canvas:      [2]int{sess.Canvas().X, sess.Canvas().Y},
		Zoom:        v.Zoom(),
		DefaultZoom: v.DefaultZoom(),
		Pan:         [2]float64{v.Pan().X, v.Pan().Y},
		ROIState:    sess.Editor().State().String(),
		Armed:       sess.Editor().Armed(),
	}
	if !st.Loaded {
		return st
	}

	cur := sess.Cursor()
	st.Frames = cur.Len()
	st.Index = cur.Index()
	st.Name = cur.Source().Name(cur.Index())
	if size, err := cur.CurrentSize(); err == nil {
		st.Width, st.Height = size.X, size.Y
	}
	if r, ok := sess.Editor().ROI(); ok {
		st.ROI = toRect(r)
	}
	for _, sk := range sess.Skipped() {
		st.Skipped = append(st.Skipped, filepath.Base(sk.Path))
	}
	return st
}

func (s *Server) reply(c *gin.Context) {
	c.JSON(http.StatusOK, s.state())
}

func (s *Server) handleState(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reply(c)
}

type openRequest struct {
	Path   string `json:"path" binding:"required"`
	Output string `json:"output"`
}

func (s *Server) handleOpen(c *gin.Context) {
	var req openRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, badRequest(err))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// exports hold the current source; they register under mu
	if s.jobs.running() {
		s.fail(c, errBusy)
		return
	}
	if err := s.sess.Open(req.Path); err != nil {
		s.fail(c, err)
		return
	}
	if req.Output != "" {
		s.sess.SetOutputFolder(req.Output)
	}
	s.reply(c)
}

type navigateRequest struct {
	Action string `json:"action" binding:"required,oneof=next previous seek"`
	Index  int    `json:"index"`
}

func (s *Server) handleNavigate(c *gin.Context) {
	var req navigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, badRequest(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	switch req.Action {
	case "next":
		_, err = s.sess.Next()
	case "previous":
		_, err = s.sess.Previous()
	case "seek":
		err = s.sess.Seek(req.Index)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	s.reply(c)
}

type viewRequest struct {
	Action string  `json:"action" binding:"required,oneof=zoom_in zoom_out reset pan center canvas"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
}

func (s *Server) handleView(c *gin.Context) {
	var req viewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, badRequest(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := viewport.Pt(req.X, req.Y)
	var err error
	switch req.Action {
	case "zoom_in":
		s.sess.ZoomIn(p)
	case "zoom_out":
		s.sess.ZoomOut(p)
	case "reset":
		s.sess.ResetView()
	case "pan":
		s.sess.Pan(req.DX, req.DY)
	case "center":
		err = s.sess.CenterOn(p)
	case "canvas":
		err = s.sess.SetCanvas(req.Width, req.Height)
	}
	if err != nil {
		s.fail(c, badRequest(err))
		return
	}
	s.reply(c)
}

func (s *Server) handleArm(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sess.ArmROI(); err != nil {
		s.fail(c, err)
		return
	}
	s.reply(c)
}

func (s *Server) handleSetROI(c *gin.Context) {
	var req Rect
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, badRequest(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sess.SetROI(req.rectangle()); err != nil {
		s.fail(c, err)
		return
	}
	s.reply(c)
}

func (s *Server) handleClearROI(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess.ClearROI()
	s.reply(c)
}

func (s *Server) handleSuggest(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.sess.SuggestROI(); err != nil {
		s.fail(c, err)
		return
	}
	s.reply(c)
}

type presetRequest struct {
	Action string `json:"action" binding:"required,oneof=save load"`
	Path   string `json:"path" binding:"required"`
	Name   string `json:"name"`
}

func (s *Server) handlePreset(c *gin.Context) {
	var req presetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, badRequest(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if req.Action == "save" {
		err = s.sess.SavePreset(req.Path, req.Name)
	} else {
		err = s.sess.LoadPreset(req.Path)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	s.reply(c)
}

func (s *Server) handlePreview(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc := preview.Scene{
		View:         s.sess.View(),
		Canvas:       s.sess.Canvas(),
		Editor:       s.sess.Editor(),
		Marker:       s.sess.Marker(),
		Style:        s.cfg.ROI,
		MaxImageSize: s.cfg.Canvas.MaxImageSize,
	}
	if s.sess.Loaded() {
		img, err := s.sess.Frame()
		if err != nil {
			s.fail(c, err)
			return
		}
		sc.Frame = img
	}

	out, err := preview.Render(sc)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Header("Content-Type", "image/png")
	c.Status(http.StatusOK)
	if err := imaging.Encode(c.Writer, out, imaging.PNG); err != nil {
		s.log.Warn("encode preview", zap.Error(err))
	}
}

type exportRequest struct {
	Kind      string   `json:"kind" binding:"required"`
	Base      string   `json:"base" binding:"required"`
	Folder    string   `json:"folder"`
	Format    string   `json:"format"`
	FPS       *float64 `json:"fps"`
	LoopCount *int     `json:"loop_count"`
	Quality   string   `json:"quality"`
}

func (s *Server) handleExport(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, badRequest(err))
		return
	}
	kind, err := export.ParseKind(req.Kind)
	if err != nil {
		s.fail(c, badRequest(err))
		return
	}

	s.mu.Lock()
	settings, err := s.sess.ExportSettings(kind, req.Base)
	if err == nil {
		err = applyOverrides(&settings, req)
	}
	if err != nil {
		s.mu.Unlock()
		s.fail(c, err)
		return
	}
	src, r, err := s.sess.Snapshot()
	if err == nil {
		err = settings.Validate()
	}
	if err != nil {
		s.mu.Unlock()
		s.fail(c, err)
		return
	}

	// registered before mu is released so Open cannot close src under it
	ctx, cancel := context.WithCancel(context.Background())
	job := &Job{
		ID:       uuid.NewString(),
		Kind:     kind.String(),
		Status:   JobRunning,
		Total:    src.FrameCount(),
		Started:  time.Now(),
		cancel:   cancel,
		finished: make(chan struct{}),
	}
	s.jobs.add(job)
	s.mu.Unlock()

	go func() {
		defer cancel()
		defer close(job.finished)

		res, err := export.RunWithID(ctx, job.ID, src, r, settings, func(done, total int) {
			s.jobs.update(job.ID, func(j *Job) { j.Done = done })
			if done == total || done%10 == 0 {
				s.pushJob(job.ID)
			}
		}, s.log)

		s.jobs.update(job.ID, func(j *Job) {
			switch {
			case err == nil:
				j.Status, j.Result = JobDone, res
			case errors.Is(err, context.Canceled):
				j.Status, j.Error = JobCanceled, err.Error()
			default:
				j.Status, j.Error = JobFailed, err.Error()
			}
		})
		s.pushJob(job.ID)
	}()

	c.JSON(http.StatusAccepted, gin.H{"id": job.ID})
}

func applyOverrides(s *export.Settings, req exportRequest) error {
	if req.Folder != "" {
		s.Folder = req.Folder
	}
	if req.Format != "" {
		s.ImageFormat = req.Format
	}
	if req.FPS != nil {
		s.FPS = *req.FPS
	}
	if req.LoopCount != nil {
		s.LoopCount = *req.LoopCount
	}
	if req.Quality != "" {
		tier, err := video.ParseTier(req.Quality)
		if err != nil {
			return badRequest(err)
		}
		s.Tier = tier
	}
	return nil
}

func (s *Server) pushJob(id string) {
	if j, ok := s.jobs.get(id); ok {
		s.hub.broadcast(message{Type: "job", Job: &j})
	}
}

func (s *Server) handleJob(c *gin.Context) {
	j, ok := s.jobs.get(c.Param("id"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no such export"})
		return
	}
	c.JSON(http.StatusOK, j)
}

func (s *Server) handleCancelJob(c *gin.Context) {
	if !s.jobs.cancel(c.Param("id")) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no such export"})
		return
	}
	c.Status(http.StatusNoContent)
}
