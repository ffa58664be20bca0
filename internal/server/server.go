// Package server exposes the composer over a JSON HTTP API for a browser
// client.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/icco/padcomposer/internal/composer"
	"github.com/icco/padcomposer/internal/export"
	"github.com/icco/padcomposer/internal/timeline"
	"github.com/sirupsen/logrus"
)

// Server serves one controller.
type Server struct {
	ctrl *composer.Controller
	log  logrus.FieldLogger
}

// New creates a server for ctrl.
func New(ctrl *composer.Controller, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{ctrl: ctrl, log: log.WithField("component", "server")}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.logRequests)

	// Allow a client served from another origin.
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	api := r.Group("/api")
	api.GET("/state", s.getState)
	api.GET("/pads", s.getPads)
	api.PUT("/settings", s.updateSettings)
	api.POST("/metronome/toggle", s.toggleMetronome)

	api.POST("/playback/toggle", s.togglePlayback)
	api.POST("/playback/stop", s.stopPlayback)
	api.POST("/recording/toggle", s.toggleRecording)
	api.POST("/pads/press", s.pressPad)
	api.POST("/pads/release", s.releasePad)

	api.PATCH("/notes/:id", s.updateNote)
	api.DELETE("/notes/:id", s.deleteNote)
	api.POST("/generate", s.generate)

	api.GET("/compositions", s.listCompositions)
	api.POST("/compositions/save", s.saveComposition)
	api.POST("/compositions/save-as", s.saveCompositionAs)
	api.POST("/compositions/new", s.newComposition)
	api.POST("/compositions/:id/load", s.loadComposition)
	api.DELETE("/compositions/:id", s.deleteComposition)

	api.POST("/export", s.exportFiles)
	api.GET("/export/notes.json", s.downloadNotes)
	api.GET("/export/composition.mid", s.downloadMIDI)
	return r
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.log.WithFields(logrus.Fields{
		"method":  c.Request.Method,
		"path":    c.FullPath(),
		"status":  c.Writer.Status(),
		"latency": time.Since(start),
	}).Debug("request")
}

// notice writes a controller notice. Blocking notices are client errors.
func notice(c *gin.Context, n composer.Notice, extra gin.H) {
	status := http.StatusOK
	if n.Failed() {
		status = http.StatusUnprocessableEntity
	}
	body := gin.H{"notice": n}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}

func (s *Server) getState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"state":    s.ctrl.State(),
		"recorder": s.ctrl.Recorder(),
	})
}

func (s *Server) getPads(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pads": s.ctrl.Pads()})
}

type settingsRequest struct {
	Tempo      *int    `json:"tempo"`
	Octave     *int    `json:"octave"`
	Scale      *string `json:"scale"`
	Instrument *string `json:"instrument"`
}

func (s *Server) updateSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	// Validate enumerations before applying anything.
	if req.Scale != nil {
		if err := s.ctrl.SetScale(*req.Scale); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.Instrument != nil {
		if err := s.ctrl.SetInstrument(*req.Instrument); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.Tempo != nil {
		s.ctrl.SetTempo(*req.Tempo)
	}
	if req.Octave != nil {
		s.ctrl.SetOctave(*req.Octave)
	}
	c.JSON(http.StatusOK, gin.H{"settings": s.ctrl.State().Settings})
}

func (s *Server) toggleMetronome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"metronome": s.ctrl.ToggleMetronome()})
}

func (s *Server) togglePlayback(c *gin.Context) {
	s.ctrl.TogglePlayback()
	c.JSON(http.StatusOK, gin.H{"playing": s.ctrl.Playing()})
}

func (s *Server) stopPlayback(c *gin.Context) {
	s.ctrl.Stop()
	c.JSON(http.StatusOK, gin.H{"playing": false})
}

func (s *Server) toggleRecording(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"recording": s.ctrl.ToggleRecording()})
}

type pressRequest struct {
	Pitch string `json:"pitch" binding:"required"`
}

func (s *Server) pressPad(c *gin.Context) {
	var req pressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pitch is required"})
		return
	}
	s.ctrl.PressStart(req.Pitch)
	c.JSON(http.StatusOK, gin.H{"recorder": s.ctrl.Recorder()})
}

func (s *Server) releasePad(c *gin.Context) {
	n, recorded := s.ctrl.PressEnd()
	body := gin.H{"recorded": recorded}
	if recorded {
		body["note"] = n
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) updateNote(c *gin.Context) {
	var patch timeline.NotePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	// Unknown ids are a no-op, so updated is reported rather than a 404.
	c.JSON(http.StatusOK, gin.H{"updated": s.ctrl.UpdateNote(c.Param("id"), patch)})
}

func (s *Server) deleteNote(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"deleted": s.ctrl.DeleteNote(c.Param("id"))})
}

func (s *Server) generate(c *gin.Context) {
	notes := s.ctrl.Generate()
	if notes == nil {
		notes = []timeline.Note{}
	}
	c.JSON(http.StatusOK, gin.H{"notes": notes})
}

func (s *Server) listCompositions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"compositions": s.ctrl.State().Compositions})
}

func (s *Server) saveComposition(c *gin.Context) {
	notice(c, s.ctrl.Save(), gin.H{"current": s.ctrl.State().Current})
}

func (s *Server) saveCompositionAs(c *gin.Context) {
	notice(c, s.ctrl.SaveAsNew(), gin.H{"current": s.ctrl.State().Current})
}

func (s *Server) newComposition(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"current": s.ctrl.NewComposition()})
}

func (s *Server) loadComposition(c *gin.Context) {
	comp, ok := s.ctrl.Load(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "composition not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"current": comp})
}

func (s *Server) deleteComposition(c *gin.Context) {
	notice(c, s.ctrl.DeleteComposition(c.Param("id")), nil)
}

type exportRequest struct {
	MIDI bool `json:"midi"`
}

func (s *Server) exportFiles(c *gin.Context) {
	var req exportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	paths, n := s.ctrl.Export(req.MIDI)
	notice(c, n, gin.H{"files": paths})
}

func (s *Server) current(c *gin.Context) (timeline.Composition, bool) {
	st := s.ctrl.State()
	if st.Current == nil || len(st.Current.Notes) == 0 {
		notice(c, composer.Notice{Kind: composer.Blocking, Message: "No notes to export"}, nil)
		return timeline.Composition{}, false
	}
	return *st.Current, true
}

func (s *Server) downloadNotes(c *gin.Context) {
	comp, ok := s.current(c)
	if !ok {
		return
	}
	entries, err := export.Entries(comp)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.FileName(comp.Name, ".json")+`"`)
	c.JSON(http.StatusOK, entries)
}

func (s *Server) downloadMIDI(c *gin.Context) {
	comp, ok := s.current(c)
	if !ok {
		return
	}
	comp.Tempo = s.ctrl.State().Settings.Tempo
	c.Header("Content-Disposition", `attachment; filename="`+export.FileName(comp.Name, ".mid")+`"`)
	c.Header("Content-Type", "audio/midi")
	c.Status(http.StatusOK)
	if err := export.EncodeMIDI(c.Writer, comp); err != nil {
		s.log.WithError(err).Error("streaming MIDI")
	}
}
