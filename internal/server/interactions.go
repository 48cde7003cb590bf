package server

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/Amila1P/portfolio/internal/content"
	"github.com/Amila1P/portfolio/internal/session"
	"github.com/Amila1P/portfolio/internal/typing"
	"github.com/gin-gonic/gin"
)

// handleTyping streams the hero's typewriter frames as server-sent events.
// One animator runs per connection and stops when the client goes away.
func (s *Server) handleTyping(c *gin.Context) {
	anim := typing.New(s.content.Site().TypingRoles(), s.typingDelays())
	ctx := c.Request.Context()

	frames := make(chan typing.Frame)
	go func() {
		defer close(frames)
		_ = anim.Run(ctx, func(f typing.Frame) {
			select {
			case frames <- f:
			case <-ctx.Done():
			}
		})
	}()

	s.metrics.streams.Inc()
	defer s.metrics.streams.Dec()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	for f := range frames {
		c.SSEvent("frame", f)
		c.Writer.Flush()
	}
}

type revealResponse struct {
	Section string `json:"section"`
	Visible bool   `json:"visible"`
}

// handleReveal takes a visibility ratio the browser measured for a section.
// Without a live session the section is reported visible so content is never
// left hidden.
func (s *Server) handleReveal(c *gin.Context) {
	section := c.Param("section")
	ratio, err := strconv.ParseFloat(c.PostForm("ratio"), 64)
	if err != nil || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ratio must be a number"})
		return
	}

	sess, ok := s.currentSession(c)
	if !ok {
		c.JSON(http.StatusOK, revealResponse{Section: section, Visible: true})
		return
	}

	visible, err := sess.Report(section, ratio)
	if errors.Is(err, session.ErrUnknownSection) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown section"})
		return
	}
	c.JSON(http.StatusOK, revealResponse{Section: section, Visible: visible})
}

// handleToggle flips a show-more toggle and returns the re-rendered fragment.
func (s *Server) handleToggle(c *gin.Context) {
	name := c.Param("name")

	sess, ok := s.currentSession(c)
	if !ok {
		sess = s.startSession(c)
	}
	if _, err := sess.Flip(name); err != nil {
		c.String(http.StatusNotFound, "unknown toggle")
		return
	}
	s.metrics.toggles.WithLabelValues(name).Inc()

	data := s.newPageData(sess, c)
	switch name {
	case content.ToggleCertificates:
		c.HTML(http.StatusOK, "certificates-toggle", data)
	case content.ToggleMenu:
		c.HTML(http.StatusOK, "mobile-menu", data)
	}
}
