package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Amila1P/portfolio/internal/content"
	"github.com/Amila1P/portfolio/internal/mail"
	"github.com/Amila1P/portfolio/internal/session"
	"github.com/Amila1P/portfolio/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	themeDark  = "dark"
	themeLight = "light"
)

type pageData struct {
	Site     *content.Site
	Session  *session.Session
	Revealed map[string]bool
	Theme    string
	Year     int

	CertificatesExpanded bool
	CertificatesLabel    string
	MenuOpen             bool
}

func (s *Server) newPageData(sess *session.Session, c *gin.Context) pageData {
	site := s.content.Site()
	data := pageData{
		Site:              site,
		Session:           sess,
		Revealed:          sess.Revealed(),
		Theme:             themeFrom(c),
		Year:              s.now().Year(),
		CertificatesLabel: site.Certificates.Labels.Collapsed,
	}
	if t, err := sess.Toggle(content.ToggleCertificates); err == nil {
		data.CertificatesExpanded = t.Expanded()
		data.CertificatesLabel = t.Label()
	}
	data.MenuOpen = sess.Expanded(content.ToggleMenu)
	return data
}

// handleIndex renders the whole page. Every page view gets a fresh session;
// the one from the previous view of this browser is released.
func (s *Server) handleIndex(c *gin.Context) {
	if old, err := c.Cookie(sessionCookie); err == nil {
		s.sessions.Close(old)
	}
	sess := s.startSession(c)
	s.metrics.pageViews.Inc()
	c.HTML(http.StatusOK, "index.html", s.newPageData(sess, c))
}

func (s *Server) startSession(c *gin.Context) *session.Session {
	sess := s.sessions.Create()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, sess.ID, int(s.cfg.Session.TTL.Seconds()), "/", "", false, true)
	return sess
}

// currentSession returns the session named by the request cookie.
func (s *Server) currentSession(c *gin.Context) (*session.Session, bool) {
	id, err := c.Cookie(sessionCookie)
	if err != nil || id == "" {
		return nil, false
	}
	return s.sessions.Get(id)
}

func themeFrom(c *gin.Context) string {
	if v, err := c.Cookie(themeCookie); err == nil && v == themeLight {
		return themeLight
	}
	return themeDark
}

func nextTheme(current string) string {
	if current == themeLight {
		return themeDark
	}
	return themeLight
}

// handleTheme flips the persisted theme preference.
func (s *Server) handleTheme(c *gin.Context) {
	theme := nextTheme(themeFrom(c))
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(themeCookie, theme, 365*24*3600, "/", "", false, false)
	c.JSON(http.StatusOK, gin.H{"theme": theme})
}

func (s *Server) handleContactForm(c *gin.Context) {
	c.HTML(http.StatusOK, "contact.html", gin.H{
		"title": "Contact Me",
	})
}

// handleContact stores a contact message and relays it by mail. Stored
// messages are mailed after the response is written; the visitor sees
// success when at least one of the two worked.
func (s *Server) handleContact(c *gin.Context) {
	msg := store.Message{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(c.PostForm("fullName")),
		Email:     strings.TrimSpace(c.PostForm("email")),
		Body:      strings.TrimSpace(c.PostForm("message")),
		CreatedAt: s.now(),
	}
	if msg.Name == "" || msg.Email == "" || msg.Body == "" {
		s.metrics.contacts.WithLabelValues("invalid").Inc()
		c.HTML(http.StatusOK, "contact-error.html", gin.H{
			"error": "Please fill in your name, email and message.",
		})
		return
	}
	ctx := c.Request.Context()

	if err := s.store.SaveMessage(ctx, msg); err == nil {
		s.background(func(ctx context.Context) { s.relay(ctx, msg) })
	} else {
		s.logger.Error("Saving contact message", slog.String("error", err.Error()))
		// Nothing was stored, so the mail is the only copy.
		if err := s.deliver(ctx, msg); err != nil {
			s.logger.Error("Sending contact mail", slog.String("id", msg.ID), slog.String("error", err.Error()))
			s.metrics.contacts.WithLabelValues("failed").Inc()
			c.HTML(http.StatusOK, "contact-error.html", gin.H{
				"error": "Sorry, there was an error sending your message. Please try again later.",
			})
			return
		}
	}

	s.metrics.contacts.WithLabelValues("accepted").Inc()
	s.logger.Info("Contact message received", slog.String("id", msg.ID))
	c.HTML(http.StatusOK, "contact-success.html", gin.H{
		"success": "Thank you for your message! I'll get back to you soon.",
	})
}

// relay mails a stored message and flags it delivered.
func (s *Server) relay(ctx context.Context, msg store.Message) {
	err := s.deliver(ctx, msg)
	switch {
	case errors.Is(err, mail.ErrNotConfigured):
		s.logger.Info("Contact mail not configured; message stored only", slog.String("id", msg.ID))
	case err != nil:
		s.logger.Error("Sending contact mail", slog.String("id", msg.ID), slog.String("error", err.Error()))
	default:
		if err := s.store.MarkDelivered(ctx, msg.ID); err != nil {
			s.logger.Warn("Marking message delivered", slog.String("id", msg.ID), slog.String("error", err.Error()))
		}
	}
}

func (s *Server) deliver(ctx context.Context, msg store.Message) error {
	if s.mailer == nil {
		return mail.ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	return s.mailer.Send(ctx, mail.Message{Name: msg.Name, Email: msg.Email, Body: msg.Body})
}
