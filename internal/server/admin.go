package server

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Amila1P/portfolio/internal/config"
	"github.com/Amila1P/portfolio/internal/store"
	"github.com/gin-gonic/gin"
)

const adminCookie = "admin_token"

// admin holds the per-process admin session token and the salt used to hash
// visitor IPs. Both are regenerated on every start.
type admin struct {
	token    string
	salt     string
	username string
	password string
	enabled  bool
}

func newAdmin(cfg config.AdminConfig, mode string, logger *slog.Logger) (*admin, error) {
	token, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("generating admin token: %w", err)
	}
	salt, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("generating hashing salt: %w", err)
	}

	a := &admin{token: token, salt: salt, username: cfg.Username, password: cfg.Password, enabled: true}
	if a.username == "" || a.password == "" {
		if mode == gin.ReleaseMode {
			// No default credentials in production.
			a.enabled = false
			logger.Warn("Admin login disabled: set PORTFOLIO_ADMIN_USERNAME and PORTFOLIO_ADMIN_PASSWORD")
		} else {
			if a.username == "" {
				a.username = "admin"
			}
			if a.password == "" {
				a.password = "admin123"
			}
			logger.Warn("Using default admin credentials outside release mode")
		}
	}
	if mode == gin.DebugMode {
		logger.Debug("Admin token (dev only)", slog.String("token", token))
	}
	return a, nil
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// hashIP hashes an IP with the process salt, consistent per IP for one run.
func (a *admin) hashIP(ip string) string {
	h := sha256.New()
	h.Write([]byte(ip + a.salt))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func (a *admin) checkCredentials(username, password string) bool {
	if !a.enabled {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	return userOK && passOK
}

func (a *admin) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(adminCookie)
		if err != nil || subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) != 1 {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// visitorTracking records page views with hashed IPs. Static files, admin
// pages and Do Not Track requests are skipped.
func (s *Server) visitorTracking() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if c.Request.Method != http.MethodGet || !trackedPath(path) || c.GetHeader("DNT") == "1" {
			c.Next()
			return
		}

		v := store.Visitor{
			HashedIP:  s.admin.hashIP(c.ClientIP()),
			UserAgent: c.GetHeader("User-Agent"),
			Path:      path,
			Timestamp: s.now(),
		}
		s.background(func(ctx context.Context) {
			if err := s.store.RecordVisit(ctx, v); err != nil {
				s.logger.Error("Recording visitor", slog.String("error", err.Error()))
			}
		})
		c.Next()
	}
}

func trackedPath(path string) bool {
	for _, prefix := range []string{"/static/", "/admin/", "/favicon", "/privacy", "/typing", "/metrics", "/healthz"} {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}

func (s *Server) setupAdminRoutes(r *gin.Engine) {
	r.GET("/privacy", func(c *gin.Context) {
		c.HTML(http.StatusOK, "privacy.html", gin.H{
			"title": "Privacy Policy",
		})
	})

	r.GET("/admin/login", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin-login.html", gin.H{
			"title": "Admin Login",
		})
	})

	r.POST("/admin/login", func(c *gin.Context) {
		ip := s.admin.hashIP(c.ClientIP())
		if !s.admin.checkCredentials(c.PostForm("username"), c.PostForm("password")) {
			s.logger.Warn("Failed admin login", slog.String("from", ip))
			c.HTML(http.StatusUnauthorized, "admin-login.html", gin.H{
				"title": "Admin Login",
				"error": "Invalid credentials",
			})
			return
		}

		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(adminCookie, s.admin.token, 3600*24, "/admin", "", s.cfg.Server.Mode == gin.ReleaseMode, true)
		s.logger.Info("Admin login", slog.String("from", ip))
		c.Redirect(http.StatusFound, "/admin/dashboard")
	})

	r.GET("/admin/logout", func(c *gin.Context) {
		c.SetCookie(adminCookie, "", -1, "/admin", "", false, true)
		s.logger.Info("Admin logout", slog.String("from", s.admin.hashIP(c.ClientIP())))
		c.Redirect(http.StatusFound, "/admin/login")
	})

	g := r.Group("/admin")
	g.Use(s.admin.authMiddleware())

	g.GET("/dashboard", func(c *gin.Context) {
		stats, err := s.store.Stats(c.Request.Context(), s.now())
		if err != nil {
			s.logger.Error("Loading admin stats", slog.String("error", err.Error()))
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load statistics",
			})
			return
		}
		c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{
			"stats":    stats,
			"sessions": s.sessions.Len(),
		})
	})

	g.GET("/api/stats", func(c *gin.Context) {
		stats, err := s.store.Stats(c.Request.Context(), s.now())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	g.GET("/visitors", func(c *gin.Context) {
		visitors, err := s.store.RecentVisitors(c.Request.Context(), 200)
		if err != nil {
			s.logger.Error("Loading visitors", slog.String("error", err.Error()))
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load visitors",
			})
			return
		}
		c.HTML(http.StatusOK, "admin-visitors.html", gin.H{
			"visitors": visitors,
		})
	})

	g.GET("/messages", func(c *gin.Context) {
		messages, err := s.store.RecentMessages(c.Request.Context(), 200)
		if err != nil {
			s.logger.Error("Loading messages", slog.String("error", err.Error()))
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load messages",
			})
			return
		}
		c.HTML(http.StatusOK, "admin-messages.html", gin.H{
			"messages": messages,
		})
	})

	g.DELETE("/messages/:id", func(c *gin.Context) {
		id := c.Param("id")
		err := s.store.DeleteMessage(c.Request.Context(), id)
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
			return
		case err != nil:
			s.logger.Error("Deleting message", slog.String("id", id), slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete message"})
			return
		}
		s.logger.Info("Message deleted by admin", slog.String("id", id))
		c.JSON(http.StatusOK, gin.H{"message": "Message deleted successfully"})
	})

	g.POST("/privacy/cleanup", func(c *gin.Context) {
		s.background(s.cleanupVisitors)
		c.JSON(http.StatusOK, gin.H{"message": "Privacy cleanup initiated"})
	})

	g.GET("/export/stats", func(c *gin.Context) {
		stats, err := s.store.Stats(c.Request.Context(), s.now())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Disposition", "attachment; filename=admin-stats.json")
		s.logger.Info("Admin stats exported", slog.String("by", s.admin.hashIP(c.ClientIP())))
		c.JSON(http.StatusOK, stats)
	})
}
