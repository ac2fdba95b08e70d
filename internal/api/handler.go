package api

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"student-result-system/internal/auth"
	"student-result-system/internal/config"
	"student-result-system/internal/db"
	"student-result-system/internal/dispatch"
	"student-result-system/internal/export"
	"student-result-system/internal/ingest"
	"student-result-system/internal/logger"
	"student-result-system/internal/mail"
	"student-result-system/internal/metrics"
	"student-result-system/internal/model"
	"student-result-system/internal/observability"
	"student-result-system/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const recentLogLimit = 100

type Handler struct {
	repo     db.Repository
	auth     *auth.Service
	ingest   *ingest.Service
	dispatch *dispatch.Service
	creds    *mail.CredentialStore
	cfg      *config.Config
	log      zerolog.Logger
}

func NewHandler(
	repo db.Repository,
	authSvc *auth.Service,
	ingestSvc *ingest.Service,
	dispatchSvc *dispatch.Service,
	creds *mail.CredentialStore,
	cfg *config.Config,
) *Handler {
	return &Handler{
		repo:     repo,
		auth:     authSvc,
		ingest:   ingestSvc,
		dispatch: dispatchSvc,
		creds:    creds,
		cfg:      cfg,
		log:      logger.For("api"),
	}
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Username and password are required"})
		return
	}

	user, token, err := h.auth.Login(c.Request.Context(), req.Username, req.Password, c.ClientIP())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.Auth.CookieName, token, int(h.cfg.Auth.SessionTTL.Seconds()), "/", "", h.cfg.Auth.CookieSecure, true)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful",
		"user":    user,
	})
}

func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.Auth.CookieName, "", -1, "/", "", h.cfg.Auth.CookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
}

func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "user": sessionUser(c)})
}

func (h *Handler) UploadStudents(c *gin.Context) {
	user := sessionUser(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.Upload.MaxSizeBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "message": "File too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "No file uploaded"})
		return
	}
	if fh.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "No file selected"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.respondError(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()

	count, err := h.ingest.Import(c.Request.Context(), user.ID, fh.Filename, f)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Successfully uploaded %d students", count),
		"count":   count,
	})
}

func (h *Handler) ListStudents(c *gin.Context) {
	students, err := h.repo.ListStudents(c.Request.Context(), sessionUser(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "students": students})
}

func (h *Handler) SendEmails(c *gin.Context) {
	var req model.SendEmailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}

	summary, err := h.dispatch.Dispatch(c.Request.Context(), sessionUser(c).ID, req.StudentIDs, h.creds.Get())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       fmt.Sprintf("Sent %d emails successfully, %d failed", summary.SuccessCount, summary.FailedCount),
		"success_count": summary.SuccessCount,
		"failed_count":  summary.FailedCount,
		"results":       summary.Results,
	})
}

func (h *Handler) ListLogs(c *gin.Context) {
	logs, err := h.repo.ListDispatchLogs(c.Request.Context(), sessionUser(c).ID, recentLogLimit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "logs": logs})
}

func (h *Handler) ExportLogs(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	logs, err := h.repo.ListDispatchLogs(c.Request.Context(), sessionUser(c).ID, 0)
	if err != nil {
		h.respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, logs); err != nil {
		h.respondError(c, fmt.Errorf("export logs: %w", err))
		return
	}

	filename := export.Filename(time.Now(), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.repo.StudentStats(c.Request.Context(), sessionUser(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

func (h *Handler) GetEmailConfig(c *gin.Context) {
	creds := h.creds.Get()
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"configured": creds.Configured(),
		"email":      creds.Username,
	})
}

func (h *Handler) UpdateEmailConfig(c *gin.Context) {
	var req model.EmailConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "A valid email and password are required"})
		return
	}

	if err := h.creds.Update(mail.Credentials{Username: req.Email, Password: req.Password}); err != nil {
		h.respondError(c, err)
		return
	}

	h.log.Info().Int64("user_id", sessionUser(c).ID).Str("email", req.Email).Msg("Email configuration updated")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Email configuration updated and saved successfully"})
}

func (h *Handler) SendTestEmail(c *gin.Context) {
	creds := h.creds.Get()
	if err := h.dispatch.SendTest(c.Request.Context(), creds); err != nil {
		if errors.IsInputError(err) {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "Test email failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Test email sent to " + creds.Username})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.repo.Ping(ctx)
	metrics.ObserveDBPing(time.Since(start))

	if err != nil {
		h.log.Error().Err(err).Msg("Database ping failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": h.cfg.App.Name,
			"version": h.cfg.App.Version,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.cfg.App.Name,
		"version": h.cfg.App.Version,
	})
}

// respondError maps service errors to a status code and a JSON body.
func (h *Handler) respondError(c *gin.Context, err error) {
	var rowErrs errors.RowErrors
	switch {
	case stderrors.As(err, &rowErrs):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error(), "errors": rowErrs})
	case errors.IsInputError(err):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
	case stderrors.Is(err, errors.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid username or password"})
	case stderrors.Is(err, errors.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"success": false, "message": err.Error()})
	case stderrors.Is(err, errors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Not found"})
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Str("request_id", c.GetString(ctxRequestID)).Msg("Request failed")
		observability.CaptureErr(err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
	}
}
