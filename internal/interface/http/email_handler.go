package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/prernathite123/SchoolManagement/config"
	"github.com/prernathite123/SchoolManagement/internal/application"
	"github.com/prernathite123/SchoolManagement/pkg/mailer"
	"github.com/prernathite123/SchoolManagement/pkg/response"
	"github.com/prernathite123/SchoolManagement/pkg/validation"
)

// EmailHandler exposes an admin-only endpoint to enqueue announcement
// emails through the regular delivery queue.
type EmailHandler struct {
	Pub    application.Publisher
	Logger *logrus.Logger
	Cfg    *config.Config
}

func NewEmailHandler(pub application.Publisher, logger *logrus.Logger, cfg *config.Config) *EmailHandler {
	return &EmailHandler{Pub: pub, Logger: logger, Cfg: cfg}
}

type sendEmailRequest struct {
	To       string         `json:"to" binding:"required,email"`
	Template string         `json:"template" binding:"omitempty,oneof=verify_email welcome login_notification"`
	Data     map[string]any `json:"data"`
	Subject  string         `json:"subject"`
	Text     string         `json:"text"`
	HTML     string         `json:"html"`
}

// Send POST /api/admin/email/send
func (h *EmailHandler) Send(c *gin.Context) {
	var req sendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	if req.Template == "" {
		if req.Subject == "" || (req.Text == "" && req.HTML == "") {
			response.Error(c, http.StatusBadRequest, "either template or subject with text/html is required", nil)
			return
		}
	}

	if h.Cfg != nil && !h.Cfg.MailSendEnabled {
		response.Success(c, http.StatusAccepted, gin.H{"enqueued": false, "disabled": true}, "email sending disabled", nil)
		return
	}
	// The publisher is nil when RabbitMQ was unavailable at boot.
	if h.Pub == nil {
		response.Error(c, http.StatusServiceUnavailable, "email queue unavailable", nil)
		return
	}

	job := mailer.EmailJob{To: req.To}
	if req.Template != "" {
		job.Template = req.Template
		job.Data = req.Data
	} else {
		job.Subject = req.Subject
		job.Text = req.Text
		job.HTML = req.HTML
	}
	if err := h.Pub.PublishJSON(c.Request.Context(), job); err != nil {
		h.Logger.WithError(err).Warn("failed to publish email job")
		response.Error(c, http.StatusInternalServerError, "failed to enqueue", nil)
		return
	}
	response.Success(c, http.StatusAccepted, gin.H{"enqueued": true}, "email enqueued", nil)
}
