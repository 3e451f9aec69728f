package http

import (
	"github.com/exact3design/soundcard/internal/apperr"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// WriteError renders err as the JSON error envelope with the status its kind maps to.
func WriteError(c *gin.Context, err error) {
	appErr := apperr.As(err)
	if appErr.Kind == apperr.KindUnexpected {
		log.WithError(err).WithField("path", c.FullPath()).Error("unexpected handler error")
	}
	if appErr.Err != nil {
		_ = c.Error(appErr.Err)
	}

	body := gin.H{
		"error":   string(appErr.Kind),
		"message": appErr.Message,
	}
	if appErr.AttemptsRemaining != nil {
		body["attempts_remaining"] = *appErr.AttemptsRemaining
	}
	if appErr.LockedUntil != nil {
		body["locked_until"] = appErr.LockedUntil.UTC()
	}
	c.AbortWithStatusJSON(apperr.HTTPStatus(appErr.Kind), body)
}
