package handlers

import (
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"

	"github.com/exact3design/soundcard/internal/apperr"
	apphttp "github.com/exact3design/soundcard/internal/http"
	"github.com/exact3design/soundcard/internal/production"
	"github.com/exact3design/soundcard/internal/security"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// PackHandler streams production packs to holders of a signed link.
type PackHandler struct {
	blobs     production.BlobStore
	jwtSecret string
}

// NewPackHandler constructs a PackHandler.
func NewPackHandler(blobs production.BlobStore, jwtSecret string) *PackHandler {
	return &PackHandler{blobs: blobs, jwtSecret: jwtSecret}
}

// Download validates the sig query parameter and streams the pack it names.
func (h *PackHandler) Download(c *gin.Context) {
	sig := c.Query("sig")
	if sig == "" {
		apphttp.WriteError(c, apperr.InvalidInput("Missing download signature."))
		return
	}
	claims, errParse := security.ParsePackLink(h.jwtSecret, sig)
	if errParse != nil {
		if errors.Is(errParse, security.ErrExpiredToken) {
			apphttp.WriteError(c, apperr.NotFound("This download link has expired."))
			return
		}
		apphttp.WriteError(c, apperr.NotFound("This download link is not valid."))
		return
	}

	rc, errOpen := h.blobs.Open(c.Request.Context(), claims.Path)
	if errOpen != nil {
		if errors.Is(errOpen, production.ErrBlobNotFound) {
			apphttp.WriteError(c, apperr.NotFound("Production pack not found."))
			return
		}
		apphttp.WriteError(c, apperr.Upstream("Failed to open production pack", errOpen))
		return
	}
	defer func() { _ = rc.Close() }()

	filename := "production-pack-" + claims.OrderID + ".zip"
	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(path.Base(filename)))
	c.Status(http.StatusOK)
	if _, errCopy := io.Copy(c.Writer, rc); errCopy != nil {
		log.WithError(errCopy).WithField("order_id", claims.OrderID).Warn("pack download interrupted")
	}
}
