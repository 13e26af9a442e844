package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/poil524/final-project-sub000/internal/response"
	"github.com/poil524/final-project-sub000/internal/service"
)

// MediaHandler resolves stored media keys into signed URLs and serves
// the objects those URLs point at.
type MediaHandler struct {
	mediaService *service.MediaService
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(mediaService *service.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

// SignMediaURL godoc
// GET /api/v1/student/media/:key/url
// Exchanges a stored media key for a time-limited retrievable URL.
func (h *MediaHandler) SignMediaURL(c *gin.Context) {
	url, err := h.mediaService.SignedURL(c.Param("key"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"url": url})
}

// ServeMedia godoc
// GET /media/:key?exp=...&sig=...
// Serves a media object after verifying the URL signature and expiry.
func (h *MediaHandler) ServeMedia(c *gin.Context) {
	key := c.Param("key")
	exp, err := strconv.ParseInt(c.Query("exp"), 10, 64)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrMediaSignature)
		return
	}

	if err := h.mediaService.Verify(key, exp, c.Query("sig")); err != nil {
		if errors.Is(err, service.ErrMediaExpired) {
			response.Fail(c, http.StatusForbidden, response.ErrMediaExpired)
			return
		}
		response.Fail(c, http.StatusForbidden, response.ErrMediaSignature)
		return
	}

	c.File(h.mediaService.ObjectPath(key))
}
