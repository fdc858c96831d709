package photos

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apphttp "complaints_portal_backend/internal/http"
	"complaints_portal_backend/platform/httpkit"
	"complaints_portal_backend/platform/logger"
)

// Module exposes photo upload and retrieval over HTTP. It is only
// mounted when storage is configured.
type Module struct {
	storage *Storage
	log     *logger.Logger
}

func NewModule(storage *Storage, log *logger.Logger) *Module {
	return &Module{storage: storage, log: log}
}

func (m *Module) Name() string { return "photos" }

func (m *Module) Storage() *Storage { return m.storage }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/photos", m.upload)
	ctx.Protected.GET("/photos/*ref", m.downloadURL)
}

// upload accepts a multipart "photo" part and returns its reference.
// POST /api/v1/photos
func (m *Module) upload(c *gin.Context) {
	file, err := c.FormFile("photo")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "photo file is required", nil)
		return
	}
	if file.Size > MaxPhotoSize {
		httpkit.Error(c, http.StatusRequestEntityTooLarge, "photo exceeds the 10 MiB limit", nil)
		return
	}

	src, err := file.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "unable to read photo file", nil)
		return
	}
	defer src.Close()

	ref, err := m.storage.Upload(c.Request.Context(), file.Header.Get("Content-Type"), src, file.Size)
	if httpkit.HandleError(c, err) {
		return
	}

	m.log.Info("photo_uploaded", "ref", ref, "size", file.Size)
	c.JSON(http.StatusCreated, gin.H{"photoRef": ref})
}

// downloadURL returns a short-lived presigned link for a stored photo.
// GET /api/v1/photos/*ref
func (m *Module) downloadURL(c *gin.Context) {
	url, expiresAt, err := m.storage.DownloadURL(c.Request.Context(), c.Param("ref"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"url": url, "expiresAt": expiresAt.UTC().Format(time.RFC3339)})
}

var _ apphttp.Module = (*Module)(nil)
