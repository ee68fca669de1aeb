package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/opencampus/budgetd/internal/domain/models"
	"github.com/opencampus/budgetd/internal/service/documents"
)

// DocumentHandler handles supporting document uploads and listings.
type DocumentHandler struct {
	svc    *documents.Service
	logger *zap.Logger
}

// NewDocumentHandler constructs the HTTP handler adapter.
func NewDocumentHandler(svc *documents.Service, logger *zap.Logger) *DocumentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentHandler{svc: svc, logger: logger}
}

// Upload stores one multipart file against a workflow record. Form fields:
// entityKind, entityId, fiscalYear, signedCopy.
func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	kind := models.DocumentKind(c.PostForm("entityKind"))
	entityID := c.PostForm("entityId")
	if kind == "" || entityID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "entityKind and entityId are required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	defer file.Close()

	doc, err := h.svc.Upload(c.Request.Context(), documents.UploadInput{
		EntityKind:   kind,
		EntityID:     entityID,
		FiscalYear:   c.PostForm("fiscalYear"),
		FileName:     fileHeader.Filename,
		ContentType:  fileHeader.Header.Get("Content-Type"),
		SizeBytes:    fileHeader.Size,
		Body:         file,
		IsSignedCopy: c.PostForm("signedCopy") == "true",
	}, actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

// Get returns one document's metadata.
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// ListForEntity lists the documents attached to a workflow record.
func (h *DocumentHandler) ListForEntity(c *gin.Context) {
	docs, err := h.svc.ListForEntity(c.Request.Context(),
		models.DocumentKind(c.Param("kind")), c.Param("id"))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}
