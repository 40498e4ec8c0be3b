package server

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"evidence-registry/internal/client"
	"evidence-registry/internal/core"
	"evidence-registry/internal/evidence"
)

type Handler struct {
	pipeline  *evidence.Pipeline
	verifier  *evidence.Verifier
	anchor    *core.AnchorService
	lifecycle context.Context
	logger    *zap.Logger
}

func NewHandler(deps Deps, lifecycle context.Context, logger *zap.Logger) *Handler {
	return &Handler{
		pipeline:  deps.Pipeline,
		verifier:  deps.Verifier,
		anchor:    deps.Anchor,
		lifecycle: lifecycle,
		logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/submit-evidence", h.SubmitEvidence)
	rg.GET("/anchored", h.ListAnchored)

	ev := rg.Group("/evidence")
	{
		ev.POST("", h.Ingest)
		ev.GET("", h.List)
		ev.GET("/stream", h.Stream)
		ev.GET("/:id", h.Get)
	}

	rg.POST("/verify", h.Verify)
	rg.GET("/verify", h.VerifyState)
	rg.GET("/stats", h.Stats)
}

// SubmitEvidence anchors one uploaded file and answers with its ledger and
// storage references.
func (h *Handler) SubmitEvidence(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	doc, err := h.anchor.Anchor(c.Request.Context(), fh.Filename, f, fh.Size)
	if err != nil {
		h.logger.Error("anchor failed", zap.String("file", fh.Filename), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, client.SubmitResponse{
		TxHash:      doc.TxID,
		IpfsCid:     doc.ContentID,
		Hash:        "0x" + doc.FileHash,
		BlockNumber: doc.BlockNumber,
	})
}

func (h *Handler) ListAnchored(c *gin.Context) {
	docs, err := h.anchor.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, docs)
}

// Ingest accepts repeated "file" fields and starts one record per file. Files
// of any type and size are accepted. A request without files yields an empty
// list. The response holds each record as it was appended, in pending state.
func (h *Handler) Ingest(c *gin.Context) {
	var headers []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil {
		headers = form.File["file"]
	} else {
		h.logger.Debug("no multipart files in ingest request", zap.Error(err))
	}

	files := make([]evidence.SourceFile, 0, len(headers))
	for _, fh := range headers {
		sf, err := h.readFile(fh)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		files = append(files, sf)
	}

	progress := h.pipeline.Ingest(h.lifecycle, files)
	records := make([]evidence.Record, 0, len(progress))
	for _, p := range progress {
		records = append(records, p.Initial())
	}
	c.JSON(http.StatusAccepted, records)
}

func (h *Handler) readFile(fh *multipart.FileHeader) (evidence.SourceFile, error) {
	f, err := fh.Open()
	if err != nil {
		return evidence.SourceFile{}, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return evidence.SourceFile{}, err
	}
	return evidence.SourceFile{Name: fh.Filename, Size: fh.Size, Content: content}, nil
}

func (h *Handler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.pipeline.Registry().List())
}

func (h *Handler) Get(c *gin.Context) {
	rec, err := h.pipeline.Registry().Get(c.Param("id"))
	if errors.Is(err, evidence.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

type verifyRequest struct {
	Query string `json:"query"`
}

func (h *Handler) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	res, err := h.verifier.Lookup(c.Request.Context(), req.Query)
	switch {
	case errors.Is(err, evidence.ErrEmptyQuery):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, evidence.ErrSuperseded):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, res)
	}
}

func (h *Handler) VerifyState(c *gin.Context) {
	searching, res := h.verifier.State()
	c.JSON(http.StatusOK, gin.H{"searching": searching, "result": res})
}

func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.pipeline.Registry().Stats())
}
