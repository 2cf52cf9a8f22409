// Package server exposes reconciliation over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"supplymatch/internal"
	"supplymatch/internal/document"
	"supplymatch/internal/logging"
)

const requestIDHeader = "X-Request-ID"

type Reconciler interface {
	Reconcile(ctx context.Context, doc internal.Document) (internal.Result, error)
}

type Options struct {
	Debug          bool
	MaxUploadBytes int64
}

type lineItemRequest struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
}

type reconcileRequest struct {
	SupplierName string            `json:"supplier_name" binding:"required"`
	LineItems    []lineItemRequest `json:"line_items"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	RequestID string `json:"request_id,omitempty"`
}

// NewRouter builds the gin engine. The logger is attached to every request
// context so pipeline logs carry the request id.
func NewRouter(rec Reconciler, logger zerolog.Logger, opts Options) *gin.Engine {
	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	h := &handler{rec: rec, maxUpload: opts.MaxUploadBytes}
	r.GET("/healthz", h.health)
	api := r.Group("/api/v1")
	api.POST("/reconcile", h.reconcile)
	api.POST("/documents", h.reconcileUpload)
	return r
}

func requestLogger(base zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set("request_id", reqID)
		c.Header(requestIDHeader, reqID)

		log := base.With().Str("request_id", reqID).Logger()
		c.Request = c.Request.WithContext(logging.WithLogger(c.Request.Context(), &log))

		start := time.Now()
		c.Next()

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("http request")
	}
}

type handler struct {
	rec       Reconciler
	maxUpload int64
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) reconcile(c *gin.Context) {
	var req reconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if strings.TrimSpace(req.SupplierName) == "" {
		sendError(c, http.StatusBadRequest, "bad_request", errors.New("supplier_name is empty"))
		return
	}

	doc := internal.Document{
		Source:       internal.SourceAPI,
		SupplierName: req.SupplierName,
		LineItems:    make([]internal.LineItem, 0, len(req.LineItems)),
	}
	for _, li := range req.LineItems {
		doc.LineItems = append(doc.LineItems, internal.LineItem{Description: li.Description, Quantity: li.Quantity})
	}
	h.run(c, doc)
}

// reconcileUpload accepts a multipart "file" in any format the document
// package reads. An optional "supplier" form field overrides the supplier
// printed on the document.
func (h *handler) reconcileUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	fh, err := c.FormFile("file")
	if err != nil {
		sendError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	f, err := fh.Open()
	if err != nil {
		sendError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		sendError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	doc, err := document.Parse(fh.Filename, content)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, document.ErrUnsupportedFormat) {
			status = http.StatusUnsupportedMediaType
		}
		sendError(c, status, "bad_document", err)
		return
	}
	if supplier := strings.TrimSpace(c.PostForm("supplier")); supplier != "" {
		doc.SupplierName = supplier
	}
	if strings.TrimSpace(doc.SupplierName) == "" {
		sendError(c, http.StatusUnprocessableEntity, "bad_document", errors.New("document has no supplier name; pass the supplier field"))
		return
	}
	h.run(c, doc)
}

func (h *handler) run(c *gin.Context, doc internal.Document) {
	result, err := h.rec.Reconcile(c.Request.Context(), doc)
	if ctxErr := c.Request.Context().Err(); ctxErr != nil {
		// the request itself ran out; whatever failed downstream is a symptom
		if err == nil {
			err = ctxErr
		}
		sendError(c, http.StatusGatewayTimeout, "timeout", err)
		return
	}
	if err != nil {
		status, kind := classify(err)
		sendError(c, status, kind, err)
		return
	}
	for i := range result.Failures {
		if result.Failures[i].Message == "" && result.Failures[i].Err != nil {
			result.Failures[i].Message = result.Failures[i].Err.Error()
		}
	}
	c.JSON(http.StatusOK, result)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, internal.ErrSupplierUnresolved):
		return http.StatusUnprocessableEntity, "supplier_unresolved"
	case errors.Is(err, internal.ErrCatalogUnavailable):
		return http.StatusBadGateway, "catalog_unavailable"
	case errors.Is(err, internal.ErrMatcherUnavailable):
		return http.StatusBadGateway, "matcher_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func sendError(c *gin.Context, status int, kind string, err error) {
	reqID := c.GetString("request_id")
	logging.FromContext(c.Request.Context()).Warn().
		Err(err).
		Int("status", status).
		Str("kind", kind).
		Msg("request failed")
	c.AbortWithStatusJSON(status, errorResponse{Error: err.Error(), Kind: kind, RequestID: reqID})
}
