package reports

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/givehub/backend/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler handles report HTTP endpoints.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a report handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// Donations handles GET /reports/donations. Query: range (default last30days),
// format=json|xlsx (default json).
func (h *Handler) Donations(c *gin.Context) {
	r := queryRange(c)
	rep, err := h.service.Donations(c.Request.Context(), r)
	if errors.Is(err, ErrUnknownRange) {
		response.BadRequest(c, "unknown range")
		return
	}
	if err != nil {
		h.logger.Error("donations report failed", zap.Error(err), zap.String("range", string(r)))
		response.Internal(c, "failed to build report")
		return
	}
	if c.Query("format") != "xlsx" {
		response.OK(c, rep)
		return
	}
	f, err := DonationsWorkbook(rep)
	if err != nil {
		response.Internal(c, "failed to build workbook")
		return
	}
	h.sendWorkbook(c, f, "donations")
}

// Programs handles GET /reports/programs. Query: format=json|xlsx.
func (h *Handler) Programs(c *gin.Context) {
	rep, err := h.service.Programs(c.Request.Context())
	if err != nil {
		h.logger.Error("programs report failed", zap.Error(err))
		response.Internal(c, "failed to build report")
		return
	}
	if c.Query("format") != "xlsx" {
		response.OK(c, rep)
		return
	}
	f, err := ProgramsWorkbook(rep)
	if err != nil {
		response.Internal(c, "failed to build workbook")
		return
	}
	h.sendWorkbook(c, f, "programs")
}

// Volunteers handles GET /reports/volunteers. Query: range, format=json|xlsx.
func (h *Handler) Volunteers(c *gin.Context) {
	r := queryRange(c)
	rep, err := h.service.Volunteers(c.Request.Context(), r)
	if errors.Is(err, ErrUnknownRange) {
		response.BadRequest(c, "unknown range")
		return
	}
	if err != nil {
		h.logger.Error("volunteers report failed", zap.Error(err), zap.String("range", string(r)))
		response.Internal(c, "failed to build report")
		return
	}
	if c.Query("format") != "xlsx" {
		response.OK(c, rep)
		return
	}
	f, err := VolunteersWorkbook(rep)
	if err != nil {
		response.Internal(c, "failed to build workbook")
		return
	}
	h.sendWorkbook(c, f, "volunteers")
}

func (h *Handler) sendWorkbook(c *gin.Context, f *excelize.File, kind string) {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		h.logger.Error("workbook serialization failed", zap.Error(err), zap.String("report", kind))
		response.Internal(c, "failed to serialize workbook")
		return
	}
	filename := ExportFilename(kind, time.Now())
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func queryRange(c *gin.Context) Range {
	if s := c.Query("range"); s != "" {
		return Range(s)
	}
	return RangeLast30Days
}
