package programs

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/givehub/backend/internal/models"
	"github.com/givehub/backend/pkg/response"
	"github.com/givehub/backend/pkg/storage"
)

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// CreateRequest is the body for POST /programs.
type CreateRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	Category    string   `json:"category" binding:"required"`
	Location    string   `json:"location"`
	Manager     string   `json:"manager"`
	StartDate   string   `json:"start_date" binding:"required"`
	EndDate     string   `json:"end_date" binding:"required"`
	Target      float64  `json:"target" binding:"required,gt=0"`
	Status      string   `json:"status"` // optional, defaults to draft
	IsFeatured  bool     `json:"is_featured"`
	Tags        []string `json:"tags"`
}

// UpdateRequest is the body for PATCH /programs/:id. Nil fields are unchanged.
type UpdateRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Category    *string   `json:"category"`
	Location    *string   `json:"location"`
	Manager     *string   `json:"manager"`
	StartDate   *string   `json:"start_date"`
	EndDate     *string   `json:"end_date"`
	Target      *float64  `json:"target"`
	Status      *string   `json:"status"`
	IsFeatured  *bool     `json:"is_featured"`
	Tags        *[]string `json:"tags"`
}

// Handler handles program HTTP endpoints.
type Handler struct {
	repo   *Repository
	s3     *storage.S3
	logger *zap.Logger
}

// NewHandler creates a program handler. s3 may be nil when uploads are not configured.
func NewHandler(repo *Repository, s3 *storage.S3, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, s3: s3, logger: logger}
}

// Create handles POST /programs (admin only).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	startDate, err := parseTime(req.StartDate)
	if err != nil {
		response.BadRequest(c, "invalid start_date")
		return
	}
	endDate, err := parseTime(req.EndDate)
	if err != nil {
		response.BadRequest(c, "invalid end_date")
		return
	}
	if endDate.Before(startDate) {
		response.BadRequest(c, "end_date must be after start_date")
		return
	}
	status, err := parseStatus(req.Status, models.ProgramDraft)
	if err != nil {
		response.BadRequest(c, "invalid status")
		return
	}

	p := &models.Program{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Location:    req.Location,
		Manager:     req.Manager,
		StartDate:   startDate,
		EndDate:     endDate,
		Target:      req.Target,
		Status:      status,
		IsFeatured:  req.IsFeatured,
		Tags:        req.Tags,
	}
	if err := h.repo.Create(c.Request.Context(), p); err != nil {
		h.logger.Error("create program failed", zap.Error(err))
		response.Internal(c, "failed to create program")
		return
	}
	response.Created(c, p)
}

// List handles GET /programs. Query: status, category, featured=1.
func (h *Handler) List(c *gin.Context) {
	f := Filter{
		Category:     c.Query("category"),
		FeaturedOnly: c.Query("featured") == "1",
	}
	if s := c.Query("status"); s != "" {
		status, err := parseStatus(s, "")
		if err != nil {
			response.BadRequest(c, "invalid status")
			return
		}
		f.Status = status
	}
	list, err := h.repo.List(c.Request.Context(), f)
	if err != nil {
		response.Internal(c, "failed to list programs")
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /programs/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid program id")
		return
	}
	p, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "program not found")
		return
	}
	response.OK(c, p)
}

// Update handles PATCH /programs/:id (admin only).
func (h *Handler) Update(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid program id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}

	set := bson.M{}
	if req.Title != nil {
		set["title"] = *req.Title
	}
	if req.Description != nil {
		set["description"] = *req.Description
	}
	if req.Category != nil {
		set["category"] = *req.Category
	}
	if req.Location != nil {
		set["location"] = *req.Location
	}
	if req.Manager != nil {
		set["manager"] = *req.Manager
	}
	if req.StartDate != nil {
		t, err := parseTime(*req.StartDate)
		if err != nil {
			response.BadRequest(c, "invalid start_date")
			return
		}
		set["start_date"] = t
	}
	if req.EndDate != nil {
		t, err := parseTime(*req.EndDate)
		if err != nil {
			response.BadRequest(c, "invalid end_date")
			return
		}
		set["end_date"] = t
	}
	if req.Target != nil {
		if *req.Target <= 0 {
			response.BadRequest(c, "target must be positive")
			return
		}
		set["target"] = *req.Target
	}
	if req.Status != nil {
		status, err := parseStatus(*req.Status, "")
		if err != nil {
			response.BadRequest(c, "invalid status")
			return
		}
		set["status"] = status
	}
	if req.IsFeatured != nil {
		set["is_featured"] = *req.IsFeatured
	}
	if req.Tags != nil {
		set["tags"] = *req.Tags
	}
	if len(set) == 0 {
		response.BadRequest(c, "no fields to update")
		return
	}

	if err := h.repo.UpdateFields(c.Request.Context(), id, set); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "program not found")
			return
		}
		response.Internal(c, "failed to update program")
		return
	}
	updated, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load program")
		return
	}
	response.OK(c, updated)
}

// Delete handles DELETE /programs/:id (admin only).
func (h *Handler) Delete(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid program id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "program not found")
			return
		}
		response.Internal(c, "failed to delete program")
		return
	}
	response.NoContent(c)
}

// UploadImage handles POST /programs/:id/image (admin only, multipart upload to S3).
func (h *Handler) UploadImage(c *gin.Context) {
	if h.s3 == nil {
		response.BadRequest(c, "uploads are not configured")
		return
	}
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid program id")
		return
	}
	if _, err := h.repo.GetByID(c.Request.Context(), id); err != nil {
		response.NotFound(c, "program not found")
		return
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	defer file.Close()
	if header.Size > storage.MaxImageFileSize {
		response.BadRequest(c, "file too large")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if !storage.ValidateImageFileType(contentType, header.Filename) {
		response.BadRequest(c, "unsupported file type")
		return
	}
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(header.Filename)
	}
	key := storage.ProgramImageKey(id.Hex(), uuid.New().String()+strings.ToLower(header.Filename))
	url, err := h.s3.Upload(c.Request.Context(), key, contentType, file, header.Size)
	if err != nil {
		h.logger.Error("program image upload failed", zap.Error(err), zap.String("program_id", id.Hex()))
		response.Internal(c, "failed to upload image")
		return
	}
	if err := h.repo.SetImageURL(c.Request.Context(), id, url); err != nil {
		response.Internal(c, "failed to save image url")
		return
	}
	response.OK(c, gin.H{"image_url": url})
}

func parseStatus(s string, fallback models.ProgramStatus) (models.ProgramStatus, error) {
	switch s {
	case "":
		if fallback != "" {
			return fallback, nil
		}
		return "", errors.New("empty status")
	case "active":
		return models.ProgramActive, nil
	case "draft":
		return models.ProgramDraft, nil
	case "completed":
		return models.ProgramCompleted, nil
	default:
		return "", errors.New("unknown status")
	}
}
