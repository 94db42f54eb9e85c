package volunteers

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/givehub/backend/internal/middleware"
	"github.com/givehub/backend/internal/models"
	"github.com/givehub/backend/pkg/response"
)

// CreateRequest is the body for POST /volunteers.
type CreateRequest struct {
	ProgramID  string `json:"program_id" binding:"required"`
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Phone      string `json:"phone"`
	Role       string `json:"role"`
	JoinedDate string `json:"joined_date"` // RFC3339, defaults to now
	Status     string `json:"status"`      // optional, defaults to active
}

// UpdateRequest is the body for PATCH /volunteers/:id. Nil fields are unchanged.
type UpdateRequest struct {
	ProgramID *string `json:"program_id"`
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Role      *string `json:"role"`
	Status    *string `json:"status"`
}

// SignupRequest is the body for POST /programs/:id/volunteers.
type SignupRequest struct {
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

// UserStore resolves the signed-in user for self signup.
type UserStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Handler handles volunteer HTTP endpoints.
type Handler struct {
	service *Service
	repo    *Repository
	users   UserStore
	logger  *zap.Logger
}

// NewHandler creates a volunteer handler.
func NewHandler(service *Service, repo *Repository, users UserStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, repo: repo, users: users, logger: logger}
}

// SelfSignup handles POST /programs/:id/volunteers. The signed-in user joins
// the program as an active volunteer under their own name and email.
func (h *Handler) SelfSignup(c *gin.Context) {
	programID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid program id")
		return
	}
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "invalid request")
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	u, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.Unauthorized(c, "unknown user")
		return
	}

	v, err := h.service.Create(c.Request.Context(), CreateInput{
		ProgramID: programID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     req.Phone,
		Role:      req.Role,
		Status:    models.VolunteerActive,
	})
	switch {
	case errors.Is(err, ErrProgramNotFound):
		response.NotFound(c, "program not found")
	case err != nil:
		h.logger.Error("volunteer signup failed", zap.Error(err), zap.String("program_id", programID.Hex()))
		response.Internal(c, "failed to sign up")
	default:
		response.Created(c, v)
	}
}

// Create handles POST /volunteers (admin only).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	programID, err := primitive.ObjectIDFromHex(req.ProgramID)
	if err != nil {
		response.BadRequest(c, "invalid program_id")
		return
	}
	in := CreateInput{
		ProgramID: programID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Role:      req.Role,
	}
	if req.JoinedDate != "" {
		t, err := time.Parse(time.RFC3339, req.JoinedDate)
		if err != nil {
			response.BadRequest(c, "invalid joined_date")
			return
		}
		in.JoinedDate = t
	}
	if req.Status != "" {
		status, err := parseVolunteerStatus(req.Status)
		if err != nil {
			response.BadRequest(c, "invalid status")
			return
		}
		in.Status = status
	}

	v, err := h.service.Create(c.Request.Context(), in)
	switch {
	case errors.Is(err, ErrProgramNotFound):
		response.NotFound(c, "program not found")
	case err != nil:
		h.logger.Error("create volunteer failed", zap.Error(err), zap.String("program_id", req.ProgramID))
		response.Internal(c, "failed to create volunteer")
	default:
		response.Created(c, v)
	}
}

// List handles GET /volunteers (admin only). Query: program_id, status.
func (h *Handler) List(c *gin.Context) {
	var f Filter
	if s := c.Query("program_id"); s != "" {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			response.BadRequest(c, "invalid program_id")
			return
		}
		f.ProgramID = id
	}
	if s := c.Query("status"); s != "" {
		status, err := parseVolunteerStatus(s)
		if err != nil {
			response.BadRequest(c, "invalid status")
			return
		}
		f.Status = status
	}
	list, err := h.repo.List(c.Request.Context(), f)
	if err != nil {
		response.Internal(c, "failed to list volunteers")
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /volunteers/:id (admin only).
func (h *Handler) GetByID(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid volunteer id")
		return
	}
	v, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "volunteer not found")
		return
	}
	response.OK(c, v)
}

// Update handles PATCH /volunteers/:id (admin only).
func (h *Handler) Update(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid volunteer id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	patch := UpdatePatch{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
		Role:  req.Role,
	}
	if req.ProgramID != nil {
		pid, err := primitive.ObjectIDFromHex(*req.ProgramID)
		if err != nil {
			response.BadRequest(c, "invalid program_id")
			return
		}
		patch.ProgramID = &pid
	}
	if req.Status != nil {
		status, err := parseVolunteerStatus(*req.Status)
		if err != nil {
			response.BadRequest(c, "invalid status")
			return
		}
		patch.Status = &status
	}

	v, err := h.service.Update(c.Request.Context(), id, patch)
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "volunteer not found")
	case errors.Is(err, ErrProgramNotFound):
		response.NotFound(c, "program not found")
	case err != nil:
		h.logger.Error("update volunteer failed", zap.Error(err), zap.String("volunteer_id", id.Hex()))
		response.Internal(c, "failed to update volunteer")
	default:
		response.OK(c, v)
	}
}

// Delete handles DELETE /volunteers/:id (admin only).
func (h *Handler) Delete(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid volunteer id")
		return
	}
	err = h.service.Delete(c.Request.Context(), id)
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "volunteer not found")
	case err != nil:
		h.logger.Error("delete volunteer failed", zap.Error(err), zap.String("volunteer_id", id.Hex()))
		response.Internal(c, "failed to delete volunteer")
	default:
		response.NoContent(c)
	}
}

func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	val, ok := c.Get(middleware.ContextUserID)
	if !ok {
		return primitive.NilObjectID, false
	}
	idStr, _ := val.(string)
	id, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

func parseVolunteerStatus(s string) (models.VolunteerStatus, error) {
	switch s {
	case "active":
		return models.VolunteerActive, nil
	case "inactive":
		return models.VolunteerInactive, nil
	default:
		return "", errors.New("unknown status")
	}
}
