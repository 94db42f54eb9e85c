package donations

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/givehub/backend/internal/middleware"
	"github.com/givehub/backend/internal/models"
	"github.com/givehub/backend/pkg/response"
)

// CreateRequest is the body for POST /donations.
type CreateRequest struct {
	ProgramID     string  `json:"program_id" binding:"required"`
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	PaymentMethod string  `json:"payment_method" binding:"required"`
	IsAnonymous   bool    `json:"is_anonymous"`
	Note          string  `json:"note"`
	DonorName     string  `json:"donor_name"`
	Date          string  `json:"date"`   // RFC3339, defaults to now
	Status        string  `json:"status"` // admin only; donor submissions are completed
}

// UpdateRequest is the body for PATCH /donations/:id. Nil fields are unchanged.
type UpdateRequest struct {
	Amount        *float64 `json:"amount"`
	Date          *string  `json:"date"`
	Status        *string  `json:"status"`
	PaymentMethod *string  `json:"payment_method"`
	Note          *string  `json:"note"`
}

// Handler handles donation HTTP endpoints.
type Handler struct {
	service *Service
	repo    *Repository
	logger  *zap.Logger
}

// NewHandler creates a donation handler.
func NewHandler(service *Service, repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, repo: repo, logger: logger}
}

// Create handles POST /donations.
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
	donorID, ok := currentUserID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}

	in := CreateInput{
		ProgramID:     programID,
		DonorID:       donorID,
		DonorName:     req.DonorName,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		IsAnonymous:   req.IsAnonymous,
		Note:          req.Note,
	}
	if req.Date != "" {
		t, err := time.Parse(time.RFC3339, req.Date)
		if err != nil {
			response.BadRequest(c, "invalid date")
			return
		}
		in.Date = t
	}
	if req.Status != "" && currentRole(c) == string(models.RoleAdmin) {
		status, err := parseDonationStatus(req.Status)
		if err != nil {
			response.BadRequest(c, "invalid status")
			return
		}
		in.Status = status
	}

	d, err := h.service.Create(c.Request.Context(), in)
	switch {
	case errors.Is(err, ErrProgramNotFound):
		response.NotFound(c, "program not found")
	case errors.Is(err, ErrInvalidAmount):
		response.BadRequest(c, "donation amount must be positive")
	case err != nil:
		h.logger.Error("create donation failed", zap.Error(err), zap.String("program_id", req.ProgramID))
		response.Internal(c, "failed to record donation")
	default:
		response.Created(c, d)
	}
}

// List handles GET /donations (admin only). Query: program_id, donor_id, status.
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
	if s := c.Query("donor_id"); s != "" {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			response.BadRequest(c, "invalid donor_id")
			return
		}
		f.DonorID = id
	}
	if s := c.Query("status"); s != "" {
		status, err := parseDonationStatus(s)
		if err != nil {
			response.BadRequest(c, "invalid status")
			return
		}
		f.Status = status
	}
	list, err := h.repo.List(c.Request.Context(), f)
	if err != nil {
		response.Internal(c, "failed to list donations")
		return
	}
	response.OK(c, list)
}

// ListRecent handles GET /donations/recent. Public; anonymous donors are masked.
func (h *Handler) ListRecent(c *gin.Context) {
	limit := int64(10)
	if s := c.Query("limit"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n <= 0 || n > 100 {
			response.BadRequest(c, "invalid limit")
			return
		}
		limit = n
	}
	list, err := h.repo.ListRecent(c.Request.Context(), limit)
	if err != nil {
		response.Internal(c, "failed to list donations")
		return
	}
	out := make([]gin.H, 0, len(list))
	for i := range list {
		d := &list[i]
		out = append(out, gin.H{
			"id":         d.ID,
			"program_id": d.ProgramID,
			"donor_name": d.DisplayName(),
			"amount":     d.Amount,
			"status":     d.Status,
			"created_at": d.CreatedAt,
		})
	}
	response.OK(c, out)
}

// GetByID handles GET /donations/:id (admin or the donor who made it).
func (h *Handler) GetByID(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid donation id")
		return
	}
	d, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "donation not found")
		return
	}
	userID, _ := currentUserID(c)
	if currentRole(c) != string(models.RoleAdmin) && d.DonorID != userID {
		response.Forbidden(c, "insufficient permissions")
		return
	}
	response.OK(c, d)
}

// Update handles PATCH /donations/:id (admin only).
func (h *Handler) Update(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid donation id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	patch := UpdatePatch{
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		Note:          req.Note,
	}
	if req.Date != nil {
		t, err := time.Parse(time.RFC3339, *req.Date)
		if err != nil {
			response.BadRequest(c, "invalid date")
			return
		}
		patch.Date = &t
	}
	if req.Status != nil {
		status, err := parseDonationStatus(*req.Status)
		if err != nil {
			response.BadRequest(c, "invalid status")
			return
		}
		patch.Status = &status
	}

	d, err := h.service.Update(c.Request.Context(), id, patch)
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "donation not found")
	case errors.Is(err, ErrInvalidAmount):
		response.BadRequest(c, "donation amount must be positive")
	case err != nil:
		h.logger.Error("update donation failed", zap.Error(err), zap.String("donation_id", id.Hex()))
		response.Internal(c, "failed to update donation")
	default:
		response.OK(c, d)
	}
}

// Delete handles DELETE /donations/:id (admin only).
func (h *Handler) Delete(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid donation id")
		return
	}
	err = h.service.Delete(c.Request.Context(), id)
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "donation not found")
	case err != nil:
		h.logger.Error("delete donation failed", zap.Error(err), zap.String("donation_id", id.Hex()))
		response.Internal(c, "failed to delete donation")
	default:
		response.NoContent(c)
	}
}

// MyDonations handles GET /users/me/donations.
func (h *Handler) MyDonations(c *gin.Context) {
	donorID, ok := currentUserID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	list, err := h.repo.ListByDonorSince(c.Request.Context(), donorID, time.Time{})
	if err != nil {
		response.Internal(c, "failed to list donations")
		return
	}
	response.OK(c, list)
}

func parseDonationStatus(s string) (models.DonationStatus, error) {
	switch s {
	case "completed":
		return models.DonationCompleted, nil
	case "pending":
		return models.DonationPending, nil
	case "failed":
		return models.DonationFailed, nil
	default:
		return "", errors.New("unknown status")
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

func currentRole(c *gin.Context) string {
	val, ok := c.Get(middleware.ContextUserRole)
	if !ok {
		return ""
	}
	role, _ := val.(string)
	return role
}
