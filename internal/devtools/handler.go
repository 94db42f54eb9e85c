package devtools

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/givehub/backend/internal/donations"
	"github.com/givehub/backend/internal/models"
	"github.com/givehub/backend/internal/programs"
	"github.com/givehub/backend/internal/volunteers"
	"github.com/givehub/backend/pkg/response"
)

// Handler exposes development-only maintenance endpoints: aggregate
// reconciliation and sample-data seeding. Mounted only when dev tools are
// enabled, behind admin auth.
type Handler struct {
	programRepo  *programs.Repository
	donationSvc  *donations.Service
	volunteerSvc *volunteers.Service
	logger       *zap.Logger
}

// NewHandler creates a devtools handler.
func NewHandler(programRepo *programs.Repository, donationSvc *donations.Service, volunteerSvc *volunteers.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		programRepo:  programRepo,
		donationSvc:  donationSvc,
		volunteerSvc: volunteerSvc,
		logger:       logger,
	}
}

// Recompute handles POST /dev/recompute. Overwrites raised totals and active
// volunteer counts from source for one program (program_id query) or all.
func (h *Handler) Recompute(c *gin.Context) {
	ctx := c.Request.Context()

	var targets []primitive.ObjectID
	if s := c.Query("program_id"); s != "" {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			response.BadRequest(c, "invalid program_id")
			return
		}
		targets = append(targets, id)
	} else {
		all, err := h.programRepo.ListAll(ctx)
		if err != nil {
			response.Internal(c, "failed to list programs")
			return
		}
		for _, p := range all {
			targets = append(targets, p.ID)
		}
	}

	results := make([]gin.H, 0, len(targets))
	for _, id := range targets {
		raised, err := h.donationSvc.RecomputeRaised(ctx, id)
		if err != nil {
			h.logger.Error("raised recompute failed", zap.Error(err), zap.String("program_id", id.Hex()))
			response.Internal(c, "recompute failed for program "+id.Hex())
			return
		}
		count, err := h.volunteerSvc.RecomputeCount(ctx, id)
		if err != nil {
			h.logger.Error("volunteer recompute failed", zap.Error(err), zap.String("program_id", id.Hex()))
			response.Internal(c, "recompute failed for program "+id.Hex())
			return
		}
		results = append(results, gin.H{
			"program_id": id.Hex(),
			"raised":     raised,
			"volunteers": count,
		})
	}
	response.OK(c, results)
}

// Seed handles POST /dev/seed. Creates a couple of programs with donations
// and volunteers through the services so the derived aggregates are
// consistent from the start.
func (h *Handler) Seed(c *gin.Context) {
	ctx := c.Request.Context()
	now := time.Now()

	seeds := []models.Program{
		{
			Title:       "Clean Water Initiative",
			Description: "Wells and filtration for rural communities.",
			Category:    "health",
			Location:    "Mwanza",
			Manager:     "Amina Okafor",
			StartDate:   now.AddDate(0, -1, 0),
			EndDate:     now.AddDate(0, 5, 0),
			Target:      10000,
			Status:      models.ProgramActive,
			IsFeatured:  true,
		},
		{
			Title:       "School Meals Drive",
			Description: "Daily lunches for primary school students.",
			Category:    "education",
			Location:    "Dhaka",
			Manager:     "Rafiq Chowdhury",
			StartDate:   now.AddDate(0, 0, -14),
			EndDate:     now.AddDate(0, 3, 0),
			Target:      5000,
			Status:      models.ProgramActive,
		},
	}

	created := make([]gin.H, 0, len(seeds))
	for i := range seeds {
		p := &seeds[i]
		if err := h.programRepo.Create(ctx, p); err != nil {
			response.Internal(c, "failed to seed program")
			return
		}

		amounts := []float64{2500, 1500, 750}
		for j, amount := range amounts {
			_, err := h.donationSvc.Create(ctx, donations.CreateInput{
				ProgramID:     p.ID,
				DonorName:     fmt.Sprintf("Seed Donor %d", j+1),
				Amount:        amount,
				PaymentMethod: "card",
				IsAnonymous:   j == len(amounts)-1,
			})
			if err != nil {
				response.Internal(c, "failed to seed donation")
				return
			}
		}

		statuses := []models.VolunteerStatus{
			models.VolunteerActive,
			models.VolunteerActive,
			models.VolunteerInactive,
		}
		for j, status := range statuses {
			_, err := h.volunteerSvc.Create(ctx, volunteers.CreateInput{
				ProgramID: p.ID,
				Name:      fmt.Sprintf("Seed Volunteer %d", j+1),
				Email:     fmt.Sprintf("volunteer%d-%s@example.org", j+1, p.ID.Hex()[:6]),
				Role:      "field",
				Status:    status,
			})
			if err != nil {
				response.Internal(c, "failed to seed volunteer")
				return
			}
		}

		created = append(created, gin.H{"program_id": p.ID.Hex(), "title": p.Title})
	}

	h.logger.Info("sample data seeded", zap.Int("programs", len(created)))
	response.Created(c, created)
}
