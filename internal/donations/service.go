package donations

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/givehub/backend/internal/models"
	"github.com/givehub/backend/internal/programs"
)

var (
	// ErrNotFound is returned when no donation matches the query.
	ErrNotFound = errors.New("donation not found")
	// ErrProgramNotFound is returned when the target program does not exist.
	ErrProgramNotFound = programs.ErrNotFound
	// ErrInvalidAmount is returned for non-positive donation amounts.
	ErrInvalidAmount = errors.New("donation amount must be positive")
)

// ProgramStore is the subset of program persistence the donation service
// needs. Implemented by programs.Repository; faked in tests.
type ProgramStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Program, error)
	SetRaised(ctx context.Context, id primitive.ObjectID, raised float64) error
}

// Store is donation persistence. Implemented by Repository; faked in tests.
type Store interface {
	Insert(ctx context.Context, d *models.Donation) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Donation, error)
	Update(ctx context.Context, d *models.Donation) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	ListCompletedByProgram(ctx context.Context, programID primitive.ObjectID) ([]models.Donation, error)
}

// UserStore resolves donors for avatar denormalization.
type UserStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// TxRunner executes fn atomically. Implemented by database.Mongo; the fake in
// tests just runs fn.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Feed receives committed donations for live broadcast. Implemented by
// realtime.Hub.
type Feed interface {
	DonationCreated(d *models.Donation)
}

// CreateInput are the caller-supplied fields for a new donation.
type CreateInput struct {
	ProgramID     primitive.ObjectID
	DonorID       primitive.ObjectID
	DonorName     string
	Amount        float64
	Date          time.Time
	Status        models.DonationStatus
	PaymentMethod string
	IsAnonymous   bool
	Note          string
}

// UpdatePatch is a partial donation update. Nil fields are unchanged.
type UpdatePatch struct {
	Amount        *float64
	Date          *time.Time
	Status        *models.DonationStatus
	PaymentMethod *string
	Note          *string
}

// Service maintains donations and the derived Program.raised total. Every
// mutation pairs the donation write with the raised adjustment inside one
// store transaction so the two can no longer diverge mid-operation. Note the
// incremental adjustments deliberately ignore donation status, matching the
// dashboard's long-standing accounting; only RecomputeRaised reconciles the
// total against completed donations.
type Service struct {
	donations Store
	programs  ProgramStore
	users     UserStore
	tx        TxRunner
	feed      Feed
	logger    *zap.Logger
}

// NewService creates the donation service. feed may be nil.
func NewService(donations Store, programs ProgramStore, users UserStore, tx TxRunner, feed Feed, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		donations: donations,
		programs:  programs,
		users:     users,
		tx:        tx,
		feed:      feed,
		logger:    logger,
	}
}

// Create records a donation and adds its amount to the program's raised
// total. The donor's avatar is denormalized best-effort: a failed donor
// lookup is logged and the donation proceeds without it. There is no
// idempotency key, so submitting the same input twice creates two donations
// and counts the amount twice.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Donation, error) {
	if in.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if in.Status == "" {
		in.Status = models.DonationCompleted
	}
	if in.Date.IsZero() {
		in.Date = time.Now()
	}

	var created *models.Donation
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		prog, err := s.programs.GetByID(ctx, in.ProgramID)
		if err != nil {
			return err
		}

		avatar := ""
		donorName := in.DonorName
		if !in.IsAnonymous && !in.DonorID.IsZero() {
			u, err := s.users.GetByID(ctx, in.DonorID)
			if err != nil {
				s.logger.Warn("donor lookup for avatar failed",
					zap.Error(err), zap.String("donor_id", in.DonorID.Hex()))
			} else {
				avatar = u.Avatar
				if donorName == "" {
					donorName = u.Name
				}
			}
		}

		d := &models.Donation{
			ProgramID:     in.ProgramID,
			DonorID:       in.DonorID,
			DonorName:     donorName,
			DonorAvatar:   avatar,
			Amount:        in.Amount,
			Date:          in.Date,
			Status:        in.Status,
			PaymentMethod: in.PaymentMethod,
			IsAnonymous:   in.IsAnonymous,
			Note:          in.Note,
			CreatedAt:     time.Now(),
		}
		if err := s.donations.Insert(ctx, d); err != nil {
			return err
		}
		if err := s.programs.SetRaised(ctx, in.ProgramID, prog.Raised+in.Amount); err != nil {
			return err
		}
		created = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.feed != nil {
		s.feed.DonationCreated(created)
	}
	return created, nil
}

// Update applies a partial update. When the amount changes, the program's
// raised total is adjusted by exactly the delta in the same transaction.
func (s *Service) Update(ctx context.Context, id primitive.ObjectID, patch UpdatePatch) (*models.Donation, error) {
	if patch.Amount != nil && *patch.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var updated *models.Donation
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		d, err := s.donations.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if patch.Amount != nil && *patch.Amount != d.Amount {
			delta := *patch.Amount - d.Amount
			prog, err := s.programs.GetByID(ctx, d.ProgramID)
			if err != nil {
				return err
			}
			if err := s.programs.SetRaised(ctx, d.ProgramID, prog.Raised+delta); err != nil {
				return err
			}
			d.Amount = *patch.Amount
		}
		if patch.Date != nil {
			d.Date = *patch.Date
		}
		if patch.Status != nil {
			d.Status = *patch.Status
		}
		if patch.PaymentMethod != nil {
			d.PaymentMethod = *patch.PaymentMethod
		}
		if patch.Note != nil {
			d.Note = *patch.Note
		}
		if err := s.donations.Update(ctx, d); err != nil {
			return err
		}
		updated = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a donation and subtracts its amount from the program's
// raised total, floored at zero. A missing program is tolerated so orphaned
// donations can still be cleaned up.
func (s *Service) Delete(ctx context.Context, id primitive.ObjectID) error {
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		d, err := s.donations.GetByID(ctx, id)
		if err != nil {
			return err
		}
		prog, err := s.programs.GetByID(ctx, d.ProgramID)
		if err == nil {
			raised := prog.Raised - d.Amount
			if raised < 0 {
				raised = 0
			}
			if err := s.programs.SetRaised(ctx, d.ProgramID, raised); err != nil {
				return err
			}
		} else if !errors.Is(err, ErrProgramNotFound) {
			return err
		}
		return s.donations.Delete(ctx, id)
	})
}

// RecomputeRaised overwrites the program's raised total with the sum of its
// completed donations. This is the only self-correcting path; it repairs any
// drift the incremental adjustments accumulated.
func (s *Service) RecomputeRaised(ctx context.Context, programID primitive.ObjectID) (float64, error) {
	var total float64
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.programs.GetByID(ctx, programID); err != nil {
			return err
		}
		list, err := s.donations.ListCompletedByProgram(ctx, programID)
		if err != nil {
			return err
		}
		total = 0
		for _, d := range list {
			total += d.Amount
		}
		return s.programs.SetRaised(ctx, programID, total)
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
