package volunteers

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/givehub/backend/internal/models"
	"github.com/givehub/backend/internal/programs"
)

// ErrProgramNotFound is returned when the target program does not exist.
var ErrProgramNotFound = programs.ErrNotFound

// Store is volunteer persistence. Implemented by Repository; faked in tests.
type Store interface {
	Insert(ctx context.Context, v *models.Volunteer) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Volunteer, error)
	Update(ctx context.Context, v *models.Volunteer) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	CountActive(ctx context.Context, programID primitive.ObjectID) (int64, error)
}

// ProgramStore is the subset of program persistence the volunteer service needs.
type ProgramStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Program, error)
	SetVolunteers(ctx context.Context, id primitive.ObjectID, count int64) error
}

// TxRunner executes fn atomically.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// CreateInput are the caller-supplied fields for a new volunteer.
type CreateInput struct {
	ProgramID  primitive.ObjectID
	Name       string
	Email      string
	Phone      string
	Role       string
	JoinedDate time.Time
	Status     models.VolunteerStatus
}

// UpdatePatch is a partial volunteer update. Nil fields are unchanged.
type UpdatePatch struct {
	ProgramID *primitive.ObjectID
	Name      *string
	Email     *string
	Phone     *string
	Role      *string
	Status    *models.VolunteerStatus
}

// Service maintains volunteers and the derived Program.volunteers count. The
// count is never adjusted incrementally: after every mutation the service
// recounts active volunteers for the affected program from the collection and
// overwrites the stored value, so it cannot drift.
type Service struct {
	volunteers Store
	programs   ProgramStore
	tx         TxRunner
	logger     *zap.Logger
}

// NewService creates the volunteer service.
func NewService(volunteers Store, programs ProgramStore, tx TxRunner, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{volunteers: volunteers, programs: programs, tx: tx, logger: logger}
}

// Create registers a volunteer and refreshes the program's active count.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Volunteer, error) {
	if in.Status == "" {
		in.Status = models.VolunteerActive
	}
	if in.JoinedDate.IsZero() {
		in.JoinedDate = time.Now()
	}

	var created *models.Volunteer
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.programs.GetByID(ctx, in.ProgramID); err != nil {
			return err
		}
		v := &models.Volunteer{
			ProgramID:  in.ProgramID,
			Name:       in.Name,
			Email:      in.Email,
			Phone:      in.Phone,
			Role:       in.Role,
			JoinedDate: in.JoinedDate,
			Status:     in.Status,
		}
		if err := s.volunteers.Insert(ctx, v); err != nil {
			return err
		}
		if err := s.refreshCount(ctx, in.ProgramID); err != nil {
			return err
		}
		created = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update applies a partial update. When the volunteer moves to another
// program, both the old and the new program get a fresh count.
func (s *Service) Update(ctx context.Context, id primitive.ObjectID, patch UpdatePatch) (*models.Volunteer, error) {
	var updated *models.Volunteer
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		v, err := s.volunteers.GetByID(ctx, id)
		if err != nil {
			return err
		}
		oldProgram := v.ProgramID

		if patch.ProgramID != nil && *patch.ProgramID != v.ProgramID {
			if _, err := s.programs.GetByID(ctx, *patch.ProgramID); err != nil {
				return err
			}
			v.ProgramID = *patch.ProgramID
		}
		if patch.Name != nil {
			v.Name = *patch.Name
		}
		if patch.Email != nil {
			v.Email = *patch.Email
		}
		if patch.Phone != nil {
			v.Phone = *patch.Phone
		}
		if patch.Role != nil {
			v.Role = *patch.Role
		}
		if patch.Status != nil {
			v.Status = *patch.Status
		}
		if err := s.volunteers.Update(ctx, v); err != nil {
			return err
		}

		if err := s.refreshCount(ctx, v.ProgramID); err != nil {
			return err
		}
		if oldProgram != v.ProgramID {
			if err := s.refreshCount(ctx, oldProgram); err != nil {
				return err
			}
		}
		updated = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a volunteer and refreshes the program's active count. A
// missing program is tolerated so orphaned volunteers can still be removed.
func (s *Service) Delete(ctx context.Context, id primitive.ObjectID) error {
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		v, err := s.volunteers.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.volunteers.Delete(ctx, id); err != nil {
			return err
		}
		err = s.refreshCount(ctx, v.ProgramID)
		if errors.Is(err, ErrProgramNotFound) {
			return nil
		}
		return err
	})
}

// RecomputeCount refreshes a program's active-volunteer count on demand and
// returns the new value.
func (s *Service) RecomputeCount(ctx context.Context, programID primitive.ObjectID) (int64, error) {
	var count int64
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.programs.GetByID(ctx, programID); err != nil {
			return err
		}
		var err error
		count, err = s.volunteers.CountActive(ctx, programID)
		if err != nil {
			return err
		}
		return s.programs.SetVolunteers(ctx, programID, count)
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Service) refreshCount(ctx context.Context, programID primitive.ObjectID) error {
	if _, err := s.programs.GetByID(ctx, programID); err != nil {
		return err
	}
	count, err := s.volunteers.CountActive(ctx, programID)
	if err != nil {
		return err
	}
	return s.programs.SetVolunteers(ctx, programID, count)
}
