package reports

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/givehub/backend/internal/models"
)

// ErrUnknownRange is returned for an unrecognized date range name.
var ErrUnknownRange = errors.New("unknown report range")

// Range names a date window anchored at now.
type Range string

const (
	RangeLast7Days  Range = "last7days"
	RangeLast30Days Range = "last30days"
	RangeLast90Days Range = "last90days"
	RangeThisYear   Range = "thisyear"
)

// Start returns the inclusive lower bound of the range. Day ranges are fixed
// day offsets from now; thisyear starts at January 1 of the current year. No
// timezone normalization: the window moves with the caller's clock.
func (r Range) Start(now time.Time) (time.Time, error) {
	switch r {
	case RangeLast7Days:
		return now.AddDate(0, 0, -7), nil
	case RangeLast30Days:
		return now.AddDate(0, 0, -30), nil
	case RangeLast90Days:
		return now.AddDate(0, 0, -90), nil
	case RangeThisYear:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), nil
	default:
		return time.Time{}, ErrUnknownRange
	}
}

// DonationSource supplies donations for aggregation.
type DonationSource interface {
	ListAll(ctx context.Context) ([]models.Donation, error)
}

// ProgramSource supplies programs for aggregation.
type ProgramSource interface {
	ListAll(ctx context.Context) ([]models.Program, error)
}

// VolunteerSource supplies volunteers for aggregation.
type VolunteerSource interface {
	ListAll(ctx context.Context) ([]models.Volunteer, error)
}

// DonationsReport is the aggregated donations view for a date range.
type DonationsReport struct {
	Range           Range              `json:"range"`
	From            time.Time          `json:"from"`
	To              time.Time          `json:"to"`
	TotalAmount     float64            `json:"total_amount"`
	Count           int                `json:"count"`
	ByProgram       map[string]float64 `json:"by_program"`
	ByPaymentMethod map[string]float64 `json:"by_payment_method"`
	Rows            []models.Donation  `json:"rows"`
}

// ProgramRow is one program in the programs report.
type ProgramRow struct {
	ID         primitive.ObjectID `json:"id"`
	Title      string             `json:"title"`
	Category   string             `json:"category"`
	Status     string             `json:"status"`
	Target     float64            `json:"target"`
	Raised     float64            `json:"raised"`
	Progress   float64            `json:"progress"`
	Volunteers int64              `json:"volunteers"`
}

// ProgramsReport lists every program with funding progress.
type ProgramsReport struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Rows        []ProgramRow `json:"rows"`
}

// VolunteersReport lists volunteers joined within the range plus per-program
// active counts across the whole collection.
type VolunteersReport struct {
	Range          Range              `json:"range"`
	From           time.Time          `json:"from"`
	ActiveByProgram map[string]int64  `json:"active_by_program"`
	Rows           []models.Volunteer `json:"rows"`
}

// Service assembles reports by scanning whole collections and folding them in
// memory.
type Service struct {
	donations  DonationSource
	programs   ProgramSource
	volunteers VolunteerSource
	now        func() time.Time
}

// NewService creates the report service.
func NewService(donations DonationSource, programs ProgramSource, volunteers VolunteerSource) *Service {
	return &Service{
		donations:  donations,
		programs:   programs,
		volunteers: volunteers,
		now:        time.Now,
	}
}

// Donations builds the donations report for the range.
func (s *Service) Donations(ctx context.Context, r Range) (*DonationsReport, error) {
	now := s.now()
	start, err := r.Start(now)
	if err != nil {
		return nil, err
	}
	all, err := s.donations.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	programs, err := s.programs.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	titles := make(map[primitive.ObjectID]string, len(programs))
	for _, p := range programs {
		titles[p.ID] = p.Title
	}

	rep := &DonationsReport{
		Range:           r,
		From:            start,
		To:              now,
		ByProgram:       map[string]float64{},
		ByPaymentMethod: map[string]float64{},
	}
	for _, d := range all {
		if d.Date.Before(start) || d.Date.After(now) {
			continue
		}
		rep.Rows = append(rep.Rows, d)
		rep.TotalAmount += d.Amount
		rep.Count++
		title := titles[d.ProgramID]
		if title == "" {
			title = d.ProgramID.Hex()
		}
		rep.ByProgram[title] += d.Amount
		method := d.PaymentMethod
		if method == "" {
			method = "unspecified"
		}
		rep.ByPaymentMethod[method] += d.Amount
	}
	return rep, nil
}

// Programs builds the funding-progress report over all programs.
func (s *Service) Programs(ctx context.Context) (*ProgramsReport, error) {
	all, err := s.programs.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	rep := &ProgramsReport{GeneratedAt: s.now()}
	for _, p := range all {
		rep.Rows = append(rep.Rows, ProgramRow{
			ID:         p.ID,
			Title:      p.Title,
			Category:   p.Category,
			Status:     string(p.Status),
			Target:     p.Target,
			Raised:     p.Raised,
			Progress:   p.Progress(),
			Volunteers: p.Volunteers,
		})
	}
	return rep, nil
}

// Volunteers builds the volunteers report for the range.
func (s *Service) Volunteers(ctx context.Context, r Range) (*VolunteersReport, error) {
	now := s.now()
	start, err := r.Start(now)
	if err != nil {
		return nil, err
	}
	all, err := s.volunteers.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	programs, err := s.programs.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	titles := make(map[primitive.ObjectID]string, len(programs))
	for _, p := range programs {
		titles[p.ID] = p.Title
	}

	rep := &VolunteersReport{
		Range:           r,
		From:            start,
		ActiveByProgram: map[string]int64{},
	}
	for _, v := range all {
		if v.Status == models.VolunteerActive {
			title := titles[v.ProgramID]
			if title == "" {
				title = v.ProgramID.Hex()
			}
			rep.ActiveByProgram[title]++
		}
		if v.JoinedDate.Before(start) || v.JoinedDate.After(now) {
			continue
		}
		rep.Rows = append(rep.Rows, v)
	}
	return rep, nil
}
