package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/givehub/backend/internal/models"
)

type fakeDonations struct{ list []models.Donation }

func (f fakeDonations) ListAll(context.Context) ([]models.Donation, error) { return f.list, nil }

type fakePrograms struct{ list []models.Program }

func (f fakePrograms) ListAll(context.Context) ([]models.Program, error) { return f.list, nil }

type fakeVolunteers struct{ list []models.Volunteer }

func (f fakeVolunteers) ListAll(context.Context) ([]models.Volunteer, error) { return f.list, nil }

func fixedNow() time.Time {
	return time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
}

func TestRangeStart(t *testing.T) {
	now := fixedNow()

	tests := []struct {
		r    Range
		want time.Time
	}{
		{RangeLast7Days, now.AddDate(0, 0, -7)},
		{RangeLast30Days, now.AddDate(0, 0, -30)},
		{RangeLast90Days, now.AddDate(0, 0, -90)},
		{RangeThisYear, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := tt.r.Start(now)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, string(tt.r))
	}

	_, err := Range("lastdecade").Start(now)
	assert.ErrorIs(t, err, ErrUnknownRange)
}

func TestDonationsLast7DaysBoundary(t *testing.T) {
	now := fixedNow()
	programID := primitive.NewObjectID()
	donations := []models.Donation{
		{ProgramID: programID, Amount: 100, Date: now.AddDate(0, 0, -8)}, // excluded
		{ProgramID: programID, Amount: 250, Date: now.AddDate(0, 0, -2)}, // included
	}

	svc := NewService(fakeDonations{donations}, fakePrograms{}, fakeVolunteers{})
	svc.now = fixedNow

	rep, err := svc.Donations(context.Background(), RangeLast7Days)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Count)
	assert.Equal(t, 250.0, rep.TotalAmount)
	require.Len(t, rep.Rows, 1)
	assert.Equal(t, 250.0, rep.Rows[0].Amount)
}

func TestDonationsExcludeFutureDates(t *testing.T) {
	now := fixedNow()
	programID := primitive.NewObjectID()
	donations := []models.Donation{
		{ProgramID: programID, Amount: 250, Date: now.AddDate(0, 0, -2)}, // included
		{ProgramID: programID, Amount: 900, Date: now.AddDate(0, 0, 3)},  // post-dated, excluded
	}

	svc := NewService(fakeDonations{donations}, fakePrograms{}, fakeVolunteers{})
	svc.now = fixedNow

	rep, err := svc.Donations(context.Background(), RangeLast7Days)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Count)
	assert.Equal(t, 250.0, rep.TotalAmount)
}

func TestDonationsAggregates(t *testing.T) {
	now := fixedNow()
	water := primitive.NewObjectID()
	meals := primitive.NewObjectID()
	donations := []models.Donation{
		{ProgramID: water, Amount: 100, PaymentMethod: "card", Date: now.AddDate(0, 0, -1)},
		{ProgramID: water, Amount: 50, PaymentMethod: "bank", Date: now.AddDate(0, 0, -3)},
		{ProgramID: meals, Amount: 75, Date: now.AddDate(0, 0, -5)},
	}
	programs := []models.Program{
		{ID: water, Title: "Clean Water"},
		{ID: meals, Title: "School Meals"},
	}

	svc := NewService(fakeDonations{donations}, fakePrograms{programs}, fakeVolunteers{})
	svc.now = fixedNow

	rep, err := svc.Donations(context.Background(), RangeLast7Days)
	require.NoError(t, err)
	assert.Equal(t, 225.0, rep.TotalAmount)
	assert.Equal(t, 150.0, rep.ByProgram["Clean Water"])
	assert.Equal(t, 75.0, rep.ByProgram["School Meals"])
	assert.Equal(t, 100.0, rep.ByPaymentMethod["card"])
	assert.Equal(t, 50.0, rep.ByPaymentMethod["bank"])
	assert.Equal(t, 75.0, rep.ByPaymentMethod["unspecified"])
}

func TestProgramsReport(t *testing.T) {
	programs := []models.Program{
		{ID: primitive.NewObjectID(), Title: "Clean Water", Target: 10000, Raised: 2500, Volunteers: 3, Status: models.ProgramActive},
		{ID: primitive.NewObjectID(), Title: "Overfunded", Target: 100, Raised: 250},
	}
	svc := NewService(fakeDonations{}, fakePrograms{programs}, fakeVolunteers{})
	svc.now = fixedNow

	rep, err := svc.Programs(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Rows, 2)
	assert.Equal(t, 25.0, rep.Rows[0].Progress)
	assert.Equal(t, int64(3), rep.Rows[0].Volunteers)
	assert.Equal(t, 100.0, rep.Rows[1].Progress, "progress is capped at 100")
}

func TestVolunteersReport(t *testing.T) {
	now := fixedNow()
	programID := primitive.NewObjectID()
	volunteers := []models.Volunteer{
		{ProgramID: programID, Name: "Ada", Status: models.VolunteerActive, JoinedDate: now.AddDate(0, 0, -2)},
		{ProgramID: programID, Name: "Grace", Status: models.VolunteerActive, JoinedDate: now.AddDate(0, 0, -40)},
		{ProgramID: programID, Name: "Edsger", Status: models.VolunteerInactive, JoinedDate: now.AddDate(0, 0, -1)},
	}
	programs := []models.Program{{ID: programID, Title: "Clean Water"}}

	svc := NewService(fakeDonations{}, fakePrograms{programs}, fakeVolunteers{volunteers})
	svc.now = fixedNow

	rep, err := svc.Volunteers(context.Background(), RangeLast7Days)
	require.NoError(t, err)
	// Active counts span the whole collection; rows honor the range.
	assert.Equal(t, int64(2), rep.ActiveByProgram["Clean Water"])
	require.Len(t, rep.Rows, 2)
}

func TestVolunteersExcludeFutureJoinDates(t *testing.T) {
	now := fixedNow()
	programID := primitive.NewObjectID()
	volunteers := []models.Volunteer{
		{ProgramID: programID, Name: "Ada", Status: models.VolunteerActive, JoinedDate: now.AddDate(0, 0, -2)},
		{ProgramID: programID, Name: "Grace", Status: models.VolunteerActive, JoinedDate: now.AddDate(0, 0, 5)},
	}
	svc := NewService(fakeDonations{}, fakePrograms{}, fakeVolunteers{volunteers})
	svc.now = fixedNow

	rep, err := svc.Volunteers(context.Background(), RangeLast7Days)
	require.NoError(t, err)
	require.Len(t, rep.Rows, 1)
	assert.Equal(t, "Ada", rep.Rows[0].Name)
	// The post-dated record still counts as active; only rows filter by date.
	assert.Equal(t, int64(2), rep.ActiveByProgram[programID.Hex()])
}
