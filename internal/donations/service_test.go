package donations

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/givehub/backend/internal/models"
)

type fakeProgramStore struct {
	programs map[primitive.ObjectID]*models.Program
}

func (f *fakeProgramStore) GetByID(_ context.Context, id primitive.ObjectID) (*models.Program, error) {
	p, ok := f.programs[id]
	if !ok {
		return nil, ErrProgramNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProgramStore) SetRaised(_ context.Context, id primitive.ObjectID, raised float64) error {
	p, ok := f.programs[id]
	if !ok {
		return ErrProgramNotFound
	}
	p.Raised = raised
	return nil
}

type fakeDonationStore struct {
	donations map[primitive.ObjectID]*models.Donation
}

func newFakeDonationStore() *fakeDonationStore {
	return &fakeDonationStore{donations: map[primitive.ObjectID]*models.Donation{}}
}

func (f *fakeDonationStore) Insert(_ context.Context, d *models.Donation) error {
	d.ID = primitive.NewObjectID()
	cp := *d
	f.donations[d.ID] = &cp
	return nil
}

func (f *fakeDonationStore) GetByID(_ context.Context, id primitive.ObjectID) (*models.Donation, error) {
	d, ok := f.donations[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDonationStore) Update(_ context.Context, d *models.Donation) error {
	if _, ok := f.donations[d.ID]; !ok {
		return ErrNotFound
	}
	cp := *d
	f.donations[d.ID] = &cp
	return nil
}

func (f *fakeDonationStore) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := f.donations[id]; !ok {
		return ErrNotFound
	}
	delete(f.donations, id)
	return nil
}

func (f *fakeDonationStore) ListCompletedByProgram(_ context.Context, programID primitive.ObjectID) ([]models.Donation, error) {
	var out []models.Donation
	for _, d := range f.donations {
		if d.ProgramID == programID && d.Status == models.DonationCompleted {
			out = append(out, *d)
		}
	}
	return out, nil
}

type fakeUserStore struct {
	users map[primitive.ObjectID]*models.User
	calls int
}

func (f *fakeUserStore) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	f.calls++
	u, ok := f.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

type fakeTx struct{}

func (fakeTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type captureFeed struct {
	events []*models.Donation
}

func (f *captureFeed) DonationCreated(d *models.Donation) {
	f.events = append(f.events, d)
}

func newTestService(feed Feed) (*Service, *fakeDonationStore, *fakeProgramStore, primitive.ObjectID) {
	programID := primitive.NewObjectID()
	programs := &fakeProgramStore{programs: map[primitive.ObjectID]*models.Program{
		programID: {ID: programID, Title: "Clean Water", Target: 10000, Raised: 0},
	}}
	donations := newFakeDonationStore()
	users := &fakeUserStore{users: map[primitive.ObjectID]*models.User{}}
	svc := NewService(donations, programs, users, fakeTx{}, feed, nil)
	return svc, donations, programs, programID
}

func TestCreateAddsAmountToRaised(t *testing.T) {
	svc, _, programs, programID := newTestService(nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{
		ProgramID: programID,
		DonorName: "Ada",
		Amount:    2500,
		Status:    models.DonationCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, 2500.0, programs.programs[programID].Raised)

	_, err = svc.Create(ctx, CreateInput{
		ProgramID: programID,
		DonorName: "Grace",
		Amount:    1500,
		Status:    models.DonationCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, 4000.0, programs.programs[programID].Raised)
}

func TestCreateDeleteScenario(t *testing.T) {
	svc, _, programs, programID := newTestService(nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateInput{ProgramID: programID, Amount: 2500})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{ProgramID: programID, Amount: 1500})
	require.NoError(t, err)
	assert.Equal(t, 4000.0, programs.programs[programID].Raised)

	require.NoError(t, svc.Delete(ctx, first.ID))
	assert.Equal(t, 1500.0, programs.programs[programID].Raised)
}

func TestCreateRejectsNonPositiveAmount(t *testing.T) {
	svc, _, _, programID := newTestService(nil)

	_, err := svc.Create(context.Background(), CreateInput{ProgramID: programID, Amount: 0})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.Create(context.Background(), CreateInput{ProgramID: programID, Amount: -50})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestCreateUnknownProgram(t *testing.T) {
	svc, store, _, _ := newTestService(nil)

	_, err := svc.Create(context.Background(), CreateInput{
		ProgramID: primitive.NewObjectID(),
		Amount:    100,
	})
	assert.ErrorIs(t, err, ErrProgramNotFound)
	assert.Empty(t, store.donations, "no donation should be written when the program is missing")
}

func TestDuplicateSubmitDoubleCounts(t *testing.T) {
	// There is no idempotency key: the same input twice creates two donations
	// and counts the amount twice. Documents current behavior.
	svc, store, programs, programID := newTestService(nil)
	ctx := context.Background()

	in := CreateInput{ProgramID: programID, DonorName: "Ada", Amount: 300}
	_, err := svc.Create(ctx, in)
	require.NoError(t, err)
	_, err = svc.Create(ctx, in)
	require.NoError(t, err)

	assert.Len(t, store.donations, 2)
	assert.Equal(t, 600.0, programs.programs[programID].Raised)
}

func TestUpdateAmountAdjustsByDelta(t *testing.T) {
	svc, _, programs, programID := newTestService(nil)
	ctx := context.Background()

	// Seed drift: raised does not match the stored donation.
	d, err := svc.Create(ctx, CreateInput{ProgramID: programID, Amount: 1000})
	require.NoError(t, err)
	programs.programs[programID].Raised = 5000

	newAmount := 1400.0
	updated, err := svc.Update(ctx, d.ID, UpdatePatch{Amount: &newAmount})
	require.NoError(t, err)
	assert.Equal(t, 1400.0, updated.Amount)
	// Exactly B-A applied, regardless of what raised was.
	assert.Equal(t, 5400.0, programs.programs[programID].Raised)
}

func TestUpdateAmountIgnoresStatus(t *testing.T) {
	svc, _, programs, programID := newTestService(nil)
	ctx := context.Background()

	pending := models.DonationPending
	d, err := svc.Create(ctx, CreateInput{ProgramID: programID, Amount: 200, Status: pending})
	require.NoError(t, err)
	// Pending donations still count toward raised on the incremental path.
	assert.Equal(t, 200.0, programs.programs[programID].Raised)

	newAmount := 500.0
	_, err = svc.Update(ctx, d.ID, UpdatePatch{Amount: &newAmount})
	require.NoError(t, err)
	assert.Equal(t, 500.0, programs.programs[programID].Raised)
}

func TestUpdateOtherFieldsLeaveRaisedAlone(t *testing.T) {
	svc, _, programs, programID := newTestService(nil)
	ctx := context.Background()

	d, err := svc.Create(ctx, CreateInput{ProgramID: programID, Amount: 800})
	require.NoError(t, err)

	note := "matched by employer"
	updated, err := svc.Update(ctx, d.ID, UpdatePatch{Note: &note})
	require.NoError(t, err)
	assert.Equal(t, "matched by employer", updated.Note)
	assert.Equal(t, 800.0, programs.programs[programID].Raised)
}

func TestDeleteFloorsRaisedAtZero(t *testing.T) {
	svc, _, programs, programID := newTestService(nil)
	ctx := context.Background()

	d, err := svc.Create(ctx, CreateInput{ProgramID: programID, Amount: 1000})
	require.NoError(t, err)
	// Simulate drift below the donation amount.
	programs.programs[programID].Raised = 400

	require.NoError(t, svc.Delete(ctx, d.ID))
	assert.Equal(t, 0.0, programs.programs[programID].Raised)
}

func TestDeleteToleratesMissingProgram(t *testing.T) {
	svc, store, programs, programID := newTestService(nil)
	ctx := context.Background()

	d, err := svc.Create(ctx, CreateInput{ProgramID: programID, Amount: 100})
	require.NoError(t, err)
	delete(programs.programs, programID)

	require.NoError(t, svc.Delete(ctx, d.ID))
	assert.Empty(t, store.donations)
}

func TestDeleteUnknownDonation(t *testing.T) {
	svc, _, _, _ := newTestService(nil)
	err := svc.Delete(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecomputeRaisedSumsCompletedOnly(t *testing.T) {
	svc, _, programs, programID := newTestService(nil)
	ctx := context.Background()

	pending := models.DonationPending
	_, err := svc.Create(ctx, CreateInput{ProgramID: programID, Amount: 100})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{ProgramID: programID, Amount: 250})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{ProgramID: programID, Amount: 999, Status: pending})
	require.NoError(t, err)

	// Incremental path counted everything, including the pending donation.
	assert.Equal(t, 1349.0, programs.programs[programID].Raised)

	total, err := svc.RecomputeRaised(ctx, programID)
	require.NoError(t, err)
	assert.Equal(t, 350.0, total)
	assert.Equal(t, 350.0, programs.programs[programID].Raised)
}

func TestCreateDenormalizesDonorAvatar(t *testing.T) {
	svc, _, programs, programID := newTestService(nil)
	donorID := primitive.NewObjectID()
	users := &fakeUserStore{users: map[primitive.ObjectID]*models.User{
		donorID: {ID: donorID, Name: "Ada Lovelace", Avatar: "https://cdn.example.org/ada.png"},
	}}
	svc.users = users
	ctx := context.Background()

	d, err := svc.Create(ctx, CreateInput{ProgramID: programID, DonorID: donorID, Amount: 50})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", d.DonorName)
	assert.Equal(t, "https://cdn.example.org/ada.png", d.DonorAvatar)
	assert.Equal(t, 50.0, programs.programs[programID].Raised)
}

func TestCreateAnonymousSkipsDonorLookup(t *testing.T) {
	svc, _, _, programID := newTestService(nil)
	donorID := primitive.NewObjectID()
	users := &fakeUserStore{users: map[primitive.ObjectID]*models.User{}}
	svc.users = users

	d, err := svc.Create(context.Background(), CreateInput{
		ProgramID:   programID,
		DonorID:     donorID,
		Amount:      75,
		IsAnonymous: true,
	})
	require.NoError(t, err)
	assert.Zero(t, users.calls)
	assert.Empty(t, d.DonorAvatar)
	assert.Equal(t, "Anonymous", d.DisplayName())
}

func TestCreateFailedDonorLookupProceeds(t *testing.T) {
	svc, _, _, programID := newTestService(nil)
	// Donor ID set but user missing: lookup fails, donation still lands.
	d, err := svc.Create(context.Background(), CreateInput{
		ProgramID: programID,
		DonorID:   primitive.NewObjectID(),
		DonorName: "Walk-in",
		Amount:    20,
	})
	require.NoError(t, err)
	assert.Equal(t, "Walk-in", d.DonorName)
	assert.Empty(t, d.DonorAvatar)
}

func TestCreateNotifiesFeedAfterCommit(t *testing.T) {
	feed := &captureFeed{}
	svc, _, _, programID := newTestService(feed)

	d, err := svc.Create(context.Background(), CreateInput{
		ProgramID: programID,
		DonorName: "Grace",
		Amount:    125,
	})
	require.NoError(t, err)
	require.Len(t, feed.events, 1)
	assert.Equal(t, d.ID, feed.events[0].ID)
	assert.Equal(t, 125.0, feed.events[0].Amount)
}

func TestCreateDefaultsStatusAndDate(t *testing.T) {
	svc, _, _, programID := newTestService(nil)

	before := time.Now()
	d, err := svc.Create(context.Background(), CreateInput{ProgramID: programID, Amount: 10})
	require.NoError(t, err)
	assert.Equal(t, models.DonationCompleted, d.Status)
	assert.False(t, d.Date.Before(before))
}
