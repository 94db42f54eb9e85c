package volunteers

import (
	"context"
	"testing"

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

func (f *fakeProgramStore) SetVolunteers(_ context.Context, id primitive.ObjectID, count int64) error {
	p, ok := f.programs[id]
	if !ok {
		return ErrProgramNotFound
	}
	p.Volunteers = count
	return nil
}

type fakeVolunteerStore struct {
	volunteers map[primitive.ObjectID]*models.Volunteer
}

func newFakeVolunteerStore() *fakeVolunteerStore {
	return &fakeVolunteerStore{volunteers: map[primitive.ObjectID]*models.Volunteer{}}
}

func (f *fakeVolunteerStore) Insert(_ context.Context, v *models.Volunteer) error {
	v.ID = primitive.NewObjectID()
	cp := *v
	f.volunteers[v.ID] = &cp
	return nil
}

func (f *fakeVolunteerStore) GetByID(_ context.Context, id primitive.ObjectID) (*models.Volunteer, error) {
	v, ok := f.volunteers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (f *fakeVolunteerStore) Update(_ context.Context, v *models.Volunteer) error {
	if _, ok := f.volunteers[v.ID]; !ok {
		return ErrNotFound
	}
	cp := *v
	f.volunteers[v.ID] = &cp
	return nil
}

func (f *fakeVolunteerStore) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := f.volunteers[id]; !ok {
		return ErrNotFound
	}
	delete(f.volunteers, id)
	return nil
}

func (f *fakeVolunteerStore) CountActive(_ context.Context, programID primitive.ObjectID) (int64, error) {
	var n int64
	for _, v := range f.volunteers {
		if v.ProgramID == programID && v.Status == models.VolunteerActive {
			n++
		}
	}
	return n, nil
}

type fakeTx struct{}

func (fakeTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService() (*Service, *fakeVolunteerStore, *fakeProgramStore, primitive.ObjectID) {
	programID := primitive.NewObjectID()
	programs := &fakeProgramStore{programs: map[primitive.ObjectID]*models.Program{
		programID: {ID: programID, Title: "School Meals"},
	}}
	store := newFakeVolunteerStore()
	svc := NewService(store, programs, fakeTx{}, nil)
	return svc, store, programs, programID
}

func TestCreateRecountsActive(t *testing.T) {
	svc, _, programs, programID := newTestService()
	ctx := context.Background()

	// 3 active + 1 inactive: the stored count must be the active count, not a
	// running increment.
	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, CreateInput{
			ProgramID: programID,
			Name:      "Active Volunteer",
			Email:     "active@example.org",
			Status:    models.VolunteerActive,
		})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, CreateInput{
		ProgramID: programID,
		Name:      "Inactive Volunteer",
		Email:     "inactive@example.org",
		Status:    models.VolunteerInactive,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(3), programs.programs[programID].Volunteers)
}

func TestCreateDefaultsToActive(t *testing.T) {
	svc, _, programs, programID := newTestService()

	v, err := svc.Create(context.Background(), CreateInput{
		ProgramID: programID,
		Name:      "Ada",
		Email:     "ada@example.org",
	})
	require.NoError(t, err)
	assert.Equal(t, models.VolunteerActive, v.Status)
	assert.Equal(t, int64(1), programs.programs[programID].Volunteers)
}

func TestCreateUnknownProgram(t *testing.T) {
	svc, store, _, _ := newTestService()

	_, err := svc.Create(context.Background(), CreateInput{
		ProgramID: primitive.NewObjectID(),
		Name:      "Nobody",
		Email:     "nobody@example.org",
	})
	assert.ErrorIs(t, err, ErrProgramNotFound)
	assert.Empty(t, store.volunteers)
}

func TestDeactivateRecounts(t *testing.T) {
	svc, _, programs, programID := newTestService()
	ctx := context.Background()

	v, err := svc.Create(ctx, CreateInput{ProgramID: programID, Name: "Ada", Email: "a@example.org"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{ProgramID: programID, Name: "Grace", Email: "g@example.org"})
	require.NoError(t, err)
	require.Equal(t, int64(2), programs.programs[programID].Volunteers)

	inactive := models.VolunteerInactive
	_, err = svc.Update(ctx, v.ID, UpdatePatch{Status: &inactive})
	require.NoError(t, err)
	assert.Equal(t, int64(1), programs.programs[programID].Volunteers)
}

func TestReassignRecountsBothPrograms(t *testing.T) {
	svc, _, programs, programID := newTestService()
	otherID := primitive.NewObjectID()
	programs.programs[otherID] = &models.Program{ID: otherID, Title: "Tree Planting"}
	ctx := context.Background()

	v, err := svc.Create(ctx, CreateInput{ProgramID: programID, Name: "Ada", Email: "a@example.org"})
	require.NoError(t, err)
	require.Equal(t, int64(1), programs.programs[programID].Volunteers)

	_, err = svc.Update(ctx, v.ID, UpdatePatch{ProgramID: &otherID})
	require.NoError(t, err)
	assert.Equal(t, int64(0), programs.programs[programID].Volunteers)
	assert.Equal(t, int64(1), programs.programs[otherID].Volunteers)
}

func TestDeleteRecounts(t *testing.T) {
	svc, store, programs, programID := newTestService()
	ctx := context.Background()

	v, err := svc.Create(ctx, CreateInput{ProgramID: programID, Name: "Ada", Email: "a@example.org"})
	require.NoError(t, err)
	require.Equal(t, int64(1), programs.programs[programID].Volunteers)

	require.NoError(t, svc.Delete(ctx, v.ID))
	assert.Empty(t, store.volunteers)
	assert.Equal(t, int64(0), programs.programs[programID].Volunteers)
}

func TestDeleteToleratesMissingProgram(t *testing.T) {
	svc, store, programs, programID := newTestService()
	ctx := context.Background()

	v, err := svc.Create(ctx, CreateInput{ProgramID: programID, Name: "Ada", Email: "a@example.org"})
	require.NoError(t, err)
	delete(programs.programs, programID)

	require.NoError(t, svc.Delete(ctx, v.ID))
	assert.Empty(t, store.volunteers)
}

func TestRecomputeCount(t *testing.T) {
	svc, store, programs, programID := newTestService()
	ctx := context.Background()

	// Write volunteers behind the service's back, then reconcile.
	for i := 0; i < 4; i++ {
		status := models.VolunteerActive
		if i == 0 {
			status = models.VolunteerInactive
		}
		require.NoError(t, store.Insert(ctx, &models.Volunteer{ProgramID: programID, Status: status}))
	}
	require.Equal(t, int64(0), programs.programs[programID].Volunteers)

	count, err := svc.RecomputeCount(ctx, programID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, int64(3), programs.programs[programID].Volunteers)
}
