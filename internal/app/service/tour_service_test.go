package service

import (
	"context"
	"testing"
	"trailwise/internal/common"
	"trailwise/internal/domain/model"
	"trailwise/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memTourRepo struct {
	byID       map[string]*model.Tour
	lastLimit  int
	lastOffset int
}

func newMemTourRepo() *memTourRepo {
	return &memTourRepo{byID: map[string]*model.Tour{}}
}

func (m *memTourRepo) Create(_ context.Context, tour *model.Tour) error {
	m.byID[tour.ID] = tour
	return nil
}

func (m *memTourRepo) Update(_ context.Context, tour *model.Tour) error {
	if _, ok := m.byID[tour.ID]; !ok {
		return common.ErrNotFound
	}
	m.byID[tour.ID] = tour
	return nil
}

func (m *memTourRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return common.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memTourRepo) FindByID(_ context.Context, id string) (*model.Tour, error) {
	if tour, ok := m.byID[id]; ok {
		cp := *tour
		return &cp, nil
	}
	return nil, common.ErrNotFound
}

func (m *memTourRepo) List(_ context.Context, _ []repository.TourFilter, _ []string, limit, offset int) ([]model.Tour, int, error) {
	m.lastLimit, m.lastOffset = limit, offset
	return []model.Tour{}, 0, nil
}

func (m *memTourRepo) Stats(context.Context, float64) (*model.TourStats, error) {
	return &model.TourStats{}, nil
}

func (m *memTourRepo) MonthlyPlan(context.Context, int) ([]model.MonthlyPlanEntry, error) {
	return []model.MonthlyPlanEntry{}, nil
}

func validCreateTour() CreateTourRequest {
	return CreateTourRequest{
		Name:         "The Forest Hiker",
		Duration:     5,
		MaxGroupSize: 25,
		Difficulty:   model.DifficultyEasy,
		Price:        397,
		Summary:      "Breathtaking hike through the Canadian Banff National Park",
	}
}

func TestCreateTour(t *testing.T) {
	t.Parallel()

	repo := newMemTourRepo()
	svc := NewTourService(repo, nil)

	tour, err := svc.CreateTour(context.Background(), validCreateTour())
	require.NoError(t, err)

	assert.Equal(t, "the-forest-hiker", tour.Slug)
	assert.Equal(t, 4.5, tour.RatingsAverage)
	assert.NotEmpty(t, tour.ID)
	assert.Contains(t, repo.byID, tour.ID)
}

func TestCreateTour_Invalid(t *testing.T) {
	t.Parallel()

	repo := newMemTourRepo()
	svc := NewTourService(repo, nil)

	tests := []struct {
		name   string
		mutate func(*CreateTourRequest)
	}{
		{"missing name", func(r *CreateTourRequest) { r.Name = "" }},
		{"zero duration", func(r *CreateTourRequest) { r.Duration = 0 }},
		{"unknown difficulty", func(r *CreateTourRequest) { r.Difficulty = "impossible" }},
		{"zero price", func(r *CreateTourRequest) { r.Price = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateTour()
			tt.mutate(&req)
			_, err := svc.CreateTour(context.Background(), req)
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}
	assert.Empty(t, repo.byID)
}

func TestUpdateTour_PartialAndSlug(t *testing.T) {
	t.Parallel()

	repo := newMemTourRepo()
	svc := NewTourService(repo, nil)

	created, err := svc.CreateTour(context.Background(), validCreateTour())
	require.NoError(t, err)

	newName := "The Sea Explorer"
	newPrice := 497.0
	updated, err := svc.UpdateTour(context.Background(), created.ID, UpdateTourRequest{
		Name:  &newName,
		Price: &newPrice,
	})
	require.NoError(t, err)

	assert.Equal(t, "the-sea-explorer", updated.Slug, "slug follows the name")
	assert.Equal(t, 497.0, updated.Price)
	assert.Equal(t, created.Duration, updated.Duration, "untouched fields survive")
}

func TestListTours_ClampsPaging(t *testing.T) {
	t.Parallel()

	repo := newMemTourRepo()
	svc := NewTourService(repo, nil)

	page, err := svc.ListTours(context.Background(), nil, nil, -3, 10000)
	require.NoError(t, err)

	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	assert.Equal(t, 20, repo.lastLimit)
	assert.Equal(t, 0, repo.lastOffset)
}

func TestProjectTourPage(t *testing.T) {
	t.Parallel()

	page := &TourPage{
		Tours: []model.Tour{
			{ID: "t1", Name: "The Forest Hiker", Slug: "the-forest-hiker", Price: 397, Summary: "hike"},
			{ID: "t2", Name: "The Sea Explorer", Slug: "the-sea-explorer", Price: 497, Summary: "sail"},
		},
		Total: 2, Page: 1, PageSize: 20,
	}

	projected, err := ProjectTourPage(page, []string{"name", "price", "hashed_password", " name "})
	require.NoError(t, err)

	require.Len(t, projected.Tours, 2)
	for _, row := range projected.Tours {
		assert.Len(t, row, 2, "only the selectable requested fields survive")
		assert.Contains(t, row, "name")
		assert.Contains(t, row, "price")
		assert.NotContains(t, row, "slug")
	}
	assert.Equal(t, `"The Forest Hiker"`, string(projected.Tours[0]["name"]))
	assert.Equal(t, 2, projected.Total)
	assert.Equal(t, 20, projected.PageSize)
}

func TestProjectTourPage_OmittedFieldStaysAbsent(t *testing.T) {
	t.Parallel()

	page := &TourPage{Tours: []model.Tour{{ID: "t1", Name: "The Forest Hiker"}}}

	// Description is empty, so its JSON key never appears; the projection
	// must not reintroduce it as null.
	projected, err := ProjectTourPage(page, []string{"name", "description"})
	require.NoError(t, err)

	require.Len(t, projected.Tours, 1)
	assert.Contains(t, projected.Tours[0], "name")
	assert.NotContains(t, projected.Tours[0], "description")
}

func TestProjectTourPage_NothingSelectable(t *testing.T) {
	t.Parallel()

	page := &TourPage{Tours: []model.Tour{{ID: "t1"}}}

	_, err := ProjectTourPage(page, []string{"hashed_password", "bogus"})
	assert.ErrorIs(t, err, common.ErrBadRequest)
}

func TestMonthlyPlan_YearRange(t *testing.T) {
	t.Parallel()

	svc := NewTourService(newMemTourRepo(), nil)

	_, err := svc.MonthlyPlan(context.Background(), 99)
	assert.ErrorIs(t, err, common.ErrBadRequest)

	_, err = svc.MonthlyPlan(context.Background(), 2026)
	assert.NoError(t, err)
}
