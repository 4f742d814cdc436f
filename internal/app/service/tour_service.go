package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"trailwise/internal/common"
	"trailwise/internal/domain/model"
	"trailwise/internal/domain/repository"
	"trailwise/internal/platform/cache"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const tourCachePrefix = "tours:"

type TourService struct {
	tourRepo repository.TourRepository
	cache    *cache.Cache
	validate *validator.Validate
}

func NewTourService(tourRepo repository.TourRepository, c *cache.Cache) *TourService {
	return &TourService{
		tourRepo: tourRepo,
		cache:    c,
		validate: validator.New(),
	}
}

type CreateTourRequest struct {
	Name         string               `json:"name" validate:"required,min=3,max=40"`
	Duration     int                  `json:"duration" validate:"required,gt=0"`
	MaxGroupSize int                  `json:"max_group_size" validate:"required,gt=0"`
	Difficulty   model.TourDifficulty `json:"difficulty" validate:"required,oneof=easy medium difficult"`
	Price        float64              `json:"price" validate:"required,gt=0"`
	Summary      string               `json:"summary" validate:"required"`
	Description  string               `json:"description"`
	StartDates   []time.Time          `json:"start_dates"`
}

type UpdateTourRequest struct {
	Name         *string               `json:"name,omitempty"`
	Duration     *int                  `json:"duration,omitempty"`
	MaxGroupSize *int                  `json:"max_group_size,omitempty"`
	Difficulty   *model.TourDifficulty `json:"difficulty,omitempty"`
	Price        *float64              `json:"price,omitempty"`
	Summary      *string               `json:"summary,omitempty"`
	Description  *string               `json:"description,omitempty"`
	StartDates   *[]time.Time          `json:"start_dates,omitempty"`
}

type TourPage struct {
	Tours    []model.Tour `json:"tours"`
	Total    int          `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
}

// projectableTourFields are the JSON keys the fields= list parameter may
// select; anything else is dropped like an unknown filter column.
var projectableTourFields = map[string]bool{
	"id": true, "name": true, "slug": true, "duration": true,
	"max_group_size": true, "difficulty": true, "ratings_average": true,
	"ratings_quantity": true, "price": true, "summary": true,
	"description": true, "start_dates": true, "created_at": true,
	"updated_at": true,
}

// ProjectedTourPage is a TourPage narrowed to a caller-chosen field set.
type ProjectedTourPage struct {
	Tours    []map[string]json.RawMessage `json:"tours"`
	Total    int                          `json:"total"`
	Page     int                          `json:"page"`
	PageSize int                          `json:"page_size"`
}

// ProjectTourPage keeps only the requested JSON fields on every tour in the
// page. Unknown field names are silently dropped; a request that selects
// nothing valid is a bad request.
func ProjectTourPage(page *TourPage, fields []string) (*ProjectedTourPage, error) {
	selected := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if !projectableTourFields[field] || seen[field] {
			continue
		}
		seen[field] = true
		selected = append(selected, field)
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no selectable tour fields in %q: %w",
			strings.Join(fields, ","), common.ErrBadRequest)
	}

	projected := make([]map[string]json.RawMessage, 0, len(page.Tours))
	for _, tour := range page.Tours {
		raw, err := json.Marshal(tour)
		if err != nil {
			return nil, fmt.Errorf("projecting tour %s: %w", tour.ID, err)
		}
		var full map[string]json.RawMessage
		if err := json.Unmarshal(raw, &full); err != nil {
			return nil, fmt.Errorf("projecting tour %s: %w", tour.ID, err)
		}
		row := make(map[string]json.RawMessage, len(selected))
		for _, field := range selected {
			// Fields hidden by omitempty stay absent rather than null.
			if v, ok := full[field]; ok {
				row[field] = v
			}
		}
		projected = append(projected, row)
	}

	return &ProjectedTourPage{
		Tours:    projected,
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}, nil
}

func (s *TourService) CreateTour(ctx context.Context, req CreateTourRequest) (*model.Tour, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid tour: %v: %w", err, common.ErrValidation)
	}

	tour := &model.Tour{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Slug:           slug.Make(req.Name),
		Duration:       req.Duration,
		MaxGroupSize:   req.MaxGroupSize,
		Difficulty:     req.Difficulty,
		RatingsAverage: 4.5,
		Price:          req.Price,
		Summary:        req.Summary,
		Description:    req.Description,
		StartDates:     req.StartDates,
	}

	if err := s.tourRepo.Create(ctx, tour); err != nil {
		return nil, err
	}
	s.cache.InvalidatePrefix(ctx, tourCachePrefix)
	return tour, nil
}

func (s *TourService) UpdateTour(ctx context.Context, id string, req UpdateTourRequest) (*model.Tour, error) {
	tour, err := s.tourRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		tour.Name = *req.Name
		tour.Slug = slug.Make(*req.Name)
	}
	if req.Duration != nil {
		tour.Duration = *req.Duration
	}
	if req.MaxGroupSize != nil {
		tour.MaxGroupSize = *req.MaxGroupSize
	}
	if req.Difficulty != nil {
		if !req.Difficulty.Valid() {
			return nil, fmt.Errorf("unknown difficulty %q: %w", *req.Difficulty, common.ErrValidation)
		}
		tour.Difficulty = *req.Difficulty
	}
	if req.Price != nil {
		tour.Price = *req.Price
	}
	if req.Summary != nil {
		tour.Summary = *req.Summary
	}
	if req.Description != nil {
		tour.Description = *req.Description
	}
	if req.StartDates != nil {
		tour.StartDates = *req.StartDates
	}

	if err := s.tourRepo.Update(ctx, tour); err != nil {
		return nil, err
	}
	s.cache.InvalidatePrefix(ctx, tourCachePrefix)
	return tour, nil
}

func (s *TourService) DeleteTour(ctx context.Context, id string) error {
	if err := s.tourRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.InvalidatePrefix(ctx, tourCachePrefix)
	return nil
}

func (s *TourService) GetTour(ctx context.Context, id string) (*model.Tour, error) {
	return s.tourRepo.FindByID(ctx, id)
}

func (s *TourService) ListTours(ctx context.Context, filters []repository.TourFilter, sortBy []string, page, pageSize int) (*TourPage, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	key := listCacheKey(filters, sortBy, page, pageSize)
	if raw, ok := s.cache.Get(ctx, key); ok {
		var cached TourPage
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &cached, nil
		}
	}

	tours, total, err := s.tourRepo.List(ctx, filters, sortBy, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	result := &TourPage{Tours: tours, Total: total, Page: page, PageSize: pageSize}
	if raw, err := json.Marshal(result); err == nil {
		s.cache.Set(ctx, key, raw)
	}
	return result, nil
}

func (s *TourService) TourStats(ctx context.Context) (*model.TourStats, error) {
	key := tourCachePrefix + "stats"
	if raw, ok := s.cache.Get(ctx, key); ok {
		var cached model.TourStats
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &cached, nil
		}
	}

	stats, err := s.tourRepo.Stats(ctx, 4.5)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(stats); err == nil {
		s.cache.Set(ctx, key, raw)
	}
	return stats, nil
}

func (s *TourService) MonthlyPlan(ctx context.Context, year int) ([]model.MonthlyPlanEntry, error) {
	if year < 1900 || year > 2100 {
		return nil, fmt.Errorf("year %d out of range: %w", year, common.ErrBadRequest)
	}
	return s.tourRepo.MonthlyPlan(ctx, year)
}

func listCacheKey(filters []repository.TourFilter, sortBy []string, page, pageSize int) string {
	key := fmt.Sprintf("%slist:p%d:s%d", tourCachePrefix, page, pageSize)
	for _, f := range filters {
		key += fmt.Sprintf(":%s.%s.%s", f.Field, f.Op, f.Value)
	}
	for _, sort := range sortBy {
		key += ":o." + sort
	}
	return key
}
