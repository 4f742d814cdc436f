package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"trailwise/internal/app/service"
	"trailwise/internal/common"
	"trailwise/internal/domain/repository"

	"github.com/go-chi/chi/v5"
)

type TourHandler struct {
	tourService *service.TourService
}

func NewTourHandler(ts *service.TourService) *TourHandler {
	return &TourHandler{tourService: ts}
}

func (h *TourHandler) RegisterPublicRoutes(r chi.Router) {
	// GET /api/v1/tours?price[lte]=1500&sort=-ratings_average&fields=name,price&page=2&limit=10
	r.Get("/", h.listTours)
	r.Get("/top-5-cheap", h.topFiveCheap)
	r.Get("/stats", h.tourStats)
	r.Get("/monthly-plan/{year}", h.monthlyPlan)
	r.Get("/{tourID}", h.getTour)
}

// RegisterProtectedRoutes holds the write endpoints; the router wraps them in
// the session guard and the lead-guide/admin role gate.
func (h *TourHandler) RegisterProtectedRoutes(r chi.Router) {
	r.Post("/", h.createTour)
	r.Patch("/{tourID}", h.updateTour)
	r.Delete("/{tourID}", h.deleteTour)
}

// reservedListParams are query keys with pagination, sorting or projection
// meaning; every other key is treated as a field filter, optionally with an
// [op] suffix.
var reservedListParams = map[string]bool{
	"page": true, "limit": true, "sort": true, "fields": true,
}

func parseTourFilters(query map[string][]string) []repository.TourFilter {
	var filters []repository.TourFilter
	for rawKey, values := range query {
		if len(values) == 0 {
			continue
		}
		field, op := rawKey, "eq"
		if i := strings.IndexByte(rawKey, '['); i > 0 && strings.HasSuffix(rawKey, "]") {
			field, op = rawKey[:i], rawKey[i+1:len(rawKey)-1]
		}
		if reservedListParams[field] {
			continue
		}
		filters = append(filters, repository.TourFilter{Field: field, Op: op, Value: values[0]})
	}
	return filters
}

func (h *TourHandler) listTours(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, _ := strconv.Atoi(query.Get("page"))
	pageSize, _ := strconv.Atoi(query.Get("limit"))

	var sortBy []string
	if sortParam := query.Get("sort"); sortParam != "" {
		sortBy = strings.Split(sortParam, ",")
	}

	var fields []string
	if fieldsParam := query.Get("fields"); fieldsParam != "" {
		fields = strings.Split(fieldsParam, ",")
	}

	result, err := h.tourService.ListTours(r.Context(), parseTourFilters(query), sortBy, page, pageSize)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	h.respondWithPage(w, result, fields)
}

// topFiveCheap is the preset alias for five best-rated tours, cheapest first
// on ties, trimmed down to the card fields.
func (h *TourHandler) topFiveCheap(w http.ResponseWriter, r *http.Request) {
	sortBy := []string{"-ratings_average", "price"}
	fields := []string{"name", "price", "ratings_average", "summary", "difficulty"}
	result, err := h.tourService.ListTours(r.Context(), nil, sortBy, 1, 5)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	h.respondWithPage(w, result, fields)
}

// respondWithPage writes a tour page, narrowed to the requested fields when
// the caller asked for any.
func (h *TourHandler) respondWithPage(w http.ResponseWriter, page *service.TourPage, fields []string) {
	results := len(page.Tours)
	var data interface{} = page
	if len(fields) > 0 {
		projected, err := service.ProjectTourPage(page, fields)
		if err != nil {
			common.RespondWithDomainError(w, err)
			return
		}
		data = projected
	}
	common.RespondWithJSON(w, http.StatusOK, common.SuccessResponse{
		Status:  "success",
		Results: &results,
		Data:    data,
	})
}

func (h *TourHandler) tourStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.tourService.TourStats(r.Context())
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, common.SuccessResponse{
		Status: "success",
		Data:   map[string]interface{}{"stats": stats},
	})
}

func (h *TourHandler) monthlyPlan(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid year")
		return
	}

	plan, err := h.tourService.MonthlyPlan(r.Context(), year)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, common.SuccessResponse{
		Status: "success",
		Data:   map[string]interface{}{"plan": plan},
	})
}

func (h *TourHandler) getTour(w http.ResponseWriter, r *http.Request) {
	tour, err := h.tourService.GetTour(r.Context(), chi.URLParam(r, "tourID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, common.SuccessResponse{
		Status: "success",
		Data:   map[string]interface{}{"tour": tour},
	})
}

func (h *TourHandler) createTour(w http.ResponseWriter, r *http.Request) {
	var req service.CreateTourRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	tour, err := h.tourService.CreateTour(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, common.SuccessResponse{
		Status: "success",
		Data:   map[string]interface{}{"tour": tour},
	})
}

func (h *TourHandler) updateTour(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateTourRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	tour, err := h.tourService.UpdateTour(r.Context(), chi.URLParam(r, "tourID"), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, common.SuccessResponse{
		Status: "success",
		Data:   map[string]interface{}{"tour": tour},
	})
}

func (h *TourHandler) deleteTour(w http.ResponseWriter, r *http.Request) {
	if err := h.tourService.DeleteTour(r.Context(), chi.URLParam(r, "tourID")); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
