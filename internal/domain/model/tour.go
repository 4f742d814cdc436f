package model

import (
	"time"
)

type TourDifficulty string

const (
	DifficultyEasy      TourDifficulty = "easy"
	DifficultyMedium    TourDifficulty = "medium"
	DifficultyDifficult TourDifficulty = "difficult"
)

func (d TourDifficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyDifficult:
		return true
	}
	return false
}

type Tour struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Slug            string         `json:"slug"`
	Duration        int            `json:"duration"` // days
	MaxGroupSize    int            `json:"max_group_size"`
	Difficulty      TourDifficulty `json:"difficulty"`
	RatingsAverage  float64        `json:"ratings_average"`
	RatingsQuantity int            `json:"ratings_quantity"`
	Price           float64        `json:"price"`
	Summary         string         `json:"summary"`
	Description     string         `json:"description,omitempty"`
	StartDates      []time.Time    `json:"start_dates,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// TourStats is the aggregate row produced by the stats query.
type TourStats struct {
	NumTours   int     `json:"num_tours"`
	NumRatings int     `json:"num_ratings"`
	AvgRating  float64 `json:"avg_rating"`
	AvgPrice   float64 `json:"avg_price"`
	MinPrice   float64 `json:"min_price"`
	MaxPrice   float64 `json:"max_price"`
}

// MonthlyPlanEntry counts tour starts for one month of a year.
type MonthlyPlanEntry struct {
	Month         int      `json:"month"`
	NumTourStarts int      `json:"num_tour_starts"`
	Tours         []string `json:"tours"`
}
