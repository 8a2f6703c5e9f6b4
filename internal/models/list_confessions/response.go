package models

import (
	confessionmodels "io.winapps.confessionboard/internal/models/confession"
)

type ListConfessionsResponse struct {
	Confessions []confessionmodels.Confession `json:"confessions"`
	TotalPages  int                           `json:"totalPages"`
	CurrentPage int                           `json:"currentPage"`
	Total       int                           `json:"total"`
}
