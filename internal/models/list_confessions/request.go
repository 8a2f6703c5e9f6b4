package models

// ListConfessionsRequest carries the raw query string parameters of the list endpoint.
// Everything is a string so that malformed numbers fall back to defaults instead of failing.
type ListConfessionsRequest struct {
	Page      string `form:"page"`
	Limit     string `form:"limit"`
	City      string `form:"city"`
	Sex       string `form:"sex"`
	AgeMin    string `form:"ageMin"`
	AgeMax    string `form:"ageMax"`
	Search    string `form:"search"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"`
}
