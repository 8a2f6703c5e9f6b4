package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Bounds enforced on submissions
const (
	MinAge               = 13
	MaxAge               = 100
	MinDescriptionLength = 10
	MaxDescriptionLength = 1000
	MaxCityLength        = 255
)

// ErrValidation is wrapped by every submission validation failure
var ErrValidation = errors.New("validation failed")

type Sex string

const (
	SexMale   Sex = "Male"
	SexFemale Sex = "Female"
	SexOther  Sex = "Other"
)

func (s Sex) Valid() bool {
	switch s {
	case SexMale, SexFemale, SexOther:
		return true
	}
	return false
}

// Confession is a stored row of the confessions table
type Confession struct {
	ID          int64     `json:"id"`
	City        string    `json:"city"`
	Sex         Sex       `json:"sex"`
	Age         int       `json:"age"`
	Description string    `json:"description"`
	AudioPath   *string   `json:"audio_path"`
	AudioURL    string    `json:"audio_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Body is the content of a confession: either a TextBody or an AudioBody.
type Body interface {
	isBody()
}

type TextBody struct {
	Description string
}

// AudioBody references an uploaded recording. Caption is optional.
type AudioBody struct {
	Key     string
	Caption string
}

func (TextBody) isBody()  {}
func (AudioBody) isBody() {}

// NewConfession is a validated submission waiting to be inserted
type NewConfession struct {
	City string
	Sex  Sex
	Age  int
	Body Body
}

// Columns maps the body variant onto the description and audio_path columns.
// Audio confessions never get a NULL description.
func (n NewConfession) Columns() (description string, audioPath *string) {
	switch b := n.Body.(type) {
	case TextBody:
		return b.Description, nil
	case AudioBody:
		key := b.Key
		return b.Caption, &key
	}
	return "", nil
}

// Validate checks the submission against the server-side bounds
func (n NewConfession) Validate() error {
	city := strings.TrimSpace(n.City)
	if city == "" {
		return fmt.Errorf("%w: city is required", ErrValidation)
	}
	if utf8.RuneCountInString(city) > MaxCityLength {
		return fmt.Errorf("%w: city must be at most %d characters", ErrValidation, MaxCityLength)
	}
	if !n.Sex.Valid() {
		return fmt.Errorf("%w: sex must be one of Male, Female, Other", ErrValidation)
	}
	if n.Age < MinAge || n.Age > MaxAge {
		return fmt.Errorf("%w: age must be between %d and %d", ErrValidation, MinAge, MaxAge)
	}

	switch b := n.Body.(type) {
	case TextBody:
		l := utf8.RuneCountInString(strings.TrimSpace(b.Description))
		if l < MinDescriptionLength || l > MaxDescriptionLength {
			return fmt.Errorf("%w: description must be between %d and %d characters",
				ErrValidation, MinDescriptionLength, MaxDescriptionLength)
		}
	case AudioBody:
		if b.Key == "" {
			return fmt.Errorf("%w: audio reference is empty", ErrValidation)
		}
		if utf8.RuneCountInString(b.Caption) > MaxDescriptionLength {
			return fmt.Errorf("%w: description must be at most %d characters", ErrValidation, MaxDescriptionLength)
		}
	default:
		return fmt.Errorf("%w: either description or audio is required", ErrValidation)
	}

	return nil
}
