package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfession_Columns(t *testing.T) {
	desc, audio := NewConfession{Body: TextBody{Description: "hello world"}}.Columns()
	assert.Equal(t, "hello world", desc)
	assert.Nil(t, audio)

	desc, audio = NewConfession{Body: AudioBody{Key: "1-a.webm"}}.Columns()
	assert.Equal(t, "", desc)
	require.NotNil(t, audio)
	assert.Equal(t, "1-a.webm", *audio)

	desc, audio = NewConfession{Body: AudioBody{Key: "1-a.webm", Caption: "listen"}}.Columns()
	assert.Equal(t, "listen", desc)
	require.NotNil(t, audio)
}

func TestNewConfession_Validate(t *testing.T) {
	valid := NewConfession{City: "Paris", Sex: SexFemale, Age: 22, Body: TextBody{Description: "This is my secret."}}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*NewConfession)
	}{
		{"blank city", func(n *NewConfession) { n.City = "   " }},
		{"long city", func(n *NewConfession) { n.City = strings.Repeat("x", MaxCityLength+1) }},
		{"unknown sex", func(n *NewConfession) { n.Sex = "female" }},
		{"too young", func(n *NewConfession) { n.Age = MinAge - 1 }},
		{"too old", func(n *NewConfession) { n.Age = MaxAge + 1 }},
		{"short description", func(n *NewConfession) { n.Body = TextBody{Description: "  short   "} }},
		{"long description", func(n *NewConfession) { n.Body = TextBody{Description: strings.Repeat("x", MaxDescriptionLength+1)} }},
		{"no body", func(n *NewConfession) { n.Body = nil }},
		{"audio without key", func(n *NewConfession) { n.Body = AudioBody{} }},
		{"long caption", func(n *NewConfession) {
			n.Body = AudioBody{Key: "k", Caption: strings.Repeat("x", MaxDescriptionLength+1)}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := valid
			tt.mutate(&n)
			assert.ErrorIs(t, n.Validate(), ErrValidation)
		})
	}
}

func TestNewConfession_ValidateBoundaries(t *testing.T) {
	n := NewConfession{City: "Oslo", Sex: SexOther, Age: MinAge, Body: TextBody{Description: strings.Repeat("é", MinDescriptionLength)}}
	assert.NoError(t, n.Validate())

	n.Age = MaxAge
	n.Body = TextBody{Description: strings.Repeat("x", MaxDescriptionLength)}
	assert.NoError(t, n.Validate())

	n.Body = AudioBody{Key: "1-a.webm"}
	assert.NoError(t, n.Validate())
}
