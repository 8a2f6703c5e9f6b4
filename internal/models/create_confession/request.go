package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CreateConfessionRequest is bound from either a JSON body or a multipart form.
// The audio file itself is read separately from the "audio" form field.
type CreateConfessionRequest struct {
	City        string `json:"city" form:"city" binding:"required,max=255"`
	Sex         string `json:"sex" form:"sex" binding:"required,oneof=Male Female Other"`
	Age         Age    `json:"age" form:"age" binding:"required,min=13,max=100"`
	Description string `json:"description" form:"description" binding:"max=1000"`
}

// Age accepts both 22 and "22" in JSON since the web form submits strings.
type Age int

func (a *Age) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*a = Age(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("age must be a number")
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("age must be a number")
	}
	*a = Age(n)
	return nil
}
