package session

import (
	"encoding/json"
	"time"
)

type Session struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
	Cursor    int
	Model     string
}

type Version struct {
	ID          string
	SessionID   string
	Position    int
	Operation   string // "open", "retouch", "filter", ...
	Instruction string
	ImagePath   string
	MimeType    string
	CreatedAt   time.Time
	Metadata    VersionMetadata
}

type VersionMetadata struct {
	Width       int     `json:"width,omitempty"`
	Height      int     `json:"height,omitempty"`
	AspectRatio string  `json:"aspect_ratio,omitempty"`
	Preset      string  `json:"preset,omitempty"`
	ZoomLevel   int     `json:"zoom_level,omitempty"`
	Cost        float64 `json:"cost,omitempty"`
	Provider    string  `json:"provider,omitempty"`
}

func (m *VersionMetadata) ToJSON() string {
	data, _ := json.Marshal(m)
	return string(data)
}

func ParseVersionMetadata(data string) VersionMetadata {
	var m VersionMetadata
	if data != "" {
		json.Unmarshal([]byte(data), &m)
	}
	return m
}
