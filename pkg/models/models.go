package models

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// EditKind identifies one operation from the edit catalog. Every kind maps to
// a single request against the image model; the kinds differ only in the
// command text and parameters composed for that request.
type EditKind string

const (
	KindRetouch   EditKind = "retouch"
	KindFilter    EditKind = "filter"
	KindAdjust    EditKind = "adjust"
	KindExpand    EditKind = "expand"
	KindHarmonize EditKind = "harmonize"
	KindEnhance   EditKind = "enhance"
	KindCrop      EditKind = "crop"
	KindReframe   EditKind = "reframe"
	KindZoom      EditKind = "zoom"
	KindCombine   EditKind = "combine"
)

func ValidKinds() []EditKind {
	return []EditKind{
		KindRetouch, KindFilter, KindAdjust, KindExpand, KindHarmonize,
		KindEnhance, KindCrop, KindReframe, KindZoom, KindCombine,
	}
}

func (k EditKind) IsValid() bool {
	return slices.Contains(ValidKinds(), k)
}

func (k EditKind) String() string {
	return string(k)
}

// Hotspot is a user-selected point in image-pixel space (not display space).
type Hotspot struct {
	X int
	Y int
}

// CropRegion is a rectangle in image-pixel space.
type CropRegion struct {
	X      int
	Y      int
	Width  int
	Height int
}

func (r CropRegion) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// ImageVersion is one immutable snapshot of the edited image. Versions are
// created only by the initial open or by a successful model response and are
// never mutated afterwards.
type ImageVersion struct {
	Data      []byte
	MimeType  string
	Filename  string
	CreatedAt time.Time
}

func NewVersion(data []byte, mimeType string) *ImageVersion {
	now := time.Now()
	return &ImageVersion{
		Data:      data,
		MimeType:  mimeType,
		Filename:  GenerateFilename(mimeType, now),
		CreatedAt: now,
	}
}

func GenerateFilename(mimeType string, t time.Time) string {
	return fmt.Sprintf("edit-%s.%s", t.Format("20060102-150405"), ExtForMime(mimeType))
}

func ExtForMime(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	default:
		return "png"
	}
}

// MimeForPath maps a filename extension back to a mime type, defaulting to PNG.
func MimeForPath(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	default:
		return "image/png"
	}
}

// EditRequest carries everything one dispatch needs: the current image, the
// user's instruction, and the operation-specific parameters. It exists only
// for the duration of a single call and is never queued or retried.
type EditRequest struct {
	Kind        EditKind
	Instruction string

	Image     []byte
	ImageMime string

	// Combine carries a second source image.
	SecondImage     []byte
	SecondImageMime string

	Point       *Hotspot
	SecondPoint *Hotspot
	Region      *CropRegion

	AspectRatio string
	Preset      string
	ZoomLevel   int
	Fisheye     bool
}

// Validate checks the operation-specific preconditions. This runs before any
// network call; missing inputs are reported by field name.
func (r *EditRequest) Validate() error {
	if len(r.Image) == 0 {
		return ErrNoImageLoaded
	}
	if !r.Kind.IsValid() {
		return fmt.Errorf("%w: %s", ErrUnknownKind, r.Kind)
	}

	switch r.Kind {
	case KindRetouch, KindFilter, KindAdjust, KindEnhance, KindCombine:
		if strings.TrimSpace(r.Instruction) == "" {
			return &MissingInputError{Field: "instruction"}
		}
	}

	switch r.Kind {
	case KindRetouch:
		if r.Point == nil {
			return &MissingInputError{Field: "hotspot"}
		}
	case KindExpand:
		if _, err := ParseAspectRatio(r.AspectRatio); err != nil {
			return err
		}
	case KindHarmonize:
		if r.Point == nil {
			return &MissingInputError{Field: "subject hotspot"}
		}
		if r.SecondPoint == nil {
			return &MissingInputError{Field: "target hotspot"}
		}
	case KindEnhance:
		if r.Region == nil || r.Region.Empty() {
			return &MissingInputError{Field: "region"}
		}
	case KindReframe:
		if !ValidReframePreset(r.Preset) {
			return fmt.Errorf("%w: %q (valid: %s)", ErrUnknownPreset, r.Preset, strings.Join(ReframePresets(), ", "))
		}
	case KindZoom:
		if r.ZoomLevel < MinZoomLevel || r.ZoomLevel > MaxZoomLevel {
			return fmt.Errorf("%w: %d (valid: %d..%d)", ErrInvalidZoom, r.ZoomLevel, MinZoomLevel, MaxZoomLevel)
		}
	case KindCombine:
		if len(r.SecondImage) == 0 {
			return &MissingInputError{Field: "second image"}
		}
		if r.Point == nil {
			return &MissingInputError{Field: "insertion point"}
		}
	}

	return nil
}

// EditResult is a successful dispatch outcome: the generated image plus any
// text feedback the model attached alongside it.
type EditResult struct {
	Data     []byte
	MimeType string
	Feedback string
}

// CostInfo is the estimated price of one dispatch.
type CostInfo struct {
	PerImage float64
	Total    float64
	Currency string
}

// ParseAspectRatio parses "W:H" into a width/height ratio.
func ParseAspectRatio(s string) (float64, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q (expected W:H, e.g. 16:9)", ErrInvalidAspect, s)
	}
	w, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || w <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAspect, s)
	}
	h, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || h <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAspect, s)
	}
	return w / h, nil
}

// ReframePresets is the fixed catalog of camera positions for the reframe
// operation. Free-form camera text is deliberately not accepted.
func ReframePresets() []string {
	return []string{
		"eye-level",
		"low-angle",
		"high-angle",
		"overhead",
		"profile",
		"three-quarter",
		"wide-shot",
		"close-up",
	}
}

func ValidReframePreset(p string) bool {
	return slices.Contains(ReframePresets(), p)
}

const (
	MinZoomLevel = -2
	MaxZoomLevel = 3
)

var zoomInstructions = map[int]string{
	-2: "Zoom out substantially, as if the photograph were retaken from further back with a much wider focal length, revealing significantly more of the surrounding scene.",
	-1: "Zoom out moderately, as if the photograph were retaken with a wider focal length, revealing more of the surrounding scene.",
	0:  "Keep the current framing and focal length, re-rendering the photograph as-is.",
	1:  "Zoom in moderately on the main subject, as if the photograph were retaken with a longer focal length.",
	2:  "Zoom in substantially on the main subject, as if the photograph were retaken with a telephoto focal length.",
	3:  "Zoom in very tightly on the main subject, as if the photograph were retaken with an extreme telephoto focal length, the subject filling the frame.",
}

// ZoomInstruction returns the fixed command for a discrete zoom level.
func ZoomInstruction(level int) (string, bool) {
	s, ok := zoomInstructions[level]
	return s, ok
}
