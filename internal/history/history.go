package history

import (
	"errors"

	"github.com/manash/pixedit/pkg/models"
)

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Store is the in-memory linear edit history: an ordered sequence of image
// versions plus a cursor. The cursor is in [0, len-1] whenever the store is
// non-empty and -1 when empty.
//
// Transient interaction state (hotspots, crop region) lives here too because
// its lifecycle is bound to the history: every successful append invalidates
// prior selections, since the image content they pointed into has changed.
type Store struct {
	versions []*models.ImageVersion
	cursor   int

	hotspot *models.Hotspot
	target  *models.Hotspot
	region  *models.CropRegion
}

func New() *Store {
	return &Store{cursor: -1}
}

// Append discards every version after the cursor (the redo tail), appends v,
// and moves the cursor to the new last index. All transient selections are
// cleared. The redo tail is empty immediately after every append.
func (s *Store) Append(v *models.ImageVersion) {
	s.versions = append(s.versions[:s.cursor+1], v)
	s.cursor = len(s.versions) - 1
	s.ClearTransient()
}

// Undo steps the cursor back one version. It is a reported no-op at the
// first version.
func (s *Store) Undo() (*models.ImageVersion, error) {
	if s.cursor <= 0 {
		return nil, ErrNothingToUndo
	}
	s.cursor--
	return s.versions[s.cursor], nil
}

// Redo steps the cursor forward one version. It is a reported no-op at the
// last version.
func (s *Store) Redo() (*models.ImageVersion, error) {
	if s.cursor < 0 || s.cursor >= len(s.versions)-1 {
		return nil, ErrNothingToRedo
	}
	s.cursor++
	return s.versions[s.cursor], nil
}

// Reset moves the cursor back to the original version without truncating:
// unlike Append, later versions stay reachable through Redo.
func (s *Store) Reset() (*models.ImageVersion, error) {
	if len(s.versions) == 0 {
		return nil, models.ErrNoImageLoaded
	}
	s.cursor = 0
	return s.versions[0], nil
}

// Current returns the version at the cursor.
func (s *Store) Current() (*models.ImageVersion, error) {
	if s.cursor < 0 {
		return nil, models.ErrNoImageLoaded
	}
	return s.versions[s.cursor], nil
}

func (s *Store) Len() int {
	return len(s.versions)
}

func (s *Store) Cursor() int {
	return s.cursor
}

func (s *Store) CanUndo() bool {
	return s.cursor > 0
}

func (s *Store) CanRedo() bool {
	return s.cursor >= 0 && s.cursor < len(s.versions)-1
}

// Versions returns a copy of the ordered version list.
func (s *Store) Versions() []*models.ImageVersion {
	out := make([]*models.ImageVersion, len(s.versions))
	copy(out, s.versions)
	return out
}

// Restore replaces the store contents, used when resuming a saved session.
// An out-of-range cursor is clamped to the last version.
func (s *Store) Restore(versions []*models.ImageVersion, cursor int) {
	s.versions = append([]*models.ImageVersion(nil), versions...)
	switch {
	case len(s.versions) == 0:
		s.cursor = -1
	case cursor < 0:
		s.cursor = 0
	case cursor >= len(s.versions):
		s.cursor = len(s.versions) - 1
	default:
		s.cursor = cursor
	}
	s.ClearTransient()
}

func (s *Store) SetHotspot(p models.Hotspot) {
	s.hotspot = &p
}

func (s *Store) Hotspot() *models.Hotspot {
	return s.hotspot
}

func (s *Store) SetTarget(p models.Hotspot) {
	s.target = &p
}

func (s *Store) Target() *models.Hotspot {
	return s.target
}

func (s *Store) SetRegion(r models.CropRegion) {
	s.region = &r
}

func (s *Store) Region() *models.CropRegion {
	return s.region
}

// ClearTransient drops all point and region selections. Called on every
// append.
func (s *Store) ClearTransient() {
	s.hotspot = nil
	s.target = nil
	s.region = nil
}
