package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/manash/pixedit/pkg/models"
)

var (
	ErrNoSession       = errors.New("no active session")
	ErrSessionNotFound = errors.New("session not found")
)

// Manager journals a linear edit history to the store so a session can be
// resumed later. Image bytes live as files under the session's image
// directory; the database holds positions, operations and the cursor.
type Manager struct {
	store         *Store
	current       *Session
	defaultModel  string
	lastVersionID string
}

func NewManager(store *Store, defaultModel string) *Manager {
	if defaultModel == "" {
		defaultModel = "gemini-2.5-flash-image"
	}
	return &Manager{
		store:        store,
		defaultModel: defaultModel,
	}
}

func (m *Manager) Current() *Session {
	return m.current
}

func (m *Manager) HasSession() bool {
	return m.current != nil
}

func (m *Manager) StartNew(ctx context.Context, name string) (*Session, error) {
	sess := &Session{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Cursor:    -1,
		Model:     m.defaultModel,
	}

	if err := m.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if _, err := EnsureImageDir(sess.ID); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}

	m.current = sess
	return sess, nil
}

func (m *Manager) Load(ctx context.Context, id string) error {
	sess, err := m.store.GetSession(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}
	m.current = sess
	return nil
}

// LoadHistory reads the persisted versions back into memory, in position
// order, together with the session's saved cursor.
func (m *Manager) LoadHistory(ctx context.Context) ([]*models.ImageVersion, int, error) {
	if m.current == nil {
		return nil, -1, ErrNoSession
	}

	rows, err := m.store.ListVersions(ctx, m.current.ID)
	if err != nil {
		return nil, -1, fmt.Errorf("failed to list versions: %w", err)
	}

	versions := make([]*models.ImageVersion, 0, len(rows))
	for _, row := range rows {
		data, err := os.ReadFile(row.ImagePath)
		if err != nil {
			return nil, -1, fmt.Errorf("failed to read version image: %w", err)
		}
		versions = append(versions, &models.ImageVersion{
			Data:      data,
			MimeType:  row.MimeType,
			Filename:  displayFilename(filepath.Base(row.ImagePath)),
			CreatedAt: row.CreatedAt,
		})
	}

	return versions, m.current.Cursor, nil
}

func (m *Manager) EnsureSession(ctx context.Context) error {
	if m.current == nil {
		_, err := m.StartNew(ctx, "")
		return err
	}
	return nil
}

// RecordAppend persists a freshly appended version. Rows at or past the
// new cursor are the discarded redo tail and are removed first so the
// journal stays linear.
func (m *Manager) RecordAppend(ctx context.Context, op, instruction string, v *models.ImageVersion, cursor int) error {
	if err := m.EnsureSession(ctx); err != nil {
		return err
	}

	if err := m.store.DeleteVersionsFrom(ctx, m.current.ID, cursor); err != nil {
		return fmt.Errorf("failed to truncate versions: %w", err)
	}

	dir, err := EnsureImageDir(m.current.ID)
	if err != nil {
		return fmt.Errorf("failed to create image directory: %w", err)
	}
	imagePath := filepath.Join(dir, storedFilename(cursor, v.Filename))
	if err := os.WriteFile(imagePath, v.Data, 0644); err != nil {
		return fmt.Errorf("failed to write version image: %w", err)
	}

	row := &Version{
		ID:          uuid.New().String(),
		SessionID:   m.current.ID,
		Position:    cursor,
		Operation:   op,
		Instruction: instruction,
		ImagePath:   imagePath,
		MimeType:    v.MimeType,
		CreatedAt:   v.CreatedAt,
	}
	if err := m.store.CreateVersion(ctx, row); err != nil {
		return fmt.Errorf("failed to create version: %w", err)
	}
	m.lastVersionID = row.ID

	m.current.Cursor = cursor
	m.current.UpdatedAt = time.Now()
	if err := m.store.UpdateSession(ctx, m.current); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

// storedFilename prefixes the position so two versions generated within the
// same second never share a path on disk.
func storedFilename(position int, name string) string {
	return fmt.Sprintf("%03d-%s", position, name)
}

// displayFilename strips the position prefix added by storedFilename.
func displayFilename(base string) string {
	if len(base) > 4 && base[3] == '-' {
		if _, err := strconv.Atoi(base[:3]); err == nil {
			return base[4:]
		}
	}
	return base
}

// RecordCursor persists an undo/redo/reset cursor move. Versions are kept;
// only the pointer changes.
func (m *Manager) RecordCursor(ctx context.Context, cursor int) error {
	if m.current == nil {
		return ErrNoSession
	}
	m.current.Cursor = cursor
	m.current.UpdatedAt = time.Now()
	return m.store.UpdateSession(ctx, m.current)
}

// LastVersionID returns the row ID of the most recently recorded version,
// so callers can attach cost entries to it.
func (m *Manager) LastVersionID() string {
	return m.lastVersionID
}

func (m *Manager) Versions(ctx context.Context) ([]*Version, error) {
	if m.current == nil {
		return nil, nil
	}
	return m.store.ListVersions(ctx, m.current.ID)
}

func (m *Manager) ListSessions(ctx context.Context) ([]*Session, error) {
	return m.store.ListSessions(ctx)
}

func (m *Manager) DeleteSession(ctx context.Context, id string) error {
	if m.current != nil && m.current.ID == id {
		m.current = nil
	}
	if dir, err := ImageDir(id); err == nil {
		os.RemoveAll(dir)
	}
	return m.store.DeleteSession(ctx, id)
}

func (m *Manager) RenameSession(ctx context.Context, name string) error {
	if m.current == nil {
		return ErrNoSession
	}
	m.current.Name = name
	m.current.UpdatedAt = time.Now()
	return m.store.UpdateSession(ctx, m.current)
}

func (m *Manager) SetModel(model string) {
	m.defaultModel = model
	if m.current != nil {
		m.current.Model = model
	}
}

func (m *Manager) GetModel() string {
	if m.current != nil {
		return m.current.Model
	}
	return m.defaultModel
}

func (m *Manager) VersionCount(ctx context.Context) (int, error) {
	if m.current == nil {
		return 0, nil
	}
	return m.store.CountVersions(ctx, m.current.ID)
}

func (m *Manager) LogCost(ctx context.Context, entry *CostEntry) error {
	return m.store.LogCost(ctx, entry)
}

func (m *Manager) GetCostByDateRange(ctx context.Context, start, end time.Time) (*CostSummary, error) {
	return m.store.GetCostByDateRange(ctx, start, end)
}

func (m *Manager) GetTotalCost(ctx context.Context) (*CostSummary, error) {
	return m.store.GetTotalCost(ctx)
}

func (m *Manager) GetSessionCost(ctx context.Context) (*CostSummary, error) {
	if m.current == nil {
		return &CostSummary{}, nil
	}
	return m.store.GetSessionCost(ctx, m.current.ID)
}
