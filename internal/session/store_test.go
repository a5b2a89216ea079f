package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func testStore(t *testing.T) (*Store, func()) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewStoreWithPath(dbPath)
	if err != nil {
		t.Fatalf("NewStoreWithPath() error = %v", err)
	}
	return store, func() { store.Close() }
}

func testSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		Name:      "test",
		CreatedAt: now,
		UpdatedAt: now,
		Cursor:    -1,
		Model:     "gemini-2.5-flash-image",
	}
}

func testVersion(id, sessionID string, position int) *Version {
	return &Version{
		ID:        id,
		SessionID: sessionID,
		Position:  position,
		Operation: "filter",
		ImagePath: "/tmp/" + id + ".png",
		MimeType:  "image/png",
		CreatedAt: time.Now(),
	}
}

func TestStore_SessionCRUD(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	ctx := context.Background()

	sess := testSession("s1")
	if err := store.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	got, err := store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.Name != "test" || got.Cursor != -1 || got.Model != "gemini-2.5-flash-image" {
		t.Errorf("GetSession() = %+v", got)
	}

	got.Name = "renamed"
	got.Cursor = 2
	if err := store.UpdateSession(ctx, got); err != nil {
		t.Fatalf("UpdateSession() error = %v", err)
	}
	got, err = store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.Name != "renamed" || got.Cursor != 2 {
		t.Errorf("GetSession() after update = %+v", got)
	}

	if err := store.DeleteSession(ctx, "s1"); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	if _, err := store.GetSession(ctx, "s1"); err == nil {
		t.Error("GetSession() after delete error = nil, want error")
	}
}

func TestStore_ListSessions(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := store.CreateSession(ctx, testSession(id)); err != nil {
			t.Fatalf("CreateSession() error = %v", err)
		}
	}

	sessions, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(sessions) != 3 {
		t.Errorf("ListSessions() returned %d sessions, want 3", len(sessions))
	}
}

func TestStore_VersionsOrderedByPosition(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.CreateSession(ctx, testSession("s1")); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	// Insert out of order on purpose.
	for _, pos := range []int{2, 0, 1} {
		v := testVersion(string(rune('a'+pos)), "s1", pos)
		if err := store.CreateVersion(ctx, v); err != nil {
			t.Fatalf("CreateVersion() error = %v", err)
		}
	}

	versions, err := store.ListVersions(ctx, "s1")
	if err != nil {
		t.Fatalf("ListVersions() error = %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("ListVersions() returned %d versions, want 3", len(versions))
	}
	for i, v := range versions {
		if v.Position != i {
			t.Errorf("versions[%d].Position = %d, want %d", i, v.Position, i)
		}
	}
}

func TestStore_VersionMetadataRoundTrip(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.CreateSession(ctx, testSession("s1")); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	v := testVersion("v1", "s1", 0)
	v.Instruction = "warmer tones"
	v.Metadata = VersionMetadata{
		Width:       1024,
		Height:      768,
		AspectRatio: "4:3",
		Cost:        0.039,
		Provider:    "gemini",
	}
	if err := store.CreateVersion(ctx, v); err != nil {
		t.Fatalf("CreateVersion() error = %v", err)
	}

	got, err := store.GetVersion(ctx, "v1")
	if err != nil {
		t.Fatalf("GetVersion() error = %v", err)
	}
	if got.Instruction != "warmer tones" {
		t.Errorf("GetVersion() instruction = %q", got.Instruction)
	}
	if got.Metadata.Width != 1024 || got.Metadata.AspectRatio != "4:3" {
		t.Errorf("GetVersion() metadata = %+v", got.Metadata)
	}
}

func TestStore_DeleteVersionsFrom(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.CreateSession(ctx, testSession("s1")); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	for pos := 0; pos < 4; pos++ {
		if err := store.CreateVersion(ctx, testVersion(string(rune('a'+pos)), "s1", pos)); err != nil {
			t.Fatalf("CreateVersion() error = %v", err)
		}
	}

	if err := store.DeleteVersionsFrom(ctx, "s1", 2); err != nil {
		t.Fatalf("DeleteVersionsFrom() error = %v", err)
	}

	count, err := store.CountVersions(ctx, "s1")
	if err != nil {
		t.Fatalf("CountVersions() error = %v", err)
	}
	if count != 2 {
		t.Errorf("CountVersions() = %d after truncation, want 2", count)
	}

	versions, err := store.ListVersions(ctx, "s1")
	if err != nil {
		t.Fatalf("ListVersions() error = %v", err)
	}
	for _, v := range versions {
		if v.Position >= 2 {
			t.Errorf("version at position %d survived truncation", v.Position)
		}
	}
}

func TestStore_CostQueries(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.CreateSession(ctx, testSession("s1")); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if err := store.CreateSession(ctx, testSession("s2")); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if err := store.CreateVersion(ctx, testVersion("v1", "s1", 0)); err != nil {
		t.Fatalf("CreateVersion() error = %v", err)
	}
	if err := store.CreateVersion(ctx, testVersion("v2", "s2", 0)); err != nil {
		t.Fatalf("CreateVersion() error = %v", err)
	}

	now := time.Now()
	entries := []*CostEntry{
		{VersionID: "v1", SessionID: "s1", Provider: "gemini", Model: "gemini-2.5-flash-image", Cost: 0.039, ImageCount: 1, Timestamp: now},
		{VersionID: "v2", SessionID: "s2", Provider: "gemini", Model: "gemini-2.5-flash-image", Cost: 0.078, ImageCount: 2, Timestamp: now},
	}
	for _, e := range entries {
		if err := store.LogCost(ctx, e); err != nil {
			t.Fatalf("LogCost() error = %v", err)
		}
	}

	total, err := store.GetTotalCost(ctx)
	if err != nil {
		t.Fatalf("GetTotalCost() error = %v", err)
	}
	if total.EntryCount != 2 || total.ImageCount != 3 {
		t.Errorf("GetTotalCost() = %+v, want 2 entries, 3 images", total)
	}
	if diff := total.TotalCost - 0.117; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("GetTotalCost() TotalCost = %f, want 0.117", total.TotalCost)
	}

	sess, err := store.GetSessionCost(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSessionCost() error = %v", err)
	}
	if sess.EntryCount != 1 || sess.ImageCount != 1 {
		t.Errorf("GetSessionCost() = %+v, want 1 entry, 1 image", sess)
	}

	ranged, err := store.GetCostByDateRange(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetCostByDateRange() error = %v", err)
	}
	if ranged.EntryCount != 2 {
		t.Errorf("GetCostByDateRange() EntryCount = %d, want 2", ranged.EntryCount)
	}

	empty, err := store.GetCostByDateRange(ctx, now.Add(-2*time.Hour), now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("GetCostByDateRange() error = %v", err)
	}
	if empty.EntryCount != 0 || empty.TotalCost != 0 {
		t.Errorf("GetCostByDateRange() empty window = %+v, want zeros", empty)
	}
}
