package repl

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/manash/pixedit/internal/cost"
	"github.com/manash/pixedit/internal/display"
	"github.com/manash/pixedit/internal/editor"
	"github.com/manash/pixedit/internal/geometry"
	"github.com/manash/pixedit/internal/session"
	"github.com/manash/pixedit/pkg/models"
)

type stubProvider struct {
	model string
	calls int
}

func (s *stubProvider) Name() string  { return "stub" }
func (s *stubProvider) Model() string { return s.model }
func (s *stubProvider) SetModel(m string) error {
	if m == "unsupported-model" {
		return fmt.Errorf("model not supported: %s", m)
	}
	s.model = m
	return nil
}
func (s *stubProvider) SupportsModel(string) bool { return true }
func (s *stubProvider) ListModels() []string      { return []string{s.model} }

func (s *stubProvider) Edit(ctx context.Context, req *models.EditRequest) (*models.EditResult, error) {
	s.calls++
	return &models.EditResult{Data: req.Image, MimeType: "image/png"}, nil
}

func testREPL(t *testing.T) (*REPL, *stubProvider, *bytes.Buffer) {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	store, err := session.NewStoreWithPath(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("NewStoreWithPath() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	p := &stubProvider{model: "gemini-2.5-flash-image"}
	ed := editor.New(p)
	mgr := session.NewManager(store, p.Model())
	ed.SetRecorder(mgr)

	var out bytes.Buffer
	r := New(&Config{
		In:         strings.NewReader(""),
		Out:        &out,
		Err:        &out,
		Editor:     ed,
		Provider:   p,
		SessionMgr: mgr,
		Displayer:  display.NewForced(&out, false),
		Calculator: cost.NewCalculator(),
	})
	return r, p, &out
}

func writeTestImage(t *testing.T, dir string) string {
	t.Helper()
	data, err := geometry.EncodePNG(imaging.New(48, 48, color.NRGBA{B: 200, A: 255}))
	if err != nil {
		t.Fatalf("EncodePNG() error = %v", err)
	}
	path := filepath.Join(dir, "photo.png")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"open photo.png", []string{"open", "photo.png"}},
		{"retouch remove the lamp", []string{"retouch", "remove", "the", "lamp"}},
		{`filter "golden hour glow"`, []string{"filter", "golden hour glow"}},
		{`combine dog.png 'place the dog'`, []string{"combine", "dog.png", "place the dog"}},
		{"  spaced   out  ", []string{"spaced", "out"}},
		{"", nil},
	}

	for _, tt := range tests {
		got := parseCommand(tt.input)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseCommand(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestExecute_UnknownCommand(t *testing.T) {
	r, _, _ := testREPL(t)

	err := r.execute(context.Background(), "teleport 1 2")
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("execute() error = %v, want unknown command", err)
	}
}

func TestExecute_Selections(t *testing.T) {
	r, _, out := testREPL(t)
	ctx := context.Background()

	if err := r.execute(ctx, "point 120 45"); err != nil {
		t.Fatalf("execute(point) error = %v", err)
	}
	pt := r.editor.History().Hotspot()
	if pt == nil || pt.X != 120 || pt.Y != 45 {
		t.Errorf("Hotspot() = %+v, want (120, 45)", pt)
	}

	if err := r.execute(ctx, "target 10 20"); err != nil {
		t.Fatalf("execute(target) error = %v", err)
	}
	if tgt := r.editor.History().Target(); tgt == nil || tgt.X != 10 {
		t.Errorf("Target() = %+v, want (10, 20)", tgt)
	}

	if err := r.execute(ctx, "region 0 0 30 40"); err != nil {
		t.Fatalf("execute(region) error = %v", err)
	}
	if reg := r.editor.History().Region(); reg == nil || reg.Width != 30 {
		t.Errorf("Region() = %+v, want 30x40", reg)
	}

	if err := r.execute(ctx, "region 0 0 0 40"); err == nil {
		t.Error("execute(empty region) error = nil, want error")
	}
	if !strings.Contains(out.String(), "Hotspot set to (120, 45)") {
		t.Errorf("output missing hotspot confirmation: %q", out.String())
	}
}

func TestExecute_OpenAndEdit(t *testing.T) {
	r, p, out := testREPL(t)
	ctx := context.Background()
	path := writeTestImage(t, t.TempDir())

	if err := r.execute(ctx, "open "+path); err != nil {
		t.Fatalf("execute(open) error = %v", err)
	}
	if r.editor.History().Len() != 1 {
		t.Fatalf("History().Len() = %d after open, want 1", r.editor.History().Len())
	}

	if err := r.execute(ctx, `filter "warm sunset tones"`); err != nil {
		t.Fatalf("execute(filter) error = %v", err)
	}
	if p.calls != 1 {
		t.Errorf("provider called %d times, want 1", p.calls)
	}
	if r.editor.History().Len() != 2 {
		t.Errorf("History().Len() = %d after filter, want 2", r.editor.History().Len())
	}
	if !strings.Contains(out.String(), "Cost: $0.0390") {
		t.Errorf("output missing cost line: %q", out.String())
	}
	if !strings.Contains(out.String(), "Version 2/2") {
		t.Errorf("output missing version line: %q", out.String())
	}
}

func TestExecute_UndoRedoReset(t *testing.T) {
	r, _, _ := testREPL(t)
	ctx := context.Background()
	path := writeTestImage(t, t.TempDir())

	if err := r.execute(ctx, "open "+path); err != nil {
		t.Fatalf("execute(open) error = %v", err)
	}
	if err := r.execute(ctx, "adjust brighter"); err != nil {
		t.Fatalf("execute(adjust) error = %v", err)
	}

	if err := r.execute(ctx, "undo"); err != nil {
		t.Fatalf("execute(undo) error = %v", err)
	}
	if got := r.editor.History().Cursor(); got != 0 {
		t.Errorf("Cursor() = %d after undo, want 0", got)
	}

	if err := r.execute(ctx, "redo"); err != nil {
		t.Fatalf("execute(redo) error = %v", err)
	}
	if got := r.editor.History().Cursor(); got != 1 {
		t.Errorf("Cursor() = %d after redo, want 1", got)
	}

	if err := r.execute(ctx, "reset"); err != nil {
		t.Fatalf("execute(reset) error = %v", err)
	}
	if got := r.editor.History().Cursor(); got != 0 {
		t.Errorf("Cursor() = %d after reset, want 0", got)
	}
	if !r.editor.History().CanRedo() {
		t.Error("CanRedo() = false after reset, want true")
	}
}

func TestExecute_SaveCurrentVersion(t *testing.T) {
	r, _, _ := testREPL(t)
	ctx := context.Background()
	dir := t.TempDir()
	path := writeTestImage(t, dir)

	if err := r.execute(ctx, "open "+path); err != nil {
		t.Fatalf("execute(open) error = %v", err)
	}

	// Relative paths only; traversal is rejected.
	if err := r.execute(ctx, "save ../stolen.png"); err == nil {
		t.Error("execute(save traversal) error = nil, want error")
	}

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir() error = %v", err)
	}
	t.Cleanup(func() { os.Chdir(cwd) })

	if err := r.execute(ctx, "save out.png"); err != nil {
		t.Fatalf("execute(save) error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "out.png")); err != nil {
		t.Errorf("saved file missing: %v", err)
	}
}

func TestExecute_ExportAndOpenDataURL(t *testing.T) {
	r, _, out := testREPL(t)
	ctx := context.Background()
	path := writeTestImage(t, t.TempDir())

	if err := r.execute(ctx, "open "+path); err != nil {
		t.Fatalf("execute(open) error = %v", err)
	}
	out.Reset()
	if err := r.execute(ctx, "export"); err != nil {
		t.Fatalf("execute(export) error = %v", err)
	}
	url := strings.TrimSpace(out.String())
	mime, data, err := models.DecodeDataURL(url)
	if err != nil {
		t.Fatalf("DecodeDataURL() error = %v", err)
	}
	if mime != "image/png" || len(data) == 0 {
		t.Errorf("export produced mime %q, %d bytes", mime, len(data))
	}

	// The exported URL round-trips back through open.
	r2, _, _ := testREPL(t)
	if err := r2.execute(ctx, "open "+url); err != nil {
		t.Fatalf("execute(open data URL) error = %v", err)
	}
	v, err := r2.editor.History().Current()
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if v.MimeType != "image/png" || len(v.Data) != len(data) {
		t.Errorf("opened version = %s %d bytes, want image/png %d bytes", v.MimeType, len(v.Data), len(data))
	}
}

func TestExecute_ExportWithoutImage(t *testing.T) {
	r, _, _ := testREPL(t)

	if err := r.execute(context.Background(), "export"); err == nil {
		t.Error("execute(export) error = nil, want error with no image loaded")
	}
}

func TestExecute_ModelCommand(t *testing.T) {
	r, p, out := testREPL(t)
	ctx := context.Background()

	if err := r.execute(ctx, "model"); err != nil {
		t.Fatalf("execute(model) error = %v", err)
	}
	if !strings.Contains(out.String(), "gemini-2.5-flash-image") {
		t.Errorf("output missing current model: %q", out.String())
	}

	if err := r.execute(ctx, "model gemini-2.0-flash-preview-image-generation"); err != nil {
		t.Fatalf("execute(model set) error = %v", err)
	}
	if p.model != "gemini-2.0-flash-preview-image-generation" {
		t.Errorf("provider model = %q after set", p.model)
	}
	if r.sessionMgr.GetModel() != "gemini-2.0-flash-preview-image-generation" {
		t.Errorf("session model = %q after set", r.sessionMgr.GetModel())
	}

	if err := r.execute(ctx, "model unsupported-model"); err == nil {
		t.Error("execute(model unsupported) error = nil, want error")
	}
}

func TestExecute_SessionLifecycle(t *testing.T) {
	r, _, out := testREPL(t)
	ctx := context.Background()
	path := writeTestImage(t, t.TempDir())

	if err := r.execute(ctx, "session new beach trip"); err != nil {
		t.Fatalf("execute(session new) error = %v", err)
	}
	if err := r.execute(ctx, "open "+path); err != nil {
		t.Fatalf("execute(open) error = %v", err)
	}
	if err := r.execute(ctx, "filter noir"); err != nil {
		t.Fatalf("execute(filter) error = %v", err)
	}
	sessionID := r.sessionMgr.Current().ID

	if err := r.execute(ctx, "session new other"); err != nil {
		t.Fatalf("execute(session new) error = %v", err)
	}
	if r.editor.History().Len() != 0 {
		t.Errorf("History().Len() = %d after new session, want 0", r.editor.History().Len())
	}

	if err := r.execute(ctx, "session load "+sessionID[:6]); err != nil {
		t.Fatalf("execute(session load) error = %v", err)
	}
	if r.editor.History().Len() != 2 {
		t.Errorf("History().Len() = %d after load, want 2", r.editor.History().Len())
	}
	if !strings.Contains(out.String(), "Loaded session: beach trip") {
		t.Errorf("output missing load confirmation: %q", out.String())
	}
}

func TestExecute_Aliases(t *testing.T) {
	r, _, _ := testREPL(t)

	if err := r.execute(context.Background(), "p 5 6"); err != nil {
		t.Fatalf("execute(p) error = %v", err)
	}
	if pt := r.editor.History().Hotspot(); pt == nil || pt.X != 5 {
		t.Errorf("Hotspot() = %+v via alias, want (5, 6)", pt)
	}
}

func TestRun_QuitStopsLoop(t *testing.T) {
	r, _, out := testREPL(t)
	r.in = strings.NewReader("help\nquit\nnever-reached\n")

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "Goodbye!") {
		t.Errorf("output missing goodbye: %q", out.String())
	}
	if strings.Contains(out.String(), "never-reached") {
		t.Error("Run() kept reading after quit")
	}
}

func TestHelp_ListsAllCommands(t *testing.T) {
	r, _, out := testREPL(t)

	if err := r.execute(context.Background(), "help"); err != nil {
		t.Fatalf("execute(help) error = %v", err)
	}
	for _, name := range []string{"open", "retouch", "expand", "harmonize", "reframe", "zoom", "session", "cost"} {
		if !strings.Contains(out.String(), name) {
			t.Errorf("help output missing %q", name)
		}
	}
}
