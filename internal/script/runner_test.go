package script

import (
	"bytes"
	"context"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/manash/pixedit/internal/cost"
	"github.com/manash/pixedit/internal/editor"
	"github.com/manash/pixedit/internal/geometry"
	"github.com/manash/pixedit/pkg/models"
)

type stubProvider struct {
	calls int
	image []byte
}

func (s *stubProvider) Name() string { return "stub" }
func (s *stubProvider) Model() string { return "gemini-2.5-flash-image" }
func (s *stubProvider) SetModel(string) error { return nil }
func (s *stubProvider) SupportsModel(string) bool { return true }
func (s *stubProvider) ListModels() []string { return []string{"gemini-2.5-flash-image"} }

func (s *stubProvider) Edit(ctx context.Context, req *models.EditRequest) (*models.EditResult, error) {
	s.calls++
	return &models.EditResult{Data: s.image, MimeType: "image/png"}, nil
}

func writeTestImage(t *testing.T, path string) []byte {
	t.Helper()
	data, err := geometry.EncodePNG(imaging.New(64, 64, color.NRGBA{R: 128, A: 255}))
	if err != nil {
		t.Fatalf("EncodePNG() error = %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return data
}

func testRunner(t *testing.T) (*Runner, *stubProvider, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()
	data := writeTestImage(t, filepath.Join(dir, "in.png"))

	p := &stubProvider{image: data}
	var out bytes.Buffer
	r := NewRunner(editor.New(p), cost.NewCalculator(), &out, &out)
	return r, p, &out, dir
}

func TestRunner_Run(t *testing.T) {
	r, p, out, dir := testRunner(t)

	steps, err := ParseText(strings.NewReader(
		"open: " + filepath.Join(dir, "in.png") + "\n" +
			"point: 10 10\n" +
			"retouch: remove speck\n" +
			"filter: noir\n"))
	if err != nil {
		t.Fatalf("ParseText() error = %v", err)
	}

	results, err := r.Run(context.Background(), steps, &Options{Model: "gemini-2.5-flash-image"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("Run() returned %d results, want 4", len(results))
	}
	for _, res := range results {
		if res.Error != nil {
			t.Errorf("step %d error = %v", res.Index, res.Error)
		}
	}
	if p.calls != 2 {
		t.Errorf("provider called %d times, want 2", p.calls)
	}

	// Only the two model edits are billed.
	var total float64
	for _, res := range results {
		total += res.Cost
	}
	if diff := total - 0.078; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("total cost = %f, want 0.078", total)
	}
	if !strings.Contains(out.String(), "[1/4] open") {
		t.Errorf("Run() output missing progress line: %q", out.String())
	}
}

func TestRunner_OpenDataURL(t *testing.T) {
	r, _, _, dir := testRunner(t)

	data, err := os.ReadFile(filepath.Join(dir, "in.png"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	steps := []Step{
		{Index: 1, Op: "open", Path: models.EncodeDataURL("image/png", data)},
	}

	results, err := r.Run(context.Background(), steps, &Options{Model: "gemini-2.5-flash-image"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if results[0].Error != nil {
		t.Fatalf("open step error = %v", results[0].Error)
	}
	v, err := r.editor.History().Current()
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if !bytes.Equal(v.Data, data) {
		t.Error("opened version does not match the encoded image")
	}
}

func TestRunner_StopOnError(t *testing.T) {
	r, p, _, _ := testRunner(t)

	// Filter before any open fails; the retouch after it must not run.
	steps := []Step{
		{Index: 1, Op: "filter", Instruction: "noir"},
		{Index: 2, Op: "filter", Instruction: "sepia"},
	}

	results, err := r.Run(context.Background(), steps, &Options{StopOnError: true})
	if err == nil {
		t.Fatal("Run() error = nil, want stop error")
	}
	if results[0].Error == nil {
		t.Error("results[0].Error = nil, want ErrNoImageLoaded")
	}
	if p.calls != 0 {
		t.Errorf("provider called %d times, want 0", p.calls)
	}
	if results[1].Error != nil || results[1].Index != 0 {
		t.Errorf("results[1] = %+v, want zero value for unreached step", results[1])
	}
}

func TestRunner_ContinueOnError(t *testing.T) {
	r, _, _, dir := testRunner(t)

	steps := []Step{
		{Index: 1, Op: "filter", Instruction: "noir"}, // fails: nothing open
		{Index: 2, Op: "open", Path: filepath.Join(dir, "in.png")},
		{Index: 3, Op: "adjust", Instruction: "brighter"},
	}

	results, err := r.Run(context.Background(), steps, &Options{Model: "gemini-2.5-flash-image"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if results[0].Error == nil {
		t.Error("results[0].Error = nil, want error")
	}
	if results[2].Error != nil {
		t.Errorf("results[2].Error = %v, want nil", results[2].Error)
	}
}

func TestRunner_SaveRejectsUnsafePath(t *testing.T) {
	r, _, _, dir := testRunner(t)
	ctx := context.Background()

	openStep := Step{Index: 1, Op: "open", Path: filepath.Join(dir, "in.png")}
	badSave := Step{Index: 2, Op: "save", Path: "../escape.png"}

	results, err := r.Run(ctx, []Step{openStep, badSave}, &Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if results[1].Error == nil {
		t.Error("save with traversal path succeeded, want error")
	}
}

func TestRunner_CancelledContext(t *testing.T) {
	r, _, _, dir := testRunner(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	steps := []Step{{Index: 1, Op: "open", Path: filepath.Join(dir, "in.png")}}
	if _, err := r.Run(ctx, steps, &Options{}); err == nil {
		t.Error("Run() error = nil for cancelled context, want error")
	}
}

func TestRunner_PrintSummary(t *testing.T) {
	var out bytes.Buffer
	r := NewRunner(nil, cost.NewCalculator(), &out, &out)

	results := []Result{
		{Index: 1, Step: Step{Op: "open", Path: "a.png"}},
		{Index: 2, Step: Step{Op: "filter", Instruction: "noir"}, Cost: 0.039},
		{Index: 3, Step: Step{Op: "save", Path: "/etc/x"}, Error: os.ErrPermission},
	}
	r.PrintSummary(results)

	got := out.String()
	for _, want := range []string{"Successful: 2/3", "Failed: 1", "$0.0390", "Errors:"} {
		if !strings.Contains(got, want) {
			t.Errorf("PrintSummary() output missing %q:\n%s", want, got)
		}
	}
}
