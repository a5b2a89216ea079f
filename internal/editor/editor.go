// Package editor orchestrates one edit at a time: geometry preprocessing,
// a single dispatch to the image model, and a history append on success.
// Failures propagate as typed errors and leave history untouched.
package editor

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manash/pixedit/internal/geometry"
	"github.com/manash/pixedit/internal/history"
	"github.com/manash/pixedit/internal/provider"
	"github.com/manash/pixedit/pkg/models"
)

// Recorder receives history changes so a session journal can mirror them.
// Recording failures are reported but never fail the edit itself.
type Recorder interface {
	RecordAppend(ctx context.Context, op, instruction string, v *models.ImageVersion, cursor int) error
	RecordCursor(ctx context.Context, cursor int) error
}

type Editor struct {
	provider provider.Provider
	history  *history.Store
	recorder Recorder
	errw     io.Writer
	busy     bool
}

func New(p provider.Provider) *Editor {
	return &Editor{
		provider: p,
		history:  history.New(),
		errw:     os.Stderr,
	}
}

// SetErrorWriter redirects recorder-failure warnings, which otherwise go
// to stderr.
func (e *Editor) SetErrorWriter(w io.Writer) {
	e.errw = w
}

func (e *Editor) History() *history.Store {
	return e.history
}

func (e *Editor) Provider() provider.Provider {
	return e.provider
}

func (e *Editor) SetRecorder(r Recorder) {
	e.recorder = r
}

// Busy reports whether a generation is in flight. The UI layer disables all
// generation triggers while it is set; there is never more than one
// outstanding request.
func (e *Editor) Busy() bool {
	return e.busy
}

// Open starts a fresh history from an uploaded image, discarding any
// previous one.
func (e *Editor) Open(ctx context.Context, data []byte, mimeType string) (*models.ImageVersion, error) {
	if _, _, err := geometry.Dimensions(data); err != nil {
		return nil, err
	}
	e.history.Restore(nil, -1)
	v := models.NewVersion(data, mimeType)
	e.history.Append(v)
	e.record(ctx, "open", "", v)
	return v, nil
}

// Retouch applies a point-targeted edit at the selected hotspot.
func (e *Editor) Retouch(ctx context.Context, instruction string) (*models.ImageVersion, error) {
	cur, err := e.history.Current()
	if err != nil {
		return nil, err
	}
	req := &models.EditRequest{
		Kind:        models.KindRetouch,
		Instruction: instruction,
		Image:       cur.Data,
		ImageMime:   cur.MimeType,
		Point:       e.history.Hotspot(),
	}
	return e.dispatch(ctx, req)
}

// Filter applies a stylistic filter across the whole image.
func (e *Editor) Filter(ctx context.Context, instruction string) (*models.ImageVersion, error) {
	return e.wholeImage(ctx, models.KindFilter, instruction)
}

// Adjust applies a global adjustment.
func (e *Editor) Adjust(ctx context.Context, instruction string) (*models.ImageVersion, error) {
	return e.wholeImage(ctx, models.KindAdjust, instruction)
}

func (e *Editor) wholeImage(ctx context.Context, kind models.EditKind, instruction string) (*models.ImageVersion, error) {
	cur, err := e.history.Current()
	if err != nil {
		return nil, err
	}
	req := &models.EditRequest{
		Kind:        kind,
		Instruction: instruction,
		Image:       cur.Data,
		ImageMime:   cur.MimeType,
	}
	return e.dispatch(ctx, req)
}

// Expand outpaints the image to a target aspect ratio: the original is
// centered unscaled on a larger blank canvas (downscaled only when the
// canvas would exceed the model input limit) and the model fills the border.
func (e *Editor) Expand(ctx context.Context, aspectRatio, instruction string) (*models.ImageVersion, error) {
	cur, err := e.history.Current()
	if err != nil {
		return nil, err
	}
	aspect, err := models.ParseAspectRatio(aspectRatio)
	if err != nil {
		return nil, err
	}

	img, err := geometry.Decode(cur.Data)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	plan, err := geometry.PlanExpansion(b.Dx(), b.Dy(), aspect)
	if err != nil {
		return nil, err
	}
	padded, err := geometry.EncodePNG(geometry.PadForExpansion(img, plan))
	if err != nil {
		return nil, err
	}

	req := &models.EditRequest{
		Kind:        models.KindExpand,
		Instruction: instruction,
		Image:       padded,
		ImageMime:   "image/png",
		AspectRatio: aspectRatio,
	}
	return e.dispatch(ctx, req)
}

// Harmonize blends a composited element (subject hotspot) into the scene
// (target hotspot).
func (e *Editor) Harmonize(ctx context.Context, instruction string) (*models.ImageVersion, error) {
	cur, err := e.history.Current()
	if err != nil {
		return nil, err
	}
	req := &models.EditRequest{
		Kind:        models.KindHarmonize,
		Instruction: instruction,
		Image:       cur.Data,
		ImageMime:   cur.MimeType,
		Point:       e.history.Hotspot(),
		SecondPoint: e.history.Target(),
	}
	return e.dispatch(ctx, req)
}

// Enhance applies a localized enhancement inside the selected region.
func (e *Editor) Enhance(ctx context.Context, instruction string) (*models.ImageVersion, error) {
	cur, err := e.history.Current()
	if err != nil {
		return nil, err
	}
	req := &models.EditRequest{
		Kind:        models.KindEnhance,
		Instruction: instruction,
		Image:       cur.Data,
		ImageMime:   cur.MimeType,
		Region:      e.history.Region(),
	}
	return e.dispatch(ctx, req)
}

// Crop extracts the selected region into a new version locally, with no
// model call. pixelRatio above 1 scales the output to physical pixels.
func (e *Editor) Crop(ctx context.Context, pixelRatio float64) (*models.ImageVersion, error) {
	cur, err := e.history.Current()
	if err != nil {
		return nil, err
	}
	region := e.history.Region()
	if region == nil || region.Empty() {
		return nil, &models.MissingInputError{Field: "region"}
	}

	img, err := geometry.Decode(cur.Data)
	if err != nil {
		return nil, err
	}
	cropped, err := geometry.ExtractCrop(img, *region, pixelRatio)
	if err != nil {
		return nil, err
	}
	data, err := geometry.EncodePNG(cropped)
	if err != nil {
		return nil, err
	}

	v := models.NewVersion(data, "image/png")
	e.history.Append(v)
	e.record(ctx, string(models.KindCrop), "", v)
	return v, nil
}

// Reframe re-photographs the scene from a preset camera position.
func (e *Editor) Reframe(ctx context.Context, preset string) (*models.ImageVersion, error) {
	cur, err := e.history.Current()
	if err != nil {
		return nil, err
	}
	req := &models.EditRequest{
		Kind:      models.KindReframe,
		Image:     cur.Data,
		ImageMime: cur.MimeType,
		Preset:    preset,
	}
	return e.dispatch(ctx, req)
}

// Zoom changes the apparent focal length by a discrete level, optionally
// with a fisheye modifier.
func (e *Editor) Zoom(ctx context.Context, level int, fisheye bool) (*models.ImageVersion, error) {
	cur, err := e.history.Current()
	if err != nil {
		return nil, err
	}
	req := &models.EditRequest{
		Kind:      models.KindZoom,
		Image:     cur.Data,
		ImageMime: cur.MimeType,
		ZoomLevel: level,
		Fisheye:   fisheye,
	}
	return e.dispatch(ctx, req)
}

// Combine inserts the subject of a second image at the selected point.
func (e *Editor) Combine(ctx context.Context, second []byte, secondMime, instruction string) (*models.ImageVersion, error) {
	cur, err := e.history.Current()
	if err != nil {
		return nil, err
	}
	req := &models.EditRequest{
		Kind:            models.KindCombine,
		Instruction:     instruction,
		Image:           cur.Data,
		ImageMime:       cur.MimeType,
		SecondImage:     second,
		SecondImageMime: secondMime,
		Point:           e.history.Hotspot(),
	}
	return e.dispatch(ctx, req)
}

// Undo, Redo and Reset move the cursor and mirror it into the recorder.

func (e *Editor) Undo(ctx context.Context) (*models.ImageVersion, error) {
	v, err := e.history.Undo()
	if err != nil {
		return nil, err
	}
	e.recordCursor(ctx)
	return v, nil
}

func (e *Editor) Redo(ctx context.Context) (*models.ImageVersion, error) {
	v, err := e.history.Redo()
	if err != nil {
		return nil, err
	}
	e.recordCursor(ctx)
	return v, nil
}

func (e *Editor) Reset(ctx context.Context) (*models.ImageVersion, error) {
	v, err := e.history.Reset()
	if err != nil {
		return nil, err
	}
	e.recordCursor(ctx)
	return v, nil
}

// dispatch performs the single request/response exchange. The busy flag
// rejects a second request while one is in flight; on failure history is
// untouched.
func (e *Editor) dispatch(ctx context.Context, req *models.EditRequest) (*models.ImageVersion, error) {
	if e.busy {
		return nil, models.ErrBusy
	}
	e.busy = true
	defer func() { e.busy = false }()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	result, err := e.provider.Edit(ctx, req)
	if err != nil {
		return nil, err
	}

	v := models.NewVersion(result.Data, result.MimeType)
	e.history.Append(v)
	e.record(ctx, string(req.Kind), strings.TrimSpace(req.Instruction), v)
	return v, nil
}

func (e *Editor) record(ctx context.Context, op, instruction string, v *models.ImageVersion) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordAppend(ctx, op, instruction, v, e.history.Cursor()); err != nil {
		fmt.Fprintf(e.errw, "warning: failed to record edit: %v\n", err)
	}
}

func (e *Editor) recordCursor(ctx context.Context) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordCursor(ctx, e.history.Cursor()); err != nil {
		fmt.Fprintf(e.errw, "warning: failed to record cursor: %v\n", err)
	}
}
