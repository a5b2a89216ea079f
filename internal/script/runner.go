package script

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/manash/pixedit/internal/cost"
	"github.com/manash/pixedit/internal/editor"
	"github.com/manash/pixedit/internal/security"
	"github.com/manash/pixedit/pkg/models"
)

type Result struct {
	Index    int
	Step     Step
	Cost     float64
	Error    error
	Duration time.Duration
}

type Options struct {
	Model       string
	StopOnError bool
	DelayMs     int
	PixelRatio  float64
}

// Runner executes steps strictly in order. Edits are stateful, each one
// operates on the version the previous step produced, so there is no
// parallel mode.
type Runner struct {
	editor     *editor.Editor
	calculator *cost.Calculator
	out        io.Writer
	err        io.Writer
}

func NewRunner(ed *editor.Editor, calc *cost.Calculator, out, errOut io.Writer) *Runner {
	return &Runner{
		editor:     ed,
		calculator: calc,
		out:        out,
		err:        errOut,
	}
}

// readImage loads step input from a file path or an inline
// data:<mime>;base64 string.
func readImage(path string) ([]byte, string, error) {
	if strings.HasPrefix(path, "data:") {
		mime, data, err := models.DecodeDataURL(path)
		if err != nil {
			return nil, "", err
		}
		return data, mime, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	return data, models.MimeForPath(path), nil
}

func (r *Runner) Run(ctx context.Context, steps []Step, opts *Options) ([]Result, error) {
	results := make([]Result, len(steps))
	total := len(steps)

	for i, step := range steps {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		result := r.runStep(ctx, step, opts, i+1, total)
		results[i] = result

		if result.Error != nil && opts.StopOnError {
			return results, fmt.Errorf("stopped at step %d: %w", i+1, result.Error)
		}

		if opts.DelayMs > 0 && i < len(steps)-1 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(time.Duration(opts.DelayMs) * time.Millisecond):
			}
		}
	}

	return results, nil
}

func (r *Runner) runStep(ctx context.Context, step Step, opts *Options, current, total int) Result {
	start := time.Now()
	result := Result{Index: step.Index, Step: step}

	fmt.Fprintf(r.out, "[%d/%d] %s\n", current, total, step.Describe())

	err := r.apply(ctx, step, opts)
	result.Duration = time.Since(start)

	if err != nil {
		result.Error = err
		fmt.Fprintf(r.err, "       Error: %v\n", err)
		return result
	}

	if step.billed() {
		info := r.calculator.Calculate(opts.Model, 1)
		result.Cost = info.Total
		fmt.Fprintf(r.out, "       Done ($%.4f)\n", info.Total)
	}

	return result
}

func (r *Runner) apply(ctx context.Context, step Step, opts *Options) error {
	h := r.editor.History()

	switch step.Op {
	case "open":
		data, mime, err := readImage(step.Path)
		if err != nil {
			return err
		}
		_, err = r.editor.Open(ctx, data, mime)
		return err

	case "point":
		h.SetHotspot(models.Hotspot{X: step.X, Y: step.Y})
		return nil

	case "target":
		h.SetTarget(models.Hotspot{X: step.X, Y: step.Y})
		return nil

	case "region":
		region := models.CropRegion{X: step.X, Y: step.Y, Width: step.Width, Height: step.Height}
		if region.Empty() {
			return fmt.Errorf("region must have positive width and height")
		}
		h.SetRegion(region)
		return nil

	case "retouch":
		_, err := r.editor.Retouch(ctx, step.Instruction)
		return err

	case "filter":
		_, err := r.editor.Filter(ctx, step.Instruction)
		return err

	case "adjust":
		_, err := r.editor.Adjust(ctx, step.Instruction)
		return err

	case "expand":
		_, err := r.editor.Expand(ctx, step.Aspect, step.Instruction)
		return err

	case "harmonize":
		_, err := r.editor.Harmonize(ctx, step.Instruction)
		return err

	case "enhance":
		_, err := r.editor.Enhance(ctx, step.Instruction)
		return err

	case "crop":
		ratio := opts.PixelRatio
		if ratio == 0 {
			ratio = 1
		}
		_, err := r.editor.Crop(ctx, ratio)
		return err

	case "reframe":
		_, err := r.editor.Reframe(ctx, step.Preset)
		return err

	case "zoom":
		_, err := r.editor.Zoom(ctx, step.Level, step.Fisheye)
		return err

	case "combine":
		data, mime, err := readImage(step.Path)
		if err != nil {
			return err
		}
		_, err = r.editor.Combine(ctx, data, mime, step.Instruction)
		return err

	case "undo":
		_, err := r.editor.Undo(ctx)
		return err

	case "redo":
		_, err := r.editor.Redo(ctx)
		return err

	case "reset":
		_, err := r.editor.Reset(ctx)
		return err

	case "save":
		v, err := h.Current()
		if err != nil {
			return err
		}
		if err := security.ValidateSavePath(step.Path); err != nil {
			return fmt.Errorf("invalid save path: %w", err)
		}
		return os.WriteFile(step.Path, v.Data, 0644)

	default:
		return fmt.Errorf("unknown operation: %s", step.Op)
	}
}

func (r *Runner) PrintSummary(results []Result) {
	var successful, failed int
	var totalCost float64
	var errors []Result

	for _, res := range results {
		if res.Error != nil {
			failed++
			errors = append(errors, res)
		} else {
			successful++
			totalCost += res.Cost
		}
	}

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "Summary:")
	fmt.Fprintf(r.out, "  Successful: %d/%d steps\n", successful, len(results))
	if failed > 0 {
		fmt.Fprintf(r.out, "  Failed: %d (see errors below)\n", failed)
	}
	fmt.Fprintf(r.out, "  Total cost: $%.4f\n", totalCost)

	if len(errors) > 0 {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, "Errors:")
		for _, e := range errors {
			fmt.Fprintf(r.out, "  [%d] %s: %v\n", e.Index, e.Step.Describe(), e.Error)
		}
	}
}
