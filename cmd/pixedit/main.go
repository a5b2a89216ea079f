package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/manash/pixedit/internal/editor"
	"github.com/manash/pixedit/internal/keys"
	"github.com/manash/pixedit/internal/provider"
	"github.com/manash/pixedit/internal/provider/gemini"
	"github.com/manash/pixedit/internal/session"
	"github.com/manash/pixedit/pkg/models"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	flagModel   string
	flagAPIKey  string
	flagVerbose bool

	flagOp          string
	flagInstruction string
	flagPoint       string
	flagTarget      string
	flagRegion      string
	flagAspect      string
	flagPreset      string
	flagLevel       int
	flagFisheye     bool
	flagWith        string
	flagOutput      string
	flagPixelRatio  float64

	flagStopOnError bool
	flagDelayMs     int
)

type App struct {
	Out         io.Writer
	Err         io.Writer
	In          io.Reader
	GetEnv      func(string) string
	NewProvider func(ctx context.Context, cfg *provider.Config) (provider.Provider, error)
	NewStore    func() (*session.Store, error)
}

func DefaultApp() *App {
	return &App{
		Out:    os.Stdout,
		Err:    os.Stderr,
		In:     os.Stdin,
		GetEnv: os.Getenv,
		NewProvider: func(ctx context.Context, cfg *provider.Config) (provider.Provider, error) {
			return gemini.New(ctx, cfg)
		},
		NewStore: session.NewStore,
	}
}

func main() {
	godotenv.Load()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	app := DefaultApp()
	rootCmd := newRootCmd(app)
	return rootCmd.Execute()
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pixedit",
		Short: "Edit photos with a generative image model",
		Long: `pixedit is a terminal photo editor backed by a generative image model.

Every edit produces a new version on a linear history: undo and redo walk
the versions, reset rewinds to the original without discarding anything.

Examples:
  pixedit edit photo.jpg --op filter -i "1970s film look"
  pixedit edit photo.jpg --op retouch --point 340,220 -i "remove the lamp post"
  pixedit edit photo.jpg --op expand --aspect 16:9
  pixedit repl
  pixedit script edits.txt`,
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
	}

	cmd.PersistentFlags().StringVarP(&flagModel, "model", "m", gemini.DefaultModel, "image model to use")
	cmd.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "API key (defaults to stored key or GEMINI_API_KEY)")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "dump requests and responses")

	cmd.AddCommand(newEditCmd(app))
	cmd.AddCommand(newREPLCmd(app))
	cmd.AddCommand(newScriptCmd(app))
	cmd.AddCommand(newSessionsCmd(app))
	cmd.AddCommand(newKeysCmd(app))

	return cmd
}

func newEditCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <image>",
		Short: "Apply a single edit to an image file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(args, app)
		},
	}

	cmd.Flags().StringVar(&flagOp, "op", "", "operation (retouch, filter, adjust, expand, harmonize, enhance, crop, reframe, zoom, combine)")
	cmd.Flags().StringVarP(&flagInstruction, "instruction", "i", "", "edit instruction")
	cmd.Flags().StringVar(&flagPoint, "point", "", "hotspot as x,y")
	cmd.Flags().StringVar(&flagTarget, "target", "", "target location as x,y (harmonize)")
	cmd.Flags().StringVar(&flagRegion, "region", "", "region as x,y,width,height (enhance, crop)")
	cmd.Flags().StringVar(&flagAspect, "aspect", "", "target aspect ratio as W:H (expand)")
	cmd.Flags().StringVar(&flagPreset, "preset", "", "camera preset (reframe)")
	cmd.Flags().IntVar(&flagLevel, "level", 0, fmt.Sprintf("zoom level, %d..%d (zoom)", models.MinZoomLevel, models.MaxZoomLevel))
	cmd.Flags().BoolVar(&flagFisheye, "fisheye", false, "fisheye lens (zoom)")
	cmd.Flags().StringVar(&flagWith, "with", "", "second image path (combine)")
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output filename")
	cmd.Flags().Float64Var(&flagPixelRatio, "dpr", 1, "device pixel ratio for crop output")

	cmd.MarkFlagRequired("op")
	return cmd
}

func runEdit(args []string, app *App) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kind := models.EditKind(strings.ToLower(flagOp))
	if !kind.IsValid() {
		return fmt.Errorf("%w: %s (valid: %v)", models.ErrUnknownKind, flagOp, models.ValidKinds())
	}

	data, mime, err := readImageInput(args[0])
	if err != nil {
		return err
	}

	ed, err := newLocalEditor(ctx, app)
	if err != nil {
		return err
	}

	if _, err := ed.Open(ctx, data, mime); err != nil {
		return err
	}

	if err := applySelections(ed); err != nil {
		return err
	}

	if kind != models.KindCrop {
		fmt.Fprintf(app.Out, "Editing with %s...\n", flagModel)
	}

	v, err := dispatchEdit(ctx, ed, kind)
	if err != nil {
		return err
	}

	outPath := flagOutput
	if outPath == "" {
		outPath = v.Filename
	}
	if err := os.WriteFile(outPath, v.Data, 0644); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}

	fmt.Fprintf(app.Out, "Saved: %s\n", outPath)
	return nil
}

// newLocalEditor builds an editor with no session recording, for the
// one-shot and script paths.
func newLocalEditor(ctx context.Context, app *App) (*editor.Editor, error) {
	apiKey, source, err := keys.GetAPIKey(flagAPIKey, "gemini")
	if err != nil {
		return nil, err
	}
	if flagVerbose {
		fmt.Fprintf(app.Err, "Using API key from %s\n", source)
	}

	prov, err := app.NewProvider(ctx, &provider.Config{
		APIKey:  apiKey,
		Model:   flagModel,
		Verbose: flagVerbose,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	ed := editor.New(prov)
	ed.SetErrorWriter(app.Err)
	return ed, nil
}

func applySelections(ed *editor.Editor) error {
	h := ed.History()

	if flagPoint != "" {
		pt, err := parsePoint(flagPoint)
		if err != nil {
			return err
		}
		h.SetHotspot(*pt)
	}
	if flagTarget != "" {
		pt, err := parsePoint(flagTarget)
		if err != nil {
			return err
		}
		h.SetTarget(*pt)
	}
	if flagRegion != "" {
		region, err := parseRegion(flagRegion)
		if err != nil {
			return err
		}
		h.SetRegion(*region)
	}
	return nil
}

func dispatchEdit(ctx context.Context, ed *editor.Editor, kind models.EditKind) (*models.ImageVersion, error) {
	switch kind {
	case models.KindRetouch:
		return ed.Retouch(ctx, flagInstruction)
	case models.KindFilter:
		return ed.Filter(ctx, flagInstruction)
	case models.KindAdjust:
		return ed.Adjust(ctx, flagInstruction)
	case models.KindExpand:
		return ed.Expand(ctx, flagAspect, flagInstruction)
	case models.KindHarmonize:
		return ed.Harmonize(ctx, flagInstruction)
	case models.KindEnhance:
		return ed.Enhance(ctx, flagInstruction)
	case models.KindCrop:
		return ed.Crop(ctx, flagPixelRatio)
	case models.KindReframe:
		return ed.Reframe(ctx, flagPreset)
	case models.KindZoom:
		return ed.Zoom(ctx, flagLevel, flagFisheye)
	case models.KindCombine:
		data, mime, err := readImageInput(flagWith)
		if err != nil {
			return nil, fmt.Errorf("failed to read second image: %w", err)
		}
		return ed.Combine(ctx, data, mime, flagInstruction)
	default:
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownKind, kind)
	}
}

// readImageInput accepts either a file path or a data:<mime>;base64 string.
func readImageInput(arg string) ([]byte, string, error) {
	if strings.HasPrefix(arg, "data:") {
		mime, data, err := models.DecodeDataURL(arg)
		if err != nil {
			return nil, "", err
		}
		return data, mime, nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	return data, models.MimeForPath(arg), nil
}

func parsePoint(s string) (*models.Hotspot, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid point %q: expected x,y", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, fmt.Errorf("invalid point %q: expected x,y", s)
	}
	y, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, fmt.Errorf("invalid point %q: expected x,y", s)
	}
	return &models.Hotspot{X: x, Y: y}, nil
}

func parseRegion(s string) (*models.CropRegion, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid region %q: expected x,y,width,height", s)
	}
	vals := make([]int, 4)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid region %q: expected x,y,width,height", s)
		}
		vals[i] = n
	}
	region := &models.CropRegion{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}
	if region.Empty() {
		return nil, fmt.Errorf("invalid region %q: width and height must be positive", s)
	}
	return region, nil
}
