package repl

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/manash/pixedit/internal/security"
	"github.com/manash/pixedit/internal/session"
	"github.com/manash/pixedit/pkg/models"
)

type Command interface {
	Name() string
	Aliases() []string
	Description() string
	Usage() string
	Execute(ctx context.Context, r *REPL, args []string) error
}

func allCommands() []Command {
	return []Command{
		&OpenCommand{},
		&PointCommand{},
		&TargetCommand{},
		&RegionCommand{},
		&RetouchCommand{},
		&FilterCommand{},
		&AdjustCommand{},
		&ExpandCommand{},
		&HarmonizeCommand{},
		&EnhanceCommand{},
		&CropCommand{},
		&ReframeCommand{},
		&ZoomCommand{},
		&CombineCommand{},
		&UndoCommand{},
		&RedoCommand{},
		&ResetCommand{},
		&HistoryCommand{},
		&SaveCommand{},
		&ExportCommand{},
		&ShowCommand{},
		&SessionCommand{},
		&ModelCommand{},
		&CostCommand{},
		&HelpCommand{},
		&QuitCommand{},
	}
}

func (r *REPL) registerCommands() {
	for _, cmd := range allCommands() {
		r.commands[cmd.Name()] = cmd
		for _, alias := range cmd.Aliases() {
			r.commands[alias] = cmd
		}
	}
}

// finishEdit displays and summarizes a new version. billed is true for
// model-backed edits, which also get a cost entry in the session journal.
func (r *REPL) finishEdit(ctx context.Context, v *models.ImageVersion, billed bool) {
	if billed {
		model := r.sessionMgr.GetModel()
		info := r.calculator.Calculate(model, 1)
		if r.sessionMgr.HasSession() && r.sessionMgr.LastVersionID() != "" {
			entry := &session.CostEntry{
				VersionID:  r.sessionMgr.LastVersionID(),
				SessionID:  r.sessionMgr.Current().ID,
				Provider:   r.provider.Name(),
				Model:      model,
				Cost:       info.Total,
				ImageCount: 1,
				Timestamp:  v.CreatedAt,
			}
			if err := r.sessionMgr.LogCost(ctx, entry); err != nil {
				fmt.Fprintf(r.err, "Warning: failed to log cost: %v\n", err)
			}
		}
		fmt.Fprintf(r.out, "Cost: $%.4f (1 image @ $%.4f/image, %s)\n", info.Total, info.PerImage, model)
	}

	if err := r.displayer.Display(ctx, v); err != nil {
		fmt.Fprintf(r.err, "Warning: failed to display: %v\n", err)
	}

	h := r.editor.History()
	fmt.Fprintf(r.out, "Version %d/%d (%s, %s)\n",
		h.Cursor()+1, h.Len(), v.Filename, humanize.Bytes(uint64(len(v.Data))))
}

func parseInt(s, what string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", what, s)
	}
	return n, nil
}

// readImageFile loads image bytes from a file path or an inline
// data:<mime>;base64 string.
func readImageFile(path string) ([]byte, string, error) {
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

// OpenCommand loads an image file as the first version of a fresh history.
type OpenCommand struct{}

func (c *OpenCommand) Name() string        { return "open" }
func (c *OpenCommand) Aliases() []string   { return []string{"o", "load"} }
func (c *OpenCommand) Description() string { return "Open an image file for editing" }
func (c *OpenCommand) Usage() string       { return "open <path>" }

func (c *OpenCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	data, mime, err := readImageFile(args[0])
	if err != nil {
		return err
	}

	v, err := r.editor.Open(ctx, data, mime)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "Opened: %s\n", args[0])
	r.finishEdit(ctx, v, false)
	return nil
}

// PointCommand sets the hotspot used by retouch, harmonize and combine.
type PointCommand struct{}

func (c *PointCommand) Name() string        { return "point" }
func (c *PointCommand) Aliases() []string   { return []string{"p"} }
func (c *PointCommand) Description() string { return "Select the hotspot for targeted edits" }
func (c *PointCommand) Usage() string       { return "point <x> <y>" }

func (c *PointCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	x, err := parseInt(args[0], "x coordinate")
	if err != nil {
		return err
	}
	y, err := parseInt(args[1], "y coordinate")
	if err != nil {
		return err
	}

	r.editor.History().SetHotspot(models.Hotspot{X: x, Y: y})
	fmt.Fprintf(r.out, "Hotspot set to (%d, %d)\n", x, y)
	return nil
}

// TargetCommand sets the second hotspot used by harmonize.
type TargetCommand struct{}

func (c *TargetCommand) Name() string        { return "target" }
func (c *TargetCommand) Aliases() []string   { return []string{"t"} }
func (c *TargetCommand) Description() string { return "Select the target location for harmonize" }
func (c *TargetCommand) Usage() string       { return "target <x> <y>" }

func (c *TargetCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	x, err := parseInt(args[0], "x coordinate")
	if err != nil {
		return err
	}
	y, err := parseInt(args[1], "y coordinate")
	if err != nil {
		return err
	}

	r.editor.History().SetTarget(models.Hotspot{X: x, Y: y})
	fmt.Fprintf(r.out, "Target set to (%d, %d)\n", x, y)
	return nil
}

// RegionCommand sets the rectangular selection used by enhance and crop.
type RegionCommand struct{}

func (c *RegionCommand) Name() string        { return "region" }
func (c *RegionCommand) Aliases() []string   { return []string{"r", "select"} }
func (c *RegionCommand) Description() string { return "Select a rectangular region" }
func (c *RegionCommand) Usage() string       { return "region <x> <y> <width> <height>" }

func (c *RegionCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	vals := make([]int, 4)
	names := []string{"x", "y", "width", "height"}
	for i, arg := range args {
		n, err := parseInt(arg, names[i])
		if err != nil {
			return err
		}
		vals[i] = n
	}

	region := models.CropRegion{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}
	if region.Empty() {
		return fmt.Errorf("region must have positive width and height")
	}

	r.editor.History().SetRegion(region)
	fmt.Fprintf(r.out, "Region set to %dx%d at (%d, %d)\n", region.Width, region.Height, region.X, region.Y)
	return nil
}

// RetouchCommand applies a point-targeted edit.
type RetouchCommand struct{}

func (c *RetouchCommand) Name() string        { return "retouch" }
func (c *RetouchCommand) Aliases() []string   { return []string{"re"} }
func (c *RetouchCommand) Description() string { return "Edit at the selected hotspot" }
func (c *RetouchCommand) Usage() string       { return "retouch <instruction>" }

func (c *RetouchCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	fmt.Fprintf(r.out, "Retouching with %s...\n", r.sessionMgr.GetModel())
	v, err := r.editor.Retouch(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	r.finishEdit(ctx, v, true)
	return nil
}

// FilterCommand applies a stylistic filter to the whole image.
type FilterCommand struct{}

func (c *FilterCommand) Name() string        { return "filter" }
func (c *FilterCommand) Aliases() []string   { return []string{"f"} }
func (c *FilterCommand) Description() string { return "Apply a stylistic filter" }
func (c *FilterCommand) Usage() string       { return "filter <instruction>" }

func (c *FilterCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	fmt.Fprintf(r.out, "Applying filter with %s...\n", r.sessionMgr.GetModel())
	v, err := r.editor.Filter(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	r.finishEdit(ctx, v, true)
	return nil
}

// AdjustCommand applies a global adjustment.
type AdjustCommand struct{}

func (c *AdjustCommand) Name() string        { return "adjust" }
func (c *AdjustCommand) Aliases() []string   { return []string{"a"} }
func (c *AdjustCommand) Description() string { return "Apply a global adjustment" }
func (c *AdjustCommand) Usage() string       { return "adjust <instruction>" }

func (c *AdjustCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	fmt.Fprintf(r.out, "Adjusting with %s...\n", r.sessionMgr.GetModel())
	v, err := r.editor.Adjust(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	r.finishEdit(ctx, v, true)
	return nil
}

// ExpandCommand outpaints to a target aspect ratio.
type ExpandCommand struct{}

func (c *ExpandCommand) Name() string        { return "expand" }
func (c *ExpandCommand) Aliases() []string   { return []string{"x", "outpaint"} }
func (c *ExpandCommand) Description() string { return "Expand the canvas to an aspect ratio" }
func (c *ExpandCommand) Usage() string       { return "expand <W:H> [instruction]" }

func (c *ExpandCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	fmt.Fprintf(r.out, "Expanding to %s with %s...\n", args[0], r.sessionMgr.GetModel())
	v, err := r.editor.Expand(ctx, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	r.finishEdit(ctx, v, true)
	return nil
}

// HarmonizeCommand blends the element at the hotspot into the target area.
type HarmonizeCommand struct{}

func (c *HarmonizeCommand) Name() string        { return "harmonize" }
func (c *HarmonizeCommand) Aliases() []string   { return []string{"blend"} }
func (c *HarmonizeCommand) Description() string { return "Blend the hotspot element into the target area" }
func (c *HarmonizeCommand) Usage() string       { return "harmonize [instruction]" }

func (c *HarmonizeCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	fmt.Fprintf(r.out, "Harmonizing with %s...\n", r.sessionMgr.GetModel())
	v, err := r.editor.Harmonize(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	r.finishEdit(ctx, v, true)
	return nil
}

// EnhanceCommand applies a localized enhancement inside the region.
type EnhanceCommand struct{}

func (c *EnhanceCommand) Name() string        { return "enhance" }
func (c *EnhanceCommand) Aliases() []string   { return []string{"n"} }
func (c *EnhanceCommand) Description() string { return "Enhance the selected region" }
func (c *EnhanceCommand) Usage() string       { return "enhance <instruction>" }

func (c *EnhanceCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	fmt.Fprintf(r.out, "Enhancing with %s...\n", r.sessionMgr.GetModel())
	v, err := r.editor.Enhance(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	r.finishEdit(ctx, v, true)
	return nil
}

// CropCommand extracts the selected region locally, without a model call.
type CropCommand struct{}

func (c *CropCommand) Name() string        { return "crop" }
func (c *CropCommand) Aliases() []string   { return []string{} }
func (c *CropCommand) Description() string { return "Crop to the selected region (local, free)" }
func (c *CropCommand) Usage() string       { return "crop" }

func (c *CropCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	v, err := r.editor.Crop(ctx, r.pixelRatio)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, "Cropped")
	r.finishEdit(ctx, v, false)
	return nil
}

// ReframeCommand re-photographs the scene from a preset camera position.
type ReframeCommand struct{}

func (c *ReframeCommand) Name() string        { return "reframe" }
func (c *ReframeCommand) Aliases() []string   { return []string{"camera"} }
func (c *ReframeCommand) Description() string { return "Change the camera angle (lists presets without args)" }
func (c *ReframeCommand) Usage() string       { return "reframe [preset]" }

func (c *ReframeCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(r.out, "Available presets:")
		for _, p := range models.ReframePresets() {
			fmt.Fprintf(r.out, "  - %s\n", p)
		}
		return nil
	}

	fmt.Fprintf(r.out, "Reframing to %s with %s...\n", args[0], r.sessionMgr.GetModel())
	v, err := r.editor.Reframe(ctx, args[0])
	if err != nil {
		return err
	}
	r.finishEdit(ctx, v, true)
	return nil
}

// ZoomCommand changes the apparent focal length by a discrete level.
type ZoomCommand struct{}

func (c *ZoomCommand) Name() string        { return "zoom" }
func (c *ZoomCommand) Aliases() []string   { return []string{"z"} }
func (c *ZoomCommand) Description() string { return "Zoom the camera by a level, optionally with fisheye" }
func (c *ZoomCommand) Usage() string {
	return fmt.Sprintf("zoom <%d..%d> [fisheye]", models.MinZoomLevel, models.MaxZoomLevel)
}

func (c *ZoomCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	level, err := parseInt(strings.TrimPrefix(args[0], "+"), "zoom level")
	if err != nil {
		return err
	}
	fisheye := len(args) > 1 && strings.EqualFold(args[1], "fisheye")

	fmt.Fprintf(r.out, "Zooming (%+d) with %s...\n", level, r.sessionMgr.GetModel())
	v, err := r.editor.Zoom(ctx, level, fisheye)
	if err != nil {
		return err
	}
	r.finishEdit(ctx, v, true)
	return nil
}

// CombineCommand inserts the subject of another image at the hotspot.
type CombineCommand struct{}

func (c *CombineCommand) Name() string        { return "combine" }
func (c *CombineCommand) Aliases() []string   { return []string{"insert"} }
func (c *CombineCommand) Description() string { return "Insert the subject of another image at the hotspot" }
func (c *CombineCommand) Usage() string       { return "combine <path> [instruction]" }

func (c *CombineCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	data, mime, err := readImageFile(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "Combining with %s...\n", r.sessionMgr.GetModel())
	v, err := r.editor.Combine(ctx, data, mime, strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	r.finishEdit(ctx, v, true)
	return nil
}

// UndoCommand steps the cursor back one version.
type UndoCommand struct{}

func (c *UndoCommand) Name() string        { return "undo" }
func (c *UndoCommand) Aliases() []string   { return []string{"u", "back"} }
func (c *UndoCommand) Description() string { return "Step back to the previous version" }
func (c *UndoCommand) Usage() string       { return "undo" }

func (c *UndoCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	v, err := r.editor.Undo(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, "Undone")
	r.finishEdit(ctx, v, false)
	return nil
}

// RedoCommand steps the cursor forward one version.
type RedoCommand struct{}

func (c *RedoCommand) Name() string        { return "redo" }
func (c *RedoCommand) Aliases() []string   { return []string{"fwd"} }
func (c *RedoCommand) Description() string { return "Step forward to the next version" }
func (c *RedoCommand) Usage() string       { return "redo" }

func (c *RedoCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	v, err := r.editor.Redo(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, "Redone")
	r.finishEdit(ctx, v, false)
	return nil
}

// ResetCommand rewinds to the original image without discarding versions,
// so redo can walk forward through the edits again.
type ResetCommand struct{}

func (c *ResetCommand) Name() string        { return "reset" }
func (c *ResetCommand) Aliases() []string   { return []string{} }
func (c *ResetCommand) Description() string { return "Rewind to the original image (redo restores edits)" }
func (c *ResetCommand) Usage() string       { return "reset" }

func (c *ResetCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	v, err := r.editor.Reset(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, "Back to original")
	r.finishEdit(ctx, v, false)
	return nil
}

// HistoryCommand lists the versions with a marker at the cursor.
type HistoryCommand struct{}

func (c *HistoryCommand) Name() string        { return "history" }
func (c *HistoryCommand) Aliases() []string   { return []string{"h", "hist"} }
func (c *HistoryCommand) Description() string { return "Show version history" }
func (c *HistoryCommand) Usage() string       { return "history" }

func (c *HistoryCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	h := r.editor.History()
	if h.Len() == 0 {
		fmt.Fprintln(r.out, "No history yet")
		return nil
	}

	var rows []*session.Version
	if r.sessionMgr.HasSession() {
		var err error
		rows, err = r.sessionMgr.Versions(ctx)
		if err != nil {
			return err
		}
	}

	for i, v := range h.Versions() {
		marker := "  "
		if i == h.Cursor() {
			marker = "> "
		}
		op, instruction := "", ""
		if i < len(rows) {
			op = rows[i].Operation
			instruction = rows[i].Instruction
		}
		if op == "" {
			fmt.Fprintf(r.out, "%s[%d] %s %s\n",
				marker, i+1, session.FormatTimestamp(v.CreatedAt), v.Filename)
			continue
		}
		fmt.Fprintf(r.out, "%s[%d] %s %s: %q\n",
			marker, i+1, session.FormatTimestamp(v.CreatedAt), op, truncate(instruction, 50))
	}

	return nil
}

// SaveCommand writes the current version to a file.
type SaveCommand struct{}

func (c *SaveCommand) Name() string        { return "save" }
func (c *SaveCommand) Aliases() []string   { return []string{"s"} }
func (c *SaveCommand) Description() string { return "Save the current version to a file" }
func (c *SaveCommand) Usage() string       { return "save [filename]" }

func (c *SaveCommand) Execute(_ context.Context, r *REPL, args []string) error {
	v, err := r.editor.History().Current()
	if err != nil {
		return err
	}

	destPath := v.Filename
	if len(args) > 0 {
		destPath = args[0]
		if err := security.ValidateSavePath(destPath); err != nil {
			return fmt.Errorf("invalid save path: %w", err)
		}
	}

	if err := os.WriteFile(destPath, v.Data, 0644); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}

	fmt.Fprintf(r.out, "Saved: %s (%s)\n", destPath, humanize.Bytes(uint64(len(v.Data))))
	return nil
}

// ExportCommand prints the current version as a data URL, for piping into
// other tools.
type ExportCommand struct{}

func (c *ExportCommand) Name() string        { return "export" }
func (c *ExportCommand) Aliases() []string   { return nil }
func (c *ExportCommand) Description() string { return "Print the current version as a data URL" }
func (c *ExportCommand) Usage() string       { return "export" }

func (c *ExportCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	v, err := r.editor.History().Current()
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, models.EncodeDataURL(v.MimeType, v.Data))
	return nil
}

// ShowCommand displays the current version.
type ShowCommand struct{}

func (c *ShowCommand) Name() string        { return "show" }
func (c *ShowCommand) Aliases() []string   { return []string{"display", "view"} }
func (c *ShowCommand) Description() string { return "Display the current version" }
func (c *ShowCommand) Usage() string       { return "show" }

func (c *ShowCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	v, err := r.editor.History().Current()
	if err != nil {
		return err
	}
	return r.displayer.Display(ctx, v)
}

// SessionCommand manages persisted sessions.
type SessionCommand struct{}

func (c *SessionCommand) Name() string        { return "session" }
func (c *SessionCommand) Aliases() []string   { return []string{"sess"} }
func (c *SessionCommand) Description() string { return "Manage sessions (list, load, new, rename)" }
func (c *SessionCommand) Usage() string       { return "session <list|load|new|rename> [args]" }

func (c *SessionCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	subCmd := strings.ToLower(args[0])
	subArgs := args[1:]

	switch subCmd {
	case "list", "ls":
		return c.list(ctx, r)
	case "load":
		if len(subArgs) == 0 {
			return fmt.Errorf("usage: session load <id>")
		}
		return c.load(ctx, r, subArgs[0])
	case "new":
		name := ""
		if len(subArgs) > 0 {
			name = strings.Join(subArgs, " ")
		}
		return c.new(ctx, r, name)
	case "rename":
		if len(subArgs) == 0 {
			return fmt.Errorf("usage: session rename <name>")
		}
		return c.rename(ctx, r, strings.Join(subArgs, " "))
	default:
		return fmt.Errorf("unknown session command: %s", subCmd)
	}
}

func (c *SessionCommand) list(ctx context.Context, r *REPL) error {
	sessions, err := r.sessionMgr.ListSessions(ctx)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Fprintln(r.out, "No sessions found")
		return nil
	}

	currentID := ""
	if r.sessionMgr.HasSession() {
		currentID = r.sessionMgr.Current().ID
	}

	fmt.Fprintf(r.out, "%-8s  %-20s  %-20s  %s\n", "ID", "Name", "Updated", "Model")
	fmt.Fprintln(r.out, strings.Repeat("-", 70))

	for _, sess := range sessions {
		marker := "  "
		if sess.ID == currentID {
			marker = "> "
		}
		name := sess.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(r.out, "%s%-6s  %-20s  %-20s  %s\n",
			marker,
			sess.ID[:6],
			truncate(name, 20),
			session.FormatTimestamp(sess.UpdatedAt),
			sess.Model)
	}

	return nil
}

func (c *SessionCommand) load(ctx context.Context, r *REPL, id string) error {
	sessions, err := r.sessionMgr.ListSessions(ctx)
	if err != nil {
		return err
	}

	var fullID string
	for _, sess := range sessions {
		if strings.HasPrefix(sess.ID, id) {
			fullID = sess.ID
			break
		}
	}

	if fullID == "" {
		return fmt.Errorf("session not found: %s", id)
	}

	if err := r.sessionMgr.Load(ctx, fullID); err != nil {
		return err
	}

	versions, cursor, err := r.sessionMgr.LoadHistory(ctx)
	if err != nil {
		return err
	}
	r.editor.History().Restore(versions, cursor)

	sess := r.sessionMgr.Current()
	name := sess.Name
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(r.out, "Loaded session: %s (%s), %d version(s)\n", name, sess.ID[:6], len(versions))
	return nil
}

func (c *SessionCommand) new(ctx context.Context, r *REPL, name string) error {
	sess, err := r.sessionMgr.StartNew(ctx, name)
	if err != nil {
		return err
	}
	r.editor.History().Restore(nil, -1)

	displayName := name
	if displayName == "" {
		displayName = "(unnamed)"
	}
	fmt.Fprintf(r.out, "Created new session: %s (%s)\n", displayName, sess.ID[:6])
	return nil
}

func (c *SessionCommand) rename(ctx context.Context, r *REPL, name string) error {
	if err := r.sessionMgr.RenameSession(ctx, name); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Session renamed to: %s\n", name)
	return nil
}

// ModelCommand gets or sets the current model.
type ModelCommand struct{}

func (c *ModelCommand) Name() string        { return "model" }
func (c *ModelCommand) Aliases() []string   { return []string{"m"} }
func (c *ModelCommand) Description() string { return "Get or set the current model" }
func (c *ModelCommand) Usage() string       { return "model [name]" }

func (c *ModelCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(r.out, "Current model: %s\n", r.provider.Model())
		fmt.Fprintln(r.out, "\nAvailable models:")
		for _, name := range r.provider.ListModels() {
			fmt.Fprintf(r.out, "  - %s\n", name)
		}
		return nil
	}

	modelName := args[0]
	if err := r.provider.SetModel(modelName); err != nil {
		return err
	}
	r.sessionMgr.SetModel(modelName)
	fmt.Fprintf(r.out, "Model set to: %s\n", modelName)
	return nil
}

// CostCommand displays cost information.
type CostCommand struct{}

func (c *CostCommand) Name() string        { return "cost" }
func (c *CostCommand) Aliases() []string   { return []string{"$"} }
func (c *CostCommand) Description() string { return "View cost summary (today, week, month, total, session)" }
func (c *CostCommand) Usage() string       { return "cost <today|week|month|total|session>" }

func (c *CostCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return c.showTotal(ctx, r)
	}

	subCmd := strings.ToLower(args[0])
	switch subCmd {
	case "today":
		return c.showRange(ctx, r, 1, "Today's")
	case "week":
		return c.showRange(ctx, r, 7, "Last 7 days")
	case "month":
		return c.showRange(ctx, r, 30, "Last 30 days")
	case "total":
		return c.showTotal(ctx, r)
	case "session":
		return c.showSession(ctx, r)
	default:
		return fmt.Errorf("unknown cost command: %s\nUsage: %s", subCmd, c.Usage())
	}
}

func (c *CostCommand) showRange(ctx context.Context, r *REPL, days int, label string) error {
	now := time.Now()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).
		Add(24 * time.Hour)
	start := end.Add(-time.Duration(days) * 24 * time.Hour)

	summary, err := r.sessionMgr.GetCostByDateRange(ctx, start, end)
	if err != nil {
		return err
	}

	if summary.EntryCount == 0 {
		fmt.Fprintf(r.out, "No costs recorded (%s).\n", strings.ToLower(label))
		return nil
	}

	fmt.Fprintf(r.out, "%s cost: $%.4f (%d image(s))\n", label, summary.TotalCost, summary.ImageCount)
	return nil
}

func (c *CostCommand) showTotal(ctx context.Context, r *REPL) error {
	summary, err := r.sessionMgr.GetTotalCost(ctx)
	if err != nil {
		return err
	}

	if summary.EntryCount == 0 {
		fmt.Fprintln(r.out, "No costs recorded yet.")
		return nil
	}

	fmt.Fprintf(r.out, "Total cost: $%.4f (%d image(s))\n", summary.TotalCost, summary.ImageCount)
	return nil
}

func (c *CostCommand) showSession(ctx context.Context, r *REPL) error {
	if !r.sessionMgr.HasSession() {
		fmt.Fprintln(r.out, "No active session.")
		return nil
	}

	summary, err := r.sessionMgr.GetSessionCost(ctx)
	if err != nil {
		return err
	}

	if summary.EntryCount == 0 {
		fmt.Fprintln(r.out, "No costs in current session.")
		return nil
	}

	fmt.Fprintf(r.out, "Session cost: $%.4f (%d image(s))\n", summary.TotalCost, summary.ImageCount)
	return nil
}

// HelpCommand shows available commands.
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Aliases() []string   { return []string{"?"} }
func (c *HelpCommand) Description() string { return "Show available commands" }
func (c *HelpCommand) Usage() string       { return "help" }

func (c *HelpCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	fmt.Fprintln(r.out, "Available commands:")
	fmt.Fprintln(r.out)

	for _, cmd := range allCommands() {
		aliases := ""
		if len(cmd.Aliases()) > 0 {
			aliases = fmt.Sprintf(" (%s)", strings.Join(cmd.Aliases(), ", "))
		}
		fmt.Fprintf(r.out, "  %-14s%s\n", cmd.Name()+aliases, cmd.Description())
		fmt.Fprintf(r.out, "                Usage: %s\n", cmd.Usage())
	}

	return nil
}

// QuitCommand exits the REPL.
type QuitCommand struct{}

func (c *QuitCommand) Name() string        { return "quit" }
func (c *QuitCommand) Aliases() []string   { return []string{"exit", "q"} }
func (c *QuitCommand) Description() string { return "Exit interactive mode" }
func (c *QuitCommand) Usage() string       { return "quit" }

func (c *QuitCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	fmt.Fprintln(r.out, "Goodbye!")
	r.Stop()
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
