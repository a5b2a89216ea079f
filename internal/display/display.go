// Package display renders image versions inline using the kitty terminal
// graphics protocol. Unsupported terminals get a plain one-line summary
// instead of escape garbage.
package display

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/manash/pixedit/pkg/models"
)

type Displayer struct {
	out     io.Writer
	enabled bool
}

func New(out io.Writer) *Displayer {
	return &Displayer{
		out:     out,
		enabled: IsTerminalSupported(),
	}
}

// NewForced skips terminal detection; used in tests and when the user
// insists via a flag.
func NewForced(out io.Writer, enabled bool) *Displayer {
	return &Displayer{out: out, enabled: enabled}
}

func (d *Displayer) Display(ctx context.Context, v *models.ImageVersion) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(v.Data) == 0 {
		return fmt.Errorf("image version has no data")
	}

	if !d.enabled {
		fmt.Fprintf(d.out, "[%s, %s - terminal preview not supported]\n",
			v.Filename, humanize.Bytes(uint64(len(v.Data))))
		return nil
	}

	if err := writeKitty(d.out, v.Data); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	fmt.Fprintln(d.out)
	return nil
}

func IsTerminalSupported() bool {
	termProgram := strings.ToLower(os.Getenv("TERM_PROGRAM"))
	supportedPrograms := []string{"kitty", "ghostty", "iterm.app", "wezterm"}

	for _, prog := range supportedPrograms {
		if termProgram == prog {
			return true
		}
	}

	if os.Getenv("KITTY_WINDOW_ID") != "" {
		return true
	}

	if os.Getenv("ITERM_SESSION_ID") != "" {
		return true
	}

	term := strings.ToLower(os.Getenv("TERM"))
	return strings.Contains(term, "kitty") || strings.Contains(term, "ghostty")
}
