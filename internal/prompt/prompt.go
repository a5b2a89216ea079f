// Package prompt composes the single structured instruction sent with every
// edit request: a fixed framing preamble, one operation-specific command with
// its parameters, and an output-contract line demanding image-only output.
package prompt

import (
	"fmt"
	"strings"

	"github.com/manash/pixedit/pkg/models"
)

const preamble = `You are an expert photo retoucher. Edit the provided photograph exactly as instructed. The result must be a photorealistic photograph: match the original lighting, grain and color rendition, and leave every region not named by the instruction identical to the original.`

const outputContract = `Return ONLY the final edited image. Do not return any text.`

// Build composes the full instruction for a validated request.
func Build(req *models.EditRequest) (string, error) {
	command, err := commandFor(req)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(preamble)
	b.WriteString("\n\n")
	b.WriteString(command)
	b.WriteString("\n\n")
	b.WriteString(outputContract)
	return b.String(), nil
}

func commandFor(req *models.EditRequest) (string, error) {
	switch req.Kind {
	case models.KindRetouch:
		return fmt.Sprintf(
			"Apply a localized retouch centered on pixel coordinates (x=%d, y=%d): %s. Blend the edit seamlessly into its surroundings.",
			req.Point.X, req.Point.Y, req.Instruction), nil

	case models.KindFilter:
		return fmt.Sprintf(
			"Apply this stylistic filter across the entire photograph: %s. Keep the composition and every subject unchanged.",
			req.Instruction), nil

	case models.KindAdjust:
		return fmt.Sprintf(
			"Apply this global adjustment to the photograph: %s.",
			req.Instruction), nil

	case models.KindExpand:
		cmd := fmt.Sprintf(
			"The photograph has been placed centered on a larger blank canvas with a target aspect ratio of %s. Fill the blank border regions with photorealistic content that naturally continues the original scene; the original pixels must remain untouched.",
			req.AspectRatio)
		if strings.TrimSpace(req.Instruction) != "" {
			cmd += " Guidance for the new content: " + req.Instruction + "."
		}
		return cmd, nil

	case models.KindHarmonize:
		cmd := fmt.Sprintf(
			"A composited foreground element sits near pixel coordinates (x=%d, y=%d) against the background scene near (x=%d, y=%d). Blend the element into the scene: match its lighting direction, color temperature, shadows and perspective to the background.",
			req.Point.X, req.Point.Y, req.SecondPoint.X, req.SecondPoint.Y)
		if strings.TrimSpace(req.Instruction) != "" {
			cmd += " " + req.Instruction + "."
		}
		return cmd, nil

	case models.KindEnhance:
		return fmt.Sprintf(
			"Within the rectangle at (x=%d, y=%d) sized %dx%d pixels only: %s. Increase detail and clarity inside that rectangle; everything outside it must remain identical.",
			req.Region.X, req.Region.Y, req.Region.Width, req.Region.Height, req.Instruction), nil

	case models.KindReframe:
		return fmt.Sprintf(
			"Re-photograph the scene from a %s camera position. Preserve the subject's identity, wardrobe, expression and the setting exactly.",
			req.Preset), nil

	case models.KindZoom:
		cmd, ok := models.ZoomInstruction(req.ZoomLevel)
		if !ok {
			return "", fmt.Errorf("%w: %d", models.ErrInvalidZoom, req.ZoomLevel)
		}
		if req.Fisheye {
			cmd += " Render the result with a subtle fisheye lens distortion."
		}
		return cmd, nil

	case models.KindCombine:
		return fmt.Sprintf(
			"Two images are provided. Insert the main subject of the second image into the first image at pixel coordinates (x=%d, y=%d): %s. Match the subject's scale, lighting and perspective to the first image.",
			req.Point.X, req.Point.Y, req.Instruction), nil

	default:
		return "", fmt.Errorf("%w: %s", models.ErrUnknownKind, req.Kind)
	}
}
