// Package script runs scripted edit pipelines: a file of steps applied to a
// single image, strictly one at a time, each building on the previous
// version.
package script

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Step is one scripted operation. Which fields matter depends on Op: an
// instruction for retouch/filter/adjust/enhance/harmonize, a path for
// open/combine/save, coordinates for point/target/region, and so on.
type Step struct {
	Index       int
	Op          string
	Instruction string
	Path        string
	Aspect      string
	Preset      string
	Level       int
	Fisheye     bool
	X, Y        int
	Width       int
	Height      int
}

type jsonStep struct {
	Op          string `json:"op"`
	Instruction string `json:"instruction,omitempty"`
	Path        string `json:"path,omitempty"`
	Aspect      string `json:"aspect,omitempty"`
	Preset      string `json:"preset,omitempty"`
	Level       int    `json:"level,omitempty"`
	Fisheye     bool   `json:"fisheye,omitempty"`
	X           int    `json:"x,omitempty"`
	Y           int    `json:"y,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
}

var knownOps = map[string]bool{
	"open": true, "point": true, "target": true, "region": true,
	"retouch": true, "filter": true, "adjust": true, "expand": true,
	"harmonize": true, "enhance": true, "crop": true, "reframe": true,
	"zoom": true, "combine": true, "undo": true, "redo": true,
	"reset": true, "save": true,
}

func ParseFile(path string) ([]Step, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return ParseJSON(file)
	case ".txt", "":
		return ParseText(file)
	default:
		return nil, fmt.Errorf("unsupported file format %q: use .txt or .json", ext)
	}
}

// ParseText reads "op: argument" lines; blank lines and # comments are
// skipped. The argument is interpreted per operation, e.g.
//
//	open: photo.jpg
//	point: 340 220
//	retouch: remove the lamp post
//	expand: 16:9 continue the beach scene
func ParseText(r io.Reader) ([]Step, error) {
	var steps []Step
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		op, rest, _ := strings.Cut(line, ":")
		op = strings.ToLower(strings.TrimSpace(op))
		rest = strings.TrimSpace(rest)

		if !knownOps[op] {
			return nil, fmt.Errorf("line %d: unknown operation %q", lineNo, op)
		}

		step, err := buildStep(op, rest)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		step.Index = len(steps) + 1
		steps = append(steps, step)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if len(steps) == 0 {
		return nil, fmt.Errorf("no steps found in file")
	}

	return steps, nil
}

func buildStep(op, rest string) (Step, error) {
	step := Step{Op: op}
	fields := strings.Fields(rest)

	switch op {
	case "open", "save":
		if rest == "" {
			return step, fmt.Errorf("%s requires a path", op)
		}
		step.Path = rest

	case "point", "target":
		if len(fields) != 2 {
			return step, fmt.Errorf("%s requires x and y", op)
		}
		var err error
		if step.X, err = strconv.Atoi(fields[0]); err != nil {
			return step, fmt.Errorf("invalid x: %s", fields[0])
		}
		if step.Y, err = strconv.Atoi(fields[1]); err != nil {
			return step, fmt.Errorf("invalid y: %s", fields[1])
		}

	case "region":
		if len(fields) != 4 {
			return step, fmt.Errorf("region requires x, y, width and height")
		}
		vals := make([]int, 4)
		for i, f := range fields {
			n, err := strconv.Atoi(f)
			if err != nil {
				return step, fmt.Errorf("invalid region value: %s", f)
			}
			vals[i] = n
		}
		step.X, step.Y, step.Width, step.Height = vals[0], vals[1], vals[2], vals[3]

	case "retouch", "filter", "adjust", "enhance":
		if rest == "" {
			return step, fmt.Errorf("%s requires an instruction", op)
		}
		step.Instruction = rest

	case "harmonize":
		step.Instruction = rest

	case "expand":
		if len(fields) == 0 {
			return step, fmt.Errorf("expand requires an aspect ratio")
		}
		step.Aspect = fields[0]
		step.Instruction = strings.Join(fields[1:], " ")

	case "reframe":
		if rest == "" {
			return step, fmt.Errorf("reframe requires a preset")
		}
		step.Preset = rest

	case "zoom":
		if len(fields) == 0 {
			return step, fmt.Errorf("zoom requires a level")
		}
		level, err := strconv.Atoi(strings.TrimPrefix(fields[0], "+"))
		if err != nil {
			return step, fmt.Errorf("invalid zoom level: %s", fields[0])
		}
		step.Level = level
		step.Fisheye = len(fields) > 1 && strings.EqualFold(fields[1], "fisheye")

	case "combine":
		if len(fields) == 0 {
			return step, fmt.Errorf("combine requires an image path")
		}
		step.Path = fields[0]
		step.Instruction = strings.Join(fields[1:], " ")

	case "crop", "undo", "redo", "reset":
		if rest != "" {
			return step, fmt.Errorf("%s takes no argument", op)
		}
	}

	return step, nil
}

func ParseJSON(r io.Reader) ([]Step, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var jsonSteps []jsonStep
	if err := json.Unmarshal(data, &jsonSteps); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if len(jsonSteps) == 0 {
		return nil, fmt.Errorf("no steps found in file")
	}

	steps := make([]Step, len(jsonSteps))
	for i, js := range jsonSteps {
		op := strings.ToLower(strings.TrimSpace(js.Op))
		if !knownOps[op] {
			return nil, fmt.Errorf("step %d: unknown operation %q", i+1, js.Op)
		}
		steps[i] = Step{
			Index:       i + 1,
			Op:          op,
			Instruction: js.Instruction,
			Path:        js.Path,
			Aspect:      js.Aspect,
			Preset:      js.Preset,
			Level:       js.Level,
			Fisheye:     js.Fisheye,
			X:           js.X,
			Y:           js.Y,
			Width:       js.Width,
			Height:      js.Height,
		}
	}

	return steps, nil
}

// Describe renders a step for progress output.
func (s Step) Describe() string {
	switch s.Op {
	case "open", "save", "combine":
		return fmt.Sprintf("%s %s", s.Op, s.Path)
	case "point", "target":
		return fmt.Sprintf("%s (%d, %d)", s.Op, s.X, s.Y)
	case "region":
		return fmt.Sprintf("region %dx%d at (%d, %d)", s.Width, s.Height, s.X, s.Y)
	case "expand":
		return fmt.Sprintf("expand %s", s.Aspect)
	case "reframe":
		return fmt.Sprintf("reframe %s", s.Preset)
	case "zoom":
		if s.Fisheye {
			return fmt.Sprintf("zoom %+d fisheye", s.Level)
		}
		return fmt.Sprintf("zoom %+d", s.Level)
	case "retouch", "filter", "adjust", "enhance":
		return fmt.Sprintf("%s %q", s.Op, truncate(s.Instruction, 40))
	default:
		return s.Op
	}
}

// billed reports whether the step costs a model generation.
func (s Step) billed() bool {
	switch s.Op {
	case "retouch", "filter", "adjust", "expand", "harmonize", "enhance",
		"reframe", "zoom", "combine":
		return true
	}
	return false
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
