package style

import (
	"fmt"
	"strings"

	"github.com/muesli/termenv"
	"github.com/pterm/pterm"

	"github.com/usecellar/cellar/pkg/errors"
	"github.com/usecellar/cellar/pkg/steps"
	"github.com/usecellar/cellar/pkg/types"
)

// Renderer defines the interface for rendering various output types
type Renderer interface {
	RenderManifest(manifest *types.Manifest) string
	RenderResults(results []steps.Result) string
	RenderError(err error) string
	RenderProgress(current, total int, message string) string
}

// ColorEnabled reports whether the terminal supports colored output.
func ColorEnabled() bool {
	return termenv.EnvColorProfile() != termenv.Ascii
}

// NewRenderer picks the richest renderer the terminal supports.
func NewRenderer() Renderer {
	if ColorEnabled() {
		return NewTerminalRenderer()
	}
	return NewPlainRenderer()
}

// TerminalRenderer implements Renderer with rich terminal output
type TerminalRenderer struct {
	width int
}

// NewTerminalRenderer creates a new terminal renderer
func NewTerminalRenderer() *TerminalRenderer {
	return &TerminalRenderer{
		width: 80, // Default width, can be updated
	}
}

// SetWidth updates the terminal width for rendering
func (r *TerminalRenderer) SetWidth(width int) {
	r.width = width
}

// RenderManifest renders an installer manifest summary
func (r *TerminalRenderer) RenderManifest(manifest *types.Manifest) string {
	var result strings.Builder
	result.WriteString(TitleStyle.Render(manifest.Name) + "\n")

	if manifest.Description != "" {
		result.WriteString(NormalStyle.Render(manifest.Description) + "\n")
	}
	result.WriteString(Indent(MutedStyle.Render("category: "+manifest.Category), 1) + "\n")

	if len(manifest.Dependencies) > 0 {
		deps := make([]string, 0, len(manifest.Dependencies))
		for _, id := range manifest.Dependencies {
			deps = append(deps, DependencyStyle.Render(id))
		}
		result.WriteString(Indent("depends on "+strings.Join(deps, ", "), 1) + "\n")
	}

	for _, step := range manifest.Steps {
		line := fmt.Sprintf("%s %s %s", PendingIndicator,
			InstallerStyle.Render(string(step.Action)),
			PathStyle.Render(step.StagedName()))
		result.WriteString(Indent(line, 1) + "\n")
	}

	return strings.TrimRight(result.String(), "\n")
}

// RenderResults renders the per-step outcomes of an install
func (r *TerminalRenderer) RenderResults(results []steps.Result) string {
	if len(results) == 0 {
		return MutedStyle.Render("No steps executed")
	}

	var result strings.Builder
	for _, res := range results {
		result.WriteString(r.renderResult(res) + "\n")
	}

	return strings.TrimRight(result.String(), "\n")
}

// renderResult renders a single step outcome
func (r *TerminalRenderer) renderResult(res steps.Result) string {
	var indicator string
	switch {
	case res.Skipped:
		indicator = InfoIndicator
	case res.Failed():
		indicator = ErrorIndicator
	default:
		indicator = SuccessIndicator
	}

	action := InstallerStyle.Render(string(res.Step.Action))
	name := PathStyle.Render(res.Step.StagedName())

	switch {
	case res.Skipped:
		return fmt.Sprintf("%s %s %s %s", indicator, action, name, MutedStyle.Render("(skipped)"))
	case res.Failed():
		return fmt.Sprintf("%s %s %s: %s", indicator, action, name, ErrorStyle.Render(res.Err.Error()))
	default:
		return fmt.Sprintf("%s %s %s", indicator, action, name)
	}
}

// RenderError renders an error message
func (r *TerminalRenderer) RenderError(err error) string {
	if err == nil {
		return ""
	}

	if code := errors.GetErrorCode(err); code != errors.ErrUnknown {
		return fmt.Sprintf("%s Error [%s]: %s",
			pterm.Error.Prefix.Text,
			pterm.Error.MessageStyle.Sprint(string(code)),
			err.Error())
	}

	return fmt.Sprintf("%s %s", pterm.Error.Prefix.Text, pterm.Error.MessageStyle.Sprint(err.Error()))
}

// RenderProgress renders a progress indicator
func (r *TerminalRenderer) RenderProgress(current, total int, message string) string {
	percentage := float64(current) / float64(total)
	barWidth := 20
	filled := int(percentage * float64(barWidth))

	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	return fmt.Sprintf("%s [%s] %d/%d %s",
		ProgressIndicator,
		pterm.Info.MessageStyle.Sprint(bar),
		current,
		total,
		message)
}

// PlainRenderer implements Renderer with plain text output (no styling)
type PlainRenderer struct{}

// NewPlainRenderer creates a new plain text renderer
func NewPlainRenderer() *PlainRenderer {
	return &PlainRenderer{}
}

// RenderManifest renders a plain manifest summary
func (r *PlainRenderer) RenderManifest(manifest *types.Manifest) string {
	var result strings.Builder
	result.WriteString(manifest.Name + "\n")
	if manifest.Description != "" {
		result.WriteString(manifest.Description + "\n")
	}
	for _, step := range manifest.Steps {
		result.WriteString(fmt.Sprintf("  - %s: %s\n", step.Action, step.StagedName()))
	}

	return strings.TrimRight(result.String(), "\n")
}

// RenderResults renders plain step outcomes
func (r *PlainRenderer) RenderResults(results []steps.Result) string {
	if len(results) == 0 {
		return "No steps executed"
	}

	var result strings.Builder
	for _, res := range results {
		switch {
		case res.Skipped:
			result.WriteString(fmt.Sprintf("skipped: %s\n", res.Step.StagedName()))
		case res.Failed():
			result.WriteString(fmt.Sprintf("failed: %s (%s)\n", res.Step.StagedName(), res.Err))
		default:
			result.WriteString(fmt.Sprintf("ok: %s\n", res.Step.StagedName()))
		}
	}

	return strings.TrimRight(result.String(), "\n")
}

// RenderError renders a plain error message
func (r *PlainRenderer) RenderError(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %s", err.Error())
}

// RenderProgress renders plain progress
func (r *PlainRenderer) RenderProgress(current, total int, message string) string {
	return fmt.Sprintf("Progress: %d/%d - %s", current, total, message)
}
