package style

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pterm/pterm"

	"github.com/usecellar/cellar/pkg/types"
)

// Status types for steps and environments
type Status string

const (
	StatusSuccess Status = "success" // Step ran successfully
	StatusError   Status = "error"   // Step failed
	StatusQueue   Status = "queue"   // Step still to run
	StatusSkipped Status = "skipped" // Step action not recognized
	StatusAlert   Status = "alert"   // Environment has failures (env-level only)
)

// StatusStyle returns the appropriate pterm style for a status
func StatusStyle(status Status) *pterm.Style {
	switch status {
	case StatusSuccess:
		return pterm.NewStyle(pterm.BgGreen, pterm.FgWhite)
	case StatusError:
		return pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	case StatusQueue:
		return pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	case StatusAlert:
		return pterm.NewStyle(pterm.BgRed, pterm.FgWhite, pterm.Bold)
	default:
		return pterm.NewStyle(pterm.FgGray)
	}
}

// StepStatus represents the status of a single install step
type StepStatus struct {
	Action   string // Step action (install_exe, install_msi)
	FileName string // Staged payload name
	Status   Status // Current status
	Detail   string // Failure detail, when Status is error
}

// EnvironmentStatus represents the state of an environment for display
type EnvironmentStatus struct {
	Name         string
	Status       Status
	Dependencies []string
	Parameters   map[string]any
	Programs     map[string]string
	Steps        []StepStatus
}

// RenderStepStatus renders a single step status line
func RenderStepStatus(ss StepStatus) string {
	actionName := fmt.Sprintf("%-12s", ss.Action)
	styledAction := StatusStyle(ss.Status).Sprint(actionName)
	fileName := fmt.Sprintf("%-15s", ss.FileName)

	var statusMsg string
	switch ss.Status {
	case StatusSuccess:
		statusMsg = "installed"
	case StatusQueue:
		statusMsg = "to be installed"
	case StatusSkipped:
		statusMsg = "skipped, unrecognized action"
	case StatusError:
		statusMsg = "failed"
		if ss.Detail != "" {
			statusMsg += ": " + ss.Detail
		}
	}

	return fmt.Sprintf("    %s : %s : %s", styledAction, fileName, statusMsg)
}

// RenderEnvironmentStatus renders a complete environment status
func RenderEnvironmentStatus(es EnvironmentStatus) string {
	var result strings.Builder

	header := es.Name + ":"
	if es.Status == StatusAlert {
		header = StatusStyle(StatusAlert).Sprint(header)
	}
	result.WriteString(header + "\n")

	if len(es.Dependencies) > 0 {
		result.WriteString("    dependencies : " + strings.Join(es.Dependencies, ", ") + "\n")
	}

	for _, key := range sortedKeys(es.Parameters) {
		result.WriteString(fmt.Sprintf("    parameter    : %s = %v\n", key, es.Parameters[key]))
	}

	for _, ss := range es.Steps {
		result.WriteString(RenderStepStatus(ss) + "\n")
	}

	return strings.TrimRight(result.String(), "\n")
}

// EnvironmentStatusOf builds the display state for an environment
// configuration.
func EnvironmentStatusOf(config *types.EnvironmentConfig) EnvironmentStatus {
	return EnvironmentStatus{
		Name:         config.Name,
		Status:       StatusSuccess,
		Dependencies: append([]string(nil), config.InstalledDependencies...),
		Parameters:   config.Parameters,
		Programs:     config.Programs,
	}
}

// AggregateStatus determines the overall status of an install from its
// step statuses.
func AggregateStatus(stepStatuses []StepStatus) Status {
	hasError := false
	allSuccess := true
	allQueue := true

	for _, s := range stepStatuses {
		switch s.Status {
		case StatusError:
			hasError = true
			allSuccess = false
			allQueue = false
		case StatusQueue:
			allSuccess = false
		case StatusSuccess:
			allQueue = false
		}
	}

	if hasError {
		return StatusAlert
	} else if allSuccess && len(stepStatuses) > 0 {
		return StatusSuccess
	} else if allQueue && len(stepStatuses) > 0 {
		return StatusQueue
	}

	// Mixed state defaults to queue
	return StatusQueue
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
