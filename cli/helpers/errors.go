package helpers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// CliError is a categorized failure reported to the user.
type CliError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Status  int    `json:"status,omitempty"`
}

func (e *CliError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewCliError creates a CLI error with optional details.
func NewCliError(code, message string, details ...string) *CliError {
	err := &CliError{Code: code, Message: message}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

// Categorize converts well-known failures into CLI errors and leaves the
// rest untouched.
func Categorize(err error) error {
	var cliErr *CliError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &cliErr):
		return cliErr
	case errors.Is(err, context.Canceled):
		return NewCliError("OPERATION_CANCELED", "operation was canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return NewCliError("OPERATION_TIMEOUT", "operation timed out")
	case IsNetworkError(err):
		return NewCliError("NETWORK_ERROR", "network connection failed", err.Error())
	default:
		return err
	}
}

// IsNetworkError matches dial and resolution failures.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, keyword := range []string{
		"connection refused", "connection reset", "no route to host",
		"network is unreachable", "no such host",
	} {
		if strings.Contains(msg, keyword) {
			return true
		}
	}
	return false
}

// WriteError renders err for the given mode.
func WriteError(w io.Writer, err error, mode Mode, color bool) {
	if err == nil {
		return
	}
	message, details, code := err.Error(), "", "ERROR"
	var cliErr *CliError
	if errors.As(err, &cliErr) {
		message, details, code = cliErr.Message, cliErr.Details, cliErr.Code
	}
	if mode == ModeJSON {
		payload, _ := json.MarshalIndent(map[string]any{
			"success": false,
			"code":    code,
			"message": message,
			"details": details,
		}, "", "  ")
		fmt.Fprintln(w, string(payload))
		return
	}
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	detailStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Italic(true)
	if !color {
		errStyle, detailStyle = lipgloss.NewStyle(), lipgloss.NewStyle()
	}
	fmt.Fprintln(w, errStyle.Render("Error: "+message))
	if details != "" {
		fmt.Fprintln(w, detailStyle.Render("Details: "+details))
	}
}
