// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Unified error handling for all vscan CLI commands.
//
// STANDARDIZED PATTERN:
//   - ALWAYS return errors (never just print and return nil)
//   - Let Run decide how to display errors and which exit code to use
//   - Use structured error types for better error handling

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/vscan-tui/internal/api"
	"github.com/jeranaias/vscan-tui/internal/config"
	"github.com/jeranaias/vscan-tui/internal/validate"
)

// =============================================================================
// EXIT CODES - Specific codes for different error categories
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates the user must sign in
	ExitAuthError = 4
	// ExitNetworkError indicates a backend could not be reached
	ExitNetworkError = 5
	// ExitNotFoundError indicates a resource was not found
	ExitNotFoundError = 7
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
)

// =============================================================================
// ERROR TYPES FOR STRUCTURED ERROR HANDLING
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "conv", "scan")
	Action  string // Action being performed (e.g., "rename", "delete")
	Reason  string // Human-readable reason
	Err     error  // Underlying error (if any)
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ValidationError represents a validation failure for user input.
type ValidationError struct {
	Field   string // Field that failed validation
	Value   string // Value that was provided
	Reason  string // Why validation failed
	Example string // Example of valid value (optional)
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NotFoundError represents a resource not found error.
type NotFoundError struct {
	Resource string // Type of resource (e.g., "conversation", "file")
	ID       string // Identifier that was not found
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// =============================================================================
// ERROR CONSTRUCTION HELPERS
// =============================================================================

// NewCommandError creates a new command error.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{
		Command: command,
		Action:  action,
		Reason:  reason,
		Err:     err,
	}
}

// NewValidationError creates a new validation error.
func NewValidationError(field, value, reason string) error {
	return &ValidationError{
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// ErrMissingArgument creates an error for missing required arguments.
func ErrMissingArgument(argName, usage string) error {
	return &ValidationError{
		Field:   argName,
		Reason:  "required argument missing",
		Example: usage,
	}
}

// ErrUnknownSubcommand reports a subcommand the command does not have.
func ErrUnknownSubcommand(command, sub string, known []string) error {
	return &ValidationError{
		Field:   command + " subcommand",
		Value:   sub,
		Reason:  "unknown subcommand",
		Example: fmt.Sprintf("one of %v", known),
	}
}

// apiError wraps a backend failure with the command context. The message is
// the one the UI would show for the same failure.
func apiError(command, action string, err error) error {
	if err == nil {
		return nil
	}
	if api.IsNotFound(err) {
		return &CommandError{Command: command, Action: action, Reason: "not found", Err: err}
	}
	return &CommandError{Command: command, Action: action, Reason: api.UserMessage(err, action), Err: err}
}

// =============================================================================
// ERROR DISPLAY HELPERS
// =============================================================================

// DisplayError writes err to w in a consistent format.
//
// In JSON mode, outputs structured JSON error.
// In normal mode, displays formatted error message.
func DisplayError(w io.Writer, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		DisplayErrorJSON(w, err)
		return
	}

	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), displayMessage(err))
	if api.IsSignInRequired(err) {
		fmt.Fprintln(w, DimStyle.Render("Run 'vscan login' to sign in."))
	}
}

// displayMessage prefers the user-facing reason over the wrapped chain.
func displayMessage(err error) string {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return fmt.Sprintf("%s %s: %s", cmdErr.Command, cmdErr.Action, cmdErr.Reason)
	}
	var fieldErrs validate.Errors
	if errors.As(err, &fieldErrs) {
		return fieldErrs.Error()
	}
	if api.IsSignInRequired(err) {
		return "you are not signed in"
	}
	return err.Error()
}

// DisplayErrorJSON outputs an error as JSON.
func DisplayErrorJSON(w io.Writer, err error) {
	output := map[string]any{
		"error":   displayMessage(err),
		"success": false,
	}

	var (
		cmdErr      *CommandError
		validErr    *ValidationError
		notFoundErr *NotFoundError
		fieldErrs   validate.Errors
	)
	switch {
	case errors.As(err, &validErr):
		output["error_type"] = "validation_error"
		output["field"] = validErr.Field
		output["value"] = validErr.Value
		output["reason"] = validErr.Reason
		if validErr.Example != "" {
			output["example"] = validErr.Example
		}
	case errors.As(err, &fieldErrs):
		output["error_type"] = "validation_error"
		fields := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields[fe.Field] = fe.Message
		}
		output["fields"] = fields
	case errors.As(err, &notFoundErr):
		output["error_type"] = "not_found_error"
		output["resource"] = notFoundErr.Resource
		output["id"] = notFoundErr.ID
	case errors.As(err, &cmdErr):
		output["error_type"] = "command_error"
		output["command"] = cmdErr.Command
		output["action"] = cmdErr.Action
		output["reason"] = cmdErr.Reason
		if status := api.StatusCode(err); status != 0 {
			output["status"] = status
		}
	default:
		output["error_type"] = "generic_error"
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.Encode(output)
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode determines the appropriate exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		validErr    *ValidationError
		fieldErr    validate.FieldError
		fieldErrs   validate.Errors
		notFoundErr *NotFoundError
		cfgErrs     config.ValidateErrors
		clientErr   *api.ClientError
	)
	switch {
	case errors.As(err, &validErr), errors.As(err, &fieldErr), errors.As(err, &fieldErrs):
		return ExitUsageError
	case errors.As(err, &cfgErrs), errors.Is(err, config.ErrUnknownKey):
		return ExitConfigError
	case api.IsSignInRequired(err):
		return ExitAuthError
	case api.IsTimeout(err):
		return ExitTimeoutError
	case errors.As(err, &notFoundErr), api.IsNotFound(err):
		return ExitNotFoundError
	case errors.As(err, &clientErr) && clientErr.Type == api.ErrTypeNetwork:
		return ExitNetworkError
	case api.StatusCode(err) == 401 || api.StatusCode(err) == 403:
		return ExitAuthError
	}
	return ExitGeneralError
}
