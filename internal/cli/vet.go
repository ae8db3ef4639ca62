package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationIssue is one problem found in a batch file.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool              `json:"valid"`
	Operations int               `json:"operations,omitempty"`
	Errors     []ValidationIssue `json:"errors,omitempty"`
}

// NewVetCommand creates the vet command.
func NewVetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vet <batch-file>",
		Short: "Validate an operation batch without resolving it",
		Long: `Validate an operation batch file against the batch schema.

Checks JSON syntax, required fields, operation types, vector clock
shapes, and timestamp decodability without running resolution. Faster
feedback than resolve when authoring batches.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVet(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runVet(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	result, loadErrors := LoadBatch(path)
	if len(loadErrors) > 0 {
		return outputBatchErrors(formatter, loadErrors)
	}

	formatter.VerboseLog("Loaded %d operation(s) from %s", len(result.Operations), path)

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{
			Valid:      true,
			Operations: len(result.Operations),
		})
	}

	fmt.Fprintf(formatter.Writer, "✓ Batch valid (%d operations)\n", len(result.Operations))
	return nil
}

// outputBatchErrors reports batch load failures. File-level problems
// (missing path, unreadable file) are command errors; everything else
// is a validation failure.
func outputBatchErrors(formatter *OutputFormatter, loadErrors []error) error {
	issues := make([]ValidationIssue, 0, len(loadErrors))
	commandError := false
	for _, err := range loadErrors {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			if loadErr.Code == ErrCodeNotFound || loadErr.Code == ErrCodeReadFailed {
				commandError = true
			}
			issues = append(issues, ValidationIssue{
				Code:    loadErr.Code,
				Message: loadErr.Message,
				Line:    lineOf(loadErr.Pos),
			})
			continue
		}
		issues = append(issues, ValidationIssue{Code: ErrCodeGeneric, Message: err.Error()})
	}

	exitCode := ExitFailure
	if commandError {
		exitCode = ExitCommandError
	}

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: issues},
			Error: &CLIError{
				Code:    issues[0].Code,
				Message: issues[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		return NewExitError(exitCode, fmt.Sprintf("batch invalid with %d error(s)", len(issues)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Batch invalid")
	fmt.Fprintln(formatter.Writer)

	for _, issue := range issues {
		if issue.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", issue.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", issue.Code, issue.Message)
	}

	return NewExitError(exitCode, fmt.Sprintf("batch invalid with %d error(s)", len(issues)))
}
