package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/concord/internal/payload"
	"github.com/roach88/concord/internal/resolve"
	"github.com/roach88/concord/internal/txlog"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	BatchSize int
	Grouped   bool
	Audit     string
}

// ConflictReport is one applied resolution in a resolve report.
type ConflictReport struct {
	First      string `json:"first"`
	Second     string `json:"second"`
	Type       string `json:"type"`
	Resolution string `json:"resolution"`
}

// ResolveReport is the output of the resolve command.
type ResolveReport struct {
	Operations    int                 `json:"operations"`
	Conflicts     []ConflictReport    `json:"conflicts"`
	Surviving     []resolve.Operation `json:"surviving"`
	TransactionID string              `json:"transaction_id,omitempty"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <batch-file>",
		Short: "Resolve conflicts in an operation batch",
		Long: `Resolve conflicts in a batch of sync operations.

Loads a JSON batch file, detects conflicting pairs, applies the
deterministic resolution policy, and reports the surviving operations.

Example:
  concord resolve ./batch.json
  concord resolve ./batch.json --grouped --audit ./audit.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", 0, "detection window width (0 = default)")
	cmd.Flags().BoolVar(&opts.Grouped, "grouped", false, "group operations by entity type instead of windowing")
	cmd.Flags().StringVar(&opts.Audit, "audit", "", "record the run in a transaction log at this SQLite path")

	return cmd
}

func runResolve(opts *ResolveOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	batch, loadErrors := LoadBatch(path)
	if len(loadErrors) > 0 {
		return outputBatchErrors(formatter, loadErrors)
	}
	ops := batch.Operations
	formatter.VerboseLog("Loaded %d operation(s) from %s", len(ops), path)

	resolver := resolve.New()

	var (
		surviving []resolve.Operation
		outcomes  []resolve.Outcome
	)
	if opts.Grouped {
		surviving, outcomes = resolver.ResolveGroupedOutcomes(ops)
	} else {
		surviving, outcomes = resolver.ResolveBatchOutcomes(ops, opts.BatchSize)
	}

	report := ResolveReport{
		Operations: len(ops),
		Conflicts:  make([]ConflictReport, 0, len(outcomes)),
		Surviving:  surviving,
	}
	for _, outcome := range outcomes {
		report.Conflicts = append(report.Conflicts, ConflictReport{
			First:      ops[outcome.Conflict.I].ID,
			Second:     ops[outcome.Conflict.J].ID,
			Type:       outcome.Conflict.Type.String(),
			Resolution: outcome.Resolution.String(),
		})
	}

	if opts.Audit != "" {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		txID, err := recordAudit(ctx, opts.Audit, path, report)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to record audit transaction", err)
		}
		report.TransactionID = txID
	}

	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	fmt.Fprintf(formatter.Writer, "Resolved %d operation(s): %d conflict(s), %d surviving\n",
		report.Operations, len(report.Conflicts), len(report.Surviving))
	for _, c := range report.Conflicts {
		fmt.Fprintf(formatter.Writer, "  %s first=%s second=%s resolution=%s\n",
			c.Type, c.First, c.Second, c.Resolution)
	}
	ids := make([]string, 0, len(report.Surviving))
	for _, op := range report.Surviving {
		ids = append(ids, op.ID)
	}
	fmt.Fprintf(formatter.Writer, "Surviving: %s\n", strings.Join(ids, ", "))
	if report.TransactionID != "" {
		fmt.Fprintf(formatter.Writer, "Audit transaction: %s\n", report.TransactionID)
	}
	return nil
}

// recordAudit writes one transaction to the audit log covering the
// whole run, with one step per applied resolution. A recording failure
// marks the transaction failed before returning.
func recordAudit(ctx context.Context, dbPath, batchPath string, report ResolveReport) (string, error) {
	store, err := txlog.Open(dbPath)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("error closing audit log", "error", closeErr)
		}
	}()

	handler := txlog.NewHandler(store, txlog.Event{
		EntityType:   "sync_batch",
		EntityID:     filepath.Base(batchPath),
		Operation:    "resolve",
		SourceSystem: "cli",
		TargetSystem: "local",
		Data: payload.Object{
			"operations": payload.NumberOf(int64(report.Operations)),
			"conflicts":  payload.NumberOf(int64(len(report.Conflicts))),
			"surviving":  payload.NumberOf(int64(len(report.Surviving))),
		},
	})

	if err := handler.Begin(ctx); err != nil {
		return "", err
	}
	for _, c := range report.Conflicts {
		step := payload.Object{
			"first":      payload.String(c.First),
			"second":     payload.String(c.Second),
			"type":       payload.String(c.Type),
			"resolution": payload.String(c.Resolution),
		}
		if err := handler.RecordStep(ctx, "conflict resolved", step); err != nil {
			_ = handler.Fail(ctx, err)
			return "", err
		}
	}
	if err := handler.Commit(ctx); err != nil {
		return "", err
	}
	return handler.ID(), nil
}
