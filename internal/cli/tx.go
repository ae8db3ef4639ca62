package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/concord/internal/payload"
	"github.com/roach88/concord/internal/txlog"
)

// TxOptions holds flags shared by the tx subcommands.
type TxOptions struct {
	*RootOptions
	Database string
	Limit    int
	Since    time.Duration
}

// NewTxCommand creates the tx command group for inspecting the sync
// transaction audit log.
func NewTxCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TxOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Inspect the sync transaction audit log",
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the audit log SQLite database (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	cmd.AddCommand(newTxShowCommand(opts))
	cmd.AddCommand(newTxRecentCommand(opts))
	cmd.AddCommand(newTxFailedCommand(opts))

	return cmd
}

func newTxShowCommand(opts *TxOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <transaction-id>",
		Short:         "Show one transaction with its steps",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTxShow(opts, args[0], cmd)
		},
	}
}

func newTxRecentCommand(opts *TxOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "recent",
		Short:         "List the most recent transactions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTxList(opts, cmd, func(ctx context.Context, store *txlog.Store) ([]*txlog.Transaction, error) {
				return store.ListRecent(ctx, opts.Limit)
			})
		},
	}
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum transactions to list")
	return cmd
}

func newTxFailedCommand(opts *TxOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "failed",
		Short:         "List failed and rolled-back transactions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			since := time.Now().Add(-opts.Since)
			return runTxList(opts, cmd, func(ctx context.Context, store *txlog.Store) ([]*txlog.Transaction, error) {
				return store.ListFailedSince(ctx, since, opts.Limit)
			})
		},
	}
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum transactions to list")
	cmd.Flags().DurationVar(&opts.Since, "since", 24*time.Hour, "how far back to look")
	return cmd
}

func runTxShow(opts *TxOptions, id string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	store, err := txlog.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open audit log", err)
	}
	defer store.Close()

	ctx := commandContext(cmd)
	txn, err := store.Get(ctx, id)
	if err != nil {
		if txlog.IsNotFound(err) {
			return WrapExitError(ExitCommandError, "transaction not found", err)
		}
		return WrapExitError(ExitCommandError, "failed to read transaction", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(txn)
	}

	printTransaction(formatter.Writer, txn)
	for _, step := range txn.Steps {
		fmt.Fprintf(formatter.Writer, "  %s  %s", step.At.Format(time.RFC3339), step.Description)
		if step.Data != nil {
			fmt.Fprintf(formatter.Writer, "  %s", renderStepData(step.Data))
		}
		fmt.Fprintln(formatter.Writer)
	}
	return nil
}

func runTxList(opts *TxOptions, cmd *cobra.Command, list func(context.Context, *txlog.Store) ([]*txlog.Transaction, error)) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	store, err := txlog.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open audit log", err)
	}
	defer store.Close()

	txns, err := list(commandContext(cmd), store)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list transactions", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(txns)
	}

	if len(txns) == 0 {
		fmt.Fprintln(formatter.Writer, "No transactions.")
		return nil
	}
	for _, txn := range txns {
		printTransaction(formatter.Writer, txn)
	}
	return nil
}

// printTransaction writes one transaction summary line.
func printTransaction(w io.Writer, txn *txlog.Transaction) {
	entity := txn.EntityType
	if txn.EntityID != "" {
		entity += "/" + txn.EntityID
	}
	fmt.Fprintf(w, "%s  %-11s %s  %s  %s  %dms",
		txn.ID, txn.Status, txn.Operation, entity,
		txn.StartTime.Format(time.RFC3339), txn.DurationMS)
	if txn.ErrorMessage != "" {
		fmt.Fprintf(w, "  error=%q", txn.ErrorMessage)
	}
	fmt.Fprintln(w)
}

func renderStepData(data payload.Object) string {
	encoded, err := payload.Encode(data)
	if err != nil {
		return fmt.Sprintf("<unencodable: %v>", err)
	}
	return string(encoded)
}

// commandContext returns the command's context, or a background
// context when the command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
