package cli

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/concord/internal/vclock"
)

// NewVVCommand creates the vv command group for vector clock
// inspection.
func NewVVCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vv",
		Short: "Inspect wire-encoded vector clocks",
		Long: `Inspect wire-encoded vector clocks.

Vectors are passed as base64 or hex strings, or as @path to read raw
wire bytes from a file.`,
	}

	cmd.AddCommand(newVVDecodeCommand(rootOpts))
	cmd.AddCommand(newVVRelateCommand(rootOpts))

	return cmd
}

func newVVDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "decode <vector>",
		Short: "Decode a wire-encoded vector clock",
		Long: `Decode a wire-encoded vector clock to its replica counters.

Example:
  concord vv decode AAAAAQACZDEAAAAAAAAAAQ==
  concord vv decode @clock.bin`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVVDecode(rootOpts, args[0], cmd)
		},
	}
}

func runVVDecode(opts *RootOptions, arg string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	v, err := parseVectorArg(arg)
	if err != nil {
		return WrapExitError(ExitFailure, "invalid vector clock", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(v.ToMap())
	}
	fmt.Fprintln(formatter.Writer, v)
	return nil
}

func newVVRelateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "relate <vector> <vector> [vector...]",
		Short: "Classify the causal relationship between vector clocks",
		Long: `Classify the causal relationship between vector clocks.

Two vectors yield a pairwise relation (identical, happens_before,
happens_after, concurrent). Three or more yield a set relation
(identical, ordered, divergent).`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVVRelate(rootOpts, args, cmd)
		},
	}
}

func runVVRelate(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	vectors := make([]*vclock.VersionVector, 0, len(args))
	for i, arg := range args {
		v, err := parseVectorArg(arg)
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("invalid vector clock (argument %d)", i+1), err)
		}
		vectors = append(vectors, v)
	}

	var relation string
	if len(vectors) == 2 {
		relation = vectors[0].Relate(vectors[1]).String()
	} else {
		relation = vclock.RelateAll(vectors...).String()
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]string{"relation": relation})
	}
	fmt.Fprintln(formatter.Writer, relation)
	return nil
}

// parseVectorArg decodes one vector argument: @path reads raw wire
// bytes from a file, anything else is tried as base64 and then hex.
// A hex string can also be valid base64, so every decodable candidate
// is tried against the wire format.
func parseVectorArg(arg string) (*vclock.VersionVector, error) {
	if rest, ok := strings.CutPrefix(arg, "@"); ok {
		data, err := os.ReadFile(rest)
		if err != nil {
			return nil, fmt.Errorf("reading vector file: %w", err)
		}
		var v vclock.VersionVector
		if err := v.UnmarshalBinary(data); err != nil {
			return nil, err
		}
		return &v, nil
	}

	var candidates [][]byte
	if data, err := base64.StdEncoding.DecodeString(arg); err == nil {
		candidates = append(candidates, data)
	}
	if data, err := hex.DecodeString(arg); err == nil {
		candidates = append(candidates, data)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("argument is neither base64 nor hex")
	}

	var lastErr error
	for _, data := range candidates {
		var v vclock.VersionVector
		if err := v.UnmarshalBinary(data); err != nil {
			lastErr = err
			continue
		}
		return &v, nil
	}
	return nil, lastErr
}
