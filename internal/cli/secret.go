package cli

import (
	"bufio"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/platform/secrets"
)

// NewHashSecretCommand creates the hash-secret command.
func NewHashSecretCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hash-secret",
		Short: "Hash an operator secret read from stdin for server.operators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHashSecret(cmd, rootOpts)
		},
	}
}

type hashOutput struct {
	Hash string `json:"hash"`
}

func runHashSecret(cmd *cobra.Command, opts *RootOptions) error {
	scanner := bufio.NewScanner(cmd.InOrStdin())
	var secret string
	if scanner.Scan() {
		secret = strings.TrimSpace(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return WrapExitError(ExitCommandError, "read secret", err)
	}

	hash, err := secrets.Hash(secret)
	if err != nil {
		return WrapExitError(ExitCommandError, "hash secret", err)
	}

	out := opts.output(cmd)
	if out.JSON() {
		return out.WriteJSON(hashOutput{Hash: hash})
	}
	out.Printf("%s\n", hash)
	return nil
}
