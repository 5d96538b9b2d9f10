package cli

import (
	"time"

	"github.com/spf13/cobra"

	jwttoken "github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/jwt_token"
)

// TokenOptions holds flags for the token command.
type TokenOptions struct {
	*RootOptions
	Operator string
	TTL      time.Duration
}

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an operator token for the finalize API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Operator, "operator", "", "operator name carried by the token")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 0, "token lifetime (defaults to server.token_ttl)")
	_ = cmd.MarkFlagRequired("operator")

	return cmd
}

type tokenOutput struct {
	Token     string    `json:"token"`
	Operator  string    `json:"operator"`
	ExpiresAt time.Time `json:"expires_at"`
}

func runToken(cmd *cobra.Command, opts *TokenOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = cfg.Server.TokenTTL
	}

	tokens := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
	token, err := tokens.GenerateOperatorToken(opts.Operator, ttl)
	if err != nil {
		return WrapExitError(ExitCommandError, "issue token", err)
	}

	out := opts.output(cmd)
	if out.JSON() {
		return out.WriteJSON(tokenOutput{
			Token:     token,
			Operator:  opts.Operator,
			ExpiresAt: time.Now().Add(ttl).UTC().Truncate(time.Second),
		})
	}
	out.Printf("%s\n", token)
	return nil
}
