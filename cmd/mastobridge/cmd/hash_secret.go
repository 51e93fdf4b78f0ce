package cmd

import (
	"fmt"

	"github.com/alexedwards/argon2id"
	"github.com/spf13/cobra"
)

// hashSecretParams mirrors internal/oauth's unexported argon2idParams, so
// hashes printed here use the same cost parameters as the client_secret_hash
// values the gateway stores.
var hashSecretParams = &argon2id.Params{
	Memory:      47 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

var hashSecretCmd = &cobra.Command{
	Use:   "hash-secret [client-secret]",
	Short: "Hash an OAuth client secret with the gateway's Argon2id parameters",
	Long: `Generate an Argon2id hash of an OAuth client_secret.

The hash uses the same Argon2id parameters internal/oauth uses for
client_secret_hash. Each run draws a fresh random salt, so the output is
never byte-for-byte equal to a stored client_secret_hash or to an earlier
run's output.

Security note: the secret will appear in shell history.
Consider clearing history after use or passing it via environment variable:
  mastobridge hash-secret "$MASTOBRIDGE_CLIENT_SECRET"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := argon2id.CreateHash(args[0], hashSecretParams)
		if err != nil {
			return fmt.Errorf("hash secret: %w", err)
		}
		fmt.Println(hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashSecretCmd)
}
