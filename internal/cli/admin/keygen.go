package admin

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/docqa/internal/service"
)

func KeygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen <user-id>",
		Short: "Generate an API key",
		Long:  "Generate a random API key and print the DOCQA_API_KEYS entry that maps it to a user",
		Args:  cobra.ExactArgs(1),
		RunE:  runKeygen,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runKeygen(cmd *cobra.Command, args []string) error {
	outputFormat, _ := cmd.Flags().GetString("output")
	userID := args[0]

	token, err := service.GenerateAPIToken()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	if outputFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), map[string]string{
			"user_id": userID,
			"token":   token,
			"entry":   token + ":" + userID,
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "API key for %s:\n", userID)
	fmt.Fprintf(cmd.OutOrStdout(), "  %s\n\n", token)
	fmt.Fprintln(cmd.OutOrStdout(), "Append to DOCQA_API_KEYS (comma separated):")
	fmt.Fprintf(cmd.OutOrStdout(), "  %s:%s\n", token, userID)
	fmt.Fprintln(cmd.OutOrStdout(), "\nSave this key now - it cannot be retrieved later.")
	return nil
}
