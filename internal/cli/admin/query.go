package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/docqa/internal/service"
)

func AskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question",
		Long:  "Answer a question from the ingested documents and list the sources used",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().String("user", "", "Record the question in this user's search history")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	outputFormat, _ := cmd.Flags().GetString("output")
	user, _ := cmd.Flags().GetString("user")

	return withApp(ctx, func(app *App) error {
		result, err := app.Ask.Ask(ctx, service.AskInput{
			UserID:   user,
			Question: strings.Join(args, " "),
		})
		if err != nil {
			return err
		}

		if outputFormat == "json" {
			return writeJSON(cmd.OutOrStdout(), result)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, result.Answer)
		if len(result.Sources) > 0 {
			fmt.Fprintln(out, "\nSources:")
			for i, s := range result.Sources {
				fmt.Fprintf(out, "  [%d] %s (chunk %d, %.2f)\n", i+1, s.DocumentTitle, s.ChunkIndex, s.Similarity)
			}
		}
		return nil
	})
}

func SearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <question>",
		Short: "Search for relevant chunks",
		Long:  "Rank stored chunks by similarity to a question without generating an answer",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}

	cmd.Flags().IntP("limit", "l", 0, "Maximum number of results (defaults to DOCQA_SEARCH_TOP_K)")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	limit, _ := cmd.Flags().GetInt("limit")
	outputFormat, _ := cmd.Flags().GetString("output")
	if limit < 0 {
		return fmt.Errorf("--limit must not be negative")
	}

	return withApp(ctx, func(app *App) error {
		results, err := app.Search.SearchText(ctx, strings.Join(args, " "), limit)
		if err != nil {
			return err
		}

		if outputFormat == "json" {
			return writeJSON(cmd.OutOrStdout(), results)
		}

		out := cmd.OutOrStdout()
		if len(results) == 0 {
			fmt.Fprintln(out, "No matching chunks found.")
			return nil
		}
		for i, r := range results {
			fmt.Fprintf(out, "%d. %s #%d (%.3f)\n", i+1, r.DocumentTitle, r.ChunkIndex, r.Similarity)
			fmt.Fprintf(out, "   %s\n", service.Preview(r.Content, 200))
		}
		return nil
	})
}
