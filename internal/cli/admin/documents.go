package admin

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/service"
)

func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Ingest a document",
		Long:  "Extract, chunk and embed a local file and store it in the knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngest,
	}

	cmd.Flags().StringP("title", "t", "", "Document title (defaults to the file name)")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	path := args[0]
	title, _ := cmd.Flags().GetString("title")
	outputFormat, _ := cmd.Flags().GetString("output")

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	fileName := filepath.Base(path)
	contentType := http.DetectContentType(data)
	fileType, err := domain.DetectFileType(fileName, contentType)
	if err != nil {
		return err
	}

	return withApp(ctx, func(app *App) error {
		if limit := app.Config.MaxUploadBytes; limit > 0 && int64(len(data)) > limit {
			return domain.ErrFileTooLarge
		}

		text, err := app.Extractors.Extract(ctx, fileType, data)
		if err != nil {
			return err
		}

		result, err := app.Ingest.Ingest(ctx, service.IngestInput{
			Title:       title,
			FileName:    fileName,
			FileType:    fileType,
			ContentType: contentType,
			Text:        text,
			File:        data,
		})
		if err != nil {
			return fmt.Errorf("failed to ingest document: %w", err)
		}

		if outputFormat == "json" {
			return writeJSON(cmd.OutOrStdout(), result)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Ingested %s\n", fileName)
		fmt.Fprintf(cmd.OutOrStdout(), "  Document ID: %s\n", result.DocumentID)
		fmt.Fprintf(cmd.OutOrStdout(), "  Chunks:      %d\n", result.ChunksCount)
		if result.FilePath != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "  Stored at:   %s\n", *result.FilePath)
		}
		return nil
	})
}

func ReembedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reembed <document-id>",
		Short: "Regenerate a document's embeddings",
		Long:  "Recompute the embeddings of every chunk of a document with the configured model",
		Args:  cobra.ExactArgs(1),
		RunE:  runReembed,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runReembed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	outputFormat, _ := cmd.Flags().GetString("output")

	return withApp(ctx, func(app *App) error {
		result, err := app.Reembed.Reembed(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to regenerate embeddings: %w", err)
		}

		if outputFormat == "json" {
			return writeJSON(cmd.OutOrStdout(), result)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Regenerated %d chunk embeddings for %s\n", result.ChunksCount, result.DocumentID)
		return nil
	})
}
