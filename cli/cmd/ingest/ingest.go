package ingest

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/compozy/docrag/cli/api"
	"github.com/compozy/docrag/cli/cmd"
	"github.com/compozy/docrag/cli/helpers"
	"github.com/compozy/docrag/engine/document"
	"github.com/compozy/docrag/pkg/logger"
)

// NewIngestCommand uploads one or more files.
func NewIngestCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Parse, chunk, embed and store documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, runIngest, args)
		},
	}
	command.Flags().String("id", "", "Document id (only valid with a single file)")
	command.Flags().String("description", "", "Free-form description stored with the document")
	return command
}

func runIngest(ctx context.Context, c *cobra.Command, executor *cmd.CommandExecutor, args []string) error {
	id, _ := c.Flags().GetString("id")
	description, _ := c.Flags().GetString("description")
	if id != "" && len(args) > 1 {
		return helpers.NewCliError("INVALID_FLAGS", "--id can only be used with a single file")
	}
	backend, err := executor.Backend(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()
	log := logger.FromContext(ctx)
	records := make([]*document.Record, 0, len(args))
	for _, path := range args {
		rec, err := backend.Ingest(ctx, api.IngestInput{Path: path, DocumentID: id, Description: description})
		if err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}
		log.Debug("Document ingested", "document_id", rec.ID, "chunks", rec.ChunkCount)
		records = append(records, rec)
	}
	out := executor.Out
	if out.Mode() == helpers.ModeJSON {
		return out.JSON(map[string]any{"success": true, "documents": records, "count": len(records)})
	}
	for _, rec := range records {
		out.Title("Ingested %s", rec.FileName)
		out.Field("Document ID", rec.ID)
		out.Field("Chunks", rec.ChunkCount)
		out.Field("Size", fmt.Sprintf("%d bytes", rec.FileSizeBytes))
	}
	return nil
}
