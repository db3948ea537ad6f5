package documents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/xhit/go-str2duration/v2"

	"github.com/compozy/docrag/cli/cmd"
	"github.com/compozy/docrag/cli/helpers"
	"github.com/compozy/docrag/engine/document"
	"github.com/compozy/docrag/engine/rag"
)

// NewDocumentsCommand groups the document lifecycle commands.
func NewDocumentsCommand() *cobra.Command {
	command := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"docs"},
		Short:   "List, inspect and delete ingested documents",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List active documents, newest first",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, runList, args)
		},
	}
	list.Flags().String("file-type", "", "Only documents with this extension (e.g. pdf)")
	list.Flags().String("uploaded-after", "", "Only documents uploaded after this RFC3339 time")
	list.Flags().String("within", "", "Only documents uploaded within this window (e.g. 36h, 7d, 2w)")
	list.MarkFlagsMutuallyExclusive("uploaded-after", "within")
	command.AddCommand(
		list,
		&cobra.Command{
			Use:   "get <id>",
			Short: "Show one document, active or deleted",
			Args:  cobra.ExactArgs(1),
			RunE: func(c *cobra.Command, args []string) error {
				return cmd.ExecuteCommand(c, runGet, args)
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Soft-delete a document so it no longer appears in answers",
			Args:  cobra.ExactArgs(1),
			RunE: func(c *cobra.Command, args []string) error {
				return cmd.ExecuteCommand(c, runDelete, args)
			},
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Count active documents and their chunks",
			Args:  cobra.NoArgs,
			RunE: func(c *cobra.Command, args []string) error {
				return cmd.ExecuteCommand(c, runStats, args)
			},
		},
	)
	return command
}

func runList(ctx context.Context, c *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	var filter rag.ListFilter
	filter.FileType, _ = c.Flags().GetString("file-type")
	if raw, _ := c.Flags().GetString("uploaded-after"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return helpers.NewCliError("INVALID_FLAGS", "--uploaded-after must be an RFC3339 time", err.Error())
		}
		filter.UploadedAfter = &t
	}
	if raw, _ := c.Flags().GetString("within"); raw != "" {
		after, err := uploadedWithin(raw, time.Now())
		if err != nil {
			return helpers.NewCliError("INVALID_FLAGS", "--within must be a positive duration such as 7d", err.Error())
		}
		filter.UploadedAfter = &after
	}
	backend, err := executor.Backend(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()
	records, err := backend.ListDocuments(ctx, filter)
	if err != nil {
		return err
	}
	out := executor.Out
	if out.Mode() == helpers.ModeJSON {
		return out.JSON(map[string]any{"success": true, "documents": records, "totalCount": len(records)})
	}
	if len(records) == 0 {
		out.Muted("No documents.")
		return nil
	}
	out.Title("%d document(s)", len(records))
	for _, rec := range records {
		out.Field(rec.ID, fmt.Sprintf("%s  %d chunks  %s", rec.FileName, rec.ChunkCount,
			rec.UploadedAt.Local().Format(time.DateTime)))
	}
	return nil
}

// uploadedWithin turns a window such as "7d" or "1w2d" into the cutoff time.
func uploadedWithin(window string, now time.Time) (time.Time, error) {
	d, err := str2duration.ParseDuration(strings.TrimSpace(window))
	if err != nil {
		return time.Time{}, err
	}
	if d <= 0 {
		return time.Time{}, fmt.Errorf("window %q is not positive", window)
	}
	return now.Add(-d).UTC(), nil
}

func runGet(ctx context.Context, _ *cobra.Command, executor *cmd.CommandExecutor, args []string) error {
	backend, err := executor.Backend(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()
	rec, err := backend.GetDocument(ctx, args[0])
	if err != nil {
		return err
	}
	out := executor.Out
	if out.Mode() == helpers.ModeJSON {
		return out.JSON(map[string]any{"success": true, "document": rec})
	}
	printRecord(out, rec)
	return nil
}

func printRecord(out *helpers.Output, rec *document.Record) {
	out.Title("%s", rec.FileName)
	out.Field("Document ID", rec.ID)
	out.Field("Active", rec.Active)
	out.Field("Type", rec.FileType)
	out.Field("Size", fmt.Sprintf("%d bytes", rec.FileSizeBytes))
	out.Field("Chunks", rec.ChunkCount)
	if rec.Description != "" {
		out.Field("Description", rec.Description)
	}
	out.Field("Uploaded", rec.UploadedAt.Local().Format(time.RFC3339))
	out.Field("Updated", rec.UpdatedAt.Local().Format(time.RFC3339))
}

func runDelete(ctx context.Context, _ *cobra.Command, executor *cmd.CommandExecutor, args []string) error {
	backend, err := executor.Backend(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()
	if err := backend.DeleteDocument(ctx, args[0]); err != nil {
		return err
	}
	out := executor.Out
	if out.Mode() == helpers.ModeJSON {
		return out.JSON(map[string]any{"success": true, "documentId": args[0]})
	}
	out.Text(fmt.Sprintf("Document %s deleted", args[0]))
	return nil
}

func runStats(ctx context.Context, _ *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	backend, err := executor.Backend(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()
	stats, err := backend.Stats(ctx)
	if err != nil {
		return err
	}
	out := executor.Out
	if out.Mode() == helpers.ModeJSON {
		return out.JSON(map[string]any{
			"success":         true,
			"activeDocuments": stats.ActiveDocuments,
			"totalChunks":     stats.TotalChunks,
		})
	}
	out.Field("Documents", stats.ActiveDocuments)
	out.Field("Chunks", stats.TotalChunks)
	return nil
}
