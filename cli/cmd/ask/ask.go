package ask

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/compozy/docrag/cli/cmd"
	"github.com/compozy/docrag/cli/helpers"
	"github.com/compozy/docrag/engine/rag"
)

const previewLength = 160

// NewAskCommand answers a question from the ingested documents.
func NewAskCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question using the ingested documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, runAsk, args)
		},
	}
	command.Flags().String("document", "", "Restrict retrieval to one document id")
	command.Flags().Bool("stream", false, "Print the answer as it is generated")
	command.Flags().Bool("sources", true, "Print the chunks the answer was grounded on")
	return command
}

func runAsk(ctx context.Context, c *cobra.Command, executor *cmd.CommandExecutor, args []string) error {
	documentID, _ := c.Flags().GetString("document")
	stream, _ := c.Flags().GetBool("stream")
	showSources, _ := c.Flags().GetBool("sources")
	in := rag.AnswerInput{Question: strings.Join(args, " "), DocumentID: documentID}
	backend, err := executor.Backend(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()
	out := executor.Out
	var answer *rag.Answer
	if stream && out.Mode() == helpers.ModeText {
		answer, err = backend.AskStream(ctx, in, func(fragment string) error {
			_, err := io.WriteString(out.Writer(), fragment)
			return err
		})
		if err == nil {
			out.Text("")
		}
	} else {
		answer, err = backend.Ask(ctx, in)
		if err == nil && out.Mode() == helpers.ModeText {
			out.Text(answer.Text)
		}
	}
	if err != nil {
		return err
	}
	if out.Mode() == helpers.ModeJSON {
		if answer.Sources == nil {
			answer.Sources = []rag.Result{}
		}
		return out.JSON(answer)
	}
	if answer.NoRelevantContent {
		out.Muted("No relevant documents were found for this question.")
		return nil
	}
	if showSources {
		printResults(out, "Sources", answer.Sources)
	}
	return nil
}

// NewSearchCommand lists matching chunks without generating an answer.
func NewSearchCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "search <question>",
		Short: "Find the chunks most similar to a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, runSearch, args)
		},
	}
	command.Flags().String("document", "", "Restrict the search to one document id")
	command.Flags().Int("max-results", 0, "Maximum number of chunks (defaults to rag.search_max_results)")
	command.Flags().Float64("min-score", -1, "Minimum similarity score (defaults to rag.search_min_score)")
	return command
}

func runSearch(ctx context.Context, c *cobra.Command, executor *cmd.CommandExecutor, args []string) error {
	q := rag.Query{
		Question:   strings.Join(args, " "),
		MaxResults: executor.Config.RAG.SearchMaxResults,
		MinScore:   executor.Config.RAG.SearchMinScore,
	}
	q.DocumentID, _ = c.Flags().GetString("document")
	if c.Flags().Changed("max-results") {
		q.MaxResults, _ = c.Flags().GetInt("max-results")
	}
	if c.Flags().Changed("min-score") {
		q.MinScore, _ = c.Flags().GetFloat64("min-score")
	}
	backend, err := executor.Backend(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()
	result, err := backend.Search(ctx, q)
	if err != nil {
		return err
	}
	out := executor.Out
	if out.Mode() == helpers.ModeJSON {
		if result.Results == nil {
			result.Results = []rag.Result{}
		}
		return out.JSON(map[string]any{
			"success":         true,
			"question":        result.Question,
			"relevantContent": result.RelevantContent,
			"resultCount":     len(result.Results),
			"minScore":        result.MinScore,
			"documentId":      result.DocumentID,
			"results":         result.Results,
		})
	}
	if len(result.Results) == 0 {
		out.Muted("No chunks scored at or above %.2f.", result.MinScore)
		return nil
	}
	printResults(out, fmt.Sprintf("%d result(s)", len(result.Results)), result.Results)
	return nil
}

func printResults(out *helpers.Output, title string, results []rag.Result) {
	out.Title("%s", title)
	for i, r := range results {
		out.Field(fmt.Sprintf("#%d", i+1), fmt.Sprintf("%s [chunk %d] score %.3f", r.FileName, r.ChunkIndex, r.Score))
		out.Muted("    %s", helpers.Truncate(r.Text, previewLength))
	}
}
