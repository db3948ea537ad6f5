package version

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/compozy/docrag/cli/cmd"
	"github.com/compozy/docrag/cli/helpers"
	pkgversion "github.com/compozy/docrag/pkg/version"
)

// NewVersionCommand prints build information.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, run, args)
		},
	}
}

func run(_ context.Context, _ *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	info := pkgversion.Get()
	out := executor.Out
	if out.Mode() == helpers.ModeJSON {
		return out.JSON(info)
	}
	out.Title("docrag %s", info.Version)
	out.Field("Commit", info.CommitHash)
	out.Field("Built", info.BuildDate)
	out.Field("Go", info.GoVersion)
	return nil
}
