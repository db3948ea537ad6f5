package cli

import (
	"github.com/spf13/cobra"

	"github.com/compozy/docrag/cli/cmd"
	"github.com/compozy/docrag/cli/cmd/ask"
	configcmd "github.com/compozy/docrag/cli/cmd/config"
	"github.com/compozy/docrag/cli/cmd/documents"
	"github.com/compozy/docrag/cli/cmd/ingest"
	"github.com/compozy/docrag/cli/cmd/migrate"
	"github.com/compozy/docrag/cli/cmd/serve"
	"github.com/compozy/docrag/cli/cmd/version"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "docrag",
		Short:             "Document question answering over your own files",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: cmd.Bootstrap,
	}
	cmd.AddGlobalFlags(root)

	root.AddCommand(
		serve.NewServeCommand(),
		migrate.NewMigrateCommand(),
		ingest.NewIngestCommand(),
		ask.NewAskCommand(),
		ask.NewSearchCommand(),
		documents.NewDocumentsCommand(),
		configcmd.NewConfigCommand(),
		version.NewVersionCommand(),
	)

	return root
}
