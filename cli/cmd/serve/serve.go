package serve

import (
	"fmt"
	"net"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/compozy/docrag/engine/infra/server"
	appconfig "github.com/compozy/docrag/pkg/config"
	"github.com/compozy/docrag/pkg/logger"
)

// NewServeCommand starts the HTTP API.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start the docrag HTTP API",
		RunE:    runServe,
	}
	cmd.Flags().String("host", "", "Interface to bind")
	cmd.Flags().Int("port", 0, "Port to listen on")
	cmd.Flags().String("base-path", "", "API base path")
	cmd.Flags().Bool("metrics", false, "Expose Prometheus metrics")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := appconfig.FromContext(ctx)
	log := logger.FromContext(ctx)
	if debug, _ := cmd.Flags().GetBool(logger.FlagDebug); !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if !portAvailable(cfg.Server.Host, cfg.Server.Port) {
		return fmt.Errorf("port %d is not available on host %s", cfg.Server.Port, cfg.Server.Host)
	}
	log.Info("Starting docrag server", "config", cfg.String())
	srv, err := server.NewServer(ctx)
	if err != nil {
		return err
	}
	return srv.Run()
}

func portAvailable(host string, port int) bool {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return false
	}
	ln.Close()
	return true
}
