package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/compozy/docrag/cli/api"
	"github.com/compozy/docrag/cli/helpers"
	"github.com/compozy/docrag/engine/infra/server"
	appconfig "github.com/compozy/docrag/pkg/config"
	"github.com/compozy/docrag/pkg/logger"
)

// Global flag names shared by every command.
const (
	FlagConfig  = "config"
	FlagEnvFile = "env-file"
	FlagFormat  = "format"
	FlagServer  = "server"
)

// AddGlobalFlags registers the persistent flags and the backend overrides that
// map onto configuration paths.
func AddGlobalFlags(root *cobra.Command) {
	pf := root.PersistentFlags()
	pf.String(FlagConfig, "docrag.yaml", "Path to the YAML configuration file")
	pf.String(FlagEnvFile, ".env", "Path to a .env file loaded before configuration")
	pf.String(FlagFormat, string(helpers.ModeAuto), "Output format: auto, text or json")
	pf.String(FlagServer, "", "Send requests to a running server instead of local services (e.g. http://localhost:8080)")
	logger.AddFlags(pf)

	pf.String("metadata-driver", "", "Document metadata store: postgres or sqlite")
	pf.String("db-conn-string", "", "Postgres connection string")
	pf.String("sqlite-path", "", "SQLite database file")
	pf.String("redis-url", "", "Redis connection URL")
	pf.String("llm-provider", "", "Chat model provider")
	pf.String("llm-model", "", "Chat model name")
	pf.String("embedder-provider", "", "Embedding provider")
	pf.String("embedder-model", "", "Embedding model name")
	pf.String("vector-provider", "", "Vector store: pgvector, qdrant, redis, filesystem or memory")
	pf.String("vector-dsn", "", "Vector store connection string")
	pf.String("vector-path", "", "Vector snapshot path for the filesystem provider")
	pf.String("chunk-strategy", "", "Chunking strategy: window or recursive")
	pf.Int("chunk-size", 0, "Chunk size in characters")
	pf.Int("chunk-overlap", 0, "Chunk overlap in characters")
	pf.String("memory-driver", "", "Chat memory driver: memory or redis")
}

// Bootstrap loads .env, configuration and logging into the command context.
// It runs as the root PersistentPreRunE.
func Bootstrap(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	envFile, _ := flags.GetString(FlagEnvFile)
	if err := loadEnvFile(envFile, flags.Changed(FlagEnvFile)); err != nil {
		return err
	}
	log := logger.Init(logger.ConfigFromFlags(flags, cmd.ErrOrStderr()))
	configFile, _ := flags.GetString(FlagConfig)
	if flags.Changed(FlagConfig) {
		if _, err := os.Stat(configFile); err != nil {
			return fmt.Errorf("config file %s: %w", configFile, err)
		}
	}
	svc := appconfig.NewService()
	cfg, err := svc.Load(
		cmd.Context(),
		appconfig.NewYAMLProvider(configFile),
		appconfig.NewCLIProvider(changedConfigFlags(flags)),
	)
	if err != nil {
		return err
	}
	ctx := logger.ContextWithLogger(cmd.Context(), log)
	ctx = appconfig.ContextWithConfig(ctx, cfg)
	ctx = context.WithValue(ctx, configServiceKey{}, svc)
	cmd.SetContext(ctx)
	log.Debug("Configuration loaded", "config", cfg.String())
	return nil
}

type configServiceKey struct{}

// ConfigService returns the loader that produced the context configuration,
// which remembers where each value came from.
func ConfigService(ctx context.Context) appconfig.Service {
	svc, _ := ctx.Value(configServiceKey{}).(appconfig.Service)
	return svc
}

func loadEnvFile(path string, explicit bool) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if explicit {
			return fmt.Errorf("env file %s: %w", path, err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// changedConfigFlags collects explicitly set flags that map to config paths.
func changedConfigFlags(flags *pflag.FlagSet) map[string]any {
	out := map[string]any{}
	flags.Visit(func(f *pflag.Flag) {
		if _, ok := appconfig.CLIFlagPath(f.Name); !ok {
			return
		}
		switch f.Value.Type() {
		case "int":
			v, _ := flags.GetInt(f.Name)
			out[f.Name] = v
		case "bool":
			v, _ := flags.GetBool(f.Name)
			out[f.Name] = v
		default:
			out[f.Name] = f.Value.String()
		}
	})
	return out
}

// CommandExecutor carries what a command handler needs: configuration, the
// output writer and access to either local services or a remote server.
type CommandExecutor struct {
	Config *appconfig.Config
	Out    *helpers.Output
	mode   helpers.Mode
	color  bool
	server string
}

// HandlerFunc is a command body.
type HandlerFunc func(ctx context.Context, cmd *cobra.Command, executor *CommandExecutor, args []string) error

// NewCommandExecutor reads the bootstrapped context and global flags.
func NewCommandExecutor(cmd *cobra.Command) (*CommandExecutor, error) {
	cfg := appconfig.FromContext(cmd.Context())
	format, _ := cmd.Flags().GetString(FlagFormat)
	mode, err := helpers.ParseMode(format)
	if err != nil {
		return nil, err
	}
	stdout := os.Stdout
	mode = helpers.ResolveMode(mode, stdout)
	color := mode == helpers.ModeText && helpers.ShouldUseColor(stdout)
	serverURL, _ := cmd.Flags().GetString(FlagServer)
	return &CommandExecutor{
		Config: cfg,
		Out:    helpers.NewOutput(cmd.OutOrStdout(), mode, color),
		mode:   mode,
		color:  color,
		server: strings.TrimSpace(serverURL),
	}, nil
}

// Mode returns the resolved output mode.
func (e *CommandExecutor) Mode() helpers.Mode { return e.mode }

// Remote reports whether --server was given.
func (e *CommandExecutor) Remote() bool { return e.server != "" }

// Backend opens the document backend: a client for --server, otherwise the
// local service graph built from configuration.
func (e *CommandExecutor) Backend(ctx context.Context) (Backend, error) {
	if e.Remote() {
		client, err := api.NewClient(e.server, e.Config.Server.BasePath, e.Config.Server.Timeout)
		if err != nil {
			return nil, err
		}
		return &remoteBackend{client: client}, nil
	}
	services, err := server.SetupServices(ctx, e.Config, nil)
	if err != nil {
		return nil, err
	}
	return &localBackend{services: services}, nil
}

// ExecuteCommand runs handler and reports failures in the selected format.
func ExecuteCommand(cmd *cobra.Command, handler HandlerFunc, args []string) error {
	executor, err := NewCommandExecutor(cmd)
	if err != nil {
		return report(cmd, err, helpers.ModeText, false)
	}
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if err := handler(ctx, cmd, executor, args); err != nil {
		return report(cmd, err, executor.mode, executor.color)
	}
	return nil
}

// ErrReported marks an error already written to stderr.
var ErrReported = errors.New("command failed")

func report(cmd *cobra.Command, err error, mode helpers.Mode, color bool) error {
	err = helpers.Categorize(err)
	helpers.WriteError(cmd.ErrOrStderr(), err, mode, color)
	return fmt.Errorf("%w: %w", ErrReported, err)
}
