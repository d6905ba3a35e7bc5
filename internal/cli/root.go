// Package cli implements the bedrock-demo commands.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/spf13/cobra"

	bedrockllm "github.com/lucasalvarezlacasa/amazon-bedrock"
	"github.com/lucasalvarezlacasa/amazon-bedrock/internal/config"
	"github.com/lucasalvarezlacasa/amazon-bedrock/internal/logging"
	"github.com/lucasalvarezlacasa/amazon-bedrock/internal/session"
	"github.com/lucasalvarezlacasa/amazon-bedrock/internal/telemetry"
	"github.com/lucasalvarezlacasa/amazon-bedrock/providers/bedrock"
	"github.com/lucasalvarezlacasa/amazon-bedrock/providers/lorem"
)

// app holds flag values and the state built once per command run.
type app struct {
	cfgFile   string
	offline   bool
	modelID   string
	wordDelay time.Duration

	cfg      *config.Config
	logger   *slog.Logger
	models   *bedrockllm.ModelCatalog
	shutdown telemetry.Shutdown

	awsCfg *aws.Config
	client *bedrock.Client
}

// NewRootCommand builds the command tree.
func NewRootCommand(version string) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:     "bedrock-demo",
		Short:   "Talk to Amazon Bedrock foundation models",
		Long:    "bedrock-demo lists foundation models and calls them through InvokeModel, Converse and the Anthropic Messages API, blocking or streamed.",
		Version: version,

		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file path (default: ./bedrock.yaml or ./config/bedrock.yaml)")
	root.PersistentFlags().BoolVar(&a.offline, "offline", false, "answer with the local lorem ipsum runtime instead of AWS")
	root.PersistentFlags().StringVarP(&a.modelID, "model", "m", "", "model ID (overrides BEDROCK_MODEL_ID)")
	root.PersistentFlags().DurationVar(&a.wordDelay, "word-delay", lorem.DefaultWordDelay, "delay between streamed words in offline mode")

	root.AddCommand(
		a.modelsCmd(),
		a.invokeCmd(),
		a.converseCmd(),
		a.messagesCmd(),
		a.demoCmd(),
	)
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute(version string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCommand(version).ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if _, err := config.LoadEnv(""); err != nil {
		return err
	}
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.offline {
		cfg.Offline = true
	}
	if a.modelID != "" {
		cfg.ModelID = a.modelID
	}
	a.cfg = cfg
	a.logger = logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)

	a.models = bedrockllm.DefaultCatalog()
	if cfg.ModelsPath != "" {
		models := bedrockllm.NewModelCatalog()
		for _, m := range bedrockllm.DefaultCatalog().Models() {
			models.Register(m)
		}
		if err := models.LoadFile(cfg.ModelsPath); err != nil {
			return err
		}
		a.models = models
	}

	shutdown, err := telemetry.Setup(cmd.Context(), cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	a.shutdown = shutdown
	return nil
}

func (a *app) teardown(cmd *cobra.Command, _ []string) error {
	if a.shutdown == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.shutdown(ctx)
}

// awsConfig returns the SDK config, exchanging long-lived keys for a session token
// unless a session token is already configured.
func (a *app) awsConfig(ctx context.Context) (aws.Config, error) {
	if a.awsCfg != nil {
		return *a.awsCfg, nil
	}

	keys := session.Credentials{
		AccessKeyID:     a.cfg.AccessKeyID,
		SecretAccessKey: a.cfg.SecretAccessKey,
		SessionToken:    a.cfg.SessionToken,
	}

	var cfg aws.Config
	var err error
	if a.cfg.HasStaticKeys() && keys.SessionToken == "" {
		var temp session.Credentials
		cfg, temp, err = session.Start(ctx, a.cfg.Region, keys, a.cfg.SessionDuration)
		if err == nil {
			a.logger.Info("session token generated", "expires", temp.Expiration)
		}
	} else {
		cfg, err = session.LoadAWSConfig(ctx, a.cfg.Region, keys)
	}
	if err != nil {
		return aws.Config{}, err
	}

	a.awsCfg = &cfg
	return cfg, nil
}

// bedrockClient returns the transport client, backed by AWS or the offline runtime.
func (a *app) bedrockClient(ctx context.Context) (*bedrock.Client, error) {
	if a.client != nil {
		return a.client, nil
	}

	opts := []bedrock.Option{
		bedrock.WithLogger(a.logger),
		bedrock.WithModelCatalog(a.models),
	}

	if a.cfg.Offline {
		rt := lorem.NewRuntime(
			lorem.WithWordDelay(a.wordDelay),
			lorem.WithModelCatalog(a.models),
			lorem.WithLogger(a.logger),
		)
		a.client = bedrock.NewClientWithAPIs(rt, rt, opts...)
		return a.client, nil
	}

	cfg, err := a.awsConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to configure AWS: %w", err)
	}
	a.client = bedrock.NewClient(cfg, opts...)
	return a.client, nil
}
