package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasalvarezlacasa/amazon-bedrock/providers/anthropic"
)

var errOfflineMessages = errors.New("the messages command talks to Anthropic models on Bedrock and has no offline mode")

func (a *app) messagesCmd() *cobra.Command {
	f := &converseFlags{}
	cmd := &cobra.Command{
		Use:   "messages [question]",
		Short: "Send a conversation to a Claude model through the Anthropic Messages API on Bedrock",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Offline {
				return errOfflineMessages
			}
			question := defaultConverseQuestion
			if len(args) == 1 {
				question = args[0]
			}
			req, err := f.request(question)
			if err != nil {
				return err
			}

			modelID := a.cfg.AnthropicModelID
			if a.modelID != "" {
				modelID = a.modelID
			}

			cfg, err := a.awsConfig(cmd.Context())
			if err != nil {
				return err
			}
			provider, err := anthropic.NewProvider(
				anthropic.WithAWSConfig(cfg),
				anthropic.WithLogger(a.logger),
			)
			if err != nil {
				return err
			}

			if !f.stream {
				text, err := provider.MessagesOnce(cmd.Context(), modelID, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Model response:\n%s\n", text)
				return nil
			}
			fragments, err := provider.MessagesStreamed(cmd.Context(), modelID, req)
			if err != nil {
				return err
			}
			return printStream(cmd, fragments)
		},
	}
	f.register(cmd)
	return cmd
}
