package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasalvarezlacasa/amazon-bedrock/providers/bedrock"
)

func (a *app) modelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List and describe foundation models",
	}
	cmd.AddCommand(a.modelsListCmd(), a.modelsGetCmd())
	return cmd
}

func (a *app) modelsListCmd() *cobra.Command {
	var (
		filter bedrock.ModelFilter
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List foundation models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.bedrockClient(cmd.Context())
			if err != nil {
				return err
			}
			models, err := client.ListFoundationModels(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if limit > 0 && len(models) > limit {
				models = models[:limit]
			}
			for _, m := range models {
				printModel(cmd.OutOrStdout(), m)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.Provider, "provider", "", "only models from this provider (e.g. Meta)")
	cmd.Flags().StringVar(&filter.OutputModality, "output-modality", "", "only models with this output modality (TEXT, IMAGE, EMBEDDING)")
	cmd.Flags().IntVar(&limit, "limit", 0, "print at most this many models (0 = all)")
	return cmd
}

func (a *app) modelsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [model-id]",
		Short: "Describe one foundation model (defaults to the configured model)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modelID := a.cfg.ModelID
			if len(args) == 1 {
				modelID = args[0]
			}
			client, err := a.bedrockClient(cmd.Context())
			if err != nil {
				return err
			}
			return describeModel(cmd, client, modelID)
		},
	}
}

func describeModel(cmd *cobra.Command, client *bedrock.Client, modelID string) error {
	info, err := client.GetFoundationModel(cmd.Context(), modelID)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(info, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode model details: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	fmt.Fprintf(cmd.OutOrStdout(), "Does model support streaming? %v\n", info.StreamingSupported)
	return nil
}
