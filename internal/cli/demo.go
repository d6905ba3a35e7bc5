package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasalvarezlacasa/amazon-bedrock/providers/bedrock"
)

// demoListLimit is how many models the demo prints.
const demoListLimit = 5

func (a *app) demoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the full walkthrough: list, describe, invoke and converse, each blocking and streamed",
		Args:  cobra.NoArgs,
		RunE:  a.runDemo,
	}
}

func (a *app) runDemo(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	modelID := a.cfg.ModelID

	if !a.cfg.Offline {
		fmt.Fprintln(out, "Generate a token for the session...")
	}
	client, err := a.bedrockClient(ctx)
	if err != nil {
		return err
	}
	if !a.cfg.Offline {
		fmt.Fprintln(out, "Token successfully generated!")
	}

	heading(out, "Listing some available foundation models:")
	models, err := client.ListFoundationModels(ctx, bedrock.ModelFilter{})
	if err != nil {
		return err
	}
	for _, m := range models[:min(demoListLimit, len(models))] {
		printModel(out, m)
	}

	// The model must be enabled in the account beforehand.
	heading(out, fmt.Sprintf("Getting details for model: %s", modelID))
	if err := describeModel(cmd, client, modelID); err != nil {
		printError(cmd.ErrOrStderr(), err)
	}

	invoke := &invokeFlags{
		system:      defaultInvokeSystem,
		maxGenLen:   512,
		temperature: 0.7,
		topP:        0.9,
	}
	completion, err := completionRequest(invoke, defaultInvokeQuestion)
	if err != nil {
		return err
	}

	heading(out, fmt.Sprintf("Invoking model: %s (NO STREAMING)", modelID))
	if err := a.runInvoke(cmd, completion, false, false); err != nil {
		return err
	}
	heading(out, fmt.Sprintf("Invoking model: %s (WITH STREAMING)", modelID))
	if err := a.runInvoke(cmd, completion, true, false); err != nil {
		return err
	}

	converse := &converseFlags{
		system:      []string{defaultConverseSystem},
		maxTokens:   512,
		temperature: 0.5,
		topP:        0.9,
		topK:        200,
	}
	conversation, err := converse.request(defaultConverseQuestion)
	if err != nil {
		return err
	}

	heading(out, fmt.Sprintf("Invoking converse model: %s (NO STREAMING)", modelID))
	if err := a.runConverse(cmd, conversation, false); err != nil {
		return err
	}
	heading(out, fmt.Sprintf("Invoking converse model: %s (STREAMING)", modelID))
	return a.runConverse(cmd, conversation, true)
}
