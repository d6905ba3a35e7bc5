package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	bedrockllm "github.com/lucasalvarezlacasa/amazon-bedrock"
)

const (
	defaultConverseSystem = "You are an app that creates playlists for a radio station that plays rock and pop music. " +
		"Only return song names and the artist."
	defaultConverseQuestion = "Create a list of 10 pop songs."
)

type converseFlags struct {
	system      []string
	maxTokens   int
	temperature float64
	topP        float64
	topK        int
	stop        []string
	stream      bool
	payload     bool
	requestFile string
}

func (f *converseFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.system, "system", []string{defaultConverseSystem}, "system prompt (repeatable)")
	cmd.Flags().IntVar(&f.maxTokens, "max-tokens", bedrockllm.DefaultMaxTokens, "maximum tokens to generate")
	cmd.Flags().Float64Var(&f.temperature, "temperature", 0.5, "sampling temperature (0-1)")
	cmd.Flags().Float64Var(&f.topP, "top-p", bedrockllm.DefaultTopP, "nucleus sampling threshold (0-1)")
	cmd.Flags().IntVar(&f.topK, "top-k", 200, "top-k sampling, sent as an additional model field (0 = omit)")
	cmd.Flags().StringArrayVar(&f.stop, "stop", nil, "stop sequence (repeatable)")
	cmd.Flags().BoolVar(&f.stream, "stream", false, "stream the response")
}

func (f *converseFlags) request(question string) (*bedrockllm.ConversationRequest, error) {
	msg, err := bedrockllm.UserText(question)
	if err != nil {
		return nil, err
	}
	system := make([]bedrockllm.TextBlock, 0, len(f.system))
	for _, s := range f.system {
		system = append(system, bedrockllm.Text(s))
	}

	var extra []bedrockllm.AdditionalFieldOption
	if f.topK > 0 {
		extra = append(extra, bedrockllm.WithTopK(f.topK))
	}

	return bedrockllm.NewConversationRequest(
		system,
		[]bedrockllm.Message{msg},
		bedrockllm.NewInferenceConfig(
			bedrockllm.WithMaxTokens(f.maxTokens),
			bedrockllm.WithInferenceTemperature(f.temperature),
			bedrockllm.WithInferenceTopP(f.topP),
			bedrockllm.WithStopSequences(f.stop...),
		),
		bedrockllm.NewAdditionalModelFields(extra...),
	)
}

func (a *app) converseCmd() *cobra.Command {
	f := &converseFlags{}
	cmd := &cobra.Command{
		Use:   "converse [question]",
		Short: "Send a conversation through the Converse API",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := defaultConverseQuestion
			if len(args) == 1 {
				question = args[0]
			}
			var req *bedrockllm.ConversationRequest
			var err error
			if f.requestFile != "" {
				req, err = readRequest(f.requestFile, bedrockllm.DecodeConversationPayload)
			} else {
				req, err = f.request(question)
			}
			if err != nil {
				return err
			}
			if f.payload {
				body, err := req.Serialize()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(body))
				return nil
			}
			return a.runConverse(cmd, req, f.stream)
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&f.payload, "payload", false, "print the request payload and exit")
	cmd.Flags().StringVar(&f.requestFile, "request", "", "read the request payload from a JSON file (as printed by --payload)")
	return cmd
}

func (a *app) runConverse(cmd *cobra.Command, req *bedrockllm.ConversationRequest, stream bool) error {
	client, err := a.bedrockClient(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	modelID := a.cfg.ModelID

	if !stream {
		text, err := client.ConverseOnce(cmd.Context(), modelID, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Model response:\n%s\n", text)
		return nil
	}

	fragments, err := client.ConverseStreamed(cmd.Context(), modelID, req)
	if err != nil {
		return err
	}
	return printStream(cmd, fragments)
}

func printStream(cmd *cobra.Command, fragments *bedrockllm.Stream[string]) error {
	defer fragments.Close()
	out := cmd.OutOrStdout()
	for fragments.Next() {
		fmt.Fprint(out, fragments.Current())
	}
	fmt.Fprintln(out)
	return fragments.Err()
}
