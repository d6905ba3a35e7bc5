package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	bedrockllm "github.com/lucasalvarezlacasa/amazon-bedrock"
)

const (
	defaultInvokeSystem   = "You are a helpful AI assistant for travel tips and recommendations"
	defaultInvokeQuestion = "What can you help me with?"
)

type invokeFlags struct {
	system      string
	maxGenLen   int
	temperature float64
	topP        float64
	stream      bool
	payload     bool
	raw         bool
	requestFile string
}

func (a *app) invokeCmd() *cobra.Command {
	f := &invokeFlags{}
	cmd := &cobra.Command{
		Use:   "invoke [question]",
		Short: "Send a Llama 3 completion through InvokeModel",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := defaultInvokeQuestion
			if len(args) == 1 {
				question = args[0]
			}
			var req *bedrockllm.CompletionRequest
			var err error
			if f.requestFile != "" {
				req, err = readRequest(f.requestFile, bedrockllm.DecodeCompletionPayload)
			} else {
				req, err = completionRequest(f, question)
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
			return a.runInvoke(cmd, req, f.stream, f.raw)
		},
	}
	cmd.Flags().StringVar(&f.system, "system", defaultInvokeSystem, "system instruction")
	cmd.Flags().IntVar(&f.maxGenLen, "max-gen-len", bedrockllm.DefaultMaxGenLen, "maximum tokens to generate")
	cmd.Flags().Float64Var(&f.temperature, "temperature", bedrockllm.DefaultTemperature, "sampling temperature (0-1)")
	cmd.Flags().Float64Var(&f.topP, "top-p", bedrockllm.DefaultTopP, "nucleus sampling threshold (0-1)")
	cmd.Flags().BoolVar(&f.stream, "stream", false, "stream the response")
	cmd.Flags().BoolVar(&f.payload, "payload", false, "print the request body and exit")
	cmd.Flags().BoolVar(&f.raw, "raw", false, "print streamed chunks as received")
	cmd.Flags().StringVar(&f.requestFile, "request", "", "read the request body from a JSON file (as printed by --payload)")
	return cmd
}

func completionRequest(f *invokeFlags, question string) (*bedrockllm.CompletionRequest, error) {
	msg, err := bedrockllm.UserText(question)
	if err != nil {
		return nil, err
	}
	prompt := bedrockllm.FormatLlama3Prompt(f.system, []bedrockllm.Message{msg})
	return bedrockllm.NewCompletionRequest(prompt,
		bedrockllm.WithMaxGenLen(f.maxGenLen),
		bedrockllm.WithTemperature(f.temperature),
		bedrockllm.WithTopP(f.topP),
	)
}

func (a *app) runInvoke(cmd *cobra.Command, req *bedrockllm.CompletionRequest, stream, raw bool) error {
	client, err := a.bedrockClient(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	modelID := a.cfg.ModelID

	if !stream {
		text, err := client.InvokeOnce(cmd.Context(), modelID, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Model response:\n%s\n", strings.TrimSpace(text))
		return nil
	}

	chunks, err := client.InvokeStreamed(cmd.Context(), modelID, req)
	if err != nil {
		return err
	}
	defer chunks.Close()

	for chunks.Next() {
		chunk := chunks.Current()
		if raw {
			fmt.Fprintln(out, string(chunk.Raw))
			continue
		}
		fmt.Fprint(out, chunk.Generation)
		if chunk.StopReason != "" {
			fmt.Fprintf(out, "\n[stop: %s, tokens: %d]\n", chunk.StopReason, chunk.GenerationTokens)
		}
	}
	return chunks.Err()
}

// readRequest loads a saved JSON payload and validates it through decode.
func readRequest[T any](path string, decode func([]byte) (T, error)) (T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to read request: %w", err)
	}
	return decode(data)
}
