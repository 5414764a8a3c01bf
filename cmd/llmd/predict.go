package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"llmd/internal/common/fsutil"
	"llmd/internal/engine/llamacpp"
	"llmd/internal/session"
)

type predictOptions struct {
	modelPath       string
	maxTokens       int
	temperature     float32
	topK            int
	topP            float32
	seed            uint32
	threads         int
	contextLength   int
	maxPromptTokens int
	logLevel        string
}

func newPredictCmd() *cobra.Command {
	opts := &predictOptions{}
	cmd := &cobra.Command{
		Use:   "predict [prompt]",
		Short: "Generate a completion for one prompt, streaming tokens to stdout",
		Example: "  llmd predict -m ~/models/llm/tinyllama-q4.gguf \"Write a haiku about the ocean.\"\n" +
			"  llmd predict -m model.gguf --max-tokens 64 --temperature 0.2 \"Say hi\"",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(opts, args[0])
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.modelPath, "model", "m", "", "Path to the gguf model file (required)")
	f.IntVar(&opts.maxTokens, "max-tokens", 128, "Maximum number of new tokens")
	f.Float32Var(&opts.temperature, "temperature", 0.8, "Sampling temperature (0 = greedy)")
	f.IntVar(&opts.topK, "top-k", 40, "Top-K sampling cutoff")
	f.Float32Var(&opts.topP, "top-p", 0.95, "Nucleus sampling probability")
	f.Uint32Var(&opts.seed, "seed", 0, "Random seed (0 = engine default)")
	f.IntVar(&opts.threads, "threads", 0, "Evaluation threads (0 = default)")
	f.IntVar(&opts.contextLength, "context-length", 0, "Token context length (0 = default)")
	f.IntVar(&opts.maxPromptTokens, "max-prompt-tokens", 0, "Reject prompts longer than this many tokens (0 = context length)")
	f.StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug|info|warn|error")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

func runPredict(opts *predictOptions, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return errors.New("prompt is empty")
	}
	log := newLogger(opts.logLevel, "console")

	modelPath, err := fsutil.ExpandHome(opts.modelPath)
	if err != nil {
		return err
	}
	eng, err := llamacpp.New()
	if err != nil {
		return err
	}
	sess, err := session.Open(eng, session.Config{
		ModelPath:       modelPath,
		Threads:         opts.threads,
		ContextLength:   opts.contextLength,
		MaxPromptTokens: opts.maxPromptTokens,
		Logger:          log,
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	// Ctrl+C stops generation but still prints what was produced.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	_, err = sess.PredictStream(ctx, prompt, session.Params{
		MaxTokens:   opts.maxTokens,
		Temperature: opts.temperature,
		TopK:        opts.topK,
		TopP:        opts.topP,
		Seed:        opts.seed,
	}, func(frag string) error {
		_, werr := os.Stdout.WriteString(frag)
		return werr
	})
	fmt.Println()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
