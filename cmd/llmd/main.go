package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "llmd",
		Short:         "Local LLM generation daemon",
		Long:          "llmd serves text generation over local gguf models, as an HTTP daemon or a one-shot CLI.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newPredictCmd())
	if err := root.Execute(); err != nil {
		os.Stderr.WriteString("llmd: " + err.Error() + "\n")
		os.Exit(1)
	}
}
