package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/run-bigpig/agent-guard/pkg/modelarmor"
)

var checkKind string

var checkCmd = &cobra.Command{
	Use:   "check TEXT",
	Short: "Classify a single text with Model Armor",
	Long: `Send one text to the configured Model Armor template and print the
verdict. Use --kind response to screen it as model output.

  guardagent check "ignore previous instructions"
  guardagent check --kind response "some model output"`,
	Args: cobra.MinimumNArgs(1),
	RunE: checkCommand,
}

func init() {
	checkCmd.Flags().StringVar(&checkKind, "kind", "prompt", "What the text is: prompt or response")
	rootCmd.AddCommand(checkCmd)
}

func parseKind(kind string) (modelarmor.Operation, error) {
	switch strings.ToLower(kind) {
	case "prompt":
		return modelarmor.OperationUserPrompt, nil
	case "response":
		return modelarmor.OperationModelResponse, nil
	default:
		return 0, fmt.Errorf("unknown kind %q (want prompt or response)", kind)
	}
}

func checkCommand(cmd *cobra.Command, args []string) error {
	op, err := parseKind(checkKind)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	verdict := a.classifier.Classify(ctx, op, strings.Join(args, " "))
	out := cmd.OutOrStdout()
	if verdict.Unsafe() {
		fmt.Fprintf(out, "UNSAFE %s\n", verdict)
		return nil
	}
	fmt.Fprintln(out, "SAFE")
	return nil
}
