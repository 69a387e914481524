package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().Duration("timeout", 10*time.Minute, "Give up after this long")
}

var processCmd = &cobra.Command{
	Use:   "process DOCUMENT_ID",
	Short: "Reconcile a document now and print the proposals it produced",
	Args:  cobra.ExactArgs(1),
	RunE:  runProcess,
}

func runProcess(cmd *cobra.Command, args []string) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")

	ctx, a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	processor, err := a.Processor(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	outcome, err := processor.ProcessDocument(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Document:  %s\n", outcome.DocumentID)
	fmt.Fprintf(out, "Strategy:  %s (%d turns)\n", outcome.Strategy, outcome.Turns)
	if outcome.FallbackReason != "" {
		fmt.Fprintf(out, "Fallback:  %s\n", outcome.FallbackReason)
	}
	fmt.Fprintf(out, "Items:     %d\n", outcome.Items)
	fmt.Fprintf(out, "Proposals: %d created, %d updated, %d skipped\n", outcome.Created, outcome.Updated, outcome.Skipped)
	if len(outcome.Warnings) > 0 {
		fmt.Fprintf(out, "Warnings:\n  %s\n", strings.Join(outcome.Warnings, "\n  "))
	}
	return nil
}
