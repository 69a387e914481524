package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dvloznov/ledger-reconciler/internal/domain"
)

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().Bool("raw", false, "Print the full raw model outputs")
}

var inspectCmd = &cobra.Command{
	Use:   "inspect DOCUMENT_ID",
	Short: "Show a document, its proposals and the audited model outputs",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	raw, _ := cmd.Flags().GetBool("raw")

	ctx, a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	doc, err := a.DB.GetDocument(ctx, args[0])
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("document %s: %w", args[0], domain.ErrNotFound)
	}
	proposals, err := a.DB.ListDocumentProposals(ctx, doc.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== Document ===")
	fmt.Fprintf(out, "ID:       %s\n", doc.ID)
	fmt.Fprintf(out, "File:     %s (%s)\n", doc.OriginalFilename, doc.MimeType)
	fmt.Fprintf(out, "Storage:  %s\n", doc.StorageURI)
	fmt.Fprintf(out, "Status:   %s\n", doc.Status)
	fmt.Fprintf(out, "Created:  %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))

	fmt.Fprintf(out, "\n=== Proposals (%d) ===\n", len(proposals))
	for i, p := range proposals {
		printProposal(out, i+1, p)
	}

	if a.AuditLog == nil {
		fmt.Fprintln(out, "\n(no audit project configured)")
		return nil
	}
	runs, err := a.AuditLog.ListRuns(ctx, doc.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\n=== Parsing runs (%d) ===\n", len(runs))
	for _, r := range runs {
		fmt.Fprintf(out, "%s  %s  %-8s %s %s\n", r.StartedTS.Format("2006-01-02 15:04:05"), r.ParsingRunID, r.Status, r.ErrorKind, r.ErrorMessage)
	}

	outputs, err := a.AuditLog.ListModelOutputs(ctx, doc.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\n=== Model outputs (%d) ===\n", len(outputs))
	for _, o := range outputs {
		text := o.RawText
		if !raw && len(text) > 200 {
			text = text[:200] + "..."
		}
		fmt.Fprintf(out, "[%s %s #%d] %s\n", o.ParsingRunID, o.Stage, o.Turn, text)
	}
	return nil
}

func printProposal(out io.Writer, n int, p *domain.ProposedChange) {
	d := p.ProposedData
	fmt.Fprintf(out, "\n%d. %s  %s  %s (confidence %.2f)\n", n, p.ID, p.ChangeType, p.Status, p.ConfidenceScore)
	fmt.Fprintf(out, "   %s %s %s on %s\n", d.Type, d.Amount.StringFixed(2), d.Merchant, d.TransactionDate.Format("2006-01-02"))
	if p.TargetTransactionID != nil {
		fmt.Fprintf(out, "   Target:  %s\n", *p.TargetTransactionID)
	}
	if d.AccountID != "" {
		fmt.Fprintf(out, "   Account: %s\n", d.AccountID)
	}
	if d.NewAccount != nil {
		fmt.Fprintf(out, "   New account: %s (%s)\n", d.NewAccount.Name, d.NewAccount.Type)
	}
	if d.Note != "" {
		fmt.Fprintf(out, "   Note:    %s\n", d.Note)
	}
}
