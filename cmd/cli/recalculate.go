package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dvloznov/ledger-reconciler/internal/domain"
)

func init() {
	rootCmd.AddCommand(recalculateCmd)

	recalculateCmd.Flags().StringP("user", "u", "", "Email of the account owner (required)")
	recalculateCmd.Flags().String("account", "", "Recalculate only this account")
	_ = recalculateCmd.MarkFlagRequired("user")
}

var recalculateCmd = &cobra.Command{
	Use:   "recalculate",
	Short: "Re-derive account balances from their transactions",
	Args:  cobra.NoArgs,
	RunE:  runRecalculate,
}

func runRecalculate(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("user")
	accountID, _ := cmd.Flags().GetString("account")

	ctx, a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.Ledger.LookupUser(ctx, email)
	if err != nil {
		return err
	}

	var accounts []*domain.Account
	if accountID != "" {
		acct, err := a.Ledger.RecalculateAccount(ctx, user.ID, accountID)
		if err != nil {
			return err
		}
		accounts = []*domain.Account{acct}
	} else if accounts, err = a.Ledger.RecalculateAll(ctx, user.ID); err != nil {
		return err
	}

	for _, acct := range accounts {
		fmt.Fprintf(cmd.OutOrStdout(), "%-36s  %-24s  %-9s  %s %s\n", acct.ID, acct.Name, acct.Type, acct.Balance.StringFixed(2), acct.Currency)
	}
	return nil
}
