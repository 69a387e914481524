package main

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dvloznov/ledger-reconciler/internal/domain"
	"github.com/dvloznov/ledger-reconciler/internal/ledger"
)

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().StringP("user", "u", "", "Email of the document owner (required)")
	registerCmd.Flags().String("mime", "", "Mime type (defaults to the one implied by the file extension)")
	registerCmd.Flags().String("note", "", "Note passed to the reasoning service with the document")
	_ = registerCmd.MarkFlagRequired("user")
}

var registerCmd = &cobra.Command{
	Use:   "register FILE",
	Short: "Store a local file and record it as an uploaded document",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegister,
}

func runRegister(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("user")
	mimeType, _ := cmd.Flags().GetString("mime")
	note, _ := cmd.Flags().GetString("note")

	path := args[0]
	if mimeType == "" {
		mimeType = mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	}
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	if !domain.SupportedMimeType(mimeType) {
		return fmt.Errorf("unsupported mime type %q for %s; pass --mime", mimeType, path)
	}

	ctx, a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.Ledger.EnsureUser(ctx, email, "")
	if err != nil {
		return err
	}
	uri, err := a.Fetcher.Save(ctx, path)
	if err != nil {
		return err
	}
	doc, err := a.Ledger.RegisterDocument(ctx, user.ID, ledger.DocumentInput{
		OriginalFilename: filepath.Base(path),
		StorageURI:       uri,
		MimeType:         mimeType,
		UserNote:         note,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Registered document %s (%s) at %s\n", doc.ID, doc.MimeType, doc.StorageURI)
	return nil
}
