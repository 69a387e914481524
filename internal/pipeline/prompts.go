package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
)

// buildExtractionPrompt asks for the document's line items.
func buildExtractionPrompt(userNote string) string {
	var b strings.Builder
	b.WriteString("Extract all transactions from the attached document.\n\n")
	b.WriteString("For each transaction provide:\n")
	b.WriteString("- \"amount\": number (positive magnitude)\n")
	b.WriteString("- \"merchant\": string\n")
	b.WriteString("- \"transaction_date\": string, \"YYYY-MM-DD\" or \"YYYY-MM-DDTHH:MM:SS\"\n")
	b.WriteString("- \"type\": \"EXPENSE\" or \"INCOME\"\n")
	b.WriteString("- \"note\": string with any additional details\n\n")
	if note := strings.TrimSpace(userNote); note != "" {
		b.WriteString("The uploader added this note: " + note + "\n\n")
	}
	b.WriteString("Return ONLY a JSON list of objects.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	return b.String()
}

// buildTurnPrompt renders one controller turn: the document's items, the
// ledger snapshot, the protocol and everything tried so far.
func buildTurnPrompt(items []LineItem, snap *Snapshot, history []HistoryEntry, turn, limit int) (string, error) {
	itemsJSON, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", fmt.Errorf("buildTurnPrompt: items: %w", err)
	}
	snapJSON, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("buildTurnPrompt: snapshot: %w", err)
	}

	var b strings.Builder
	b.WriteString("You reconcile transactions extracted from the attached document with the user's ledger.\n")
	b.WriteString("For every extracted item decide whether it duplicates an existing transaction (UPDATE_EXISTING),\n")
	b.WriteString("is a new transaction (CREATE_NEW), or shows an account the ledger does not have yet (CREATE_ACCOUNT).\n\n")

	b.WriteString("EXTRACTED ITEMS:\n")
	b.Write(itemsJSON)
	b.WriteString("\n\nLEDGER SNAPSHOT:\n")
	b.Write(snapJSON)
	b.WriteString("\n\n")

	b.WriteString("RESPONSE PROTOCOL:\n")
	b.WriteString("Answer with exactly one JSON object, either\n")
	b.WriteString("  {\"action\": \"QUERY\", \"query\": {\"merchant\": string, \"amount\": number, \"date_from\": \"YYYY-MM-DD\", \"date_to\": \"YYYY-MM-DD\"}}\n")
	b.WriteString("to search more of the ledger (every query field is optional), or\n")
	b.WriteString("  {\"action\": \"DECIDE\", \"decisions\": [{\"change_type\": string, \"target_transaction_id\": string, \"account_id\": string,\n")
	b.WriteString("   \"target_account_id\": string, \"category_id\": string, \"type\": string, \"amount\": number, \"transaction_date\": \"YYYY-MM-DD\",\n")
	b.WriteString("   \"merchant\": string, \"note\": string, \"confidence\": number, \"new_account_data\": {\"name\": string, \"type\": string, \"sub_type\": string, \"currency\": string}}]}\n")
	b.WriteString("with one decision per extracted item.\n\n")

	b.WriteString("RULES:\n")
	b.WriteString("1. Only use ids that appear in the snapshot or in query results; never invent ids.\n")
	b.WriteString("2. \"type\" must be exactly INCOME, EXPENSE or TRANSFER. TRANSFER requires target_account_id.\n")
	b.WriteString("3. UPDATE_EXISTING requires target_transaction_id.\n")
	b.WriteString("4. For CREATE_ACCOUNT, new_account_data.type must be exactly ASSET or LIABILITY; put kinds like BANK or CARD in sub_type.\n")
	b.WriteString("5. Amounts are positive magnitudes.\n")
	b.WriteString("6. Leave account_id empty if no account fits.\n\n")

	if len(history) > 0 {
		b.WriteString("PREVIOUS TURNS:\n")
		for _, h := range history {
			writeHistoryEntry(&b, h)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "This is turn %d of %d. ", turn+1, limit)
	if turn+1 >= limit {
		b.WriteString("No queries remain: you must DECIDE now.\n")
	} else {
		b.WriteString("QUERY only if the snapshot is not enough to decide.\n")
	}
	b.WriteString("Return ONLY the JSON object.\n")
	return b.String(), nil
}

func writeHistoryEntry(b *strings.Builder, h HistoryEntry) {
	switch {
	case h.Query != nil:
		q, _ := json.Marshal(h.Query)
		fmt.Fprintf(b, "Turn %d: QUERY %s\n", h.Turn, q)
		if len(h.Errors) > 0 {
			b.WriteString("  rejected:\n")
			for _, e := range h.Errors {
				b.WriteString("  - " + e + "\n")
			}
			return
		}
		views := make([]TransactionView, 0, len(h.Results))
		for _, t := range h.Results {
			views = append(views, viewTransaction(t))
		}
		results, _ := json.Marshal(views)
		fmt.Fprintf(b, "  %d results: %s\n", len(views), results)
	default:
		decisions, _ := json.Marshal(h.Decisions)
		fmt.Fprintf(b, "Turn %d: DECIDE %s\n", h.Turn, decisions)
		b.WriteString("  rejected, fix these problems:\n")
		for _, e := range h.Errors {
			b.WriteString("  - " + e + "\n")
		}
	}
}
