package sqlite

// schema returns the migration statements, one statement per string.
func schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			email      TEXT NOT NULL UNIQUE,
			full_name  TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS accounts (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name        TEXT NOT NULL,
			type        TEXT NOT NULL CHECK (type IN ('ASSET', 'LIABILITY')),
			sub_type    TEXT NOT NULL DEFAULT '',
			currency    TEXT NOT NULL DEFAULT 'USD',
			balance     TEXT NOT NULL DEFAULT '0',
			description TEXT NOT NULL DEFAULT '',
			created_at  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_user ON accounts(user_id, name)`,

		`CREATE TABLE IF NOT EXISTS categories (
			id                 TEXT PRIMARY KEY,
			user_id            TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name               TEXT NOT NULL,
			type               TEXT NOT NULL CHECK (type IN ('INCOME', 'EXPENSE')),
			parent_category_id TEXT REFERENCES categories(id) ON DELETE SET NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_categories_user ON categories(user_id, name)`,

		`CREATE TABLE IF NOT EXISTS merchants (
			id                  TEXT PRIMARY KEY,
			user_id             TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name                TEXT NOT NULL,
			default_category_id TEXT REFERENCES categories(id) ON DELETE SET NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_merchants_user ON merchants(user_id, name)`,

		`CREATE TABLE IF NOT EXISTS transactions (
			id                TEXT PRIMARY KEY,
			user_id           TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			account_id        TEXT NOT NULL REFERENCES accounts(id),
			target_account_id TEXT REFERENCES accounts(id),
			category_id       TEXT REFERENCES categories(id) ON DELETE SET NULL,
			amount            TEXT NOT NULL,
			type              TEXT NOT NULL CHECK (type IN ('INCOME', 'EXPENSE', 'TRANSFER')),
			transaction_date  TEXT NOT NULL,
			note              TEXT NOT NULL DEFAULT '',
			merchant          TEXT NOT NULL DEFAULT '',
			created_at        TEXT NOT NULL,
			updated_at        TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, transaction_date)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_target ON transactions(target_account_id)`,

		`CREATE TABLE IF NOT EXISTS documents (
			id                TEXT PRIMARY KEY,
			user_id           TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			original_filename TEXT NOT NULL,
			storage_uri       TEXT NOT NULL,
			mime_type         TEXT NOT NULL,
			status            TEXT NOT NULL,
			user_note         TEXT NOT NULL DEFAULT '',
			created_at        TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS transaction_documents (
			transaction_id TEXT NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
			document_id    TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			PRIMARY KEY (transaction_id, document_id)
		)`,

		`CREATE TABLE IF NOT EXISTS proposed_changes (
			id                    TEXT PRIMARY KEY,
			user_id               TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			document_id           TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			target_transaction_id TEXT REFERENCES transactions(id) ON DELETE SET NULL,
			change_type           TEXT NOT NULL,
			status                TEXT NOT NULL,
			proposed_data         TEXT NOT NULL,
			confidence_score      REAL NOT NULL,
			created_at            TEXT NOT NULL,
			updated_at            TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_proposals_document ON proposed_changes(document_id, target_transaction_id)`,
		`CREATE INDEX IF NOT EXISTS idx_proposals_user_status ON proposed_changes(user_id, status)`,
	}
}
