package ledger

import (
	"context"
	"time"

	"github.com/dvloznov/ledger-reconciler/internal/domain"
	"github.com/shopspring/decimal"
)

// Repository provides reads and writes over the ledger entities.
// Get/Find methods return (nil, nil) when nothing matches.
type Repository interface {
	// GetUserByEmail retrieves a user by email address.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// InsertUser stores a new user.
	InsertUser(ctx context.Context, user *domain.User) error

	// GetAccount retrieves an account by ID.
	GetAccount(ctx context.Context, id string) (*domain.Account, error)

	// ListAccounts retrieves every account of a user ordered by name.
	ListAccounts(ctx context.Context, userID string) ([]*domain.Account, error)

	// FindAccountByName retrieves a user's account by exact name.
	FindAccountByName(ctx context.Context, userID, name string) (*domain.Account, error)

	// InsertAccount stores a new account.
	InsertAccount(ctx context.Context, account *domain.Account) error

	// UpdateAccountBalance overwrites the derived balance of an account.
	UpdateAccountBalance(ctx context.Context, id string, balance decimal.Decimal) error

	// DeleteAccount removes an account. Its transactions must be removed first.
	DeleteAccount(ctx context.Context, id string) error

	// GetCategory retrieves a category by ID.
	GetCategory(ctx context.Context, id string) (*domain.Category, error)

	// ListCategories retrieves a user's categories ordered by name; limit <= 0 means all.
	ListCategories(ctx context.Context, userID string, limit int) ([]*domain.Category, error)

	// InsertCategory stores a new category.
	InsertCategory(ctx context.Context, category *domain.Category) error

	// ListMerchants retrieves up to limit merchants ordered by name.
	ListMerchants(ctx context.Context, userID string, limit int) ([]*domain.Merchant, error)

	// SearchMerchants retrieves merchants whose name contains fragment, ignoring case.
	SearchMerchants(ctx context.Context, userID, fragment string, limit int) ([]*domain.Merchant, error)

	// FindMerchantByName retrieves a merchant by name, ignoring case.
	FindMerchantByName(ctx context.Context, userID, name string) (*domain.Merchant, error)

	// InsertMerchant stores a new merchant.
	InsertMerchant(ctx context.Context, merchant *domain.Merchant) error

	// UpdateMerchantDefaultCategory sets the category learned for a merchant.
	UpdateMerchantDefaultCategory(ctx context.Context, id, categoryID string) error

	// GetTransaction retrieves a transaction by ID.
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)

	// InsertTransaction stores a new transaction.
	InsertTransaction(ctx context.Context, tx *domain.Transaction) error

	// UpdateTransaction overwrites every mutable column of a transaction.
	UpdateTransaction(ctx context.Context, tx *domain.Transaction) error

	// DeleteTransaction removes a transaction and its document links.
	DeleteTransaction(ctx context.Context, id string) error

	// ListRecentTransactions retrieves a user's newest transactions by date.
	ListRecentTransactions(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error)

	// SearchTransactions retrieves a user's transactions matching filter, newest first.
	SearchTransactions(ctx context.Context, userID string, filter domain.TransactionFilter) ([]*domain.Transaction, error)

	// ListAccountTransactions retrieves every transaction where the account is
	// the primary account or the transfer target.
	ListAccountTransactions(ctx context.Context, accountID string) ([]*domain.Transaction, error)

	// ListTransactionsAfter retrieves a user's transactions dated strictly after t.
	ListTransactionsAfter(ctx context.Context, userID string, t time.Time) ([]*domain.Transaction, error)

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// InsertDocument stores a new document.
	InsertDocument(ctx context.Context, doc *domain.Document) error

	// UpdateDocumentStatus sets the processing status of a document.
	UpdateDocumentStatus(ctx context.Context, id string, status domain.DocumentStatus) error

	// LinkTransactionDocument records that a transaction came from a document.
	LinkTransactionDocument(ctx context.Context, transactionID, documentID string) error

	// GetProposal retrieves a proposal by ID.
	GetProposal(ctx context.Context, id string) (*domain.ProposedChange, error)

	// ListPendingProposals retrieves a user's PENDING proposals, oldest first.
	ListPendingProposals(ctx context.Context, userID string) ([]*domain.ProposedChange, error)

	// ListDocumentProposals retrieves every proposal of a document.
	ListDocumentProposals(ctx context.Context, documentID string) ([]*domain.ProposedChange, error)

	// FindProposals retrieves a document's proposals with the given target
	// transaction; a nil target matches proposals without one.
	FindProposals(ctx context.Context, documentID string, targetTransactionID *string) ([]*domain.ProposedChange, error)

	// InsertProposal stores a new proposal.
	InsertProposal(ctx context.Context, p *domain.ProposedChange) error

	// UpdateProposal overwrites change type, status, payload and confidence.
	UpdateProposal(ctx context.Context, p *domain.ProposedChange) error
}

// Store is a Repository that can run a unit of work atomically.
type Store interface {
	Repository

	// InTx runs fn against a transaction-scoped Repository. The transaction
	// commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(repo Repository) error) error
}
