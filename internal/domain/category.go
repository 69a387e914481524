package domain

// CategoryType separates income categories from expense categories.
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "INCOME"
	CategoryTypeExpense CategoryType = "EXPENSE"
)

// Valid reports whether t is a known category type.
func (t CategoryType) Valid() bool {
	return t == CategoryTypeIncome || t == CategoryTypeExpense
}

// Category is a node in the user's category tree.
type Category struct {
	ID               string       `json:"id"`
	UserID           string       `json:"user_id"`
	Name             string       `json:"name"`
	Type             CategoryType `json:"type"`
	ParentCategoryID *string      `json:"parent_category_id,omitempty"`
}

// Merchant remembers the category usually assigned to a payee.
type Merchant struct {
	ID                string  `json:"id"`
	UserID            string  `json:"user_id"`
	Name              string  `json:"name"`
	DefaultCategoryID *string `json:"default_category_id,omitempty"`
}
