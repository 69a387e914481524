package pipeline

// Defaults for document reconciliation. Config overrides them.
const (
	// DefaultMaxTurns bounds the QUERY/DECIDE exchange per document.
	DefaultMaxTurns = 5

	// DefaultSearchLimit bounds the results of one QUERY.
	DefaultSearchLimit = 20

	// DefaultRecentTransactions is the number of newest transactions in a snapshot.
	DefaultRecentTransactions = 10

	// DefaultMerchants is the number of merchants listed when no merchant is relevant.
	DefaultMerchants = 20

	// DefaultMaxCategories bounds the categories listed in prompts.
	DefaultMaxCategories = 100

	// AgenticConfidence is used for validated decisions that carry no confidence.
	AgenticConfidence = 0.9

	// MinAgenticConfidence keeps agentic proposals ranked above fallback ones.
	MinAgenticConfidence = 0.6

	// FallbackConfidence is the fixed score of heuristic proposals.
	FallbackConfidence = 0.5

	// ParserType labels audit runs.
	ParserType = "GEMINI_AGENTIC"

	// ParserVersion labels audit runs.
	ParserVersion = "v2"
)

// Strategy tells how the decisions of a document were reached.
type Strategy string

const (
	StrategyAgentic  Strategy = "agentic"
	StrategyFallback Strategy = "fallback"
)

// Reasoning call stages, used as metric and audit labels.
const (
	StageExtract = "extract"
	StageTurn    = "turn"
)
