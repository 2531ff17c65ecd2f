package globalconst

// This package centralizes all constants and "magic strings" used throughout the application
// to improve maintainability and reduce errors from typos.

const (
	// =========================================================================
	// Document Fields
	// =========================================================================

	// ID is the field for the document's unique identifier.
	ID = "_id"
	// SearchField is the only field the search stage matches against.
	SearchField = "name"

	// =========================================================================
	// Reserved List Parameters
	// =========================================================================

	ParamPage   = "page"
	ParamSize   = "size"
	ParamSort   = "sort"
	ParamSearch = "search"
	ParamFields = "fields"

	// DefaultPage is used when page is absent, non-numeric or below 1.
	DefaultPage = 1
	// DefaultPageSize is used when size is absent, non-numeric or below 1.
	// Kept at 2 to match the behavior existing clients rely on.
	DefaultPageSize = 2

	// =========================================================================
	// Query Keywords
	// =========================================================================

	// OperatorSigil marks a key as a store operator rather than a field name.
	OperatorSigil = "$"

	// --- Comparison Operators (query-string form) ---
	OpLessThan           = "lt"
	OpLessThanOrEqual    = "lte"
	OpGreaterThan        = "gt"
	OpGreaterThanOrEqual = "gte"
	OpIn                 = "in"
	OpNotIn              = "nin"
	OpEqual              = "eq"
	OpNotEqual           = "neq"

	// --- Store-native Operators ---
	StoreRegex   = "$regex"
	StoreOptions = "$options"

	// --- Sort / Projection ---
	DescPrefix = "-"

	// =========================================================================
	// Persistence Keywords
	// =========================================================================

	// CollectionsDirName is the root directory name for collection data.
	CollectionsDirName = "collections"
	// SnapshotFileExtension is the file extension for collection snapshots.
	SnapshotFileExtension = ".json"
	// TempFileSuffix is the suffix added to temporary files during writes.
	TempFileSuffix = ".tmp"
)

// ReservedParams holds the list-parameter names that are never treated as filters.
var ReservedParams = map[string]struct{}{
	ParamPage:   {},
	ParamSize:   {},
	ParamSort:   {},
	ParamSearch: {},
	ParamFields: {},
}

// FilterOperators is the closed set of comparison keywords the filter stage translates.
var FilterOperators = map[string]struct{}{
	OpLessThan:           {},
	OpLessThanOrEqual:    {},
	OpGreaterThan:        {},
	OpGreaterThanOrEqual: {},
	OpIn:                 {},
	OpNotIn:              {},
	OpEqual:              {},
	OpNotEqual:           {},
}
