// Package validation implements the size/array/ReDoS guards named in
// spec section 6.3 (SIZE_LIMITS) and section 7 (ReDoS guard), hand-rolled
// per the teacher's domain value-object validators (domain/core/valueobjects,
// domain/specifications) generalized from node/edge fields to the
// memory-service request surface.
package validation

// Limits mirrors the SIZE_LIMITS configuration block. Defaults match
// spec section 6.3; every field is overridable via internal/config.
type Limits struct {
	NameMaxLength          int
	TitleMaxLength         int
	DescriptionMaxLength   int
	ContentMaxLength       int
	MetadataMaxBytes       int
	TagsMaxCount           int
	ExamplesMaxCount       int
	BulkOperationMax       int
	RegexPatternMaxLength  int
	MaxQueryLimit          int
	DefaultQueryLimit      int
	MaxOffset              int
}

// DefaultLimits returns the spec's stated defaults.
func DefaultLimits() Limits {
	return Limits{
		NameMaxLength:         100,
		TitleMaxLength:        200,
		DescriptionMaxLength:  1000,
		ContentMaxLength:      50_000,
		MetadataMaxBytes:      16_384,
		TagsMaxCount:          20,
		ExamplesMaxCount:      10,
		BulkOperationMax:      100,
		RegexPatternMaxLength: 500,
		MaxQueryLimit:         100,
		DefaultQueryLimit:     20,
		MaxOffset:             10_000,
	}
}

// ClampLimit enforces `limit = 0 or negative clamps to 1; limit =
// MAX_SAFE_INTEGER clamps to MAX_QUERY_LIMIT` (spec section 8, Boundary
// behaviors).
func ClampLimit(limit, max int) int {
	if limit <= 0 {
		return 1
	}
	if limit > max {
		return max
	}
	return limit
}

// ClampOffset clamps a pagination offset to [0, maxOffset].
func ClampOffset(offset, maxOffset int) int {
	if offset < 0 {
		return 0
	}
	if offset > maxOffset {
		return maxOffset
	}
	return offset
}

// CheckLength returns false when s exceeds max runes, for NAME/TITLE/
// DESCRIPTION/CONTENT_MAX_LENGTH checks.
func CheckLength(s string, max int) bool {
	return len([]rune(s)) <= max
}
