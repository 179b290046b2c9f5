package models

// Known statement sources. Anything else resolves to SourceUnknown.
const (
	SourceKhalti    = "Khalti"
	SourceESewa     = "eSewa"
	SourceGlobalIME = "Global IME"
	SourceUnknown   = "Unknown"
)

// Confidence expresses how sure the source identifier is about its label.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// SourceLabel is the result of source identification for one upload.
// Derived once per upload and immutable afterward.
type SourceLabel struct {
	Name       string
	Confidence Confidence
}

// Unknown returns the label used when identification fails or is uncertain.
func Unknown() SourceLabel {
	return SourceLabel{Name: SourceUnknown, Confidence: ConfidenceLow}
}

// IsKnown reports whether the label names one of the recognized platforms.
func (s SourceLabel) IsKnown() bool {
	switch s.Name {
	case SourceKhalti, SourceESewa, SourceGlobalIME:
		return true
	}
	return false
}

// CategoryFallback is assigned when categorization fails or returns an
// unrecognized label.
const CategoryFallback = "Other"

// CategoryLabels is the closed set of spending categories the classifier may
// assign. The order matches the instruction prompt sent to the classifier.
var CategoryLabels = []string{
	"Food & Dining",
	"Transportation",
	"Shopping",
	"Entertainment",
	"Utilities",
	"Rent",
	"Education",
	"Healthcare",
	"Travel",
	"Salary",
	"Transfer",
	"Withdrawal",
	"Investment",
	"Insurance",
	"Subscription",
	CategoryFallback,
}

// IsValidCategory reports whether label is one of the closed category set.
// Matching is exact; the classifier is instructed to reply with the label
// verbatim and anything else degrades to CategoryFallback.
func IsValidCategory(label string) bool {
	for _, c := range CategoryLabels {
		if c == label {
			return true
		}
	}
	return false
}

// Voucher types
const (
	VoucherTypeFixed      = "FIXED"
	VoucherTypePercentage = "PERCENTAGE"
)
