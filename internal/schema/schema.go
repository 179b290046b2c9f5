// Package schema locates the header row inside an extracted statement and
// maps its columns to canonical transaction roles, using per-source column
// vocabularies with a generic fallback for unidentified statements.
package schema

import (
	"strings"

	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/logging"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/models"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/parsererror"
)

// Role is a canonical transaction field a statement column can map to.
type Role string

const (
	RoleDate        Role = "date"
	RoleDescription Role = "description"
	RoleDebit       Role = "debit"
	RoleCredit      Role = "credit"
	RoleBalance     Role = "balance"
	RoleReference   Role = "reference"
	RoleStatus      Role = "status"
)

// Column is one mapped statement column.
type Column struct {
	Index int
	Name  string
}

// RoleMap is the resolved mapping from roles to statement columns for one
// upload. A role absent from the map has no corresponding column.
type RoleMap map[Role]Column

// Has reports whether the role is mapped.
func (m RoleMap) Has(role Role) bool {
	_, ok := m[role]
	return ok
}

// Usable reports whether the mapping carries enough structure to normalize
// rows: at least one amount column must be present.
func (m RoleMap) Usable() bool {
	return m.Has(RoleDebit) || m.Has(RoleCredit)
}

// Mapping is the full result of schema resolution: where the header row sits
// and what each column means.
type Mapping struct {
	HeaderIndex int
	Roles       RoleMap
}

// Mapper resolves statement schemas.
type Mapper struct {
	logger logging.Logger
}

// NewMapper creates a Mapper.
func NewMapper(logger logging.Logger) *Mapper {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Mapper{logger: logger}
}

// Resolve locates the header row among records and maps its columns for the
// given source. It fails with NoHeaderError when no row looks like a header.
func (m *Mapper) Resolve(records [][]string, source models.SourceLabel) (Mapping, error) {
	idx := LocateHeader(records)
	if idx < 0 {
		return Mapping{}, &parsererror.NoHeaderError{Lines: len(records)}
	}

	roles := MapColumns(records[idx], source)
	m.logger.Debug("Statement schema resolved",
		logging.Field{Key: "source", Value: source.Name},
		logging.Field{Key: "headerRow", Value: idx},
		logging.Field{Key: "mappedRoles", Value: len(roles)})

	return Mapping{HeaderIndex: idx, Roles: roles}, nil
}

// LocateHeader returns the index of the first record that looks like a
// statement header, or -1. A header either names a date column alongside a
// description/narration column, or mentions transactions at all.
func LocateHeader(records [][]string) int {
	for i, record := range records {
		joined := strings.ToLower(strings.Join(record, " "))
		hasDate := strings.Contains(joined, "date")
		hasDesc := strings.Contains(joined, "description") || strings.Contains(joined, "narration")
		if hasDate && hasDesc {
			return i
		}
		if strings.Contains(joined, "txn") || strings.Contains(joined, "transaction") {
			return i
		}
	}
	return -1
}

// roleVocabulary lists, per role, the substrings a header cell may carry.
// Order within a vocabulary matters only for readability; first header match
// per role wins.
type roleVocabulary map[Role][]string

// Per-source vocabularies. Unknown sources use genericVocabulary.
var (
	khaltiVocabulary = roleVocabulary{
		RoleDate:        {"date"},
		RoleDescription: {"description", "service", "remarks"},
		RoleDebit:       {"debit", "dr"},
		RoleCredit:      {"credit", "cr"},
		RoleBalance:     {"balance"},
		RoleReference:   {"transaction id", "txn id", "reference"},
		RoleStatus:      {"status"},
	}

	esewaVocabulary = roleVocabulary{
		RoleDate:        {"date"},
		RoleDescription: {"description", "particulars"},
		RoleDebit:       {"debit", "dr"},
		RoleCredit:      {"credit", "cr"},
		RoleBalance:     {"balance"},
		RoleReference:   {"transaction code", "reference", "txn"},
		RoleStatus:      {"status"},
	}

	globalIMEVocabulary = roleVocabulary{
		RoleDate:        {"date"},
		RoleDescription: {"description", "narration", "particulars"},
		RoleDebit:       {"withdraw", "debit", "dr"},
		RoleCredit:      {"deposit", "credit", "cr"},
		RoleBalance:     {"balance"},
		RoleReference:   {"cheque", "reference", "txn"},
		RoleStatus:      {"status"},
	}

	genericVocabulary = roleVocabulary{
		RoleDate:        {"date"},
		RoleDescription: {"description", "narration", "particulars", "details", "remarks"},
		RoleDebit:       {"debit", "withdrawal", "withdraw", "dr", "outflow", "paid out"},
		RoleCredit:      {"credit", "deposit", "cr", "inflow", "paid in"},
		RoleBalance:     {"balance"},
		RoleReference:   {"transaction id", "txn id", "reference", "ref", "cheque"},
		RoleStatus:      {"status"},
	}
)

func vocabularyFor(source models.SourceLabel) roleVocabulary {
	switch source.Name {
	case models.SourceKhalti:
		return khaltiVocabulary
	case models.SourceESewa:
		return esewaVocabulary
	case models.SourceGlobalIME:
		return globalIMEVocabulary
	}
	return genericVocabulary
}

// MapColumns maps each header cell to a role using the source's vocabulary.
// The first matching cell per role wins; a cell maps to at most one role,
// with longer vocabulary terms checked before shorter to keep "Transaction
// ID" from being eaten by a bare "id" match.
func MapColumns(header []string, source models.SourceLabel) RoleMap {
	vocab := vocabularyFor(source)
	roles := make(RoleMap)
	claimed := make([]bool, len(header))

	// Resolution order pins ambiguous cells: reference before description so
	// "Transaction ID" does not land on description via "transaction".
	order := []Role{RoleDate, RoleReference, RoleDebit, RoleCredit, RoleBalance, RoleStatus, RoleDescription}

	for _, role := range order {
		terms := vocab[role]
		for i, cell := range header {
			if claimed[i] {
				continue
			}
			lower := strings.ToLower(strings.TrimSpace(cell))
			if lower == "" {
				continue
			}
			if matchesAny(lower, terms) {
				roles[role] = Column{Index: i, Name: strings.TrimSpace(cell)}
				claimed[i] = true
				break
			}
		}
	}

	return roles
}

// matchesAny matches longer terms by substring and short abbreviations
// ("dr", "cr", "ref") by whole token, so "description" never matches "cr".
func matchesAny(cell string, terms []string) bool {
	for _, term := range terms {
		if len(term) > 3 {
			if strings.Contains(cell, term) {
				return true
			}
			continue
		}
		for _, token := range strings.FieldsFunc(cell, func(r rune) bool {
			return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
		}) {
			if token == term {
				return true
			}
		}
	}
	return false
}
