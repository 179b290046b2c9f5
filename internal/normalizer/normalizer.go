// Package normalizer converts mapped statement rows into canonical
// transactions. It is deliberately forgiving: a malformed row is skipped,
// never fatal, and the surviving transactions keep their statement order.
package normalizer

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/currencyutils"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/dateutils"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/logging"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/models"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/schema"
)

// emptyFieldThreshold is the fraction of empty cells beyond which a row is
// considered structural noise rather than a transaction.
const emptyFieldThreshold = 0.7

// headerLabels are date-cell values that mark a repeated header row inside
// the data region (multi-page statements repeat their header).
var headerLabels = map[string]struct{}{
	"date":             {},
	"transaction date": {},
	"txn date":         {},
}

// summaryTerms mark aggregate rows wherever they appear inside a cell,
// regardless of amount fields. "sum" is matched as a whole word only so
// descriptions like "Consumer goods" survive.
var summaryTerms = []string{
	"total",
	"subtotal",
	"average",
	"summary",
}

// summaryPhrases are substrings that mark aggregate or period rows wherever
// they appear in a cell.
var summaryPhrases = []string{
	"opening balance",
	"closing balance",
	"balance b/f",
	"balance c/f",
	"statement period",
	"period start",
	"period end",
}

// statusTokens are the lifecycle markers wallet exports put on rows that
// never moved money.
var statusTokens = map[string]struct{}{
	"pending":  {},
	"complete": {},
	"canceled": {},
	"time out": {},
}

// Result is the outcome of normalizing one upload.
type Result struct {
	Transactions []models.Transaction
	Dropped      int
}

// Normalizer turns mapped rows into transactions.
type Normalizer struct {
	logger logging.Logger
	now    func() time.Time
}

// New creates a Normalizer.
func New(logger logging.Logger) *Normalizer {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Normalizer{logger: logger, now: time.Now}
}

// Normalize converts the data rows below the header into transactions,
// applying the drop rules in order and preserving statement order. It never
// fails: the worst outcome is an empty result.
func (n *Normalizer) Normalize(records [][]string, mapping schema.Mapping, source models.SourceLabel, userID uuid.UUID) Result {
	var result Result

	start := mapping.HeaderIndex + 1
	if start >= len(records) {
		return result
	}

	header := records[mapping.HeaderIndex]
	for i, row := range records[start:] {
		tx, ok := n.normalizeRow(row, header, mapping.Roles, source, userID, start+i)
		if !ok {
			result.Dropped++
			continue
		}
		result.Transactions = append(result.Transactions, tx)
	}

	n.logger.Info("Rows normalized",
		logging.Field{Key: "source", Value: source.Name},
		logging.Field{Key: "kept", Value: len(result.Transactions)},
		logging.Field{Key: "dropped", Value: result.Dropped})
	return result
}

// normalizeRow converts one row, reporting ok=false when a drop rule applies
// or the row is unusable. A panic while reading a pathological row drops
// just that row.
func (n *Normalizer) normalizeRow(row, header []string, roles schema.RoleMap, source models.SourceLabel, userID uuid.UUID, rowIndex int) (tx models.Transaction, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Warn("Row normalization panicked, dropping row",
				logging.Field{Key: "row", Value: rowIndex},
				logging.Field{Key: "panic", Value: r})
			tx, ok = models.Transaction{}, false
		}
	}()

	cell := func(role schema.Role) string {
		col, mapped := roles[role]
		if !mapped || col.Index >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[col.Index])
	}

	if mostlyEmpty(row) {
		return models.Transaction{}, false
	}
	if isRepeatedHeader(cell(schema.RoleDate)) {
		return models.Transaction{}, false
	}
	if isSummaryRow(row, cell(schema.RoleDescription)) {
		return models.Transaction{}, false
	}

	debitRaw := cell(schema.RoleDebit)
	creditRaw := cell(schema.RoleCredit)
	// Rows that moved no money, including status-only rows the wallet
	// exports for pending or timed-out operations, carry no amounts.
	if currencyutils.IsPlaceholder(debitRaw) && currencyutils.IsPlaceholder(creditRaw) {
		if hasStatusToken(cell(schema.RoleStatus)) {
			n.logger.Debug("Dropping status-only row",
				logging.Field{Key: "row", Value: rowIndex},
				logging.Field{Key: "status", Value: cell(schema.RoleStatus)})
		}
		return models.Transaction{}, false
	}

	debit, _ := currencyutils.ParseAmount(debitRaw)
	credit, _ := currencyutils.ParseAmount(creditRaw)
	balance, _ := currencyutils.ParseAmount(cell(schema.RoleBalance))

	date, timeOfDay, parsed := dateutils.ParseStatementDate(cell(schema.RoleDate))
	if !parsed {
		// Unparseable dates fall back to the ingestion moment so the row
		// survives; the raw value stays available in RawData.
		date = dateutils.Truncate(n.now())
		n.logger.Warn("Unparseable transaction date, using ingestion time",
			logging.Field{Key: "row", Value: rowIndex},
			logging.Field{Key: "value", Value: cell(schema.RoleDate)})
	}
	if timeOfDay == "" {
		// Bank statements often carry no time component; wallet exports do.
		timeOfDay = n.now().Format(dateutils.TimeLayout)
	}

	return models.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		ReferenceID: cell(schema.RoleReference),
		Date:        date,
		TimeOfDay:   timeOfDay,
		Description: cell(schema.RoleDescription),
		Debit:       debit,
		Credit:      credit,
		Balance:     balance,
		Source:      source.Name,
		RawData:     serializeRaw(header, row),
		CreatedAt:   n.now(),
	}, true
}

func mostlyEmpty(row []string) bool {
	if len(row) == 0 {
		return true
	}
	empty := 0
	for _, cell := range row {
		if strings.TrimSpace(cell) == "" {
			empty++
		}
	}
	return float64(empty)/float64(len(row)) > emptyFieldThreshold
}

func isRepeatedHeader(dateCell string) bool {
	_, ok := headerLabels[strings.ToLower(strings.TrimSpace(dateCell))]
	return ok
}

func isSummaryRow(row []string, description string) bool {
	cells := append([]string{description}, row...)
	for _, cell := range cells {
		lower := strings.ToLower(strings.TrimSpace(cell))
		if lower == "" {
			continue
		}
		for _, term := range summaryTerms {
			if strings.Contains(lower, term) {
				return true
			}
		}
		for _, phrase := range summaryPhrases {
			if strings.Contains(lower, phrase) {
				return true
			}
		}
		if containsWord(lower, "sum") {
			return true
		}
	}
	return false
}

// containsWord reports whether token appears as a whole word in cell.
func containsWord(cell, token string) bool {
	for _, word := range strings.FieldsFunc(cell, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if word == token {
			return true
		}
	}
	return false
}

func hasStatusToken(statusCell string) bool {
	_, ok := statusTokens[strings.ToLower(strings.TrimSpace(statusCell))]
	return ok
}

// serializeRaw keeps the original row content as "name=value" pairs so the
// source data survives normalization losslessly.
func serializeRaw(header, row []string) string {
	var b strings.Builder
	for i, value := range row {
		if i > 0 {
			b.WriteString("; ")
		}
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		if name == "" {
			name = "col" + strconv.Itoa(i)
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strings.TrimSpace(value))
	}
	return b.String()
}
