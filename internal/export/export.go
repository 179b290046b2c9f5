// Package export renders stored transactions as downloadable CSV.
package export

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/dateutils"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/models"
)

// row is the flat CSV representation of one transaction.
type row struct {
	Date        string `csv:"date"`
	Time        string `csv:"time"`
	Description string `csv:"description"`
	Category    string `csv:"category"`
	Debit       string `csv:"debit"`
	Credit      string `csv:"credit"`
	Balance     string `csv:"balance"`
	Source      string `csv:"source"`
	Reference   string `csv:"reference"`
}

// WriteCSV streams the transactions to w as CSV with a header row. Amounts
// are fixed to two decimal places.
func WriteCSV(w io.Writer, transactions []models.Transaction) error {
	rows := make([]row, 0, len(transactions))
	for _, tx := range transactions {
		rows = append(rows, row{
			Date:        tx.Date.Format(dateutils.DateLayoutISO),
			Time:        tx.TimeOfDay,
			Description: tx.Description,
			Category:    tx.Category,
			Debit:       tx.Debit.StringFixed(2),
			Credit:      tx.Credit.StringFixed(2),
			Balance:     tx.Balance.StringFixed(2),
			Source:      tx.Source,
			Reference:   tx.ReferenceID,
		})
	}

	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("error writing CSV data: %w", err)
	}
	return nil
}
