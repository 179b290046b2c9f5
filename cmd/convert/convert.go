// Package convert contains the offline conversion command: statement in,
// categorized CSV out, no server or database involved.
package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/biplovgautam/himalai-expense-tracker-backend/cmd/root"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/categorizer"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/classify"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/config"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/export"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/extractor"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/identifier"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/logging"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/models"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/normalizer"
	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/schema"
)

var (
	inputFile  string
	outputFile string
)

// Cmd is the convert command.
var Cmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a statement file to categorized CSV",
	Long:  `Run a PDF or Excel statement through the ingestion pipeline and write the resulting transactions as CSV.`,
	RunE:  convertFunc,
}

// Init registers the convert command flags.
func Init() {
	Cmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input statement file (required)")
	Cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output CSV file (default: input name with .csv)")
	_ = Cmd.MarkFlagRequired("input")
}

func convertFunc(cmd *cobra.Command, args []string) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	log := root.Log

	data, err := os.ReadFile(inputFile)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	doc := models.RawDocument{
		Data:     data,
		Filename: filepath.Base(inputFile),
	}

	ext := extractor.New(log)
	preview, err := ext.Extract(doc)
	if err != nil {
		return err
	}

	// The offline path skips AI classification unless configured; both
	// stages degrade to their fallbacks with a nil client.
	client := buildClient(cfg, log)
	timeout := time.Duration(cfg.AI.TimeoutSeconds) * time.Second

	ctx := context.Background()
	source := identifier.New(client, timeout, log).Identify(ctx, preview)
	records := extractor.ParsePreview(preview)

	mapping, err := schema.NewMapper(log).Resolve(records, source)
	if err != nil {
		return err
	}

	result := normalizer.New(log).Normalize(records, mapping, source, uuid.Nil)
	categorizer.New(client, timeout, log).CategorizeAll(ctx, result.Transactions)

	out := outputFile
	if out == "" {
		base := inputFile[:len(inputFile)-len(filepath.Ext(inputFile))]
		out = base + ".csv"
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.WithError(err).Warn("Failed to close output file")
		}
	}()

	if err := export.WriteCSV(f, result.Transactions); err != nil {
		return err
	}

	log.Info("Conversion completed",
		logging.Field{Key: "input", Value: inputFile},
		logging.Field{Key: "output", Value: out},
		logging.Field{Key: "source", Value: source.Name},
		logging.Field{Key: "transactions", Value: len(result.Transactions)},
		logging.Field{Key: "dropped", Value: result.Dropped})
	return nil
}

// buildClient returns the configured classification client, or nil when AI
// is disabled. The process exits after one conversion, so the client is not
// closed explicitly.
func buildClient(cfg *config.Config, log logging.Logger) classify.Client {
	if !cfg.AI.Enabled || cfg.AI.APIKey == "" {
		return nil
	}
	timeout := time.Duration(cfg.AI.TimeoutSeconds) * time.Second
	if cfg.AI.Provider == "gemini" {
		client, err := classify.NewGeminiClient(context.Background(), cfg.AI.APIKey, cfg.AI.Model, log)
		if err != nil {
			log.WithError(err).Warn("Failed to create Gemini client, classification disabled")
			return nil
		}
		return client
	}
	return classify.NewGroqClient(cfg.AI.APIKey, "", cfg.AI.Model, timeout, log)
}
