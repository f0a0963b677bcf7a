package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"moneycal/internal/ingest"
	applog "moneycal/internal/log"
	"moneycal/internal/services"
	"moneycal/internal/storage"
)

func main() {
	_ = godotenv.Load()

	var dbPath string

	root := &cobra.Command{
		Use:   "moneycal-import <file.csv>",
		Short: "Import transactions from a CSV export into the ledger database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], dbPath)
		},
		SilenceUsage: true,
	}
	root.Flags().StringVar(&dbPath, "db", "./data/moneycal.db", "path to the SQLite database")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runImport(cmd *cobra.Command, csvPath, dbPath string) error {
	logger := applog.New(slog.LevelWarn, "import")

	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("open csv file: %w", err)
	}
	defer f.Close()

	records, err := ingest.ParseTransactions(f)
	if err != nil {
		return fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No records to import")
		return nil
	}

	store, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	inputs := make([]services.TransactionInput, 0, len(records))
	for _, rec := range records {
		amount := rec.Amount
		inputs = append(inputs, services.TransactionInput{
			Date:          rec.Date.String(),
			Amount:        &amount,
			Direction:     rec.Direction,
			Category:      rec.Category,
			MajorCategory: rec.MajorCategory,
			SubCategory:   rec.SubCategory,
			Description:   rec.Description,
			Account:       rec.Account,
			Remarks:       rec.Remarks,
		})
	}

	svc := services.NewTransactionService(store, nil, logger)
	created, err := svc.CreateBulk(cmd.Context(), inputs)
	if err != nil {
		return fmt.Errorf("import transactions: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d transactions into %s\n", len(created), dbPath)
	return nil
}
