package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/store/filestore"
	"github.com/kozaktomas/face-attendance/internal/store/sqlstore"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the attendance ledger as CSV",
	Long: `Write every attendance record as CSV with the columns
Name, Reg No, Date and Time. Without --out the CSV goes to stdout.`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("out", "", "Output file (default stdout)")
}

// openStore opens only the persistent store; export needs no assets or
// extractor.
func openStore(ctx context.Context, cfg config.StoreConfig) (store.Backend, error) {
	if cfg.Driver == "file" || cfg.Driver == "" {
		fs, err := filestore.New(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return fs, nil
	}
	s, err := sqlstore.Open(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	backend, err := openStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer backend.Close()

	records := ledger.New(backend).List(ctx)

	out := mustGetString(cmd, "out")
	if out == "" {
		return ledger.WriteCSV(os.Stdout, records)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", out, err)
	}
	if err := ledger.WriteCSV(f, records); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", out, err)
	}
	fmt.Fprintf(os.Stderr, "Exported %d records to %s\n", len(records), out)
	return nil
}
