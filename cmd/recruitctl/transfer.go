package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"rekrutacje/internal/config"
	applog "rekrutacje/internal/log"
	"rekrutacje/internal/services"
	gsheet "rekrutacje/internal/sheets/google"
)

var (
	exportOut        string
	importFromSheets bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every record as a JSON export document",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import records from an export document or a JSON array",
	Long: `Import records from a JSON file, or with --from-sheets from the Google
spreadsheet named by GOOGLE_SPREADSHEET_ID. Records whose reference id already
exists are skipped; invalid records are reported and do not stop the run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default: stdout)")
	importCmd.Flags().BoolVar(&importFromSheets, "from-sheets", false, "Read records from the configured Google spreadsheet")
}

func runExport(cmd *cobra.Command, _ []string) error {
	var (
		doc services.ExportDocument
		err error
	)
	if remote := flags.remote(); remote != nil {
		doc, err = remote.Export(cmd.Context())
	} else {
		store, closeStore, openErr := flags.openStore()
		if openErr != nil {
			return openErr
		}
		defer closeStore()
		doc, err = services.NewTransferService(store, nil, applog.Wrap(nil)).Export(cmd.Context())
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", exportOut, err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	if exportOut != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d records to %s\n", len(doc.Records), exportOut)
	}
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	items, err := readImportItems(cmd, args)
	if err != nil {
		return err
	}

	var result services.ImportResult
	if remote := flags.remote(); remote != nil {
		result, err = remote.Import(cmd.Context(), items)
	} else {
		store, closeStore, openErr := flags.openStore()
		if openErr != nil {
			return openErr
		}
		defer closeStore()
		result, err = services.NewTransferService(store, nil, applog.Wrap(nil)).ImportRaw(cmd.Context(), items)
	}
	if err != nil {
		return err
	}

	printImportResult(cmd.OutOrStdout(), result)
	return nil
}

func printImportResult(w io.Writer, r services.ImportResult) {
	fmt.Fprintf(w, "Imported: %d\nSkipped:  %d\n", r.Imported, r.Skipped)
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  error: %s\n", e)
	}
}

func readImportItems(cmd *cobra.Command, args []string) ([]json.RawMessage, error) {
	switch {
	case importFromSheets && len(args) > 0:
		return nil, fmt.Errorf("give either a file or --from-sheets, not both")
	case importFromSheets:
		cfg := config.Load()
		reader, err := gsheet.New(cmd.Context(), gsheet.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			return nil, err
		}
		recs, err := reader.ReadRecords(cmd.Context())
		if err != nil {
			return nil, err
		}
		return services.EncodeImport(recs)
	case len(args) == 0:
		return nil, fmt.Errorf("missing import file")
	}

	f, err := os.Open(args[0])
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return services.DecodeImport(f)
}
