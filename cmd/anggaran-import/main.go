// Command anggaran-import loads budget lines from an .xlsx workbook or a
// Google Sheets range into the configured store.
//
//	anggaran-import -file revisi.xlsx [-sheet Rincian] [-kegiatan 4216]
//	anggaran-import -range "Import!A1:Z"
//	anggaran-import -file revisi.xlsx -list-sheets
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"anggaran/internal/backend"
	"anggaran/internal/cli"
	"anggaran/internal/config"
	"anggaran/internal/core"
	"anggaran/internal/importer"
	"anggaran/internal/log"
	"anggaran/internal/services"
	"anggaran/internal/xlsx"
)

func main() {
	var (
		file     = flag.String("file", "", "path of the .xlsx workbook to import")
		sheet    = flag.String("sheet", "", "sheet of the workbook (default: first sheet)")
		rangeA1  = flag.String("range", "", "Google Sheets range to import instead of a file")
		program  = flag.String("program", "", "program pembebanan for rows without one")
		kegiatan = flag.String("kegiatan", "", "kegiatan for rows without one")
		dryRun   = flag.Bool("dry-run", false, "normalize and report without saving")
		list     = flag.Bool("list-sheets", false, "print the sheet names of -file and exit")
	)
	flag.Parse()

	if *list {
		if err := listSheets(*file); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cfg, logger := cli.Bootstrap(log.ComponentImport)
	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	if *file == "" && *rangeA1 == "" {
		*rangeA1 = cfg.GoogleImportRange
	}
	grid, source, err := readGrid(ctx, cfg, logger, *file, *sheet, *rangeA1)
	if err != nil {
		logger.Error("Failed to read import source", log.FieldError, err)
		os.Exit(1)
	}

	scope := core.NewFilterSelection()
	if *program != "" {
		scope, _ = scope.Set(core.DimProgramPembebanan, *program)
	}
	if *kegiatan != "" {
		scope, _ = scope.Set(core.DimKegiatan, *kegiatan)
	}

	if *dryRun {
		res, err := importer.Normalize(grid, importer.Options{FallbackUnit: cfg.ImportFallbackUnit, Scope: scope})
		if err != nil {
			logger.Error("Import rejected", log.FieldError, err, "source", source)
			os.Exit(1)
		}
		for _, e := range res.Skipped {
			fmt.Fprintln(os.Stderr, e)
		}
		fmt.Printf("%s: %d rows valid, %d skipped, %d empty, %d warnings (dry run)\n",
			source, len(res.Rows), len(res.Skipped), res.Empty, len(res.Warnings))
		return
	}

	store := cli.OpenBackend(ctx, logger, cfg)
	defer store.Cleanup()

	budget := services.NewBudgetService(store.Repository,
		services.WithLogger(logger),
		services.WithFallbackUnit(cfg.ImportFallbackUnit))
	rep, err := budget.Import(ctx, core.RoleAdmin, grid, scope)
	if err != nil {
		logger.Error("Import failed", log.FieldError, err, "source", source)
		os.Exit(1)
	}
	for _, e := range rep.Skipped {
		fmt.Fprintln(os.Stderr, e)
	}
	for _, w := range rep.Warnings {
		fmt.Fprintf(os.Stderr, "row %d: %s value %q read as 0\n", w.Row, w.Field, w.Value)
	}
	fmt.Printf("%s: %d imported, %d skipped, %d empty\n", source, len(rep.Imported), len(rep.Skipped), rep.Empty)
}

func listSheets(file string) error {
	if file == "" {
		return fmt.Errorf("-list-sheets needs -file")
	}
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()
	names, err := xlsx.Sheets(f)
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}

func readGrid(ctx context.Context, cfg *config.Config, logger *log.Logger, file, sheet, rangeA1 string) (importer.Grid, string, error) {
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, file, err
		}
		defer f.Close()
		grid, err := xlsx.Decode(f, sheet)
		return grid, file, err
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, rangeA1, err
	}
	client, err := backend.NewFactory(logger).CreateSheets(ctx, bcfg)
	if err != nil {
		return nil, rangeA1, err
	}
	grid, err := client.ReadGrid(ctx, rangeA1)
	return grid, rangeA1, err
}
