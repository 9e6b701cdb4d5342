package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pavelanni/examprep/internal/compose"
	"github.com/pavelanni/examprep/internal/normalize"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Import question or lesson files (JSON or YAML) into the database",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runImport,
	}
	commonFlags(cmd)
	f := cmd.Flags()
	f.StringP("pool", "p", "", "Target pool (default: file name without extension)")
	f.StringP("category", "c", "", "Authoring category (default: the pool name)")
	f.String("section", "", "Import the files as lessons of this passage-based section (reading, listening)")
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	total, err := newImporter(db).importFiles(ctx, args, importOptions{
		pool:     v.GetString("pool"),
		category: v.GetString("category"),
		section:  v.GetString("section"),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d items from %d files\n", total, len(args))
	return nil
}

func normalizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize FILE",
		Short: "Print the canonical JSON form of a question file",
		Args:  cobra.ExactArgs(1),
		RunE:  runNormalize,
	}
	f := cmd.Flags()
	f.StringP("category", "c", "", "Authoring category")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func runNormalize(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	docs, err := normalize.Decode(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}
	return writeOutput(cmd, v.GetString("output"), normalize.NormalizeAll(docs, v.GetString("category")))
}

func composeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compose BLUEPRINT",
		Short: "Compose an exam from stored pools and print it without saving",
		Args:  cobra.ExactArgs(1),
		RunE:  runCompose,
	}
	commonFlags(cmd)
	f := cmd.Flags()
	f.Bool("save", false, "Persist the composed exam")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	return cmd
}

func runCompose(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	bp, ok := cfg.Blueprints[args[0]]
	if !ok {
		return fmt.Errorf("unknown blueprint %q", args[0])
	}

	ctx := cmd.Context()
	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	exam, err := composeExam(ctx, db, bp)
	if err != nil {
		return err
	}
	if v.GetBool("save") {
		if err := db.SaveExam(ctx, exam); err != nil {
			return fmt.Errorf("save exam: %w", err)
		}
	}
	return writeOutput(cmd, v.GetString("output"), exam)
}

type catalogStore interface {
	Catalog(ctx context.Context, bp compose.Blueprint) (compose.Catalog, error)
}

func composeExam(ctx context.Context, db catalogStore, bp compose.Blueprint) (compose.Exam, error) {
	cat, err := db.Catalog(ctx, bp)
	if err != nil {
		return compose.Exam{}, fmt.Errorf("load catalog: %w", err)
	}
	exam, err := compose.New(nil).Compose(bp, cat)
	if err != nil {
		return compose.Exam{}, fmt.Errorf("compose %s: %w", bp.Name, err)
	}
	return exam, nil
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export submitted exam snapshots as JSON",
		RunE:  runExport,
	}
	commonFlags(cmd)
	cmd.Flags().StringP("output", "o", "-", "Output file path (- for stdout)")
	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	export, err := db.ExportSnapshots(ctx)
	if err != nil {
		return fmt.Errorf("export snapshots: %w", err)
	}
	return writeOutput(cmd, v.GetString("output"), export)
}

// writeOutput writes v as indented JSON to outPath, or to the command's
// stdout for "" and "-".
func writeOutput(cmd *cobra.Command, outPath string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)
	return nil
}
