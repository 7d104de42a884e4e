/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/friendsincode/timegate/internal/importer"
)

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import schedules from a YAML file",
	Long:  "Validate every record in FILE and store the schedules in one transaction. Nothing is written if any record is invalid.",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var (
	importReplace bool
	importDryRun  bool
)

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().BoolVar(&importReplace, "replace", false, "Remove existing schedules before importing")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Validate the file without writing")
}

func runImport(cmd *cobra.Command, args []string) error {
	doc, err := importer.ReadFile(args[0])
	if err != nil {
		return err
	}
	inputs, err := doc.Inputs()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if importDryRun {
		windows := 0
		for _, in := range inputs {
			windows += len(in.Windows)
		}
		fmt.Fprintf(out, "%s: %d schedules, %d windows valid\n", args[0], len(inputs), windows)
		return nil
	}

	if err := loadConfig(); err != nil {
		return err
	}
	repo, closeFn, err := openRepository()
	if err != nil {
		return err
	}
	defer closeFn()

	n, err := repo.Import(cmd.Context(), inputs, importReplace)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	fmt.Fprintf(out, "imported %d schedules from %s\n", n, args[0])
	notifyReload(cmd.Context())
	return nil
}
