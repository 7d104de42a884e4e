/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/timegate/internal/schedule"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report whether an instant falls inside a blocking window",
	Long:  "Load the stored schedules and evaluate them at --at (RFC 3339, default now) without running any action.",
	RunE:  runCheck,
}

var checkAt string

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkAt, "at", "", "Instant to evaluate, RFC 3339 (default: now)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	at := time.Now()
	if checkAt != "" {
		parsed, err := time.Parse(time.RFC3339, checkAt)
		if err != nil {
			return fmt.Errorf("--at: %w", err)
		}
		at = parsed.In(time.Local)
	}

	repo, closeFn, err := openRepository()
	if err != nil {
		return err
	}
	defer closeFn()

	schedules, err := repo.LoadAllSchedules(cmd.Context())
	if err != nil {
		return err
	}

	mode := schedule.MatchSameDay
	if cfg.CarryOverMidnight {
		mode = schedule.MatchCarryOver
	}
	evaluator := schedule.Evaluator{Mode: mode}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "at %s (%s, %s)\n", at.Format(time.RFC3339), schedule.ISOWeekday(at), mode)

	match, blocked := evaluator.FirstBlocking(schedules, at)
	if !blocked {
		fmt.Fprintf(out, "not blocked (%d schedules checked)\n", len(schedules))
		return nil
	}
	fmt.Fprintf(out, "BLOCKED by schedule %d %q, window %d (%s) until %s\n",
		match.Schedule.ID(), match.Schedule.Name(), match.Window.ID(), match.Window, match.End.Format(time.RFC3339))
	return nil
}
