/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package action

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/friendsincode/timegate/internal/config"
	"github.com/rs/zerolog"
)

// ErrUnsupported is returned by Select when the configured action cannot run
// on this host.
var ErrUnsupported = errors.New("action not supported on this platform")

// Executor performs the blocking action.
type Executor interface {
	Name() string
	Execute(ctx context.Context) error
}

// Select builds the executor configured in cfg after checking it can run here.
func Select(cfg *config.Config, logger zerolog.Logger) (Executor, error) {
	switch cfg.Action {
	case config.ActionShutdown:
		ex := NewShutdownExecutor(logger)
		if !ex.Available() {
			return nil, fmt.Errorf("%w: no shutdown mechanism found", ErrUnsupported)
		}
		return ex, nil
	case config.ActionCommand:
		ex := NewCommandExecutor(cfg.ActionCommand, logger)
		if !ex.Available() {
			return nil, fmt.Errorf("%w: shell not found for %q", ErrUnsupported, cfg.ActionCommand)
		}
		return ex, nil
	case config.ActionLog:
		return NewLogExecutor(logger), nil
	default:
		return nil, fmt.Errorf("unknown action %q", cfg.Action)
	}
}

// LogExecutor only records that the action would have run.
type LogExecutor struct {
	logger zerolog.Logger
}

func NewLogExecutor(logger zerolog.Logger) *LogExecutor {
	return &LogExecutor{logger: logger}
}

func (e *LogExecutor) Name() string { return "log" }

func (e *LogExecutor) Execute(context.Context) error {
	e.logger.Warn().Msg("blocking action (dry run): the host would shut down now")
	return nil
}

// CommandExecutor runs an operator supplied shell command.
type CommandExecutor struct {
	command string
	logger  zerolog.Logger
}

func NewCommandExecutor(command string, logger zerolog.Logger) *CommandExecutor {
	return &CommandExecutor{command: strings.TrimSpace(command), logger: logger}
}

func (e *CommandExecutor) Name() string { return "command" }

// Available reports whether the platform shell can be found.
func (e *CommandExecutor) Available() bool {
	name, _ := shellCommand(e.command)
	_, err := exec.LookPath(name)
	return err == nil
}

func (e *CommandExecutor) Execute(ctx context.Context) error {
	if e.command == "" {
		return errors.New("empty command")
	}
	name, args := shellCommand(e.command)
	return run(ctx, e.logger, name, args...)
}

// run executes a program and folds its combined output into the error.
func run(ctx context.Context, logger zerolog.Logger, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	hideWindow(cmd)

	out, err := cmd.CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		if output != "" {
			return fmt.Errorf("%s: %w: %s", name, err, output)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	if output != "" {
		logger.Debug().Str("program", name).Str("output", output).Msg("action output")
	}
	return nil
}
