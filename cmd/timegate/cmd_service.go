/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

const serviceStopTimeout = 15 * time.Second

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Install and control timegate as an OS service",
	Long:  "Register timegate with the service manager (systemd, launchd, Windows SCM) so the watcher starts at boot.",
}

var serviceRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run under the service manager",
	Args:  cobra.NoArgs,
	RunE:  runService,
}

func init() {
	rootCmd.AddCommand(serviceCmd)
	serviceCmd.AddCommand(serviceRunCmd)
	for _, action := range service.ControlAction {
		serviceCmd.AddCommand(serviceControlCmd(action))
	}
}

func serviceControlCmd(action string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: fmt.Sprintf("%s the timegate service", action),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(&program{})
			if err != nil {
				return err
			}
			if err := service.Control(svc, action); err != nil {
				return fmt.Errorf("service %s: %w", action, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "service %s: ok\n", action)
			return nil
		},
	}
}

func newService(prg *program) (service.Service, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return service.New(prg, &service.Config{
		Name:             "timegate",
		DisplayName:      "timegate",
		Description:      "Shuts the machine down during scheduled blocking windows.",
		Arguments:        []string{"service", "run"},
		WorkingDirectory: wd,
	})
}

// program adapts the server to the service manager's start/stop callbacks.
type program struct {
	cancel context.CancelFunc
	done   chan error
}

func (p *program) Start(s service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() {
		err := runServer(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("watcher stopped with error")
		}
		p.done <- err
		// A fatal startup error must reach the service manager as a failure.
		if err != nil && ctx.Err() == nil {
			os.Exit(1)
		}
	}()
	return nil
}

func (p *program) Stop(s service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	select {
	case err := <-p.done:
		return err
	case <-time.After(serviceStopTimeout):
		return errors.New("timed out waiting for watcher to stop")
	}
}

func runService(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	svc, err := newService(&program{})
	if err != nil {
		return err
	}
	if !service.Interactive() {
		logger.Info().Str("platform", service.Platform()).Msg("running under service manager")
	}
	return svc.Run()
}
