/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"net/http"
	"time"

	"github.com/friendsincode/timegate/internal/auth"
)

// notifyReload asks a running server to pick up changes written by a
// management command. Failures are logged only; the server also reloads on
// SIGHUP or restart.
func notifyReload(ctx context.Context) {
	if !cfg.HTTPEnabled || cfg.JWTSigningKey == "" {
		return
	}
	token, err := auth.Issue([]byte(cfg.JWTSigningKey), "cli", []string{auth.ScopeReload}, time.Minute)
	if err != nil {
		logger.Debug().Err(err).Msg("reload token")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://"+cfg.HTTPAddr()+"/api/v1/reload", nil)
	if err != nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		logger.Debug().Err(err).Msg("no running server to notify")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		logger.Warn().Int("status", resp.StatusCode).Msg("server rejected reload request")
		return
	}
	logger.Info().Msg("running server notified to reload schedules")
}
