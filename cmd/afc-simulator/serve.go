/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kentakayama/afc-simulator/internal/config"
	"github.com/kentakayama/afc-simulator/internal/server"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var addr, domain string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulator HTTP server",
		Long: `Run the simulator HTTP server. Settings are read from AFC_* environment
variables; --addr and --domain override AFC_ADDR and AFC_DOMAIN.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if domain != "" {
				cfg.Domain = domain
			}
			cfg.Logger = log.New(os.Stderr, "[afc] ", log.LstdFlags|log.Lmicroseconds)

			srv, err := server.New(*cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			select {
			case err := <-errCh:
				srv.Shutdown(context.Background())
				return err
			case <-ctx.Done():
			}

			cfg.Logger.Printf("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			return <-errCh
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides AFC_ADDR)")
	cmd.Flags().StringVar(&domain, "domain", "", "default regulatory domain (overrides AFC_DOMAIN)")
	return cmd
}
