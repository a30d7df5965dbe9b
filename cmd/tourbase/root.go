// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tourbase Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the tourbase CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tourbase",
		Short: "Tourbase - account and session service",
		Long: `Tourbase is the account and session service: signup, login,
password lifecycle, and role-gated administration over a JSON HTTP API.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}
