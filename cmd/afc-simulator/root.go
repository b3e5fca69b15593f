/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "afc-simulator",
		Short: "AFC Available Spectrum Inquiry simulator and RF measurement validator",
		Long: `afc-simulator answers Available Spectrum Inquiries of a standard power device
under test with prepared or generated responses, and checks RF measurement
reports of the device against the response it was given.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newValidateCmd(), newControlCmd())
	return root
}
