/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/kentakayama/afc-simulator/internal/afc"
	"github.com/kentakayama/afc-simulator/internal/fixture"
	"github.com/kentakayama/afc-simulator/internal/rf"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var errValidationFailed = errors.New("RF measurement report failed validation")

func newValidateCmd() *cobra.Command {
	var responseFile, reportFile, mode string
	var criteriaPSD float64
	var verbose bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate an RF measurement report against a response offline",
		Long: `Validate an RF measurement report against an Available Spectrum Inquiry
response without a running simulator. The response file is either a response
document or a fixture; its first response is used.

Modes: freq, chan, both, lpi, fc. --criteria-psd is only used by fc.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := rf.ParseMode(mode)
			if err != nil {
				return err
			}
			respData, err := os.ReadFile(responseFile)
			if err != nil {
				return fmt.Errorf("read response: %w", err)
			}
			resp, err := loadResponse(respData)
			if err != nil {
				return err
			}
			reportData, err := os.ReadFile(reportFile)
			if err != nil {
				return fmt.Errorf("read report: %w", err)
			}
			report, err := rf.ParseReport(reportData)
			if err != nil {
				return err
			}

			logger := log.New(io.Discard, "", 0)
			if verbose {
				logger = log.New(os.Stderr, "[rf] ", 0)
			}
			result, err := rf.NewValidator(resp, report, logger).Validate(m, criteriaPSD)
			if err != nil {
				return err
			}
			if err := renderResult(result); err != nil {
				return err
			}
			if !result.Pass() {
				return errValidationFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&responseFile, "response", "", "response or fixture JSON file")
	cmd.Flags().StringVar(&reportFile, "report", "", "RF measurement report JSON file")
	cmd.Flags().StringVar(&mode, "mode", string(rf.ModeBoth), "validation mode")
	cmd.Flags().Float64Var(&criteriaPSD, "criteria-psd", 0, "PSD criterion in dBm/MHz for the fc mode")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log the limits used by every check")
	cmd.MarkFlagRequired("response")
	cmd.MarkFlagRequired("report")
	return cmd
}

// loadResponse accepts a fixture or a response envelope.
func loadResponse(data []byte) (*afc.InquiryResponse, error) {
	if f, err := fixture.Parse(data); err == nil && f.Responses != nil {
		resp := f.Response()
		return &resp, nil
	}
	var env afc.ResponseEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	first := env.First()
	if first == nil {
		return nil, errors.New("response has no availableSpectrumInquiryResponses")
	}
	return first, nil
}

func renderResult(result rf.Result) error {
	rows := pterm.TableData{{"Check", "Result", "Reason"}}
	rows = append(rows, verdictRow("power", result.Power))
	if result.Adjacent != nil {
		rows = append(rows, verdictRow("adjacent", *result.Adjacent))
	}
	pterm.DefaultSection.Printfln("RF validation (%s)", result.Mode)
	if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
		return err
	}
	if result.Pass() {
		pterm.Success.Println("report is within the limits of the response")
	} else {
		pterm.Error.Println("report exceeds the limits of the response")
	}
	return nil
}

func verdictRow(name string, v rf.Verdict) []string {
	if v.Pass {
		return []string{name, pterm.Green("PASS"), ""}
	}
	return []string{name, pterm.Red("FAIL"), v.Reason}
}
