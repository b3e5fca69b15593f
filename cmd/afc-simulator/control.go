/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/kentakayama/afc-simulator/internal/config"
	"github.com/kentakayama/afc-simulator/internal/infra/control"
	"github.com/kentakayama/afc-simulator/internal/rf"
	"github.com/kentakayama/afc-simulator/internal/simulator"
	"github.com/kentakayama/afc-simulator/internal/util"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

type controlFlags struct {
	url      string
	insecure bool
	timeout  time.Duration
	verbose  bool
}

func (f *controlFlags) client() (*control.Client, error) {
	logger := log.New(io.Discard, "", 0)
	if f.verbose {
		logger = log.New(os.Stderr, "[control] ", 0)
	}
	return control.NewClient(config.ControlConfig{
		BaseURL:     f.url,
		InsecureTLS: f.insecure,
		Timeout:     f.timeout,
		Logger:      logger,
	})
}

func newControlCmd() *cobra.Command {
	flags := &controlFlags{}
	cmd := &cobra.Command{
		Use:   "control",
		Short: "Drive a running simulator",
	}
	cmd.PersistentFlags().StringVar(&flags.url, "url", envOr("AFC_CONTROL_URL", "http://localhost:8080"), "simulator base URL")
	cmd.PersistentFlags().BoolVar(&flags.insecure, "insecure", false, "skip TLS certificate verification")
	cmd.PersistentFlags().DurationVar(&flags.timeout, "timeout", 30*time.Second, "request timeout")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log client activity")

	cmd.AddCommand(
		newConfigureCmd(flags),
		newStatusCmd(flags),
		newResetCmd(flags),
		newInquireCmd(flags),
		newValidateRFCmd(flags),
		newEvidenceCmd(flags),
	)
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newConfigureCmd(flags *controlFlags) *cobra.Command {
	var (
		uut, purpose, domain                  string
		vector, phase, width                  int
		wait                                  float64
		hold, random, difference, onlyRandPwr bool
	)
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Set the response of the session",
		Long: `Set the response of the session. Only the flags given are sent. --purpose
starts a new activation and requires --uut.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			set := cmd.Flags().Changed
			var st simulator.Settings
			if set("uut") {
				st.UnitUnderTest = &uut
			}
			if set("purpose") {
				st.Purpose = &purpose
			}
			if set("vector") {
				st.TestVector = &vector
			}
			if set("phase") {
				st.Phase = &phase
			}
			if set("wait") {
				st.RespWaitTime = &wait
			}
			if set("hold") {
				st.HoldResponse = &hold
			}
			if set("random") {
				st.Random = &random
			}
			if set("difference") {
				st.DifferenceLastPicks = &difference
			}
			if set("only-random-power") {
				st.OnlyRandomPower = &onlyRandPwr
			}
			if set("width") {
				st.ChannelWidth = &width
			}
			if set("domain") {
				st.Domain = &domain
			}

			c, err := flags.client()
			if err != nil {
				return err
			}
			if err := c.Configure(cmd.Context(), st); err != nil {
				return err
			}
			pterm.Success.Println("session configured")
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&uut, "uut", "", "unit under test")
	f.StringVar(&purpose, "purpose", "", "test purpose")
	f.IntVar(&vector, "vector", 0, "test vector, 0 derives it from the inquiry")
	f.IntVar(&phase, "phase", 0, "test phase")
	f.Float64Var(&wait, "wait", 0, "response delay in seconds")
	f.BoolVar(&hold, "hold", false, "hold responses until released with --hold=false")
	f.BoolVar(&random, "random", false, "answer with generated masks")
	f.BoolVar(&difference, "difference", false, "pick channels not picked by the previous mask")
	f.BoolVar(&onlyRandPwr, "only-random-power", false, "keep the channels and redraw only the power")
	f.IntVar(&width, "width", simulator.DefaultChannelWidth, "channel width of generated masks in MHz")
	f.StringVar(&domain, "domain", "", "regulatory domain of the session")
	return cmd
}

func newStatusCmd(flags *controlFlags) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}
			st, err := c.Status(cmd.Context())
			if err != nil {
				return err
			}
			if raw {
				out, err := json.MarshalIndent(st, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}

			exchange := st.ExchangeID
			if exchange == "" {
				exchange = "-"
			}
			rows := pterm.TableData{
				{"State", st.State},
				{"Domain", st.Domain},
				{"Exchange", exchange},
				{"Valid request", fmt.Sprint(st.ValidRequest)},
				{"Hold", fmt.Sprint(st.HoldResponse)},
			}
			if err := pterm.DefaultTable.WithData(rows).Render(); err != nil {
				return err
			}
			if len(st.SentResponse) > 0 && !bytes.Equal(st.SentResponse, []byte("null")) {
				pterm.DefaultSection.Println("Sent response")
				fmt.Println(indent(st.SentResponse))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "json", false, "print the status document")
	return cmd
}

func indent(doc []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, doc, "", "  "); err != nil {
		return string(doc)
	}
	return buf.String()
}

func newResetCmd(flags *controlFlags) *cobra.Command {
	var inquiryFile string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Return the session to IDLE",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}
			if err := c.Reset(cmd.Context(), inquiryFile); err != nil {
				return err
			}
			pterm.Success.Println("session reset")
			return nil
		},
	}
	cmd.Flags().StringVar(&inquiryFile, "inquiry-file", "", "server side file receiving a transcript of the session")
	return cmd
}

func newInquireCmd(flags *controlFlags) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "inquire",
		Short: "Send an Available Spectrum Inquiry as a device would",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read inquiry: %w", err)
			}
			c, err := flags.client()
			if err != nil {
				return err
			}
			env, err := c.Inquire(cmd.Context(), body)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(env, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "inquiry JSON file")
	cmd.MarkFlagRequired("file")
	return cmd
}

func newValidateRFCmd(flags *controlFlags) *cobra.Command {
	var reportFile, mode string
	var criteriaPSD float64
	cmd := &cobra.Command{
		Use:   "validate-rf",
		Short: "Validate a report against the last response of the simulator",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := rf.ParseMode(mode)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(reportFile)
			if err != nil {
				return fmt.Errorf("read report: %w", err)
			}
			var doc struct {
				Report json.RawMessage `json:"rfMeasurementReport"`
			}
			if err := json.Unmarshal(data, &doc); err != nil {
				return fmt.Errorf("decode report: %w", err)
			}
			c, err := flags.client()
			if err != nil {
				return err
			}
			v, err := c.ValidateRF(cmd.Context(), m, criteriaPSD, doc.Report)
			if err != nil {
				return err
			}
			if err := renderResult(v.Result); err != nil {
				return err
			}
			if !v.Pass {
				return errValidationFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&reportFile, "report", "", "RF measurement report JSON file")
	cmd.Flags().StringVar(&mode, "mode", string(rf.ModeBoth), "validation mode")
	cmd.Flags().Float64Var(&criteriaPSD, "criteria-psd", 0, "PSD criterion in dBm/MHz for the fc mode")
	cmd.MarkFlagRequired("report")
	return cmd
}

func newEvidenceCmd(flags *controlFlags) *cobra.Command {
	var out string
	var verify bool
	cmd := &cobra.Command{
		Use:   "evidence",
		Short: "Fetch the signed evidence of the last exchange",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}
			signed, err := c.Evidence(cmd.Context())
			if err != nil {
				return err
			}
			if out != "" {
				if err := os.WriteFile(out, signed, 0o644); err != nil {
					return fmt.Errorf("write evidence: %w", err)
				}
				pterm.Info.Printfln("evidence written to %s", out)
			}

			if verify {
				keyPEM, err := c.EvidenceKey(cmd.Context())
				if err != nil {
					return err
				}
				pub, err := simulator.ParsePublicKeyPEM(keyPEM)
				if err != nil {
					return err
				}
				ev, err := simulator.VerifyEvidence(pub, signed)
				if err != nil {
					pterm.Error.Printfln("signature check failed: %v", err)
					return err
				}
				pterm.Success.Printfln("signature verified for exchange %s", ev.ExchangeID)
			}

			pretty, err := util.RenderCBOR(signed)
			if err != nil {
				return err
			}
			fmt.Println(pretty)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "also write the COSE_Sign1 bytes to this file")
	cmd.Flags().BoolVar(&verify, "verify", false, "verify the signature with the key published by the simulator")
	return cmd
}
