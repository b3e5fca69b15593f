/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package resources

import (
	"embed"
)

var (
	//go:embed channel_tables.yaml
	ChannelTablesYAML []byte

	//go:embed schema/rf_measurement_report.schema.json
	RFMeasurementReportSchema []byte

	// TestVectors holds the bundled response fixtures under "test_vectors/".
	//go:embed test_vectors
	TestVectors embed.FS
)
