/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package simulator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

var transcriptBorder = strings.Repeat("#", 27)

// appendTranscriptLocked appends a request body or a response to the
// transcript file, when one is enabled. Write failures are logged.
func (s *Simulator) appendTranscriptLocked(v any) {
	path := s.sess.transcript
	if path == "" {
		return
	}
	entry, err := transcriptEntry(v, s.now().UTC().Format("2006-01-02T15:04:05Z"))
	if err != nil {
		s.logger.Printf("failed to render transcript entry: %v", err)
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		s.logger.Printf("failed to open transcript %s: %v", path, err)
		return
	}
	defer f.Close()
	if _, err := f.Write(entry); err != nil {
		s.logger.Printf("failed to write transcript %s: %v", path, err)
	}
}

// transcriptEntry renders v as indented JSON under a timestamp border. Raw
// bytes are taken as a JSON document.
func transcriptEntry(v any, timestamp string) ([]byte, error) {
	var body bytes.Buffer
	switch raw := v.(type) {
	case []byte:
		if err := json.Indent(&body, raw, "", "    "); err != nil {
			return nil, err
		}
	default:
		out, err := json.MarshalIndent(v, "", "    ")
		if err != nil {
			return nil, err
		}
		body.Write(out)
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s   %s   %s\n", transcriptBorder, timestamp, transcriptBorder)
	buf.Write(body.Bytes())
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}
