/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package util

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
)

// coseSign1Tag is the CBOR tag of a COSE_Sign1 message.
const coseSign1Tag = 18

// RenderCBOR decodes a CBOR item and renders it as indented JSON.
// COSE_Sign1 messages are shown with named members and their protected
// header and payload decoded in place.
func RenderCBOR(data []byte) (string, error) {
	var decoded any
	if err := cbor.Unmarshal(data, &decoded); err != nil {
		return "", fmt.Errorf("decode CBOR: %w", err)
	}
	return RenderCBORPretty(decoded)
}

// RenderCBORPretty renders an already decoded CBOR item as indented JSON.
func RenderCBORPretty(decoded any) (string, error) {
	normalised, err := normaliseCBORForJSON(decoded)
	if err != nil {
		return "", err
	}

	pretty, err := json.MarshalIndent(normalised, "", "  ")
	if err != nil {
		return "", err
	}
	return string(pretty), nil
}

func normaliseCBORForJSON(value any) (any, error) {
	switch v := value.(type) {
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			norm, err := normaliseCBORForJSON(elem)
			if err != nil {
				return nil, err
			}
			out[i] = norm
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			norm, err := normaliseCBORForJSON(val)
			if err != nil {
				return nil, err
			}
			out[k] = norm
		}
		return out, nil
	case map[any]any:
		keys := make([]string, 0, len(v))
		byKey := make(map[string]any, len(v))
		for key, val := range v {
			k := stringifyCBORKey(key)
			keys = append(keys, k)
			byKey[k] = val
		}
		sort.Strings(keys)

		out := make(map[string]any, len(keys))
		for _, k := range keys {
			norm, err := normaliseCBORForJSON(byKey[k])
			if err != nil {
				return nil, err
			}
			out[k] = norm
		}
		return out, nil
	case []byte:
		return fmt.Sprintf("h'%x'", v), nil
	case cbor.Tag:
		if v.Number == coseSign1Tag {
			if msg, ok := normaliseSign1(v.Content); ok {
				return msg, nil
			}
		}
		content, err := normaliseCBORForJSON(v.Content)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"_cborTag": v.Number,
			"content":  content,
		}, nil
	default:
		return v, nil
	}
}

// normaliseSign1 names the four members of a COSE_Sign1 array. It reports
// false when content does not have that shape.
func normaliseSign1(content any) (map[string]any, bool) {
	arr, ok := content.([]any)
	if !ok || len(arr) != 4 {
		return nil, false
	}
	protected, ok := arr[0].([]byte)
	if !ok {
		return nil, false
	}
	out := map[string]any{"_cose": "COSE_Sign1"}
	out["protected"] = embeddedOrHex(protected)
	unprotected, err := normaliseCBORForJSON(arr[1])
	if err != nil {
		return nil, false
	}
	out["unprotected"] = unprotected
	if payload, ok := arr[2].([]byte); ok {
		out["payload"] = embeddedOrHex(payload)
	} else {
		out["payload"] = nil
	}
	if sig, ok := arr[3].([]byte); ok {
		out["signature"] = fmt.Sprintf("h'%x'", sig)
	}
	return out, true
}

// embeddedOrHex decodes a byte string holding CBOR, falling back to hex.
func embeddedOrHex(b []byte) any {
	if len(b) == 0 {
		return map[string]any{}
	}
	var inner any
	if err := cbor.Unmarshal(b, &inner); err == nil {
		if norm, err := normaliseCBORForJSON(inner); err == nil {
			return norm
		}
	}
	return fmt.Sprintf("h'%x'", b)
}

func stringifyCBORKey(key any) string {
	switch k := key.(type) {
	case string:
		return k
	case fmt.Stringer:
		return k.String()
	case []byte:
		return fmt.Sprintf("h'%x'", k)
	default:
		return fmt.Sprint(k)
	}
}
