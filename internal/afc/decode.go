/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package afc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedInquiry marks a body that is not a JSON inquiry object.
	ErrMalformedInquiry = errors.New("malformed inquiry")
)

// DecodeInquiry parses an inquiry body. A member with the wrong JSON type does
// not fail decoding; it is remembered and reported by Validate as an invalid
// value, with the rest of the document decoded as far as possible.
func DecodeInquiry(body []byte) (*InquiryEnvelope, error) {
	var env InquiryEnvelope
	err := json.Unmarshal(body, &env)
	if err == nil {
		return &env, nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		env.invalidParams = []string{lastPathElement(typeErr.Field)}
		return &env, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrMalformedInquiry, err)
}

func lastPathElement(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	return path
}
