/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package afc

import (
	"fmt"
	"strings"
)

// ResponseCode is the in-body result code of an inquiry response.
type ResponseCode int

const (
	CodeGeneralFailure      ResponseCode = -1
	CodeSuccess             ResponseCode = 0
	CodeVersionNotSupported ResponseCode = 100
	CodeDeviceDisallowed    ResponseCode = 101
	CodeMissingParam        ResponseCode = 102
	CodeInvalidValue        ResponseCode = 103
	CodeUnexpectedParam     ResponseCode = 106
	CodeUnsupportedSpectrum ResponseCode = 300
)

func (c ResponseCode) String() string {
	switch c {
	case CodeGeneralFailure:
		return "GENERAL_FAILURE"
	case CodeSuccess:
		return "SUCCESS"
	case CodeVersionNotSupported:
		return "VERSION_NOT_SUPPORTED"
	case CodeDeviceDisallowed:
		return "DEVICE_DISALLOWED"
	case CodeMissingParam:
		return "MISSING_PARAM"
	case CodeInvalidValue:
		return "INVALID_VALUE"
	case CodeUnexpectedParam:
		return "UNEXPECTED_PARAM"
	case CodeUnsupportedSpectrum:
		return "UNSUPPORTED_SPECTRUM"
	default:
		return fmt.Sprintf("CODE_%d", int(c))
	}
}

// ProtocolError is a failure reported to the device inside a well-formed
// response rather than at the transport level.
type ProtocolError struct {
	Code         ResponseCode
	Description  string
	Supplemental *SupplementalInfo
}

func (e *ProtocolError) Error() string {
	if e.Supplemental == nil {
		return fmt.Sprintf("%d %s", e.Code, e.Description)
	}
	var params []string
	params = append(params, e.Supplemental.MissingParams...)
	params = append(params, e.Supplemental.InvalidParams...)
	params = append(params, e.Supplemental.UnexpectedParams...)
	return fmt.Sprintf("%d %s [%s]", e.Code, e.Description, strings.Join(params, ", "))
}

// Status renders the error as the response member of an inquiry response.
func (e *ProtocolError) Status() ResponseStatus {
	return ResponseStatus{
		ResponseCode:     e.Code,
		ShortDescription: e.Description,
		SupplementalInfo: e.Supplemental,
	}
}

func GeneralFailure() *ProtocolError {
	return &ProtocolError{Code: CodeGeneralFailure, Description: "General Failure"}
}

func VersionNotSupported() *ProtocolError {
	return &ProtocolError{Code: CodeVersionNotSupported, Description: "version not supported"}
}

func MissingParam(names ...string) *ProtocolError {
	return &ProtocolError{
		Code:         CodeMissingParam,
		Description:  "Missing Param.",
		Supplemental: &SupplementalInfo{MissingParams: names},
	}
}

func InvalidParams(names ...string) *ProtocolError {
	return &ProtocolError{
		Code:         CodeInvalidValue,
		Description:  "One or more fields have an invalid value.",
		Supplemental: &SupplementalInfo{InvalidParams: names},
	}
}

func UnsupportedSpectrum() *ProtocolError {
	return &ProtocolError{Code: CodeUnsupportedSpectrum, Description: "Unsupported spectrum"}
}

// ErrorResponse builds a response envelope carrying only a failure status.
func ErrorResponse(version, requestID string, perr *ProtocolError) *ResponseEnvelope {
	return &ResponseEnvelope{
		Version: version,
		Responses: []InquiryResponse{{
			RequestID: requestID,
			Response:  perr.Status(),
		}},
	}
}
