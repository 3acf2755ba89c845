// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// MaxFilenameBytes is the longest filename the backend accepts.
const MaxFilenameBytes = 255

const reservedFilenameChars = `<>:"|?*`

// NormalizeFilename returns name in Unicode NFC with surrounding space
// trimmed.
func NormalizeFilename(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// ValidateFilename applies the backend's filename rules locally so a bad
// name fails before any bytes are sent. The server remains authoritative.
func ValidateFilename(name string) error {
	name = NormalizeFilename(name)

	invalid := func(reason string) error {
		return &APIError{
			Status:  400,
			Code:    CodeInvalidFilename,
			Message: fmt.Sprintf("invalid filename %q: %s", name, reason),
		}
	}

	switch {
	case name == "":
		return invalid("name is empty")
	case name == "." || name == "..":
		return invalid("name is a directory reference")
	case len(name) > MaxFilenameBytes:
		return invalid(fmt.Sprintf("name exceeds %d bytes", MaxFilenameBytes))
	case strings.ContainsAny(name, `/\`):
		return invalid("name contains a path separator")
	case strings.ContainsAny(name, reservedFilenameChars):
		return invalid("name contains a reserved character")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return invalid("name contains a control character")
		}
	}
	return nil
}
