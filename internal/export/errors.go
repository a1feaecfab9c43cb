/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an export failure.
type Kind int

const (
	// KindEnvironment covers file system and output failures the user can fix
	// outside the script (permissions, missing folders, full disks).
	KindEnvironment Kind = iota + 1
	// KindContent covers script content the target format cannot represent.
	KindContent
	// KindCancelled means the caller abandoned the export.
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindEnvironment:
		return "environment"
	case KindContent:
		return "content"
	case KindCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is returned by every exporter. The script is never modified when
// an export fails.
type Error struct {
	Op   string
	Kind Kind
	// Hint is a short remediation for the user, may be empty.
	Hint string
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("export %s: %v", e.Op, e.Err)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

func envError(op string, err error, hint string) error {
	return &Error{Op: op, Kind: KindEnvironment, Hint: hint, Err: err}
}

func contentError(op string, err error, hint string) error {
	return &Error{Op: op, Kind: KindContent, Hint: hint, Err: err}
}

// checkCancel wraps a done context's error as KindCancelled.
func checkCancel(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return &Error{Op: op, Kind: KindCancelled, Err: err}
	}
	return nil
}
