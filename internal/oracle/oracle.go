// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package oracle answers one question: does a presented PIN match the
// owner's enrolled PIN. A verdict is always a clean boolean. When the
// oracle cannot reach its backing credential source it reports
// ErrUnavailable instead, which callers MUST treat as "no verdict",
// never as a mismatch.
package oracle

import (
	"context"
	"errors"
)

// ErrUnavailable means the oracle could not produce a verdict. It is
// NOT a mismatch: no failure counter may advance and no alert may fire
// on this error.
var ErrUnavailable = errors.New("pin oracle unavailable")

// ErrNotEnrolled means no credential has been enrolled yet.
var ErrNotEnrolled = errors.New("no pin enrolled")

// Oracle verifies a candidate PIN against the enrolled credential.
type Oracle interface {
	// VerifyPIN returns (true, nil) on match, (false, nil) on mismatch,
	// and (false, ErrUnavailable) when no verdict could be produced.
	VerifyPIN(ctx context.Context, pin string) (bool, error)
}
