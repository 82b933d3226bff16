//go:build windows

// SPDX-License-Identifier: GPL-3.0-or-later

package ctapi

import "golang.org/x/sys/windows"

const (
	errOperationAborted = windows.ERROR_OPERATION_ABORTED
	errIOIncomplete     = windows.ERROR_IO_INCOMPLETE
	errIOPending        = windows.ERROR_IO_PENDING
	errNotFound         = windows.ERROR_NOT_FOUND
	errInvalidHandle    = windows.ERROR_INVALID_HANDLE
	errInvalidParameter = windows.ERROR_INVALID_PARAMETER
)
