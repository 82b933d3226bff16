//go:build !windows

// SPDX-License-Identifier: GPL-3.0-or-later

package ctapi

import "syscall"

// Win32 error codes, so that a [NativeAPI] injected on other platforms
// can speak the same sentinels as CtApi.dll.
const (
	errOperationAborted = syscall.Errno(995)
	errIOIncomplete     = syscall.Errno(996)
	errIOPending        = syscall.Errno(997)
	errNotFound         = syscall.Errno(1168)
	errInvalidHandle    = syscall.Errno(6)
	errInvalidParameter = syscall.Errno(87)
)
