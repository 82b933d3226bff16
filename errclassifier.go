// SPDX-License-Identifier: GPL-3.0-or-later

package ctapi

import (
	"errors"
	"fmt"

	"github.com/bassosimone/errclass"
)

// ErrClassifier classifies errors into categorical strings for analysis.
//
// Implementations map errors to short, descriptive labels (e.g., "ETIMEDOUT",
// "ERROR_OPERATION_ABORTED") that make structured logs easy to aggregate.
type ErrClassifier interface {
	Classify(err error) string
}

// ErrClassifierFunc adapts a function to the [ErrClassifier] interface.
//
// This allows using simple functions as classifiers:
//
//	cfg.ErrClassifier = ErrClassifierFunc(errclass.New)
type ErrClassifierFunc func(error) string

var _ ErrClassifier = ErrClassifierFunc(nil)

// Classify implements [ErrClassifier].
func (f ErrClassifierFunc) Classify(err error) string {
	return f(err)
}

// DefaultErrClassifier labels [*Error] values by kind and native code and
// falls back to [errclass.New] for everything else (e.g., dial errors).
//
// A nil error maps to the empty string.
var DefaultErrClassifier = ErrClassifierFunc(classifyError)

func classifyError(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return errclass.New(err)
	}
	switch e.Kind {
	case KindSystem:
		switch e.Code {
		case errIOPending:
			return "ERROR_IO_PENDING"
		case errIOIncomplete:
			return "ERROR_IO_INCOMPLETE"
		case errOperationAborted:
			return "ERROR_OPERATION_ABORTED"
		case errNotFound:
			return "ERROR_NOT_FOUND"
		default:
			return fmt.Sprintf("ERROR_%d", uint32(e.Code))
		}
	case KindDecoding:
		return "EDECODE"
	case KindInvalidParameter:
		return "EINVAL"
	case KindTimeout:
		return errclass.ETIMEDOUT
	case KindTagNotFound:
		return "ENOTAG"
	case KindConnectionFailed:
		return "ECONNFAILED"
	case KindUnsupported:
		return "ENOTSUP"
	default:
		return "EOTHER"
	}
}
