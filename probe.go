//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/ooni/probe-cli/blob/v3.20.1/internal/netxlite/dialer.go
// Adapted from: https://github.com/rbmk-project/rbmk/blob/v0.17.0/pkg/x/netcore/dialer.go
//

package ctapi

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/bassosimone/errclass"
	"github.com/bassosimone/safeconn"
)

// Dialer abstracts the [*net.Dialer] behavior.
//
// By making [*ProbeFunc] depend on an abstract implementation we
// allow for unit testing and for using alternative dialers.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// NewProbeFunc returns a new [*ProbeFunc].
//
// The cfg argument contains the common configuration for ctapi operations.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewProbeFunc(cfg *Config, logger SLogger) *ProbeFunc {
	return &ProbeFunc{
		Dialer:        cfg.Dialer,
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		Port:          cfg.ServerPort,
		TimeNow:       cfg.TimeNow,
	}
}

// ProbeFunc checks that the CtAPI server of [Credentials] accepts TCP
// connections before handing the credentials to the blocking ctOpen.
//
// The probe connection is closed right away. Local sessions, whose
// [Credentials.Computer] is empty, pass through without dialing.
//
// Returns the input credentials or a [KindConnectionFailed] error.
//
// All fields are safe to modify after construction but before first use.
// Fields must not be mutated concurrently with calls to [Call].
type ProbeFunc struct {
	// Dialer is the [Dialer] to use.
	//
	// Set by [NewProbeFunc] from [Config.Dialer].
	Dialer Dialer

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewProbeFunc] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use (configurable for testing or custom logging).
	//
	// Set by [NewProbeFunc] to the user-provided logger.
	Logger SLogger

	// Port is the port to dial when the computer name does not contain one.
	//
	// Set by [NewProbeFunc] from [Config.ServerPort].
	Port string

	// TimeNow is the function to get the current time (configurable for testing).
	//
	// Set by [NewProbeFunc] from [Config.TimeNow].
	TimeNow func() time.Time
}

var _ Func[Credentials, Credentials] = &ProbeFunc{}

// Call implements [Func].
func (op *ProbeFunc) Call(ctx context.Context, cr Credentials) (Credentials, error) {
	if cr.Computer == "" {
		return cr, nil
	}
	address := op.address(cr.Computer)
	t0 := op.TimeNow()
	deadline, _ := ctx.Deadline()
	op.logProbeStart(address, t0, deadline)
	conn, err := op.Dialer.DialContext(ctx, "tcp", address)
	op.logProbeDone(address, t0, deadline, conn, err)
	if err != nil {
		return Credentials{}, &Error{Kind: KindConnectionFailed, Op: "probe", Detail: errclass.New(err), Cause: err}
	}
	conn.Close()
	return cr, nil
}

// address returns the endpoint to dial for computer.
func (op *ProbeFunc) address(computer string) string {
	if _, _, err := net.SplitHostPort(computer); err == nil {
		return computer
	}
	return net.JoinHostPort(computer, op.Port)
}

func (op *ProbeFunc) logProbeStart(address string, t0 time.Time, deadline time.Time) {
	op.Logger.Info(
		"probeStart",
		slog.Time("deadline", deadline),
		slog.String("protocol", "tcp"),
		slog.String("remoteAddr", address),
		slog.Time("t", t0),
	)
}

func (op *ProbeFunc) logProbeDone(
	address string, t0 time.Time, deadline time.Time, conn net.Conn, err error) {
	op.Logger.Info(
		"probeDone",
		slog.Time("deadline", deadline),
		slog.Any("err", err),
		slog.String("errClass", op.ErrClassifier.Classify(err)),
		slog.String("localAddr", safeconn.LocalAddr(conn)),
		slog.String("protocol", "tcp"),
		slog.String("remoteAddr", address),
		slog.Time("t0", t0),
		slog.Time("t", op.TimeNow()),
	)
}
