// SPDX-License-Identifier: GPL-3.0-or-later

package ctapi

// Credentials identifies a CtAPI session.
type Credentials struct {
	// Computer is the name or address of the CtAPI server. The empty
	// string selects the local machine.
	Computer string

	// User and Password authenticate the session. Both may be empty for
	// a local session.
	User     string
	Password string

	// Mode combines the Open* flags (e.g., [OpenReconnect]).
	Mode uint32
}

// encode converts the credentials into native arguments.
func (cr Credentials) encode(op string) (computer, user, password []byte, err error) {
	if computer, err = encodeParam(op, "computer", cr.Computer); err != nil {
		return
	}
	if user, err = encodeParam(op, "user", cr.User); err != nil {
		return
	}
	if password, err = encodeParam(op, "password", cr.Password); err != nil {
		err = &Error{Kind: KindInvalidParameter, Op: op, Param: "password", Detail: "embedded NUL"}
	}
	return
}

// NewCredentialsFunc returns a [Func] that always returns the given [Credentials].
//
// This is a convenience wrapper around [ConstFunc] for the common case of
// injecting the session credentials into a pipeline.
func NewCredentialsFunc(cr Credentials) Func[Unit, Credentials] {
	return ConstFunc(cr)
}
