// SPDX-License-Identifier: GPL-3.0-or-later

package ctapi

import "context"

// Func is a step of a session pipeline: it takes an input, may block on
// the native library or the network, and returns a result.
//
// Steps such as [*ProbeFunc], [*OpenFunc] and [*CicodeFunc] are chained with
// [Compose2], [Compose3] and [Compose4] so that, e.g., the [Credentials]
// produced by one step become the input of the step opening the session.
//
// A step that fails after producing a resource it owns (a [*Client] or an
// [*AsyncOperation]) releases it before returning. [*OpenFunc] does this
// even for a session whose ctOpen returns after the context expired.
type Func[A, B any] interface {
	Call(ctx context.Context, input A) (B, error)
}

// FuncAdapter turns a closure into a [Func], e.g., to run custom Cicode
// against the [*Client] produced by a previous step.
type FuncAdapter[A, B any] func(ctx context.Context, input A) (B, error)

// Call implements [Func].
func (f FuncAdapter[A, B]) Call(ctx context.Context, input A) (B, error) {
	return f(ctx, input)
}
