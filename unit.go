// SPDX-License-Identifier: GPL-3.0-or-later

package ctapi

// Unit is the empty value flowing through a [Func] that has no meaningful
// input, like the head of a pipeline built with [NewCredentialsFunc], or no
// meaningful output, like [*TagWriteFunc] and [*ListReadFunc].
type Unit struct{}
