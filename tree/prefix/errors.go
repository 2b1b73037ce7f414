package prefix

import "errors"

// Errors returned by PrefixTreeCache.Apply. These are the only failure modes
// the prefix tree has; callers distinguish them by identity, not by message.
var (
	// ErrAlreadyInitialized is returned when a NewTree update is applied to a
	// tree that has already been initialized.
	ErrAlreadyInitialized = errors.New("prefix tree: already initialized")

	// ErrNotInitialized is returned when any update other than NewTree is
	// applied to an empty tree.
	ErrNotInitialized = errors.New("prefix tree: not initialized")

	// ErrFakeNotAllowed is returned when a NewTree or SameKey update is marked
	// as not real. Only DifferentKey updates may be fake.
	ErrFakeNotAllowed = errors.New("prefix tree: update may not be fake")

	// ErrRootMismatch is returned when a proof's reconstructed root does not
	// match the tree's current head. This is never recoverable within the
	// tree: it indicates either a malformed proof, a reordered update stream,
	// or active equivocation by the log operator.
	ErrRootMismatch = errors.New("prefix tree: reconstructed root does not match current head")

	// ErrMalformedUpdate is returned when an update is structurally invalid:
	// a DifferentKey update with an empty copath, a copath longer than the
	// tree's depth, or an Update of a type Apply does not recognize.
	ErrMalformedUpdate = errors.New("prefix tree: malformed update")
)
