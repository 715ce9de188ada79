package archive

import "github.com/glarchive/glarchive/pkg/errors"

var (
	// ErrConstruction indicates that an archive session could not be
	// opened: unwritable target, missing source, or corrupted layout.
	ErrConstruction = errors.New("cannot construct archive session")

	// ErrUnsupportedVersion indicates a version marker outside the
	// supported set. Never coerced or best-effort parsed.
	ErrUnsupportedVersion = errors.New("unsupported archive version")

	// ErrUnresolvableReference indicates a reference tuple whose type tag
	// or class descriptor has no matching loader.
	ErrUnresolvableReference = errors.New("no loader for external reference")

	// ErrBackendTransfer indicates a remote upload or download failed.
	// The local staging directory is left intact for manual recovery.
	ErrBackendTransfer = errors.New("backend transfer failed")

	// ErrClosed indicates a Dump or Load after Close
	ErrClosed = errors.New("archive session is closed")
)
