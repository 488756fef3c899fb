// Package rpmerr defines the stable error kinds surfaced to hosts of the
// library (spec §6, §7). Every kind shares the one Error struct, told apart
// by its Kind field, unlike the teacher's errors.go (noVersionError,
// disjointConstraintFailure, versionNotAllowedFailure, ...: one struct per
// failure); Error keeps the teacher's optional richer describer as
// Describe(). github.com/pkg/errors wraps these at I/O boundaries so Cause()
// still recovers the underlying error kind.
package rpmerr

import "fmt"

// Kind names the stable error codes from spec §6.
type Kind string

const (
	BadQuery             Kind = "BadQuery"
	BadSelector          Kind = "BadSelector"
	NoSolution           Kind = "NoSolution"
	RemovalOfProtectedPkg Kind = "RemovalOfProtectedPkg"
	InvalidArchitecture  Kind = "InvalidArchitecture"
	FileInvalid          Kind = "FileInvalid"
	FileNotFound         Kind = "FileNotFound"
	InternalError        Kind = "InternalError"
	PackageNotFound      Kind = "PackageNotFound"
	GpgSignatureInvalid  Kind = "GpgSignatureInvalid"
	NoSpace              Kind = "NoSpace"
	FailedConfigParsing  Kind = "FailedConfigParsing"
)

// Error is the concrete type returned for every Kind above. Describe()
// plays the role of the teacher's traceString(): a longer, diagnostic-
// oriented rendering, distinct from Error().
type Error struct {
	Kind   Kind
	Msg    string
	Detail string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Describe renders additional diagnostic context, falling back to Error().
func (e *Error) Describe() string {
	if e.Detail == "" {
		return e.Error()
	}
	return e.Error() + ": " + e.Detail
}

// New constructs an *Error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WithDetail returns a copy of e carrying extra diagnostic text, which
// Describe() appends after Error().
func (e *Error) WithDetail(detail string) *Error {
	return &Error{Kind: e.Kind, Msg: e.Msg, Detail: detail}
}

// Is allows errors.Is(err, rpmerr.BadQuery) style matching against a Kind
// sentinel by comparing the Kind field rather than identity.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is comparisons, one per Kind, mirroring how callers
// compare against the stable codes without needing exported constructors.
var (
	ErrBadQuery              = &Error{Kind: BadQuery}
	ErrBadSelector           = &Error{Kind: BadSelector}
	ErrNoSolution            = &Error{Kind: NoSolution}
	ErrRemovalOfProtectedPkg = &Error{Kind: RemovalOfProtectedPkg}
	ErrInvalidArchitecture   = &Error{Kind: InvalidArchitecture}
	ErrFileInvalid           = &Error{Kind: FileInvalid}
	ErrFileNotFound          = &Error{Kind: FileNotFound}
	ErrInternalError         = &Error{Kind: InternalError}
	ErrPackageNotFound       = &Error{Kind: PackageNotFound}
	ErrGpgSignatureInvalid   = &Error{Kind: GpgSignatureInvalid}
	ErrNoSpace               = &Error{Kind: NoSpace}
	ErrFailedConfigParsing   = &Error{Kind: FailedConfigParsing}
)
