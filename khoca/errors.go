package khoca

import "github.com/pkg/errors"

// Errors
var (
	ErrMalformedDiagram      = errors.New("malformed diagram")
	ErrUnsupportedRing       = errors.New("unsupported ring")
	ErrUnsupportedAlgebra    = errors.New("unsupported Frobenius algebra")
	ErrUnsupportedCommand    = errors.New("unsupported command")
	ErrResourceLimitExceeded = errors.New("resource limit exceeded")
	ErrInvariantViolation    = errors.New("invariant violation")
	ErrInternalInconsistency = errors.New("internal inconsistency")
	ErrCancelled             = errors.New("calculation cancelled")
	ErrBadCatalogParam       = errors.New("bad catalog param")
	ErrUnmarshal             = errors.New("unmarshal failed")
)

// Kind classifies an error returned by this module.
type Kind int32

const (
	KindNone Kind = iota
	KindMalformedDiagram
	KindUnsupportedRing
	KindUnsupportedAlgebra
	KindUnsupportedCommand
	KindResourceLimitExceeded
	KindInvariantViolation
	KindInternalInconsistency
	KindCancelled
	KindCatalog
	KindUnknown
)

var kindNames = [...]string{
	"None",
	"MalformedDiagram",
	"UnsupportedRing",
	"UnsupportedAlgebra",
	"UnsupportedCommand",
	"ResourceLimitExceeded",
	"InvariantViolation",
	"InternalInconsistency",
	"Cancelled",
	"Catalog",
	"Unknown",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// KindOf returns the Kind of the sentinel error err was wrapped from.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	switch errors.Cause(err) {
	case ErrMalformedDiagram:
		return KindMalformedDiagram
	case ErrUnsupportedRing:
		return KindUnsupportedRing
	case ErrUnsupportedAlgebra:
		return KindUnsupportedAlgebra
	case ErrUnsupportedCommand:
		return KindUnsupportedCommand
	case ErrResourceLimitExceeded:
		return KindResourceLimitExceeded
	case ErrInvariantViolation:
		return KindInvariantViolation
	case ErrInternalInconsistency:
		return KindInternalInconsistency
	case ErrCancelled:
		return KindCancelled
	case ErrBadCatalogParam, ErrUnmarshal:
		return KindCatalog
	}
	return KindUnknown
}
