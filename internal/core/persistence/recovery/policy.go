// Package recovery decides what the load pipeline does when a type cannot be
// resolved or a payload fails to deserialize cleanly.
package recovery

import (
	"context"
	"fmt"
	"strings"
)

// Kind identifies the decision point that produced an Event.
type Kind uint8

const (
	UnresolvableType Kind = iota + 1
	FormatMismatch
	DeserializeException
)

func (k Kind) String() string {
	switch k {
	case UnresolvableType:
		return "UnresolvableType"
	case FormatMismatch:
		return "FormatMismatch"
	case DeserializeException:
		return "DeserializeException"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Decision is the outcome of a Policy.
type Decision uint8

const (
	// Skip drops the offending type or entity and continues the load.
	Skip Decision = iota
	// Abort turns the problem into a fatal, load-terminating error.
	Abort
)

func (d Decision) String() string {
	if d == Abort {
		return "abort"
	}
	return "skip"
}

// ParseDecision accepts "skip" and "abort" in any case.
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "skip", "delete":
		return Skip, nil
	case "abort", "fail":
		return Abort, nil
	default:
		return Abort, fmt.Errorf("unknown recovery decision %q", s)
	}
}

// Event describes one problem found during load.
type Event struct {
	Kind     Kind
	Category string
	TypeName string
	// Reason is "not found" or "marked abstract" for UnresolvableType.
	Reason  string
	Serial  string
	TypeRef int
	// Expected and Consumed are payload byte counts; zero for type events.
	Expected int
	Consumed int
	Err      error
}

// Diff is the signed byte-count discrepancy of a FormatMismatch.
func (e Event) Diff() int { return e.Consumed - e.Expected }

func (e Event) String() string {
	switch e.Kind {
	case UnresolvableType:
		return fmt.Sprintf("type %q was %s", e.TypeName, e.Reason)
	case FormatMismatch:
		return fmt.Sprintf("serialized %s %s was %d bytes, but %d bytes deserialized", e.TypeName, e.Serial, e.Expected, e.Consumed)
	default:
		return fmt.Sprintf("bad deserialize of %s %s: %v", e.TypeName, e.Serial, e.Err)
	}
}

// Policy is consulted synchronously at each decision point.
type Policy interface {
	Decide(ctx context.Context, ev Event) Decision
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(ctx context.Context, ev Event) Decision

func (f PolicyFunc) Decide(ctx context.Context, ev Event) Decision { return f(ctx, ev) }

// Fixed always returns d.
func Fixed(d Decision) Policy {
	return PolicyFunc(func(context.Context, Event) Decision { return d })
}

var (
	AlwaysSkip  = Fixed(Skip)
	AlwaysAbort = Fixed(Abort)
)
