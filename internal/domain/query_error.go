package domain

import (
	"errors"
	"fmt"
)

// QueryErrorKind classifies why a resolution failed.
type QueryErrorKind string

const (
	GeocodeFailed       QueryErrorKind = "geocode_failed"
	DistanceFailed      QueryErrorKind = "distance_failed"
	NetworkFailed       QueryErrorKind = "network_failed"
	EmptyDirectory      QueryErrorKind = "empty_directory"
	AllCandidatesFailed QueryErrorKind = "all_candidates_failed"
)

// QueryError is the terminal outcome of a failed resolution.
// Address names the address being processed when the failure happened;
// it is the query itself for query-level failures and empty otherwise.
type QueryError struct {
	Kind    QueryErrorKind
	Address string
	Err     error
}

func (e *QueryError) Error() string {
	switch {
	case e.Address != "" && e.Err != nil:
		return fmt.Sprintf("%s for %q: %v", e.Kind, e.Address, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Address != "":
		return fmt.Sprintf("%s for %q", e.Kind, e.Address)
	default:
		return string(e.Kind)
	}
}

func (e *QueryError) Unwrap() error { return e.Err }

// UserMessage is the single string shown next to the input field.
func (e *QueryError) UserMessage() string {
	switch e.Kind {
	case GeocodeFailed:
		return "Error fetching geolocation data"
	case DistanceFailed:
		return "Error fetching distance data"
	case NetworkFailed:
		return "Error fetching data"
	case EmptyDirectory:
		return "No shelter locations are available"
	case AllCandidatesFailed:
		return "No shelter could be reached from this address"
	default:
		return "Error fetching data"
	}
}

// IsKind reports whether err is a QueryError of the given kind.
func IsKind(err error, kind QueryErrorKind) bool {
	var qe *QueryError
	return errors.As(err, &qe) && qe.Kind == kind
}
