package enrollment

import (
	"errors"
	"fmt"
)

var (
	// ErrAssociationFetch indicates the association query itself failed or
	// returned an unusable shape.
	ErrAssociationFetch = errors.New("fetch enrollment associations")
	// ErrNoEnrollments indicates the parent record has no associated
	// enrollments at all.
	ErrNoEnrollments = errors.New("no enrollments associated with record")
	// ErrNoValidEnrollments indicates every associated enrollment was
	// filtered out before ranking.
	ErrNoValidEnrollments = errors.New("no valid enrollments for record")
)

// ChildFetchError reports a transport failure fetching one enrollment's
// detail. Unlike data-quality skips, a single ChildFetchError fails the
// entire aggregation batch.
type ChildFetchError struct {
	ChildID string
	Err     error
}

func (e *ChildFetchError) Error() string {
	return fmt.Sprintf("fetch enrollment %s: %v", e.ChildID, e.Err)
}

func (e *ChildFetchError) Unwrap() error {
	return e.Err
}
