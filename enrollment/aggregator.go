// Package enrollment aggregates a student's associated enrollment records
// into the ranked, capped set used to build an enrollment letter.
package enrollment

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// MaxLetterRecords caps how many enrollments appear in one letter.
	MaxLetterRecords = 8
	// associationLimit is comfortably above any realistic fan-out.
	associationLimit = 500
)

// RecordSource supplies association and property reads from the record store.
type RecordSource interface {
	Associations(ctx context.Context, parentID, childTypeID string, limit int) ([]string, error)
	Properties(ctx context.Context, objectType, id string, props []string) (map[string]string, error)
}

// AggregatorOptions configures an aggregator.
type AggregatorOptions struct {
	Source RecordSource
	// Catalog defaults to the embedded catalog when nil.
	Catalog *Catalog
	// ObjectType is the record-store type of enrollment records.
	ObjectType string
	// ChildTypeID selects the association type queried on the parent.
	ChildTypeID string
	// Timezone defaults to DefaultTimezone when nil.
	Timezone *time.Location
	Logger   *log.Logger
}

// Aggregator fetches, validates, filters, ranks, and caps a parent record's
// enrollments.
type Aggregator struct {
	source      RecordSource
	catalog     *Catalog
	objectType  string
	childTypeID string
	timezone    *time.Location
	logger      *log.Logger
}

// NewAggregator creates an aggregator.
func NewAggregator(opts AggregatorOptions) (*Aggregator, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("record source is required")
	}
	catalog := opts.Catalog
	if catalog == nil {
		loaded, err := DefaultCatalog()
		if err != nil {
			return nil, err
		}
		catalog = loaded
	}
	timezone := opts.Timezone
	if timezone == nil {
		timezone = DefaultTimezone()
	}
	return &Aggregator{
		source:      opts.Source,
		catalog:     catalog,
		objectType:  opts.ObjectType,
		childTypeID: opts.ChildTypeID,
		timezone:    timezone,
		logger:      opts.Logger,
	}, nil
}

// Aggregate returns the parent's valid enrollments, newest first, capped at
// MaxLetterRecords. Per-child data-quality problems skip that child; a
// per-child transport failure fails the whole call. Identical backing data
// always yields identical ordered results.
func (a *Aggregator) Aggregate(ctx context.Context, parentID string) ([]Record, error) {
	childIDs, err := a.source.Associations(ctx, parentID, a.childTypeID, associationLimit)
	if err != nil {
		return nil, fmt.Errorf("%w for %s: %v", ErrAssociationFetch, parentID, err)
	}
	if len(childIDs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoEnrollments, parentID)
	}

	// Results land in association order; ranking happens after collection.
	results := make([]*Record, len(childIDs))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, childID := range childIDs {
		i, childID := i, childID
		group.Go(func() error {
			props, err := a.source.Properties(groupCtx, a.objectType, childID, RecordProperties)
			if err != nil {
				return &ChildFetchError{ChildID: childID, Err: err}
			}
			record, reason := newRecord(childID, props, a.catalog, a.timezone)
			if record == nil {
				a.logf("skipping enrollment %s: %s", childID, reason)
				return nil
			}
			results[i] = record
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	kept := make([]Record, 0, len(results))
	for _, record := range results {
		if record != nil {
			kept = append(kept, *record)
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoValidEnrollments, parentID)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].CreatedAt.After(kept[j].CreatedAt)
	})
	if len(kept) > MaxLetterRecords {
		kept = kept[:MaxLetterRecords]
	}
	return kept, nil
}

func (a *Aggregator) logf(format string, args ...any) {
	if a == nil || a.logger == nil {
		return
	}
	a.logger.Printf(format, args...)
}
