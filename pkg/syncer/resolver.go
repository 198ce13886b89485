package syncer

import (
	"context"
	"fmt"
	"time"
)

// Op is the action the resolver decided on for one incoming record.
type Op int

const (
	OpInsert Op = iota
	OpUpdate
	OpReject
)

// Rejection reasons reported back to the pushing client.
const (
	ReasonInvalidIdentity  = "invalid identity"
	ReasonMissingReference = "missing reference"
)

// Decision is the outcome of resolving one incoming record.
//
// OpInsert: Record holds the full record to store, with the identity the
// server settled on and LastModified set to the resolver clock.
// OpUpdate: Identity names the existing record, Fields the attributes to
// replace, Modified the new last-modified tick.
// OpReject: Reason explains why; the record must be skipped, not the batch.
type Decision struct {
	Op       Op
	Record   Record
	Identity string
	Fields   map[string]any
	Modified time.Time
	Reason   string
}

// ReferenceChecker answers whether a referenced entity exists. Backed by
// the storage port in production, by a map in tests.
type ReferenceChecker interface {
	Exists(ctx context.Context, tenant, kind, identity string) (bool, error)
}

// DefaultReferences declares which fields of which kinds must name an
// existing entity. A sale uploaded from a terminal is rejected when it
// points at a product or customer the server has never seen.
var DefaultReferences = map[string]map[string]string{
	KindSale: {
		"product_id":  KindProduct,
		"customer_id": KindCustomer,
	},
}

// Resolver decides, per incoming record, whether to insert, update or
// reject, and what the stored state becomes.
type Resolver struct {
	check ReferenceChecker
	refs  map[string]map[string]string
	now   func() time.Time
}

type ResolverOption func(*Resolver)

// WithReferences replaces the reference schema.
func WithReferences(refs map[string]map[string]string) ResolverOption {
	return func(r *Resolver) { r.refs = refs }
}

// WithResolverClock replaces the clock used to stamp LastModified.
func WithResolverClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) { r.now = now }
}

func NewResolver(check ReferenceChecker, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		check: check,
		refs:  DefaultReferences,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve matches incoming against existing (nil when no server record
// shares its identity) and computes the resulting stored state.
//
// Insert honors a syntactically valid client identity verbatim and
// generates a fresh one otherwise: offline-born records must make forward
// progress, never be dropped over a bad token. Update replaces only the
// fields present in the incoming payload, so terminals that edited
// disjoint fields of the same entity while offline do not clobber each
// other. LastModified always advances to the server clock; it is the tick
// the next pull cursor filters on.
//
// An error return means the reference check could not be performed
// (backend trouble) and the whole call should fail; rejections are
// per-record data problems and come back inside the Decision.
func (r *Resolver) Resolve(ctx context.Context, tenant string, incoming Record, existing *Record) (Decision, error) {
	for field, kind := range r.refs[incoming.Kind] {
		raw, present := incoming.Fields[field]
		if !present || raw == nil {
			continue
		}
		ref, ok := raw.(string)
		if !ok || ref == "" {
			return Decision{Op: OpReject, Reason: ReasonMissingReference}, nil
		}
		found, err := r.check.Exists(ctx, tenant, kind, ref)
		if err != nil {
			return Decision{}, fmt.Errorf("checking %s reference %q: %w", kind, ref, err)
		}
		if !found {
			return Decision{Op: OpReject, Reason: ReasonMissingReference}, nil
		}
	}

	now := r.now().UTC()

	if existing == nil {
		identity := incoming.Identity
		if !ValidIdentity(identity) {
			identity = NewIdentity()
		}
		return Decision{
			Op: OpInsert,
			Record: Record{
				Kind:         incoming.Kind,
				Identity:     identity,
				Fields:       cloneFields(incoming.Fields),
				LastModified: now,
			},
		}, nil
	}

	if !ValidIdentity(incoming.Identity) {
		return Decision{Op: OpReject, Reason: ReasonInvalidIdentity}, nil
	}

	return Decision{
		Op:       OpUpdate,
		Identity: existing.Identity,
		Fields:   cloneFields(incoming.Fields),
		Modified: now,
	}, nil
}
