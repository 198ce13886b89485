package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRefs struct {
	known map[string]bool
	err   error
}

func (f *fakeRefs) Exists(ctx context.Context, tenant, kind, identity string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.known[kind+"/"+identity], nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestResolveInsertHonorsValidIdentity(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r := NewResolver(&fakeRefs{}, WithResolverClock(fixedClock(now)))

	incoming := Record{
		Kind:     KindProduct,
		Identity: "7d444840-9dc0-11d1-b245-5ffdce74fad2",
		Fields:   map[string]any{"name": "Café", "price": 12.5},
	}

	dec, err := r.Resolve(context.Background(), "t1", incoming, nil)
	require.NoError(t, err)
	assert.Equal(t, OpInsert, dec.Op)
	assert.Equal(t, incoming.Identity, dec.Record.Identity)
	assert.Equal(t, now, dec.Record.LastModified)
	assert.Equal(t, "Café", dec.Record.Fields["name"])
}

func TestResolveInsertGeneratesIdentityForBadToken(t *testing.T) {
	r := NewResolver(&fakeRefs{})

	incoming := Record{Kind: KindProduct, Identity: "not-a-uuid", Fields: map[string]any{"name": "Pão"}}

	dec, err := r.Resolve(context.Background(), "t1", incoming, nil)
	require.NoError(t, err)
	assert.Equal(t, OpInsert, dec.Op)
	assert.NotEqual(t, "not-a-uuid", dec.Record.Identity)
	assert.True(t, ValidIdentity(dec.Record.Identity))
}

func TestResolveUpdateReplacesOnlyProvidedFields(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r := NewResolver(&fakeRefs{}, WithResolverClock(fixedClock(now)))

	existing := &Record{
		Kind:     KindProduct,
		Identity: "7d444840-9dc0-11d1-b245-5ffdce74fad2",
		Fields:   map[string]any{"name": "A", "price": 10.0},
	}
	incoming := Record{
		Kind:     KindProduct,
		Identity: existing.Identity,
		Fields:   map[string]any{"price": 12.0},
	}

	dec, err := r.Resolve(context.Background(), "t1", incoming, existing)
	require.NoError(t, err)
	assert.Equal(t, OpUpdate, dec.Op)
	assert.Equal(t, existing.Identity, dec.Identity)
	assert.Equal(t, map[string]any{"price": 12.0}, dec.Fields)
	assert.Equal(t, now, dec.Modified)
	_, touchesName := dec.Fields["name"]
	assert.False(t, touchesName)
}

func TestResolveUpdateRejectsMalformedIdentity(t *testing.T) {
	r := NewResolver(&fakeRefs{})

	existing := &Record{Kind: KindProduct, Identity: "legacy-token"}
	incoming := Record{Kind: KindProduct, Identity: "legacy-token", Fields: map[string]any{"price": 1.0}}

	dec, err := r.Resolve(context.Background(), "t1", incoming, existing)
	require.NoError(t, err)
	assert.Equal(t, OpReject, dec.Op)
	assert.Equal(t, ReasonInvalidIdentity, dec.Reason)
}

func TestResolveRejectsMissingReference(t *testing.T) {
	r := NewResolver(&fakeRefs{known: map[string]bool{}})

	incoming := Record{
		Kind:     KindSale,
		Identity: NewIdentity(),
		Fields:   map[string]any{"product_id": NewIdentity(), "total": 30.0},
	}

	dec, err := r.Resolve(context.Background(), "t1", incoming, nil)
	require.NoError(t, err)
	assert.Equal(t, OpReject, dec.Op)
	assert.Equal(t, ReasonMissingReference, dec.Reason)
}

func TestResolveAcceptsPresentReference(t *testing.T) {
	productID := NewIdentity()
	r := NewResolver(&fakeRefs{known: map[string]bool{KindProduct + "/" + productID: true}})

	incoming := Record{
		Kind:     KindSale,
		Identity: NewIdentity(),
		Fields:   map[string]any{"product_id": productID, "total": 30.0},
	}

	dec, err := r.Resolve(context.Background(), "t1", incoming, nil)
	require.NoError(t, err)
	assert.Equal(t, OpInsert, dec.Op)
}

func TestResolveSkipsAbsentReferenceFields(t *testing.T) {
	r := NewResolver(&fakeRefs{known: map[string]bool{}})

	// No product_id or customer_id present at all: nothing to verify.
	incoming := Record{Kind: KindSale, Identity: NewIdentity(), Fields: map[string]any{"total": 5.0}}

	dec, err := r.Resolve(context.Background(), "t1", incoming, nil)
	require.NoError(t, err)
	assert.Equal(t, OpInsert, dec.Op)
}

func TestResolveSurfacesCheckerErrors(t *testing.T) {
	boom := errors.New("storage down")
	r := NewResolver(&fakeRefs{err: boom})

	incoming := Record{
		Kind:     KindSale,
		Identity: NewIdentity(),
		Fields:   map[string]any{"product_id": NewIdentity()},
	}

	_, err := r.Resolve(context.Background(), "t1", incoming, nil)
	require.ErrorIs(t, err, boom)
}
