package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Storage is the persistence port the gateway drives. Implementations
// must key records by the raw identity token and provide at least
// read-committed isolation; the gateway keeps every call to a single
// record or a single range scan so transactions stay short.
type Storage interface {
	// FindByIdentity returns the stored record or (nil, nil) when absent.
	FindByIdentity(ctx context.Context, tenant, kind, identity string) (*Record, error)
	Insert(ctx context.Context, tenant string, rec Record) error
	UpdateFields(ctx context.Context, tenant, kind, identity string, fields map[string]any, modified time.Time) error
	// QueryActiveSince returns active records with last_modified strictly
	// after since (all active records when since is nil), ordered by
	// last_modified ascending.
	QueryActiveSince(ctx context.Context, tenant string, since *time.Time) ([]Record, error)
}

// Announcer receives one notification per accepted mutation. Satisfied by
// realtime.Hub; delivery is best-effort and must never fail the push.
type Announcer interface {
	Announce(kind string, data any)
}

// Rejection reports one record the server refused, by identity.
type Rejection struct {
	Identity string `json:"identity" msgpack:"identity"`
	Reason   string `json:"reason" msgpack:"reason"`
}

// PushResult is the partial-success report for one push call.
type PushResult struct {
	Accepted int         `json:"accepted" msgpack:"accepted"`
	Rejected []Rejection `json:"rejected" msgpack:"rejected"`
}

// PullResult carries the delta since the client's cursor. ServerTime is
// the client's next cursor: clock authority stays with the server so
// terminal clock skew never corrupts the exchange.
type PullResult struct {
	Records    []Record  `json:"records" msgpack:"records"`
	ServerTime time.Time `json:"server_time" msgpack:"server_time"`
}

// Gateway is the batch sync exchange: terminals push locally recorded
// mutations and pull the server-side delta.
type Gateway struct {
	store    Storage
	resolver *Resolver
	announce Announcer
	now      func() time.Time
	log      zerolog.Logger
}

type GatewayOption func(*Gateway)

// WithAnnouncer forwards accepted mutations to hub.
func WithAnnouncer(hub Announcer) GatewayOption {
	return func(g *Gateway) { g.announce = hub }
}

func WithGatewayClock(now func() time.Time) GatewayOption {
	return func(g *Gateway) { g.now = now }
}

func WithGatewayLogger(log zerolog.Logger) GatewayOption {
	return func(g *Gateway) { g.log = log }
}

func NewGateway(store Storage, resolver *Resolver, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		store:    store,
		resolver: resolver,
		now:      time.Now,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Push runs every record of the batch through the resolver and applies
// the accepted ones. Records are independent: a rejection of record k
// never rolls back or aborts its siblings. A storage failure, by
// contrast, fails the whole call; the client retries the entire batch
// later and the resolver absorbs the re-delivery idempotently.
func (g *Gateway) Push(ctx context.Context, tenant string, batch []Record) (PushResult, error) {
	var res PushResult

	for _, incoming := range batch {
		existing, err := g.store.FindByIdentity(ctx, tenant, incoming.Kind, incoming.Identity)
		if err != nil {
			return PushResult{}, fmt.Errorf("looking up %s %q: %w", incoming.Kind, incoming.Identity, err)
		}

		dec, err := g.resolver.Resolve(ctx, tenant, incoming, existing)
		if err != nil {
			return PushResult{}, err
		}

		switch dec.Op {
		case OpReject:
			res.Rejected = append(res.Rejected, Rejection{Identity: incoming.Identity, Reason: dec.Reason})
			g.log.Debug().
				Str("tenant", tenant).
				Str("kind", incoming.Kind).
				Str("identity", incoming.Identity).
				Str("reason", dec.Reason).
				Msg("sync record rejected")
			continue

		case OpInsert:
			if err := g.store.Insert(ctx, tenant, dec.Record); err != nil {
				return PushResult{}, fmt.Errorf("inserting %s %q: %w", dec.Record.Kind, dec.Record.Identity, err)
			}
			res.Accepted++
			g.notify(incoming.Kind+".created", dec.Record)

		case OpUpdate:
			if err := g.store.UpdateFields(ctx, tenant, incoming.Kind, dec.Identity, dec.Fields, dec.Modified); err != nil {
				return PushResult{}, fmt.Errorf("updating %s %q: %w", incoming.Kind, dec.Identity, err)
			}
			res.Accepted++
			g.notify(incoming.Kind+".updated", Record{
				Kind:         incoming.Kind,
				Identity:     dec.Identity,
				Fields:       dec.Fields,
				LastModified: dec.Modified,
			})
		}
	}

	return res, nil
}

// Pull returns all active records modified strictly after since, oldest
// first, so a client that crashes mid-apply resumes from the last record
// it committed. The strict comparison keeps a cursor taken from a
// previous ServerTime from re-sending that pull's records; the boundary
// record a client re-pushes anyway is a benign idempotent update.
//
// ServerTime is sampled after the query, and a concurrent push stamps
// last_modified at resolve time but commits later, so a write in flight
// during this pull can land with a timestamp at or before the returned
// cursor and miss the next delta. Stamping last_modified inside the
// storage write would close the window; until then the realtime stream
// covers connected clients and a full pull covers reconnecting ones.
func (g *Gateway) Pull(ctx context.Context, tenant string, since *time.Time) (PullResult, error) {
	records, err := g.store.QueryActiveSince(ctx, tenant, since)
	if err != nil {
		return PullResult{}, fmt.Errorf("querying records: %w", err)
	}

	return PullResult{
		Records:    records,
		ServerTime: g.now().UTC(),
	}, nil
}

func (g *Gateway) notify(kind string, rec Record) {
	if g.announce == nil {
		return
	}
	g.announce.Announce(kind, rec)
}
