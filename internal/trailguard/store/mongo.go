package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vaibhaw-/TrailGuard/internal/trailguard/alert"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/config"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/event"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/logger"
)

// AlertCursor is the subset of *mongo.Cursor the store reads with.
type AlertCursor interface {
	All(ctx context.Context, results interface{}) error
	Close(ctx context.Context) error
}

// AlertCollection is the subset of *mongo.Collection the store writes and reads with.
type AlertCollection interface {
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (AlertCursor, error)
}

// mongoAlertCollection adapts *mongo.Collection to AlertCollection
type mongoAlertCollection struct {
	*mongo.Collection
}

func (m *mongoAlertCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (AlertCursor, error) {
	cursor, err := m.Collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return cursor, nil
}

// alertDocument is the stored shape: the alert fields inline plus the Mongo id.
type alertDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	alert.Alert `bson:",inline"`
}

// MongoStore keeps alerts in one collection, `alerts` by default.
type MongoStore struct {
	client *mongo.Client
	coll   AlertCollection
	clock  Clock
}

// NewMongoStore wraps an existing collection handle.
func NewMongoStore(coll AlertCollection, opts ...Option) *MongoStore {
	o := buildOptions(opts)
	return &MongoStore{coll: coll, clock: o.clock}
}

// OpenMongo connects, pings and returns a store bound to cfg.Database/cfg.Collection.
func OpenMongo(ctx context.Context, cfg config.StoreCfg, opts ...Option) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("%w: mongodb driver requires store.uri (or MONGO_URI)", ErrStore)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(cfg.URI)
	if cfg.MaxPoolSize > 0 {
		clientOptions.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, wrapErr("connect to mongodb", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, wrapErr("ping mongodb", err)
	}

	logger.L().Infow("connected to mongodb", "database", cfg.Database, "collection", cfg.Collection)

	s := NewMongoStore(&mongoAlertCollection{Collection: client.Database(cfg.Database).Collection(cfg.Collection)}, opts...)
	s.client = client
	return s, nil
}

func (s *MongoStore) Insert(ctx context.Context, alerts []alert.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	stampAll(alerts, s.clock())

	docs := make([]interface{}, 0, len(alerts))
	for _, a := range alerts {
		docs = append(docs, alertDocument{Alert: a})
	}
	res, err := s.coll.InsertMany(ctx, docs)
	if err != nil {
		return wrapErr("insert", err)
	}
	for i, id := range res.InsertedIDs {
		if oid, ok := id.(primitive.ObjectID); ok && i < len(alerts) {
			alerts[i].ID = oid.Hex()
		}
	}
	return nil
}

func (s *MongoStore) Query(ctx context.Context, f alert.Filter) ([]alert.Alert, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "ingestedAt", Value: -1}, {Key: "_id", Value: 1}})
	if f.Limit > 0 {
		findOpts.SetLimit(int64(f.Limit))
	}

	cursor, err := s.coll.Find(ctx, buildMongoFilter(f, s.clock()), findOpts)
	if err != nil {
		return nil, wrapErr("query", err)
	}
	defer cursor.Close(ctx)

	var docs []alertDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, wrapErr("decode alerts", err)
	}

	out := make([]alert.Alert, 0, len(docs))
	for _, d := range docs {
		a := d.Alert
		if !d.ID.IsZero() {
			a.ID = d.ID.Hex()
		}
		a.RawEvent = normalizeRecord(a.RawEvent)
		out = append(out, a)
	}
	return out, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Disconnect(ctx); err != nil {
		return wrapErr("disconnect", err)
	}
	return nil
}

// buildMongoFilter mirrors alert.Filter.Predicates as a BSON query.
func buildMongoFilter(f alert.Filter, now time.Time) bson.M {
	filter := bson.M{}
	if f.Severity != "" {
		filter["severity"] = f.Severity
	}
	if f.Rule != "" {
		filter["rule"] = f.Rule
	}
	if f.ScanID != "" {
		filter["scanId"] = f.ScanID
	}
	if cutoff, ok := f.Cutoff(now); ok {
		filter["ingestedAt"] = bson.M{"$gte": cutoff}
	}
	return filter
}

// normalizeRecord converts BSON container types back into the plain JSON tree
// shapes event.Record promises.
func normalizeRecord(r event.Record) event.Record {
	if r == nil {
		return nil
	}
	out := make(event.Record, len(r))
	for k, v := range r {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case primitive.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = normalizeValue(e.Value)
		}
		return m
	case primitive.M:
		return normalizeMap(t)
	case map[string]any:
		return normalizeMap(t)
	case event.Record:
		return normalizeMap(t)
	case primitive.A:
		return normalizeSlice(t)
	case []any:
		return normalizeSlice(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case int:
		return float64(t)
	case primitive.DateTime:
		return t.Time().UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}

func normalizeMap(in map[string]any) map[string]any {
	m := make(map[string]any, len(in))
	for k, v := range in {
		m[k] = normalizeValue(v)
	}
	return m
}

func normalizeSlice(in []any) []any {
	l := make([]any, len(in))
	for i, v := range in {
		l[i] = normalizeValue(v)
	}
	return l
}
