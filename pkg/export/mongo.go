package export

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"jmdict/pkg/config"
	errs "jmdict/pkg/errors"
	"jmdict/pkg/logger"
	"jmdict/pkg/parser"
)

// Collection is the subset of a MongoDB collection the exporter uses
type Collection interface {
	CountDocuments(ctx context.Context, filter interface{}) (int64, error)
	InsertMany(ctx context.Context, documents []interface{}) error
}

// Exporter writes an entry list into MongoDB, one document per entry
type Exporter struct {
	client     *mongo.Client
	collection Collection
	batchSize  int
	timeout    time.Duration
	logger     logger.Logger
}

// Connect opens a MongoDB connection, pings it and ensures the
// (date_key, index) unique index exists.
func Connect(ctx context.Context, cfg config.MongoConfig, log logger.Logger) (*Exporter, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errs.New(errs.ErrorTypeExport, "connect", fmt.Errorf("failed to connect to MongoDB: %w", err))
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, errs.New(errs.ErrorTypeExport, "connect", fmt.Errorf("can't ping MongoDB: %w", err))
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "date_key", Value: 1}, {Key: "index", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := coll.Indexes().CreateOne(ctx, index); err != nil {
		logger.OrDefault(log).WithError(err).Warn("Failed to create index")
	}

	e := NewExporter(&mongoCollection{coll: coll}, cfg, log)
	e.client = client
	return e, nil
}

// NewExporter creates an exporter writing to collection
func NewExporter(collection Collection, cfg config.MongoConfig, log logger.Logger) *Exporter {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &Exporter{
		collection: collection,
		batchSize:  batchSize,
		timeout:    cfg.Timeout,
		logger:     logger.OrDefault(log).WithField("component", "export"),
	}
}

// Export inserts entries for dateKey in batches. Inserts are ordered, so an
// interrupted export leaves a prefix of the list behind and the next call
// resumes after the documents already stored. It returns the number of
// documents inserted by this call.
func (e *Exporter) Export(ctx context.Context, entries parser.EntryList, dateKey string) (int, error) {
	existing, err := e.count(ctx, dateKey)
	if err != nil {
		return 0, errs.New(errs.ErrorTypeExport, "export", err)
	}
	if existing >= int64(len(entries)) {
		e.logger.InfoWithFields("entries already exported, skipping", map[string]interface{}{
			"date_key":  dateKey,
			"documents": existing,
		})
		return 0, nil
	}

	from := int(existing)
	if from > 0 {
		e.logger.InfoWithFields("resuming export", map[string]interface{}{
			"date_key": dateKey,
			"from":     from,
			"total":    len(entries),
		})
	}

	inserted := 0
	for start := from; start < len(entries); start += e.batchSize {
		end := start + e.batchSize
		if end > len(entries) {
			end = len(entries)
		}

		docs := BuildDocuments(entries[start:end], dateKey, start)
		if err := e.insert(ctx, docs); err != nil {
			return inserted, errs.New(errs.ErrorTypeExport, "export", fmt.Errorf("batch at %d: %w", start, err))
		}
		inserted += len(docs)

		e.logger.DebugWithFields("batch exported", map[string]interface{}{
			"date_key": dateKey,
			"from":     start,
			"to":       end,
		})
	}

	e.logger.InfoWithFields("entries exported", map[string]interface{}{
		"date_key":  dateKey,
		"documents": inserted,
	})
	return inserted, nil
}

func (e *Exporter) count(ctx context.Context, dateKey string) (int64, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	return e.collection.CountDocuments(ctx, bson.M{"date_key": dateKey})
}

func (e *Exporter) insert(ctx context.Context, docs []interface{}) error {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	return e.collection.InsertMany(ctx, docs)
}

func (e *Exporter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

// Close disconnects from MongoDB
func (e *Exporter) Close(ctx context.Context) error {
	if e.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return e.client.Disconnect(ctx)
}

type mongoCollection struct {
	coll *mongo.Collection
}

func (m *mongoCollection) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	return m.coll.CountDocuments(ctx, filter)
}

func (m *mongoCollection) InsertMany(ctx context.Context, documents []interface{}) error {
	_, err := m.coll.InsertMany(ctx, documents)
	return err
}
