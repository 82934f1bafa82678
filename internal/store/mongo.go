package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pdf-rag-backend/models"
)

// MongoBackend stores one mongo document per ingested Document, passages
// embedded. Connections are scoped per operation: dial, run, disconnect on
// every exit path. No process-wide client handle is held.
type MongoBackend struct {
	uri        string
	database   string
	collection string
}

func NewMongoBackend(uri, database, collection string) *MongoBackend {
	return &MongoBackend{uri: uri, database: database, collection: collection}
}

func (m *MongoBackend) Name() string { return "mongodb" }

// withCollection dials with bounded connect/server-selection timeouts,
// hands the collection to fn, and disconnects unconditionally.
func (m *MongoBackend) withCollection(ctx context.Context, fn func(ctx context.Context, coll *mongo.Collection) error) error {
	opts := options.Client().
		ApplyURI(m.uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}()

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return fn(ctx, client.Database(m.database).Collection(m.collection))
}

func (m *MongoBackend) Put(ctx context.Context, doc *models.Document, policy IngestPolicy) error {
	return m.withCollection(ctx, func(ctx context.Context, coll *mongo.Collection) error {
		if policy == PolicyReplace {
			if _, err := coll.DeleteMany(ctx, bson.M{}); err != nil {
				return fmt.Errorf("failed to clear collection: %w", err)
			}
		}
		if _, err := coll.InsertOne(ctx, doc); err != nil {
			return fmt.Errorf("failed to insert document: %w", err)
		}
		return nil
	})
}

func (m *MongoBackend) Get(ctx context.Context, documentID string) (*models.Document, error) {
	var doc models.Document
	err := m.withCollection(ctx, func(ctx context.Context, coll *mongo.Collection) error {
		err := coll.FindOne(ctx, bson.M{"document_id": documentID}).Decode(&doc)
		if err == mongo.ErrNoDocuments {
			return ErrDocumentNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (m *MongoBackend) List(ctx context.Context) ([]models.DocumentSummary, error) {
	var summaries []models.DocumentSummary
	err := m.withCollection(ctx, func(ctx context.Context, coll *mongo.Collection) error {
		projection := bson.M{"document_id": 1, "filename": 1, "total_passages": 1, "created_at": 1}
		cursor, err := coll.Find(ctx, bson.M{}, options.Find().SetProjection(projection))
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)

		if err := cursor.All(ctx, &summaries); err != nil {
			return err
		}
		for i := range summaries {
			summaries[i].Source = m.Name()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

func (m *MongoBackend) AllPassages(ctx context.Context) ([]models.CorpusPassage, error) {
	var docs []models.Document
	err := m.withCollection(ctx, func(ctx context.Context, coll *mongo.Collection) error {
		cursor, err := coll.Find(ctx, bson.M{})
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		return cursor.All(ctx, &docs)
	})
	if err != nil {
		return nil, err
	}
	return flattenPassages(docs), nil
}

func (m *MongoBackend) Delete(ctx context.Context, documentID string) error {
	return m.withCollection(ctx, func(ctx context.Context, coll *mongo.Collection) error {
		res, err := coll.DeleteMany(ctx, bson.M{"document_id": documentID})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return ErrDocumentNotFound
		}
		return nil
	})
}

func (m *MongoBackend) Count(ctx context.Context) (int64, error) {
	var count int64
	err := m.withCollection(ctx, func(ctx context.Context, coll *mongo.Collection) error {
		var err error
		count, err = coll.CountDocuments(ctx, bson.M{})
		return err
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
