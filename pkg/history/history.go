// Package history keeps a ledger of pipeline runs in MongoDB.
package history

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BartekS5/npiload/pkg/database"
	"github.com/BartekS5/npiload/pkg/models"
)

// Recorder persists a finished run.
type Recorder interface {
	Record(ctx context.Context, report *models.RunReport) error
}

// Nop drops every report.
type Nop struct{}

func (Nop) Record(context.Context, *models.RunReport) error { return nil }

// MongoRecorder upserts one document per run, keyed by run id.
type MongoRecorder struct {
	Collection *mongo.Collection
	Timeout    time.Duration
}

func NewMongoRecorder(client *mongo.Client, database, collection string) *MongoRecorder {
	return &MongoRecorder{
		Collection: client.Database(database).Collection(collection),
		Timeout:    10 * time.Second,
	}
}

func (r *MongoRecorder) Record(ctx context.Context, report *models.RunReport) error {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	filter := bson.M{"runId": report.RunID}
	update := bson.M{"$set": report}
	_, err := r.Collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", report.RunID, err)
	}
	return nil
}

// Last returns the most recent run for a dataset, or nil when there is none.
func (r *MongoRecorder) Last(ctx context.Context, dataset string) (*models.RunReport, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "startedAt", Value: -1}})
	var report models.RunReport
	err := r.Collection.FindOne(ctx, bson.M{"dataset": dataset}, opts).Decode(&report)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read last run for %s: %w", dataset, err)
	}
	return &report, nil
}

// URIRecorder connects to MongoDB only when a run is recorded, so a run that
// fails before reporting never opens the connection.
type URIRecorder struct {
	URI        string
	Database   string
	Collection string
}

func (r *URIRecorder) Record(ctx context.Context, report *models.RunReport) error {
	client, err := database.ConnectMongo(ctx, r.URI)
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}()
	return NewMongoRecorder(client, r.Database, r.Collection).Record(ctx, report)
}
