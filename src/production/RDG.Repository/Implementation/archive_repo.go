package implementation

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// archivedEvent is the raw inbound payload as stored in the archive. The
// payload is kept verbatim so malformed events are archived too.
type archivedEvent struct {
	Topic      string    `bson:"topic"`
	Payload    string    `bson:"payload"`
	ReceivedAt time.Time `bson:"received_at"`
}

type MongoEventArchive struct {
	coll *mongo.Collection
}

func NewMongoEventArchive(coll *mongo.Collection) *MongoEventArchive {
	return &MongoEventArchive{coll: coll}
}

func (a *MongoEventArchive) ArchiveEvent(ctx context.Context, topic string, payload []byte, receivedAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := a.coll.InsertOne(ctx, archivedEvent{
		Topic:      topic,
		Payload:    string(payload),
		ReceivedAt: receivedAt,
	})
	return err
}
