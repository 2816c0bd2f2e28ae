package repository

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ariel-naviandana/chat-cs/internal/domain"
)

type mongoRepo struct {
	msgCol  *mongo.Collection
	chatCol *mongo.Collection
}

// NewMongoRepo builds the repository over a messages collection keyed by the
// transport-assigned message id and a small chats collection that only holds
// agent assignments; everything else about a chat is derived from messages.
func NewMongoRepo(msgCol, chatCol *mongo.Collection) MessageRepository {
	return &mongoRepo{msgCol: msgCol, chatCol: chatCol}
}

func (r *mongoRepo) SaveMessage(ctx context.Context, m *domain.Message) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.msgCol.ReplaceOne(ctx, bson.M{"_id": m.ID}, m, opts)
	return err
}

func (r *mongoRepo) GetMessagesByChat(ctx context.Context, chatID string, limit, offset int64) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetSkip(offset).
		SetLimit(limit)
	cur, err := r.msgCol.Find(ctx, bson.M{"chat_id": chatID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []domain.Message
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatus moves a message forward along the status machine. The filter
// only matches documents whose current status may legally precede the new
// one, so replayed receipts and out-of-order updates are silent no-ops.
func (r *mongoRepo) UpdateStatus(ctx context.Context, messageID string, status domain.Status) error {
	prior := domain.PriorStatuses(status)
	if len(prior) == 0 {
		return nil
	}
	_, err := r.msgCol.UpdateOne(ctx,
		bson.M{"_id": messageID, "status": bson.M{"$in": prior}},
		bson.M{"$set": bson.M{"status": status}},
	)
	return err
}

func (r *mongoRepo) SetPinned(ctx context.Context, messageID string, pinned bool) error {
	_, err := r.msgCol.UpdateOne(ctx,
		bson.M{"_id": messageID},
		bson.M{"$set": bson.M{"is_pinned": pinned}},
	)
	return err
}

func (r *mongoRepo) MarkChatRead(ctx context.Context, chatID string) error {
	_, err := r.msgCol.UpdateMany(ctx,
		bson.M{"chat_id": chatID, "from_me": false, "status": bson.M{"$ne": domain.StatusRead}},
		bson.M{"$set": bson.M{"status": domain.StatusRead}},
	)
	return err
}

func (r *mongoRepo) AssignChat(ctx context.Context, chatID, agentID string) error {
	opts := options.Update().SetUpsert(true)
	_, err := r.chatCol.UpdateOne(ctx,
		bson.M{"_id": chatID},
		bson.M{"$set": bson.M{"assigned_agent": agentID}},
		opts,
	)
	return err
}

func (r *mongoRepo) GetChats(ctx context.Context) ([]domain.Chat, error) {
	ids, err := r.msgCol.Distinct(ctx, "chat_id", bson.M{})
	if err != nil {
		return nil, err
	}

	assignments, err := r.loadAssignments(ctx)
	if err != nil {
		return nil, err
	}

	chats := make([]domain.Chat, 0, len(ids))
	for _, v := range ids {
		chatID, ok := v.(string)
		if !ok || chatID == "" {
			continue
		}

		var last domain.Message
		opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})
		if err := r.msgCol.FindOne(ctx, bson.M{"chat_id": chatID}, opts).Decode(&last); err != nil {
			if err == mongo.ErrNoDocuments {
				continue
			}
			return nil, err
		}

		unread, err := r.msgCol.CountDocuments(ctx, bson.M{
			"chat_id": chatID,
			"from_me": false,
			"status":  bson.M{"$ne": domain.StatusRead},
		})
		if err != nil {
			return nil, err
		}

		chats = append(chats, domain.Chat{
			ID:            chatID,
			IsGroup:       strings.HasSuffix(chatID, "@g.us"),
			Participants:  []string{},
			AssignedAgent: assignments[chatID],
			LastMessage:   &last,
			UnreadCount:   unread,
		})
	}
	return chats, nil
}

func (r *mongoRepo) loadAssignments(ctx context.Context) (map[string]string, error) {
	cur, err := r.chatCol.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[string]string)
	for cur.Next(ctx) {
		var doc struct {
			ID            string `bson:"_id"`
			AssignedAgent string `bson:"assigned_agent"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out[doc.ID] = doc.AssignedAgent
	}
	return out, cur.Err()
}
