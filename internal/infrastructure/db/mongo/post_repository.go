package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/socialfeed/feed-api/internal/core/domain"
)

const collectionPosts = "posts"

// PostRepository implements ports.PostRepository on the posts collection.
// Reads join the creator's name from the users collection.
type PostRepository struct {
	col *mongo.Collection
}

func NewPostRepository(db *mongo.Database) *PostRepository {
	return &PostRepository{col: db.Collection(collectionPosts)}
}

type postDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	Content   string             `bson:"content"`
	ImageURL  string             `bson:"imageUrl"`
	Creator   primitive.ObjectID `bson:"creator"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`

	// Filled by the creator lookup stages only.
	CreatorName string `bson:"creatorName,omitempty"`
}

func (d *postDocument) toDomain() *domain.Post {
	return &domain.Post{
		ID:        d.ID.Hex(),
		Title:     d.Title,
		Content:   d.Content,
		ImageURL:  d.ImageURL,
		Creator:   domain.Creator{ID: d.Creator.Hex(), Name: d.CreatorName},
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// populateCreator adds creatorName from the referenced user document.
var populateCreator = mongo.Pipeline{
	{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: collectionUsers},
		{Key: "localField", Value: "creator"},
		{Key: "foreignField", Value: "_id"},
		{Key: "as", Value: "creatorDoc"},
	}}},
	{{Key: "$addFields", Value: bson.D{
		{Key: "creatorName", Value: bson.D{{Key: "$arrayElemAt", Value: bson.A{"$creatorDoc.name", 0}}}},
	}}},
	{{Key: "$project", Value: bson.D{{Key: "creatorDoc", Value: 0}}}},
}

func (r *PostRepository) Create(ctx context.Context, post *domain.Post) error {
	creator, err := primitive.ObjectIDFromHex(post.Creator.ID)
	if err != nil {
		return fmt.Errorf("insert post: invalid creator id %q", post.Creator.ID)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC()
	doc := postDocument{
		Title:     post.Title,
		Content:   post.Content,
		ImageURL:  post.ImageURL,
		Creator:   creator,
		CreatedAt: now,
		UpdatedAt: now,
	}

	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("insert post: unexpected id type %T", res.InsertedID)
	}

	post.ID = oid.Hex()
	post.CreatedAt = now
	post.UpdatedAt = now
	return nil
}

func (r *PostRepository) FindByID(ctx context.Context, id string) (*domain.Post, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrPostNotFound
	}

	pipeline := append(mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "_id", Value: oid}}}},
	}, populateCreator...)

	posts, err := r.aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, domain.ErrPostNotFound
	}
	return posts[0], nil
}

func (r *PostRepository) List(ctx context.Context, skip, limit int) ([]*domain.Post, int64, error) {
	countCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	total, err := r.col.CountDocuments(countCtx, bson.D{})
	if err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	pipeline := append(mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$skip", Value: int64(skip)}},
		{{Key: "$limit", Value: int64(limit)}},
	}, populateCreator...)

	posts, err := r.aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *PostRepository) Update(ctx context.Context, post *domain.Post) error {
	oid, err := primitive.ObjectIDFromHex(post.ID)
	if err != nil {
		return domain.ErrPostNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC()
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{
			"title":     post.Title,
			"content":   post.Content,
			"imageUrl":  post.ImageURL,
			"updatedAt": now,
		},
	})
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrPostNotFound
	}
	post.UpdatedAt = now
	return nil
}

func (r *PostRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrPostNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

func (r *PostRepository) aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]*domain.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate posts: %w", err)
	}

	var docs []postDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}

	posts := make([]*domain.Post, 0, len(docs))
	for i := range docs {
		posts = append(posts, docs[i].toDomain())
	}
	return posts, nil
}

// EnsureIndexes creates the indexes backing the feed ordering and creator lookups.
func (r *PostRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "creator", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
