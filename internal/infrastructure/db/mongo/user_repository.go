package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/socialfeed/feed-api/internal/core/domain"
)

const collectionUsers = "users"

// UserRepository implements ports.UserRepository on the users collection.
type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(collectionUsers)}
}

type userDocument struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty"`
	Email     string               `bson:"email"`
	Password  string               `bson:"password"`
	Name      string               `bson:"name"`
	Status    string               `bson:"status"`
	Posts     []primitive.ObjectID `bson:"posts"`
	CreatedAt time.Time            `bson:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt"`
}

func (d *userDocument) toDomain() *domain.User {
	posts := make([]string, 0, len(d.Posts))
	for _, id := range d.Posts {
		posts = append(posts, id.Hex())
	}
	return &domain.User{
		ID:             d.ID.Hex(),
		Email:          d.Email,
		Name:           d.Name,
		PasswordDigest: d.Password,
		Status:         d.Status,
		Posts:          posts,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := userDocument{
		Email:     user.Email,
		Password:  user.PasswordDigest,
		Name:      user.Name,
		Status:    user.Status,
		Posts:     []primitive.ObjectID{},
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}

	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("insert user: unexpected id type %T", res.InsertedID)
	}
	doc.ID = oid
	return doc.toDomain(), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc userDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) UpdateStatus(ctx context.Context, id, status string) error {
	return r.updateByID(ctx, id, bson.M{
		"$set": bson.M{"status": status, "updatedAt": time.Now().UTC()},
	})
}

func (r *UserRepository) AddPost(ctx context.Context, userID, postID string) error {
	pid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return fmt.Errorf("add post: invalid post id %q", postID)
	}
	return r.updateByID(ctx, userID, bson.M{
		"$push": bson.M{"posts": pid},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
}

func (r *UserRepository) RemovePost(ctx context.Context, userID, postID string) error {
	pid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return fmt.Errorf("remove post: invalid post id %q", postID)
	}
	return r.updateByID(ctx, userID, bson.M{
		"$pull": bson.M{"posts": pid},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
}

func (r *UserRepository) updateByID(ctx context.Context, id string, update bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// EnsureIndexes creates the unique email index.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
