package mongodb

import (
	"context"
	"time"

	"account/config"
	"account/internal/domain/entity"
	domainerrors "account/internal/domain/errors"
	"account/internal/domain/repository"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	fieldID                  = "_id"
	fieldUsername            = "username"
	fieldEmail               = "email"
	fieldPhone               = "phone"
	fieldPasswordHash        = "password_hash"
	fieldProfileImageURL     = "profile_image_url"
	fieldVerified            = "verified"
	fieldVerificationToken   = "verification_token"
	fieldResetToken          = "reset_token"
	fieldResetTokenExpiresAt = "reset_token_expires_at"
)

// userDocument is the stored shape of a user. Empty tokens are omitted so the sparse indexes skip them.
type userDocument struct {
	ID                  bson.ObjectID `bson:"_id,omitempty"`
	Username            string        `bson:"username"`
	Email               string        `bson:"email"`
	Phone               string        `bson:"phone"`
	PasswordHash        string        `bson:"password_hash"`
	ProfileImageURL     string        `bson:"profile_image_url,omitempty"`
	JoinedAt            time.Time     `bson:"joined_at"`
	Verified            bool          `bson:"verified"`
	VerificationToken   string        `bson:"verification_token,omitempty"`
	ResetToken          string        `bson:"reset_token,omitempty"`
	ResetTokenExpiresAt *time.Time    `bson:"reset_token_expires_at,omitempty"`
}

type userRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewUserRepository returns a repository.UserRepository backed by the configured collection.
func NewUserRepository(client *mongo.Client, cfg *config.Config) repository.UserRepository {
	return &userRepository{
		coll: client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection),
		now:  time.Now,
	}
}

// FindByID retrieves a single user by their ObjectID hex string.
func (repo *userRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	return repo.findOne(ctx, bson.D{{Key: fieldID, Value: oid}}, "failed to find user by id")
}

// FindByField retrieves the user whose field equals value.
func (repo *userRepository) FindByField(ctx context.Context, field entity.UserField, value string) (*entity.User, error) {
	if !field.IsValid() {
		return nil, errors.Wrapf(repository.ErrUnsupportedField, "field %q", field)
	}

	return repo.findOne(ctx, bson.D{{Key: field.String(), Value: value}}, "failed to find user by "+field.String())
}

// FindByOpenResetToken retrieves the user holding token while it is unexpired.
func (repo *userRepository) FindByOpenResetToken(ctx context.Context, token string, now time.Time) (*entity.User, error) {
	return repo.findOne(ctx, openResetTokenFilter(token, now), "failed to find user by reset token")
}

// Create inserts the user; the unique indexes reject duplicates.
func (repo *userRepository) Create(ctx context.Context, user *entity.User) error {
	doc := fromUserDomain(user)
	doc.ID = bson.NewObjectID()
	if doc.JoinedAt.IsZero() {
		doc.JoinedAt = repo.now().UTC()
	}

	if _, err := repo.coll.InsertOne(ctx, doc); err != nil {
		return mapWriteError(err, "failed to create user")
	}

	user.ID = doc.ID.Hex()
	user.JoinedAt = doc.JoinedAt

	return nil
}

// UpdateByID applies the patch with $set/$unset and returns the updated document.
func (repo *userRepository) UpdateByID(ctx context.Context, id string, patch *entity.UserPatch) (*entity.User, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	filter := bson.D{{Key: fieldID, Value: oid}}

	update := toUpdateDocument(patch)
	if len(update) == 0 {
		return repo.findOne(ctx, filter, "failed to find user by id")
	}

	var doc userDocument
	err = repo.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrUserNotFound
		}

		return nil, mapWriteError(err, "failed to update user")
	}

	return toUserDomain(&doc), nil
}

// DeleteByID removes the user document.
func (repo *userRepository) DeleteByID(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}

	result, err := repo.coll.DeleteOne(ctx, bson.D{{Key: fieldID, Value: oid}})
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to delete user")
	}
	if result.DeletedCount == 0 {
		return repository.ErrUserNotFound
	}

	return nil
}

func (repo *userRepository) findOne(ctx context.Context, filter bson.D, action string) (*entity.User, error) {
	var doc userDocument
	if err := repo.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrUserNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, action)
	}

	return toUserDomain(&doc), nil
}

// mapWriteError turns unique index violations into a conflict and anything else into a database error.
func mapWriteError(err error, action string) error {
	if mongo.IsDuplicateKeyError(err) {
		return domainerrors.ErrUserAlreadyExists.WrapMessage("username, email or phone already exists")
	}

	return domainerrors.NewDatabaseExecuteError(err, action)
}

func parseID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.NilObjectID, repository.ErrInvalidUserID
	}

	return oid, nil
}

func openResetTokenFilter(token string, now time.Time) bson.D {
	return bson.D{
		{Key: fieldResetToken, Value: token},
		{Key: fieldResetTokenExpiresAt, Value: bson.D{{Key: "$gt", Value: now}}},
	}
}

// toUpdateDocument builds the $set/$unset update. Cleared tokens are unset.
func toUpdateDocument(patch *entity.UserPatch) bson.D {
	if patch == nil {
		return nil
	}

	set := bson.D{}
	unset := bson.D{}

	setString := func(key string, v *string) {
		if v != nil {
			set = append(set, bson.E{Key: key, Value: *v})
		}
	}
	setString(fieldUsername, patch.Username)
	setString(fieldEmail, patch.Email)
	setString(fieldPhone, patch.Phone)
	setString(fieldProfileImageURL, patch.ProfileImageURL)
	setString(fieldPasswordHash, patch.PasswordHash)

	if patch.Verified != nil {
		set = append(set, bson.E{Key: fieldVerified, Value: *patch.Verified})
	}

	if patch.VerificationToken != nil {
		if *patch.VerificationToken == "" {
			unset = append(unset, bson.E{Key: fieldVerificationToken, Value: ""})
		} else {
			set = append(set, bson.E{Key: fieldVerificationToken, Value: *patch.VerificationToken})
		}
	}

	if patch.ResetToken != nil {
		if *patch.ResetToken == "" {
			unset = append(unset,
				bson.E{Key: fieldResetToken, Value: ""},
				bson.E{Key: fieldResetTokenExpiresAt, Value: ""},
			)
		} else {
			set = append(set, bson.E{Key: fieldResetToken, Value: *patch.ResetToken})
			if patch.ResetTokenExpiresAt != nil {
				set = append(set, bson.E{Key: fieldResetTokenExpiresAt, Value: patch.ResetTokenExpiresAt.UTC()})
			}
		}
	}

	update := bson.D{}
	if len(set) > 0 {
		update = append(update, bson.E{Key: "$set", Value: set})
	}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}

	return update
}

func toUserDomain(doc *userDocument) *entity.User {
	if doc == nil {
		return nil
	}

	return &entity.User{
		ID:                  doc.ID.Hex(),
		Username:            doc.Username,
		Email:               doc.Email,
		Phone:               doc.Phone,
		PasswordHash:        doc.PasswordHash,
		ProfileImageURL:     doc.ProfileImageURL,
		JoinedAt:            doc.JoinedAt,
		Verified:            doc.Verified,
		VerificationToken:   doc.VerificationToken,
		ResetToken:          doc.ResetToken,
		ResetTokenExpiresAt: doc.ResetTokenExpiresAt,
	}
}

func fromUserDomain(user *entity.User) *userDocument {
	if user == nil {
		return nil
	}

	return &userDocument{
		Username:            user.Username,
		Email:               user.Email,
		Phone:               user.Phone,
		PasswordHash:        user.PasswordHash,
		ProfileImageURL:     user.ProfileImageURL,
		JoinedAt:            user.JoinedAt,
		Verified:            user.Verified,
		VerificationToken:   user.VerificationToken,
		ResetToken:          user.ResetToken,
		ResetTokenExpiresAt: user.ResetTokenExpiresAt,
	}
}
