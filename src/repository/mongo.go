package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Backend-PollSurvey/src/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names, one per entity.
const (
	UsersCollection           = "users"
	PollsCollection           = "polls"
	PollResponsesCollection   = "pollResponses"
	SurveysCollection         = "surveys"
	SurveyResponsesCollection = "surveyResponses"
)

var newestFirst = bson.D{{Key: "createdAt", Value: -1}}

// NewMongoStore wires every repository to its collection in db.
// useTransactions requires a replica set or sharded cluster.
func NewMongoStore(client *mongo.Client, db *mongo.Database, useTransactions bool) *Store {
	return &Store{
		Users:           &mongoUsers{coll: db.Collection(UsersCollection)},
		Polls:           &mongoPolls{coll: db.Collection(PollsCollection)},
		PollResponses:   &mongoPollResponses{coll: db.Collection(PollResponsesCollection)},
		Surveys:         &mongoSurveys{coll: db.Collection(SurveysCollection)},
		SurveyResponses: &mongoSurveyResponses{coll: db.Collection(SurveyResponsesCollection)},
		Tx:              &mongoTx{client: client, enabled: useTransactions},
	}
}

// EnsureIndexes สร้าง unique index ที่ ledger ใช้กันโหวตซ้ำ
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		PollsCollection: {
			{Keys: bson.D{{Key: "createdBy", Value: 1}, {Key: "isActive", Value: 1}}},
			{Keys: bson.D{{Key: "isPublic", Value: 1}}},
		},
		PollResponsesCollection: {
			{Keys: bson.D{{Key: "pollId", Value: 1}, {Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "userId", Value: 1}}},
		},
		SurveysCollection: {
			{Keys: bson.D{{Key: "createdBy", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		SurveyResponsesCollection: {
			{Keys: bson.D{{Key: "surveyId", Value: 1}, {Key: "respondentEmail", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "surveyId", Value: 1}, {Key: "submittedAt", Value: -1}}},
		},
	}
	for name, idx := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	return err
}

// --- transactions ---

type mongoTx struct {
	client  *mongo.Client
	enabled bool
}

func (t *mongoTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !t.enabled || t.client == nil {
		return fn(ctx)
	}
	session, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// --- users ---

type mongoUsers struct{ coll *mongo.Collection }

func (r *mongoUsers) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, user)
	return translate(err)
}

func (r *mongoUsers) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *mongoUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *mongoUsers) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	users := []models.User{}
	if len(ids) == 0 {
		return users, nil
	}
	opts := options.Find().SetProjection(bson.M{"password": 0})
	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *mongoUsers) UpdateName(ctx context.Context, id primitive.ObjectID, name string) (*models.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"name": name, "updatedAt": time.Now()}}
	var user models.User
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// --- polls ---

type mongoPolls struct{ coll *mongo.Collection }

func (r *mongoPolls) Create(ctx context.Context, poll *models.Poll) error {
	if poll.ID.IsZero() {
		poll.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, poll)
	return translate(err)
}

func (r *mongoPolls) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Poll, error) {
	var poll models.Poll
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&poll); err != nil {
		return nil, translate(err)
	}
	return &poll, nil
}

func pollFilterToBSON(f PollFilter) bson.M {
	filter := bson.M{}
	if !f.CreatedBy.IsZero() {
		filter["createdBy"] = f.CreatedBy
	}
	if f.PublicOnly {
		filter["isPublic"] = true
	}
	if !f.VisibleTo.IsZero() {
		filter["$or"] = bson.A{
			bson.M{"isPublic": true},
			bson.M{"createdBy": f.VisibleTo},
		}
	}
	if f.ActiveOnly {
		filter["isActive"] = true
	}
	return filter
}

func (r *mongoPolls) Find(ctx context.Context, filter PollFilter) ([]models.Poll, error) {
	cursor, err := r.coll.Find(ctx, pollFilterToBSON(filter), options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	polls := []models.Poll{}
	if err := cursor.All(ctx, &polls); err != nil {
		return nil, err
	}
	return polls, nil
}

func (r *mongoPolls) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"isActive": active, "updatedAt": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoPolls) IncrementVotes(ctx context.Context, id primitive.ObjectID, deltas map[int]int) error {
	if len(deltas) == 0 {
		return nil
	}
	inc := bson.M{}
	for index, delta := range deltas {
		inc[fmt.Sprintf("options.%d.voteCount", index)] = delta
	}
	update := bson.M{"$inc": inc, "$set": bson.M{"updatedAt": time.Now()}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoPolls) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// --- poll responses ---

type mongoPollResponses struct{ coll *mongo.Collection }

func (r *mongoPollResponses) Find(ctx context.Context, pollID, userID primitive.ObjectID) (*models.PollResponse, error) {
	var resp models.PollResponse
	if err := r.coll.FindOne(ctx, bson.M{"pollId": pollID, "userId": userID}).Decode(&resp); err != nil {
		return nil, translate(err)
	}
	return &resp, nil
}

func (r *mongoPollResponses) Insert(ctx context.Context, response *models.PollResponse) error {
	if response.ID.IsZero() {
		response.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, response)
	return translate(err)
}

func (r *mongoPollResponses) UpdateOption(ctx context.Context, pollID, userID primitive.ObjectID, from, to int) (bool, error) {
	filter := bson.M{"pollId": pollID, "userId": userID, "optionIndex": from}
	update := bson.M{"$set": bson.M{"optionIndex": to, "updatedAt": time.Now()}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *mongoPollResponses) DeleteIfOption(ctx context.Context, pollID, userID primitive.ObjectID, optionIndex int) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"pollId": pollID, "userId": userID, "optionIndex": optionIndex})
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}

func (r *mongoPollResponses) list(ctx context.Context, filter bson.M) ([]models.PollResponse, error) {
	opts := options.Find().SetSort(bson.D{{Key: "respondedAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []models.PollResponse{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mongoPollResponses) ListByPoll(ctx context.Context, pollID primitive.ObjectID) ([]models.PollResponse, error) {
	return r.list(ctx, bson.M{"pollId": pollID})
}

func (r *mongoPollResponses) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.PollResponse, error) {
	return r.list(ctx, bson.M{"userId": userID})
}

func (r *mongoPollResponses) CountByPoll(ctx context.Context, pollID primitive.ObjectID) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"pollId": pollID})
}

func (r *mongoPollResponses) DeleteByPoll(ctx context.Context, pollID primitive.ObjectID) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"pollId": pollID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// --- surveys ---

type mongoSurveys struct{ coll *mongo.Collection }

func (r *mongoSurveys) Create(ctx context.Context, survey *models.Survey) error {
	if survey.ID.IsZero() {
		survey.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, survey)
	return translate(err)
}

func (r *mongoSurveys) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Survey, error) {
	var survey models.Survey
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&survey); err != nil {
		return nil, translate(err)
	}
	return &survey, nil
}

func (r *mongoSurveys) Find(ctx context.Context, f SurveyFilter) ([]models.Survey, error) {
	filter := bson.M{}
	if !f.CreatedBy.IsZero() {
		filter["createdBy"] = f.CreatedBy
	}
	if f.ActiveOnly {
		filter["isActive"] = true
	}
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	surveys := []models.Survey{}
	if err := cursor.All(ctx, &surveys); err != nil {
		return nil, err
	}
	return surveys, nil
}

func surveyUpdateToBSON(u SurveyUpdate) bson.M {
	set := bson.M{"updatedAt": time.Now()}
	if u.Title != nil {
		set["title"] = *u.Title
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.IsPrivate != nil {
		set["isPrivate"] = *u.IsPrivate
	}
	if u.AllowedEmails != nil {
		set["allowedEmails"] = u.AllowedEmails
	}
	if u.Questions != nil {
		set["questions"] = u.Questions
	}
	if u.BgColor != nil {
		set["bgColor"] = *u.BgColor
	}
	if u.IsActive != nil {
		set["isActive"] = *u.IsActive
	}
	return bson.M{"$set": set}
}

func (r *mongoSurveys) Update(ctx context.Context, id primitive.ObjectID, update SurveyUpdate) (*models.Survey, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var survey models.Survey
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, surveyUpdateToBSON(update), opts).Decode(&survey); err != nil {
		return nil, translate(err)
	}
	return &survey, nil
}

func (r *mongoSurveys) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// --- survey responses ---

type mongoSurveyResponses struct{ coll *mongo.Collection }

func (r *mongoSurveyResponses) Insert(ctx context.Context, response *models.SurveyResponse) error {
	if response.ID.IsZero() {
		response.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, response)
	return translate(err)
}

func (r *mongoSurveyResponses) FindByID(ctx context.Context, id primitive.ObjectID) (*models.SurveyResponse, error) {
	var resp models.SurveyResponse
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&resp); err != nil {
		return nil, translate(err)
	}
	return &resp, nil
}

func (r *mongoSurveyResponses) FindByRespondent(ctx context.Context, surveyID primitive.ObjectID, email string) (*models.SurveyResponse, error) {
	var resp models.SurveyResponse
	filter := bson.M{"surveyId": surveyID, "respondentEmail": email}
	if err := r.coll.FindOne(ctx, filter).Decode(&resp); err != nil {
		return nil, translate(err)
	}
	return &resp, nil
}

func (r *mongoSurveyResponses) list(ctx context.Context, filter bson.M) ([]models.SurveyResponse, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []models.SurveyResponse{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mongoSurveyResponses) ListBySurvey(ctx context.Context, surveyID primitive.ObjectID) ([]models.SurveyResponse, error) {
	return r.list(ctx, bson.M{"surveyId": surveyID})
}

func (r *mongoSurveyResponses) ListAll(ctx context.Context) ([]models.SurveyResponse, error) {
	return r.list(ctx, bson.M{})
}

func (r *mongoSurveyResponses) CountBySurvey(ctx context.Context, surveyID primitive.ObjectID) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"surveyId": surveyID})
}

func (r *mongoSurveyResponses) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoSurveyResponses) DeleteBySurvey(ctx context.Context, surveyID primitive.ObjectID) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"surveyId": surveyID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
