package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taskify/taskify/internal/types"
)

const (
	usersCollection    = "users"
	groupsCollection   = "groups"
	messagesCollection = "messages"
	tasksCollection    = "tasks"
)

// IsDuplicateKey reports whether err is a unique-index violation,
// e.g. a signup with an already registered email.
func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

type MongoTaskifyRepository struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoTaskifyRepository(ctx context.Context, uri, dbName string) (*MongoTaskifyRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	repo := &MongoTaskifyRepository{
		client: client,
		db:     client.Database(dbName),
	}

	if err := repo.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	return repo, nil
}

func (r *MongoTaskifyRepository) ensureIndexes(ctx context.Context) error {
	_, err := r.db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	_, err = r.db.Collection(messagesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "timestamp", Value: -1}},
	})
	if err != nil {
		return err
	}

	_, err = r.db.Collection(tasksCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "group_id", Value: 1}},
	})
	return err
}

func (r *MongoTaskifyRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *MongoTaskifyRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

// parseId converts a client-supplied id to an ObjectID. A malformed id
// cannot reference any document, so it is reported as not found.
func parseId(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, mongo.ErrNoDocuments
	}
	return oid, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *MongoTaskifyRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	user := User{
		Email:        normalizeEmail(params.Email),
		Name:         strings.TrimSpace(params.Name),
		PasswordHash: params.PasswordHash,
		Status:       types.StatusOffline,
		LastSeen:     time.Now().UTC(),
	}

	res, err := r.db.Collection(usersCollection).InsertOne(ctx, user)
	if err != nil {
		return User{}, err
	}

	user.Id = res.InsertedID.(primitive.ObjectID)
	return user, nil
}

func (r *MongoTaskifyRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := r.db.Collection(usersCollection).
		FindOne(ctx, bson.M{"email": normalizeEmail(email)}).
		Decode(&user)
	return user, err
}

func (r *MongoTaskifyRepository) UpdateUserStatus(ctx context.Context, email, status string, lastSeen time.Time) (User, error) {
	var user User
	err := r.db.Collection(usersCollection).FindOneAndUpdate(ctx,
		bson.M{"email": normalizeEmail(email)},
		bson.M{"$set": bson.M{"status": status, "last_seen": lastSeen}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	return user, err
}

func (r *MongoTaskifyRepository) UpdateUserProfile(ctx context.Context, params UpdateProfileParams) (User, error) {
	set := bson.M{}
	if params.Name != "" {
		set["name"] = strings.TrimSpace(params.Name)
	}
	if params.Avatar != "" {
		set["avatar"] = params.Avatar
	}

	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	} else {
		// nothing to change, still return the current document
		update["$set"] = bson.M{"email": normalizeEmail(params.Email)}
	}

	var user User
	err := r.db.Collection(usersCollection).FindOneAndUpdate(ctx,
		bson.M{"email": normalizeEmail(params.Email)},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	return user, err
}

func (r *MongoTaskifyRepository) CreateGroup(ctx context.Context, params CreateGroupParams) (Group, error) {
	group := Group{
		Name:      strings.TrimSpace(params.Name),
		Creator:   normalizeEmail(params.Creator),
		Members:   params.Members,
		CreatedAt: time.Now().UTC(),
	}

	res, err := r.db.Collection(groupsCollection).InsertOne(ctx, group)
	if err != nil {
		return Group{}, err
	}

	group.Id = res.InsertedID.(primitive.ObjectID)
	return group, nil
}

func (r *MongoTaskifyRepository) GetGroupById(ctx context.Context, groupId string) (Group, error) {
	oid, err := parseId(groupId)
	if err != nil {
		return Group{}, err
	}

	var group Group
	err = r.db.Collection(groupsCollection).FindOne(ctx, bson.M{"_id": oid}).Decode(&group)
	return group, err
}

func (r *MongoTaskifyRepository) ListGroupsByMember(ctx context.Context, email, status string) ([]Group, error) {
	filter := bson.M{
		"members": bson.M{"$elemMatch": bson.M{
			"email":  normalizeEmail(email),
			"status": status,
		}},
	}

	cur, err := r.db.Collection(groupsCollection).Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var groups []Group
	if err := cur.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *MongoTaskifyRepository) UpdateMemberStatus(ctx context.Context, groupId, email, status string) (Group, error) {
	oid, err := parseId(groupId)
	if err != nil {
		return Group{}, err
	}

	var group Group
	err = r.db.Collection(groupsCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "members.email": normalizeEmail(email)},
		bson.M{"$set": bson.M{"members.$.status": status}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&group)
	return group, err
}

func (r *MongoTaskifyRepository) AddMembers(ctx context.Context, groupId string, members []Member) (Group, error) {
	oid, err := parseId(groupId)
	if err != nil {
		return Group{}, err
	}

	var group Group
	err = r.db.Collection(groupsCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$push": bson.M{"members": bson.M{"$each": members}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&group)
	return group, err
}

func (r *MongoTaskifyRepository) RemoveMember(ctx context.Context, groupId, email string) (Group, error) {
	oid, err := parseId(groupId)
	if err != nil {
		return Group{}, err
	}

	var group Group
	err = r.db.Collection(groupsCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$pull": bson.M{"members": bson.M{"email": normalizeEmail(email)}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&group)
	return group, err
}

func (r *MongoTaskifyRepository) CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error) {
	oid, err := parseId(params.GroupId)
	if err != nil {
		return Message{}, err
	}

	msg := Message{
		GroupId:   oid,
		Sender:    normalizeEmail(params.Sender),
		Content:   params.Content,
		Timestamp: time.Now().UTC(),
	}

	res, err := r.db.Collection(messagesCollection).InsertOne(ctx, msg)
	if err != nil {
		return Message{}, err
	}

	msg.Id = res.InsertedID.(primitive.ObjectID)
	return msg, nil
}

// ListMessages returns up to limit messages for the group, newest first.
// A non-zero before bounds the window to strictly older messages.
func (r *MongoTaskifyRepository) ListMessages(ctx context.Context, groupId string, before time.Time, limit int) ([]Message, error) {
	oid, err := parseId(groupId)
	if err != nil {
		return nil, err
	}

	filter := bson.M{"group_id": oid}
	if !before.IsZero() {
		filter["timestamp"] = bson.M{"$lt": before}
	}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := r.db.Collection(messagesCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var messages []Message
	if err := cur.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *MongoTaskifyRepository) CreateTask(ctx context.Context, params CreateTaskParams) (Task, error) {
	oid, err := parseId(params.GroupId)
	if err != nil {
		return Task{}, err
	}

	now := time.Now().UTC()
	task := Task{
		GroupId:     oid,
		Title:       params.Title,
		Description: params.Description,
		DueDate:     params.DueDate,
		Priority:    params.Priority,
		AssignedTo:  params.AssignedTo,
		Status:      types.TaskTodo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	res, err := r.db.Collection(tasksCollection).InsertOne(ctx, task)
	if err != nil {
		return Task{}, err
	}

	task.Id = res.InsertedID.(primitive.ObjectID)
	return task, nil
}

func (r *MongoTaskifyRepository) GetTaskById(ctx context.Context, taskId string) (Task, error) {
	oid, err := parseId(taskId)
	if err != nil {
		return Task{}, err
	}

	var task Task
	err = r.db.Collection(tasksCollection).FindOne(ctx, bson.M{"_id": oid}).Decode(&task)
	return task, err
}

func (r *MongoTaskifyRepository) ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error) {
	query := bson.M{}
	if filter.GroupId != "" {
		oid, err := parseId(filter.GroupId)
		if err != nil {
			return nil, err
		}
		query["group_id"] = oid
	}
	if filter.AssignedTo != "" {
		query["assigned_to"] = normalizeEmail(filter.AssignedTo)
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	cur, err := r.db.Collection(tasksCollection).Find(ctx, query)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var tasks []Task
	if err := cur.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *MongoTaskifyRepository) UpdateTask(ctx context.Context, taskId string, update TaskUpdate) (Task, error) {
	oid, err := parseId(taskId)
	if err != nil {
		return Task{}, err
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	if update.Title != nil {
		set["title"] = *update.Title
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.DueDate != nil {
		set["due_date"] = *update.DueDate
	}
	if update.Priority != nil {
		set["priority"] = *update.Priority
	}
	if update.AssignedTo != nil {
		set["assigned_to"] = *update.AssignedTo
	}
	if update.Status != nil {
		set["status"] = *update.Status
	}

	var task Task
	err = r.db.Collection(tasksCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&task)
	return task, err
}

func (r *MongoTaskifyRepository) AddAssignees(ctx context.Context, taskId string, assignees []string) (Task, error) {
	oid, err := parseId(taskId)
	if err != nil {
		return Task{}, err
	}

	normalized := make([]string, len(assignees))
	for i, a := range assignees {
		normalized[i] = normalizeEmail(a)
	}

	var task Task
	err = r.db.Collection(tasksCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{
			"$addToSet": bson.M{"assigned_to": bson.M{"$each": normalized}},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&task)
	return task, err
}
