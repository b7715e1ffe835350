package form

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matapang/platform/libs/components/schema"
	"github.com/matapang/platform/libs/shared/database"
)

const formsCollection = "forms"

type formDocument struct {
	ID           string                 `bson:"_id"`
	FormID       string                 `bson:"formId"`
	FormName     string                 `bson:"formName"`
	Description  string                 `bson:"description,omitempty"`
	Sections     []schema.SectionDoc    `bson:"sections"`
	Fields       []schema.FieldDoc      `bson:"fields"`
	ApprovalFlow []schema.ApprovalLevel `bson:"approvalFlow"`
	Status       string                 `bson:"status"`
	IsTemplate   bool                   `bson:"isTemplate"`
	IsActive     bool                   `bson:"isActive"`
	CreatedAt    time.Time              `bson:"createdAt"`
	UpdatedAt    time.Time              `bson:"updatedAt"`
}

func toDocument(entity *Form) (formDocument, error) {
	doc, err := entity.Schema()
	if err != nil {
		return formDocument{}, err
	}
	out := formDocument{
		ID:           entity.ID,
		FormID:       doc.FormID,
		FormName:     doc.FormName,
		Description:  doc.Description,
		Sections:     make([]schema.SectionDoc, 0, len(doc.Sections)),
		Fields:       make([]schema.FieldDoc, 0, len(doc.Fields)),
		ApprovalFlow: doc.ApprovalFlow,
		Status:       string(doc.Status),
		IsTemplate:   doc.IsTemplate,
		IsActive:     doc.IsActive,
		CreatedAt:    entity.CreatedAt,
		UpdatedAt:    entity.UpdatedAt,
	}
	for _, s := range doc.Sections {
		out.Sections = append(out.Sections, s.Doc())
	}
	for _, f := range doc.Fields {
		out.Fields = append(out.Fields, f.Doc())
	}
	return out, nil
}

func fromDocument(d formDocument) (*Form, error) {
	doc := schema.Form{
		FormID:       d.FormID,
		FormName:     d.FormName,
		Description:  d.Description,
		ApprovalFlow: d.ApprovalFlow,
		Status:       schema.FormStatus(d.Status),
		IsTemplate:   d.IsTemplate,
		IsActive:     d.IsActive,
	}
	for _, sd := range d.Sections {
		s, err := sd.Section()
		if err != nil {
			return nil, err
		}
		doc.Sections = append(doc.Sections, s)
	}
	fields, err := schema.FieldsFromDocs(d.Fields)
	if err != nil {
		return nil, err
	}
	doc.Fields = fields

	entity, err := FromSchema(doc)
	if err != nil {
		return nil, err
	}
	entity.ID = d.ID
	entity.CreatedAt = d.CreatedAt
	entity.UpdatedAt = d.UpdatedAt
	return entity, nil
}

// MongoRepository stores forms as documents.
type MongoRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoRepository uses the forms collection of db.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(formsCollection), now: time.Now}
}

// EnsureIndexes creates the lookup indexes.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "formId", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "isTemplate", Value: 1}}},
	})
	return err
}

func listFilter(filter Filter) bson.M {
	query := bson.M{}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		query["$or"] = bson.A{bson.M{"formName": pattern}, bson.M{"formId": pattern}}
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Template != nil {
		query["isTemplate"] = *filter.Template
	}
	return query
}

// List returns forms, newest first.
func (r *MongoRepository) List(ctx context.Context, filter Filter) ([]Form, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, listFilter(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []formDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]Form, 0, len(docs))
	for _, d := range docs {
		entity, err := fromDocument(d)
		if err != nil {
			return nil, err
		}
		out = append(out, *entity)
	}
	return out, nil
}

// Create inserts a new form.
func (r *MongoRepository) Create(ctx context.Context, entity *Form) error {
	if entity.ID == "" {
		entity.ID = uuid.NewString()
	}
	now := r.now().UTC()
	entity.CreatedAt, entity.UpdatedAt = now, now

	doc, err := toDocument(entity)
	if err != nil {
		return err
	}
	_, err = r.coll.InsertOne(ctx, doc)
	return database.Translate(err)
}

// Find returns a form by ID.
func (r *MongoRepository) Find(ctx context.Context, id string) (*Form, error) {
	return r.findOne(ctx, bson.M{"_id": id}, nil)
}

// FindByFormID returns the most recent form carrying formID.
func (r *MongoRepository) FindByFormID(ctx context.Context, formID string) (*Form, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return r.findOne(ctx, bson.M{"formId": formID}, opts)
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*Form, error) {
	var doc formDocument
	var err error
	if opts != nil {
		err = r.coll.FindOne(ctx, filter, opts).Decode(&doc)
	} else {
		err = r.coll.FindOne(ctx, filter).Decode(&doc)
	}
	if err != nil {
		return nil, database.Translate(err)
	}
	return fromDocument(doc)
}

// Replace overwrites an existing form document.
func (r *MongoRepository) Replace(ctx context.Context, entity *Form) error {
	entity.UpdatedAt = r.now().UTC()
	doc, err := toDocument(entity)
	if err != nil {
		return err
	}
	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": entity.ID}, bson.M{"$set": bson.M{
		"formId":       doc.FormID,
		"formName":     doc.FormName,
		"description":  doc.Description,
		"sections":     doc.Sections,
		"fields":       doc.Fields,
		"approvalFlow": doc.ApprovalFlow,
		"status":       doc.Status,
		"isTemplate":   doc.IsTemplate,
		"isActive":     doc.IsActive,
		"updatedAt":    doc.UpdatedAt,
	}})
	if err != nil {
		return database.Translate(err)
	}
	if result.MatchedCount == 0 {
		return database.Translate(mongo.ErrNoDocuments)
	}
	return nil
}

// Delete removes a form by ID.
func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return database.Translate(mongo.ErrNoDocuments)
	}
	return nil
}

// Count returns the number of stored forms.
func (r *MongoRepository) Count(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{})
}
