package submission

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matapang/platform/libs/components/approval"
	"github.com/matapang/platform/libs/shared/database"
)

const submissionsCollection = "submissions"

type historyDocument struct {
	Level      int       `bson:"level"`
	Status     string    `bson:"status"`
	Comments   string    `bson:"comments,omitempty"`
	ActionedBy string    `bson:"actionedBy,omitempty"`
	ActionedAt time.Time `bson:"actionedAt"`
}

type submissionDocument struct {
	ID               string            `bson:"_id"`
	FormID           string            `bson:"formId"`
	FormName         string            `bson:"formName"`
	Data             map[string]any    `bson:"data"`
	Status           string            `bson:"status"`
	CurrentLevel     int               `bson:"currentLevel"`
	TotalLevels      int               `bson:"totalLevels"`
	ApprovalHistory  []historyDocument `bson:"approvalHistory"`
	Files            []FileDescriptor  `bson:"files"`
	SubmittedAt      *time.Time        `bson:"submittedAt,omitempty"`
	SubmittedByName  string            `bson:"submittedByName"`
	SubmittedByEmail string            `bson:"submittedByEmail"`
	CreatedAt        time.Time         `bson:"createdAt"`
	UpdatedAt        time.Time         `bson:"updatedAt"`
}

func toDocument(s *Submission) (submissionDocument, error) {
	state, err := s.State()
	if err != nil {
		return submissionDocument{}, err
	}
	doc := submissionDocument{
		ID:               s.ID,
		FormID:           s.FormID,
		FormName:         s.FormName,
		Data:             map[string]any(s.Data),
		Status:           s.Status,
		CurrentLevel:     s.CurrentLevel,
		TotalLevels:      s.TotalLevels,
		ApprovalHistory:  make([]historyDocument, 0, len(state.History)),
		Files:            s.FileList(),
		SubmittedAt:      s.SubmittedAt,
		SubmittedByName:  s.SubmittedByName,
		SubmittedByEmail: s.SubmittedByEmail,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
	if doc.Data == nil {
		doc.Data = map[string]any{}
	}
	for _, h := range state.History {
		doc.ApprovalHistory = append(doc.ApprovalHistory, historyDocument{
			Level:      h.Level,
			Status:     string(h.Status),
			Comments:   h.Comments,
			ActionedBy: h.ActionedBy,
			ActionedAt: h.ActionedAt,
		})
	}
	return doc, nil
}

func fromDocument(d submissionDocument) (*Submission, error) {
	s := &Submission{
		ID:               d.ID,
		FormID:           d.FormID,
		FormName:         d.FormName,
		Data:             normalize(d.Data),
		SubmittedAt:      d.SubmittedAt,
		SubmittedByName:  d.SubmittedByName,
		SubmittedByEmail: d.SubmittedByEmail,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
	state := approval.State{
		Status:       approval.Status(d.Status),
		CurrentLevel: d.CurrentLevel,
		TotalLevels:  d.TotalLevels,
	}
	for _, h := range d.ApprovalHistory {
		state.History = append(state.History, approval.HistoryEntry{
			Level:      h.Level,
			Status:     approval.Decision(h.Status),
			Comments:   h.Comments,
			ActionedBy: h.ActionedBy,
			ActionedAt: h.ActionedAt,
		})
	}
	if err := s.ApplyState(state); err != nil {
		return nil, err
	}
	s.SetFiles(d.Files)
	return s, nil
}

// normalize converts driver-decoded documents and arrays into the plain maps
// and slices the rest of the code expects.
func normalize(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case bson.M:
		return normalize(val)
	case map[string]any:
		return normalize(val)
	case bson.D:
		return normalize(val.Map())
	case bson.A:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case int:
		return float64(val)
	default:
		return v
	}
}

// MongoRepository stores submissions as documents.
type MongoRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoRepository uses the submissions collection of db.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(submissionsCollection), now: time.Now}
}

// EnsureIndexes creates the lookup indexes.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "formId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	return err
}

// List returns submissions, newest first.
func (r *MongoRepository) List(ctx context.Context, filter Filter) ([]Submission, error) {
	query := bson.M{}
	if filter.FormID != "" {
		query["formId"] = filter.FormID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	cursor, err := r.coll.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []submissionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]Submission, 0, len(docs))
	for _, d := range docs {
		s, err := fromDocument(d)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, nil
}

// Create inserts a new submission.
func (r *MongoRepository) Create(ctx context.Context, entity *Submission) error {
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

// Find locates a submission by ID.
func (r *MongoRepository) Find(ctx context.Context, id string) (*Submission, error) {
	var doc submissionDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, database.Translate(err)
	}
	return fromDocument(doc)
}

// Save replaces the stored submission.
func (r *MongoRepository) Save(ctx context.Context, entity *Submission) error {
	return r.replace(ctx, entity, bson.M{"_id": entity.ID}, database.Translate(mongo.ErrNoDocuments))
}

// Transition replaces the stored submission only while it still holds the
// status and level in from.
func (r *MongoRepository) Transition(ctx context.Context, entity *Submission, from Guard) error {
	filter := bson.M{"_id": entity.ID, "status": from.Status, "currentLevel": from.Level}
	return r.replace(ctx, entity, filter, ErrStale)
}

func (r *MongoRepository) replace(ctx context.Context, entity *Submission, filter bson.M, unmatched error) error {
	entity.UpdatedAt = r.now().UTC()
	doc, err := toDocument(entity)
	if err != nil {
		return err
	}
	result, err := r.coll.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return database.Translate(err)
	}
	if result.MatchedCount == 0 {
		return unmatched
	}
	return nil
}

// CountByStatus aggregates submissions per status.
func (r *MongoRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$status"}, {Key: "total", Value: bson.D{{Key: "$sum", Value: 1}}}}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status string `bson:"_id"`
		Total  int64  `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}
