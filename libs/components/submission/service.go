package submission

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/matapang/platform/libs/components/approval"
	"github.com/matapang/platform/libs/components/display"
	"github.com/matapang/platform/libs/components/form"
	"github.com/matapang/platform/libs/components/render"
	"github.com/matapang/platform/libs/components/schema"
	"github.com/matapang/platform/libs/shared/errs"
	"github.com/matapang/platform/libs/shared/logging"
	"github.com/matapang/platform/libs/shared/mq"
	"github.com/matapang/platform/libs/shared/observability"
)

// Lifecycle event types published on the bus.
const (
	EventSubmitted = "submission.submitted"
	EventDecided   = "submission.decided"
	EventFinalized = "submission.finalized"
)

// Edit operations accepted by Service.Edit.
const (
	OpSet    = "set"
	OpCell   = "cell"
	OpToggle = "toggle"
)

// ExportSheet is the worksheet name used by Export.
const ExportSheet = "Submissions"

// ErrNotDraft is returned when data is edited after submission.
var ErrNotDraft = fmt.Errorf("%w: submission is no longer a draft", errs.ErrConflict)

// FormSource loads forms with their decoded schema.
type FormSource interface {
	Get(ctx context.Context, id string) (*form.Form, schema.Form, error)
}

// Event is the payload of a lifecycle event.
type Event struct {
	Type         string    `json:"type"`
	SubmissionID string    `json:"submissionId"`
	FormID       string    `json:"formId"`
	FormName     string    `json:"formName"`
	Status       string    `json:"status"`
	Level        int       `json:"level,omitempty"`
	Decision     string    `json:"decision,omitempty"`
	Actor        string    `json:"actor,omitempty"`
	At           time.Time `json:"at"`
}

// CreateRequest carries a new submission.
type CreateRequest struct {
	FormID           string           `json:"formId"`
	Data             map[string]any   `json:"data"`
	SubmittedByName  string           `json:"submittedByName"`
	SubmittedByEmail string           `json:"submittedByEmail"`
	Files            []FileDescriptor `json:"files"`
	Submit           bool             `json:"submit"`
}

// Edit is one change to a draft's data.
type Edit struct {
	Op      string `json:"op"`
	FieldID string `json:"fieldId"`
	Row     string `json:"row,omitempty"`
	Column  string `json:"column,omitempty"`
	Key     string `json:"key,omitempty"`
	Value   any    `json:"value,omitempty"`
}

// DecisionRequest records an approver's decision.
type DecisionRequest struct {
	Level    int    `json:"level"`
	Decision string `json:"decision"`
	Comments string `json:"comments"`
	Actor    string `json:"actionedBy"`
}

// View is the read-only presentation of a submission.
type View struct {
	Submission map[string]any       `json:"submission"`
	Rows       []display.Row        `json:"rows"`
	Chain      []approval.LevelView `json:"approvalChain"`
	Fallback   bool                 `json:"fallback"`
}

// Service runs the submission lifecycle.
type Service struct {
	repo      Repository
	forms     FormSource
	publisher mq.Publisher
	directory approval.Directory
	logger    *zap.Logger
	now       func() time.Time
}

// ServiceOption customises the service.
type ServiceOption func(*Service)

// WithPublisher publishes lifecycle events.
func WithPublisher(pub mq.Publisher) ServiceOption {
	return func(s *Service) {
		s.publisher = pub
	}
}

// WithDirectory resolves approvers for views.
func WithDirectory(dir approval.Directory) ServiceOption {
	return func(s *Service) {
		s.directory = dir
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires the submission service.
func NewService(repo Repository, forms FormSource, logger *zap.Logger, opts ...ServiceOption) *Service {
	s := &Service{repo: repo, forms: forms, logger: logging.OrNop(logger), now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Repository exposes the underlying repository.
func (s *Service) Repository() Repository {
	return s.repo
}

// Create stores a new submission, submitting it immediately when asked.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Submission, error) {
	if strings.TrimSpace(req.FormID) == "" {
		return nil, errs.Invalid("form_id", "formId is required")
	}
	owner, doc, err := s.forms.Get(ctx, req.FormID)
	if err != nil {
		return nil, errs.Wrap(err, "submission", "create")
	}
	if !owner.IsActive {
		return nil, errs.Invalid("form_inactive", "form %q is not accepting submissions", owner.FormName)
	}

	data := render.Values(req.Data).Clone()
	entity := &Submission{
		FormID:           owner.ID,
		FormName:         owner.FormName,
		Data:             datatypes.JSONMap(data),
		SubmittedByName:  strings.TrimSpace(req.SubmittedByName),
		SubmittedByEmail: strings.TrimSpace(req.SubmittedByEmail),
	}
	entity.SetFiles(req.Files)

	state := approval.Draft()
	if req.Submit {
		if err := checkValues(doc, data); err != nil {
			return nil, err
		}
		state = approval.Start(doc.ApprovalFlow)
		at := s.now().UTC()
		entity.SubmittedAt = &at
	}
	if err := entity.ApplyState(state); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, entity); err != nil {
		return nil, errs.Wrap(err, "submission", "create")
	}
	observability.SubmissionTransitions.WithLabelValues(entity.Status).Inc()
	s.logger.Info("submission created",
		zap.String("id", entity.ID),
		zap.String("form_id", entity.FormID),
		zap.String("status", entity.Status))

	if req.Submit {
		s.announceSubmit(ctx, entity)
	}
	return entity, nil
}

// Edit applies edits to a draft. Either every edit applies or none is stored.
func (s *Service) Edit(ctx context.Context, id string, edits []Edit) (*Submission, error) {
	entity, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, errs.Wrap(err, "submission", "edit")
	}
	if entity.Status != string(approval.StatusDraft) {
		return nil, ErrNotDraft
	}
	from := GuardOf(entity)
	_, doc, err := s.forms.Get(ctx, entity.FormID)
	if err != nil {
		return nil, errs.Wrap(err, "submission", "edit")
	}

	changed := make(map[string]struct{})
	fill := render.NewFill(doc, render.Values(entity.Data), func(fieldID string, _ any) {
		changed[fieldID] = struct{}{}
	})
	for i, e := range edits {
		if err := apply(fill, e); err != nil {
			return nil, fmt.Errorf("edit %d: %w", i, err)
		}
	}

	entity.Data = datatypes.JSONMap(fill.Values())
	if err := s.repo.Transition(ctx, entity, from); err != nil {
		return nil, errs.Wrap(err, "submission", "edit")
	}
	s.logger.Debug("submission edited", zap.String("id", entity.ID), zap.Int("fields", len(changed)))
	return entity, nil
}

func apply(fill *render.Fill, e Edit) error {
	switch strings.ToLower(strings.TrimSpace(e.Op)) {
	case OpSet, "":
		return fill.Set(e.FieldID, e.Value)
	case OpCell:
		return fill.SetCell(e.FieldID, e.Row, e.Column, e.Value)
	case OpToggle:
		return fill.Toggle(e.FieldID, e.Key)
	default:
		return errs.Invalid("op", "unknown edit operation %q", e.Op)
	}
}

// Submit moves a draft into the approval workflow after checking its values.
func (s *Service) Submit(ctx context.Context, id string) (*Submission, error) {
	entity, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, errs.Wrap(err, "submission", "submit")
	}
	_, doc, err := s.forms.Get(ctx, entity.FormID)
	if err != nil {
		return nil, errs.Wrap(err, "submission", "submit")
	}
	state, err := entity.State()
	if err != nil {
		return nil, err
	}
	next, err := state.Submit(doc.ApprovalFlow)
	if err != nil {
		return nil, err
	}
	if err := checkValues(doc, render.Values(entity.Data)); err != nil {
		return nil, err
	}

	from := GuardOf(entity)
	at := s.now().UTC()
	entity.SubmittedAt = &at
	if err := entity.ApplyState(next); err != nil {
		return nil, err
	}
	if err := s.repo.Transition(ctx, entity, from); err != nil {
		return nil, errs.Wrap(err, "submission", "submit")
	}
	observability.SubmissionTransitions.WithLabelValues(entity.Status).Inc()
	s.logger.Info("submission submitted", zap.String("id", entity.ID), zap.String("status", entity.Status))

	s.announceSubmit(ctx, entity)
	return entity, nil
}

// Decide records an approval decision at the current level.
func (s *Service) Decide(ctx context.Context, id string, req DecisionRequest) (*Submission, error) {
	entity, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, errs.Wrap(err, "submission", "decide")
	}
	state, err := entity.State()
	if err != nil {
		return nil, err
	}

	decision := approval.Decision(strings.ToUpper(strings.TrimSpace(req.Decision)))
	at := s.now()
	next, err := state.Decide(req.Level, decision, strings.TrimSpace(req.Comments), req.Actor, at)
	if err != nil {
		return nil, err
	}
	from := GuardOf(entity)
	if err := entity.ApplyState(next); err != nil {
		return nil, err
	}
	if err := s.repo.Transition(ctx, entity, from); err != nil {
		return nil, errs.Wrap(err, "submission", "decide")
	}

	observability.ApprovalDecisions.WithLabelValues(string(decision)).Inc()
	if next.Status != state.Status {
		observability.SubmissionTransitions.WithLabelValues(entity.Status).Inc()
	}
	s.logger.Info("approval decision recorded",
		zap.String("id", entity.ID),
		zap.Int("level", req.Level),
		zap.String("decision", string(decision)),
		zap.String("status", entity.Status))

	decided := s.event(EventDecided, entity)
	decided.Level = req.Level
	decided.Decision = string(decision)
	decided.Actor = req.Actor
	s.publish(ctx, decided)
	if next.IsTerminal() {
		s.publish(ctx, s.event(EventFinalized, entity))
	}
	return entity, nil
}

// View builds the labeled read-only presentation. When the owning form cannot
// be loaded the rows are derived from the stored keys instead.
func (s *Service) View(ctx context.Context, id string) (View, error) {
	entity, err := s.repo.Find(ctx, id)
	if err != nil {
		return View{}, errs.Wrap(err, "submission", "view")
	}
	data := map[string]any(entity.Data)

	_, doc, err := s.forms.Get(ctx, entity.FormID)
	if err != nil {
		s.logger.Warn("submission view without form",
			zap.String("id", entity.ID),
			zap.String("form_id", entity.FormID),
			zap.Error(err))
		return View{Submission: entity.ToDTO(), Rows: display.BuildFromKeys(data), Chain: []approval.LevelView{}, Fallback: true}, nil
	}

	state, err := entity.State()
	if err != nil {
		return View{}, err
	}
	return View{
		Submission: entity.ToDTO(),
		Rows:       display.Build(data, &doc),
		Chain:      approval.Chain(ctx, doc.ApprovalFlow, &state, s.directory),
	}, nil
}

// Chain lists the approval levels of a submission with their progress.
func (s *Service) Chain(ctx context.Context, id string) ([]approval.LevelView, error) {
	entity, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, errs.Wrap(err, "submission", "chain")
	}
	_, doc, err := s.forms.Get(ctx, entity.FormID)
	if err != nil {
		return nil, errs.Wrap(err, "submission", "chain")
	}
	state, err := entity.State()
	if err != nil {
		return nil, err
	}
	return approval.Chain(ctx, doc.ApprovalFlow, &state, s.directory), nil
}

// Export writes every submission of a form as an XLSX workbook and returns the
// suggested file name.
func (s *Service) Export(ctx context.Context, formID string, w io.Writer) (string, error) {
	owner, doc, err := s.forms.Get(ctx, formID)
	if err != nil {
		return "", errs.Wrap(err, "submission", "export")
	}
	items, err := s.repo.List(ctx, Filter{FormID: owner.ID})
	if err != nil {
		return "", errs.Wrap(err, "submission", "export")
	}

	fields := doc.ValueFields()
	header := []any{"ID", "Status", "Submitted By", "Submitted At"}
	for _, f := range fields {
		label := f.Label
		if strings.TrimSpace(label) == "" {
			label = display.TitleCase(f.FieldID)
		}
		header = append(header, label)
	}

	book := excelize.NewFile()
	defer book.Close()
	if err := book.SetSheetName("Sheet1", ExportSheet); err != nil {
		return "", err
	}
	if err := book.SetSheetRow(ExportSheet, "A1", &header); err != nil {
		return "", err
	}
	bold, err := book.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return "", err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return "", err
	}
	if err := book.SetCellStyle(ExportSheet, "A1", last, bold); err != nil {
		return "", err
	}

	for i, item := range items {
		byKey := make(map[string]display.Value)
		for _, row := range display.Build(map[string]any(item.Data), &doc) {
			byKey[row.Key] = row.Value
		}

		submitted := ""
		if item.SubmittedAt != nil {
			submitted = item.SubmittedAt.UTC().Format(time.RFC3339)
		}
		record := []any{item.ID, item.Status, submitter(item), submitted}
		for _, f := range fields {
			record = append(record, CellText(byKey[f.FieldID]))
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", err
		}
		if err := book.SetSheetRow(ExportSheet, cell, &record); err != nil {
			return "", err
		}
	}

	if err := book.Write(w); err != nil {
		return "", err
	}
	s.logger.Info("submissions exported", zap.String("form_id", owner.ID), zap.Int("rows", len(items)))
	return exportName(owner.FormName), nil
}

// CellText flattens a display value into one spreadsheet cell.
func CellText(v display.Value) string {
	switch v.Kind {
	case display.KindList:
		return strings.Join(v.Items, ", ")
	case display.KindBoolean:
		if v.Bool {
			return "Yes"
		}
		return "No"
	case display.KindFile:
		if v.File == nil {
			return ""
		}
		if v.File.Filename != "" {
			return v.File.Filename
		}
		return v.File.URL
	case display.KindGrid:
		if v.Grid == nil {
			return ""
		}
		var rows []string
		for _, row := range v.Grid.Rows {
			var cells []string
			for i, cell := range row.Cells {
				if cell == "" || i >= len(v.Grid.Columns) {
					continue
				}
				cells = append(cells, v.Grid.Columns[i].Label+"="+cell)
			}
			if len(cells) > 0 {
				rows = append(rows, row.Label+": "+strings.Join(cells, ", "))
			}
		}
		return strings.Join(rows, "; ")
	case display.KindObject:
		parts := make([]string, 0, len(v.Entries))
		for _, e := range v.Entries {
			parts = append(parts, e.Label+": "+e.Value)
		}
		return strings.Join(parts, "; ")
	default:
		return v.Text
	}
}

func submitter(s Submission) string {
	switch {
	case s.SubmittedByName != "" && s.SubmittedByEmail != "":
		return s.SubmittedByName + " <" + s.SubmittedByEmail + ">"
	case s.SubmittedByName != "":
		return s.SubmittedByName
	default:
		return s.SubmittedByEmail
	}
}

func exportName(formName string) string {
	base := schema.DeriveID(formName)
	if base == "" {
		base = "form"
	}
	return base + "_submissions.xlsx"
}

// checkValues runs fill-time validation. The first problem supplies the code
// and every message is reported.
func checkValues(doc schema.Form, data render.Values) error {
	problems := render.NewFill(doc, data, nil).Validate()
	if len(problems) == 0 {
		return nil
	}
	messages := make([]string, 0, len(problems))
	for _, p := range problems {
		messages = append(messages, p.Message)
	}
	return errs.Invalid(problems[0].Code, "%s", strings.Join(messages, "; "))
}

func (s *Service) announceSubmit(ctx context.Context, entity *Submission) {
	s.publish(ctx, s.event(EventSubmitted, entity))
	if approval.Status(entity.Status).Terminal() {
		s.publish(ctx, s.event(EventFinalized, entity))
	}
}

func (s *Service) event(kind string, entity *Submission) Event {
	return Event{
		Type:         kind,
		SubmissionID: entity.ID,
		FormID:       entity.FormID,
		FormName:     entity.FormName,
		Status:       entity.Status,
		At:           s.now().UTC(),
	}
}

// publish sends an event. The state change is already stored, so failures
// are logged and dropped.
func (s *Service) publish(ctx context.Context, event Event) {
	if s.publisher == nil {
		return
	}
	headers := map[string]string{"event_type": event.Type}
	if err := mq.PublishJSON(ctx, s.publisher, event.SubmissionID, event, headers); err != nil {
		s.logger.Warn("submission event not published",
			zap.String("type", event.Type),
			zap.String("id", event.SubmissionID),
			zap.Error(err))
	}
}
