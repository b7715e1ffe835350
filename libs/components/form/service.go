package form

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/matapang/platform/libs/components/builder"
	"github.com/matapang/platform/libs/components/schema"
	"github.com/matapang/platform/libs/shared/errs"
	"github.com/matapang/platform/libs/shared/observability"
)

// Service saves form documents through structural and authoring validation.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService builds a form service.
func NewService(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

// Repository exposes the underlying store.
func (s *Service) Repository() Repository {
	return s.repo
}

// Decode validates a raw JSON document and runs it through the builder.
func Decode(raw []byte) (schema.Form, error) {
	if err := schema.ValidateDocument(raw); err != nil {
		var docErr *schema.DocumentError
		if errors.As(err, &docErr) {
			return schema.Form{}, errs.Invalid("document", "%s", docErr.Error())
		}
		return schema.Form{}, err
	}

	var doc schema.Form
	if err := json.Unmarshal(raw, &doc); err != nil {
		return schema.Form{}, errs.Invalid("document", "%s", err.Error())
	}
	return builder.Load(doc).Save()
}

// Create stores a new form from a raw document.
func (s *Service) Create(ctx context.Context, raw []byte) (*Form, error) {
	doc, err := Decode(raw)
	if err != nil {
		s.rejected(err)
		return nil, err
	}
	if !present(raw, "isActive") {
		doc.IsActive = true
	}
	return s.CreateDocument(ctx, doc)
}

// CreateDocument stores an already validated document.
func (s *Service) CreateDocument(ctx context.Context, doc schema.Form) (*Form, error) {
	entity, err := FromSchema(doc)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, entity); err != nil {
		return nil, errs.Wrap(err, "form", "create")
	}
	observability.FormSaves.WithLabelValues("saved").Inc()
	s.logger.Info("form created", zap.String("id", entity.ID), zap.String("form_id", entity.FormID))
	return entity, nil
}

// Replace overwrites a form with a raw document. The formId, status and
// flags omitted by the document keep their stored values.
func (s *Service) Replace(ctx context.Context, id string, raw []byte) (*Form, error) {
	existing, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, errs.Wrap(err, "form", "replace")
	}

	doc, err := Decode(raw)
	if err != nil {
		s.rejected(err)
		return nil, err
	}
	if !present(raw, "formId") && existing.FormID != "" {
		doc.FormID = existing.FormID
	}
	if !present(raw, "status") {
		doc.Status = schema.FormStatus(existing.Status)
	}
	if !present(raw, "isTemplate") {
		doc.IsTemplate = existing.IsTemplate
	}
	if !present(raw, "isActive") {
		doc.IsActive = existing.IsActive
	}
	return s.replace(ctx, existing, doc)
}

// Publish marks a form as published.
func (s *Service) Publish(ctx context.Context, id string) (*Form, error) {
	existing, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, errs.Wrap(err, "form", "publish")
	}
	doc, err := existing.Schema()
	if err != nil {
		return nil, err
	}
	if err := builder.Validate(doc); err != nil {
		return nil, err
	}
	doc.Status = schema.FormPublished
	doc.IsActive = true
	return s.replace(ctx, existing, doc)
}

// Get loads a form and its decoded schema.
func (s *Service) Get(ctx context.Context, id string) (*Form, schema.Form, error) {
	entity, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, schema.Form{}, errs.Wrap(err, "form", "get")
	}
	doc, err := entity.Schema()
	if err != nil {
		return nil, schema.Form{}, err
	}
	return entity, doc, nil
}

func (s *Service) replace(ctx context.Context, existing *Form, doc schema.Form) (*Form, error) {
	if err := existing.Apply(doc); err != nil {
		return nil, err
	}
	if err := s.repo.Replace(ctx, existing); err != nil {
		return nil, errs.Wrap(err, "form", "replace")
	}
	observability.FormSaves.WithLabelValues("saved").Inc()
	s.logger.Info("form replaced", zap.String("id", existing.ID), zap.String("status", existing.Status))
	return existing, nil
}

func (s *Service) rejected(err error) {
	observability.FormSaves.WithLabelValues("rejected").Inc()
	if ve, ok := errs.AsValidation(err); ok {
		s.logger.Debug("form rejected", zap.String("code", ve.Code), zap.String("reason", ve.Message))
	}
}

func present(raw []byte, key string) bool {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return false
	}
	_, ok := keys[key]
	return ok
}
