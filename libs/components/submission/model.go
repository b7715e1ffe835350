package submission

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/matapang/platform/libs/components/approval"
)

// FileDescriptor references an uploaded file.
type FileDescriptor struct {
	URL      string `json:"url" bson:"url"`
	Filename string `json:"filename" bson:"filename"`
	Size     int64  `json:"size" bson:"size"`
	MimeType string `json:"mimetype" bson:"mimetype"`
}

// Submission is one filled instance of a form.
type Submission struct {
	ID               string            `json:"id" gorm:"type:uuid;primaryKey"`
	FormID           string            `json:"formId" gorm:"type:uuid;not null;index"`
	FormName         string            `json:"formName"`
	Data             datatypes.JSONMap `json:"data" gorm:"type:jsonb"`
	Status           string            `json:"status" gorm:"not null;index"`
	CurrentLevel     int               `json:"currentLevel"`
	TotalLevels      int               `json:"totalLevels"`
	ApprovalHistory  datatypes.JSON    `json:"approvalHistory" gorm:"type:jsonb"`
	Files            datatypes.JSON    `json:"files" gorm:"type:jsonb"`
	SubmittedAt      *time.Time        `json:"submittedAt"`
	SubmittedByName  string            `json:"submittedByName"`
	SubmittedByEmail string            `json:"submittedByEmail"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// BeforeCreate assigns a UUID when missing.
func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// State reads the approval progress.
func (s Submission) State() (approval.State, error) {
	state := approval.State{
		Status:       approval.Status(s.Status),
		CurrentLevel: s.CurrentLevel,
		TotalLevels:  s.TotalLevels,
	}
	if len(s.ApprovalHistory) > 0 && string(s.ApprovalHistory) != "null" {
		if err := json.Unmarshal(s.ApprovalHistory, &state.History); err != nil {
			return approval.State{}, fmt.Errorf("submission %s: decode history: %w", s.ID, err)
		}
	}
	return state, nil
}

// ApplyState stores the approval progress.
func (s *Submission) ApplyState(state approval.State) error {
	history := state.History
	if history == nil {
		history = []approval.HistoryEntry{}
	}
	raw, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("submission %s: encode history: %w", s.ID, err)
	}
	s.Status = string(state.Status)
	s.CurrentLevel = state.CurrentLevel
	s.TotalLevels = state.TotalLevels
	s.ApprovalHistory = raw
	return nil
}

// FileList decodes the uploaded file descriptors.
func (s Submission) FileList() []FileDescriptor {
	var files []FileDescriptor
	if len(s.Files) > 0 {
		_ = json.Unmarshal(s.Files, &files)
	}
	return files
}

// SetFiles stores the uploaded file descriptors.
func (s *Submission) SetFiles(files []FileDescriptor) {
	if files == nil {
		files = []FileDescriptor{}
	}
	raw, _ := json.Marshal(files)
	s.Files = raw
}

// ToDTO converts the submission into its API shape.
func (s Submission) ToDTO() map[string]any {
	state, _ := s.State()
	history := state.History
	if history == nil {
		history = []approval.HistoryEntry{}
	}
	files := s.FileList()
	if files == nil {
		files = []FileDescriptor{}
	}
	dto := map[string]any{
		"id":               s.ID,
		"formId":           s.FormID,
		"formName":         s.FormName,
		"status":           s.Status,
		"currentLevel":     s.CurrentLevel,
		"totalLevels":      s.TotalLevels,
		"approvalHistory":  history,
		"files":            files,
		"submittedByName":  s.SubmittedByName,
		"submittedByEmail": s.SubmittedByEmail,
		"createdAt":        s.CreatedAt,
		"updatedAt":        s.UpdatedAt,
	}
	if s.Data != nil {
		dto["data"] = map[string]any(s.Data)
	} else {
		dto["data"] = map[string]any{}
	}
	if s.SubmittedAt != nil {
		dto["submittedAt"] = s.SubmittedAt
	}
	return dto
}
