package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/kelechi-nwosu/docpipeline/constants"
)

// Document represents an uploaded document for data transfer between layers.
type Document struct {
	ID                  uuid.UUID           `json:"id"`
	FileName            string              `json:"file_name"`
	FilePath            string              `json:"file_path"`
	FileSize            int64               `json:"file_size"`
	ContentType         string              `json:"content_type,omitempty"`
	ContentHash         string              `json:"content_hash,omitempty"`
	PageCount           *int                `json:"page_count,omitempty"`
	Status              constants.DocStatus `json:"status"`
	Progress            int                 `json:"progress"`
	CurrentStep         string              `json:"current_step,omitempty"`
	StepProgress        string              `json:"step_progress,omitempty"`
	LLMProvider         *string             `json:"llm_provider,omitempty"`
	ExtractedContent    json.RawMessage     `json:"extracted_content,omitempty"`
	ErrorMessage        *string             `json:"error,omitempty"`
	ErrorDetails        json.RawMessage     `json:"error_details,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
	ProcessingStartedAt *time.Time          `json:"processing_started_at,omitempty"`
	CompletedAt         *time.Time          `json:"completed_at,omitempty"`
}

// DocumentPatch is a sparse update applied to a document row. Nil fields are
// left untouched; SetX flags distinguish "clear" from "skip" for nullables.
type DocumentPatch struct {
	Status       *constants.DocStatus
	Progress     *int
	CurrentStep  *string
	StepProgress *string
	PageCount    *int

	LLMProvider    *string
	SetLLMProvider bool

	ExtractedContent    json.RawMessage
	SetExtractedContent bool

	ErrorMessage *string
	ErrorDetails json.RawMessage
	SetError     bool

	ProcessingStartedAt    *time.Time
	SetProcessingStartedAt bool

	CompletedAt    *time.Time
	SetCompletedAt bool
}

// Stats is the system-wide aggregate snapshot served by the pull endpoint.
type Stats struct {
	ActiveCount    int    `json:"activeCount"`
	ProcessedToday int    `json:"processedToday"`
	FailedCount    int    `json:"failedCount"`
	SystemStatus   string `json:"systemStatus"`
}
