package cases

import (
	"time"

	"github.com/google/uuid"
)

// Document is a court filing downloaded for a case.
type Document struct {
	ID                    uuid.UUID   `json:"id"`
	CaseID                uuid.UUID   `json:"case_id"`
	FilePath              string      `json:"file_path"`
	SourceURL             *string     `json:"source_url"`
	StorageKey            *string     `json:"storage_key"`
	DocumentDate          *time.Time  `json:"document_date"`
	PageCount             *int        `json:"page_count"`
	OCRText               *string     `json:"ocr_text,omitempty"`
	Extraction            *Extraction `json:"extraction"`
	ExtractionAttemptedAt *time.Time  `json:"extraction_attempted_at"`
	VisionProcessedAt     *time.Time  `json:"vision_processed_at"`
	CreatedAt             time.Time   `json:"created_at"`
}

// Processed reports whether either extraction path has run for the document.
func (d Document) Processed() bool {
	return d.ExtractionAttemptedAt != nil || d.VisionProcessedAt != nil
}

// AddDocumentCommand registers a crawled document.
type AddDocumentCommand struct {
	FilePath     string     `json:"file_path"`
	SourceURL    *string    `json:"source_url"`
	StorageKey   *string    `json:"storage_key"`
	DocumentDate *time.Time `json:"document_date"`
	PageCount    *int       `json:"page_count"`
}

// ProcessedCommand records a completed extraction for a document.
// OCRText is only written by the OCR path; a nil Extraction records an
// attempt that produced no fields.
type ProcessedCommand struct {
	Method     Method
	OCRText    *string
	Extraction *Extraction
}

// StoredCommand records a re-downloaded document file.
type StoredCommand struct {
	StorageKey string
	PageCount  *int
}
