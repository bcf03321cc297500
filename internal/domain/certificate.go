package domain

import (
	"encoding/json"
	"time"
)

// Certificate canvas dimensions in points (ISO A4). Template pages are
// stacked vertically, so the model Y domain is [0, PageHeight*numPages] with
// the origin at the bottom of the stacked canvas.
const (
	PageWidth  = 595
	PageHeight = 842
	MaxPages   = 5
)

// Language selects the canonical field set and section labels for a
// certificate template.
type Language string

const (
	LanguageFrench   Language = "french"
	LanguageGerman   Language = "german"
	LanguageJapanese Language = "japanese"
)

// CertificateRecord is the upstream representation of an uploaded
// certificate template. AlignmentConfig arrives either as a JSON object or a
// JSON-encoded string, so it is kept raw until the editor parses it.
type CertificateRecord struct {
	UploadID            string          `json:"upload_id"`
	Language            Language        `json:"language"`
	AlignmentConfig     json.RawMessage `json:"alignment_config,omitempty"`
	Page1URL            string          `json:"page1_url,omitempty"`
	CertificateFilePath string          `json:"certificate_file_path,omitempty"`
	Page2URL            string          `json:"page2_url,omitempty"`
}

// TemplateURL returns the rendered page-1 image URL, preferring page1_url
// over the legacy certificate_file_path field.
func (c CertificateRecord) TemplateURL() string {
	if c.Page1URL != "" {
		return c.Page1URL
	}
	return c.CertificateFilePath
}

// FieldPosition places one named text field on the certificate canvas.
// Size is display metadata only; dragging never alters it.
type FieldPosition struct {
	X    int `json:"x"`
	Y    int `json:"y"`
	Size int `json:"size"`
}

// AlignmentConfig maps field keys to their positions for one template.
type AlignmentConfig map[string]FieldPosition

// Clone returns an independent copy so a working config can diverge from its
// persisted baseline.
func (c AlignmentConfig) Clone() AlignmentConfig {
	out := make(AlignmentConfig, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// AlignmentDraft is an unsaved editor working copy persisted locally so work
// survives a restart.
type AlignmentDraft struct {
	CertificateID string          `json:"certificate_id" dynamodbav:"certificate_id"`
	Config        AlignmentConfig `json:"config" dynamodbav:"config"`
	NumPages      int             `json:"num_pages" dynamodbav:"num_pages"`
	UpdatedAt     time.Time       `json:"updated_at" dynamodbav:"updated_at"`
}

// AuditEvent records an operator-visible action (alignment save, escalation,
// approval) for the local audit trail.
type AuditEvent struct {
	EventID   string    `json:"event_id" dynamodbav:"event_id"`
	Kind      string    `json:"kind" dynamodbav:"kind"`
	Subject   string    `json:"subject" dynamodbav:"subject"`
	Detail    string    `json:"detail" dynamodbav:"detail"`
	Actor     string    `json:"actor" dynamodbav:"actor"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
}
