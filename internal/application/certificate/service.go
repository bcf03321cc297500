package certificate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/edudash-core/internal/application/alignment"
	"github.com/edudash-core/internal/domain"
	"github.com/edudash-core/internal/pkg/bus"
	"github.com/edudash-core/internal/pkg/id"
)

// certClient is the upstream subset this service needs.
type certClient interface {
	Certificates(ctx context.Context, token string) ([]domain.CertificateRecord, error)
	Certificate(ctx context.Context, token, uploadID string) (*domain.CertificateRecord, error)
	SaveAlignment(ctx context.Context, token, uploadID string, cfg domain.AlignmentConfig) error
	RegisterCertificateFile(ctx context.Context, token, uploadID string, page int, url string) error
}

type fileStore interface {
	UploadPage(ctx context.Context, uploadID string, page int, filename string, r io.Reader) (string, error)
	DownloadPage(ctx context.Context, uploadID string, page int, filename string) (io.ReadCloser, string, error)
	PresignedPageURL(ctx context.Context, uploadID string, page int, filename string) (string, error)
	DeletePage(ctx context.Context, uploadID string, page int, filename string) error
}

type draftStore interface {
	Put(ctx context.Context, d *domain.AlignmentDraft) error
	Get(ctx context.Context, certificateID string) (*domain.AlignmentDraft, error)
	Update(ctx context.Context, certificateID string, updates map[string]interface{}) error
	Delete(ctx context.Context, certificateID string) error
}

type auditStore interface {
	Put(ctx context.Context, e *domain.AuditEvent) error
	ListByKind(ctx context.Context, kind string) ([]domain.AuditEvent, error)
}

// FieldView is one editable field with its operator-facing label.
type FieldView struct {
	Key      string               `json:"key"`
	Label    string               `json:"label"`
	Position domain.FieldPosition `json:"position"`
}

// EditorView is the display-ready state of an open edit session.
type EditorView struct {
	UploadID string          `json:"upload_id"`
	Language domain.Language `json:"language"`
	Fields   []FieldView     `json:"fields"`
	NumPages int             `json:"num_pages"`
	Dirty    bool            `json:"dirty"`
}

// Service manages certificate records and their alignment edit sessions: one
// editor per certificate, mutations mirrored into the local draft store so
// unsaved work survives a restart, saves audited and announced on the bus.
type Service struct {
	client certClient
	files  fileStore
	drafts draftStore
	audit  auditStore
	bus    *bus.Bus

	mu      sync.Mutex
	editors map[string]*alignment.Editor
}

// ServiceDeps wires a Service. Drafts, audit, files and bus are optional;
// nil disables the corresponding behavior.
type ServiceDeps struct {
	Client certClient
	Files  fileStore
	Drafts draftStore
	Audit  auditStore
	Bus    *bus.Bus
}

func NewService(deps ServiceDeps) *Service {
	return &Service{
		client:  deps.Client,
		files:   deps.Files,
		drafts:  deps.Drafts,
		audit:   deps.Audit,
		bus:     deps.Bus,
		editors: make(map[string]*alignment.Editor),
	}
}

// List fetches the certificate records visible to the caller.
func (s *Service) List(ctx context.Context, token string) ([]domain.CertificateRecord, error) {
	return s.client.Certificates(ctx, token)
}

// Open starts (or resumes) an edit session for a certificate. A stored draft
// takes over as the working copy; the persisted upstream config stays the
// baseline.
func (s *Service) Open(ctx context.Context, token, uploadID string) (*EditorView, error) {
	record, err := s.client.Certificate(ctx, token, uploadID)
	if err != nil {
		return nil, err
	}
	editor := alignment.Load(*record, s.client)
	if s.drafts != nil {
		if draft, err := s.drafts.Get(ctx, uploadID); err == nil {
			editor.RestoreWorking(draft.Config, draft.NumPages)
		} else if !errors.Is(err, domain.ErrNotFound) {
			slog.Warn("could not read alignment draft", "upload_id", uploadID, "err", err)
		}
	}
	s.mu.Lock()
	s.editors[uploadID] = editor
	s.mu.Unlock()
	return s.view(editor), nil
}

func (s *Service) editor(uploadID string) (*alignment.Editor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.editors[uploadID]
	if !ok {
		return nil, fmt.Errorf("no open edit session for %s: %w", uploadID, domain.ErrNotFound)
	}
	return e, nil
}

// View returns the current state of an open session.
func (s *Service) View(uploadID string) (*EditorView, error) {
	e, err := s.editor(uploadID)
	if err != nil {
		return nil, err
	}
	return s.view(e), nil
}

// SetField applies a manual coordinate entry and mirrors the working copy
// into the draft store.
func (s *Service) SetField(ctx context.Context, uploadID, field string, axis alignment.Axis, raw string) (*EditorView, error) {
	e, err := s.editor(uploadID)
	if err != nil {
		return nil, err
	}
	if err := e.SetFieldValue(field, axis, raw); err != nil {
		return nil, err
	}
	s.storeDraft(ctx, uploadID, e)
	return s.view(e), nil
}

// MoveField applies one pointer-drag step: begin, move, end. The UI calls
// this for discrete drops; embedding callers drive the editor's drag state
// machine directly for live dragging.
func (s *Service) MoveField(ctx context.Context, uploadID, field string, rect alignment.CanvasRect, pointerX, pointerY float64) (*EditorView, error) {
	e, err := s.editor(uploadID)
	if err != nil {
		return nil, err
	}
	if err := e.BeginDrag(field); err != nil {
		return nil, err
	}
	e.PointerMove(rect, pointerX, pointerY)
	e.EndDrag()
	s.storeDraft(ctx, uploadID, e)
	return s.view(e), nil
}

// SetPages changes the stacked-page count for an open session.
func (s *Service) SetPages(ctx context.Context, uploadID string, n int) (*EditorView, error) {
	e, err := s.editor(uploadID)
	if err != nil {
		return nil, err
	}
	e.SetPageCount(n)
	if s.drafts != nil {
		if err := s.drafts.Update(ctx, uploadID, map[string]interface{}{
			"num_pages":  e.NumPages(),
			"updated_at": time.Now().UTC().Format(time.RFC3339),
		}); err != nil {
			slog.Warn("could not update alignment draft", "upload_id", uploadID, "err", err)
		}
	}
	return s.view(e), nil
}

// Save persists the session's complete config upstream, clears the draft and
// records an audit event. The working copy survives a failed save.
func (s *Service) Save(ctx context.Context, token, uploadID, actor string) error {
	e, err := s.editor(uploadID)
	if err != nil {
		return err
	}
	if err := e.Save(ctx, token); err != nil {
		return err
	}
	if s.drafts != nil {
		if err := s.drafts.Delete(ctx, uploadID); err != nil {
			slog.Warn("could not clear alignment draft", "upload_id", uploadID, "err", err)
		}
	}
	s.recordAudit(ctx, "alignment_saved", uploadID, "alignment config replaced", actor)
	if s.bus != nil {
		s.bus.Publish(bus.TopicAlignmentSaved, uploadID)
	}
	return nil
}

// Discard reverts an open session to its persisted baseline and clears the
// draft. Callers must confirm with the operator while Dirty is true.
func (s *Service) Discard(ctx context.Context, uploadID string) (*EditorView, error) {
	e, err := s.editor(uploadID)
	if err != nil {
		return nil, err
	}
	e.Discard()
	if s.drafts != nil {
		if err := s.drafts.Delete(ctx, uploadID); err != nil {
			slog.Warn("could not clear alignment draft", "upload_id", uploadID, "err", err)
		}
	}
	return s.view(e), nil
}

// UploadPage stores a certificate page file and registers its URL on the
// upstream record.
func (s *Service) UploadPage(ctx context.Context, token, uploadID string, page int, filename string, r io.Reader, actor string) (string, error) {
	if err := s.checkPage(page); err != nil {
		return "", err
	}
	url, err := s.files.UploadPage(ctx, uploadID, page, filename, r)
	if err != nil {
		return "", err
	}
	if err := s.client.RegisterCertificateFile(ctx, token, uploadID, page, url); err != nil {
		return "", err
	}
	s.recordAudit(ctx, "certificate_uploaded", uploadID, fmt.Sprintf("page %d: %s", page, filename), actor)
	return url, nil
}

func (s *Service) checkPage(page int) error {
	if s.files == nil {
		return fmt.Errorf("file storage not configured: %w", domain.ErrBadRequest)
	}
	if page != 1 && page != 2 {
		return fmt.Errorf("page must be 1 or 2: %w", domain.ErrBadRequest)
	}
	return nil
}

// PageFile streams one stored certificate page and its content type.
func (s *Service) PageFile(ctx context.Context, uploadID string, page int, filename string) (io.ReadCloser, string, error) {
	if err := s.checkPage(page); err != nil {
		return nil, "", err
	}
	return s.files.DownloadPage(ctx, uploadID, page, filename)
}

// PageURL returns a time-limited URL the editor canvas renders a stored
// template page from.
func (s *Service) PageURL(ctx context.Context, uploadID string, page int, filename string) (string, error) {
	if err := s.checkPage(page); err != nil {
		return "", err
	}
	return s.files.PresignedPageURL(ctx, uploadID, page, filename)
}

// DeletePage removes one stored certificate page and records the removal.
func (s *Service) DeletePage(ctx context.Context, uploadID string, page int, filename, actor string) error {
	if err := s.checkPage(page); err != nil {
		return err
	}
	if err := s.files.DeletePage(ctx, uploadID, page, filename); err != nil {
		return err
	}
	s.recordAudit(ctx, "certificate_file_deleted", uploadID, fmt.Sprintf("page %d: %s", page, filename), actor)
	return nil
}

// AuditTrail lists recorded operator actions of one kind, oldest first.
func (s *Service) AuditTrail(ctx context.Context, kind string) ([]domain.AuditEvent, error) {
	if s.audit == nil {
		return nil, nil
	}
	return s.audit.ListByKind(ctx, kind)
}

func (s *Service) storeDraft(ctx context.Context, uploadID string, e *alignment.Editor) {
	if s.drafts == nil {
		return
	}
	draft := &domain.AlignmentDraft{
		CertificateID: uploadID,
		Config:        e.Config(),
		NumPages:      e.NumPages(),
		UpdatedAt:     time.Now().UTC(),
	}
	if err := s.drafts.Put(ctx, draft); err != nil {
		slog.Warn("could not store alignment draft", "upload_id", uploadID, "err", err)
	}
}

func (s *Service) recordAudit(ctx context.Context, kind, subject, detail, actor string) {
	if s.audit == nil {
		return
	}
	event := &domain.AuditEvent{
		EventID:   id.New(),
		Kind:      kind,
		Subject:   subject,
		Detail:    detail,
		Actor:     actor,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.audit.Put(ctx, event); err != nil {
		slog.Warn("could not record audit event", "kind", kind, "subject", subject, "err", err)
	}
}

func (s *Service) view(e *alignment.Editor) *EditorView {
	fields := make([]FieldView, 0, len(e.Fields()))
	for _, key := range e.Fields() {
		pos, _ := e.Position(key)
		fields = append(fields, FieldView{Key: key, Label: alignment.FieldLabel(e.Language(), key), Position: pos})
	}
	return &EditorView{
		UploadID: e.UploadID(),
		Language: e.Language(),
		Fields:   fields,
		NumPages: e.NumPages(),
		Dirty:    e.Dirty(),
	}
}
