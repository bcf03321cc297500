package alignment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"strconv"
	"strings"

	"github.com/edudash-core/internal/domain"
)

// Axis selects the coordinate a manual entry updates.
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
)

// CanvasRect is the on-screen bounding box of the rendered canvas, as
// reported by the UI. Only the origin matters for coordinate conversion.
type CanvasRect struct {
	Left float64 `json:"left"`
	Top  float64 `json:"top"`
}

// alignmentSaver persists a complete config upstream.
type alignmentSaver interface {
	SaveAlignment(ctx context.Context, token, uploadID string, cfg domain.AlignmentConfig) error
}

// Editor owns one certificate's alignment edit session: a working config, a
// persisted baseline, and the drag state machine. One editor per selected
// certificate; it is not safe for concurrent use.
type Editor struct {
	uploadID string
	lang     domain.Language
	saver    alignmentSaver

	baseline      domain.AlignmentConfig
	working       domain.AlignmentConfig
	baselinePages int
	numPages      int

	// active is the field being dragged; empty when the drag state is idle.
	// Keeping it as a single cell avoids the stale-closure hazard of
	// tracking drag state inside event handlers.
	active string
}

// Load builds an editor for a certificate record. The persisted
// alignment_config (object or JSON-encoded string) is merged over the
// language defaults so every canonical key is present even when the record
// predates a newly added field; unknown keys are dropped. A malformed
// persisted value falls back to the full defaults.
func Load(record domain.CertificateRecord, saver alignmentSaver) *Editor {
	lang := record.Language
	working := mergeConfig(lang, parsePersisted(record))
	return &Editor{
		uploadID:      record.UploadID,
		lang:          lang,
		saver:         saver,
		baseline:      working.Clone(),
		working:       working,
		baselinePages: derivePages(working),
		numPages:      derivePages(working),
	}
}

// parsePersisted extracts the raw persisted position map, or nil when absent
// or unparsable.
func parsePersisted(record domain.CertificateRecord) map[string]domain.FieldPosition {
	raw := record.AlignmentConfig
	if len(raw) == 0 {
		return nil
	}
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, `"`) {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			slog.Warn("alignment config string is not valid JSON, using defaults", "upload_id", record.UploadID, "err", err)
			return nil
		}
		trimmed = inner
	}
	var positions map[string]domain.FieldPosition
	if err := json.Unmarshal([]byte(trimmed), &positions); err != nil {
		slog.Warn("malformed alignment config, using defaults", "upload_id", record.UploadID, "err", err)
		return nil
	}
	return positions
}

// mergeConfig overlays persisted positions onto the language defaults,
// keeping only canonical keys.
func mergeConfig(lang domain.Language, persisted map[string]domain.FieldPosition) domain.AlignmentConfig {
	cfg := DefaultConfig(lang)
	for key, pos := range persisted {
		if _, ok := cfg[key]; ok {
			cfg[key] = pos
		}
	}
	return cfg
}

// derivePages computes the page count needed to contain every field:
// clamp(1, 5, ceil(maxY/842)).
func derivePages(cfg domain.AlignmentConfig) int {
	maxY := 0
	for _, pos := range cfg {
		if pos.Y > maxY {
			maxY = pos.Y
		}
	}
	pages := int(math.Ceil(float64(maxY) / float64(domain.PageHeight)))
	if pages < 1 {
		pages = 1
	}
	if pages > domain.MaxPages {
		pages = domain.MaxPages
	}
	return pages
}

// UploadID returns the certificate this session edits.
func (e *Editor) UploadID() string { return e.uploadID }

// Language returns the certificate's language.
func (e *Editor) Language() domain.Language { return e.lang }

// Fields returns the editable field keys in canonical order.
func (e *Editor) Fields() []string { return FieldKeys(e.lang) }

// Config returns a copy of the working config.
func (e *Editor) Config() domain.AlignmentConfig { return e.working.Clone() }

// Position returns the working position of one field.
func (e *Editor) Position(field string) (domain.FieldPosition, bool) {
	pos, ok := e.working[field]
	return pos, ok
}

// NumPages reports the current stacked-page count.
func (e *Editor) NumPages() int { return e.numPages }

// Active returns the field currently being dragged, empty when none.
func (e *Editor) Active() string { return e.active }

// BeginDrag marks field as the draggable. Starting a new drag implicitly
// ends any prior one. Unknown fields are rejected.
func (e *Editor) BeginDrag(field string) error {
	if _, ok := e.working[field]; !ok {
		return fmt.Errorf("unknown field %q: %w", field, domain.ErrBadRequest)
	}
	e.active = field
	return nil
}

// PointerMove converts an on-screen pointer position into model coordinates
// and moves the active field. The model origin is the bottom of the stacked
// canvas while screen Y grows downward, hence the inversion. Both axes are
// clamped to the canvas. A no-op when no drag is active.
func (e *Editor) PointerMove(rect CanvasRect, pointerX, pointerY float64) {
	if e.active == "" {
		return
	}
	x := int(math.Round(pointerX - rect.Left))
	y := int(math.Round(float64(domain.PageHeight*e.numPages) - (pointerY - rect.Top)))
	pos := e.working[e.active]
	pos.X = e.clampX(x)
	pos.Y = e.clampY(y)
	e.working[e.active] = pos
}

// EndDrag clears the active field. Idempotent.
func (e *Editor) EndDrag() { e.active = "" }

// SetFieldValue is the manual numeric-entry path. Non-numeric input is
// treated as 0. Values are clamped the same way pointer input is, so the
// two entry paths cannot disagree about the valid domain.
func (e *Editor) SetFieldValue(field string, axis Axis, raw string) error {
	pos, ok := e.working[field]
	if !ok {
		return fmt.Errorf("unknown field %q: %w", field, domain.ErrBadRequest)
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		value = 0
	}
	switch axis {
	case AxisX:
		pos.X = e.clampX(value)
	case AxisY:
		pos.Y = e.clampY(value)
	default:
		return fmt.Errorf("unknown axis %q: %w", axis, domain.ErrBadRequest)
	}
	e.working[field] = pos
	return nil
}

// SetPageCount changes the stacked-page count, clamped to [1, 5]. Existing
// field coordinates do not move; only the Y upper bound for future input and
// the render height change.
func (e *Editor) SetPageCount(n int) {
	if n < 1 {
		n = 1
	}
	if n > domain.MaxPages {
		n = domain.MaxPages
	}
	e.numPages = n
}

func (e *Editor) clampX(x int) int {
	if x < 0 {
		return 0
	}
	if x > domain.PageWidth {
		return domain.PageWidth
	}
	return x
}

func (e *Editor) clampY(y int) int {
	if y < 0 {
		return 0
	}
	if max := domain.PageHeight * e.numPages; y > max {
		return max
	}
	return y
}

// Dirty reports whether the working copy differs from the persisted
// baseline. Callers presenting a close action must prompt before Discard
// while this is true.
func (e *Editor) Dirty() bool {
	return !maps.Equal(e.working, e.baseline) || e.numPages != e.baselinePages
}

// Save persists the complete working config upstream. On success the
// baseline advances to match; on failure the working copy is kept so the
// operator can retry without data loss.
func (e *Editor) Save(ctx context.Context, token string) error {
	if err := e.saver.SaveAlignment(ctx, token, e.uploadID, e.working); err != nil {
		return fmt.Errorf("save alignment for %s: %w", e.uploadID, err)
	}
	e.baseline = e.working.Clone()
	e.baselinePages = e.numPages
	return nil
}

// RestoreWorking replaces the working copy from a stored draft without
// touching the persisted baseline, so a resumed session still knows it has
// unsaved changes. Draft keys outside the canonical set are dropped the same
// way persisted configs are filtered.
func (e *Editor) RestoreWorking(cfg domain.AlignmentConfig, numPages int) {
	e.working = mergeConfig(e.lang, cfg)
	e.SetPageCount(numPages)
}

// Discard reverts the working copy to the last-persisted baseline and ends
// any active drag.
func (e *Editor) Discard() {
	e.working = e.baseline.Clone()
	e.numPages = e.baselinePages
	e.active = ""
}
