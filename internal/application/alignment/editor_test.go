package alignment

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"

	"github.com/edudash-core/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type fakeSaver struct {
	err   error
	calls int
	got   domain.AlignmentConfig
}

func (f *fakeSaver) SaveAlignment(ctx context.Context, token, uploadID string, cfg domain.AlignmentConfig) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.got = cfg.Clone()
	return nil
}

// --- helpers ---

func frenchRecord(rawConfig string) domain.CertificateRecord {
	rec := domain.CertificateRecord{UploadID: "u-1", Language: domain.LanguageFrench}
	if rawConfig != "" {
		rec.AlignmentConfig = json.RawMessage(rawConfig)
	}
	return rec
}

func sortedKeys(cfg domain.AlignmentConfig) []string {
	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// --- load / merge ---

func TestLoad_NoPersistedConfigUsesDefaults(t *testing.T) {
	e := Load(frenchRecord(""), &fakeSaver{})

	want := DefaultConfig(domain.LanguageFrench)
	assert.Equal(t, want, e.Config())
	assert.Equal(t, 2, e.NumPages())
	assert.False(t, e.Dirty())
}

func TestLoad_MergesPersistedOverDefaultsAndDropsObsoleteKeys(t *testing.T) {
	// Persisted config misses several canonical keys and still carries the
	// retired marksTable key.
	persisted := `{"studentName":{"x":200,"y":1400,"size":26},"marksTable":{"x":50,"y":300,"size":10}}`
	e := Load(frenchRecord(persisted), &fakeSaver{})

	cfg := e.Config()
	assert.Equal(t, sortedKeys(DefaultConfig(domain.LanguageFrench)), sortedKeys(cfg))
	_, hasObsolete := cfg["marksTable"]
	assert.False(t, hasObsolete)

	// Persisted values win per-key; missing keys come from defaults.
	assert.Equal(t, domain.FieldPosition{X: 200, Y: 1400, Size: 26}, cfg[FieldStudentName])
	assert.Equal(t, DefaultConfig(domain.LanguageFrench)[FieldGrade], cfg[FieldGrade])
}

func TestLoad_AcceptsJSONEncodedStringConfig(t *testing.T) {
	persisted := `"{\"grade\":{\"x\":100,\"y\":120,\"size\":20}}"`
	e := Load(frenchRecord(persisted), &fakeSaver{})

	pos, ok := e.Position(FieldGrade)
	require.True(t, ok)
	assert.Equal(t, domain.FieldPosition{X: 100, Y: 120, Size: 20}, pos)
}

func TestLoad_MalformedConfigFallsBackToDefaults(t *testing.T) {
	e := Load(frenchRecord(`"{not valid json"`), &fakeSaver{})

	assert.Equal(t, DefaultConfig(domain.LanguageFrench), e.Config())
}

func TestLoad_JapaneseExcludesSection4(t *testing.T) {
	jp := domain.CertificateRecord{UploadID: "u-2", Language: domain.LanguageJapanese}
	e := Load(jp, &fakeSaver{})

	_, ok := e.Position(FieldSection4Mark)
	assert.False(t, ok)
	assert.NotContains(t, e.Fields(), FieldSection4Mark)

	for _, lang := range []domain.Language{domain.LanguageFrench, domain.LanguageGerman} {
		assert.Contains(t, FieldKeys(lang), FieldSection4Mark, "language %s", lang)
	}
}

func TestDerivePages_CeilOfMaxY(t *testing.T) {
	persisted := `{"studentName":{"x":10,"y":1500,"size":12}}`
	e := Load(frenchRecord(persisted), &fakeSaver{})
	assert.Equal(t, 2, e.NumPages())

	cfg := domain.AlignmentConfig{"a": {Y: 842}, "b": {Y: 100}}
	assert.Equal(t, 1, derivePages(cfg))
	assert.Equal(t, 2, derivePages(domain.AlignmentConfig{"a": {Y: 843}}))
	assert.Equal(t, 1, derivePages(domain.AlignmentConfig{"a": {Y: 0}}))
	assert.Equal(t, 5, derivePages(domain.AlignmentConfig{"a": {Y: 99999}}))
}

// --- drag state machine ---

func TestDrag_PointerMoveConvertsAndClamps(t *testing.T) {
	e := Load(frenchRecord(""), &fakeSaver{})
	require.Equal(t, 2, e.NumPages())
	rect := CanvasRect{Left: 20, Top: 40}

	require.NoError(t, e.BeginDrag(FieldStudentName))

	// Screen (320, 240) → model x=300, y=1684-200=1484.
	e.PointerMove(rect, 320, 240)
	pos, _ := e.Position(FieldStudentName)
	assert.Equal(t, 300, pos.X)
	assert.Equal(t, 1484, pos.Y)

	// Pointer far left of the canvas clamps x to 0.
	e.PointerMove(rect, -30, 240)
	pos, _ = e.Position(FieldStudentName)
	assert.Equal(t, 0, pos.X)

	// Pointer far right clamps x to page width.
	e.PointerMove(rect, 9999, 240)
	pos, _ = e.Position(FieldStudentName)
	assert.Equal(t, domain.PageWidth, pos.X)

	// Pointer below the stacked canvas clamps y to 0; above clamps to 842*pages.
	e.PointerMove(rect, 100, 99999)
	pos, _ = e.Position(FieldStudentName)
	assert.Equal(t, 0, pos.Y)
	e.PointerMove(rect, 100, -99999)
	pos, _ = e.Position(FieldStudentName)
	assert.Equal(t, domain.PageHeight*2, pos.Y)
}

func TestDrag_SizeSurvivesDragging(t *testing.T) {
	e := Load(frenchRecord(""), &fakeSaver{})
	before, _ := e.Position(FieldGrade)

	require.NoError(t, e.BeginDrag(FieldGrade))
	e.PointerMove(CanvasRect{}, 100, 100)

	after, _ := e.Position(FieldGrade)
	assert.Equal(t, before.Size, after.Size)
}

func TestDrag_OnlyActiveFieldMoves(t *testing.T) {
	e := Load(frenchRecord(""), &fakeSaver{})
	gradeBefore, _ := e.Position(FieldGrade)

	require.NoError(t, e.BeginDrag(FieldStudentName))
	e.PointerMove(CanvasRect{}, 50, 50)

	gradeAfter, _ := e.Position(FieldGrade)
	assert.Equal(t, gradeBefore, gradeAfter)
}

func TestDrag_BeginReplacesActiveAndEndIsIdempotent(t *testing.T) {
	e := Load(frenchRecord(""), &fakeSaver{})

	require.NoError(t, e.BeginDrag(FieldStudentName))
	require.NoError(t, e.BeginDrag(FieldGrade))
	assert.Equal(t, FieldGrade, e.Active())

	e.EndDrag()
	e.EndDrag()
	assert.Empty(t, e.Active())

	// Moves after EndDrag are ignored.
	pos, _ := e.Position(FieldGrade)
	e.PointerMove(CanvasRect{}, 123, 456)
	after, _ := e.Position(FieldGrade)
	assert.Equal(t, pos, after)
}

func TestBeginDrag_UnknownFieldRejected(t *testing.T) {
	e := Load(frenchRecord(""), &fakeSaver{})
	err := e.BeginDrag("marksTable")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

// --- manual entry / page count ---

func TestSetFieldValue_ParsesAndClamps(t *testing.T) {
	e := Load(frenchRecord(""), &fakeSaver{})

	require.NoError(t, e.SetFieldValue(FieldGrade, AxisX, " 480 "))
	pos, _ := e.Position(FieldGrade)
	assert.Equal(t, 480, pos.X)

	// Invalid input is treated as 0.
	require.NoError(t, e.SetFieldValue(FieldGrade, AxisY, "abc"))
	pos, _ = e.Position(FieldGrade)
	assert.Equal(t, 0, pos.Y)

	// Manual entry clamps like pointer input does.
	require.NoError(t, e.SetFieldValue(FieldGrade, AxisX, "100000"))
	pos, _ = e.Position(FieldGrade)
	assert.Equal(t, domain.PageWidth, pos.X)

	require.Error(t, e.SetFieldValue(FieldGrade, "z", "1"))
	require.Error(t, e.SetFieldValue("nope", AxisX, "1"))
}

func TestSetPageCount_ClampsAndLeavesFieldsAlone(t *testing.T) {
	e := Load(frenchRecord(""), &fakeSaver{})
	before := e.Config()

	e.SetPageCount(9)
	assert.Equal(t, domain.MaxPages, e.NumPages())
	e.SetPageCount(0)
	assert.Equal(t, 1, e.NumPages())
	assert.Equal(t, before, e.Config())
}

// --- save / discard ---

func TestSave_AdvancesBaseline(t *testing.T) {
	saver := &fakeSaver{}
	e := Load(frenchRecord(""), saver)

	require.NoError(t, e.SetFieldValue(FieldGrade, AxisX, "111"))
	assert.True(t, e.Dirty())

	require.NoError(t, e.Save(context.Background(), "tok"))

	assert.False(t, e.Dirty())
	assert.Equal(t, 1, saver.calls)
	assert.Equal(t, 111, saver.got[FieldGrade].X)
}

func TestSave_FailureKeepsWorkingCopy(t *testing.T) {
	saver := &fakeSaver{err: errors.New("upstream down")}
	e := Load(frenchRecord(""), saver)
	require.NoError(t, e.SetFieldValue(FieldGrade, AxisX, "111"))

	err := e.Save(context.Background(), "tok")

	require.Error(t, err)
	assert.True(t, e.Dirty())
	pos, _ := e.Position(FieldGrade)
	assert.Equal(t, 111, pos.X)
}

func TestDiscard_RevertsToBaseline(t *testing.T) {
	e := Load(frenchRecord(""), &fakeSaver{})
	baseline := e.Config()

	require.NoError(t, e.BeginDrag(FieldStudentName))
	e.PointerMove(CanvasRect{}, 10, 10)
	e.SetPageCount(4)
	require.True(t, e.Dirty())

	e.Discard()

	assert.False(t, e.Dirty())
	assert.Equal(t, baseline, e.Config())
	assert.Equal(t, 2, e.NumPages())
	assert.Empty(t, e.Active())
}
