package alignment

import "github.com/edudash-core/internal/domain"

// Field keys for the certificate templates. Page-1 keys sit in the upper
// band of the stacked canvas, page-2 keys in the lower band. marksTable is a
// retired key still present in old persisted configs; it is dropped on load.
const (
	FieldStudentName  = "studentName"
	FieldCourseLevel  = "courseLevel"
	FieldStartDate    = "startDate"
	FieldEndDate      = "endDate"
	FieldIssueDate    = "issueDate"
	FieldSignature    = "directorSignature"
	FieldSection1Mark = "section1Mark"
	FieldSection2Mark = "section2Mark"
	FieldSection3Mark = "section3Mark"
	FieldSection4Mark = "section4Mark"
	FieldTotalMark    = "totalMark"
	FieldGrade        = "grade"

	obsoleteMarksTable = "marksTable"
)

// FieldKeys returns the canonical ordered field set for a certificate
// language. Japanese certificates have three exam sections, so section4Mark
// is absent from both rendering and the editable set.
func FieldKeys(lang domain.Language) []string {
	keys := []string{
		FieldStudentName,
		FieldCourseLevel,
		FieldStartDate,
		FieldEndDate,
		FieldIssueDate,
		FieldSignature,
		FieldSection1Mark,
		FieldSection2Mark,
		FieldSection3Mark,
	}
	if lang != domain.LanguageJapanese {
		keys = append(keys, FieldSection4Mark)
	}
	return append(keys, FieldTotalMark, FieldGrade)
}

var sectionLabels = map[domain.Language][]string{
	domain.LanguageFrench:   {"Compréhension écrite", "Compréhension orale", "Expression écrite", "Expression orale"},
	domain.LanguageGerman:   {"Lesen", "Hören", "Schreiben", "Sprechen"},
	domain.LanguageJapanese: {"語彙・文法", "読解", "聴解"},
}

// FieldLabel returns the operator-facing label for a field key. Marks
// sections carry per-language exam section names.
func FieldLabel(lang domain.Language, key string) string {
	sectionIdx := map[string]int{
		FieldSection1Mark: 0,
		FieldSection2Mark: 1,
		FieldSection3Mark: 2,
		FieldSection4Mark: 3,
	}
	if i, ok := sectionIdx[key]; ok {
		if labels := sectionLabels[lang]; i < len(labels) {
			return labels[i]
		}
		return key
	}
	switch key {
	case FieldStudentName:
		return "Student name"
	case FieldCourseLevel:
		return "Course level"
	case FieldStartDate:
		return "Start date"
	case FieldEndDate:
		return "End date"
	case FieldIssueDate:
		return "Issue date"
	case FieldSignature:
		return "Director signature"
	case FieldTotalMark:
		return "Total"
	case FieldGrade:
		return "Grade"
	}
	return key
}

// defaultPositions covers every key any language can use. Page-1 fields are
// placed in the second page band from the bottom because the default
// template stacks two pages.
var defaultPositions = map[string]domain.FieldPosition{
	FieldStudentName:  {X: 180, Y: 1310, Size: 24},
	FieldCourseLevel:  {X: 240, Y: 1240, Size: 18},
	FieldStartDate:    {X: 140, Y: 1120, Size: 12},
	FieldEndDate:      {X: 340, Y: 1120, Size: 12},
	FieldIssueDate:    {X: 140, Y: 980, Size: 12},
	FieldSignature:    {X: 400, Y: 950, Size: 14},
	FieldSection1Mark: {X: 420, Y: 560, Size: 12},
	FieldSection2Mark: {X: 420, Y: 510, Size: 12},
	FieldSection3Mark: {X: 420, Y: 460, Size: 12},
	FieldSection4Mark: {X: 420, Y: 410, Size: 12},
	FieldTotalMark:    {X: 420, Y: 330, Size: 14},
	FieldGrade:        {X: 420, Y: 270, Size: 16},
}

// DefaultConfig builds the full default alignment map for a language.
func DefaultConfig(lang domain.Language) domain.AlignmentConfig {
	cfg := make(domain.AlignmentConfig)
	for _, key := range FieldKeys(lang) {
		cfg[key] = defaultPositions[key]
	}
	return cfg
}
