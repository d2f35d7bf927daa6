// Package present derives the strings shown on the certificate from the
// selection state, the raw inputs and the translation table.
package present

import (
	"fmt"
	"strings"
	"time"

	"github.com/terra-clan/certificate-studio/internal/models"
)

// DateLayout is the layout of the raw date input
const DateLayout = "2006-01-02"

// FallbackDateLanguage supplies month names for languages without a table
const FallbackDateLanguage = "en"

// StampDefaultLanguage is the language whose selection turns the stamp back on.
// Other languages leave the toggle untouched.
const StampDefaultLanguage = "ru"

// Translation keys read by the derivations
const (
	KeyLevelPrefix     = "cptLevelPrefix"
	KeyLevelSuffix     = "cptLevelSuffix"
	KeyLevelGeneric    = "cptLevel"
	KeyCourseOption    = "selectCourseOption"
	KeyLevelOption     = "selectLevelOption"
	KeyNameRequired    = "studentNameRequired"
	KeyPDFErrorPrefix  = "pdfErrorMessagePrefix"
	KeyCertTitle       = "certificateTitle"
	KeyCertAwarded     = "certificateAwarded"
	KeyCertSkills      = "certificateSkills"
	KeyCertDateCaption = "certificateDate"
)

// Untranslated labels, used when a key is missing
const (
	DefaultCourseOption   = "Выберите курс"
	DefaultLevelOption    = "Выберите уровень"
	DefaultLevelGeneric   = "Уровень"
	DefaultNameRequired   = "Введите имя студента"
	DefaultPDFErrorPrefix = "Ошибка:"
)

var monthNames = map[string][12]string{
	"ru": {"января", "февраля", "марта", "апреля", "мая", "июня", "июля", "августа", "сентября", "октября", "ноября", "декабря"},
	"en": {"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"},
}

// captionDefaults are the labels printed on the certificate body
var captionDefaults = map[string]string{
	KeyCertTitle:       "СЕРТИФИКАТ",
	KeyCertAwarded:     "Настоящим подтверждается, что",
	KeyCertSkills:      "Освоенные навыки",
	KeyCertDateCaption: "Дата",
}

// FormatDate renders t as "<day> <month>, <year>" using lang's month names
func FormatDate(t time.Time, lang string) string {
	months, ok := monthNames[lang]
	if !ok {
		months = monthNames[FallbackDateLanguage]
	}
	return fmt.Sprintf("%d %s, %04d", t.Day(), months[t.Month()-1], t.Year())
}

// FormatInputDate parses a raw input date and formats it; empty or
// malformed input yields "".
func FormatInputDate(raw, lang string) string {
	t, err := ParseDate(raw)
	if err != nil {
		return ""
	}
	return FormatDate(t, lang)
}

// ParseDate parses a raw input date (2006-01-02)
func ParseDate(raw string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(raw))
}

// LevelLabel is the "current level" readout: prefix, level, suffix, trimmed
func LevelLabel(tr models.Translations, lang, level string) string {
	prefix := tr.T(lang, KeyLevelPrefix, "")
	suffix := tr.T(lang, KeyLevelSuffix, "")
	return strings.TrimSpace(prefix + " " + level + " " + suffix)
}

// CertificateLevel is the level shown in the certificate body
func CertificateLevel(tr models.Translations, lang, level string) string {
	if level != "" {
		return level
	}
	return tr.T(lang, KeyLevelGeneric, DefaultLevelGeneric)
}

// Skills drops blank entries
func Skills(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// StampAfterLanguageSwitch returns the stamp toggle after switching to lang
func StampAfterLanguageSwitch(current bool, lang string) bool {
	if lang == StampDefaultLanguage {
		return true
	}
	return current
}

// StampStyleFor maps the toggle onto opacity and display together
func StampStyleFor(on bool) models.StampStyle {
	if on {
		return models.StampStyle{Opacity: 1, Display: models.DisplayBlock}
	}
	return models.StampStyle{Opacity: 0, Display: models.DisplayNone}
}

// Captions returns the translated certificate body labels
func Captions(tr models.Translations, lang string) map[string]string {
	out := make(map[string]string, len(captionDefaults))
	for key, fallback := range captionDefaults {
		out[key] = tr.T(lang, key, fallback)
	}
	return out
}

// Derive computes every certificate field. Missing course or level data
// yields empty fields, never an error.
func Derive(cat *models.Catalog, tr models.Translations, sel models.Selection, in models.Inputs) models.CertificateFields {
	fields := models.CertificateFields{
		Language:   sel.Language,
		Date:       FormatInputDate(in.Date, sel.Language),
		Name:       in.Name,
		LevelLabel: LevelLabel(tr, sel.Language, sel.Level),
		CertLevel:  CertificateLevel(tr, sel.Language, sel.Level),
		Skills:     []string{},
		Stamp:      StampStyleFor(in.StampOn),
		Captions:   Captions(tr, sel.Language),
	}

	edition := cat.Edition(sel.CourseID, sel.Language)
	if edition == nil {
		return fields
	}
	fields.CourseTitle = edition.Title
	if level, ok := edition.Level(sel.Level); ok {
		fields.Skills = Skills(level.Skills)
	}
	return fields
}
