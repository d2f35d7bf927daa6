package app

import "github.com/terra-clan/certificate-studio/internal/models"

// Control ids the page cannot work without
const (
	ControlPage     = "a4Page"
	ControlExport   = "exportBtn"
	ControlCourse   = "slctCourse"
	ControlLevel    = "slctLevel"
	ControlLanguage = "slctLang"
)

// CriticalControls are checked once during Init
var CriticalControls = []string{ControlPage, ControlExport, ControlCourse, ControlLevel, ControlLanguage}

// UI is the one-way projection target of the controller. Implementations
// never feed state back; user events arrive through Controller methods.
type UI interface {
	// CheckControls returns the ids of missing critical controls
	CheckControls() []string
	SetActiveLanguage(lang string)
	SetLabels(labels map[string]string)
	// SetOptions replaces the options of a selector (ControlCourse or ControlLevel)
	SetOptions(selector string, options []models.Option, value string)
	SetFields(fields models.CertificateFields)
	ShowMessage(text string)
	HideMessage()
}
