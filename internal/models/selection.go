package models

// Option is one entry of a selector
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Selection is the user's current language/course/level choice
type Selection struct {
	Language string `json:"language"`
	CourseID string `json:"course_id"`
	Level    string `json:"level"`
}

// Inputs holds raw user-entered values
type Inputs struct {
	Name    string `json:"name"`
	Date    string `json:"date"` // 2006-01-02, empty when unset
	StampOn bool   `json:"stamp_on"`
}

// Display modes applied to the stamp
const (
	DisplayBlock = "block"
	DisplayNone  = "none"
)

// StampStyle carries both visibility knobs of the stamp image
type StampStyle struct {
	Opacity float64 `json:"opacity"`
	Display string  `json:"display"`
}

// Visible reports whether the stamp ends up on the page
func (s StampStyle) Visible() bool {
	return s.Display != DisplayNone && s.Opacity > 0
}

// CertificateFields is the derived view pushed to the presentation surface
type CertificateFields struct {
	Language    string            `json:"language"`
	Date        string            `json:"date"`
	Name        string            `json:"name"`
	CourseTitle string            `json:"course_title"`
	LevelLabel  string            `json:"level_label"`
	CertLevel   string            `json:"cert_level"`
	Skills      []string          `json:"skills"`
	Stamp       StampStyle        `json:"stamp"`
	Captions    map[string]string `json:"captions,omitempty"`
}
