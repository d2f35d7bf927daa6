package app

import (
	"maps"
	"slices"
	"sync"

	"github.com/terra-clan/certificate-studio/internal/models"
)

// SelectorView is the rendered state of one selector
type SelectorView struct {
	Options []models.Option `json:"options"`
	Value   string          `json:"value"`
}

// ViewModel is what a client needs to draw the page
type ViewModel struct {
	Language       string                   `json:"language"`
	Labels         map[string]string        `json:"labels"`
	Selectors      map[string]SelectorView  `json:"selectors"`
	Fields         models.CertificateFields `json:"fields"`
	Message        string                   `json:"message,omitempty"`
	MessageVisible bool                     `json:"message_visible"`
}

// View is an in-memory UI holding the latest projection
type View struct {
	mu       sync.RWMutex
	missing  []string
	model    ViewModel
	messages []string
}

// NewView creates a view; missing lists control ids reported as absent
func NewView(missing ...string) *View {
	return &View{
		missing: missing,
		model: ViewModel{
			Labels:    map[string]string{},
			Selectors: map[string]SelectorView{},
		},
	}
}

func (v *View) CheckControls() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.missing)
}

func (v *View) SetActiveLanguage(lang string) {
	v.mu.Lock()
	v.model.Language = lang
	v.mu.Unlock()
}

func (v *View) SetLabels(labels map[string]string) {
	v.mu.Lock()
	v.model.Labels = maps.Clone(labels)
	if v.model.Labels == nil {
		v.model.Labels = map[string]string{}
	}
	v.mu.Unlock()
}

func (v *View) SetOptions(selector string, options []models.Option, value string) {
	v.mu.Lock()
	v.model.Selectors[selector] = SelectorView{Options: slices.Clone(options), Value: value}
	v.mu.Unlock()
}

func (v *View) SetFields(fields models.CertificateFields) {
	v.mu.Lock()
	v.model.Fields = fields
	v.mu.Unlock()
}

func (v *View) ShowMessage(text string) {
	v.mu.Lock()
	v.model.Message = text
	v.model.MessageVisible = true
	v.messages = append(v.messages, text)
	v.mu.Unlock()
}

func (v *View) HideMessage() {
	v.mu.Lock()
	v.model.MessageVisible = false
	v.mu.Unlock()
}

// Model returns a copy of the current view model
func (v *View) Model() ViewModel {
	v.mu.RLock()
	defer v.mu.RUnlock()

	m := v.model
	m.Labels = maps.Clone(v.model.Labels)
	m.Selectors = make(map[string]SelectorView, len(v.model.Selectors))
	for k, s := range v.model.Selectors {
		m.Selectors[k] = SelectorView{Options: slices.Clone(s.Options), Value: s.Value}
	}
	m.Fields.Skills = slices.Clone(v.model.Fields.Skills)
	m.Fields.Captions = maps.Clone(v.model.Fields.Captions)
	return m
}

// Messages returns every message shown so far, oldest first
func (v *View) Messages() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.messages)
}
