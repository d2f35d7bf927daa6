package models

import (
	"sort"
	"strings"
)

// Translations maps a language code to its flat key/value label table
type Translations map[string]map[string]string

// T returns the label for key in lang, or fallback when either is missing
func (t Translations) T(lang, key, fallback string) string {
	if table, ok := t[lang]; ok {
		if v := table[key]; v != "" {
			return v
		}
	}
	return fallback
}

// Has reports whether a label table exists for lang
func (t Translations) Has(lang string) bool {
	_, ok := t[lang]
	return ok
}

// Languages returns the language codes in lexical order
func (t Translations) Languages() []string {
	langs := make([]string, 0, len(t))
	for lang := range t {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Table returns a copy of the labels for lang
func (t Translations) Table(lang string) map[string]string {
	src := t[lang]
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// Level is a named skill level within a course edition
type Level struct {
	Name   string   `json:"name"`
	Skills []string `json:"skills"`
}

// CourseEdition is a course as presented in one language
type CourseEdition struct {
	Title  string  `json:"title"`
	Levels []Level `json:"levels"`
}

// Level looks up a level by name
func (e *CourseEdition) Level(name string) (*Level, bool) {
	if e == nil || name == "" {
		return nil, false
	}
	for i := range e.Levels {
		if e.Levels[i].Name == name {
			return &e.Levels[i], true
		}
	}
	return nil, false
}

// HasTitle reports whether the edition is listable
func (e *CourseEdition) HasTitle() bool {
	return e != nil && strings.TrimSpace(e.Title) != ""
}

// Course is one catalog entry with its per-language editions
type Course struct {
	ID       string                    `json:"id"`
	Editions map[string]*CourseEdition `json:"editions"`
}

// Edition returns the course edition for lang, or nil
func (c *Course) Edition(lang string) *CourseEdition {
	if c == nil {
		return nil
	}
	return c.Editions[lang]
}

// Catalog is the ordered course catalog
type Catalog struct {
	courses []*Course
	index   map[string]*Course
}

// NewCatalog builds a catalog preserving the given order.
// A repeated id replaces the earlier entry in place.
func NewCatalog(courses []*Course) *Catalog {
	c := &Catalog{index: make(map[string]*Course, len(courses))}
	for _, course := range courses {
		if course == nil || course.ID == "" {
			continue
		}
		if _, exists := c.index[course.ID]; exists {
			for i := range c.courses {
				if c.courses[i].ID == course.ID {
					c.courses[i] = course
				}
			}
		} else {
			c.courses = append(c.courses, course)
		}
		c.index[course.ID] = course
	}
	return c
}

// Courses returns the courses in catalog order
func (c *Catalog) Courses() []*Course {
	if c == nil {
		return nil
	}
	return c.courses
}

// Course returns a course by id, or nil
func (c *Catalog) Course(id string) *Course {
	if c == nil {
		return nil
	}
	return c.index[id]
}

// Edition returns the edition of course id in lang, or nil
func (c *Catalog) Edition(id, lang string) *CourseEdition {
	return c.Course(id).Edition(lang)
}

// Len returns the number of courses
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.courses)
}
