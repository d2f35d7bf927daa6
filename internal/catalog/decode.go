package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/terra-clan/certificate-studio/internal/models"
)

// decodeTranslations parses translations.json: language -> key -> label
func decodeTranslations(data []byte) (models.Translations, error) {
	var tr models.Translations
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, fmt.Errorf("failed to parse translations: %w", err)
	}
	if tr == nil {
		tr = models.Translations{}
	}
	return tr, nil
}

// decodeCatalog parses courseData.json keeping object key order.
// encoding/json maps drop order, so objects are walked token by token.
func decodeCatalog(data []byte) (*models.Catalog, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return models.NewCatalog(nil), nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	var courses []*models.Course
	err := walkObject(dec, func(id string) error {
		course, err := decodeCourse(dec, id)
		if err != nil {
			return err
		}
		courses = append(courses, course)
		return nil
	})
	if errors.Is(err, errNull) {
		return models.NewCatalog(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse course data: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("failed to parse course data: unexpected data after top-level object")
	}

	return models.NewCatalog(courses), nil
}

func decodeCourse(dec *json.Decoder, id string) (*models.Course, error) {
	course := &models.Course{ID: id, Editions: map[string]*models.CourseEdition{}}
	err := walkObject(dec, func(lang string) error {
		edition, err := decodeEdition(dec)
		if err != nil {
			return fmt.Errorf("language %q: %w", lang, err)
		}
		course.Editions[lang] = edition
		return nil
	})
	if err != nil && !errors.Is(err, errNull) {
		return nil, fmt.Errorf("course %q: %w", id, err)
	}
	return course, nil
}

func decodeEdition(dec *json.Decoder) (*models.CourseEdition, error) {
	edition := &models.CourseEdition{}
	err := walkObject(dec, func(key string) error {
		switch key {
		case "title":
			if err := dec.Decode(&edition.Title); err != nil {
				return fmt.Errorf("title: %w", err)
			}
		case "levels":
			levels, err := decodeLevels(dec)
			if err != nil {
				return fmt.Errorf("levels: %w", err)
			}
			edition.Levels = levels
		default:
			var skip json.RawMessage
			return dec.Decode(&skip)
		}
		return nil
	})
	if err != nil && !errors.Is(err, errNull) {
		return nil, err
	}
	return edition, nil
}

func decodeLevels(dec *json.Decoder) ([]models.Level, error) {
	levels := []models.Level{}
	err := walkObject(dec, func(name string) error {
		level := models.Level{Name: name}
		if err := dec.Decode(&level.Skills); err != nil {
			return fmt.Errorf("level %q: %w", name, err)
		}
		levels = append(levels, level)
		return nil
	})
	if errors.Is(err, errNull) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return levels, nil
}

// errNull reports a null where an object was expected
var errNull = errors.New("null value")

// walkObject consumes one object, calling fn for each key in document order.
// fn must consume the value. A null value consumes one token and returns errNull.
func walkObject(dec *json.Decoder, fn func(key string) error) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return errNull
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected object, got %s", tokenKind(tok))
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %s", tokenKind(tok))
		}
		if err := fn(key); err != nil {
			return err
		}
	}

	// closing brace
	_, err = dec.Token()
	return err
}

func tokenKind(tok json.Token) string {
	switch v := tok.(type) {
	case json.Delim:
		if v == '[' {
			return "array"
		}
		return "object"
	case string:
		return "string"
	case float64, json.Number:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return "scalar"
	}
}
