package openlibrary

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// GermanLanguageKey is the Open Library key of the German language
const GermanLanguageKey = "/languages/ger"

// Edition is the subset of an Open Library edition record used to complete books
type Edition struct {
	Key           string       `json:"key"`
	Title         string       `json:"title"`
	TranslationOf string       `json:"translation_of,omitempty"`
	PublishDate   string       `json:"publish_date,omitempty"`
	Publishers    []string     `json:"publishers,omitempty"`
	Description   *Description `json:"description,omitempty"`
	Languages     []Reference  `json:"languages,omitempty"`
	NumberOfPages *int         `json:"number_of_pages,omitempty"`
}

// Reference is a link to another Open Library record
type Reference struct {
	Key string `json:"key"`
}

// Description is either a plain string or a typed text object in Open Library
type Description struct {
	Type  string `json:"type,omitempty"`
	Value string `json:"value"`
}

// UnmarshalJSON accepts both "text" and {"type": "/type/text", "value": "text"}
func (d *Description) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		d.Type = ""
		d.Value = s
		return nil
	}

	var obj struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("unsupported description format: %w", err)
	}
	d.Type = obj.Type
	d.Value = obj.Value
	return nil
}

// Text returns the description text, or "" for a nil description
func (d *Description) Text() string {
	if d == nil {
		return ""
	}
	return d.Value
}

// FirstLanguage returns the key of the first listed language, or ""
func (e *Edition) FirstLanguage() string {
	if e == nil || len(e.Languages) == 0 {
		return ""
	}
	return e.Languages[0].Key
}
