package book

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Field names one semantic value of a book
type Field string

const (
	FieldTitle         Field = "title"
	FieldISBN          Field = "isbn"
	FieldAuthor        Field = "author_ref"
	FieldCover         Field = "cover"
	FieldOriginalTitle Field = "original_title"
	FieldPublishDate   Field = "publish_date"
	FieldPublisher     Field = "publisher"
	FieldDescription   Field = "description"
	FieldLanguage      Field = "language"
	FieldPages         Field = "pages"
)

// fieldKinds lists every field with the property type it is stored as.
// The order is the order properties are validated and patched in.
var fieldKinds = []struct {
	field Field
	kind  PropertyKind
}{
	{FieldTitle, TypeTitle},
	{FieldISBN, TypeRichText},
	{FieldAuthor, TypeRelation},
	{FieldCover, TypeFiles},
	{FieldOriginalTitle, TypeRichText},
	{FieldPublishDate, TypeDate},
	{FieldPublisher, TypeRichText},
	{FieldDescription, TypeRichText},
	{FieldLanguage, TypeSelect},
	{FieldPages, TypeNumber},
}

// Properties holds the Notion property label used for each field
type Properties struct {
	Title         string
	ISBN          string
	Author        string
	Cover         string
	OriginalTitle string
	PublishDate   string
	Publisher     string
	Description   string
	Language      string
	Pages         string
}

// DefaultProperties returns the labels of the book database the tool was built for
func DefaultProperties() Properties {
	return Properties{
		Title:         "Titel",
		ISBN:          "ISBN",
		Author:        "Autor",
		Cover:         "Cover",
		OriginalTitle: "Originaltitel",
		PublishDate:   "Veröffentlichungsdatum",
		Publisher:     "Verlag",
		Description:   "Klappentext",
		Language:      "Sprache",
		Pages:         "Seiten",
	}
}

// Label returns the property label for the field
func (p Properties) Label(f Field) string {
	switch f {
	case FieldTitle:
		return p.Title
	case FieldISBN:
		return p.ISBN
	case FieldAuthor:
		return p.Author
	case FieldCover:
		return p.Cover
	case FieldOriginalTitle:
		return p.OriginalTitle
	case FieldPublishDate:
		return p.PublishDate
	case FieldPublisher:
		return p.Publisher
	case FieldDescription:
		return p.Description
	case FieldLanguage:
		return p.Language
	case FieldPages:
		return p.Pages
	}
	return ""
}

// withDefaults fills every empty label with its default
func (p Properties) withDefaults() Properties {
	d := DefaultProperties()
	fill := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	fill(&p.Title, d.Title)
	fill(&p.ISBN, d.ISBN)
	fill(&p.Author, d.Author)
	fill(&p.Cover, d.Cover)
	fill(&p.OriginalTitle, d.OriginalTitle)
	fill(&p.PublishDate, d.PublishDate)
	fill(&p.Publisher, d.Publisher)
	fill(&p.Description, d.Description)
	fill(&p.Language, d.Language)
	fill(&p.Pages, d.Pages)
	return p
}

const schemaResource = "book-properties.json"

// Schema validates raw page properties and maps fields to property labels
type Schema struct {
	props     Properties
	validator *jsonschema.Schema
}

// NewSchema compiles the property schema for the given labels.
// Empty labels fall back to DefaultProperties.
func NewSchema(props Properties) (*Schema, error) {
	props = props.withDefaults()

	seen := make(map[string]Field, len(fieldKinds))
	for _, fk := range fieldKinds {
		label := props.Label(fk.field)
		if other, ok := seen[label]; ok {
			return nil, fmt.Errorf("property label %q is used for both %s and %s", label, other, fk.field)
		}
		seen[label] = fk.field
	}

	raw, err := json.Marshal(props.jsonSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to encode property schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaResource, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to load property schema: %w", err)
	}
	validator, err := compiler.Compile(schemaResource)
	if err != nil {
		return nil, fmt.Errorf("failed to compile property schema: %w", err)
	}

	return &Schema{props: props, validator: validator}, nil
}

// Properties returns the labels the schema was built with
func (s *Schema) Properties() Properties {
	return s.props
}

// ParseRecord validates a page's property bag and decodes it into a Record.
// Properties not named by the schema are ignored.
func (s *Schema) ParseRecord(properties json.RawMessage) (*Record, error) {
	var doc any
	if err := json.Unmarshal(properties, &doc); err != nil {
		return nil, fmt.Errorf("%w: properties are not valid JSON: %v", ErrSchemaMismatch, err)
	}
	if err := s.validator.Validate(doc); err != nil {
		return nil, schemaError(err)
	}

	var bag map[string]json.RawMessage
	if err := json.Unmarshal(properties, &bag); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}

	rec := &Record{}
	targets := []struct {
		label string
		dst   any
	}{
		{s.props.Title, &rec.Title},
		{s.props.ISBN, &rec.ISBN},
		{s.props.Author, &rec.Author},
		{s.props.Cover, &rec.Cover},
		{s.props.OriginalTitle, &rec.OriginalTitle},
		{s.props.PublishDate, &rec.PublishDate},
		{s.props.Publisher, &rec.Publisher},
		{s.props.Description, &rec.Description},
		{s.props.Language, &rec.Language},
		{s.props.Pages, &rec.Pages},
	}
	for _, t := range targets {
		if err := json.Unmarshal(bag[t.label], t.dst); err != nil {
			return nil, fmt.Errorf("%w: property %q: %v", ErrSchemaMismatch, t.label, err)
		}
	}
	return rec, nil
}

var pointerUnescaper = strings.NewReplacer("~1", "/", "~0", "~")

// schemaError turns a validation failure into an ErrSchemaMismatch naming the
// offending property
func schemaError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}

	location := strings.TrimPrefix(ve.InstanceLocation, "/")
	if location == "" {
		return fmt.Errorf("%w: %s", ErrSchemaMismatch, ve.Message)
	}
	property := pointerUnescaper.Replace(strings.SplitN(location, "/", 2)[0])
	return fmt.Errorf("%w: property %q: %s", ErrSchemaMismatch, property, ve.Message)
}

func (p Properties) jsonSchema() map[string]any {
	props := make(map[string]any, len(fieldKinds))
	required := make([]string, 0, len(fieldKinds))
	for _, fk := range fieldKinds {
		label := p.Label(fk.field)
		props[label] = kindSchema(fk.kind)
		required = append(required, label)
	}
	return map[string]any{
		"type":       "object",
		"required":   required,
		"properties": props,
	}
}

func kindSchema(kind PropertyKind) map[string]any {
	run := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"plain_text": map[string]any{"type": "string"},
			"text": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"content": map[string]any{"type": "string"},
				},
			},
		},
	}
	arrayOf := func(items map[string]any) map[string]any {
		return map[string]any{"type": "array", "items": items}
	}

	var (
		payload  any
		required = []string{"type", string(kind)}
	)
	switch kind {
	case TypeTitle, TypeRichText:
		payload = arrayOf(run)
	case TypeRelation:
		payload = arrayOf(map[string]any{
			"type":       "object",
			"required":   []string{"id"},
			"properties": map[string]any{"id": map[string]any{"type": "string"}},
		})
	case TypeFiles:
		payload = arrayOf(map[string]any{
			"type":       "object",
			"properties": map[string]any{"name": map[string]any{"type": "string"}},
		})
	case TypeDate:
		// Notion may omit an unset date entirely
		required = []string{"type"}
		payload = map[string]any{
			"type": []string{"object", "null"},
			"properties": map[string]any{
				"start": map[string]any{"type": []string{"string", "null"}},
			},
		}
	case TypeSelect:
		payload = map[string]any{
			"type": []string{"object", "null"},
			"properties": map[string]any{
				"name": map[string]any{"type": "string"},
			},
		}
	case TypeNumber:
		// the only number property is the page count
		payload = map[string]any{"type": []string{"integer", "null"}}
	}

	return map[string]any{
		"type":     "object",
		"required": required,
		"properties": map[string]any{
			"type":       map[string]any{"const": string(kind)},
			string(kind): payload,
		},
	}
}
