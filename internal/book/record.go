package book

// PropertyKind is the type tag Notion puts on every page property
type PropertyKind string

const (
	TypeTitle    PropertyKind = "title"
	TypeRichText PropertyKind = "rich_text"
	TypeRelation PropertyKind = "relation"
	TypeFiles    PropertyKind = "files"
	TypeDate     PropertyKind = "date"
	TypeSelect   PropertyKind = "select"
	TypeNumber   PropertyKind = "number"
)

// RichText is a single run of Notion rich text
type RichText struct {
	Type      string       `json:"type,omitempty"`
	Text      *TextContent `json:"text,omitempty"`
	PlainText string       `json:"plain_text,omitempty"`
}

// TextContent is the payload of a text run
type TextContent struct {
	Content string `json:"content"`
}

// RelationItem references another page
type RelationItem struct {
	ID string `json:"id"`
}

// FileObject is one entry of a files property
type FileObject struct {
	Type     string   `json:"type,omitempty"`
	Name     string   `json:"name,omitempty"`
	External *FileURL `json:"external,omitempty"`
	File     *FileURL `json:"file,omitempty"`
}

// FileURL holds the URL of an external or uploaded file
type FileURL struct {
	URL string `json:"url"`
}

// DateValue is the payload of a date property
type DateValue struct {
	Start    string  `json:"start"`
	End      *string `json:"end,omitempty"`
	TimeZone *string `json:"time_zone,omitempty"`
}

// SelectOption is the chosen option of a select property
type SelectOption struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type TitleProperty struct {
	ID    string     `json:"id"`
	Type  string     `json:"type"`
	Title []RichText `json:"title"`
}

type RichTextProperty struct {
	ID       string     `json:"id"`
	Type     string     `json:"type"`
	RichText []RichText `json:"rich_text"`
}

type RelationProperty struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Relation []RelationItem `json:"relation"`
	HasMore  bool           `json:"has_more"`
}

type FilesProperty struct {
	ID    string       `json:"id"`
	Type  string       `json:"type"`
	Files []FileObject `json:"files"`
}

type DateProperty struct {
	ID   string     `json:"id"`
	Type string     `json:"type"`
	Date *DateValue `json:"date"`
}

type SelectProperty struct {
	ID     string        `json:"id"`
	Type   string        `json:"type"`
	Select *SelectOption `json:"select"`
}

type NumberProperty struct {
	ID     string   `json:"id"`
	Type   string   `json:"type"`
	Number *float64 `json:"number"`
}

// Record is the validated, typed view over a book page's properties
type Record struct {
	Title         TitleProperty
	ISBN          RichTextProperty
	Author        RelationProperty
	Cover         FilesProperty
	OriginalTitle RichTextProperty
	PublishDate   DateProperty
	Publisher     RichTextProperty
	Description   RichTextProperty
	Language      SelectProperty
	Pages         NumberProperty
}
