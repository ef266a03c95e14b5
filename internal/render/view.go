package render

import "github.com/prepline/prepline-backend/internal/model"

// Widget names the interactive control bound to a question.
type Widget string

const (
	WidgetRadio      Widget = "radio"
	WidgetButtonGrid Widget = "button_grid"
	WidgetDropdown   Widget = "dropdown"
	WidgetTextInput  Widget = "text_input"
	WidgetInlineText Widget = "inline_text"
)

// SegmentKind discriminates inline flow segments.
type SegmentKind string

const (
	SegmentText  SegmentKind = "text"
	SegmentInput SegmentKind = "input"
)

// BoundInput binds an input control to a question and carries the user's
// current answer. Writes never flow through the view; they go through the
// answer store.
type BoundInput struct {
	QuestionID string `json:"question_id"`
	Order      int    `json:"order"`
	Value      string `json:"value"`
}

// Segment is one element of an inline flow: a literal text run or a bound
// inline input substituted at a slot.
type Segment struct {
	Kind  SegmentKind `json:"kind"`
	Text  string      `json:"text,omitempty"`
	Input *BoundInput `json:"input,omitempty"`
}

// ChoiceInput is a question rendered as a selection over an option set.
type ChoiceInput struct {
	QuestionID string         `json:"question_id"`
	Order      int            `json:"order"`
	Prompt     string         `json:"prompt,omitempty"`
	Widget     Widget         `json:"widget"`
	Options    []model.Option `json:"options"`
	Selected   string         `json:"selected,omitempty"`
}

// TableView is the rendered table of a table_completion group.
type TableView struct {
	Columns []string    `json:"columns"`
	Rows    [][]CellView `json:"rows"`
}

// CellView is one rendered table cell.
type CellView struct {
	Segments []Segment `json:"segments"`
}

// GroupView is the interactive presentation of one question group: a pure
// projection of (group, current answers).
type GroupView struct {
	GroupID      string           `json:"group_id"`
	Type         model.GroupType  `json:"group_type"`
	Layout       model.LayoutHint `json:"layout_hint,omitempty"`
	Title        string           `json:"title"`
	Instructions string           `json:"instructions"`
	Content      string           `json:"content,omitempty"`
	Choices      []ChoiceInput    `json:"choices,omitempty"`
	Flow         []Segment        `json:"flow,omitempty"`
	Table        *TableView       `json:"table,omitempty"`
	WordBank     []model.Option   `json:"word_bank,omitempty"`
	Texts        []BoundInput     `json:"texts,omitempty"`
}
