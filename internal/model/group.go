package model

// GroupType selects the rendering and grading strategy of a question group.
// Unknown source tags pass through lower-cased, so values outside this set
// are possible and are treated as free_text by the renderer.
type GroupType string

const (
	GroupBooleanChoice   GroupType = "boolean_choice"
	GroupMultipleChoice  GroupType = "multiple_choice"
	GroupMatching        GroupType = "matching"
	GroupTableCompletion GroupType = "table_completion"
	GroupSlotCompletion  GroupType = "slot_completion"
	GroupFreeText        GroupType = "free_text"
)

// LayoutHint disambiguates the two multiple_choice presentations. It is
// decided once by the normalizer, never re-derived at render time.
type LayoutHint string

const (
	LayoutPerQuestion   LayoutHint = "per_question"
	LayoutSharedOptions LayoutHint = "shared_options"
)

// Option is one {key, text} pair of a word bank, matching list or MCQ choice
// set. Source formats may carry bare strings; the normalizer projects both
// shapes into this one.
type Option struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// RichTextElement is one element of an inline flow: either a literal text run
// or a slot bound to a question by its 1-based order. SlotOrder > 0 marks a
// slot; otherwise the element is text.
type RichTextElement struct {
	Text      string `json:"text,omitempty"`
	SlotOrder int    `json:"slot_order,omitempty"`
}

// ContainerKind discriminates the two container layouts.
type ContainerKind string

const (
	ContainerRich  ContainerKind = "rich"
	ContainerTable ContainerKind = "table"
)

// Cell is the content of one table cell: literal text, a slot, or a mix.
type Cell []RichTextElement

// Container carries the structured body of completion-style groups: either a
// rich-text flow with inline slots or a table whose cells may hold slots.
type Container struct {
	Kind    ContainerKind     `json:"kind"`
	Rich    []RichTextElement `json:"rich,omitempty"`
	Columns []string          `json:"columns,omitempty"`
	Rows    [][]Cell          `json:"rows,omitempty"`
}

// QuestionGroup is one rendering and grading unit.
type QuestionGroup struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Instructions string     `json:"instructions"`
	Type         GroupType  `json:"group_type"`
	Layout       LayoutHint `json:"layout_hint,omitempty"`
	Content      string     `json:"content,omitempty"`
	Container    *Container `json:"container,omitempty"`
	Options      []Option   `json:"options,omitempty"`
	Questions    []Question `json:"questions"`
}

// QuestionByOrder resolves a slot order to the group's question carrying that
// order. Returns nil when no question matches, callers drop such slots.
func (g *QuestionGroup) QuestionByOrder(order int) *Question {
	for i := range g.Questions {
		if g.Questions[i].Order == order {
			return &g.Questions[i]
		}
	}
	return nil
}

// EffectiveOptions returns a question's own option list, falling back to the
// group-level list when the question declares none.
func (g *QuestionGroup) EffectiveOptions(q *Question) []Option {
	if len(q.Options) > 0 {
		return q.Options
	}
	return g.Options
}
