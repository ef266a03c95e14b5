package render

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepline/prepline-backend/internal/model"
)

type mapReader map[string]string

func (m mapReader) Get(id string) string { return m[id] }

func TestBooleanChoiceRendersRadios(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())

	g := &model.QuestionGroup{
		ID:      "g1",
		Type:    model.GroupBooleanChoice,
		Options: []model.Option{{Key: "TRUE", Text: "TRUE"}, {Key: "FALSE", Text: "FALSE"}, {Key: "NOT GIVEN", Text: "NOT GIVEN"}},
		Questions: []model.Question{
			{ID: "q1", Order: 1, Text: "The river froze."},
			{ID: "q2", Order: 2, Text: "It was hot."},
		},
	}

	view := d.BuildGroupView(g, mapReader{"q1": "FALSE"})

	require.Len(t, view.Choices, 2)
	assert.Equal(t, WidgetRadio, view.Choices[0].Widget)
	assert.Equal(t, "FALSE", view.Choices[0].Selected)
	assert.Equal(t, "", view.Choices[1].Selected)
	assert.Len(t, view.Choices[0].Options, 3)
}

func TestMultipleChoiceLayoutSelectsWidget(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	opts := []model.Option{{Key: "A", Text: "A"}, {Key: "B", Text: "B"}}

	perQuestion := &model.QuestionGroup{
		Type:   model.GroupMultipleChoice,
		Layout: model.LayoutPerQuestion,
		Questions: []model.Question{
			{ID: "q1", Order: 1, Text: "What does the author claim?", Options: opts},
		},
	}
	view := d.BuildGroupView(perQuestion, mapReader{})
	assert.Equal(t, WidgetRadio, view.Choices[0].Widget)

	shared := &model.QuestionGroup{
		Type:    model.GroupMultipleChoice,
		Layout:  model.LayoutSharedOptions,
		Options: opts,
		Questions: []model.Question{
			{ID: "q1", Order: 1},
			{ID: "q2", Order: 2},
		},
	}
	view = d.BuildGroupView(shared, mapReader{})
	assert.Equal(t, WidgetButtonGrid, view.Choices[0].Widget)
	assert.Equal(t, opts, view.Choices[1].Options)
}

func TestMatchingUsesSharedDropdowns(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	headings := []model.Option{{Key: "i", Text: "A growing problem"}, {Key: "ii", Text: "The solution"}}

	g := &model.QuestionGroup{
		Type:    model.GroupMatching,
		Options: headings,
		Questions: []model.Question{
			// Even a question with its own options uses the group list.
			{ID: "q1", Order: 1, Options: []model.Option{{Key: "x", Text: "x"}}},
		},
	}

	view := d.BuildGroupView(g, mapReader{})
	require.Len(t, view.Choices, 1)
	assert.Equal(t, WidgetDropdown, view.Choices[0].Widget)
	assert.Equal(t, headings, view.Choices[0].Options)
}

func TestSlotFlowSubstitutesInputs(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())

	g := &model.QuestionGroup{
		ID:   "g1",
		Type: model.GroupSlotCompletion,
		Container: &model.Container{
			Kind: model.ContainerRich,
			Rich: []model.RichTextElement{
				{Text: "Water flows into the "},
				{SlotOrder: 4},
				{Text: " before treatment."},
			},
		},
		Options: []model.Option{{Key: "reservoir", Text: "reservoir"}},
		Questions: []model.Question{
			{ID: "q4", Order: 4},
		},
	}

	view := d.BuildGroupView(g, mapReader{"q4": "reservoir"})

	require.Len(t, view.Flow, 3)
	assert.Equal(t, SegmentText, view.Flow[0].Kind)
	assert.Equal(t, SegmentInput, view.Flow[1].Kind)
	require.NotNil(t, view.Flow[1].Input)
	assert.Equal(t, "q4", view.Flow[1].Input.QuestionID)
	assert.Equal(t, "reservoir", view.Flow[1].Input.Value)
	assert.Equal(t, g.Options, view.WordBank)
}

func TestUnresolvableSlotRendersNothing(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())

	g := &model.QuestionGroup{
		ID:   "g1",
		Type: model.GroupSlotCompletion,
		Container: &model.Container{
			Kind: model.ContainerRich,
			Rich: []model.RichTextElement{
				{Text: "before "},
				{SlotOrder: 99},
				{Text: "after"},
			},
		},
		Questions: []model.Question{{ID: "q1", Order: 1}},
	}

	view := d.BuildGroupView(g, mapReader{})

	// The orphan slot is skipped; the surrounding text survives.
	require.Len(t, view.Flow, 2)
	assert.Equal(t, "before ", view.Flow[0].Text)
	assert.Equal(t, "after", view.Flow[1].Text)
}

func TestSlotCompletionWithoutContainerDegrades(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())

	g := &model.QuestionGroup{
		Type:    model.GroupSlotCompletion,
		Options: []model.Option{{Key: "a", Text: "a"}},
		Questions: []model.Question{
			{ID: "q1", Order: 1},
			{ID: "q2", Order: 2},
		},
	}

	view := d.BuildGroupView(g, mapReader{"q2": "typed"})

	assert.Nil(t, view.Flow)
	require.Len(t, view.Texts, 2)
	assert.Equal(t, "typed", view.Texts[1].Value)
	assert.Equal(t, g.Options, view.WordBank)
}

func TestTableCompletion(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())

	g := &model.QuestionGroup{
		ID:   "g1",
		Type: model.GroupTableCompletion,
		Container: &model.Container{
			Kind:    model.ContainerTable,
			Columns: []string{"Stage", "Detail"},
			Rows: [][]model.Cell{
				{
					{{Text: "Filtering"}},
					{{Text: "removes "}, {SlotOrder: 2}},
				},
			},
		},
		Questions: []model.Question{{ID: "q2", Order: 2}},
	}

	view := d.BuildGroupView(g, mapReader{"q2": "debris"})

	require.NotNil(t, view.Table)
	assert.Equal(t, []string{"Stage", "Detail"}, view.Table.Columns)
	require.Len(t, view.Table.Rows, 1)

	detail := view.Table.Rows[0][1]
	require.Len(t, detail.Segments, 2)
	assert.Equal(t, SegmentInput, detail.Segments[1].Kind)
	assert.Equal(t, "debris", detail.Segments[1].Input.Value)
}

func TestTableCompletionWithoutTableContainerFallsBack(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())

	g := &model.QuestionGroup{
		ID:        "g1",
		Type:      model.GroupTableCompletion,
		Questions: []model.Question{{ID: "q1", Order: 1}},
	}

	view := d.BuildGroupView(g, mapReader{})
	assert.Nil(t, view.Table)
	require.Len(t, view.Texts, 1)
}

func TestUnknownGroupTypeRendersTexts(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())

	g := &model.QuestionGroup{
		Type:      model.GroupType("foo_bar"),
		Questions: []model.Question{{ID: "q1", Order: 1}},
	}

	view := d.BuildGroupView(g, mapReader{})
	require.Len(t, view.Texts, 1)
}

func TestCollapseNewlines(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"line one\nline two", "line one line two"},
		{"a\r\nb\n\nc", "a b c"},
		{"  padded  \n  next  ", "padded next"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, collapseNewlines(tc.in), "in=%q", tc.in)
	}
}

func TestBuildModuleViewsPreservesOrder(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())

	m := &model.Module{
		Groups: []model.QuestionGroup{
			{ID: "g1", Type: model.GroupBooleanChoice},
			{ID: "g2", Type: model.GroupFreeText},
		},
	}

	views := d.BuildModuleViews(m, mapReader{})
	require.Len(t, views, 2)
	assert.Equal(t, "g1", views[0].GroupID)
	assert.Equal(t, "g2", views[1].GroupID)
}
