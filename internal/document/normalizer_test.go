package document

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepline/prepline-backend/internal/model"
)

func TestMapGroupTag(t *testing.T) {
	n := NewNormalizer(zerolog.Nop())

	tests := []struct {
		tag  string
		want model.GroupType
	}{
		{"TRUE_FALSE_NOT_GIVEN", model.GroupBooleanChoice},
		{"YES_NO_NOT_GIVEN", model.GroupBooleanChoice},
		{"MULTIPLE_CHOICE", model.GroupMultipleChoice},
		{"MATCHING_HEADINGS", model.GroupMatching},
		{"MATCHING_PARAGRAPH_INFORMATION", model.GroupMatching},
		{"TABLE_COMPLETION", model.GroupTableCompletion},
		{"NOTE_COMPLETION", model.GroupTableCompletion},
		{"SUMMARY_COMPLETION", model.GroupSlotCompletion},
		{"SENTENCE_COMPLETION", model.GroupSlotCompletion},
		{"FLOW_CHART_COMPLETION", model.GroupSlotCompletion},
		{"DIAGRAM_LABELLING", model.GroupSlotCompletion},
		{"SHORT_ANSWER", model.GroupFreeText},
		// Lower-case source tags map through the same table.
		{"table_completion", model.GroupTableCompletion},
		// Already-internal values pass through unchanged.
		{"boolean_choice", model.GroupBooleanChoice},
		// Unknown tags pass through lower-cased, never error.
		{"FOO_BAR", model.GroupType("foo_bar")},
		{"", model.GroupFreeText},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, n.mapGroupTag(tc.tag), "tag=%q", tc.tag)
	}
}

func TestSafeOption(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want model.Option
	}{
		{"object", `{"key":"A","text":"First answer"}`, model.Option{Key: "A", Text: "First answer"}},
		{"object key only", `{"key":"B"}`, model.Option{Key: "B", Text: "B"}},
		{"object text only", `{"text":"loose"}`, model.Option{Key: "loose", Text: "loose"}},
		{"bare string", `"TRUE"`, model.Option{Key: "TRUE", Text: "TRUE"}},
		{"number", `42`, model.Option{Key: "42", Text: "42"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SafeOption(json.RawMessage(tc.raw)))
		})
	}
}

func TestNormalizeBundledSingleModule(t *testing.T) {
	n := NewNormalizer(zerolog.Nop())

	src := BundledTest{
		ID:    "7",
		Title: "Starter Test",
		Passages: []BundledPassage{
			{
				Title: "The Sewers of London",
				Text:  "In the summer of 1858...",
				Groups: []BundledGroup{
					{
						GroupID: "g1",
						Type:    "TRUE_FALSE_NOT_GIVEN",
						Items: []BundledItem{
							{ItemID: "q1", Prompt: "The river froze.", Answer: BundledAnswer{Value: `["FALSE"]`}, Number: 1},
							{ItemID: "q2", Prompt: "It was hot.", Answer: BundledAnswer{Value: `["TRUE"]`}, Number: 2},
						},
					},
				},
			},
		},
	}

	test := n.NormalizeBundled(src)

	assert.Equal(t, "7", test.ID)
	assert.Equal(t, model.SourceBundled, test.Source)
	require.Len(t, test.Modules, 1)

	m := test.Modules[0]
	assert.Equal(t, model.ModuleReading, m.Type)
	assert.Equal(t, 3600, m.DurationSeconds)
	require.Len(t, m.Groups, 1)

	g := m.Groups[0]
	assert.Equal(t, model.GroupBooleanChoice, g.Type)
	assert.Equal(t, "The Sewers of London", g.Title)
	assert.Equal(t, "In the summer of 1858...", g.Content)
	require.Len(t, g.Questions, 2)
	assert.Equal(t, 1, g.Questions[0].Order)
}

func TestNormalizeBundledDurationAndTitleDefaults(t *testing.T) {
	n := NewNormalizer(zerolog.Nop())

	test := n.NormalizeBundled(BundledTest{ID: "9", DurationMinutes: 40})
	assert.Equal(t, "Test 9", test.Title)
	assert.Equal(t, 2400, test.Modules[0].DurationSeconds)
}

func TestNormalizeAPIFlatGroupsSynthesizeModule(t *testing.T) {
	n := NewNormalizer(zerolog.Nop())

	src := APITest{
		ID:    "12",
		Title: "Flat Test",
		QuestionGroups: []APIGroup{
			{ID: "g1", GroupType: "SHORT_ANSWER"},
		},
	}

	test := n.NormalizeAPI(src)

	require.Len(t, test.Modules, 1)
	assert.Equal(t, model.ModuleReading, test.Modules[0].Type)
	assert.Equal(t, 3600, test.Modules[0].DurationSeconds)
	require.Len(t, test.Modules[0].Groups, 1)
	assert.Equal(t, model.GroupFreeText, test.Modules[0].Groups[0].Type)
}

func TestNormalizeAPISecondsWinOverMinutes(t *testing.T) {
	n := NewNormalizer(zerolog.Nop())

	src := APITest{
		ID: "3",
		Modules: []APIModule{
			{ModuleType: "listening", DurationMinutes: 30, DurationSeconds: 1234, AudioURL: "https://cdn/test.mp3"},
		},
	}

	test := n.NormalizeAPI(src)
	assert.Equal(t, 1234, test.Modules[0].DurationSeconds)
	assert.Equal(t, model.ModuleListening, test.Modules[0].Type)
}

func TestNormalizeAPINumericID(t *testing.T) {
	n := NewNormalizer(zerolog.Nop())

	var src APITest
	require.NoError(t, json.Unmarshal([]byte(`{"id": 15, "title": "Numeric"}`), &src))

	test := n.NormalizeAPI(src)
	assert.Equal(t, "15", test.ID)
}

func TestDecideLayoutHeuristic(t *testing.T) {
	sharedOpts := []model.Option{{Key: "A", Text: "A"}, {Key: "B", Text: "B"}}

	tests := []struct {
		name  string
		group model.QuestionGroup
		want  model.LayoutHint
	}{
		{
			name: "shared options with placeholder prompts",
			group: model.QuestionGroup{
				Type:    model.GroupMultipleChoice,
				Options: sharedOpts,
				Questions: []model.Question{
					{Text: "27."}, {Text: "28."}, {Text: " "},
				},
			},
			want: model.LayoutSharedOptions,
		},
		{
			name: "real prompt forces per-question",
			group: model.QuestionGroup{
				Type:    model.GroupMultipleChoice,
				Options: sharedOpts,
				Questions: []model.Question{
					{Text: "27."}, {Text: "What does the author claim?"},
				},
			},
			want: model.LayoutPerQuestion,
		},
		{
			name: "no group options",
			group: model.QuestionGroup{
				Type:      model.GroupMultipleChoice,
				Questions: []model.Question{{Text: ""}},
			},
			want: model.LayoutPerQuestion,
		},
		{
			name:  "non-mcq has no layout",
			group: model.QuestionGroup{Type: model.GroupMatching, Options: sharedOpts},
			want:  "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, decideLayout(&tc.group))
		})
	}
}

func TestIsPlaceholderText(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"", true},
		{"  ", true},
		{"12", true},
		{"12.", true},
		{"12):", true},
		{"____", true},
		{"...", true},
		{"…", true},
		{"What is the answer?", false},
		{"12 monkeys", false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, isPlaceholderText(tc.text), "text=%q", tc.text)
	}
}

func TestPersistedLayoutHintWins(t *testing.T) {
	n := NewNormalizer(zerolog.Nop())

	group := n.normalizeAPIGroup(APIGroup{
		ID:         "g1",
		GroupType:  "MULTIPLE_CHOICE",
		LayoutHint: "shared_options",
		Options:    []json.RawMessage{json.RawMessage(`"A"`)},
		Questions: []APIQuestion{
			{ID: "q1", Order: 1, QuestionText: "A full prompt that would force per_question."},
		},
	})

	assert.Equal(t, model.LayoutSharedOptions, group.Layout)
}

func TestNormalizeContainerShapes(t *testing.T) {
	n := NewNormalizer(zerolog.Nop())

	container := n.normalizeContainer(&APIContainer{
		Kind: "RICH",
		Rich: []json.RawMessage{
			json.RawMessage(`{"text":"The water flows into the "}`),
			json.RawMessage(`{"slot":"blank_3"}`),
			json.RawMessage(`{"slot":"no_digits"}`),
			json.RawMessage(`"bare string run"`),
		},
	})

	require.NotNil(t, container)
	assert.Equal(t, model.ContainerRich, container.Kind)
	// The suffix-less slot is dropped.
	require.Len(t, container.Rich, 3)
	assert.Equal(t, 3, container.Rich[1].SlotOrder)
	assert.Equal(t, "bare string run", container.Rich[2].Text)
}

func TestNormalizeContainerRowsForceTable(t *testing.T) {
	n := NewNormalizer(zerolog.Nop())

	container := n.normalizeContainer(&APIContainer{
		Kind:    "rich",
		Columns: []string{"Stage", "Detail"},
		Rows: [][]json.RawMessage{
			{json.RawMessage(`"Filtering"`), json.RawMessage(`{"slot":"blank_4"}`)},
		},
	})

	require.NotNil(t, container)
	assert.Equal(t, model.ContainerTable, container.Kind)
	require.Len(t, container.Rows, 1)
	require.Len(t, container.Rows[0], 2)
	assert.Equal(t, "Filtering", container.Rows[0][0][0].Text)
	assert.Equal(t, 4, container.Rows[0][1][0].SlotOrder)
}

func TestSlotOrder(t *testing.T) {
	tests := []struct {
		id   string
		want int
		ok   bool
	}{
		{"blank_12", 12, true},
		{"q7", 7, true},
		{"38", 38, true},
		{"blank_", 0, false},
		{"", 0, false},
		{"no digits here", 0, false},
	}

	for _, tc := range tests {
		got, ok := slotOrder(tc.id)
		assert.Equal(t, tc.ok, ok, "id=%q", tc.id)
		assert.Equal(t, tc.want, got, "id=%q", tc.id)
	}
}

func TestMergeCatalogAPIWins(t *testing.T) {
	bundled := []model.Test{
		{ID: "1", Title: "Bundled One", Source: model.SourceBundled},
		{ID: "5", Title: "Bundled Five", Source: model.SourceBundled},
	}
	api := []model.Test{
		{ID: "5", Title: "API Five", Source: model.SourceAPI},
		{ID: "9", Title: "API Nine", Source: model.SourceAPI},
	}

	merged := MergeCatalog(bundled, api)

	require.Len(t, merged, 3)
	assert.Equal(t, "1", merged[0].ID)
	// The API record replaced the bundled one in place.
	assert.Equal(t, "5", merged[1].ID)
	assert.Equal(t, "API Five", merged[1].Title)
	assert.Equal(t, model.SourceAPI, merged[1].Source)
	assert.Equal(t, "9", merged[2].ID)
}

func TestReingestedSlotOrderSurvives(t *testing.T) {
	n := NewNormalizer(zerolog.Nop())

	// A normalized document stored and read back carries slot_order instead
	// of a slot identifier.
	container := n.normalizeContainer(&APIContainer{
		Kind: "rich",
		Rich: []json.RawMessage{json.RawMessage(`{"slot_order":6}`)},
	})

	require.NotNil(t, container)
	require.Len(t, container.Rich, 1)
	assert.Equal(t, 6, container.Rich[0].SlotOrder)
}
