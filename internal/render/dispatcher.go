package render

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/prepline/prepline-backend/internal/model"
)

// AnswerReader is the read side of the answer store consumed by the renderer.
type AnswerReader interface {
	Get(questionID string) string
}

// Dispatcher selects and builds the interactive presentation for each group
// type. It never mutates answers and never fails: malformed content degrades
// (unresolvable slots render nothing) with a log line.
type Dispatcher struct {
	log zerolog.Logger
}

// NewDispatcher creates a Dispatcher with a component logger.
func NewDispatcher(log zerolog.Logger) *Dispatcher {
	return &Dispatcher{log: log.With().Str("component", "renderer").Logger()}
}

// BuildGroupView projects a question group and the current answers into its
// typed view plan.
func (d *Dispatcher) BuildGroupView(g *model.QuestionGroup, answers AnswerReader) GroupView {
	view := GroupView{
		GroupID:      g.ID,
		Type:         g.Type,
		Layout:       g.Layout,
		Title:        g.Title,
		Instructions: g.Instructions,
		Content:      g.Content,
	}

	switch g.Type {
	case model.GroupBooleanChoice:
		d.buildChoices(&view, g, answers, WidgetRadio, false)
	case model.GroupMultipleChoice:
		widget := WidgetRadio
		if g.Layout == model.LayoutSharedOptions {
			widget = WidgetButtonGrid
		}
		d.buildChoices(&view, g, answers, widget, g.Layout == model.LayoutSharedOptions)
	case model.GroupMatching:
		d.buildChoices(&view, g, answers, WidgetDropdown, true)
	case model.GroupTableCompletion:
		d.buildTable(&view, g, answers)
	case model.GroupSlotCompletion:
		d.buildSlotFlow(&view, g, answers)
	default:
		// free_text and any passthrough tag: one bound input per question.
		d.buildTexts(&view, g, answers)
	}

	return view
}

// BuildModuleViews renders every group of a module in order.
func (d *Dispatcher) BuildModuleViews(m *model.Module, answers AnswerReader) []GroupView {
	views := make([]GroupView, 0, len(m.Groups))
	for i := range m.Groups {
		views = append(views, d.BuildGroupView(&m.Groups[i], answers))
	}
	return views
}

// buildChoices renders each question as a selection. sharedOnly forces the
// group-level option set even when questions carry their own lists (matching
// and the compact shared-options MCQ layout).
func (d *Dispatcher) buildChoices(view *GroupView, g *model.QuestionGroup, answers AnswerReader, widget Widget, sharedOnly bool) {
	for i := range g.Questions {
		q := &g.Questions[i]
		opts := g.EffectiveOptions(q)
		if sharedOnly {
			opts = g.Options
		}
		view.Choices = append(view.Choices, ChoiceInput{
			QuestionID: q.ID,
			Order:      q.Order,
			Prompt:     q.Text,
			Widget:     widget,
			Options:    opts,
			Selected:   answers.Get(q.ID),
		})
	}
}

func (d *Dispatcher) buildTexts(view *GroupView, g *model.QuestionGroup, answers AnswerReader) {
	for i := range g.Questions {
		q := &g.Questions[i]
		view.Texts = append(view.Texts, BoundInput{
			QuestionID: q.ID,
			Order:      q.Order,
			Value:      answers.Get(q.ID),
		})
	}
}

// buildSlotFlow renders container.rich as continuous prose with bound inline
// inputs substituted at each slot. When an option list is present it becomes
// a word bank after the passage. Groups arriving without a container (the
// bundled source carries none) degrade to per-question inputs.
func (d *Dispatcher) buildSlotFlow(view *GroupView, g *model.QuestionGroup, answers AnswerReader) {
	if g.Container == nil || len(g.Container.Rich) == 0 {
		d.buildTexts(view, g, answers)
		view.WordBank = g.Options
		return
	}

	view.Flow = d.buildSegments(g, g.Container.Rich, answers)
	view.WordBank = g.Options
}

func (d *Dispatcher) buildTable(view *GroupView, g *model.QuestionGroup, answers AnswerReader) {
	if g.Container == nil || g.Container.Kind != model.ContainerTable {
		// Container invariant not met; fall back rather than error.
		d.log.Warn().Str("group_id", g.ID).Msg("table_completion group without table container")
		d.buildTexts(view, g, answers)
		return
	}

	table := &TableView{Columns: g.Container.Columns}
	for _, row := range g.Container.Rows {
		cells := make([]CellView, 0, len(row))
		for _, cell := range row {
			cells = append(cells, CellView{Segments: d.buildSegments(g, cell, answers)})
		}
		table.Rows = append(table.Rows, cells)
	}
	view.Table = table
}

// buildSegments turns a rich-text element sequence into flow segments. A slot
// with no resolvable question renders nothing; the condition indicates a
// normalization bug upstream, so it is logged.
func (d *Dispatcher) buildSegments(g *model.QuestionGroup, elements []model.RichTextElement, answers AnswerReader) []Segment {
	segments := make([]Segment, 0, len(elements))
	for _, el := range elements {
		if el.SlotOrder > 0 {
			q := g.QuestionByOrder(el.SlotOrder)
			if q == nil {
				d.log.Warn().
					Str("group_id", g.ID).
					Int("slot_order", el.SlotOrder).
					Msg("Dropping slot with no matching question")
				continue
			}
			segments = append(segments, Segment{
				Kind: SegmentInput,
				Input: &BoundInput{
					QuestionID: q.ID,
					Order:      q.Order,
					Value:      answers.Get(q.ID),
				},
			})
			continue
		}
		segments = append(segments, Segment{
			Kind: SegmentText,
			Text: collapseNewlines(el.Text),
		})
	}
	return segments
}

// collapseNewlines flattens newlines inside a literal run to single spaces so
// the text flows inline around slot inputs.
func collapseNewlines(s string) string {
	if !strings.ContainsAny(s, "\n\r") {
		return s
	}
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '\n' || r == '\r'
	})
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return strings.Join(fields, " ")
}
