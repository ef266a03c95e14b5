package document

import (
	"encoding/json"
	"strings"

	"github.com/prepline/prepline-backend/internal/model"
)

// NormalizeAPI transforms an API-format test into the internal model. When
// the endpoint returned a flat question_groups list instead of modules, a
// single default module is synthesized around it.
func (n *Normalizer) NormalizeAPI(src APITest) model.Test {
	id := src.ID.String()
	test := model.Test{
		ID:          id,
		Title:       defaultTitle(src.Title, id),
		Description: src.Description,
		TestType:    src.TestType,
		Source:      model.SourceAPI,
	}

	apiModules := src.Modules
	if len(apiModules) == 0 {
		apiModules = []APIModule{{
			ModuleType:     string(model.ModuleReading),
			QuestionGroups: src.QuestionGroups,
		}}
	}

	for _, am := range apiModules {
		module := model.Module{
			Type:             apiModuleType(am.ModuleType),
			DurationSeconds:  am.DurationSeconds,
			AudioURL:         am.AudioURL,
			PartStartSeconds: am.PartStartSeconds,
		}
		if module.DurationSeconds == 0 {
			if am.DurationMinutes > 0 {
				module.DurationSeconds = am.DurationMinutes * 60
			} else {
				module.DurationSeconds = defaultDurationSeconds
			}
		}

		for _, ag := range am.QuestionGroups {
			group := n.normalizeAPIGroup(ag)
			module.Groups = append(module.Groups, group)
		}
		test.Modules = append(test.Modules, module)
	}

	return test
}

func (n *Normalizer) normalizeAPIGroup(ag APIGroup) model.QuestionGroup {
	group := model.QuestionGroup{
		ID:           ag.ID.String(),
		Title:        ag.Title,
		Instructions: ag.Instructions,
		Type:         n.mapGroupTag(ag.GroupType),
		Content:      ag.Content,
		Options:      safeOptions(ag.Options),
		Container:    n.normalizeContainer(ag.Container),
	}

	for _, aq := range ag.Questions {
		group.Questions = append(group.Questions, model.Question{
			ID:            aq.ID.String(),
			Order:         aq.Order,
			Text:          aq.QuestionText,
			Type:          aq.QuestionType,
			Options:       safeOptions(aq.Options),
			CorrectAnswer: aq.CorrectAnswer,
		})
	}

	// A persisted layout hint wins; otherwise apply the boundary heuristic.
	if ag.LayoutHint != "" && group.Type == model.GroupMultipleChoice {
		group.Layout = model.LayoutHint(ag.LayoutHint)
	} else {
		group.Layout = decideLayout(&group)
	}

	n.checkSlots(&group)
	return group
}

func (n *Normalizer) normalizeContainer(ac *APIContainer) *model.Container {
	if ac == nil {
		return nil
	}

	container := &model.Container{
		Kind:    model.ContainerKind(strings.ToLower(ac.Kind)),
		Columns: ac.Columns,
	}
	if container.Kind != model.ContainerTable {
		container.Kind = model.ContainerRich
	}
	if len(ac.Rows) > 0 {
		container.Kind = model.ContainerTable
	}

	for _, raw := range ac.Rich {
		if el, ok := n.normalizeRichElement(raw); ok {
			container.Rich = append(container.Rich, el)
		}
	}

	for _, rawRow := range ac.Rows {
		row := make([]model.Cell, 0, len(rawRow))
		for _, rawCell := range rawRow {
			row = append(row, n.normalizeCell(rawCell))
		}
		container.Rows = append(container.Rows, row)
	}

	return container
}

// normalizeCell accepts a bare string, a single rich element object, or an
// array of elements.
func (n *Normalizer) normalizeCell(raw json.RawMessage) model.Cell {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return model.Cell{{Text: s}}
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		cell := make(model.Cell, 0, len(list))
		for _, item := range list {
			if el, ok := n.normalizeRichElement(item); ok {
				cell = append(cell, el)
			}
		}
		return cell
	}

	if el, ok := n.normalizeRichElement(raw); ok {
		return model.Cell{el}
	}
	return nil
}

// normalizeRichElement decodes one {text} or {slot} element. Slots whose
// identifier carries no numeric suffix cannot bind to a question and are
// dropped here, with a log line, rather than erroring.
func (n *Normalizer) normalizeRichElement(raw json.RawMessage) (model.RichTextElement, bool) {
	var el APIRichElement
	if err := json.Unmarshal(raw, &el); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return model.RichTextElement{Text: s}, true
		}
		n.log.Warn().RawJSON("element", raw).Msg("Undecodable rich-text element dropped")
		return model.RichTextElement{}, false
	}

	if el.Slot != "" {
		order, ok := slotOrder(el.Slot)
		if !ok {
			n.log.Warn().Str("slot", el.Slot).Msg("Slot identifier has no numeric suffix, dropped")
			return model.RichTextElement{}, false
		}
		return model.RichTextElement{SlotOrder: order}, true
	}
	if el.SlotOrder > 0 {
		return model.RichTextElement{SlotOrder: el.SlotOrder}, true
	}
	return model.RichTextElement{Text: el.Text}, true
}

func apiModuleType(mt string) model.ModuleType {
	switch strings.ToLower(strings.TrimSpace(mt)) {
	case "listening":
		return model.ModuleListening
	case "writing":
		return model.ModuleWriting
	default:
		return model.ModuleReading
	}
}
