package document

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/prepline/prepline-backend/internal/model"
)

// groupTagTable maps upper-snake-case source tags to internal group types.
// Unknown tags are NOT an error: they pass through lower-cased verbatim, and
// the renderer treats unrecognized types as free_text. The fallback is
// explicit and logged.
var groupTagTable = map[string]model.GroupType{
	"TRUE_FALSE_NOT_GIVEN":           model.GroupBooleanChoice,
	"YES_NO_NOT_GIVEN":               model.GroupBooleanChoice,
	"MULTIPLE_CHOICE":                model.GroupMultipleChoice,
	"MULTIPLE_SELECT":                model.GroupMultipleChoice,
	"MATCHING_HEADINGS":              model.GroupMatching,
	"MATCHING_SENTENCE_ENDINGS":      model.GroupMatching,
	"MATCHING_FEATURES":              model.GroupMatching,
	"MATCHING_INFORMATION":           model.GroupMatching,
	"MATCHING_PARAGRAPH_INFORMATION": model.GroupMatching,
	"TABLE_COMPLETION":               model.GroupTableCompletion,
	"NOTE_COMPLETION":                model.GroupTableCompletion,
	"SUMMARY_COMPLETION":             model.GroupSlotCompletion,
	"SENTENCE_COMPLETION":            model.GroupSlotCompletion,
	"FLOW_CHART_COMPLETION":          model.GroupSlotCompletion,
	"DIAGRAM_LABELLING":              model.GroupSlotCompletion,
	"SHORT_ANSWER":                   model.GroupFreeText,
	"SHORT_ANSWER_QUESTIONS":         model.GroupFreeText,
}

// internalGroupTypes is the canonical tag set; already-normalized API payloads
// carry these directly.
var internalGroupTypes = map[model.GroupType]bool{
	model.GroupBooleanChoice:   true,
	model.GroupMultipleChoice:  true,
	model.GroupMatching:        true,
	model.GroupTableCompletion: true,
	model.GroupSlotCompletion:  true,
	model.GroupFreeText:        true,
}

// Normalizer transforms the two divergent source shapes into the internal
// document model. Normalization is total: missing optional fields become
// semantically safe defaults and malformed fragments are dropped with a log
// line, never an error.
type Normalizer struct {
	log zerolog.Logger
}

// NewNormalizer creates a Normalizer with a component logger.
func NewNormalizer(log zerolog.Logger) *Normalizer {
	return &Normalizer{log: log.With().Str("component", "normalizer").Logger()}
}

// mapGroupTag resolves a source group tag to the internal group type.
func (n *Normalizer) mapGroupTag(tag string) model.GroupType {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return model.GroupFreeText
	}
	if gt, ok := groupTagTable[strings.ToUpper(tag)]; ok {
		return gt
	}
	if internalGroupTypes[model.GroupType(tag)] {
		return model.GroupType(tag)
	}
	fallback := model.GroupType(strings.ToLower(tag))
	n.log.Info().Str("tag", tag).Str("fallback", string(fallback)).
		Msg("Unknown group tag, passing through lower-cased")
	return fallback
}

// SafeOption projects one raw option value into the internal {key, text}
// shape: object → its fields, string → key and text both, anything else →
// stringified value.
func SafeOption(raw json.RawMessage) model.Option {
	var obj struct {
		Key  string `json:"key"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && (obj.Key != "" || obj.Text != "") {
		if obj.Text == "" {
			obj.Text = obj.Key
		}
		if obj.Key == "" {
			obj.Key = obj.Text
		}
		return model.Option{Key: obj.Key, Text: obj.Text}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return model.Option{Key: s, Text: s}
	}

	str := strings.Trim(string(raw), `"`)
	return model.Option{Key: str, Text: str}
}

func safeOptions(raws []json.RawMessage) []model.Option {
	if len(raws) == 0 {
		return nil
	}
	opts := make([]model.Option, 0, len(raws))
	for _, r := range raws {
		opts = append(opts, SafeOption(r))
	}
	return opts
}

// decideLayout applies the multiple-choice disambiguation rule once, at the
// system boundary: a group-level option list combined with empty or
// placeholder-shaped question texts means one shared option set answered per
// question; otherwise each question renders its full option list.
func decideLayout(g *model.QuestionGroup) model.LayoutHint {
	if g.Type != model.GroupMultipleChoice {
		return ""
	}
	if len(g.Options) == 0 {
		return model.LayoutPerQuestion
	}
	for i := range g.Questions {
		if !isPlaceholderText(g.Questions[i].Text) {
			return model.LayoutPerQuestion
		}
	}
	return model.LayoutSharedOptions
}

// isPlaceholderText reports whether a question text carries no real prompt:
// empty, a bare number ("12", "12."), or filler runs of underscores/dots.
func isPlaceholderText(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	s = strings.TrimRight(s, ".):")
	if s == "" {
		return true
	}
	allDigits := true
	allFiller := true
	for _, r := range s {
		if r < '0' || r > '9' {
			allDigits = false
		}
		if r != '_' && r != '.' && r != '…' {
			allFiller = false
		}
	}
	return allDigits || allFiller
}

// checkSlots logs every slot that fails to resolve to a question in its own
// group. Unresolved slots render as nothing downstream; the log line is the
// signal that upstream content is malformed.
func (n *Normalizer) checkSlots(g *model.QuestionGroup) {
	if g.Container == nil {
		return
	}
	verify := func(order int) {
		if order > 0 && g.QuestionByOrder(order) == nil {
			n.log.Warn().
				Str("group_id", g.ID).
				Int("slot_order", order).
				Msg("Slot does not resolve to a question, it will be dropped")
		}
	}
	for _, el := range g.Container.Rich {
		verify(el.SlotOrder)
	}
	for _, row := range g.Container.Rows {
		for _, cell := range row {
			for _, el := range cell {
				verify(el.SlotOrder)
			}
		}
	}
}

// MergeCatalog deduplicates the two catalogs by test id, last write wins:
// an API-sourced record replaces a bundled record with the same id. Order of
// first appearance is preserved.
func MergeCatalog(bundled, api []model.Test) []model.Test {
	merged := make([]model.Test, 0, len(bundled)+len(api))
	index := make(map[string]int, len(bundled))

	for _, lists := range [][]model.Test{bundled, api} {
		for _, t := range lists {
			if i, ok := index[t.ID]; ok {
				merged[i] = t
				continue
			}
			index[t.ID] = len(merged)
			merged = append(merged, t)
		}
	}
	return merged
}

func defaultTitle(title, id string) string {
	if strings.TrimSpace(title) != "" {
		return title
	}
	return fmt.Sprintf("Test %s", id)
}
