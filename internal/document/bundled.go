package document

import (
	"strings"

	"github.com/prepline/prepline-backend/internal/model"
)

const defaultDurationSeconds = 3600

// NormalizeBundled transforms a bundled-format test into the internal model.
// The bundled format carries a single skill's worth of passages, so the
// result holds exactly one module.
func (n *Normalizer) NormalizeBundled(src BundledTest) model.Test {
	module := model.Module{
		Type:            bundledSkill(src.Skill),
		DurationSeconds: defaultDurationSeconds,
	}
	if src.DurationMinutes > 0 {
		module.DurationSeconds = src.DurationMinutes * 60
	}

	for _, passage := range src.Passages {
		for _, bg := range passage.Groups {
			group := model.QuestionGroup{
				ID:           bg.GroupID.String(),
				Title:        passage.Title,
				Instructions: bg.Instructions,
				Type:         n.mapGroupTag(bg.Type),
				Content:      passage.Text,
				Options:      safeOptions(bg.Options),
			}

			for _, item := range bg.Items {
				group.Questions = append(group.Questions, model.Question{
					ID:            item.ItemID.String(),
					Order:         item.Number,
					Text:          item.Prompt,
					Type:          string(group.Type),
					Options:       safeOptions(item.Options),
					CorrectAnswer: item.Answer.Value,
				})
			}

			group.Layout = decideLayout(&group)
			module.Groups = append(module.Groups, group)
		}
	}

	id := src.ID.String()
	return model.Test{
		ID:      id,
		Title:   defaultTitle(src.Title, id),
		Modules: []model.Module{module},
		Source:  model.SourceBundled,
	}
}

func bundledSkill(skill string) model.ModuleType {
	switch strings.ToLower(strings.TrimSpace(skill)) {
	case "listening":
		return model.ModuleListening
	case "writing":
		return model.ModuleWriting
	default:
		return model.ModuleReading
	}
}
