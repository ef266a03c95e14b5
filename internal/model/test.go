package model

// ModuleType enumerates the skills a test module can cover.
type ModuleType string

const (
	ModuleReading   ModuleType = "reading"
	ModuleListening ModuleType = "listening"
	ModuleWriting   ModuleType = "writing"
)

// ContentSource records which pipeline produced a normalized test.
type ContentSource string

const (
	SourceBundled ContentSource = "bundled"
	SourceAPI     ContentSource = "api"
)

// Test is the root document entity. Immutable once loaded for a session.
type Test struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	TestType    string        `json:"test_type,omitempty"`
	Modules     []Module      `json:"modules"`
	Source      ContentSource `json:"source,omitempty"`
}

// Module covers one skill with a duration budget and an ordered list of
// question groups.
type Module struct {
	Type            ModuleType      `json:"module_type"`
	DurationSeconds int             `json:"duration_seconds"`
	AudioURL        string          `json:"audio_url,omitempty"`
	// PartStartSeconds declares, for listening modules, the audio timestamp at
	// which each part begins. Empty when the content declares none.
	PartStartSeconds []int           `json:"part_start_seconds,omitempty"`
	Groups           []QuestionGroup `json:"question_groups"`
}

// Part is a derived grouping of consecutive groups sharing one title (one
// passage). It is used for navigation only and is never stored.
type Part struct {
	Title   string
	Content string
	// GroupIndexes are positions into Module.Groups belonging to this part.
	GroupIndexes []int
}

// Parts derives the part list of a module by clustering consecutive groups
// that share a title. Content is taken from the first group in the cluster
// that carries any.
func (m *Module) Parts() []Part {
	var parts []Part
	for i, g := range m.Groups {
		if len(parts) > 0 && parts[len(parts)-1].Title == g.Title {
			last := &parts[len(parts)-1]
			last.GroupIndexes = append(last.GroupIndexes, i)
			if last.Content == "" {
				last.Content = g.Content
			}
			continue
		}
		parts = append(parts, Part{
			Title:        g.Title,
			Content:      g.Content,
			GroupIndexes: []int{i},
		})
	}
	return parts
}

// PartIndexForPosition maps an audio playback position to the latest part
// whose declared start time is at or before the position. Returns 0 when no
// start times are declared.
func PartIndexForPosition(starts []int, position float64) int {
	idx := 0
	for i, s := range starts {
		if float64(s) <= position {
			idx = i
		}
	}
	return idx
}

// QuestionByID scans all groups of a module for a question id.
func (m *Module) QuestionByID(id string) *Question {
	for gi := range m.Groups {
		for qi := range m.Groups[gi].Questions {
			if m.Groups[gi].Questions[qi].ID == id {
				return &m.Groups[gi].Questions[qi]
			}
		}
	}
	return nil
}

// ModuleByType returns the module of the given skill, or nil.
func (t *Test) ModuleByType(mt ModuleType) *Module {
	for i := range t.Modules {
		if t.Modules[i].Type == mt {
			return &t.Modules[i]
		}
	}
	return nil
}
