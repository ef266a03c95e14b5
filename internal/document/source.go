package document

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FlexString is an id field that source payloads deliver either as a JSON
// string or as a bare number.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}

	// Last resort: raw token, unquoted.
	*f = FlexString(strings.Trim(trimmed, `"`))
	return nil
}

func (f FlexString) String() string { return string(f) }

// ─── Content source A: bundled static format ────────────────────────

// BundledFile is the root of the statically bundled content document.
type BundledFile struct {
	Tests []BundledTest `json:"tests"`
}

// BundledTest is one test in the bundled format: passages containing groups
// containing items.
type BundledTest struct {
	ID    FlexString `json:"id"`
	Title string     `json:"title"`
	// Skill and DurationMinutes are optional bundle extensions; absent values
	// default to a one-hour reading module.
	Skill           string           `json:"skill,omitempty"`
	DurationMinutes int              `json:"duration_minutes,omitempty"`
	Passages        []BundledPassage `json:"passages"`
}

// BundledPassage groups question groups under one passage title and text.
type BundledPassage struct {
	Title  string         `json:"title"`
	Text   string         `json:"text"`
	Groups []BundledGroup `json:"groups"`
}

// BundledGroup is a question group in the bundled format. Type carries an
// upper-snake-case tag mapped through the normalizer's lookup table.
type BundledGroup struct {
	GroupID      FlexString        `json:"group_id"`
	Type         string            `json:"type"`
	Instructions string            `json:"instructions"`
	Options      []json.RawMessage `json:"options"`
	Items        []BundledItem     `json:"items"`
}

// BundledItem is one question in the bundled format.
type BundledItem struct {
	ItemID  FlexString        `json:"item_id"`
	Prompt  string            `json:"prompt"`
	Options []json.RawMessage `json:"options"`
	Answer  BundledAnswer     `json:"answer"`
	Number  int               `json:"number"`
}

// BundledAnswer wraps the stored answer key value.
type BundledAnswer struct {
	Value string `json:"value"`
}

// ─── Content source B: normalized API format ────────────────────────

// APITest is the GET /tests/{id} payload. Endpoints may omit the module
// wrapper and return a flat question_groups list; the normalizer synthesizes
// a single default module in that case.
type APITest struct {
	ID          FlexString  `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	TestType    string      `json:"test_type"`
	Modules     []APIModule `json:"modules"`
	// QuestionGroups is the flat fallback shape.
	QuestionGroups []APIGroup `json:"question_groups"`
}

// APIModule is one module in the API format. Duration arrives in minutes from
// the remote endpoint but in seconds from re-ingested normalized documents;
// seconds win when both are present.
type APIModule struct {
	ModuleType       string     `json:"module_type"`
	DurationMinutes  int        `json:"duration_minutes"`
	DurationSeconds  int        `json:"duration_seconds"`
	AudioURL         string     `json:"audio_url"`
	PartStartSeconds []int      `json:"part_start_seconds"`
	QuestionGroups   []APIGroup `json:"question_groups"`
}

// APIGroup is a question group in the API format.
type APIGroup struct {
	ID           FlexString        `json:"id"`
	Title        string            `json:"title"`
	Instructions string            `json:"instructions"`
	GroupType    string            `json:"group_type"`
	LayoutHint   string            `json:"layout_hint"`
	Content      string            `json:"content"`
	Container    *APIContainer     `json:"container"`
	Options      []json.RawMessage `json:"options"`
	Questions    []APIQuestion     `json:"questions"`
}

// APIContainer is the structured body of completion-style groups.
type APIContainer struct {
	Kind    string            `json:"kind"`
	Rich    []json.RawMessage `json:"rich"`
	Columns []string          `json:"columns"`
	Rows    [][]json.RawMessage `json:"rows"`
}

// APIRichElement is one rich-text element: a literal text run or a slot
// reference like "blank_12" whose numeric suffix binds to a question order.
// Re-ingested normalized documents carry the already-resolved slot_order.
type APIRichElement struct {
	Text      string `json:"text"`
	Slot      string `json:"slot"`
	SlotOrder int    `json:"slot_order"`
}

// APIQuestion is one question in the API format.
type APIQuestion struct {
	ID            FlexString        `json:"id"`
	Order         int               `json:"order"`
	QuestionText  string            `json:"question_text"`
	QuestionType  string            `json:"question_type"`
	Options       []json.RawMessage `json:"options"`
	CorrectAnswer string            `json:"correct_answer"`
}

// slotOrder extracts the numeric suffix of a slot identifier ("blank_12" →
// 12). Returns false when the identifier carries no trailing digits.
func slotOrder(id string) (int, bool) {
	id = strings.TrimSpace(id)
	end := len(id)
	start := end
	for start > 0 && id[start-1] >= '0' && id[start-1] <= '9' {
		start--
	}
	if start == end {
		return 0, false
	}
	n, err := strconv.Atoi(id[start:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
