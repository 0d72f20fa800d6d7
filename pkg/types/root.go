package types

// RootSignals are the boolean and depth signals used to rank a file as a
// plausible root document.
type RootSignals struct {
	DocumentClass bool `json:"documentclass"`
	BeginDocument bool `json:"begin_document"`
	TitleOrAuthor bool `json:"title_or_author"`
	NameHint      bool `json:"name_hint"`
	Depth         int  `json:"depth"`
	MagicRoot     bool `json:"magic_root"`
	Subfiles      bool `json:"subfiles"`
}

// RankedRoot is one scored root candidate.
type RankedRoot struct {
	Score   int         `json:"score"`
	Name    string      `json:"name"`
	Signals RootSignals `json:"signals"`
}
