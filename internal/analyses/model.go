package analyses

// Result is a validated analysis report. Field names match the provider contract.
type Result struct {
	Score            int      `json:"score"`
	Summary          string   `json:"summary"`
	MatchedKeywords  []string `json:"matchedKeywords"`
	MissingKeywords  []string `json:"missingKeywords"`
	Improvements     []string `json:"improvements"`
	FormattingIssues []string `json:"formattingIssues"`
}

// Clone returns a deep copy so callers cannot alias stored results.
func (r Result) Clone() Result {
	out := r
	out.MatchedKeywords = cloneStrings(r.MatchedKeywords)
	out.MissingKeywords = cloneStrings(r.MissingKeywords)
	out.Improvements = cloneStrings(r.Improvements)
	out.FormattingIssues = cloneStrings(r.FormattingIssues)
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
