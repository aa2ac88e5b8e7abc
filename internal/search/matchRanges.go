package search

// MatchRanges collects match indices
type MatchRanges struct {
	Matches [][2]int
}

// InRange says true if the index is part of a regexp match
func (mr *MatchRanges) InRange(index int) bool {
	if mr == nil {
		return false
	}

	for _, match := range mr.Matches {
		matchFirstIndex := match[0]
		matchLastIndex := match[1] - 1

		if index < matchFirstIndex {
			continue
		}

		if index > matchLastIndex {
			continue
		}

		return true
	}

	return false
}

func (mr *MatchRanges) Empty() bool {
	return mr == nil || len(mr.Matches) == 0
}

// Highlight wraps every match in line with before and after
func (mr *MatchRanges) Highlight(line []byte, before string, after string) []byte {
	if mr.Empty() {
		return line
	}

	highlighted := make([]byte, 0, len(line)+len(mr.Matches)*(len(before)+len(after)))
	previousEnd := 0
	for _, match := range mr.Matches {
		highlighted = append(highlighted, line[previousEnd:match[0]]...)
		highlighted = append(highlighted, before...)
		highlighted = append(highlighted, line[match[0]:match[1]]...)
		highlighted = append(highlighted, after...)
		previousEnd = match[1]
	}

	return append(highlighted, line[previousEnd:]...)
}
