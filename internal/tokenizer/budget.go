package tokenizer

import (
	"fmt"
	"strings"
)

const truncationNoticeFormat = "... output truncated to %d of %d tokens"

// Budget truncates payloads whose token count exceeds MaximumTokens. Whole
// lines are kept so tabular previews stay readable.
type Budget struct {
	Counter       Counter
	MaximumTokens int
}

// Limit returns payload unchanged when it fits, otherwise the longest prefix
// of whole lines that fits followed by a truncation notice. Counting failures
// leave the payload untouched.
func (budget Budget) Limit(payload string) string {
	if budget.Counter == nil || budget.MaximumTokens <= 0 {
		return payload
	}
	totalTokens, countErr := budget.Counter.CountString(payload)
	if countErr != nil || totalTokens <= budget.MaximumTokens {
		return payload
	}

	lines := strings.Split(payload, "\n")
	keptLines := make([]string, 0, len(lines))
	usedTokens := 0
	for _, line := range lines {
		lineTokens, lineErr := budget.Counter.CountString(line + "\n")
		if lineErr != nil {
			return payload
		}
		if usedTokens+lineTokens > budget.MaximumTokens {
			break
		}
		usedTokens += lineTokens
		keptLines = append(keptLines, line)
	}
	keptLines = append(keptLines, fmt.Sprintf(truncationNoticeFormat, usedTokens, totalTokens))
	return strings.Join(keptLines, "\n")
}
