package extract

import "strings"

// procedureKeywords mark the start of the procedure section of an operative
// chart. The earliest match wins.
var procedureKeywords = []string{
	"PROCEDURE",
	"PROCEDURES",
	"OPERATIVE PROCEDURE",
	"OPERATIONS",
	"PROCEDURES PERFORMED",
	"SURGICAL PROCEDURE",
	"OPERATION",
}

// TruncateByWords bounds text to maxWords, keeping the procedure section when
// one exists: up to contextWords of leading context are preserved and the
// rest of the budget is spent from the procedure section onward. Charts with
// no recognizable procedure section are cut at the first maxWords.
func TruncateByWords(text string, maxWords, contextWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}

	upper := strings.ToUpper(text)
	procStart := -1
	for _, kw := range procedureKeywords {
		if idx := strings.Index(upper, kw); idx != -1 && (procStart == -1 || idx < procStart) {
			procStart = idx
		}
	}
	if procStart == -1 {
		return strings.Join(words[:maxWords], " ")
	}

	wordsBefore := strings.Fields(text[:procStart])
	budgetAfter := maxWords - min(contextWords, len(wordsBefore))
	if budgetAfter <= 0 {
		return strings.Join(words[:maxWords], " ")
	}

	wordsFrom := strings.Fields(text[procStart:])
	take := min(budgetAfter, len(wordsFrom))
	contextStart := max(0, len(wordsBefore)-contextWords)

	out := make([]string, 0, len(wordsBefore)-contextStart+take)
	out = append(out, wordsBefore[contextStart:]...)
	out = append(out, wordsFrom[:take]...)
	return strings.Join(out, " ")
}
