package port

// GuidelineHit is one scored guideline document from a payer's policy set.
type GuidelineHit struct {
	Score  float64
	ID     string
	Payer  string
	Source map[string]any
}

// GuidelineContext is the bounded, prompt-ready context built from hits.
type GuidelineContext struct {
	Text          string
	Sources       []map[string]any
	HasGuidelines bool
}

// GuidelineSource retrieves payer policy context for a procedure.
// The payer key "general" addresses the shared regulatory layer.
type GuidelineSource interface {
	Search(payerKey, query string, topK int) []GuidelineHit
	SearchByCPT(payerKey string, cptCodes []string, topK int) []GuidelineHit
	BuildContext(procName string, hits []GuidelineHit, maxChars int, payerKey string) GuidelineContext
}
