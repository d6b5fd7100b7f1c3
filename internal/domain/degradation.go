package domain

// Degradation reasons reported on answers that were produced without some capability.
const (
	DegradationRetrievalUnavailable = "retrieval_unavailable"
	DegradationSynthesis            = "synthesis_degraded"
)
