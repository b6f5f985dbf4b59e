package result

// Hit is one ranked document from a single retrieval channel.
// Score is channel-local and not comparable across channels.
// Optional fields are nil when the stored value is absent or empty.
type Hit struct {
	DocumentID         string
	Score              float64
	Category           string
	Question           string
	Answer             string
	AnswerInstructions *string
	ProjectID          *string
	ProjectName        *string
	AuthorizationID    *string
}

// Retrieval holds both channel lists, each ordered by descending native score.
type Retrieval struct {
	Text   []Hit
	Vector []Hit
}

// IsEmpty reports whether both channels returned nothing.
func (r Retrieval) IsEmpty() bool { return len(r.Text) == 0 && len(r.Vector) == 0 }

// Fused is a hit after rank fusion. Score holds the fused score; the other
// fields come from the first channel (text, then vector) that returned the document.
// TextRank and VectorRank are 1-based, 0 when the channel did not return it.
type Fused struct {
	Hit
	TextRank   int
	VectorRank int
}

// Optional returns nil for an empty string and a pointer to s otherwise.
func Optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
