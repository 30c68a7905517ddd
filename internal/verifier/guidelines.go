package verifier

// Guideline is one community rule posts are checked against.
type Guideline struct {
	Description string `json:"description"`
}

var guidelines = []Guideline{
	{Description: "No explicit or adult content"},
	{Description: "No hate speech or discriminatory content"},
	{Description: "No violence or graphic content"},
	{Description: "No harassment or bullying"},
	{Description: "No spam or misleading content"},
	{Description: "AI-generated images must be labeled as such"},
	{Description: "Content must be appropriate for all ages"},
	{Description: "No illegal content or promotion of illegal activities"},
}

// Guidelines returns a copy of the community guidelines.
func Guidelines() []Guideline {
	out := make([]Guideline, len(guidelines))
	copy(out, guidelines)
	return out
}
