// Package match verifies search candidates against the submitted face.
// Each candidate's image is downloaded, run through the face embedding
// model and scored by cosine similarity; near-identical candidate images
// are grouped as duplicates.
package match

import "github.com/NomadBuilder/facetrace/internal/face"

// Result is one verified (or verification-attempted) candidate, shaped for
// the API response.
type Result struct {
	URL             string  `json:"url"`
	Title           string  `json:"title,omitempty"`
	SourceName      string  `json:"source_name"`
	FaceSimilarity  float64 `json:"face_similarity,omitempty"`
	MatchConfidence string  `json:"match_confidence,omitempty"`
	Verified        bool    `json:"verified"`
	Flagged         bool    `json:"flagged"`
	FlagReason      string  `json:"flag_reason,omitempty"`
	DuplicateOf     string  `json:"duplicate_of,omitempty"`

	embedding []float32 // candidate face embedding, kept for duplicate grouping
	imageData []byte    // downloaded bytes, kept only until grouping is done
}

// SetMatch records a verified similarity score and its confidence tier.
func (r *Result) SetMatch(similarity float64) {
	r.FaceSimilarity = similarity
	r.MatchConfidence = string(face.TierFor(similarity))
	r.Verified = true
}
