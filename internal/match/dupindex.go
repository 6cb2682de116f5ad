package match

import (
	"github.com/coder/hnsw"
)

// duplicateDistance is the maximum cosine distance between two candidate
// face embeddings that still counts as the same underlying image.
const duplicateDistance = 0.05

// GroupDuplicates marks results whose candidate image is effectively the
// same as an earlier result's. Verified results are grouped by embedding
// distance through an HNSW index; unverified results that still carry
// image bytes fall back to perceptual hashing. Image bytes are released
// afterwards.
func GroupDuplicates(results []Result) {
	groupByEmbedding(results)
	groupByHash(results)

	for i := range results {
		results[i].imageData = nil
	}
}

func groupByEmbedding(results []Result) {
	g := hnsw.NewGraph[int]()
	g.Distance = hnsw.CosineDistance

	indexed := 0
	for i := range results {
		r := &results[i]
		if len(r.embedding) == 0 {
			continue
		}

		var neighbors []hnsw.Node[int]
		if indexed > 0 {
			neighbors = g.Search(r.embedding, 1)
		}
		if len(neighbors) > 0 {
			canonical := neighbors[0].Key
			dist := float64(hnsw.CosineDistance(r.embedding, results[canonical].embedding))
			if dist <= duplicateDistance {
				r.DuplicateOf = results[canonical].URL
				continue
			}
		}
		g.Add(hnsw.MakeNode(i, r.embedding))
		indexed++
	}
}

func groupByHash(results []Result) {
	type hashed struct {
		index int
		hash  uint64
	}
	var canonicals []hashed

	for i := range results {
		r := &results[i]
		if r.DuplicateOf != "" || len(r.imageData) == 0 || len(r.embedding) > 0 {
			continue
		}

		h, err := dHash(r.imageData)
		if err != nil {
			continue
		}

		matched := false
		for _, c := range canonicals {
			if hammingDistance(h, c.hash) <= dHashMaxDistance {
				r.DuplicateOf = results[c.index].URL
				matched = true
				break
			}
		}
		if !matched {
			canonicals = append(canonicals, hashed{index: i, hash: h})
		}
	}
}
