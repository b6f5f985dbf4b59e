package search

import (
	"cmp"
	"math"
	"slices"

	"github.com/kailas-cloud/qadex/internal/domain/search/result"
)

// RRFK is the Reciprocal Rank Fusion damping constant.
const RRFK = 60

// Rerank fuses both channels of r with Reciprocal Rank Fusion:
// score(d) = 1/(k + rank_text(d)) + 1/(k + rank_vector(d)), where a channel
// that did not return d contributes 0.
//
// Each document appears once. Its fields come from the text channel when it is
// there, otherwise from the vector channel. Equal scores are ordered by text
// rank, then vector rank (absent ranks last), then document id.
func Rerank(r result.Retrieval) []result.Fused {
	textRank := rankIndex(r.Text)
	vectorRank := rankIndex(r.Vector)

	fused := make([]result.Fused, 0, len(textRank)+len(vectorRank))
	seen := make(map[string]struct{}, cap(fused))
	for _, list := range [][]result.Hit{r.Text, r.Vector} {
		for _, h := range list {
			if _, ok := seen[h.DocumentID]; ok {
				continue
			}
			seen[h.DocumentID] = struct{}{}

			tr, vr := textRank[h.DocumentID], vectorRank[h.DocumentID]
			f := result.Fused{Hit: h, TextRank: tr, VectorRank: vr}
			f.Score = reciprocal(tr) + reciprocal(vr)
			fused = append(fused, f)
		}
	}

	slices.SortFunc(fused, func(a, b result.Fused) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(orInf(a.TextRank), orInf(b.TextRank)); c != 0 {
			return c
		}
		if c := cmp.Compare(orInf(a.VectorRank), orInf(b.VectorRank)); c != 0 {
			return c
		}
		return cmp.Compare(a.DocumentID, b.DocumentID)
	})
	return fused
}

// rankIndex maps document id to its 1-based position. A repeated id keeps its first rank.
func rankIndex(hits []result.Hit) map[string]int {
	idx := make(map[string]int, len(hits))
	for i, h := range hits {
		if _, ok := idx[h.DocumentID]; !ok {
			idx[h.DocumentID] = i + 1
		}
	}
	return idx
}

func reciprocal(rank int) float64 {
	if rank == 0 {
		return 0
	}
	return 1 / float64(RRFK+rank)
}

func orInf(rank int) int {
	if rank == 0 {
		return math.MaxInt
	}
	return rank
}
