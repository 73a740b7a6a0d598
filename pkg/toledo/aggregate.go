package toledo

import "go-paineltv/pkg/textnorm"

// Aggregate collapses duplicate codes within one batch: the record with the
// strictly highest price survives, first-seen wins ties. Output order follows
// first appearance of each code.
func Aggregate(in []Candidate) []Candidate {
	idx := make(map[string]int, len(in))
	out := make([]Candidate, 0, len(in))
	for _, c := range in {
		if i, ok := idx[c.Code]; ok {
			if c.Price.GreaterThan(out[i].Price) {
				out[i] = c
			}
			continue
		}
		idx[c.Code] = len(out)
		out = append(out, c)
	}
	return out
}

// OfficialCodes builds the majority-vote table mapping each normalized name
// to the code most batches agree on. Ties go to the code seen first.
func OfficialCodes(in []Candidate) map[string]string {
	type vote struct {
		count int
		order int
	}
	votes := make(map[string]map[string]*vote)
	seq := 0
	for _, c := range in {
		name := textnorm.Normalize(c.Name)
		if votes[name] == nil {
			votes[name] = make(map[string]*vote)
		}
		v, ok := votes[name][c.Code]
		if !ok {
			v = &vote{order: seq}
			votes[name][c.Code] = v
			seq++
		}
		v.count++
	}

	out := make(map[string]string, len(votes))
	for name, codes := range votes {
		var best string
		var bestVote *vote
		for code, v := range codes {
			if bestVote == nil || v.count > bestVote.count ||
				(v.count == bestVote.count && v.order < bestVote.order) {
				best, bestVote = code, v
			}
		}
		out[name] = best
	}
	return out
}
