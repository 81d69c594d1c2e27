package evolution

import (
	"sort"

	"github.com/lesleslie/session-buddy/internal/embedder"
)

// cluster assigns each memory to one of k centroids via k-means over
// cosine distance, seeding deterministically from sorted memory IDs so the
// result is stable under permutation of the input slice.
func cluster(memories []Memory, k int, iterations int) (assignments []int, centroids [][]float32) {
	n := len(memories)
	if n == 0 || k <= 0 {
		return nil, nil
	}
	if k > n {
		k = n
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return memories[order[i]].ID < memories[order[j]].ID })

	dim := 0
	for _, m := range memories {
		if len(m.Embedding) > dim {
			dim = len(m.Embedding)
		}
	}
	if dim == 0 {
		return nil, nil
	}

	centroids = make([][]float32, k)
	for i := 0; i < k; i++ {
		src := memories[order[i*n/k]].Embedding
		centroids[i] = append([]float32(nil), src...)
	}

	assignments = make([]int, n)
	for iter := 0; iter < iterations; iter++ {
		changed := false
		for i, m := range memories {
			best, bestSim := 0, -2.0
			for c, centroid := range centroids {
				sim := embedder.CosineSimilarity(m.Embedding, centroid)
				if sim > bestSim {
					bestSim = sim
					best = c
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, m := range memories {
			c := assignments[i]
			counts[c]++
			for d := 0; d < len(m.Embedding) && d < dim; d++ {
				sums[c][d] += float64(m.Embedding[d])
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			newCentroid := make([]float32, dim)
			for d := 0; d < dim; d++ {
				newCentroid[d] = float32(sums[c][d] / float64(counts[c]))
			}
			centroids[c] = newCentroid
		}

		if !changed {
			break
		}
	}

	return assignments, centroids
}

// silhouetteScore computes the mean silhouette coefficient over cosine
// distance (1 - cosine similarity) for the given clustering.
func silhouetteScore(memories []Memory, assignments []int, k int) float64 {
	n := len(memories)
	if n < 2 || k < 2 {
		return 0
	}

	groups := make(map[int][]int, k)
	for i, c := range assignments {
		groups[c] = append(groups[c], i)
	}

	var total float64
	counted := 0
	for i, mi := range memories {
		own := assignments[i]
		a := meanDistance(mi, memories, groups[own], i)

		b := -1.0
		for c, members := range groups {
			if c == own || len(members) == 0 {
				continue
			}
			d := meanDistance(mi, memories, members, -1)
			if b < 0 || d < b {
				b = d
			}
		}
		if b < 0 {
			continue
		}

		maxAB := a
		if b > maxAB {
			maxAB = b
		}
		if maxAB == 0 {
			continue
		}
		total += (b - a) / maxAB
		counted++
	}
	if counted == 0 {
		return 0
	}
	return total / float64(counted)
}

func meanDistance(target Memory, all []Memory, indices []int, exclude int) float64 {
	var sum float64
	count := 0
	for _, idx := range indices {
		if idx == exclude {
			continue
		}
		sum += 1 - embedder.CosineSimilarity(target.Embedding, all[idx].Embedding)
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
