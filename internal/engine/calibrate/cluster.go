package calibrate

import "meeting-transcription-service/internal/engine/vec"

// agglomerate runs hierarchical clustering with average linkage over
// cosine distance. Two clusters merge while their average pairwise
// distance stays below maxDistance. The result assigns each input
// vector a cluster id; ids are dense but otherwise arbitrary (the
// normalizer renumbers them later). Deterministic for identical input:
// ties merge the lowest-indexed pair.
func agglomerate(vectors [][]float32, maxDistance float64) []int {
	n := len(vectors)
	if n == 0 {
		return nil
	}

	// Pairwise distance matrix. The population here is one entry per
	// (chunk, local speaker), so n stays small even for long audio.
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
		for j := 0; j < i; j++ {
			d := vec.CosineDistance(vectors[i], vectors[j])
			dist[i][j] = d
			dist[j][i] = d
		}
	}

	clusters := make([][]int, n)
	for i := range clusters {
		clusters[i] = []int{i}
	}

	linkage := func(a, b []int) float64 {
		sum := 0.0
		for _, i := range a {
			for _, j := range b {
				sum += dist[i][j]
			}
		}
		return sum / float64(len(a)*len(b))
	}

	for len(clusters) > 1 {
		bestA, bestB := -1, -1
		bestDist := maxDistance
		for a := 0; a < len(clusters); a++ {
			for b := a + 1; b < len(clusters); b++ {
				if d := linkage(clusters[a], clusters[b]); d < bestDist {
					bestA, bestB = a, b
					bestDist = d
				}
			}
		}
		if bestA < 0 {
			break
		}
		clusters[bestA] = append(clusters[bestA], clusters[bestB]...)
		clusters = append(clusters[:bestB], clusters[bestB+1:]...)
	}

	assignment := make([]int, n)
	for id, members := range clusters {
		for _, m := range members {
			assignment[m] = id
		}
	}
	return assignment
}
