// Package clusterer implements single-linkage agglomerative clustering
// over unit-normalized embedding vectors.
package clusterer

import (
	"sort"

	"github.com/toyinlola/commitgroup/diffmodel"
)

// Cluster groups sub-hunk indices whose pairwise single-linkage distance
// never exceeded threshold at the point they were merged (§4.6).
func Cluster(vectors []diffmodel.EmbeddingVector, threshold float64) []diffmodel.Cluster {
	n := len(vectors)
	if n == 0 {
		return nil
	}
	if n == 1 {
		return []diffmodel.Cluster{{Indices: []int{0}}}
	}

	// dist[i][j] for i < j is the current single-linkage distance between
	// the clusters that currently contain original points i and j (updated
	// as clusters merge). active tracks which cluster ids are still live.
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := 1 - dot(vectors[i], vectors[j])
			dist[i][j] = d
			dist[j][i] = d
		}
	}

	members := make([][]int, n)
	for i := range members {
		members[i] = []int{i}
	}
	active := make([]bool, n)
	for i := range active {
		active[i] = true
	}
	numActive := n

	for numActive > 1 {
		bi, bj, best := -1, -1, 0.0
		found := false
		for i := 0; i < n; i++ {
			if !active[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if !active[j] {
					continue
				}
				if !found || dist[i][j] < best {
					bi, bj, best = i, j, dist[i][j]
					found = true
				}
			}
		}
		if !found || best > threshold {
			break
		}

		// Merge bj into bi: single-linkage distance to every other active
		// cluster k is the minimum of the two pre-merge distances.
		for k := 0; k < n; k++ {
			if !active[k] || k == bi || k == bj {
				continue
			}
			d := minDist(dist, bi, bj, k)
			setDist(dist, bi, k, d)
		}
		members[bi] = append(members[bi], members[bj]...)
		active[bj] = false
		numActive--
	}

	var out []diffmodel.Cluster
	for i := 0; i < n; i++ {
		if active[i] {
			sort.Ints(members[i])
			out = append(out, diffmodel.Cluster{Indices: members[i]})
		}
	}
	return out
}

func minDist(dist [][]float64, a, b, k int) float64 {
	da := getDist(dist, a, k)
	db := getDist(dist, b, k)
	if da < db {
		return da
	}
	return db
}

func getDist(dist [][]float64, i, j int) float64 {
	if i < j {
		return dist[i][j]
	}
	return dist[j][i]
}

func setDist(dist [][]float64, i, j int, v float64) {
	if i < j {
		dist[i][j] = v
	} else {
		dist[j][i] = v
	}
}

// dot computes the dot product of two equal-length vectors, which equals
// cosine similarity when both are unit-normalized, as §4.6 assumes.
func dot(a, b diffmodel.EmbeddingVector) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
