// Package kmeans implements an alternative, non-default scheduling
// order: partition particles into K spatial clusters by 2-D k-means,
// over-decomposing so each worker holds several clusters, and
// dispatch clusters dynamically.
//
// Lloyd's algorithm: centroids seeded from the first K particles,
// convergence bounded by MaxIterations, with the final label array
// packed into per-cluster index lists. Measured strictly worse than
// Morton-order dynamic-chunk scheduling at every particle count
// tested; kept as a benchmark option, not the default.
package kmeans

import "math"

// MaxIterations bounds Lloyd's algorithm iterations.
const MaxIterations = 50

// convergeTol is the centroid-movement tolerance below which
// iteration stops early, rather than spinning on exact equality.
const convergeTol = 1e-9

// Clusters holds the result of a k-means partition: for each cluster
// k, Members[k] lists the particle indices assigned to it.
type Clusters struct {
	Members [][]int
}

// Run partitions N particles at (posX, posY) into k clusters.
//
// If k >= N, seeding wraps the seed index modulo N rather than
// leaving it undefined: centroid i seeds from particle i%N. Clusters
// that end up empty after assignment keep a zero-length Members
// entry; their centroid simply stops moving, which is harmless since
// an empty cluster contributes no work to the scheduler.
func Run(posX, posY []float64, k int) Clusters {
	n := len(posX)
	if k <= 0 {
		k = 1
	}

	ctrX := make([]float64, k)
	ctrY := make([]float64, k)
	for i := 0; i < k; i++ {
		seed := i % n
		ctrX[i] = posX[seed]
		ctrY[i] = posY[seed]
	}

	labels := make([]int, n)
	oldX := make([]float64, k)
	oldY := make([]float64, k)

	for iter := 0; iter < MaxIterations; iter++ {
		copy(oldX, ctrX)
		copy(oldY, ctrY)

		assignLabels(posX, posY, ctrX, ctrY, labels)
		updateCentroids(posX, posY, labels, k, ctrX, ctrY)

		if converged(ctrX, ctrY, oldX, oldY) {
			break
		}
	}

	sizes := make([]int, k)
	for _, l := range labels {
		sizes[l]++
	}
	members := make([][]int, k)
	for i, sz := range sizes {
		members[i] = make([]int, 0, sz)
	}
	for i, l := range labels {
		members[l] = append(members[l], i)
	}
	return Clusters{Members: members}
}

func assignLabels(posX, posY, ctrX, ctrY []float64, labels []int) {
	for i := range posX {
		best := 0
		bestDist := math.MaxFloat64
		for c := range ctrX {
			dx := posX[i] - ctrX[c]
			dy := posY[i] - ctrY[c]
			d := dx*dx + dy*dy
			if d < bestDist {
				bestDist = d
				best = c
			}
		}
		labels[i] = best
	}
}

func updateCentroids(posX, posY []float64, labels []int, k int, ctrX, ctrY []float64) {
	sumX := make([]float64, k)
	sumY := make([]float64, k)
	count := make([]int, k)
	for i, l := range labels {
		sumX[l] += posX[i]
		sumY[l] += posY[i]
		count[l]++
	}
	for c := 0; c < k; c++ {
		if count[c] == 0 {
			continue // leave centroid in place; cluster is empty
		}
		ctrX[c] = sumX[c] / float64(count[c])
		ctrY[c] = sumY[c] / float64(count[c])
	}
}

func converged(ctrX, ctrY, oldX, oldY []float64) bool {
	for i := range ctrX {
		if math.Abs(ctrX[i]-oldX[i]) > convergeTol || math.Abs(ctrY[i]-oldY[i]) > convergeTol {
			return false
		}
	}
	return true
}
