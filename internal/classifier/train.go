package classifier

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/rotisserie/eris"
)

// TrainParams controls forest training.
type TrainParams struct {
	Trees    int
	MaxDepth int
	MinLeaf  int
	Seed     uint64
}

func (p TrainParams) withDefaults() TrainParams {
	if p.Trees <= 0 {
		p.Trees = 100
	}
	if p.MaxDepth <= 0 {
		p.MaxDepth = 12
	}
	if p.MinLeaf <= 0 {
		p.MinLeaf = 1
	}
	return p
}

// Train fits a random forest on the given samples. ys holds class indices in
// [0, numClasses). Each tree is grown on a bootstrap sample with sqrt-sized
// feature subsets per split, gini impurity as the criterion.
func Train(xs [][]float64, ys []int, numClasses int, params TrainParams) (*Forest, error) {
	if len(xs) == 0 {
		return nil, eris.New("train: no samples")
	}
	if len(xs) != len(ys) {
		return nil, eris.Errorf("train: %d samples but %d labels", len(xs), len(ys))
	}
	if numClasses <= 1 {
		return nil, eris.Errorf("train: need at least 2 classes, got %d", numClasses)
	}
	for _, y := range ys {
		if y < 0 || y >= numClasses {
			return nil, eris.Errorf("train: label %d out of range", y)
		}
	}

	params = params.withDefaults()
	rng := rand.New(rand.NewPCG(params.Seed, params.Seed^0x9e3779b97f4a7c15))

	numFeatures := len(xs[0])
	mtry := int(math.Ceil(math.Sqrt(float64(numFeatures))))

	forest := &Forest{NumClasses: numClasses, Trees: make([]Tree, 0, params.Trees)}
	for range params.Trees {
		// Bootstrap sample with replacement.
		sample := make([]int, len(xs))
		for i := range sample {
			sample[i] = rng.IntN(len(xs))
		}

		b := &treeBuilder{
			xs:         xs,
			ys:         ys,
			numClasses: numClasses,
			mtry:       mtry,
			params:     params,
			rng:        rng,
		}
		b.grow(sample, 0)
		forest.Trees = append(forest.Trees, Tree{Nodes: b.nodes})
	}
	return forest, nil
}

type treeBuilder struct {
	xs         [][]float64
	ys         []int
	numClasses int
	mtry       int
	params     TrainParams
	rng        *rand.Rand
	nodes      []node
}

// grow recursively builds the subtree for the given sample indices and
// returns the node index.
func (b *treeBuilder) grow(idxs []int, depth int) int {
	counts := make([]float64, b.numClasses)
	for _, i := range idxs {
		counts[b.ys[i]]++
	}

	self := len(b.nodes)
	b.nodes = append(b.nodes, node{Left: -1, Right: -1, Counts: counts})

	if depth >= b.params.MaxDepth || len(idxs) < 2*b.params.MinLeaf || isPure(counts) {
		return self
	}

	featIdx, threshold, ok := b.bestSplit(idxs, counts)
	if !ok {
		return self
	}

	var left, right []int
	for _, i := range idxs {
		if b.xs[i][featIdx] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < b.params.MinLeaf || len(right) < b.params.MinLeaf {
		return self
	}

	leftIdx := b.grow(left, depth+1)
	rightIdx := b.grow(right, depth+1)

	b.nodes[self].Feature = featIdx
	b.nodes[self].Threshold = threshold
	b.nodes[self].Left = leftIdx
	b.nodes[self].Right = rightIdx
	b.nodes[self].Counts = nil
	return self
}

// bestSplit searches a random feature subset for the threshold with the
// lowest weighted gini impurity.
func (b *treeBuilder) bestSplit(idxs []int, parentCounts []float64) (feat int, threshold float64, ok bool) {
	features := b.rng.Perm(len(b.xs[0]))[:b.mtry]

	bestGini := math.Inf(1)
	parentGini := gini(parentCounts, float64(len(idxs)))

	for _, f := range features {
		values := make([]float64, 0, len(idxs))
		for _, i := range idxs {
			values = append(values, b.xs[i][f])
		}
		sort.Float64s(values)

		for v := 1; v < len(values); v++ {
			if values[v] == values[v-1] {
				continue
			}
			t := (values[v] + values[v-1]) / 2

			leftCounts := make([]float64, b.numClasses)
			rightCounts := make([]float64, b.numClasses)
			var nLeft, nRight float64
			for _, i := range idxs {
				if b.xs[i][f] <= t {
					leftCounts[b.ys[i]]++
					nLeft++
				} else {
					rightCounts[b.ys[i]]++
					nRight++
				}
			}
			if nLeft == 0 || nRight == 0 {
				continue
			}

			weighted := (nLeft*gini(leftCounts, nLeft) + nRight*gini(rightCounts, nRight)) / float64(len(idxs))
			if weighted < bestGini {
				bestGini = weighted
				feat = f
				threshold = t
				ok = true
			}
		}
	}

	// Reject splits that do not improve on the parent.
	if ok && bestGini >= parentGini {
		return 0, 0, false
	}
	return feat, threshold, ok
}

func gini(counts []float64, total float64) float64 {
	if total == 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := c / total
		g -= p * p
	}
	return g
}

func isPure(counts []float64) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}
