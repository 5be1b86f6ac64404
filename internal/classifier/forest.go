// Package classifier implements the random-forest model behind the
// prediction service and the loading of trained artifacts.
package classifier

import (
	"github.com/rotisserie/eris"
)

// Classifier produces a probability distribution over the known classes for
// a feature vector. Probabilities sum to 1.
type Classifier interface {
	PredictProba(x []float64) ([]float64, error)
}

// node is one decision node in a tree. Leaves have Left == -1 and carry the
// class distribution observed during training.
type node struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t"`
	Left      int       `json:"l"`
	Right     int       `json:"r"`
	Counts    []float64 `json:"c,omitempty"`
}

// Tree is a CART decision tree stored as a flat node array rooted at 0.
type Tree struct {
	Nodes []node `json:"nodes"`
}

// classCounts walks the tree for x and returns the leaf distribution.
func (t *Tree) classCounts(x []float64) ([]float64, error) {
	if len(t.Nodes) == 0 {
		return nil, eris.New("classifier: empty tree")
	}
	idx := 0
	for {
		n := t.Nodes[idx]
		if n.Left < 0 {
			return n.Counts, nil
		}
		if n.Feature < 0 || n.Feature >= len(x) {
			return nil, eris.Errorf("classifier: feature index %d out of range for %d-feature input", n.Feature, len(x))
		}
		if x[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
		if idx < 0 || idx >= len(t.Nodes) {
			return nil, eris.Errorf("classifier: node index %d out of range", idx)
		}
	}
}

// Forest is an ensemble of trees voting with their leaf distributions.
type Forest struct {
	NumClasses int    `json:"num_classes"`
	Trees      []Tree `json:"trees"`
}

// PredictProba averages the normalized leaf distributions of every tree.
func (f *Forest) PredictProba(x []float64) ([]float64, error) {
	if len(f.Trees) == 0 {
		return nil, eris.New("classifier: forest has no trees")
	}
	if f.NumClasses <= 0 {
		return nil, eris.New("classifier: forest has no classes")
	}

	probs := make([]float64, f.NumClasses)
	for i := range f.Trees {
		counts, err := f.Trees[i].classCounts(x)
		if err != nil {
			return nil, err
		}
		if len(counts) != f.NumClasses {
			return nil, eris.Errorf("classifier: leaf has %d classes, forest has %d", len(counts), f.NumClasses)
		}
		total := 0.0
		for _, c := range counts {
			total += c
		}
		if total <= 0 {
			return nil, eris.New("classifier: empty leaf distribution")
		}
		for c, v := range counts {
			probs[c] += v / total
		}
	}

	for c := range probs {
		probs[c] /= float64(len(f.Trees))
	}
	return probs, nil
}

// Argmax returns the index of the largest probability, lowest index winning
// ties.
func Argmax(probs []float64) int {
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return best
}
