package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// RandomForest is a bagged ensemble of regression trees. Each tree trains on
// a bootstrap sample and considers a random subset of features per split;
// predictions average across trees.
type RandomForest struct {
	NumTrees    int
	MaxDepth    int
	MinLeafSize int
	Seed        int64
	Trees       []*TreeNode
}

// TreeNode is one node of a fitted regression tree. Leaf nodes carry Value;
// internal nodes split on Feature at Threshold. Fields are exported for gob.
type TreeNode struct {
	Feature   int
	Threshold float64
	Value     float64
	Left      *TreeNode
	Right     *TreeNode
}

// NewRandomForest returns an unfitted forest with the given ensemble size
// and deterministic seed.
func NewRandomForest(trees int, seed int64) *RandomForest {
	return &RandomForest{
		NumTrees:    trees,
		MaxDepth:    12,
		MinLeafSize: 2,
		Seed:        seed,
	}
}

// Fit grows the ensemble over the training partition.
func (rf *RandomForest) Fit(X *mat.Dense, y []float64) error {
	n, d := X.Dims()
	if n == 0 || n != len(y) {
		return fmt.Errorf("forest fit: %d rows vs %d targets", n, len(y))
	}
	if rf.NumTrees <= 0 {
		return fmt.Errorf("forest fit: ensemble size %d", rf.NumTrees)
	}

	// Feature subsampling per split, sqrt(d) as is conventional for bagged
	// regression on mixed encodings.
	mtry := int(math.Sqrt(float64(d)))
	if mtry < 1 {
		mtry = 1
	}

	rng := rand.New(rand.NewSource(rf.Seed))
	rf.Trees = make([]*TreeNode, rf.NumTrees)
	for t := 0; t < rf.NumTrees; t++ {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = rng.Intn(n)
		}
		rf.Trees[t] = rf.grow(X, y, idx, d, mtry, 0, rng)
	}
	return nil
}

func (rf *RandomForest) grow(X *mat.Dense, y []float64, idx []int, d, mtry, depth int, rng *rand.Rand) *TreeNode {
	if depth >= rf.MaxDepth || len(idx) < 2*rf.MinLeafSize || pure(y, idx) {
		return &TreeNode{Feature: -1, Value: meanAt(y, idx)}
	}

	feat, thresh, ok := rf.bestSplit(X, y, idx, d, mtry, rng)
	if !ok {
		return &TreeNode{Feature: -1, Value: meanAt(y, idx)}
	}

	var left, right []int
	for _, i := range idx {
		if X.At(i, feat) <= thresh {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < rf.MinLeafSize || len(right) < rf.MinLeafSize {
		return &TreeNode{Feature: -1, Value: meanAt(y, idx)}
	}

	return &TreeNode{
		Feature:   feat,
		Threshold: thresh,
		Left:      rf.grow(X, y, left, d, mtry, depth+1, rng),
		Right:     rf.grow(X, y, right, d, mtry, depth+1, rng),
	}
}

// bestSplit scans a random feature subset for the split minimizing the
// weighted sum of child variances.
func (rf *RandomForest) bestSplit(X *mat.Dense, y []float64, idx []int, d, mtry int, rng *rand.Rand) (int, float64, bool) {
	feats := rng.Perm(d)[:mtry]

	bestScore := math.Inf(1)
	bestFeat, bestThresh := -1, 0.0

	vals := make([]float64, len(idx))
	for _, feat := range feats {
		for k, i := range idx {
			vals[k] = X.At(i, feat)
		}
		cands := append([]float64(nil), vals...)
		sort.Float64s(cands)

		for k := 0; k+1 < len(cands); k++ {
			if cands[k] == cands[k+1] {
				continue
			}
			thresh := (cands[k] + cands[k+1]) / 2

			var lSum, lSq, rSum, rSq float64
			var lN, rN int
			for j, i := range idx {
				t := y[i]
				if vals[j] <= thresh {
					lSum += t
					lSq += t * t
					lN++
				} else {
					rSum += t
					rSq += t * t
					rN++
				}
			}
			if lN < rf.MinLeafSize || rN < rf.MinLeafSize {
				continue
			}
			score := (lSq - lSum*lSum/float64(lN)) + (rSq - rSum*rSum/float64(rN))
			if score < bestScore {
				bestScore = score
				bestFeat = feat
				bestThresh = thresh
			}
		}
	}

	return bestFeat, bestThresh, bestFeat >= 0
}

// Predict averages the per-tree estimates for one encoded record.
func (rf *RandomForest) Predict(x []float64) float64 {
	if len(rf.Trees) == 0 {
		return 0
	}
	var sum float64
	for _, tree := range rf.Trees {
		sum += tree.eval(x)
	}
	return sum / float64(len(rf.Trees))
}

func (n *TreeNode) eval(x []float64) float64 {
	for n.Feature >= 0 {
		if n.Feature < len(x) && x[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

func meanAt(y []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	var sum float64
	for _, i := range idx {
		sum += y[i]
	}
	return sum / float64(len(idx))
}

func pure(y []float64, idx []int) bool {
	for _, i := range idx[1:] {
		if y[i] != y[idx[0]] {
			return false
		}
	}
	return true
}
