package risk

import (
	"math"
	"math/rand"
	"sort"

	"github.com/SaTyAbHr2005/sentrix/internal/domain/scanning"
)

// Training configuration. The seed is fixed so every process trains an
// identical model from the same synthetic distribution.
const (
	TrainingSeed         = 42
	SyntheticSampleCount = 1000

	forestSize   = 100
	maxTreeDepth = 5
	minLeafSize  = 5

	// splitFeatureCount is how many randomly chosen features each split
	// considers, the usual sqrt(total) heuristic.
	splitFeatureCount = 3
)

// Severity classes, ordered so the index doubles as the class encoding.
const (
	classLow = iota
	classMedium
	classHigh
	numClasses
)

// classWeights convert per-class probabilities into a 0-100 score.
var classWeights = [numClasses]float64{10, 50, 90}

var classSeverities = [numClasses]scanning.RiskSeverity{
	scanning.RiskSeverityLow,
	scanning.RiskSeverityMedium,
	scanning.RiskSeverityHigh,
}

// Classifier is a bagged decision-tree ensemble over finding feature
// vectors. It is immutable after training and safe for concurrent use.
type Classifier struct {
	trees       []*treeNode
	importances [NumFeatures]float64
}

// Prediction is the ensemble's verdict for one feature vector.
type Prediction struct {
	Score         int
	Severity      scanning.RiskSeverity
	Probabilities [numClasses]float64
}

// TrainSyntheticClassifier bootstraps a model from procedurally generated
// samples whose labels follow the same heuristics as the rule scorer. No
// external training data is required.
func TrainSyntheticClassifier() *Classifier {
	rng := rand.New(rand.NewSource(TrainingSeed))
	samples, labels := generateSyntheticSamples(rng, SyntheticSampleCount)
	return trainForest(rng, samples, labels)
}

// generateSyntheticSamples draws feature vectors and labels them with the
// heuristic ground truth the rule component encodes. Validity flags are
// drawn mutually exclusively, matching what the analyzer can actually emit.
func generateSyntheticSamples(rng *rand.Rand, n int) ([][NumFeatures]float64, []int) {
	samples := make([][NumFeatures]float64, 0, n)
	labels := make([]int, 0, n)

	bernoulli := func(p float64) float64 {
		if rng.Float64() < p {
			return 1
		}
		return 0
	}

	for i := 0; i < n; i++ {
		var v [NumFeatures]float64

		v[featIsValid] = bernoulli(0.3)
		if v[featIsValid] == 0 {
			v[featIsPlausible] = bernoulli(0.5)
		}

		r := rng.Float64()
		switch {
		case r < 0.5:
			v[featCategoryScore] = categoryTierGeneric
		case r < 0.8:
			v[featCategoryScore] = categoryTierHigh
		default:
			v[featCategoryScore] = categoryTierCritical
		}

		v[featEntropy] = rng.NormFloat64()*1.0 + 4.5
		v[featLength] = rng.NormFloat64()*15 + 40
		v[featIsPublic] = bernoulli(0.5)
		v[featIsAdmin] = bernoulli(0.5)
		v[featHasDomain] = bernoulli(0.5)

		score := 0.0
		if v[featIsValid] == 1 {
			score += 50
		}
		if v[featIsPlausible] == 1 {
			score += 20
		}
		switch v[featCategoryScore] {
		case categoryTierCritical:
			score += 30
		case categoryTierHigh:
			score += 15
		}
		if v[featIsPublic] == 1 {
			score += 15
		}
		if v[featIsAdmin] == 1 {
			score += 10
		}
		score += rng.NormFloat64() * 5

		label := classLow
		switch {
		case score > 70:
			label = classHigh
		case score > 35:
			label = classMedium
		}

		samples = append(samples, v)
		labels = append(labels, label)
	}
	return samples, labels
}

func trainForest(rng *rand.Rand, samples [][NumFeatures]float64, labels []int) *Classifier {
	c := &Classifier{trees: make([]*treeNode, 0, forestSize)}

	for t := 0; t < forestSize; t++ {
		// Bootstrap sample with replacement.
		idx := make([]int, len(samples))
		for i := range idx {
			idx[i] = rng.Intn(len(samples))
		}
		tree := buildTree(rng, samples, labels, idx, 0, &c.importances)
		c.trees = append(c.trees, tree)
	}

	// Normalize accumulated impurity gains into relative importances.
	total := 0.0
	for _, imp := range c.importances {
		total += imp
	}
	if total > 0 {
		for i := range c.importances {
			c.importances[i] /= total
		}
	}
	return c
}

// Predict averages the per-tree class distributions and maps them to a
// weighted 0-100 score plus the most probable severity.
func (c *Classifier) Predict(features [NumFeatures]float64) Prediction {
	var probs [numClasses]float64
	for _, tree := range c.trees {
		leaf := tree.descend(features)
		for i := range probs {
			probs[i] += leaf.probs[i]
		}
	}
	for i := range probs {
		probs[i] /= float64(len(c.trees))
	}

	score := 0.0
	best := 0
	for i, p := range probs {
		score += classWeights[i] * p
		if p > probs[best] {
			best = i
		}
	}
	return Prediction{
		Score:         int(math.Round(score)),
		Severity:      classSeverities[best],
		Probabilities: probs,
	}
}

// TopFeatures returns the n globally most important features.
func (c *Classifier) TopFeatures(n int) []scanning.FeatureImportance {
	order := make([]int, NumFeatures)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return c.importances[order[a]] > c.importances[order[b]]
	})

	if n > NumFeatures {
		n = NumFeatures
	}
	out := make([]scanning.FeatureImportance, 0, n)
	for _, i := range order[:n] {
		out = append(out, scanning.FeatureImportance{
			Feature:    featureNames[i],
			Importance: c.importances[i],
		})
	}
	return out
}

// treeNode is one node of a CART decision tree. Leaves carry the class
// distribution of their training subset.
type treeNode struct {
	leaf      bool
	probs     [numClasses]float64
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

func (n *treeNode) descend(features [NumFeatures]float64) *treeNode {
	node := n
	for !node.leaf {
		if features[node.feature] <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node
}

func buildTree(
	rng *rand.Rand,
	samples [][NumFeatures]float64,
	labels []int,
	idx []int,
	depth int,
	importances *[NumFeatures]float64,
) *treeNode {
	counts := countClasses(labels, idx)

	if depth >= maxTreeDepth || len(idx) < 2*minLeafSize || isPure(counts) {
		return leafNode(counts, len(idx))
	}

	feature, threshold, gain, ok := bestSplit(rng, samples, labels, idx)
	if !ok {
		return leafNode(counts, len(idx))
	}
	importances[feature] += gain

	var leftIdx, rightIdx []int
	for _, i := range idx {
		if samples[i][feature] <= threshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}
	if len(leftIdx) < minLeafSize || len(rightIdx) < minLeafSize {
		return leafNode(counts, len(idx))
	}

	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      buildTree(rng, samples, labels, leftIdx, depth+1, importances),
		right:     buildTree(rng, samples, labels, rightIdx, depth+1, importances),
	}
}

func leafNode(counts [numClasses]int, total int) *treeNode {
	node := &treeNode{leaf: true}
	if total == 0 {
		node.probs[classLow] = 1
		return node
	}
	for i, c := range counts {
		node.probs[i] = float64(c) / float64(total)
	}
	return node
}

// bestSplit searches a random feature subset for the threshold with the
// highest gini gain.
func bestSplit(
	rng *rand.Rand,
	samples [][NumFeatures]float64,
	labels []int,
	idx []int,
) (feature int, threshold, gain float64, ok bool) {
	parentImpurity := gini(countClasses(labels, idx), len(idx))

	features := rng.Perm(NumFeatures)[:splitFeatureCount]
	bestGain := 0.0

	for _, f := range features {
		values := make([]float64, 0, len(idx))
		for _, i := range idx {
			values = append(values, samples[i][f])
		}
		sort.Float64s(values)

		for vi := 1; vi < len(values); vi++ {
			if values[vi] == values[vi-1] {
				continue
			}
			th := (values[vi] + values[vi-1]) / 2

			var leftCounts, rightCounts [numClasses]int
			leftN, rightN := 0, 0
			for _, i := range idx {
				if samples[i][f] <= th {
					leftCounts[labels[i]]++
					leftN++
				} else {
					rightCounts[labels[i]]++
					rightN++
				}
			}
			if leftN == 0 || rightN == 0 {
				continue
			}

			weighted := (float64(leftN)*gini(leftCounts, leftN) +
				float64(rightN)*gini(rightCounts, rightN)) / float64(len(idx))
			g := parentImpurity - weighted
			if g > bestGain {
				bestGain = g
				feature = f
				threshold = th
				ok = true
			}
		}
	}
	if !ok {
		return 0, 0, 0, false
	}
	// Scale the gain by subset size so deep tiny splits matter less.
	return feature, threshold, bestGain * float64(len(idx)), true
}

func countClasses(labels []int, idx []int) [numClasses]int {
	var counts [numClasses]int
	for _, i := range idx {
		counts[labels[i]]++
	}
	return counts
}

func isPure(counts [numClasses]int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func gini(counts [numClasses]int, total int) float64 {
	if total == 0 {
		return 0
	}
	impurity := 1.0
	for _, c := range counts {
		p := float64(c) / float64(total)
		impurity -= p * p
	}
	return impurity
}
