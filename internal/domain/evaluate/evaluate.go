// Package evaluate computes the classification metric set for one miner.
//
// All metrics are computed over valid records only; invalid records are
// counted and reported but never enter a denominator. Mathematically
// undefined cases resolve to documented sentinels, never to NaN.
package evaluate

import (
	"math"

	"github.com/subnetlab/minerscope/internal/domain/labels"
	"github.com/subnetlab/minerscope/internal/domain/model"
)

// Engine computes MinerMetricSets over a shared read-only vocabulary.
type Engine struct {
	vocab *labels.Vocabulary
}

// New creates an Engine for the given vocabulary.
func New(vocab *labels.Vocabulary) *Engine {
	return &Engine{vocab: vocab}
}

// Compute derives the full metric set for one miner's aligned records in the
// given mode. Zero valid records yields the no-data sentinel on every metric.
func (e *Engine) Compute(minerID string, records []model.AlignedRecord, mode model.Mode) model.MinerMetricSet {
	set := model.MinerMetricSet{
		MinerID: minerID,
		Mode:    mode,
		Total:   len(records),
	}

	classes := e.vocab.Classes()
	if mode == model.ModeBinary {
		classes = []model.Class{model.ClassReal, model.ClassSynthetic}
	}

	cm := newConfusion(classes)
	for _, r := range records {
		pred, ok := r.Predicted.Class()
		if !ok {
			set.Invalid++
			continue
		}
		truth := r.Truth
		if mode == model.ModeBinary {
			truth, pred = truth.ToBinary(), pred.ToBinary()
		}
		cm.add(truth, pred)
		set.Valid++
	}

	if set.Valid == 0 {
		set.Accuracy = model.NoDataValue()
		set.Precision = model.NoDataValue()
		set.Recall = model.NoDataValue()
		set.F1 = model.NoDataValue()
		set.MCC = model.NoDataValue()
		set.AUC = model.NoDataValue()
		return set
	}

	set.Accuracy = model.DefinedValue(float64(cm.trace()) / float64(set.Valid))
	set.MCC = model.DefinedValue(cm.matthews())

	if mode == model.ModeBinary {
		p, r, f1 := cm.binaryPRF(model.ClassSynthetic)
		set.Precision = model.DefinedValue(p)
		set.Recall = model.DefinedValue(r)
		set.F1 = model.DefinedValue(f1)
		set.AUC = binaryAUC(records)
	} else {
		p, r, f1 := cm.macroPRF()
		set.Precision = model.DefinedValue(p)
		set.Recall = model.DefinedValue(r)
		set.F1 = model.DefinedValue(f1)
		set.AUC = model.UndefinedValue()
	}
	return set
}

// confusion is a dense confusion matrix over a fixed class enumeration.
type confusion struct {
	classes []model.Class
	index   map[model.Class]int
	cells   [][]int // [truth][pred]
	total   int
}

func newConfusion(classes []model.Class) *confusion {
	cm := &confusion{
		classes: classes,
		index:   make(map[model.Class]int, len(classes)),
		cells:   make([][]int, len(classes)),
	}
	for i, c := range classes {
		cm.index[c] = i
		cm.cells[i] = make([]int, len(classes))
	}
	return cm
}

func (cm *confusion) add(truth, pred model.Class) {
	cm.cells[cm.index[truth]][cm.index[pred]]++
	cm.total++
}

func (cm *confusion) trace() int {
	n := 0
	for i := range cm.cells {
		n += cm.cells[i][i]
	}
	return n
}

// truthCount and predCount are the row and column marginals.
func (cm *confusion) truthCount(i int) int {
	n := 0
	for j := range cm.cells[i] {
		n += cm.cells[i][j]
	}
	return n
}

func (cm *confusion) predCount(j int) int {
	n := 0
	for i := range cm.cells {
		n += cm.cells[i][j]
	}
	return n
}

// binaryPRF computes precision, recall, and F1 with the given positive
// class. Empty denominators contribute 0, matching the macro policy.
func (cm *confusion) binaryPRF(positive model.Class) (precision, recall, f1 float64) {
	i := cm.index[positive]
	tp := cm.cells[i][i]
	fp := cm.predCount(i) - tp
	fn := cm.truthCount(i) - tp
	return prf(tp, fp, fn)
}

// macroPRF averages per-class precision, recall, and F1 unweighted across
// the whole vocabulary. A class absent from both truth and prediction
// contributes a defined 0 to each average; the denominator is always the
// vocabulary size, keeping aggregates comparable across miners.
func (cm *confusion) macroPRF() (precision, recall, f1 float64) {
	k := float64(len(cm.classes))
	for i := range cm.classes {
		tp := cm.cells[i][i]
		fp := cm.predCount(i) - tp
		fn := cm.truthCount(i) - tp
		p, r, f := prf(tp, fp, fn)
		precision += p
		recall += r
		f1 += f
	}
	return precision / k, recall / k, f1 / k
}

func prf(tp, fp, fn int) (precision, recall, f1 float64) {
	if tp+fp > 0 {
		precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		recall = float64(tp) / float64(tp+fn)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return precision, recall, f1
}

// matthews computes the generalized multiclass Matthews correlation
// coefficient (Gorodkin). A degenerate matrix, e.g. a single true class or a
// single predicted class, has an algebraically zero denominator; the result
// is defined as 0 by convention.
func (cm *confusion) matthews() float64 {
	s := float64(cm.total)
	c := float64(cm.trace())
	var sumTP, sumT2, sumP2 float64
	for i := range cm.classes {
		t := float64(cm.truthCount(i))
		p := float64(cm.predCount(i))
		sumTP += t * p
		sumT2 += t * t
		sumP2 += p * p
	}
	denom := math.Sqrt(s*s-sumP2) * math.Sqrt(s*s-sumT2)
	if denom == 0 {
		return 0
	}
	return (c*s - sumTP) / denom
}
