package evaluate

import (
	"sort"

	"github.com/subnetlab/minerscope/internal/domain/model"
)

// binaryAUC computes the area under the ROC curve from the binary
// fake-probability column using the rank-sum (Mann-Whitney) statistic with
// tie-averaged ranks. It returns the undefined sentinel when no valid record
// carries a score or when only one truth class appears among the scored
// records; a fabricated value would not be comparable across miners.
func binaryAUC(records []model.AlignedRecord) model.MetricValue {
	type scored struct {
		score    float64
		positive bool
	}
	var obs []scored
	for _, r := range records {
		if !r.Predicted.Valid() || !r.HasScore {
			continue
		}
		obs = append(obs, scored{
			score:    r.Score,
			positive: r.Truth.ToBinary() != model.ClassReal,
		})
	}
	if len(obs) == 0 {
		return model.UndefinedValue()
	}

	var pos, neg int
	for _, o := range obs {
		if o.positive {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return model.UndefinedValue()
	}

	sort.Slice(obs, func(i, j int) bool { return obs[i].score < obs[j].score })

	// Sum tie-averaged ranks of the positive observations.
	rankSum := 0.0
	for i := 0; i < len(obs); {
		j := i
		for j < len(obs) && obs[j].score == obs[i].score {
			j++
		}
		// Ranks are 1-based; tied scores share the mean rank of the run.
		avgRank := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			if obs[k].positive {
				rankSum += avgRank
			}
		}
		i = j
	}

	np, nn := float64(pos), float64(neg)
	auc := (rankSum - np*(np+1)/2) / (np * nn)
	return model.DefinedValue(auc)
}
