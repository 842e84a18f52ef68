package aggregate

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/subnetlab/minerscope/internal/domain/model"
)

// InvalidMarker is the explicit marker rendered for predictions with no
// usable class. It replaces the source tool's NaN propagation.
const InvalidMarker = "invalid"

// DetailedRow is one audit row of the detailed table: the verbatim join of
// a challenge and one miner's prediction, valid or not.
type DetailedRow struct {
	ChallengeID  string
	MinerID      string
	Modality     model.Modality
	ValidatorRun string
	TS           time.Time
	Truth        model.Class
	Predicted    model.PredictedClass
	Score        float64
	HasScore     bool
	CorrectBin   bool // binary-mode correctness, false for invalid
	CorrectMulti bool // multiclass-mode correctness, false for invalid
	MediaRef     string
}

func newDetailedRow(rec model.AlignedRecord) DetailedRow {
	return DetailedRow{
		ChallengeID:  rec.ChallengeID,
		MinerID:      rec.MinerID,
		Modality:     rec.Modality,
		ValidatorRun: rec.ValidatorRun,
		TS:           rec.TS,
		Truth:        rec.Truth,
		Predicted:    rec.Predicted,
		Score:        rec.Score,
		HasScore:     rec.HasScore,
		CorrectBin:   rec.Correct(model.ModeBinary),
		CorrectMulti: rec.Correct(model.ModeMulticlass),
		MediaRef:     rec.MediaRef,
	}
}

// PredictedLabel renders the predicted class or the invalid marker.
func (r DetailedRow) PredictedLabel() string {
	if c, ok := r.Predicted.Class(); ok {
		return strconv.Itoa(int(c))
	}
	return InvalidMarker
}

// ScoreLabel renders the binary fake-probability, empty when absent.
func (r DetailedRow) ScoreLabel() string {
	if !r.HasScore {
		return ""
	}
	return strconv.FormatFloat(r.Score, 'f', 6, 64)
}

// Tables is the full reconciliation output.
type Tables struct {
	Detailed          []DetailedRow
	Summary           []model.MinerMetricSet
	DroppedChallenges []string
}

// detailedHeader and summaryHeader fix the CSV column order. Output is
// byte-identical across runs for identical input.
var detailedHeader = []string{
	"challenge_id", "miner_id", "modality", "validator_run", "timestamp",
	"ground_truth", "predicted", "score", "correct_binary", "correct_multiclass",
	"media_ref",
}

var summaryHeader = []string{
	"miner_id", "mode", "total", "valid", "invalid",
	"accuracy", "precision", "recall", "f1", "mcc", "auc",
}

// WriteDetailedCSV writes the detailed table.
func (t Tables) WriteDetailedCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(detailedHeader); err != nil {
		return err
	}
	for _, r := range t.Detailed {
		row := []string{
			r.ChallengeID,
			r.MinerID,
			string(r.Modality),
			r.ValidatorRun,
			r.TS.UTC().Format(time.RFC3339),
			strconv.Itoa(int(r.Truth)),
			r.PredictedLabel(),
			r.ScoreLabel(),
			strconv.FormatBool(r.CorrectBin),
			strconv.FormatBool(r.CorrectMulti),
			r.MediaRef,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaryCSV writes the summary table.
func (t Tables) WriteSummaryCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryHeader); err != nil {
		return err
	}
	for _, s := range t.Summary {
		row := []string{
			s.MinerID,
			string(s.Mode),
			strconv.Itoa(s.Total),
			strconv.Itoa(s.Valid),
			strconv.Itoa(s.Invalid),
			s.Accuracy.String(),
			s.Precision.String(),
			s.Recall.String(),
			s.F1.String(),
			s.MCC.String(),
			s.AUC.String(),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
