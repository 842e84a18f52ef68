package runs

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/subnetlab/minerscope/internal/domain/model"
)

// HistoryRow is one logged challenge row. Validator versions disagree on
// field spellings (pred vs predictions, miner_uid vs miner_uids) and on
// whether labels and miner ids are numbers or strings, so decoding is
// deliberately tolerant.
type HistoryRow struct {
	ChallengeID string
	Label       *string
	Modality    string
	MediaPath   string
	MinerUIDs   []string
	Predictions []predValue
	Timestamp   float64 // seconds since epoch, possibly fractional
}

// Time converts the row timestamp into a UTC time. A zero timestamp maps to
// the zero time rather than the epoch.
func (r HistoryRow) Time() time.Time {
	if r.Timestamp == 0 {
		return time.Time{}
	}
	sec := int64(r.Timestamp)
	nsec := int64((r.Timestamp - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}

// predValue is one miner's answer on a row: either a bare class (commonly -1
// for no response) or a probability vector.
type predValue struct {
	raw    string
	scores []float64
}

func (v predValue) fill(p *model.Prediction) {
	if len(v.scores) > 0 {
		p.Scores = v.scores
		return
	}
	p.RawClass = v.raw
}

// UnmarshalJSON accepts both field spelling generations and both scalar and
// string encodings of labels and miner ids.
func (r *HistoryRow) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	r.ChallengeID = stringField(fields, "challenge_id", "id")
	r.Modality = stringField(fields, "modality")
	if s := flexString(fields["label"]); s != "" {
		r.Label = &s
	}

	if raw, ok := firstOf(fields, "_timestamp", "timestamp"); ok {
		_ = json.Unmarshal(raw, &r.Timestamp)
	}

	r.MediaPath = stringField(fields, "media_path")
	if r.MediaPath == "" && r.Modality != "" {
		if raw, ok := fields[r.Modality]; ok {
			var nested struct {
				Path string `json:"path"`
			}
			if json.Unmarshal(raw, &nested) == nil {
				r.MediaPath = nested.Path
			}
		}
	}

	if raw, ok := firstOf(fields, "miner_uids", "miner_uid"); ok {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err == nil {
			r.MinerUIDs = make([]string, 0, len(items))
			for _, item := range items {
				r.MinerUIDs = append(r.MinerUIDs, flexString(item))
			}
		}
	}

	if raw, ok := firstOf(fields, "predictions", "pred"); ok {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err == nil {
			r.Predictions = make([]predValue, 0, len(items))
			for _, item := range items {
				r.Predictions = append(r.Predictions, decodePred(item))
			}
		}
	}
	return nil
}

func decodePred(raw json.RawMessage) predValue {
	var scores []float64
	if err := json.Unmarshal(raw, &scores); err == nil {
		return predValue{scores: scores}
	}
	return predValue{raw: flexString(raw)}
}

func firstOf(fields map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, key := range keys {
		if raw, ok := fields[key]; ok {
			return raw, true
		}
	}
	return nil, false
}

func stringField(fields map[string]json.RawMessage, keys ...string) string {
	raw, ok := firstOf(fields, keys...)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// flexString renders a JSON string or number as a string. Integral floats
// drop the fraction so label 1.0 resolves the same as label 1.
func flexString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if f == float64(int64(f)) {
			return strconv.FormatInt(int64(f), 10)
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}
