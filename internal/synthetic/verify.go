package synthetic

import (
	"context"
	"fmt"
	"strconv"

	"github.com/subnetlab/minerscope/pkg/logger"
)

// Accuracy tolerances per archetype. The noisy archetype is stochastic, so
// its band is wide; the deterministic ones are tight.
const (
	oracleMinAccuracy     = 0.99
	contrarianMaxAccuracy = 0.01
	noisyMinAccuracy      = 0.55
	noisyMaxAccuracy      = 0.85
)

type reportRow struct {
	MinerID  string `json:"miner_id"`
	Mode     string `json:"mode"`
	Total    int    `json:"total"`
	Valid    int    `json:"valid"`
	Invalid  int    `json:"invalid"`
	Accuracy string `json:"accuracy"`
}

type reportResponse struct {
	Rows []reportRow `json:"rows"`
}

// verify pulls the multiclass summary and checks it against the archetypes
// the workload was generated from.
func verify(ctx context.Context, client *httpClient, cfg *Config, ds *Dataset) error {
	log := logger.Get().Named("synthetic")

	var report reportResponse
	if err := client.getJSON(ctx, cfg.BaseURL+"/report/summary?mode=multiclass", &report); err != nil {
		return fmt.Errorf("fetch summary: %w", err)
	}

	if len(report.Rows) != cfg.Miners {
		return fmt.Errorf("expected %d summary rows, got %d", cfg.Miners, len(report.Rows))
	}

	for _, row := range report.Rows {
		if row.Total != cfg.Challenges {
			return fmt.Errorf("miner %s: total %d, want %d", row.MinerID, row.Total, cfg.Challenges)
		}
		if row.Valid+row.Invalid != row.Total {
			return fmt.Errorf("miner %s: valid %d + invalid %d != total %d",
				row.MinerID, row.Valid, row.Invalid, row.Total)
		}
		if err := checkArchetype(row, ds.Archetypes[row.MinerID]); err != nil {
			return err
		}
	}

	log.Info(ctx, "report verified",
		logger.Int("miners", len(report.Rows)),
		logger.Int("challenges", cfg.Challenges),
	)
	return nil
}

func checkArchetype(row reportRow, archetype int) error {
	acc, err := strconv.ParseFloat(row.Accuracy, 64)
	if err != nil {
		return fmt.Errorf("miner %s: unparseable accuracy %q", row.MinerID, row.Accuracy)
	}

	switch archetype {
	case archetypeOracle:
		if acc < oracleMinAccuracy {
			return fmt.Errorf("oracle miner %s: accuracy %.3f below %.2f", row.MinerID, acc, oracleMinAccuracy)
		}
	case archetypeContrarian:
		if acc > contrarianMaxAccuracy {
			return fmt.Errorf("contrarian miner %s: accuracy %.3f above %.2f", row.MinerID, acc, contrarianMaxAccuracy)
		}
	case archetypeNoisy:
		if acc < noisyMinAccuracy || acc > noisyMaxAccuracy {
			return fmt.Errorf("noisy miner %s: accuracy %.3f outside [%.2f, %.2f]",
				row.MinerID, acc, noisyMinAccuracy, noisyMaxAccuracy)
		}
	case archetypeSilent:
		if row.Invalid == 0 && row.Total > 10 {
			return fmt.Errorf("silent miner %s: expected some invalid records", row.MinerID)
		}
	}
	return nil
}
