// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stream

import "github.com/pdiddy/equity-research/pkg/types"

// Replayed is the progress reconstructed from a log sequence.
type Replayed struct {
	Investigation  types.Investigation
	Searches       int
	FailedSearches int
	Report         *types.Report
}

// Replay rebuilds run progress from logs in emission order. The last plan
// log carrying chains seeds the investigation; each analysisProgress log
// replaces its node with the executed one. Replaying the logs of a
// finished run yields the same node counts the run reported.
func Replay(logs []types.StreamLog) Replayed {
	var (
		out    Replayed
		ticker string
		chains []types.TopicChain
		index  = map[string][2]int{}
	)
	for _, l := range logs {
		switch l.Type {
		case types.LogPlan:
			var d types.PlanLogData
			if !l.DecodeData(&d) || len(d.Chains) == 0 {
				continue
			}
			ticker, chains = d.Ticker, d.Chains
			clear(index)
			for ci, c := range chains {
				for ni, n := range c.Nodes {
					index[n.ID] = [2]int{ci, ni}
				}
			}
		case types.LogAnalysisProgress:
			var d types.ProgressLogData
			if !l.DecodeData(&d) {
				continue
			}
			if at, ok := index[d.Node.ID]; ok {
				chains[at[0]].Nodes[at[1]] = d.Node
			}
		case types.LogSearchResults:
			var d types.SearchLogData
			if !l.DecodeData(&d) {
				continue
			}
			out.Searches++
			if d.Error != "" {
				out.FailedSearches++
			}
		case types.LogFinalReport:
			var r types.Report
			if l.DecodeData(&r) && r.Verdict != "" {
				out.Report = &r
			}
		}
	}
	out.Investigation = types.NewInvestigation(ticker, chains)
	return out
}
