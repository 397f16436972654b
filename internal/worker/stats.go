package worker

import "github.com/harborlab/shipsim/pkg/core"

// Stats aggregates a batch of results. ArrivalRate is Arrived/Vessels over
// successful runs. MeanArrivalTime is in simulated seconds and zero when no
// vessel arrived.
type Stats struct {
	Runs            int     `json:"runs"`
	Failed          int     `json:"failed"`
	Vessels         int     `json:"vessels"`
	Arrived         int     `json:"arrived"`
	Collisions      int     `json:"collisions"`
	ArrivalRate     float64 `json:"arrivalRate"`
	MeanArrivalTime float64 `json:"meanArrivalTime"`
}

// Summarize folds results into Stats. Failed runs only count towards Runs
// and Failed.
func Summarize(results []Result) Stats {
	var st Stats
	var arrivalTime float64
	for _, r := range results {
		st.Runs++
		if r.Err != nil || r.Record == nil {
			st.Failed++
			continue
		}
		rec := r.Record
		st.Vessels += rec.Ships()
		for i := range rec.EndSteps {
			if t, ok := rec.EndTime(i); ok {
				st.Arrived++
				arrivalTime += t - rec.StartTime(i)
			}
		}
		for _, ev := range rec.Events {
			if ev.Kind == core.EventPairCollision || ev.Kind == core.EventTerrainCollision {
				st.Collisions++
			}
		}
	}
	if st.Vessels > 0 {
		st.ArrivalRate = float64(st.Arrived) / float64(st.Vessels)
	}
	if st.Arrived > 0 {
		st.MeanArrivalTime = arrivalTime / float64(st.Arrived)
	}
	return st
}
