package questions

import (
	"encoding/json"
	"time"
)

// Snapshot is an immutable copy of a round, safe to hand to other goroutines.
type Snapshot struct {
	Current       []Question `json:"current"`
	TotalTime     Duration   `json:"total_time"`
	RemainingTime Duration   `json:"remaining_time"`
}

// Duration serializes as {"secs": n, "nanos": n}, the shape display clients read.
type Duration time.Duration

type wireDuration struct {
	Secs  int64 `json:"secs"`
	Nanos int64 `json:"nanos"`
}

func (d Duration) MarshalJSON() ([]byte, error) {
	v := time.Duration(d)
	return json.Marshal(wireDuration{
		Secs:  int64(v / time.Second),
		Nanos: int64(v % time.Second),
	})
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var w wireDuration
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*d = Duration(time.Duration(w.Secs)*time.Second + time.Duration(w.Nanos))
	return nil
}
