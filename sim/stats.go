package sim

// Stats summarizes the delivery of data packets. DeliveryRate is nil when no
// routable packet has been injected and AvgTime is nil when no packet has been
// delivered.
type Stats struct {
	Packets      uint64   `json:"packets"`
	Routed       uint64   `json:"routed"`
	DeliveryRate *float64 `json:"delivery_rate,omitempty"`
	AvgTime      *float64 `json:"avg_time,omitempty"`
}

// Stats returns the delivery statistics so far.
func (s *Simulator) Stats() Stats {
	st := Stats{
		Packets: s.routable,
		Routed:  uint64(len(s.routed)),
	}

	if st.Packets > 0 {
		rate := float64(st.Routed) / float64(st.Packets)
		st.DeliveryRate = &rate
	}

	if st.Routed > 0 {
		var total uint64
		for _, p := range s.routed {
			total += p.StopTime - p.StartTime
		}

		avg := float64(total) / float64(st.Routed)
		st.AvgTime = &avg
	}

	return st
}
