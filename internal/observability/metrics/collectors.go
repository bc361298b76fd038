package metrics

import "github.com/prometheus/client_golang/prometheus"

// collectorSet forwards Describe and Collect to its members, so a metrics
// group registers as one collector and fails as a unit on duplicates.
type collectorSet []prometheus.Collector

func (s collectorSet) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range s {
		c.Describe(ch)
	}
}

func (s collectorSet) Collect(ch chan<- prometheus.Metric) {
	for _, c := range s {
		c.Collect(ch)
	}
}
