package bench

import (
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

/*
Throughput probe subpackage: samples how fast a search grows its tree while
the search runs, without touching the engine's hot path. The probe only needs
a counter to watch (typically SearchTree.NodeCount) and a blocking search
function to drive.
*/

// Sample is one probe reading
type Sample struct {
	// Index of the sample, starting at 0
	Index int
	// Nodes is the counter value at sampling time
	Nodes uint64
	// Delta is the growth since the previous sample
	Delta uint64
	// Elapsed since the probe started
	Elapsed time.Duration
}

// PerSecond returns the sample's growth normalized to one second
func (s Sample) PerSecond(interval time.Duration) float64 {
	if interval <= 0 {
		return 0
	}
	return float64(s.Delta) / interval.Seconds()
}

type SampleFunc func(Sample)

// LogSamples is a SampleFunc writing readings through klog
func LogSamples(s Sample) {
	klog.Infof("bench: sample %d: %d nodes (+%d) after %s", s.Index, s.Nodes, s.Delta, s.Elapsed)
}

// NodesPerSecond runs search in the background and samples count once per
// interval until the search returns (or maxSamples readings were taken, after
// which it keeps waiting for the search silently). Every reading is handed to
// onSample, if set, and all readings are returned.
func NodesPerSecond(count func() uint64, interval time.Duration, maxSamples int, search func(), onSample SampleFunc) []Sample {
	if interval <= 0 {
		interval = time.Second
	}

	done := make(chan struct{})
	var g errgroup.Group
	g.Go(func() error {
		search()
		close(done)
		return nil
	})

	samples := make([]Sample, 0, max(maxSamples, 0))
	start := time.Now()
	prev := count()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for len(samples) < maxSamples {
		select {
		case <-done:
			_ = g.Wait()
			return samples
		case <-ticker.C:
			now := count()
			s := Sample{
				Index:   len(samples),
				Nodes:   now,
				Delta:   now - prev,
				Elapsed: time.Since(start),
			}
			prev = now
			if onSample != nil {
				onSample(s)
			}
			samples = append(samples, s)
		}
	}

	<-done
	_ = g.Wait()
	return samples
}
