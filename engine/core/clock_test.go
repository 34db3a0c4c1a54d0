package core

import (
	"testing"
	"time"
)

func TestClockElapsed(t *testing.T) {
	now := time.Unix(100, 0)
	c := NewClockWithSource(func() time.Time { return now })

	c.Update()
	if c.Elapsed() != 0 {
		t.Fatalf("non-started clock advanced")
	}
	c.Start()
	now = now.Add(250 * time.Millisecond)
	c.Update()
	if have := c.Elapsed(); have != 0.25 {
		t.Fatalf("Elapsed:\nhave %v\nwant 0.25", have)
	}
}

func TestMetricsAverage(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < int(AVG_COUNT); i++ {
		m.Update(0.016)
	}
	if have := m.FrameTime(); have < 15.99 || have > 16.01 {
		t.Fatalf("FrameTime:\nhave %v\nwant 16", have)
	}
}
