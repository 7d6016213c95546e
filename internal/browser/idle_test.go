package browser

import (
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/stretchr/testify/assert"
)

func TestIdleTrackerSettlesAfterQuietPeriod(t *testing.T) {
	clock := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	tracker := newIdleTracker()
	tracker.now = func() time.Time { return clock }
	tracker.lastSeen = clock

	tracker.observe(&network.EventRequestWillBeSent{RequestID: "doc"})
	clock = clock.Add(time.Second)
	assert.False(t, tracker.settled(networkIdlePeriod), "inflight request must block idle")

	tracker.observe(&network.EventLoadingFinished{RequestID: "doc"})
	assert.False(t, tracker.settled(networkIdlePeriod), "quiet period starts at the last event")

	clock = clock.Add(networkIdlePeriod)
	assert.True(t, tracker.settled(networkIdlePeriod))
}

func TestIdleTrackerFailedLoadClearsInflight(t *testing.T) {
	clock := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	tracker := newIdleTracker()
	tracker.now = func() time.Time { return clock }
	tracker.lastSeen = clock

	tracker.observe(&network.EventRequestWillBeSent{RequestID: "script"})
	tracker.observe(&network.EventLoadingFailed{RequestID: "script"})

	clock = clock.Add(networkIdlePeriod)
	assert.True(t, tracker.settled(networkIdlePeriod))
}

func TestIdleTrackerIgnoresUnrelatedEvents(t *testing.T) {
	clock := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	tracker := newIdleTracker()
	tracker.now = func() time.Time { return clock }
	tracker.lastSeen = clock

	clock = clock.Add(networkIdlePeriod)
	tracker.observe(&page.EventLoadEventFired{})

	assert.True(t, tracker.settled(networkIdlePeriod), "non-network events must not reset the quiet period")
}
