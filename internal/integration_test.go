package internal

import (
	"errors"
	"math"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/sweeney/button-sensor/internal/clock"
	"github.com/sweeney/button-sensor/internal/gpio"
	"github.com/sweeney/button-sensor/internal/logic"
	"github.com/sweeney/button-sensor/internal/mqtt"
	"github.com/sweeney/button-sensor/internal/status"
)

var startTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

const pollInterval = 10 * time.Millisecond

// pipeline wires a fake reader through a detector into a fake publisher,
// the same way the daemon's run loop does.
type pipeline struct {
	reader    *gpio.FakeReader
	publisher *mqtt.FakePublisher
	detector  *logic.Detector
	clk       *clock.Fake
	level     bool
	polls     int
}

func newPipeline(t *testing.T, levels []bool, tun logic.Tunables, startMillis uint32) *pipeline {
	t.Helper()
	p := &pipeline{
		reader:    gpio.NewFakeReader(levels),
		publisher: mqtt.NewFakePublisher(),
		clk:       clock.NewFake(startMillis),
		level:     true,
	}
	p.publisher.Name = "door"
	p.detector = logic.NewDetector(logic.LineFunc(func() bool { return p.level }), p.clk, tun, startTime)
	return p
}

func (p *pipeline) now() time.Time {
	return startTime.Add(time.Duration(p.polls) * pollInterval)
}

// run polls n times, publishing every event.
func (p *pipeline) run(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		p.polls++
		p.clk.Advance(uint32(pollInterval.Milliseconds()))

		high, err := p.reader.Read()
		if err != nil {
			t.Fatalf("poll %d: gpio read error: %v", p.polls, err)
		}
		p.level = high

		for _, event := range p.detector.Poll(p.now()) {
			if err := p.publisher.Publish(event); err != nil {
				t.Fatalf("poll %d: publish error: %v", p.polls, err)
			}
		}
	}
}

func (p *pipeline) snapshot(cfg status.Config) status.Snapshot {
	tracker := status.NewTracker(startTime, cfg)
	tracker.Update(p.detector.CurrentState(), p.detector.EventCountsSnapshot(), p.detector.HeartbeatRemaining())
	return tracker.Snapshot()
}

var defaultTunables = logic.Tunables{DebounceMillis: 50, HoldMillis: 500}

func types(events []logic.Event) []logic.EventType {
	out := make([]logic.EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func assertTypes(t *testing.T, got []logic.Event, want ...logic.EventType) {
	t.Helper()
	g := types(got)
	if len(g) != len(want) {
		t.Fatalf("events: got %v, want %v", g, want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Errorf("event %d: got %s, want %s", i, g[i], want[i])
		}
	}
}

// TestIntegrationFullFlow tests the complete flow from GPIO to MQTT using fakes.
func TestIntegrationFullFlow(t *testing.T) {
	// click, pause, long hold
	levels := gpio.Script(
		gpio.Released(3),
		gpio.Pressed(10), // contact at 40ms, pressed at 90ms
		gpio.Released(10),
		gpio.Pressed(60), // contact at 240ms, pressed at 290ms, held at 740ms
		gpio.Released(5),
	)
	p := newPipeline(t, levels, defaultTunables, 0)
	p.run(t, len(levels))

	assertTypes(t, p.publisher.Events,
		logic.EventPressed, logic.EventReleased, logic.EventClick,
		logic.EventPressed, logic.EventHeld, logic.EventReleased,
	)

	wantTimes := []time.Duration{90, 140, 140, 290, 740, 840}
	for i, ms := range wantTimes {
		want := startTime.Add(ms * time.Millisecond)
		if !p.publisher.Events[i].Timestamp.Equal(want) {
			t.Errorf("event %d: timestamp got %v, want %v", i, p.publisher.Events[i].Timestamp, want)
		}
	}

	counts := p.detector.EventCountsSnapshot()
	want := logic.EventCounts{Presses: 2, Holds: 1, Releases: 2, Clicks: 1}
	if counts != want {
		t.Errorf("counts: got %+v, want %+v", counts, want)
	}
}

func TestIntegrationNoEventsWhileReleased(t *testing.T) {
	levels := gpio.Script(gpio.Released(100))
	p := newPipeline(t, levels, defaultTunables, 0)
	p.run(t, len(levels))

	if len(p.publisher.Events) != 0 {
		t.Errorf("expected no events, got %v", types(p.publisher.Events))
	}
}

func TestIntegrationBounceRejection(t *testing.T) {
	// Contact chatter: every low run is shorter than the debounce.
	levels := gpio.Script(
		gpio.Released(2),
		gpio.Pressed(2), gpio.Released(1),
		gpio.Pressed(3), gpio.Released(1),
		gpio.Pressed(1), gpio.Released(5),
	)
	p := newPipeline(t, levels, defaultTunables, 0)
	p.run(t, len(levels))

	if len(p.publisher.Events) != 0 {
		t.Errorf("expected bounces to be rejected, got %v", types(p.publisher.Events))
	}
}

func TestIntegrationChatterThenStablePress(t *testing.T) {
	// The last release restarts the window; only the stable run counts.
	levels := gpio.Script(
		gpio.Released(2),
		gpio.Pressed(3), gpio.Released(1),
		gpio.Pressed(10),
		gpio.Released(2),
	)
	p := newPipeline(t, levels, defaultTunables, 0)
	p.run(t, len(levels))

	assertTypes(t, p.publisher.Events, logic.EventPressed, logic.EventReleased, logic.EventClick)
	// Stable run starts at poll 7 (70ms), pressed at 120ms.
	if want := startTime.Add(120 * time.Millisecond); !p.publisher.Events[0].Timestamp.Equal(want) {
		t.Errorf("PRESSED at %v, want %v", p.publisher.Events[0].Timestamp, want)
	}
}

func TestIntegrationHoldAcrossClockWrap(t *testing.T) {
	// The millisecond counter wraps 101ms after the start, between the
	// press and the hold.
	levels := gpio.Script(gpio.Released(2), gpio.Pressed(70), gpio.Released(2))
	p := newPipeline(t, levels, defaultTunables, math.MaxUint32-100)
	p.run(t, len(levels))

	assertTypes(t, p.publisher.Events, logic.EventPressed, logic.EventHeld, logic.EventReleased)
	if want := startTime.Add(530 * time.Millisecond); !p.publisher.Events[1].Timestamp.Equal(want) {
		t.Errorf("HELD at %v, want %v", p.publisher.Events[1].Timestamp, want)
	}
}

func TestIntegrationPublishFailureDoesNotCrash(t *testing.T) {
	levels := gpio.Script(gpio.Released(2), gpio.Pressed(10), gpio.Released(2), gpio.Pressed(10), gpio.Released(2))
	p := newPipeline(t, levels, defaultTunables, 0)
	p.publisher.PublishError = errors.New("broker down")

	failures := 0
	for i := range levels {
		p.polls++
		p.clk.Advance(10)
		high, _ := p.reader.Read()
		p.level = high
		for _, event := range p.detector.Poll(p.now()) {
			if err := p.publisher.Publish(event); err != nil {
				failures++
			}
		}
		if i == 15 {
			// Broker comes back between the two clicks.
			p.publisher.PublishError = nil
		}
	}

	if failures != 3 {
		t.Errorf("expected 3 failed publishes, got %d", failures)
	}
	assertTypes(t, p.publisher.Events, logic.EventPressed, logic.EventReleased, logic.EventClick)
}

func TestIntegrationPayloadFormat(t *testing.T) {
	levels := gpio.Script(gpio.Released(2), gpio.Pressed(10), gpio.Released(2))
	p := newPipeline(t, levels, defaultTunables, 0)
	p.run(t, len(levels))

	if len(p.publisher.Payloads) != 3 {
		t.Fatalf("expected 3 payloads, got %d", len(p.publisher.Payloads))
	}

	want := `{"button":{"timestamp":"2026-01-01T12:00:00.08Z","name":"door","event":"PRESSED","state":"PRESSED"}}`
	if got := string(p.publisher.Payloads[0]); got != want {
		t.Errorf("payload mismatch:\ngot:  %s\nwant: %s", got, want)
	}

	var click mqtt.Payload
	if err := json.Unmarshal(p.publisher.Payloads[2], &click); err != nil {
		t.Fatalf("decode click payload: %v", err)
	}
	if click.Button.Event != "CLICK" || click.Button.State != "RELEASED" {
		t.Errorf("click payload: got %+v", click.Button)
	}
}

func TestIntegrationHeartbeatAfterTransitions(t *testing.T) {
	tun := logic.Tunables{DebounceMillis: 50, HoldMillis: 500, HeartbeatMillis: 1000}
	levels := gpio.Script(gpio.Released(2), gpio.Pressed(10), gpio.Released(90))
	p := newPipeline(t, levels, tun, 0)

	var heartbeats []*logic.HeartbeatData
	for range levels {
		p.run(t, 1)
		if hb := p.detector.CheckHeartbeat(p.now()); hb != nil {
			heartbeats = append(heartbeats, hb)
		}
	}

	if len(heartbeats) != 1 {
		t.Fatalf("expected 1 heartbeat in 1020ms, got %d", len(heartbeats))
	}
	hb := heartbeats[0]
	if hb.Uptime != time.Second {
		t.Errorf("uptime: got %v, want 1s", hb.Uptime)
	}
	want := logic.EventCounts{Presses: 1, Releases: 1, Clicks: 1}
	if hb.Counts != want {
		t.Errorf("counts: got %+v, want %+v", hb.Counts, want)
	}

	snap := p.snapshot(status.Config{Name: "door", HeartbeatMs: 1000})
	var got status.StatusJSON
	if err := json.Unmarshal(status.FormatStatusEvent(snap, "HEARTBEAT", ""), &got); err != nil {
		t.Fatalf("decode heartbeat payload: %v", err)
	}
	if got.Status.Event != "HEARTBEAT" {
		t.Errorf("event: got %q", got.Status.Event)
	}
	if got.Status.Counts.Clicks != 1 || got.Status.Counts.Presses != 1 {
		t.Errorf("counts: got %+v", got.Status.Counts)
	}
	if got.Status.State != "RELEASED" {
		t.Errorf("state: got %q", got.Status.State)
	}
}

func TestIntegrationShutdownPayload(t *testing.T) {
	levels := gpio.Script(gpio.Released(2), gpio.Pressed(60))
	p := newPipeline(t, levels, defaultTunables, 0)
	p.run(t, len(levels))

	snap := p.snapshot(status.Config{Name: "door", Broker: "tcp://localhost:1883"})
	event := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "SHUTDOWN",
		Reason:     "SIGTERM",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM"),
	}
	if err := p.publisher.PublishSystem(event); err != nil {
		t.Fatalf("publish shutdown: %v", err)
	}

	if len(p.publisher.SystemPayloads) != 1 {
		t.Fatalf("expected 1 system payload, got %d", len(p.publisher.SystemPayloads))
	}
	var got status.StatusJSON
	if err := json.Unmarshal(p.publisher.SystemPayloads[0], &got); err != nil {
		t.Fatalf("decode shutdown payload: %v", err)
	}
	if got.Status.Event != "SHUTDOWN" || got.Status.Reason != "SIGTERM" {
		t.Errorf("event/reason: got %q/%q", got.Status.Event, got.Status.Reason)
	}
	if got.Status.State != "HELD" {
		t.Errorf("state: got %q, want HELD", got.Status.State)
	}
	if got.Status.Name != "door" {
		t.Errorf("name: got %q", got.Status.Name)
	}
}

func TestIntegrationResetMidHold(t *testing.T) {
	levels := gpio.Script(gpio.Released(2), gpio.Pressed(60))
	p := newPipeline(t, levels, defaultTunables, 0)
	p.run(t, len(levels))

	if p.detector.CurrentState() != logic.StateHeld {
		t.Fatalf("expected HELD before reset, got %s", p.detector.CurrentState())
	}
	p.detector.Reset()
	before := len(p.publisher.Events)

	// Still pressed: a fresh debounce window opens and the press is
	// reported again.
	p.reader.Levels = gpio.Script(gpio.Pressed(10))
	p.reader.Reset()
	p.run(t, 10)

	assertTypes(t, p.publisher.Events[before:], logic.EventPressed)
}
