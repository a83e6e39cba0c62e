package audiograph

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/edward-ap/miniplayer/internal/equalizer"
)

func newTestController(t *testing.T, opts ...Option) (*Controller, *fakeContext) {
	t.Helper()
	fc := newFakeContext()
	c := NewController(func() (Context, error) { return fc, nil }, equalizer.DefaultBands(), opts...)
	return c, fc
}

func TestAttachBuildsFullChain(t *testing.T) {
	c, fc := newTestController(t)
	if err := c.Attach(context.Background(), fakeElement{id: "a", tappable: true}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	top := c.Topology()
	if !top.Attached || top.ElementID != "a" {
		t.Fatalf("unexpected topology %+v", top)
	}
	if top.Sources != 1 || top.Filters != equalizer.BandCount {
		t.Fatalf("sources=%d filters=%d", top.Sources, top.Filters)
	}
	if top.DestinationPaths != 1 {
		t.Fatalf("destination paths = %d, want 1", top.DestinationPaths)
	}
	if fc.live("gain") != 1 {
		t.Fatalf("expected a single master gain, got %d", fc.live("gain"))
	}
	if !c.Available() || c.Degraded() {
		t.Fatalf("controller should be available after attach")
	}
}

func TestReattachKeepsSinglePath(t *testing.T) {
	c, fc := newTestController(t)
	for _, id := range []string{"a", "b", "c", "a"} {
		if err := c.Attach(context.Background(), fakeElement{id: id, tappable: true}); err != nil {
			t.Fatalf("attach %s: %v", id, err)
		}
		if got := c.Topology().DestinationPaths; got != 1 {
			t.Fatalf("after attaching %s: %d paths to destination", id, got)
		}
		if fc.live("source:") != 1 || fc.live("peaking:") != equalizer.BandCount {
			t.Fatalf("after attaching %s: %d sources, %d filters live", id, fc.live("source:"), fc.live("peaking:"))
		}
	}
	if fc.live("gain") != 1 {
		t.Fatalf("master gain should be reused, got %d", fc.live("gain"))
	}
}

func TestDetachIsIdempotent(t *testing.T) {
	c, fc := newTestController(t)
	c.Detach()
	if err := c.Attach(context.Background(), fakeElement{id: "a", tappable: true}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	c.Detach()
	c.Detach()
	top := c.Topology()
	if top.Attached || top.DestinationPaths != 0 {
		t.Fatalf("graph still attached: %+v", top)
	}
	if fc.live("source:") != 0 || fc.live("peaking:") != 0 {
		t.Fatalf("nodes leaked after detach")
	}
	if !top.HasMaster {
		t.Fatalf("master gain should outlive detach")
	}
}

func TestSetBandGainClampsAndUpdatesLiveFilter(t *testing.T) {
	c, _ := newTestController(t)
	if err := c.SetBandGain(3, 4); err != nil {
		t.Fatalf("SetBandGain before attach: %v", err)
	}
	if err := c.Attach(context.Background(), fakeElement{id: "a", tappable: true}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if got := c.Topology().FilterGains[3]; got != 4 {
		t.Fatalf("stored gain not applied on attach: %v", got)
	}
	if err := c.SetBandGain(0, 30); err != nil {
		t.Fatalf("SetBandGain: %v", err)
	}
	if err := c.SetBandGain(9, -30); err != nil {
		t.Fatalf("SetBandGain: %v", err)
	}
	top := c.Topology()
	if top.FilterGains[0] != 12 || top.FilterGains[9] != -12 {
		t.Fatalf("gains not clamped: %v", top.FilterGains)
	}
	g := c.Gains()
	if g[0] != 12 || g[9] != -12 {
		t.Fatalf("stored gains not clamped: %v", g)
	}
}

func TestSetBandGainRejectsBadIndex(t *testing.T) {
	c, _ := newTestController(t)
	before := c.Gains()
	for _, i := range []int{-1, equalizer.BandCount, 99} {
		err := c.SetBandGain(i, 5)
		if !errors.Is(err, ErrInvalidBandIndex) {
			t.Fatalf("SetBandGain(%d) err = %v, want ErrInvalidBandIndex", i, err)
		}
	}
	after := c.Gains()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("gains changed after rejected update")
		}
	}
}

func TestSetMasterVolumeClamps(t *testing.T) {
	c, _ := newTestController(t)
	cases := []struct {
		in, want float64
	}{
		{0.5, 0.5},
		{-1, 0},
		{2, 1},
		{1, 1},
	}
	for _, tc := range cases {
		if got := c.SetMasterVolume(tc.in); got != tc.want {
			t.Fatalf("SetMasterVolume(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if err := c.Attach(context.Background(), fakeElement{id: "a", tappable: true}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	c.SetMasterVolume(0.25)
	if top := c.Topology(); top.MasterLevel != 0.25 {
		t.Fatalf("master level = %v, want 0.25", top.MasterLevel)
	}
}

func TestNaNLevelsStayInRange(t *testing.T) {
	c, _ := newTestController(t)
	if err := c.Attach(context.Background(), fakeElement{id: "a", tappable: true}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if got := c.SetMasterVolume(math.NaN()); got != 0 {
		t.Fatalf("SetMasterVolume(NaN) = %v, want 0", got)
	}
	if err := c.SetBandGain(0, 5); err != nil {
		t.Fatalf("SetBandGain: %v", err)
	}
	if err := c.SetBandGain(0, math.NaN()); err != nil {
		t.Fatalf("SetBandGain(NaN): %v", err)
	}
	top := c.Topology()
	if top.MasterLevel != 0 || c.MasterVolume() != 0 {
		t.Fatalf("master level = %v stored %v, want 0", top.MasterLevel, c.MasterVolume())
	}
	if top.FilterGains[0] != 0 || c.Gains()[0] != 0 {
		t.Fatalf("band 0 live %v stored %v, want 0", top.FilterGains[0], c.Gains()[0])
	}
}

func TestGraphSurvivesGainChanges(t *testing.T) {
	c, fc := newTestController(t)
	if err := c.Attach(context.Background(), fakeElement{id: "a", tappable: true}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	created := len(fc.nodes)
	for i := 0; i < equalizer.BandCount; i++ {
		_ = c.SetBandGain(i, float64(i)-5)
	}
	c.SetMasterVolume(0.3)
	if len(fc.nodes) != created {
		t.Fatalf("parametric updates created nodes: %d -> %d", created, len(fc.nodes))
	}
	if got := c.Topology().DestinationPaths; got != 1 {
		t.Fatalf("destination paths = %d", got)
	}
}

func TestUntappableElementDegrades(t *testing.T) {
	c, fc := newTestController(t)
	err := c.Attach(context.Background(), fakeElement{id: "v", tappable: false})
	if !errors.Is(err, ErrGraphUnavailable) {
		t.Fatalf("err = %v, want ErrGraphUnavailable", err)
	}
	if !c.Degraded() || c.Available() {
		t.Fatalf("controller should be degraded")
	}
	if fc.live("peaking:") != 0 {
		t.Fatalf("partial graph leaked")
	}
	if err := c.Attach(context.Background(), fakeElement{id: "a", tappable: true}); err != nil {
		t.Fatalf("attach after degrade: %v", err)
	}
	if c.Degraded() {
		t.Fatalf("successful attach should clear degraded")
	}
}

func TestContextFactoryFailureDegrades(t *testing.T) {
	c := NewController(func() (Context, error) { return nil, errors.New("no device") }, equalizer.DefaultBands())
	err := c.Attach(context.Background(), fakeElement{id: "a", tappable: true})
	if !errors.Is(err, ErrGraphUnavailable) {
		t.Fatalf("err = %v, want ErrGraphUnavailable", err)
	}
	if !c.Degraded() {
		t.Fatalf("controller should be degraded")
	}
	if err := c.SetBandGain(2, 3); err != nil {
		t.Fatalf("SetBandGain while degraded: %v", err)
	}
	if c.Gains()[2] != 3 {
		t.Fatalf("gain not stored while degraded")
	}
	if err := c.Teardown(); err != nil {
		t.Fatalf("teardown: %v", err)
	}
}

func TestPartialBuildReleasesNodes(t *testing.T) {
	c, fc := newTestController(t)
	fc.failConnect = "peaking:" + equalizer.DefaultBands()[4].Label
	err := c.Attach(context.Background(), fakeElement{id: "a", tappable: true})
	if !errors.Is(err, ErrGraphUnavailable) {
		t.Fatalf("err = %v, want ErrGraphUnavailable", err)
	}
	if fc.live("source:") != 0 || fc.live("peaking:") != 0 {
		t.Fatalf("partial build leaked %d sources, %d filters", fc.live("source:"), fc.live("peaking:"))
	}
}

func TestResumeFailureFallsBackToRawOutput(t *testing.T) {
	log := &recordingLogger{}
	c, fc := newTestController(t, WithLogger(log))
	if err := c.Attach(context.Background(), fakeElement{id: "a", tappable: true}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	fc.resumeErr = errors.New("not allowed")
	err := c.Resume(context.Background())
	if !errors.Is(err, ErrGraphUnavailable) {
		t.Fatalf("err = %v, want ErrGraphUnavailable", err)
	}
	if !c.Degraded() || c.Topology().Attached {
		t.Fatalf("graph should be detached after failed resume")
	}
}

func TestResumeWithoutContextIsNoop(t *testing.T) {
	c, _ := newTestController(t)
	if err := c.Resume(context.Background()); err != nil {
		t.Fatalf("resume: %v", err)
	}
}

func TestResumeRunsSuspendedContext(t *testing.T) {
	c, fc := newTestController(t)
	if err := c.Attach(context.Background(), fakeElement{id: "a", tappable: true}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if fc.State() != StateSuspended {
		t.Fatalf("context should start suspended")
	}
	if err := c.Resume(context.Background()); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if fc.State() != StateRunning {
		t.Fatalf("context state = %v", fc.State())
	}
}

func TestTeardownIsIdempotent(t *testing.T) {
	c, fc := newTestController(t)
	if err := c.Teardown(); err != nil {
		t.Fatalf("teardown without context: %v", err)
	}
	if err := c.Attach(context.Background(), fakeElement{id: "a", tappable: true}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := c.Teardown(); err != nil {
		t.Fatalf("teardown: %v", err)
	}
	if err := c.Teardown(); err != nil {
		t.Fatalf("second teardown: %v", err)
	}
	if fc.closed != 1 {
		t.Fatalf("context closed %d times", fc.closed)
	}
	if top := c.Topology(); top.HasContext || top.HasMaster || top.Attached {
		t.Fatalf("teardown left state behind: %+v", top)
	}
}

func TestInitialOptions(t *testing.T) {
	c, _ := newTestController(t, WithVolume(3), WithGains([]float64{20, -1}))
	if c.MasterVolume() != 1 {
		t.Fatalf("volume = %v", c.MasterVolume())
	}
	g := c.Gains()
	if len(g) != equalizer.BandCount || g[0] != 12 || g[1] != -1 || g[2] != 0 {
		t.Fatalf("gains = %v", g)
	}
}
