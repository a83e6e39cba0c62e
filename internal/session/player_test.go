package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/edward-ap/miniplayer/internal/audiograph"
	"github.com/edward-ap/miniplayer/internal/equalizer"
	"github.com/edward-ap/miniplayer/internal/media"
	"github.com/edward-ap/miniplayer/internal/visual"
)

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from, to State
		ok       bool
	}{
		{Empty, Loading, true},
		{Empty, Playing, false},
		{Loading, Ready, true},
		{Loading, Playing, false},
		{Ready, Playing, true},
		{Playing, Paused, true},
		{Paused, Playing, true},
		{Playing, Ended, true},
		{Ended, Loading, true},
		{Ended, Playing, false},
		{Paused, Empty, true},
	}
	for _, tc := range cases {
		if got := canTransition(tc.from, tc.to); got != tc.ok {
			t.Errorf("canTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestAddFilesClassifiesAndLoadsFirst(t *testing.T) {
	p, _, _ := newTestPlayer(t)
	added, rejected := p.AddFiles(paths("a.mp3", "notes.txt", "b.mp4", "c.mid"))
	if len(added) != 3 || len(rejected) != 1 {
		t.Fatalf("added %d, rejected %d", len(added), len(rejected))
	}
	if !errors.Is(rejected[0], media.ErrUnsupportedType) {
		t.Fatalf("rejection err = %v", rejected[0])
	}
	s := waitFor(t, p, "Ready(a.mp3)", stateIs("a.mp3", Ready))
	if s.Playing || s.CurrentIndex != 0 || s.Duration != 5*time.Second {
		t.Fatalf("unexpected snapshot %+v", s)
	}
	if s.Items[1].Class != media.Video || s.Items[2].Class != media.MIDI {
		t.Fatalf("classification lost: %v, %v", s.Items[1].Class, s.Items[2].Class)
	}
}

func TestTogglePlayAttachesGraphAndPauses(t *testing.T) {
	p, f, graph := newTestPlayer(t)
	p.AddFiles(paths("a.mp3"))
	waitFor(t, p, "Ready(a.mp3)", stateIs("a.mp3", Ready))

	top := graph.Topology()
	if !top.Attached || top.Filters != equalizer.BandCount || top.DestinationPaths != 1 {
		t.Fatalf("graph not attached on metadata: %+v", top)
	}
	if err := p.TogglePlay(context.Background()); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if s := p.Snapshot(); s.State != Playing || !s.Playing || s.GraphDegraded {
		t.Fatalf("after play: %s degraded=%v", describe(s), s.GraphDegraded)
	}
	if top := graph.Topology(); top.ContextState != audiograph.StateRunning {
		t.Fatalf("context not resumed before play: %v", top.ContextState)
	}
	if err := p.TogglePlay(context.Background()); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if s := p.Snapshot(); s.State != Paused {
		t.Fatalf("after second toggle: %s", describe(s))
	}
	el := f.last("a.mp3")
	if el.plays != 1 || el.pauses != 1 {
		t.Fatalf("plays=%d pauses=%d", el.plays, el.pauses)
	}
}

func TestNaturalEndAdvancesAndCarriesGains(t *testing.T) {
	p, f, graph := newTestPlayer(t)
	p.AddFiles(paths("a.mp4", "b.mp3"))
	waitFor(t, p, "Ready(a.mp4)", stateIs("a.mp4", Ready))

	gains := []float64{3, -2, 0, 5.5, -12, 12, 1, 0, -4, 2}
	for i, g := range gains {
		if err := p.SetBandGain(i, g); err != nil {
			t.Fatalf("SetBandGain(%d): %v", i, err)
		}
	}
	if err := p.TogglePlay(context.Background()); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if s := p.Snapshot(); s.State != Playing || !s.GraphDegraded {
		t.Fatalf("video should play with effects degraded: %s degraded=%v", describe(s), s.GraphDegraded)
	}

	f.last("a.mp4").end()
	s := waitFor(t, p, "Playing(b.mp3)", stateIs("b.mp3", Playing))
	if s.GraphDegraded {
		t.Fatalf("graph should be attached to the audio element")
	}
	if !f.last("a.mp4").isClosed() {
		t.Fatalf("previous element not closed on track switch")
	}
	top := graph.Topology()
	if top.ElementID != s.Item.ID || top.DestinationPaths != 1 {
		t.Fatalf("graph not reattached to b: %+v", top)
	}
	for i, g := range gains {
		if top.FilterGains[i] != g || s.Gains[i] != g {
			t.Fatalf("band %d: live %v stored %v, want %v", i, top.FilterGains[i], s.Gains[i], g)
		}
	}
}

func TestEndOfLastItemWrapsToFirst(t *testing.T) {
	p, f, _ := newTestPlayer(t)
	p.AddFiles(paths("a.mp3", "b.mp3"))
	waitFor(t, p, "Ready(a.mp3)", stateIs("a.mp3", Ready))
	if err := p.SelectItem(idOf(t, p, "b.mp3")); err != nil {
		t.Fatalf("select: %v", err)
	}
	waitFor(t, p, "Ready(b.mp3)", stateIs("b.mp3", Ready))
	_ = p.TogglePlay(context.Background())
	f.last("b.mp3").end()
	s := waitFor(t, p, "Playing(a.mp3)", stateIs("a.mp3", Playing))
	if s.CurrentIndex != 0 {
		t.Fatalf("current index = %d, want 0", s.CurrentIndex)
	}
}

func TestRemovingOnlyItemEmptiesSession(t *testing.T) {
	p, f, graph := newTestPlayer(t)
	p.AddFiles(paths("a.mp3"))
	waitFor(t, p, "Ready(a.mp3)", stateIs("a.mp3", Ready))
	_ = p.TogglePlay(context.Background())

	if err := p.RemoveItem(idOf(t, p, "a.mp3")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	s := p.Snapshot()
	if s.State != Empty || s.HasItem || len(s.Items) != 0 || s.CurrentIndex != -1 {
		t.Fatalf("expected empty session, got %s with %d items", describe(s), len(s.Items))
	}
	if !f.last("a.mp3").isClosed() {
		t.Fatalf("element not closed")
	}
	if graph.Topology().Attached {
		t.Fatalf("graph still attached")
	}
}

func TestRemovingOtherItemKeepsCurrent(t *testing.T) {
	p, f, _ := newTestPlayer(t)
	p.AddFiles(paths("a.mp3", "b.mp3", "c.mp3"))
	waitFor(t, p, "Ready(a.mp3)", stateIs("a.mp3", Ready))
	if err := p.SelectItem(idOf(t, p, "b.mp3")); err != nil {
		t.Fatalf("select: %v", err)
	}
	waitFor(t, p, "Ready(b.mp3)", stateIs("b.mp3", Ready))
	_ = p.TogglePlay(context.Background())

	for _, name := range []string{"a.mp3", "c.mp3"} {
		if err := p.RemoveItem(idOf(t, p, name)); err != nil {
			t.Fatalf("remove %s: %v", name, err)
		}
		s := p.Snapshot()
		if s.Item.Name != "b.mp3" || s.State != Playing || s.Items[s.CurrentIndex].Name != "b.mp3" {
			t.Fatalf("after removing %s: %s index %d", name, describe(s), s.CurrentIndex)
		}
	}
	if f.count("b.mp3") != 1 {
		t.Fatalf("current element was rebuilt")
	}
}

func TestRemovingCurrentLoadsNeighbour(t *testing.T) {
	p, _, _ := newTestPlayer(t)
	p.AddFiles(paths("a.mp3", "b.mp3", "c.mp3"))
	waitFor(t, p, "Ready(a.mp3)", stateIs("a.mp3", Ready))
	_ = p.TogglePlay(context.Background())

	if err := p.RemoveItem(idOf(t, p, "a.mp3")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	waitFor(t, p, "Playing(b.mp3)", stateIs("b.mp3", Playing))

	if err := p.SelectItem(idOf(t, p, "c.mp3")); err != nil {
		t.Fatalf("select: %v", err)
	}
	waitFor(t, p, "Ready(c.mp3)", stateIs("c.mp3", Ready))
	if err := p.RemoveItem(idOf(t, p, "c.mp3")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	waitFor(t, p, "Ready(b.mp3)", stateIs("b.mp3", Ready))
}

func TestStaleMetadataIsDiscarded(t *testing.T) {
	p, f, _ := newTestPlayer(t)
	f.holdMeta["y.mp3"] = true
	f.holdMeta["x.mp3"] = true
	p.AddFiles(paths("y.mp3", "x.mp3"))
	if s := p.Snapshot(); s.State != Loading || s.Item.Name != "y.mp3" {
		t.Fatalf("expected Loading(y.mp3), got %s", describe(s))
	}
	staleObserver := f.last("y.mp3").observer()

	if err := p.SelectItem(idOf(t, p, "x.mp3")); err != nil {
		t.Fatalf("select: %v", err)
	}
	staleObserver.OnMetadata(99 * time.Second)
	staleObserver.OnEnded()
	staleObserver.OnError(errors.New("late failure"))

	s := p.Snapshot()
	if s.Item.Name != "x.mp3" || s.State != Loading {
		t.Fatalf("stale events changed state: %s", describe(s))
	}
	if s.Duration == 99*time.Second || s.PlaybackError != nil {
		t.Fatalf("stale result applied: duration %v err %v", s.Duration, s.PlaybackError)
	}
	for _, it := range s.Items {
		if it.Duration == 99*time.Second {
			t.Fatalf("stale duration stored on %s", it.Name)
		}
	}

	f.last("x.mp3").observer().OnMetadata(7 * time.Second)
	s = p.Snapshot()
	if s.State != Ready || s.Duration != 7*time.Second {
		t.Fatalf("current metadata not applied: %s %v", describe(s), s.Duration)
	}
}

func TestTogglePlayWhileLoadingStartsOnMetadata(t *testing.T) {
	p, f, _ := newTestPlayer(t)
	f.holdMeta["a.mp3"] = true
	p.AddFiles(paths("a.mp3"))
	if err := p.TogglePlay(context.Background()); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	f.last("a.mp3").observer().OnMetadata(time.Second)
	if s := p.Snapshot(); s.State != Playing {
		t.Fatalf("expected autoplay after metadata, got %s", describe(s))
	}
}

func TestPlaybackFailureEndsWithoutAdvancing(t *testing.T) {
	p, f, _ := newTestPlayer(t)
	f.failLoad["bad.mp3"] = errors.New("corrupt frame")
	p.AddFiles(paths("bad.mp3", "good.mp3"))

	s := waitFor(t, p, "Ended(bad.mp3)", stateIs("bad.mp3", Ended))
	if !errors.Is(s.PlaybackError, media.ErrPlaybackFailed) {
		t.Fatalf("playback error = %v", s.PlaybackError)
	}
	time.Sleep(20 * time.Millisecond)
	if s := p.Snapshot(); s.Item.Name != "bad.mp3" {
		t.Fatalf("failure should not advance, now at %s", describe(s))
	}

	f.mu.Lock()
	delete(f.failLoad, "bad.mp3")
	f.mu.Unlock()
	if err := p.Retry(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	s = waitFor(t, p, "Playing(bad.mp3)", stateIs("bad.mp3", Playing))
	if s.PlaybackError != nil {
		t.Fatalf("retry kept stale error %v", s.PlaybackError)
	}
	if f.count("bad.mp3") != 2 {
		t.Fatalf("retry should rebuild the element")
	}

	if err := p.SelectItem(idOf(t, p, "good.mp3")); err != nil {
		t.Fatalf("playlist should stay interactive: %v", err)
	}
}

func TestElementConstructionFailure(t *testing.T) {
	p, f, _ := newTestPlayer(t)
	f.failNew["a.mkv"] = errors.New("no video output")
	p.AddFiles(paths("a.mkv"))
	s := p.Snapshot()
	if s.State != Ended || !errors.Is(s.PlaybackError, media.ErrPlaybackFailed) {
		t.Fatalf("expected failed item, got %s err=%v", describe(s), s.PlaybackError)
	}
}

func TestSeekAndSkipClamp(t *testing.T) {
	p, f, _ := newTestPlayer(t)
	p.AddFiles(paths("a.mp3"))
	waitFor(t, p, "Ready(a.mp3)", stateIs("a.mp3", Ready))
	el := f.last("a.mp3")

	cases := []struct {
		op   func() error
		want time.Duration
	}{
		{func() error { return p.Seek(2 * time.Second) }, 2 * time.Second},
		{func() error { return p.Skip(10 * time.Second) }, 5 * time.Second},
		{func() error { return p.Skip(-10 * time.Second) }, 0},
		{func() error { return p.Seek(-time.Second) }, 0},
		{func() error { return p.Seek(time.Hour) }, 5 * time.Second},
	}
	for i, tc := range cases {
		if err := tc.op(); err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if got := p.Snapshot().Position; got != tc.want || el.Position() != tc.want {
			t.Fatalf("case %d: position %v (element %v), want %v", i, got, el.Position(), tc.want)
		}
	}
}

func TestVolumeClampAndMute(t *testing.T) {
	p, _, graph := newTestPlayer(t)
	if got := p.SetMasterVolume(-0.5); got != 0 {
		t.Fatalf("SetMasterVolume(-0.5) = %v", got)
	}
	if got := p.SetMasterVolume(1.7); got != 1 {
		t.Fatalf("SetMasterVolume(1.7) = %v", got)
	}
	p.SetMasterVolume(0.6)
	if !p.ToggleMute() || graph.MasterVolume() != 0 {
		t.Fatalf("mute did not silence the master gain")
	}
	if p.ToggleMute() || graph.MasterVolume() != 0.6 {
		t.Fatalf("unmute did not restore 0.6, got %v", graph.MasterVolume())
	}
}

func TestZeroVolumeCountsAsMuted(t *testing.T) {
	p, _, graph := newTestPlayer(t)
	p.SetMasterVolume(0.7)
	p.SetMasterVolume(0)
	if s := p.Snapshot(); !s.Muted || s.Volume != 0 {
		t.Fatalf("volume 0: muted=%t volume=%v", s.Muted, s.Volume)
	}
	if p.ToggleMute() {
		t.Fatal("toggle after dragging to 0 should unmute")
	}
	if graph.MasterVolume() != 0.7 {
		t.Fatalf("unmute restored %v, want 0.7", graph.MasterVolume())
	}
	p.SetMasterVolume(0.2)
	if p.Snapshot().Muted {
		t.Fatal("non-zero volume left the session muted")
	}
}

func TestRawVolumeFollowsGraphAvailability(t *testing.T) {
	p, f, _ := newTestPlayer(t)
	p.SetMasterVolume(0.4)
	p.AddFiles(paths("clip.mp4", "a.mp3"))
	waitFor(t, p, "Ready(clip.mp4)", stateIs("clip.mp4", Ready))
	if v, ok := f.last("clip.mp4").rawVolume(); !ok || v != 0.4 {
		t.Fatalf("degraded element raw volume = %v, %v", v, ok)
	}
	p.ToggleMute()
	if v, _ := f.last("clip.mp4").rawVolume(); v != 0 {
		t.Fatalf("mute not mirrored, raw volume %v", v)
	}
	p.ToggleMute()

	if err := p.SelectItem(idOf(t, p, "a.mp3")); err != nil {
		t.Fatalf("select: %v", err)
	}
	waitFor(t, p, "Ready(a.mp3)", stateIs("a.mp3", Ready))
	if v, ok := f.last("a.mp3").rawVolume(); !ok || v != 1 {
		t.Fatalf("graph-routed element should stay at unity, got %v", v)
	}
}

func TestPresetsAndBandErrors(t *testing.T) {
	p, _, _ := newTestPlayer(t)
	if err := p.ApplyPreset("bass boost"); err != nil {
		t.Fatalf("ApplyPreset: %v", err)
	}
	s := p.Snapshot()
	want, _ := equalizer.FindPreset("Bass Boost")
	if s.Preset != want.Name {
		t.Fatalf("preset = %q", s.Preset)
	}
	for i := range want.Gains {
		if s.Gains[i] != want.Gains[i] {
			t.Fatalf("band %d = %v, want %v", i, s.Gains[i], want.Gains[i])
		}
	}
	if err := p.SetBandGain(0, s.Gains[0]+1); err != nil {
		t.Fatalf("SetBandGain: %v", err)
	}
	if p.Snapshot().Preset != equalizer.PresetManual {
		t.Fatalf("edited gains should report the manual preset")
	}
	if err := p.ApplyPreset("loudness war"); !errors.Is(err, ErrUnknownPreset) {
		t.Fatalf("err = %v, want ErrUnknownPreset", err)
	}
	if err := p.SetBandGain(equalizer.BandCount, 1); !errors.Is(err, audiograph.ErrInvalidBandIndex) {
		t.Fatalf("err = %v, want ErrInvalidBandIndex", err)
	}
}

func TestSetVisualReachesVideoElement(t *testing.T) {
	p, f, _ := newTestPlayer(t)
	p.AddFiles(paths("clip.mp4"))
	waitFor(t, p, "Ready(clip.mp4)", stateIs("clip.mp4", Ready))
	d := p.SetVisual(visual.Settings{Brightness: 200, Contrast: 100, Saturation: 100})
	if d.Settings().Brightness != 150 {
		t.Fatalf("brightness not clamped: %v", d.Settings().Brightness)
	}
	el := f.last("clip.mp4")
	el.mu.Lock()
	defer el.mu.Unlock()
	if len(el.visuals) != 2 || el.visuals[1] != d {
		t.Fatalf("element received %d visual updates", len(el.visuals))
	}
}

func TestSubscribeAndClose(t *testing.T) {
	p, _, _ := newTestPlayer(t)
	got := make(chan Snapshot, 16)
	cancel := p.Subscribe(func(s Snapshot) { got <- s })
	p.SetMasterVolume(0.3)
	select {
	case s := <-got:
		if s.Volume != 0.3 {
			t.Fatalf("listener saw volume %v", s.Volume)
		}
	case <-time.After(time.Second):
		t.Fatal("listener not notified")
	}
	cancel()

	added, _ := p.AddFiles(paths("a.mp3", "b.mp3"))
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	for _, it := range added {
		if !it.Source.Released() {
			t.Fatalf("%s not released on close", it.Name)
		}
	}
	if err := p.SelectItem(added[0].ID); !errors.Is(err, ErrClosed) {
		t.Fatalf("select after close err = %v", err)
	}
}

func TestNextKeepsPlaying(t *testing.T) {
	p, _, _ := newTestPlayer(t)
	if err := p.Next(); err != nil {
		t.Fatalf("next on empty playlist err = %v", err)
	}
	if s := p.Snapshot(); s.State != Empty || s.CurrentIndex != -1 {
		t.Fatalf("next on empty playlist changed state to %s index %d", s.State, s.CurrentIndex)
	}
	p.AddFiles(paths("a.mp3", "b.mp3"))
	waitFor(t, p, "Ready(a.mp3)", stateIs("a.mp3", Ready))
	_ = p.TogglePlay(context.Background())
	if err := p.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	waitFor(t, p, "Playing(b.mp3)", stateIs("b.mp3", Playing))
}
