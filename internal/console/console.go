// Package console is a line-oriented front end to a session.Player. It backs
// the miniplayerctl REPL and works without a window.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/edward-ap/miniplayer/internal/audiograph"
	"github.com/edward-ap/miniplayer/internal/equalizer"
	"github.com/edward-ap/miniplayer/internal/media"
	"github.com/edward-ap/miniplayer/internal/session"
	"github.com/edward-ap/miniplayer/internal/visual"
)

// ErrQuit is returned by Exec for the quit command.
var ErrQuit = errors.New("quit")

var errUsage = errors.New("usage")

// Op names a console command.
type Op int

const (
	OpHelp Op = iota
	OpAdd
	OpList
	OpSelect
	OpNext
	OpRemove
	OpPlay
	OpSeek
	OpSkip
	OpEQ
	OpPreset
	OpVolume
	OpMute
	OpVisual
	OpRetry
	OpStatus
	OpGraph
	OpQuit
)

var opNames = map[string]Op{
	"help":   OpHelp,
	"?":      OpHelp,
	"add":    OpAdd,
	"list":   OpList,
	"ls":     OpList,
	"select": OpSelect,
	"next":   OpNext,
	"remove": OpRemove,
	"rm":     OpRemove,
	"play":   OpPlay,
	"pause":  OpPlay,
	"seek":   OpSeek,
	"skip":   OpSkip,
	"eq":     OpEQ,
	"preset": OpPreset,
	"vol":    OpVolume,
	"mute":   OpMute,
	"visual": OpVisual,
	"retry":  OpRetry,
	"status": OpStatus,
	"graph":  OpGraph,
	"quit":   OpQuit,
	"exit":   OpQuit,
}

// Commands lists the primary command words for completion.
func Commands() []string {
	return []string{"add", "list", "select", "next", "remove", "play", "seek", "skip",
		"eq", "preset", "vol", "mute", "visual", "retry", "status", "graph", "help", "quit"}
}

const helpText = `commands:
  add <path>...          add files to the playlist
  list                   show the playlist
  select <n>             load item n (1-based)
  next                   advance to the next item
  remove <n>             remove item n
  play                   toggle play/pause
  seek <seconds>         jump to a position
  skip <seconds>         move relative to the position
  eq [<band> <dB>]       show or set a band gain (band is 1-based)
  preset [name]          list presets or apply one
  vol [0..1]             show or set the master volume
  mute                   toggle mute
  visual [<kind> <v>]    show or set a video adjustment
  retry                  reload a failed item
  status                 show the current track
  graph                  describe the processing graph
  quit`

// Command is one parsed input line.
type Command struct {
	Op    Op
	Args  []string
	Index int // 0-based item or band
	Value float64
	Kind  visual.Kind
}

// Parse splits line into a command and validates its arguments. A blank line
// yields ok=false and no error.
func Parse(line string) (cmd Command, ok bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, false, nil
	}
	op, found := opNames[strings.ToLower(fields[0])]
	if !found {
		return Command{}, false, fmt.Errorf("unknown command %q", fields[0])
	}
	cmd = Command{Op: op, Args: fields[1:]}
	args := cmd.Args

	switch op {
	case OpAdd:
		if len(args) == 0 {
			return cmd, false, fmt.Errorf("add <path>...: %w", errUsage)
		}
	case OpSelect, OpRemove:
		if len(args) != 1 {
			return cmd, false, fmt.Errorf("%s <n>: %w", fields[0], errUsage)
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return cmd, false, fmt.Errorf("bad item number %q", args[0])
		}
		cmd.Index = n - 1
	case OpSeek, OpSkip:
		if len(args) != 1 {
			return cmd, false, fmt.Errorf("%s <seconds>: %w", fields[0], errUsage)
		}
		v, err := parseFinite(args[0])
		if err != nil {
			return cmd, false, fmt.Errorf("bad seconds %q", args[0])
		}
		cmd.Value = v
	case OpEQ:
		switch len(args) {
		case 0:
		case 2:
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return cmd, false, fmt.Errorf("bad band %q", args[0])
			}
			v, err := parseFinite(args[1])
			if err != nil {
				return cmd, false, fmt.Errorf("bad gain %q", args[1])
			}
			cmd.Index, cmd.Value = n-1, v
		default:
			return cmd, false, fmt.Errorf("eq [<band> <dB>]: %w", errUsage)
		}
	case OpVolume:
		switch len(args) {
		case 0:
		case 1:
			v, err := parseFinite(args[0])
			if err != nil {
				return cmd, false, fmt.Errorf("bad volume %q", args[0])
			}
			cmd.Value = v
		default:
			return cmd, false, fmt.Errorf("vol [level]: %w", errUsage)
		}
	case OpVisual:
		switch len(args) {
		case 0:
		case 2:
			k, ok := visualKind(args[0])
			if !ok {
				return cmd, false, fmt.Errorf("unknown adjustment %q", args[0])
			}
			v, err := parseFinite(args[1])
			if err != nil {
				return cmd, false, fmt.Errorf("bad value %q", args[1])
			}
			cmd.Kind, cmd.Value = k, v
		default:
			return cmd, false, fmt.Errorf("visual [<kind> <value>]: %w", errUsage)
		}
	}
	return cmd, true, nil
}

// parseFinite rejects NaN and infinities, which strconv accepts.
func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return v, nil
}

func visualKind(name string) (visual.Kind, bool) {
	name = strings.ToLower(name)
	for _, k := range visual.Order {
		if k.String() == name {
			return k, true
		}
	}
	switch name {
	case "saturation":
		return visual.Saturate, true
	case "hue":
		return visual.HueRotate, true
	}
	return 0, false
}

func seconds(v float64) time.Duration { return time.Duration(v * float64(time.Second)) }

// Console executes commands against a player and prints results to out.
type Console struct {
	player *session.Player
	graph  *audiograph.Controller
	out    io.Writer
}

// New returns a console; graph may be nil, which disables the graph command.
func New(p *session.Player, graph *audiograph.Controller, out io.Writer) *Console {
	return &Console{player: p, graph: graph, out: out}
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// Exec parses and runs one line. It returns ErrQuit for the quit command.
func (c *Console) Exec(ctx context.Context, line string) error {
	cmd, ok, err := Parse(line)
	if err != nil || !ok {
		return err
	}
	return c.Run(ctx, cmd)
}

// Run executes a parsed command.
func (c *Console) Run(ctx context.Context, cmd Command) error {
	p := c.player
	switch cmd.Op {
	case OpHelp:
		c.printf("%s\n", helpText)
	case OpQuit:
		return ErrQuit
	case OpAdd:
		added, rejected := p.AddFiles(cmd.Args)
		for _, it := range added {
			c.printf("added %s (%s)\n", it.Name, it.Class.Label())
		}
		for _, err := range rejected {
			c.printf("skipped: %v\n", err)
		}
	case OpList:
		c.list(p.Snapshot())
	case OpSelect:
		it, err := c.item(cmd.Index)
		if err != nil {
			return err
		}
		return p.SelectItem(it.ID)
	case OpNext:
		return p.Next()
	case OpRemove:
		it, err := c.item(cmd.Index)
		if err != nil {
			return err
		}
		return p.RemoveItem(it.ID)
	case OpPlay:
		return p.TogglePlay(ctx)
	case OpSeek:
		return p.Seek(seconds(cmd.Value))
	case OpSkip:
		return p.Skip(seconds(cmd.Value))
	case OpEQ:
		if len(cmd.Args) == 0 {
			c.eq(p.Snapshot())
			return nil
		}
		return p.SetBandGain(cmd.Index, cmd.Value)
	case OpPreset:
		if len(cmd.Args) == 0 {
			c.printf("current: %s\n", p.Snapshot().Preset)
			c.printf("available: %s\n", strings.Join(equalizer.PresetNames(), ", "))
			return nil
		}
		return p.ApplyPreset(strings.Join(cmd.Args, " "))
	case OpVolume:
		if len(cmd.Args) == 0 {
			s := p.Snapshot()
			c.printf("volume %.2f muted=%t\n", s.Volume, s.Muted)
			return nil
		}
		c.printf("volume %.2f\n", p.SetMasterVolume(cmd.Value))
	case OpMute:
		c.printf("muted=%t\n", p.ToggleMute())
	case OpVisual:
		s := p.Snapshot()
		if len(cmd.Args) > 0 {
			d := p.SetVisual(s.Visual.Settings().With(cmd.Kind, cmd.Value))
			c.printf("%s\n", d.CSS())
			return nil
		}
		c.printf("%s\n", s.Visual.CSS())
	case OpRetry:
		return p.Retry(ctx)
	case OpStatus:
		c.status(p.Snapshot())
	case OpGraph:
		if c.graph == nil {
			return errors.New("no graph")
		}
		c.topology(c.graph.Topology())
	}
	return nil
}

func (c *Console) item(i int) (media.Item, error) {
	items := c.player.Snapshot().Items
	if i < 0 || i >= len(items) {
		return media.Item{}, fmt.Errorf("no item %d", i+1)
	}
	return items[i], nil
}

func (c *Console) list(s session.Snapshot) {
	if len(s.Items) == 0 {
		c.printf("playlist is empty\n")
		return
	}
	for i, it := range s.Items {
		mark := " "
		if i == s.CurrentIndex {
			mark = "*"
		}
		dur := "--:--"
		if it.Duration > 0 {
			dur = media.FormatTime(it.Duration)
		}
		c.printf("%s%2d. %-5s %6s  %s\n", mark, i+1, it.Class.Label(), dur, it.Name)
	}
}

func (c *Console) eq(s session.Snapshot) {
	for i, b := range s.Bands {
		g := 0.0
		if i < len(s.Gains) {
			g = s.Gains[i]
		}
		c.printf("%2d. %-6s %+5.1f dB\n", i+1, b.Label, g)
	}
	c.printf("preset: %s\n", s.Preset)
}

func (c *Console) status(s session.Snapshot) {
	if !s.HasItem {
		c.printf("state=%s\n", s.State)
		return
	}
	c.printf("state=%s item=%s pos=%s/%s volume=%.2f muted=%t degraded=%t\n",
		s.State, s.Item.Name, media.FormatTime(s.Position), media.FormatTime(s.Duration),
		s.Volume, s.Muted, s.GraphDegraded)
	if s.PlaybackError != nil {
		c.printf("error: %v\n", s.PlaybackError)
	}
}

func (c *Console) topology(t audiograph.Topology) {
	if !t.HasContext {
		c.printf("no context\n")
		return
	}
	c.printf("context=%s master=%.2f paths=%d\n", t.ContextState, t.MasterLevel, t.DestinationPaths)
	if !t.Attached {
		c.printf("detached\n")
		return
	}
	c.printf("source %s -> %d filters -> master\n", t.ElementID, t.Filters)
	for i, g := range t.FilterGains {
		c.printf("  filter %d: %+.1f dB\n", i+1, g)
	}
}
