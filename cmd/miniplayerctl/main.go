// cmd/miniplayerctl/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/gopxl/beep/v2"

	"github.com/edward-ap/miniplayer/internal/audioout"
	"github.com/edward-ap/miniplayer/internal/config"
	"github.com/edward-ap/miniplayer/internal/console"
	"github.com/edward-ap/miniplayer/internal/engine"
	"github.com/edward-ap/miniplayer/internal/player"
)

func main() {
	null := flag.Bool("null", false, "render audio to a discarding sink instead of the speaker")
	noVLC := flag.Bool("novlc", false, "do not use libVLC for video files")
	trace := flag.Bool("traceLog", false, "enable verbose libVLC logging to vlc.log")
	flag.Parse()
	player.SetTraceLoggingEnabled(*trace)

	cfg, err := config.Load()
	if err != nil {
		log.Println("config load error:", err)
		cfg = config.Default()
	}

	var opts []engine.Option
	if *null || *noVLC {
		opts = append(opts, engine.WithoutVLC())
	}
	var stopSink func()
	if *null {
		out := audioout.NewManual(beep.SampleRate(cfg.SampleRate))
		stopSink = drain(out, cfg.SampleRate)
		opts = append(opts, engine.WithOutput(out))
	}

	eng, err := engine.New(cfg, opts...)
	if err != nil {
		log.Fatalf("engine: %v", err)
	}
	defer func() {
		eng.Remember()
		if err := cfg.Save(); err != nil {
			log.Println("config save error:", err)
		}
		_ = eng.Close()
		if stopSink != nil {
			stopSink()
		}
	}()

	con := console.New(eng.Player, eng.Graph, os.Stdout)
	if args := flag.Args(); len(args) > 0 {
		_ = con.Exec(context.Background(), "add "+strings.Join(args, " "))
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "miniplayer> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		AutoComplete:    completer(),
	})
	if err != nil {
		log.Fatalf("readline: %v", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			log.Println("read:", err)
			return
		}
		err = con.Exec(context.Background(), line)
		if errors.Is(err, console.ErrQuit) {
			return
		}
		if err != nil {
			fmt.Println(" [!]", err)
		}
	}
}

// drain pulls the manual output at wall-clock rate so decoded elements keep
// advancing with no sound card.
func drain(out *audioout.Manual, sampleRate int) func() {
	const tick = 20 * time.Millisecond
	frames := sampleRate * int(tick) / int(time.Second)
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(tick)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				out.Pull(frames)
			}
		}
	}()
	return func() { close(done) }
}

func completer() *readline.PrefixCompleter {
	files := readline.PcItemDynamic(listFiles)
	var items []readline.PrefixCompleterInterface
	for _, name := range console.Commands() {
		if name == "add" {
			items = append(items, readline.PcItem(name, files))
			continue
		}
		items = append(items, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(items...)
}

func listFiles(line string) []string {
	fields := strings.Fields(line)
	prefix := ""
	if len(fields) > 1 && !strings.HasSuffix(line, " ") {
		prefix = fields[len(fields)-1]
	}
	dir := filepath.Dir(prefix)
	if prefix == "" {
		dir = "."
	}
	entries, _ := os.ReadDir(dir)
	var names []string
	for _, e := range entries {
		name := filepath.Join(dir, e.Name())
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names
}
