package main

import (
	"flag"

	"github.com/edward-ap/miniplayer/internal/playerapp"
)

func main() {
	trace := flag.Bool("traceLog", false, "enable verbose libVLC logging to vlc.log")
	flag.Parse()
	playerapp.SetTraceLogEnabled(*trace)

	app := playerapp.NewApp()
	app.Run()
}
