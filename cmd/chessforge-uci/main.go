// Command chessforge-uci is the UCI entry point: it wires a search
// engine and an optional opening book into the protocol handler and
// runs the stdin/stdout loop.
package main

import (
	"flag"
	"log"
	"os"
	"runtime/pprof"

	"chessforge/internal/search"
	"chessforge/internal/uci"
)

var (
	hashMB     = flag.Int("hash", 64, "transposition table size in MB")
	bookPath   = flag.String("book", "", "path to a Polyglot opening book")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
)

func main() {
	flag.Parse()

	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
		log.Printf("CPU profiling enabled, writing to %s", profilePath)
	}

	cfg := search.DefaultConfig()
	cfg.HashMB = *hashMB

	eng := search.NewEngine(cfg)
	protocol := uci.New(eng)

	if *bookPath != "" {
		protocol.LoadBookFile(*bookPath)
	}

	protocol.Run()
}
