package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ballsim/backend/internal/audio"
	"github.com/ballsim/backend/internal/config"
	"github.com/ballsim/backend/internal/sim"
	"github.com/ballsim/backend/internal/viewer"
	"github.com/gdamore/tcell/v2"
)

var (
	presetFlag = flag.String("preset", "", "Preset: default or brownian (overrides SIM_PRESET)")
	ballsFlag  = flag.Int("balls", -1, "Number of balls (overrides SIM_BALL_COUNT)")
	seedFlag   = flag.Int64("seed", 0, "Random seed; 0 picks one from the clock")
	logFlag    = flag.String("log", "", "Write logs to this file instead of discarding them")
)

func main() {
	flag.Parse()

	// The terminal belongs to tcell; logs go to a file or nowhere.
	log.SetOutput(io.Discard)
	if *logFlag != "" {
		f, err := os.OpenFile(*logFlag, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		log.SetOutput(f)
	}

	if *presetFlag != "" {
		os.Setenv("SIM_PRESET", *presetFlag)
	}
	cfg := config.Load()
	if *ballsFlag >= 0 {
		cfg.BallCount = *ballsFlag
	}
	settings, err := cfg.SimSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid settings: %v\n", err)
		os.Exit(1)
	}

	seed := *seedFlag
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	log.Printf("[SIM] Starting %s preset with %d balls (seed=%d)", settings.Preset, settings.BallCount, seed)

	var gate *audio.Gate
	var opts []sim.Option
	if cfg.AudioEnabled {
		gate = audio.NewGate(cfg.AudioMaxCueRate, cfg.AudioMuteAboveBalls, settings.BallCount)
		player := audio.NewPlayer(gate, 0.8)
		// Non-fatal, the viewer runs without sound
		player.Init()
		defer player.Close()
		opts = append(opts, sim.WithEventSink(player))
	}
	s := sim.New(settings, sim.NewRand(seed), opts...)

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create screen: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize screen: %v\n", err)
		os.Exit(1)
	}
	defer screen.Fini()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	var v *viewer.Viewer
	if gate != nil {
		v = viewer.New(screen, s, gate)
	} else {
		v = viewer.New(screen, s, nil)
	}
	v.Run(ctx)

	stats := s.Stats()
	log.Printf("[SIM] Exiting after %d ball and %d wall collisions", stats.TotalBallCollisions, stats.TotalWallCollisions)
}
