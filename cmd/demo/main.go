// Command demo runs a two-process counter simulation over the rollback
// session: each side predicts the other's input every frame, and rolls
// back and replays whenever a real remote input contradicts the guess.
// There is no rendering here, only log lines — grounded in structure on
// cmd/dendy/server.go's listen/connect, save/load, and per-frame loop,
// generalized from one NES console to an arbitrary deterministic Advance
// hook.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/keyframeio/rollback/config"
	"github.com/keyframeio/rollback/logging"
	"github.com/keyframeio/rollback/metrics"
	"github.com/keyframeio/rollback/session"
)

// counterInput is the toy per-frame payload: a signed delta the local
// player contributes to a running total that both sides must agree on.
type counterInput struct {
	Delta int
}

// counterState is the entire simulation: a running total, which Advance
// moves by whatever SynchronizeInputs returned for the frame currently
// being simulated.
type counterState struct {
	total int
}

// counterHooks bridges the Session's opaque-snapshot contract to
// counterState. pending is set by the host right before calling
// IncrementFrame, since Advance itself takes no arguments.
type counterHooks struct {
	state   counterState
	pending [2]int
}

func (h *counterHooks) Save(frame uint32) (counterState, error) {
	return h.state, nil
}

func (h *counterHooks) Load(s counterState, frame uint32) error {
	h.state = s
	return nil
}

func (h *counterHooks) Advance() error {
	h.state.total += h.pending[0] + h.pending[1]
	return nil
}

func main() {
	var (
		configFile = flag.String("config", "", "path to a YAML config file (optional; defaults are used otherwise)")
		listenAddr = flag.String("listen", "127.0.0.1:7000", "local UDP address to listen on")
		remoteAddr = flag.String("remote", "", "remote peer's UDP address")
		localFirst = flag.Bool("local-first", true, "whether this process owns player 1 (the other must be false)")
		frames     = flag.Int("frames", 600, "number of frames to simulate before exiting")
	)
	flag.Parse()

	var cfg *config.Config
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "demo: load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}
	cfg.Network.ListenAddr = *listenAddr

	logger := logging.New("demo", cfg.Logging)

	var rec *metrics.Recorder
	if cfg.Metrics.Enabled {
		rec = metrics.NewRecorder("rollback_demo")
		go func() {
			if err := metrics.Serve(cfg.Metrics.Addr); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	hooks := &counterHooks{}
	sess, err := session.New[counterInput, counterState](cfg, hooks, logger, rec)
	if err != nil {
		logger.Error("failed to start session", "error", err)
		os.Exit(1)
	}
	defer sess.Close()

	logger.Info("listening", "addr", sess.LocalAddr())

	var remote *net.UDPAddr
	if *remoteAddr != "" {
		remote, err = net.ResolveUDPAddr("udp", *remoteAddr)
		if err != nil {
			logger.Error("failed to resolve remote address", "error", err)
			os.Exit(1)
		}
	}

	localNum, remoteNum := 1, 2
	if !*localFirst {
		localNum, remoteNum = 2, 1
	}

	if err := sess.AddPlayer(localNum, session.RoleLocal, nil); err != nil {
		logger.Error("failed to add local player", "error", err)
		os.Exit(1)
	}
	if remote != nil {
		if err := sess.AddPlayer(remoteNum, session.RoleRemote, remote); err != nil {
			logger.Error("failed to add remote player", "error", err)
			os.Exit(1)
		}
	}

	if err := sess.Start(); err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()

	for frame := 0; frame < *frames; frame++ {
		<-ticker.C

		if err := sess.PollNetwork(); err != nil {
			logger.Error("poll failed", "error", err)
			continue
		}

		delta := frame%7 - 3 // an arbitrary deterministic local move
		if _, err := sess.AddLocalInput(counterInput{Delta: delta}); err != nil {
			logger.Warn("local input rejected", "error", err)
		}

		slots, err := sess.SynchronizeInputs()
		if err != nil {
			logger.Warn("synchronize failed, awaiting rollback", "error", err)
		} else {
			for i, s := range slots {
				if s.Ok {
					hooks.pending[i] = s.Payload.Delta
				} else {
					hooks.pending[i] = 0
				}
			}
			if _, err := sess.IncrementFrame(); err != nil {
				logger.Error("increment frame failed", "error", err)
			}
		}

		if rb, err := sess.CheckSimulation(); err != nil {
			logger.Error("check simulation failed", "error", err)
		} else if rb != nil {
			logger.Info("rolling back", "frame", rb.Frame, "steps", rb.NumSteps)
			for step := uint32(0); step < rb.NumSteps; step++ {
				slots, err := sess.SynchronizeInputs()
				if err != nil {
					logger.Error("replay synchronize failed", "error", err)
					break
				}
				for i, s := range slots {
					if s.Ok {
						hooks.pending[i] = s.Payload.Delta
					} else {
						hooks.pending[i] = 0
					}
				}
				if _, err := sess.IncrementFrame(); err != nil {
					logger.Error("replay increment failed", "error", err)
					break
				}
			}
			if err := sess.PostRollback(); err != nil {
				logger.Error("post rollback failed", "error", err)
			}
		}

		if frame%60 == 0 {
			fmt.Fprintf(out, "frame=%d total=%d\n", frame, hooks.state.total)
			out.Flush()
		}
	}
}
