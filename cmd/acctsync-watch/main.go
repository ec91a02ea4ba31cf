// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/blinklabs-io/acctsync"
	"github.com/blinklabs-io/acctsync/account"
	"github.com/blinklabs-io/acctsync/cmd/common"
	"github.com/blinklabs-io/acctsync/internal/telemetry"
	"github.com/blinklabs-io/acctsync/poller"
	"github.com/blinklabs-io/acctsync/store"
	"github.com/prometheus/client_golang/prometheus"
)

type watchFlags struct {
	*common.GlobalFlags
	authority   string
	metricsAddr string
	cacheFile   string
}

func newWatchFlags() *watchFlags {
	f := &watchFlags{
		GlobalFlags: common.NewGlobalFlags(),
	}
	f.Flagset.StringVar(
		&f.authority,
		"authority",
		"",
		"base58 wallet address whose craps position is watched",
	)
	f.Flagset.StringVar(
		&f.metricsAddr,
		"metrics-addr",
		"",
		"listen address for the Prometheus metrics endpoint (disabled if empty)",
	)
	f.Flagset.StringVar(
		&f.cacheFile,
		"cache",
		"",
		"path of the file that keeps the last known good account data",
	)
	return f
}

// resource is the type-independent view of a poller.Scheduler
type resource interface {
	Name() string
	Start(context.Context) error
	Stop()
	Pause()
	Resume()
	Paused() bool
	Refresh()
	Stats() poller.Stats
}

func main() {
	f := newWatchFlags()
	f.Parse()
	logger := f.NewLogger()

	network, err := f.Resolve()
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		os.Exit(1)
	}
	if network.ProgramID.IsZero() {
		fmt.Printf("ERROR: a program ID is required (-program-id or endpoints file)\n")
		os.Exit(1)
	}
	var authority account.Pubkey
	if f.authority != "" {
		authority, err = account.ParsePubkey(f.authority)
		if err != nil {
			fmt.Printf("ERROR: invalid authority: %s\n", err)
			os.Exit(1)
		}
	}

	metrics, err := telemetry.New(prometheus.NewRegistry())
	if err != nil {
		fmt.Printf("ERROR: failed to create metrics: %s\n", err)
		os.Exit(1)
	}

	var st store.Store = store.NewMemoryStore()
	if f.cacheFile != "" {
		fileStore, err := store.NewFileStore(f.cacheFile)
		if err != nil {
			fmt.Printf("ERROR: failed to open cache: %s\n", err)
			os.Exit(1)
		}
		st = fileStore
	}
	defer st.Close()

	cm, err := acctsync.NewConnectionManager(
		acctsync.WithNetwork(network),
		acctsync.WithLogger(logger),
		acctsync.WithMetrics(metrics),
	)
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		os.Exit(1)
	}
	defer cm.Close()

	w, err := newWatcher(cm, st, metrics, logger, authority)
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if f.metricsAddr != "" {
		server := &http.Server{
			Addr:              f.metricsAddr,
			Handler:           metrics.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error(
					"Metrics server failed",
					"error",
					err,
				)
			}
		}()
		defer server.Close()
	}

	logger.Info(
		"Starting watcher",
		"network",
		network.Name,
		"program_id",
		network.ProgramID.String(),
		"endpoints",
		len(network.Endpoints),
	)
	for _, r := range w.resources {
		if err := r.Start(ctx); err != nil {
			fmt.Printf("ERROR: failed to start %s: %s\n", r.Name(), err)
			os.Exit(1)
		}
	}

	// SIGUSR1 toggles pausing, as a hidden UI would. SIGUSR2 forces a refresh
	controlChan := make(chan os.Signal, 1)
	signal.Notify(controlChan, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(controlChan)
	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down")
			for _, r := range w.resources {
				r.Stop()
			}
			return
		case sig := <-controlChan:
			switch sig {
			case syscall.SIGUSR1:
				w.togglePause()
			case syscall.SIGUSR2:
				for _, r := range w.resources {
					r.Refresh()
				}
			}
		}
	}
}

type watcher struct {
	logger    *slog.Logger
	programID account.Pubkey
	slot      poller.SlotTracker
	roundID   atomic.Uint64
	round     *poller.Scheduler[account.Round]
	resources []resource

	mutex  sync.Mutex
	paused bool
	// roundReady is set once the board has named a round
	roundReady bool
}

func newWatcher(
	cm *acctsync.ConnectionManager,
	st store.Store,
	metrics *telemetry.Metrics,
	logger *slog.Logger,
	authority account.Pubkey,
) (*watcher, error) {
	network := cm.Network()
	w := &watcher{
		logger:    logger,
		programID: network.ProgramID,
	}
	horizon := network.Polling.FastHorizonSlots

	slotScheduler, err := poller.New(
		cm,
		poller.Config[uint64]{
			Name:   "slot",
			Fetch:  poller.SlotFetch,
			Decode: poller.DecodeSlot,
		},
		poller.WithLogger[uint64](logger),
		poller.WithMetrics[uint64](metrics),
		poller.WithUpdateFunc(func(snap poller.Snapshot[uint64]) {
			if snap.Data != nil {
				w.slot.Update(*snap.Data)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	boardAddress, err := account.BoardAddress(w.programID)
	if err != nil {
		return nil, err
	}
	w.round, err = poller.New(
		cm,
		poller.Config[account.Round]{
			Name:   "round",
			Fetch:  poller.AccountFetchFunc(w.roundAddress),
			Decode: account.DecodeRound,
		},
		poller.WithLogger[account.Round](logger),
		poller.WithMetrics[account.Round](metrics),
		poller.WithUrgencyFunc(
			poller.DeadlineWithin(&w.slot, horizon, func(r account.Round) uint64 { return r.ExpiresAt }),
		),
		poller.WithUpdateFunc(w.roundUpdated),
	)
	if err != nil {
		return nil, err
	}
	// The round address is unknown until the board is read
	w.round.Pause()
	boardScheduler, err := poller.New(
		cm,
		poller.Config[account.Board]{
			Name:   "board",
			Fetch:  poller.AccountFetch(boardAddress),
			Decode: account.DecodeBoard,
		},
		poller.WithLogger[account.Board](logger),
		poller.WithMetrics[account.Board](metrics),
		poller.WithStore[account.Board](st, "board"),
		poller.WithUpdateFunc(w.boardUpdated),
	)
	if err != nil {
		return nil, err
	}

	gameAddress, err := account.CrapsGameAddress(w.programID)
	if err != nil {
		return nil, err
	}
	gameScheduler, err := poller.New(
		cm,
		poller.Config[account.CrapsGame]{
			Name:   "craps_game",
			Fetch:  poller.AccountFetch(gameAddress),
			Decode: account.DecodeCrapsGame,
		},
		poller.WithLogger[account.CrapsGame](logger),
		poller.WithMetrics[account.CrapsGame](metrics),
		poller.WithStore[account.CrapsGame](st, "craps_game"),
		poller.WithUpdateFunc(func(snap poller.Snapshot[account.CrapsGame]) {
			logSnapshot(logger, "craps_game", snap, func(g account.CrapsGame) []any {
				return []any{
					"epoch",
					g.EpochID,
					"point",
					g.Point,
					"come_out",
					g.IsComeOut,
					"available_bankroll",
					g.AvailableBankroll(),
				}
			})
		}),
	)
	if err != nil {
		return nil, err
	}
	// The round starts before the board so a cached board can resume it
	w.resources = []resource{slotScheduler, w.round, boardScheduler, gameScheduler}

	if !authority.IsZero() {
		positionAddress, err := account.CrapsPositionAddress(w.programID, authority)
		if err != nil {
			return nil, err
		}
		positionScheduler, err := poller.New(
			cm,
			poller.Config[account.CrapsPosition]{
				Name:   "craps_position",
				Fetch:  poller.AccountFetch(positionAddress),
				Decode: account.DecodeCrapsPosition,
			},
			poller.WithLogger[account.CrapsPosition](logger),
			poller.WithMetrics[account.CrapsPosition](metrics),
			poller.WithStore[account.CrapsPosition](st, "craps_position:"+authority.String()),
			poller.WithUpdateFunc(func(snap poller.Snapshot[account.CrapsPosition]) {
				logSnapshot(logger, "craps_position", snap, func(p account.CrapsPosition) []any {
					return []any{
						"epoch",
						p.EpochID,
						"active_bets",
						p.TotalActiveBets(),
						"pending_winnings",
						p.PendingWinnings,
					}
				})
			}),
		)
		if err != nil {
			return nil, err
		}
		w.resources = append(w.resources, positionScheduler)
	}
	return w, nil
}

func (w *watcher) roundAddress() account.Pubkey {
	// The program ID was checked when the board address was derived
	addr, _ := account.RoundAddress(w.programID, w.roundID.Load())
	return addr
}

func (w *watcher) boardUpdated(snap poller.Snapshot[account.Board]) {
	logSnapshot(w.logger, "board", snap, func(b account.Board) []any {
		return []any{"round_id", b.RoundID, "round_slots", b.RoundSlots}
	})
	if snap.Data == nil {
		return
	}
	prev := w.roundID.Swap(snap.Data.RoundID)
	w.mutex.Lock()
	defer w.mutex.Unlock()
	switch {
	case !w.roundReady:
		w.roundReady = true
		if !w.paused {
			w.round.Resume()
		}
	case prev != snap.Data.RoundID:
		// The round scheduler now targets a different account
		w.round.Invalidate()
	}
}

func (w *watcher) roundUpdated(snap poller.Snapshot[account.Round]) {
	logSnapshot(w.logger, "round", snap, func(r account.Round) []any {
		attrs := []any{
			"round_id",
			r.ID,
			"total_deployed",
			r.TotalDeployed,
			"slots_remaining",
			r.SlotsRemaining(w.slot.Slot()),
		}
		if square, ok := r.WinningSquare(); ok {
			attrs = append(attrs, "winning_square", square)
		}
		if die1, die2, sum, ok := r.Roll(); ok {
			attrs = append(attrs, "dice", fmt.Sprintf("%d+%d=%d", die1, die2, sum))
		}
		return attrs
	})
}

func (w *watcher) togglePause() {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.paused = !w.paused
	for _, r := range w.resources {
		switch {
		case w.paused:
			r.Pause()
		case r == resource(w.round) && !w.roundReady:
			// Still waiting for the board
		default:
			r.Resume()
		}
	}
	w.logger.Info(
		"Toggled polling",
		"paused",
		w.paused,
	)
}

func logSnapshot[T any](logger *slog.Logger, name string, snap poller.Snapshot[T], attrs func(T) []any) {
	switch {
	case snap.Data == nil && snap.Err == nil:
		logger.Info(
			"Account not found",
			"resource",
			name,
		)
	case snap.Stale:
		args := []any{"resource", name, "kind", snap.Kind.String()}
		if snap.Err != nil {
			args = append(args, "error", snap.Err)
		}
		logger.Warn("Showing last known data", args...)
	default:
		args := append([]any{"resource", name, "generation", snap.Generation}, attrs(*snap.Data)...)
		logger.Info("Updated", args...)
	}
}
