// Package app wires the core components (PortClient, Transport,
// PatchBay, per-track RecordingPath/PlaybackPath, Supervisor) into a
// running application, following the teacher's staged Run()
// orchestration (parse args -> init logger -> load/connect ->
// pump loop -> shutdown).
package app

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jessecrossen/jackdaw-sub000/pkg/cli"
	"github.com/jessecrossen/jackdaw-sub000/pkg/logger"
	"github.com/jessecrossen/jackdaw-sub000/pkg/model"
	"github.com/jessecrossen/jackdaw-sub000/pkg/playback"
	"github.com/jessecrossen/jackdaw-sub000/pkg/port"
	"github.com/jessecrossen/jackdaw-sub000/pkg/recording"
	"github.com/jessecrossen/jackdaw-sub000/pkg/supervisor"
	"github.com/jessecrossen/jackdaw-sub000/pkg/transport"
	"github.com/jessecrossen/jackdaw-sub000/pkg/units"
)

// Application owns the process-lifetime singletons named in spec.md
// section 3's Lifecycles: the Transport and the PortClient.
type Application struct {
	config *cli.Config
	log    *slog.Logger

	client    port.Client
	transport *transport.Transport
	patchBay  *units.PatchBay
	trackList *model.TrackList
	sampler   *supervisor.Supervisor

	tracks         []*model.Track
	recordingPaths []*recording.Path
	playbackPaths  []*playback.Path
	rolling        bool
}

// New creates an Application backed by client (an in-memory
// port.FakeClient in headless/test environments, or a real PortClient
// implementation otherwise).
func New(client port.Client) *Application {
	return &Application{client: client}
}

// Run parses arguments, starts the core components, and blocks until
// Timeout elapses (0 means run until externally stopped).
func (app *Application) Run(args []string) error {
	if err := app.parseArgs(args); err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}
	if app.config.ShowHelp {
		cli.PrintHelp()
		return nil
	}
	if err := app.initLogger(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.log.Info("application starting", "headless", app.config.Headless)

	app.trackList = model.NewTrackList()
	app.transport = transport.New(app.client, transport.Options{})
	app.patchBay = units.NewPatchBay(app.client, nil)
	app.transport.OnTick(app.onTick)

	if app.config.SamplerCmd != "" {
		if err := app.startSampler(); err != nil {
			app.log.Warn("sampler unavailable, continuing without it", "err", err)
		}
	}

	app.transport.Start()
	app.log.Info("transport pump started")

	if app.config.Timeout > 0 {
		app.log.Info("waiting for timeout", "duration", app.config.Timeout)
		time.Sleep(app.config.Timeout)
		app.log.Info("timeout reached, shutting down")
	} else {
		app.log.Info("running until interrupted")
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		signal.Stop(sig)
		app.log.Info("interrupt received, shutting down")
	}

	app.shutdown()
	app.log.Info("application terminated normally")
	return nil
}

func (app *Application) parseArgs(args []string) error {
	config, err := cli.ParseArgs(args)
	if err != nil {
		return err
	}
	app.config = config
	return nil
}

func (app *Application) initLogger() error {
	if err := logger.InitLogger(app.config.LogLevel); err != nil {
		return err
	}
	app.log = logger.GetLogger()
	return nil
}

// startSampler spawns the sampler subprocess per the command line in
// config and waits for its readiness marker.
func (app *Application) startSampler() error {
	fields := strings.Fields(app.config.SamplerCmd)
	if len(fields) == 0 {
		return fmt.Errorf("empty sampler command")
	}
	s, err := supervisor.Spawn(fields[0], fields[1:]...)
	if err != nil {
		return err
	}
	app.sampler = s
	select {
	case <-s.Ready():
		app.log.Info("sampler ready")
	case <-time.After(5 * time.Second):
		app.log.Warn("sampler readiness timed out")
	}
	return nil
}

// AddTrack registers a track with its recording/playback paths,
// bound to sink/source ports already opened on the client.
func (app *Application) AddTrack(t *model.Track, sink, source port.Handle) {
	app.trackList.AddTrack(t)
	rp := recording.New(t, app.client, sink)
	pp := playback.New(t, app.client, source, app.pumpInterval())
	app.tracks = append(app.tracks, t)
	app.recordingPaths = append(app.recordingPaths, rp)
	app.playbackPaths = append(app.playbackPaths, pp)

	app.transport.OnRecordingStarted(func() {
		rp.OnStateChange(t.Arm, app.transport.IsRecording(), app.transport.Time())
	})
	app.transport.OnRecordingStopped(func() {
		rp.OnStateChange(t.Arm, app.transport.IsRecording(), app.transport.Time())
	})

	if app.rolling {
		pp.Start(app.transport.Time())
	}
}

// pumpInterval is the PlaybackPath min_schedule_ahead threshold,
// matched to the transport's rolling pump cadence (spec.md section
// 4.6).
func (app *Application) pumpInterval() float64 {
	return (50 * time.Millisecond).Seconds()
}

// onTick drives every track's RecordingPath/PlaybackPath from the
// transport's pump cadence: recording always drains its incoming
// queue (a no-op while unarmed); playback is started/stopped once on
// each rolling transition and ticked every cycle while rolling.
func (app *Application) onTick(state transport.State, now float64) {
	rolling := state == transport.Playing || state == transport.Recording
	if rolling != app.rolling {
		for _, pp := range app.playbackPaths {
			if rolling {
				pp.Start(now)
			} else {
				pp.Stop()
			}
		}
		app.rolling = rolling
	}

	for i, t := range app.tracks {
		app.recordingPaths[i].Pump(now)
		if rolling {
			app.playbackPaths[i].Tick(t.Enabled(), now)
		}
	}
}

// shutdown tears down the sampler subprocess and stops the transport
// pump.
func (app *Application) shutdown() {
	app.transport.StopPump()
	if app.sampler != nil {
		if err := app.sampler.Shutdown(); err != nil {
			app.log.Warn("sampler shutdown error", "err", err)
		}
	}
}

// Transport exposes the application's Transport for callers that
// need direct control (tests, a GUI shell).
func (app *Application) Transport() *transport.Transport { return app.transport }

// PatchBay exposes the application's PatchBay.
func (app *Application) PatchBay() *units.PatchBay { return app.patchBay }

// TrackList exposes the application's TrackList.
func (app *Application) TrackList() *model.TrackList { return app.trackList }
