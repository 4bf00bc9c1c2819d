package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AaronLay10/StoryLoom/internal/api"
	"github.com/AaronLay10/StoryLoom/internal/app"
	"github.com/AaronLay10/StoryLoom/internal/config"
	"github.com/AaronLay10/StoryLoom/internal/events"
	"github.com/AaronLay10/StoryLoom/internal/fixture"
	"github.com/AaronLay10/StoryLoom/internal/metrics"
	"github.com/AaronLay10/StoryLoom/internal/mqtt"
	"github.com/AaronLay10/StoryLoom/internal/storage"
	"github.com/AaronLay10/StoryLoom/internal/storage/postgres"
	"github.com/AaronLay10/StoryLoom/internal/storage/sqlite"
	"github.com/AaronLay10/StoryLoom/internal/version"
	"github.com/AaronLay10/StoryLoom/internal/watch"
)

const brokerCheckInterval = 5 * time.Second

func serveCmd() *cobra.Command {
	var watchStory bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser playground and the playback API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger, watchStory)
		},
	}
	cmd.Flags().BoolVarP(&watchStory, "watch", "w", false, "recompile the story file when it changes")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger, watchStory bool) error {
	hostname, _ := os.Hostname()
	events.Emit("info", "system.startup", "storyloom starting", map[string]interface{}{
		"service":  "storyloom",
		"version":  version.Version,
		"hostname": hostname,
		"pid":      os.Getpid(),
	})

	m := metrics.NewCollector()

	store, err := openStore(ctx, cfg)
	if err != nil {
		events.Emit("error", "system.error", "script store unavailable", map[string]interface{}{
			"driver": cfg.Storage.Driver,
			"error":  err.Error(),
		})
		return err
	}
	defer store.Close()

	opts := app.Options{
		Layout:          cfg.Graph.Layout,
		MaxCommandChain: cfg.Playback.MaxCommandChain,
		Logger:          logger,
		Metrics:         m,
	}

	var client *mqtt.Client
	var ctrl *mqtt.ControlSubscriber
	var bridge *mqtt.CommandBridge
	if cfg.MQTT.Enabled() {
		client = mqtt.NewClient(mqtt.Options{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			Logger:   logger.Named("mqtt"),
			OnConnect: func() {
				if ctrl == nil {
					return
				}
				ctrl.Reset()
				go func() {
					if err := ctrl.Subscribe(); err != nil {
						logger.Warn("control subscribe failed", zap.Error(err))
					}
				}()
			},
		})
		bridge = mqtt.NewCommandBridge(client, mqtt.BridgeOptions{
			Prefix:          cfg.MQTT.Prefix,
			BreakerFailures: cfg.MQTT.BreakerFailures,
			BreakerTimeout:  cfg.MQTT.BreakerTimeout,
			Metrics:         m,
			Logger:          logger.Named("bridge"),
		})
		opts.Commands = bridge
	}

	alerter := api.NewAlerter(cfg.Alerts.WebhookURL, cfg.Alerts.DisconnectDelay, logger.Named("alerts"))
	defer alerter.Wait()

	sess, err := openSession(ctx, cfg, opts)
	if err != nil {
		// The server still starts so /ready can report the failure.
		logger.Error("story not loaded", zap.String("story", cfg.Engine.Story), zap.Error(err))
		if !sess.Ready() {
			alerter.EngineFailed(err)
		}
	}

	srvOpts := api.Options{
		Addr:        cfg.Server.Addr,
		TLS:         api.TLSFiles{CertFile: cfg.Server.TLSCert, KeyFile: cfg.Server.TLSKey},
		CORSOrigins: cfg.Server.CORSOrigins,
		Credentials: api.Credentials{
			EditorUser:     cfg.Server.EditorUser,
			EditorPassword: cfg.Server.EditorPassword,
			ViewerUser:     cfg.Server.ViewerUser,
			ViewerPassword: cfg.Server.ViewerPassword,
		},
		Session: sess,
		Scripts: store,
		Metrics: m,
		Logger:  logger.Named("http"),
	}

	if client != nil {
		ctrl = mqtt.NewControlSubscriber(client, sess, cfg.MQTT.Prefix, logger.Named("control"))
		if err := client.Connect(); err != nil {
			logger.Warn("mqtt connect failed, retrying in background", zap.Error(err))
		}
		defer client.Disconnect()
		// Drain queued commands before the connection goes away.
		defer bridge.Close()

		monitor := mqtt.NewMonitor(client, m.SetMQTTConnected, alerter.CheckBroker)
		monitor.Check()
		monitor.Start(brokerCheckInterval)
		defer monitor.Stop()

		srvOpts.Broker = client
	}

	if watchStory {
		if _, builtin := fixture.Example(cfg.Engine.Story); builtin {
			logger.Warn("--watch ignored for built-in example", zap.String("story", cfg.Engine.Story))
		} else {
			w, err := watch.New(cfg.Engine.Story, cfg.Playback.WatchDebounce, func(src string) {
				if _, err := sess.Compile(src); err != nil {
					logger.Warn("recompile skipped", zap.Error(err))
				}
			}, logger.Named("watch"))
			if err != nil {
				return err
			}
			go w.Run(ctx)
		}
	}

	err = api.NewServer(srvOpts).ListenAndServe(ctx)
	events.Emit("info", "system.shutdown", "storyloom stopping", nil)
	// Hijacked websocket connections outlive the HTTP shutdown.
	events.CloseAllSubscribers()
	return err
}

// openStore opens the script library. The memory store starts with the
// built-in examples.
func openStore(ctx context.Context, cfg *config.Config) (storage.ScriptStore, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		return postgres.Open(ctx, cfg.Storage.DSN)
	case "sqlite":
		return sqlite.Open(cfg.Storage.Path)
	case "memory":
		seed := make(map[string]string)
		for _, name := range fixture.Examples() {
			if src, ok := fixture.Example(name); ok {
				seed[name] = src
			}
		}
		return storage.NewMemory(seed), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
