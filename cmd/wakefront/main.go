// SPDX-License-Identifier: EPL-2.0

// Command wakefront runs the audio front-end described by a device profile.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/ik5/wakefront"
	"github.com/ik5/wakefront/internal/config"
	"github.com/ik5/wakefront/internal/logging"
	"github.com/ik5/wakefront/internal/metrics"
	"github.com/ik5/wakefront/internal/remote"
)

func main() {
	fs := pflag.NewFlagSet("wakefront", pflag.ExitOnError)
	config.Flags(fs)
	_ = fs.Parse(os.Args[1:])

	v, err := config.NewViper(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg, err := config.FromViper(v)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logs, err := logging.Setup(logrus.StandardLogger(), cfg.Log, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer logs.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logrus.StandardLogger()); err != nil {
		logrus.WithError(err).Error("wakefront stopped")
		logs.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	dev, err := wakefront.Build(ctx, cfg, wakefront.WithLogger(log), wakefront.WithRegisterer(reg))
	if err != nil {
		return fmt.Errorf("building device: %w", err)
	}
	defer func() {
		if err := dev.Close(); err != nil {
			log.WithError(err).Warn("closing device")
		}
	}()

	ctl := dev.Controller
	if err := ctl.Init(ctx); err != nil {
		return fmt.Errorf("initializing capture: %w", err)
	}
	if err := ctl.Start(); err != nil {
		return fmt.Errorf("starting capture: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, metrics.Handler(reg))
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			log.WithField("addr", cfg.Metrics.Addr).Info("serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdown)
		})
	}

	if cfg.MQTT.Broker != "" {
		client, err := remote.Connect(remote.Options{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		}, 10*time.Second)
		if err != nil {
			return err
		}
		defer client.Disconnect(250)

		l := remote.NewListener(client, ctl, cfg.MQTT.CommandTopic, cfg.MQTT.StatusTopic,
			remote.WithQoS(cfg.MQTT.QoS), remote.WithLogger(log))
		if err := l.Listen(); err != nil {
			return err
		}
		defer l.Close()
	}

	if cfg.AutoTrigger > 0 {
		g.Go(func() error {
			t := time.NewTimer(cfg.AutoTrigger)
			defer t.Stop()
			select {
			case <-t.C:
				if err := ctl.Trigger(); err != nil {
					log.WithError(err).Warn("auto-trigger failed")
				}
			case <-ctx.Done():
			}
			return nil
		})
	}

	if done := dev.Done(); done != nil {
		g.Go(func() error {
			select {
			case <-done:
				log.Info("audio input ended, shutting down")
				return errInputEnded
			case <-ctx.Done():
				return nil
			}
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		return nil
	})

	log.Info("wakefront running")
	if err := g.Wait(); err != nil && !errors.Is(err, errInputEnded) {
		return err
	}
	log.WithFields(statsFields(ctl.Stats())).Info("wakefront stopped")
	return nil
}

var errInputEnded = errors.New("audio input ended")
