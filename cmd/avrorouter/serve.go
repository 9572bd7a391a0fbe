package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ghc888/MaxScale/internal/config"
	"github.com/ghc888/MaxScale/internal/converter"
	"github.com/ghc888/MaxScale/internal/session"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the conversion driver and the client session listener",
		RunE:  runServe,
	}
	config.BindFlags(cmd)
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	inst, err := converter.Open(converter.Config{
		BinlogDir:      cfg.BinlogDir,
		AvroDir:        cfg.AvroDir,
		CheckpointPath: cfg.CheckpointPath(),
		DDLListPath:    cfg.DDLListPath(),
		RowTarget:      cfg.RowTarget,
		TrxTarget:      cfg.TrxTarget,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := inst.Close(); err != nil {
			log.WithError(err).Error("avrorouter: error closing conversion instance")
		}
	}()

	srv, err := session.Listen(cfg.Listen, cfg.AvroDir)
	if err != nil {
		return err
	}
	defer srv.Close()
	log.WithField("addr", srv.Addr()).Info("avrorouter: client session listener started")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	driverDone := make(chan error, 1)
	go func() { driverDone <- inst.Run(ctx) }()

	serveDone := make(chan error, 1)
	go func() { serveDone <- srv.Serve() }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sig:
		log.Info("avrorouter: shutting down")
		cancel()
		srv.Close()
		<-driverDone
		return nil
	case err := <-driverDone:
		srv.Close()
		return err
	case err := <-serveDone:
		cancel()
		return err
	}
}
