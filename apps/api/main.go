package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof on the default mux

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	echoapi "github.com/trezcool/pathway/apps/api/echo"
	"github.com/trezcool/pathway/apps/di"
	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/dropdown"
)

func main() {
	var inMem bool
	cmd := &cobra.Command{
		Use:           "pathway-api",
		Short:         "Pathway CRM API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(core.NewConfig(), inMem)
		},
	}
	cmd.Flags().BoolVar(&inMem, "inmem", false, "store everything in memory instead of Postgres (data is lost on exit)")

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func run(conf *core.Config, inMem bool) error {
	c := di.New(conf, di.Options{InMem: inMem})
	if err := di.Init(c, true); err != nil {
		return err
	}

	return c.Invoke(func(
		logger core.Logger,
		validate *validator.Validate,
		translator ut.Translator,
		svcs di.Services,
	) error {
		// =========================================================================
		// Initialize App

		logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
		defer logger.Info("Application stopped")
		if closer, ok := logger.(interface{ Close() }); ok {
			defer closer.Close()
		}

		if inMem {
			seeds, err := dropdown.LoadSeeds(nil)
			if err != nil {
				return err
			}
			if _, err = svcs.Dropdowns.Seed(context.Background(), seeds); err != nil {
				return err
			}
			logger.Warn("running in memory: data will be lost on exit")
		}

		// =========================================================================
		// Start Debug Service
		//
		// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
		// /debug/vars - Added to the default mux by importing the expvar package.

		expvar.NewString("build").Set(conf.Build)
		expvar.NewString("env").Set(conf.Env)

		if conf.Server.DebugHost != "" {
			go func() {
				if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
					logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
				}
			}()
		}

		// =========================================================================
		// Start API Service

		server := echoapi.NewServer(conf, logger, validate, translator, svcs)
		go server.Start()

		// =========================================================================
		// Shutdown

		select {
		case err := <-server.Errors():
			return errors.Wrap(err, "server error")

		case sig := <-server.ShutdownSignal():
			logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

			// give outstanding requests a deadline for completion
			ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
			defer cancel()

			// asking listener to shut down and shed load
			if err := server.Shutdown(ctx); err != nil {
				logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
				if err = server.Close(); err != nil {
					return errors.Wrap(err, "could not force stop server")
				}
			}
		}
		return nil
	})
}
