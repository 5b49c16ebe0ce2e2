package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"time"

	echoapi "github.com/trezcool/educryption/apps/api/echo"
	"github.com/trezcool/educryption/apps/shared"
	"github.com/trezcool/educryption/core"
	"github.com/trezcool/educryption/core/content"
	emailsvc "github.com/trezcool/educryption/services/email"
	logsvc "github.com/trezcool/educryption/services/logger"
	uploadsvc "github.com/trezcool/educryption/services/upload"
	"github.com/trezcool/educryption/storage/database"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(logsvc.NewZapLogger("API", conf), conf)
	logger.Enable(!conf.Debug)
	defer logger.Sync()

	dbLogger := logsvc.NewRollbarLogger(logsvc.NewZapLogger("DB", conf), conf)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	setupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	repos, err := database.Setup(setupCtx, conf)
	cancel()
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err = repos.Close(ctx); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	files := uploadsvc.NewDiskStore(conf)
	svcs := shared.NewServices(conf, repos, mailSvc, files, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := shared.NewValidator()
	core.ParseEmailTemplates(conf, logger)

	// sweep orphaned uploads
	sweeper := uploadsvc.NewSweeper(files, svcs.Contents, content.UploadFolder, logger)
	if err = sweeper.Start(conf.Uploads.SweepSchedule); err != nil {
		logger.Error(fmt.Sprintf("starting uploads sweeper: %v", err), err)
	}
	defer sweeper.Stop()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("engine").Set(conf.Database.Engine)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:        conf,
			Logger:      logger,
			Validate:    validate,
			Translator:  translator,
			UserSvc:     svcs.Users,
			UnitSvc:     svcs.Units,
			ActivitySvc: svcs.Activities,
			ContentSvc:  svcs.Contents,
			CommentSvc:  svcs.Comments,
			ProgressSvc: svcs.Progress,
			UploadsDir:  files.Root(),
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
