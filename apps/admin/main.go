package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/trezcool/educryption/apps/shared"
	"github.com/trezcool/educryption/core"
	emailsvc "github.com/trezcool/educryption/services/email"
	logsvc "github.com/trezcool/educryption/services/logger"
	uploadsvc "github.com/trezcool/educryption/services/upload"
	"github.com/trezcool/educryption/storage/database"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(logsvc.NewZapLogger("ADMIN", conf), conf)
	logger.Enable(false)
	defer logger.Sync()

	cli := &commandLine{conf: conf}

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		// migrations run on their own, without the implicit `up` of database.Setup
		if conf.Database.Engine != core.EnginePostgres {
			logger.Fatal(fmt.Sprintf("migrate: %v", errMigrateUnsupported), errMigrateUnsupported)
		}
		if err := database.CreateIfNotExist(conf); err != nil {
			logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
		}
		db, err := database.OpenPostgres(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
		}
		defer db.Close()
		cli.db = db.DB
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		repos, err := database.Setup(ctx, conf)
		cancel()
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		defer func() { _ = repos.Close(context.Background()) }()

		mailSvc := emailsvc.NewConsoleService(conf, logger)
		cli.usrRepo = repos.Users
		cli.svcs = shared.NewServices(conf, repos, mailSvc, uploadsvc.NewDiskStore(conf), logger)
	}

	// start CLI
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		logger.Sync()
		os.Exit(1)
	}
}
