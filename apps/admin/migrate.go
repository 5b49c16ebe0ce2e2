package main

import (
	"github.com/trezcool/educryption/storage/database"
)

var gooseRunFunc = database.RunMigrations // mockable

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errMigrateUnsupported
	}
	return gooseRunFunc(cli.db, args[0], args[1:]...)
}
