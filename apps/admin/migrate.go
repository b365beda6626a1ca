package main

import (
	"database/sql"

	"github.com/pressly/goose/v3"

	appfs "github.com/jkamau/darasa/fs"
)

var gooseRunFunc = run // mockable

func run(command string, db *sql.DB, dir string, args ...string) error {
	goose.SetBaseFS(appfs.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Run(command, db, dir, args...)
}

func (cli *commandLine) migrate(args []string) error {
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(args[0], cli.db.DB, "migrations", arguments...)
}
