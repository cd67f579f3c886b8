package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/kevin07696/billing-orchestrator/internal/config"
	"github.com/kevin07696/billing-orchestrator/internal/db/migrations"
)

const dialect = "postgres"

var (
	flags = flag.NewFlagSet("migrate", flag.ExitOnError)
	dir   = flags.String("dir", "", "directory with migration files (default: embedded)")
)

func main() {
	flags.Usage = usage
	_ = flags.Parse(os.Args[1:])

	args := flags.Args()
	if len(args) < 1 {
		flags.Usage()
		return
	}
	command := args[0]

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	dbCfg, err := config.DatabaseFromEnv()
	if err != nil {
		logger.Fatal("Failed to load database config", zap.Error(err))
	}

	db, err := sql.Open("pgx", dbCfg.DSN())
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	goose.SetLogger(gooseLogger{logger: logger})
	if err := goose.SetDialect(dialect); err != nil {
		logger.Fatal("Failed to set dialect", zap.Error(err))
	}

	migrationsDir := *dir
	if migrationsDir == "" {
		goose.SetBaseFS(migrations.FS)
		migrationsDir = "."
	}

	if err := goose.Run(command, db, migrationsDir, args[1:]...); err != nil {
		logger.Fatal("Migration failed", zap.String("command", command), zap.Error(err))
	}
	logger.Info("Migration complete", zap.String("command", command), zap.String("database", dbCfg.Database))
}

func usage() {
	fmt.Fprint(os.Stderr, `migrate applies the payment ledger schema with goose.

usage: migrate [-dir DIR] <command> [args]

  up | up-by-one | up-to N     apply pending migrations
  down | down-to N | reset     roll back
  redo                         roll back and reapply the latest
  status | version             inspect the schema

The connection comes from DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME
and DB_SSL_MODE, read from the environment or a .env file.
`)
}
