package main

import (
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/trezcool/pathway/apps/di"
	"github.com/trezcool/pathway/core"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	cli := &commandLine{out: os.Stdout}
	cli.setup = func() error {
		conf := core.NewConfig()
		c := di.New(conf, di.Options{SkipMigrations: true, LogOutput: os.Stderr})
		if err := di.Init(c, false); err != nil {
			return err
		}
		return c.Invoke(func(db *sqlx.DB, svcs di.Services) {
			cli.db = db.DB
			cli.svcs = svcs
		})
	}

	if err := cli.run(os.Args[1:]); err != nil {
		logger.WithError(err).Error("admin command failed")
		os.Exit(1)
	}
}
