package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/student"
	logsvc "github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/database"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	mongorepos "github.com/trezcool/academia/storage/database/mongo"
	sqlxrepos "github.com/trezcool/academia/storage/database/sqlx"
)

var logger *zap.SugaredLogger

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger = zl.Named("admin").Sugar()
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	cli := commandLine{}

	// set up store
	var repo student.Repository
	switch conf.Store {
	case core.StoreMongo:
		client, db, err := mongorepos.Connect(ctx, conf.Mongo)
		errAndDie(err)
		defer func() { _ = client.Disconnect(ctx) }()
		repo = mongorepos.NewStudentRepository(db)
	case core.StoreMemory:
		repo = inmemdb.NewStudentRepository(inmemdb.Open())
	default:
		db, err := database.Open(ctx, conf)
		errAndDie(err)
		defer func() { _ = db.Close() }()
		cli.db = db.DB
		repo = sqlxrepos.NewStudentRepository(db)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	student.InitValidators(validate, translator)
	cli.studentSvc = student.NewService(repo, validate, translator)

	// start CLI
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Errorw("command failed", "error", err)
		}
		_ = logger.Sync()
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatalw("setting up store", "error", err)
	}
}
