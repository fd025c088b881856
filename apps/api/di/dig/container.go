package dig_container

import (
	"context"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"
	"go.uber.org/zap"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/student"
	emailsvc "github.com/trezcool/academia/services/email"
	locksvc "github.com/trezcool/academia/services/lock"
	logsvc "github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/database"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	mongorepos "github.com/trezcool/academia/storage/database/mongo"
	sqlxrepos "github.com/trezcool/academia/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// Closers collects the resources to release on shutdown, in reverse order.
	Closers struct {
		fns []func() error
	}

	storeResult struct {
		dig.Out
		Store       enrollment.Store
		StudentRepo student.Repository
	}

	serverParams struct {
		dig.In
		Conf          *core.Config
		Logger        core.Logger
		Validate      *validator.Validate
		Translator    ut.Translator
		StudentSvc    *student.Service
		EnrollmentSvc *enrollment.Service
	}
)

func (c *Closers) add(fn func() error) {
	c.fns = append(c.fns, fn)
}

// Close releases every resource, returning the first error.
func (c *Closers) Close() error {
	var first error
	for i := len(c.fns) - 1; i >= 0; i-- {
		if err := c.fns[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func newZapLogger(conf *core.Config) (*zap.Logger, error) {
	return logsvc.NewZapLogger(conf)
}

func newLogger(zl *zap.Logger, conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(zl.Named("api"), conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(zl *zap.Logger, conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(zl.Named("db"), conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newStore(conf *core.Config, loggerParam DBLoggerParam, closers *Closers) storeResult {
	ctx := context.Background()
	logger := loggerParam.Logger

	switch conf.Store {
	case core.StoreMemory:
		db := inmemdb.Open()
		return storeResult{Store: inmemdb.NewEnrollmentStore(db), StudentRepo: inmemdb.NewStudentRepository(db)}

	case core.StoreMongo:
		client, db, err := mongorepos.Connect(ctx, conf.Mongo)
		if err != nil {
			logger.Fatal("setting up mongo", err)
		}
		closers.add(func() error { return client.Disconnect(context.Background()) })
		if err = mongorepos.EnsureIndexes(ctx, db); err != nil {
			logger.Fatal("creating mongo indexes", err)
		}
		return storeResult{Store: mongorepos.NewEnrollmentStore(db), StudentRepo: mongorepos.NewStudentRepository(db)}

	default:
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			logger.Fatal("creating database", err)
		}
		db, err := database.Open(ctx, conf)
		if err != nil {
			logger.Fatal("opening database", err)
		}
		closers.add(db.Close)
		if err = database.Migrate(ctx, db.DB); err != nil {
			logger.Fatal("migrating database", err)
		}
		return storeResult{Store: sqlxrepos.NewEnrollmentStore(db), StudentRepo: sqlxrepos.NewStudentRepository(db)}
	}
}

func newEmailService(conf *core.Config, zl *zap.Logger) core.EmailService {
	switch conf.EmailBackend {
	case core.EmailSendgrid:
		return emailsvc.NewSendgridService(conf)
	case core.EmailSMTP:
		return emailsvc.NewSMTPService(conf)
	default:
		return emailsvc.NewConsoleService(conf, zl.Named("email"))
	}
}

// newLocker returns nil when no redis is configured: the store lock alone then guards updates.
func newLocker(conf *core.Config, logger core.Logger, closers *Closers) (enrollment.Locker, error) {
	if conf.Redis == "" {
		return nil, nil
	}
	client, err := locksvc.Connect(context.Background(), conf.Redis)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to redis")
	}
	closers.add(client.Close)
	return locksvc.NewRedisLocker(client, logger), nil
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	student.InitValidators(validate, translator)
	return validate
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(&echoapi.Options{
		Conf:          p.Conf,
		Logger:        p.Logger,
		Validate:      p.Validate,
		Translator:    p.Translator,
		StudentSvc:    p.StudentSvc,
		EnrollmentSvc: p.EnrollmentSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(func() *Closers { return new(Closers) }))
	must(c.Provide(newZapLogger))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStore))
	must(c.Provide(newEmailService))
	must(c.Provide(newLocker))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(student.NewService))
	must(c.Provide(enrollment.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
