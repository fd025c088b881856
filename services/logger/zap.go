package logsvc

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/trezcool/academia/core"
)

// NewZapLogger builds the local logger: colored development output in DEV and TEST, JSON elsewhere.
func NewZapLogger(conf *core.Config) (*zap.Logger, error) {
	var config zap.Config

	if conf.Debug || conf.TestMode {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}
	config.OutputPaths = []string{"stdout"}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("app", conf.AppName), zap.String("env", conf.Env)), nil
}
