package logsvc

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/rollbar/rollbar-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/trezcool/academia/core"
)

func TestRollbarLogger_LocalFields(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	conf := &appConf
	l := NewRollbarLogger(zap.New(obs), conf)
	l.Enable(false)

	l.Warn("payment rejection email failed",
		errors.New("smtp down"),
		map[string]interface{}{"enrollment_id": "e1"},
		appPerson,
	)
	l.Info("payment status updated", map[string]interface{}{"payment_status": "FULLY_PAID"})

	entries := logs.All()
	require.Len(t, entries, 2)

	warn := entries[0]
	assert.Equal(t, zapcore.WarnLevel, warn.Level)
	assert.Equal(t, "payment rejection email failed", warn.Message)
	fields := warn.ContextMap()
	assert.Contains(t, fields["error"], "smtp down")
	assert.Equal(t, "e1", fields["enrollment_id"])
	assert.Equal(t, "admin-1", fields["person_id"])

	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, "FULLY_PAID", entries[1].ContextMap()["payment_status"])
}

func TestRollbarLogger_Prepare(t *testing.T) {
	l := NewRollbarLogger(zap.NewNop(), &appConf)
	l.Enable(false)

	err := errors.New("boom")
	args := l.prepare("msg", []interface{}{err, appPerson, core.Person{ID: "other"}})
	require.Len(t, args, 3)
	assert.Equal(t, "msg", args[0])
	assert.Equal(t, err, args[1])

	ctx, ok := args[2].(context.Context)
	require.True(t, ok)
	p, ok := rollbar.PersonFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, &rollbar.Person{Id: "admin-1", Username: "admin", Email: "admin@example.com"}, p)

	assert.Equal(t, []interface{}{"msg"}, l.prepare("msg", []interface{}{core.Person{}}))
}

func TestRollbarLogger_PrepareConcurrent(t *testing.T) {
	l := NewRollbarLogger(zap.NewNop(), &appConf)
	l.Enable(false)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("admin-%d", i)
			args := l.prepare("msg", []interface{}{core.Person{ID: id}})
			ctx, ok := args[len(args)-1].(context.Context)
			if assert.True(t, ok) {
				p, ok := rollbar.PersonFromContext(ctx)
				if assert.True(t, ok) {
					assert.Equal(t, id, p.Id)
				}
			}
		}(i)
	}
	wg.Wait()
}

var (
	appConf   = core.Config{AppName: "Academia", Env: "TEST", Build: "test"}
	appPerson = core.Person{ID: "admin-1", Username: "admin", Email: "admin@example.com"}
)
