// Package logsvc implements core.Logger with logrus, reporting to Rollbar when a token is configured.
package logsvc

import (
	"io"
	"os"

	"github.com/rollbar/rollbar-go"
	rollbarerrors "github.com/rollbar/rollbar-go/errors"
	"github.com/sirupsen/logrus"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/user"
)

type RollbarLogger struct {
	log     *logrus.Logger
	rollbar bool
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(out io.Writer, conf *core.Config) *RollbarLogger {
	if out == nil {
		out = os.Stdout
	}
	lg := logrus.New()
	lg.SetOutput(out)
	if conf.Debug {
		lg.SetLevel(logrus.DebugLevel)
		lg.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		lg.SetLevel(logrus.InfoLevel)
		lg.SetFormatter(&logrus.JSONFormatter{})
	}

	enabled := conf.RollbarToken != "" && !conf.Debug && !conf.TestMode
	rollbar.SetEnabled(enabled)
	if enabled {
		rollbar.SetToken(conf.RollbarToken)
		rollbar.SetEnvironment(conf.Env)
		rollbar.SetServerHost(conf.Server.Host)
		rollbar.SetCodeVersion(conf.Build)
		rollbar.SetStackTracer(rollbarerrors.StackTracer)
	}
	return &RollbarLogger{log: lg, rollbar: enabled}
}

// Close waits for pending Rollbar reports.
func (l *RollbarLogger) Close() {
	if l.rollbar {
		rollbar.Wait()
	}
}

// entry splits args into logrus fields and Rollbar args.
// Expected args: error, map[string]interface{}, user.User.
func (l *RollbarLogger) entry(msg string, args []interface{}) (*logrus.Entry, []interface{}) {
	e := logrus.NewEntry(l.log)
	rbArgs := make([]interface{}, 0, len(args)+1)
	rbArgs = append(rbArgs, msg)

	var usrSet bool
	for _, arg := range args {
		switch v := arg.(type) {
		case user.User:
			if usrSet {
				continue
			}
			usrSet = true
			e = e.WithField("user_id", v.ID)
			if l.rollbar {
				rollbar.SetPerson(v.ID, v.Username, v.Email)
			}
		case error:
			e = e.WithError(v)
			rbArgs = append(rbArgs, v)
		case map[string]interface{}:
			e = e.WithFields(v)
			rbArgs = append(rbArgs, v)
		default:
			rbArgs = append(rbArgs, v)
		}
	}
	if !usrSet && l.rollbar {
		rollbar.ClearPerson()
	}
	return e, rbArgs
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	e, _ := l.entry(msg, args)
	e.Debug(msg)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	e, rb := l.entry(msg, args)
	if l.rollbar {
		rollbar.Info(rb...)
	}
	e.Info(msg)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	e, rb := l.entry(msg, args)
	if l.rollbar {
		rollbar.Warning(rb...)
	}
	e.Warn(msg)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	e, rb := l.entry(msg, args)
	if l.rollbar {
		rollbar.Error(rb...)
	}
	e.Error(msg)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	e, rb := l.entry(msg, args)
	if l.rollbar {
		rollbar.Critical(rb...)
		rollbar.Wait()
	}
	e.Fatal(msg)
}
