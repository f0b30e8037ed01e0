package api

import (
	"io"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/sirupsen/logrus"
	"github.com/wboard/connector"
)

// logFormatter routes gorilla access logs through logrus.
func logFormatter(logger logrus.FieldLogger) handlers.LogFormatter {
	return func(_ io.Writer, params handlers.LogFormatterParams) {
		logger.WithFields(logrus.Fields{
			"method":     params.Request.Method,
			"path":       params.URL.Path,
			"status":     params.StatusCode,
			"size":       params.Size,
			"request_id": connector.RequestIDFromContext(params.Request.Context()),
		}).Debug("handled request")
	}
}

type recoveryLogger struct {
	logger logrus.FieldLogger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error(v...)
}

func withAccessLog(logger logrus.FieldLogger, h http.Handler) http.Handler {
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{logger: logger}))(h)
	return handlers.CustomLoggingHandler(io.Discard, h, logFormatter(logger))
}
