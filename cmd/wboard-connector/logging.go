package main

import (
	"log"

	"github.com/sirupsen/logrus"
)

func newStdErrorLog(logger *logrus.Logger) *log.Logger {
	return log.New(logger.WriterLevel(logrus.ErrorLevel), "", 0)
}
