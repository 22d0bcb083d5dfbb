package app

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger devolve o logger JSON usado por todos os componentes.
func NewLogger(level logrus.Level) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	log.SetLevel(level)
	return log
}
