package utils

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the application logger. It is usable before InitLogger runs.
var Log = logrus.New()

// InitLogger ตั้ง format เป็น JSON และระดับ log จาก LOG_LEVEL
func InitLogger(level string) {
	Log.SetOutput(os.Stdout)
	Log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
		Log.WithField("level", level).Warn("unknown LOG_LEVEL, using info")
	}
	Log.SetLevel(lvl)
}
