package logging

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const systemName = "planning-service"

// Logger is the global Logrus instance shared by every package of the service.
var Logger = logrus.New()
var once sync.Once

// CustomFormatter writes one line per entry in the Date/Time/Event Source/Event Type/Event ID layout.
type CustomFormatter struct {
	SystemName string
}

func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := entry.Buffer
	if b == nil {
		b = &bytes.Buffer{}
	}

	localTime := entry.Time.In(timezoneCEST())
	fmt.Fprintf(b, "Date: %s, Time: %s, ", localTime.Format("2006-01-02"), localTime.Format("15:04:05"))
	fmt.Fprintf(b, "Event Source: %s, ", f.SystemName)
	fmt.Fprintf(b, "Event Type: %s, ", strings.ToUpper(entry.Level.String()))
	fmt.Fprintf(b, "Event ID: %s, ", uuid.New().String())
	fmt.Fprintf(b, "Message: %s", entry.Message)

	for _, key := range sortedKeys(entry.Data) {
		fmt.Fprintf(b, ", %s: %v", key, entry.Data[key])
	}
	if entry.HasCaller() {
		fmt.Fprintf(b, ", Location: %s:%d in %s", entry.Caller.File, entry.Caller.Line, entry.Caller.Function)
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func sortedKeys(data logrus.Fields) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func timezoneCEST() *time.Location {
	return time.FixedZone("CEST", 2*60*60)
}

// InitLogger points the global logger at a rotating file. LOG_FILE overrides
// the default location.
func InitLogger() {
	once.Do(func() {
		filename := os.Getenv("LOG_FILE")
		if filename == "" {
			filename = "/app/logs/planning.log"
		}
		if err := os.MkdirAll(filepath.Dir(filename), 0700); err != nil {
			logrus.Fatalf("Event ID: LOG_DIR_CREATE_FAILED, Description: Failed to create log directory: %v", err)
		}

		logFile := &lumberjack.Logger{
			Filename:   filename,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}

		Logger.SetOutput(logFile)
		Logger.SetFormatter(&CustomFormatter{SystemName: systemName})
		Logger.SetLevel(logrus.InfoLevel)
		Logger.SetReportCaller(true)

		Logger.Infof("Event ID: LOGGER_INITIALIZED, Description: Logger initialized for %s, output to: %s", systemName, logFile.Filename)
	})
}
