package logs

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

var (
	mu       sync.Mutex
	logger   = log.New(os.Stdout, "", 0)
	minLevel = 1
)

var severities = map[string]int{
	"DEBUG": 0,
	"INFO":  1,
	"WARN":  2,
	"ERROR": 3,
	"FATAL": 4,
}

// SetLevel drops entries below the given severity. Unknown levels mean INFO.
func SetLevel(level string) {
	rank, ok := severities[strings.ToUpper(strings.TrimSpace(level))]
	if !ok {
		rank = severities["INFO"]
	}
	mu.Lock()
	minLevel = rank
	mu.Unlock()
}

// SetOutput redirects log lines, mostly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	logger.SetOutput(w)
	mu.Unlock()
}

func LogJSON(level, message string, fields map[string]interface{}) {
	level = strings.ToUpper(level)
	mu.Lock()
	defer mu.Unlock()
	if rank, ok := severities[level]; ok && rank < minLevel {
		return
	}

	logEntry := map[string]interface{}{
		"severity": level, // "DEBUG", "INFO", "WARN", "ERROR" & "FATAL"
		"message":  message,
		"time":     time.Now().Format(time.RFC3339),
	}
	for k, v := range fields {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		logEntry[k] = v
	}
	jsonLog, _ := json.Marshal(logEntry)
	logger.Println(string(jsonLog))
}
