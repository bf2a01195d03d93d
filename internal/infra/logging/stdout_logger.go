package logging

import (
	"encoding/json"
	"io"
	"maps"
	"os"
	"time"
)

// StdoutLogger writes one JSON object per line. Out defaults to os.Stdout.
type StdoutLogger struct {
	Out io.Writer
}

func (l *StdoutLogger) log(level, msg string, fields map[string]any) {
	entry := map[string]any{
		"level": level,
		"msg":   msg,
		"time":  time.Now().UTC().Format(time.RFC3339),
	}
	maps.Copy(entry, fields)

	out := l.Out
	if out == nil {
		out = os.Stdout
	}

	b, _ := json.Marshal(entry)
	out.Write(append(b, '\n'))
}

func (l *StdoutLogger) Info(msg string, fields map[string]any) {
	l.log("INFO", msg, fields)
}

func (l *StdoutLogger) Error(msg string, fields map[string]any) {
	l.log("ERROR", msg, fields)
}
