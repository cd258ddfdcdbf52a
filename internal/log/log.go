// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package log

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

var timeNow = time.Now

func (l *Logger) log(logLevel Level, s string, args ...interface{}) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if *l.settings.level > logLevel {
		return
	}

	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}

	var line string
	switch *l.settings.format {
	case FormatJSON:
		line = l.jsonLine(logLevel, s)
	default:
		line = l.consoleLine(logLevel, s)
	}

	_, _ = io.WriteString(l.settings.writer, line+"\n")
}

const callerDepth = 4

func (l *Logger) consoleLine(logLevel Level, s string) string {
	var levelString string
	if isTerminal(l.settings.writer) {
		levelString = logLevel.ColouredString()
	} else {
		levelString = logLevel.String()
	}
	const levelPad = 8
	if padding := levelPad - len(logLevel.String()); padding > 0 {
		levelString += strings.Repeat(" ", padding)
	}

	line := timeNow().Format(time.RFC3339) + " " + levelString + " " + s

	if caller := getCallerString(l.settings.caller, callerDepth); caller != "" {
		line += "\t" + caller
	}

	if len(l.settings.context) > 0 {
		keyValues := make([]string, len(l.settings.context))
		for i, kv := range l.settings.context {
			keyValues[i] = kv.key + "=" + strings.Join(kv.values, ",")
		}
		line += "\t" + strings.Join(keyValues, " ")
	}
	return line
}

// jsonLine renders the log as a JSON object. Context keys are added as
// fields and never override the time, level, message and caller fields.
func (l *Logger) jsonLine(logLevel Level, s string) string {
	fields := make(map[string]interface{}, 4+len(l.settings.context))
	for _, kv := range l.settings.context {
		fields[kv.key] = strings.Join(kv.values, ",")
	}
	fields["time"] = timeNow().Format(time.RFC3339)
	fields["level"] = strings.ToLower(logLevel.String())
	fields["message"] = s
	if caller := getCallerString(l.settings.caller, callerDepth); caller != "" {
		fields["caller"] = caller
	}

	b, err := json.Marshal(fields)
	if err != nil {
		return fmt.Sprintf(`{"level":"error","message":%q}`, "encoding log: "+err.Error())
	}
	return string(b)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Trace logs with the trce level.
func (l *Logger) Trace(s string) { l.log(Trace, s) }

// Debug logs with the dbug level.
func (l *Logger) Debug(s string) { l.log(Debug, s) }

// Info logs with the info level.
func (l *Logger) Info(s string) { l.log(Info, s) }

// Warn logs with the warn level.
func (l *Logger) Warn(s string) { l.log(Warn, s) }

// Error logs with the eror level.
func (l *Logger) Error(s string) { l.log(Error, s) }

// Critical logs with the crit level.
func (l *Logger) Critical(s string) { l.log(Critical, s) }

// Tracef formats and logs at the trce level.
func (l *Logger) Tracef(format string, args ...interface{}) {
	l.log(Trace, format, args...)
}

// Debugf formats and logs at the dbug level.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(Debug, format, args...)
}

// Infof formats and logs at the info level.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(Info, format, args...)
}

// Warnf formats and logs at the warn level.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(Warn, format, args...)
}

// Errorf formats and logs at the eror level.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(Error, format, args...)
}

// Criticalf formats and logs at the crit level.
func (l *Logger) Criticalf(format string, args ...interface{}) {
	l.log(Critical, format, args...)
}
