package utils

import (
	"io"
	"log"
)

type Logger struct {
	debug       bool
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
	fatalLogger *log.Logger
	debugLogger *log.Logger
}

func NewLogger(debug bool, out io.Writer) *Logger {
	flags := log.Ldate | log.Ltime
	return &Logger{
		debug:       debug,
		infoLogger:  log.New(out, "INFO: ", flags),
		warnLogger:  log.New(out, "WARN: ", flags),
		errorLogger: log.New(out, "ERROR: ", flags),
		fatalLogger: log.New(out, "FATAL: ", flags),
		debugLogger: log.New(out, "DEBUG: ", flags),
	}
}

func (l *Logger) Info(v ...interface{}) {
	l.infoLogger.Println(v...)
}

func (l *Logger) Warn(v ...interface{}) {
	l.warnLogger.Println(v...)
}

func (l *Logger) Error(v ...interface{}) {
	l.errorLogger.Println(v...)
}

func (l *Logger) Fatal(v ...interface{}) {
	l.fatalLogger.Fatalln(v...)
}

func (l *Logger) Debug(v ...interface{}) {
	if l.debug {
		l.debugLogger.Println(v...)
	}
}
