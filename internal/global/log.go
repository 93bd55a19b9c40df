// Package global holds the small cross-cutting pieces every other package in
// CDRGo depends on: log levels/titles, the fatal-error type, and the
// primitive string/number helpers the parser and resolvers lean on.
package global

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

type LogLevel uint8

const (
	LLInformation LogLevel = iota
	LLWarning
	LLError
)

func (ll LogLevel) String() string {
	switch ll {
	case LLInformation:
		return "INFO"
	case LLWarning:
		return "WARN"
	case LLError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

type LogTitle uint8

const (
	LTSystem LogTitle = iota
	LTConfiguration
	LTParser
	LTCache
	LTDirection
	LTFinalizer
	LTStreaming
	LTWebserver
	LTBatch
)

func (lt LogTitle) String() string {
	switch lt {
	case LTSystem:
		return "System"
	case LTConfiguration:
		return "Configuration"
	case LTParser:
		return "Parser"
	case LTCache:
		return "LegCache"
	case LTDirection:
		return "Direction"
	case LTFinalizer:
		return "Finalizer"
	case LTStreaming:
		return "Streaming"
	case LTWebserver:
		return "Webserver"
	case LTBatch:
		return "Batch"
	default:
		return "Unknown"
	}
}

var (
	logMu     sync.Mutex
	logWriter io.Writer = os.Stdout
	logger              = log.New(logWriter, "", log.LstdFlags)
)

// ConfigureLogFile points the logger at a rotating file, keeping stdout as a
// fallback destination is the caller's choice (see cmd/cdrgo).
func ConfigureLogFile(path string, maxSizeMB, maxBackups, maxAgeDays int) {
	logMu.Lock()
	defer logMu.Unlock()
	logWriter = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
	logger = log.New(logWriter, "", log.LstdFlags)
}

func LogInfo(lt LogTitle, msg string) {
	LogHandler(LLInformation, lt, msg)
}

func LogWarning(lt LogTitle, msg string) {
	LogHandler(LLWarning, lt, msg)
}

func LogError(lt LogTitle, msg string) {
	LogHandler(LLError, lt, msg)
}

func LogHandler(ll LogLevel, lt LogTitle, msg string) {
	logMu.Lock()
	defer logMu.Unlock()
	logger.Printf("\t%s\t%s\t%s\n", ll.String(), lt.String(), msg)
}

func LogInfof(lt LogTitle, format string, args ...any) {
	LogInfo(lt, fmt.Sprintf(format, args...))
}

func LogWarningf(lt LogTitle, format string, args ...any) {
	LogWarning(lt, fmt.Sprintf(format, args...))
}

func LogErrorf(lt LogTitle, format string, args ...any) {
	LogError(lt, fmt.Sprintf(format, args...))
}
