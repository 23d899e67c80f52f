package core

import (
	"fmt"
	"os"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
)

var (
	crashMu     sync.Mutex
	crashReset  func()
	crashLogger = zap.NewNop()

	// exit is swapped in tests
	exit = os.Exit
)

// SetCrashHandler installs the hook that restores the display before a crash report is printed
// Frontends register their screen teardown here (tcell Fini, window close)
func SetCrashHandler(reset func()) {
	crashMu.Lock()
	defer crashMu.Unlock()
	crashReset = reset
}

// SetCrashLogger routes crash reports to the structured log as well as stderr
func SetCrashLogger(l *zap.Logger) {
	crashMu.Lock()
	defer crashMu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	crashLogger = l
}

// HandleCrash is the unified panic handler that resets the display and prints the stack trace
func HandleCrash(r any) {
	if r == nil {
		return
	}

	crashMu.Lock()
	reset, logger := crashReset, crashLogger
	crashMu.Unlock()

	stack := debug.Stack()
	if reset != nil {
		reset()
	}

	logger.Error("crash", zap.Any("panic", r), zap.ByteString("stack", stack))
	_ = logger.Sync()

	// \r\n keeps the report readable if raw mode survived the reset
	fmt.Fprintf(os.Stderr, "\r\n\x1b[31mPAWFIELD CRASHED: %v\x1b[0m\r\n", r)
	fmt.Fprintf(os.Stderr, "Stack Trace:\r\n%s\r\n", stack)
	os.Stderr.Sync()

	exit(1)
}

// Go runs a function in a new goroutine with panic recovery.
// Use this instead of the 'go' keyword to ensure display cleanup on crash.
func Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				HandleCrash(r)
			}
		}()
		fn()
	}()
}
