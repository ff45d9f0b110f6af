package errors

import (
	"sync"
	"sync/atomic"
)

// ErrorHook is called for every built EnhancedError while reporting is active.
type ErrorHook func(ee *EnhancedError)

var (
	hooksMu    sync.RWMutex
	errorHooks []ErrorHook

	// hasActiveReporting keeps Build on the fast path when nothing listens.
	hasActiveReporting atomic.Bool
)

// AddErrorHook registers a hook that receives every EnhancedError built afterwards.
func AddErrorHook(hook ErrorHook) {
	if hook == nil {
		return
	}
	hooksMu.Lock()
	defer hooksMu.Unlock()
	errorHooks = append(errorHooks, hook)
	updateReportingState()
}

// ClearErrorHooks removes all registered hooks.
func ClearErrorHooks() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	errorHooks = nil
	updateReportingState()
}

// updateReportingState must be called with hooksMu held.
func updateReportingState() {
	reporter := GetTelemetryReporter()
	active := len(errorHooks) > 0 || (reporter != nil && reporter.IsEnabled())
	hasActiveReporting.Store(active)
}

func report(ee *EnhancedError) {
	hooksMu.RLock()
	hooks := errorHooks
	hooksMu.RUnlock()

	for _, hook := range hooks {
		hook(ee)
	}
	reportToTelemetry(ee)
}
