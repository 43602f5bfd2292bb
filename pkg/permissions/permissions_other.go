//go:build !darwin

package permissions

// Check 非 macOS 系统不需要额外授权
func Check() *Status {
	return newStatus(true, true)
}

// RequestAccessibility 非 macOS 系统无操作
func RequestAccessibility() bool {
	return true
}

// OpenSettings 非 macOS 系统无操作
func OpenSettings(*Status) {}

// Reset 非 macOS 系统无操作
func Reset() error {
	return nil
}
