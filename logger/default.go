package logger

// defLogger is the process-wide default used by the package-level helpers
// and handed out by GetLogger to components built without an explicit
// logger option.
var defLogger = newSlog(InfoLevel, false)

// Debug logs msg at debug level on the default logger.
func Debug(msg string, keysAndValues ...any) {
	defLogger.Debug(msg, keysAndValues...)
}

// Info logs msg at info level on the default logger.
func Info(msg string, keysAndValues ...any) {
	defLogger.Info(msg, keysAndValues...)
}

// Warn logs msg at warn level on the default logger.
func Warn(msg string, keysAndValues ...any) {
	defLogger.Warn(msg, keysAndValues...)
}

// Error logs msg at error level on the default logger.
func Error(msg string, keysAndValues ...any) {
	defLogger.Error(msg, keysAndValues...)
}

// Fatal logs msg at error level on the default logger, then exits the
// process.
func Fatal(msg string, keysAndValues ...any) {
	defLogger.Fatal(msg, keysAndValues...)
}

// SetLevel adjusts the minimum level of the default logger.
func SetLevel(level Level) {
	defLogger.SetLevel(level)
}

// GetLogger returns the default logger.
func GetLogger() Logger {
	return defLogger
}

// With returns a child of the default logger carrying the given key/value
// pairs on every record.
func With(keyValues ...any) Logger {
	return defLogger.With(keyValues...)
}
