package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Level represents the logging level
type Level int

const (
	LevelInfo Level = iota
	LevelDebug
	LevelWarn
	LevelError
)

// String returns the string representation of the level
func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a level name, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger represents a component-specific logger
type Logger struct {
	component string
	level     Level
	enabled   map[Level]bool
	mu        sync.RWMutex
}

// Configuration holds the logging configuration
type Configuration struct {
	DefaultLevel    Level
	ComponentLevels map[string]Level
	EnableDebug     bool
}

var (
	globalConfig = &Configuration{
		DefaultLevel:    LevelInfo,
		ComponentLevels: make(map[string]Level),
	}
	configMu sync.RWMutex

	// Pre-configured component loggers
	WizardLogger     *Logger
	ConnectionLogger *Logger
	ConfigLogger     *Logger
	RegistryLogger   *Logger
	RPCLogger        *Logger

	registered []*Logger

	consoleLogger = log.New(os.Stderr, "", 0)
)

func init() {
	loadEnvironmentConfig()

	WizardLogger = NewLogger("wizard")
	ConnectionLogger = NewLogger("connection")
	ConfigLogger = NewLogger("config")
	RegistryLogger = NewLogger("registry")
	RPCLogger = NewLogger("rpc")
}

// NewLogger creates a new component-specific logger
func NewLogger(component string) *Logger {
	configMu.Lock()
	defer configMu.Unlock()

	logger := &Logger{
		component: component,
		enabled:   make(map[Level]bool),
	}
	logger.applyConfig()
	registered = append(registered, logger)

	return logger
}

// applyConfig expects configMu to be held by the caller.
func (l *Logger) applyConfig() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.level = globalConfig.DefaultLevel
	if componentLevel, exists := globalConfig.ComponentLevels[l.component]; exists {
		l.level = componentLevel
	}

	for level := range l.enabled {
		delete(l.enabled, level)
	}

	l.enabled[LevelWarn] = true
	l.enabled[LevelError] = true

	if l.level == LevelInfo || l.level == LevelDebug {
		l.enabled[LevelInfo] = true
	}
	if globalConfig.EnableDebug || l.level == LevelDebug {
		l.enabled[LevelDebug] = true
	}
}

// Configure updates the global logging configuration
func Configure(config *Configuration) {
	if config == nil {
		return
	}

	configMu.Lock()
	defer configMu.Unlock()

	globalConfig.DefaultLevel = config.DefaultLevel
	globalConfig.EnableDebug = config.EnableDebug
	for component, level := range config.ComponentLevels {
		globalConfig.ComponentLevels[component] = level
	}

	updateAllLoggers()
}

// SetOutput redirects all component loggers.
func SetOutput(w io.Writer) {
	consoleLogger.SetOutput(w)
}

func loadEnvironmentConfig() {
	if debug := os.Getenv("DEBUG"); debug == "1" || strings.ToLower(debug) == "true" {
		globalConfig.EnableDebug = true
	}

	if debugComponents := os.Getenv("DEBUG_COMPONENTS"); debugComponents != "" {
		for _, component := range strings.Split(debugComponents, ",") {
			component = strings.TrimSpace(component)
			if component != "" {
				globalConfig.ComponentLevels[component] = LevelDebug
			}
		}
	}

	if level := os.Getenv("DBWIZARD_LOG_LEVEL"); level != "" {
		globalConfig.DefaultLevel = ParseLevel(level)
		if globalConfig.DefaultLevel == LevelDebug {
			globalConfig.EnableDebug = true
		}
	}
}

// updateAllLoggers expects configMu to be held by the caller.
func updateAllLoggers() {
	for _, logger := range registered {
		logger.applyConfig()
	}
}

func (l *Logger) isEnabled(level Level) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.enabled[level]
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if !l.isEnabled(level) {
		return
	}
	message := fmt.Sprintf(format, sanitizeArgs(args)...)
	consoleLogger.Println(formatLogLine(level, l.component, message))
}

// Infof logs an info message (printf-style).
func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

// Debugf logs a debug message (printf-style).
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

// Warnf logs a warning message (printf-style).
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

// Errorf logs an error message (printf-style).
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

// InfoWithFields logs an info message with structured fields
func (l *Logger) InfoWithFields(message string, fields ...interface{}) {
	l.logWithFields(LevelInfo, message, fields...)
}

// DebugWithFields logs a debug message with structured fields
func (l *Logger) DebugWithFields(message string, fields ...interface{}) {
	l.logWithFields(LevelDebug, message, fields...)
}

// WarnWithFields logs a warning message with structured fields
func (l *Logger) WarnWithFields(message string, fields ...interface{}) {
	l.logWithFields(LevelWarn, message, fields...)
}

// ErrorWithFields logs an error message with structured fields
func (l *Logger) ErrorWithFields(message string, fields ...interface{}) {
	l.logWithFields(LevelError, message, fields...)
}

func (l *Logger) logWithFields(level Level, message string, fields ...interface{}) {
	if !l.isEnabled(level) {
		return
	}

	var fieldPairs []string
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		value := sanitizeFieldValue(key, fields[i+1])
		fieldPairs = append(fieldPairs, fmt.Sprintf("%s=%v", key, value))
	}

	if len(fieldPairs) > 0 {
		message = fmt.Sprintf("%s %s", message, strings.Join(fieldPairs, " "))
	}

	consoleLogger.Println(formatLogLine(level, l.component, message))
}

// IsDebugEnabled returns true if debug logging is enabled for this logger
func (l *Logger) IsDebugEnabled() bool {
	return l.isEnabled(LevelDebug)
}

// GetLevel returns the current log level for this logger
func (l *Logger) GetLevel() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

// GetComponent returns the component name for this logger
func (l *Logger) GetComponent() string {
	return l.component
}

// EnableDebug enables debug logging globally
func EnableDebug() {
	configMu.Lock()
	defer configMu.Unlock()
	globalConfig.EnableDebug = true
	updateAllLoggers()
}

// DisableDebug disables debug logging globally and clears component overrides
func DisableDebug() {
	configMu.Lock()
	defer configMu.Unlock()
	globalConfig.EnableDebug = false
	globalConfig.ComponentLevels = make(map[string]Level)
	updateAllLoggers()
}

// SetLogLevel sets the log level for a specific component
func SetLogLevel(component string, level Level) {
	configMu.Lock()
	defer configMu.Unlock()
	globalConfig.ComponentLevels[component] = level
	updateAllLoggers()
}

var levelColors = map[Level]*color.Color{
	LevelDebug: color.New(color.FgHiBlack),
	LevelInfo:  color.New(color.FgCyan),
	LevelWarn:  color.New(color.FgYellow),
	LevelError: color.New(color.FgRed, color.Bold),
}

func formatLogLine(level Level, component string, message string) string {
	if component == "" {
		component = "logger"
	}
	tag := fmt.Sprintf("[%s]", level.String())
	if c, ok := levelColors[level]; ok && !color.NoColor {
		tag = c.Sprint(tag)
	}
	return fmt.Sprintf("%s [%s] %s", tag, component, message)
}

// sensitiveKeyTokens are compared without separators so AccessKey,
// access_key and access-key all match.
var sensitiveKeyTokens = []string{
	"password",
	"pwd",
	"secret",
	"token",
	"credential",
	"auth",
	"accesstoken",
	"accesskey",
	"apikey",
	"secretkey",
	"encryptionkey",
}

func sanitizeArgs(args []interface{}) []interface{} {
	if len(args) == 0 {
		return args
	}
	sanitized := make([]interface{}, len(args))
	for i, arg := range args {
		if str, ok := arg.(string); ok {
			sanitized[i] = sanitizeStringInput(str)
		} else {
			sanitized[i] = arg
		}
	}
	return sanitized
}

func sanitizeFieldValue(key string, value interface{}) interface{} {
	if shouldRedactKey(key) {
		return "<redacted>"
	}
	if str, ok := value.(string); ok {
		return sanitizeStringInput(str)
	}
	return value
}

func shouldRedactKey(key string) bool {
	normalized := strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToLower(key))
	for _, token := range sensitiveKeyTokens {
		if strings.Contains(normalized, token) {
			return true
		}
	}
	return false
}

// sanitizeStringInput cuts a value at the first control character so a
// single field cannot forge extra log lines.
func sanitizeStringInput(input string) string {
	for idx, r := range input {
		if r == '\n' || r == '\r' || r == '\t' || r == 0 {
			return input[:idx]
		}
	}
	return input
}
