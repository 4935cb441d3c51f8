package errors

import (
	"errors"
	"fmt"
)

// ErrorKind represents different categories of backup errors
type ErrorKind string

const (
	// KindInvalidFile indicates a blob that is too short or structurally
	// unparsable before decryption is attempted
	KindInvalidFile ErrorKind = "invalid_file"
	// KindWrongPassword indicates an authentication failure during
	// decryption; an incorrect password and a tampered blob are
	// cryptographically indistinguishable and both map here
	KindWrongPassword ErrorKind = "wrong_password"
	// KindDeserialization indicates decrypted bytes that are not a valid
	// snapshot encoding
	KindDeserialization ErrorKind = "deserialization"
	// KindUnsupportedVersion indicates a snapshot whose version exceeds
	// what this build understands
	KindUnsupportedVersion ErrorKind = "unsupported_version"
	// KindSerialization indicates the encode step could not produce bytes
	KindSerialization ErrorKind = "serialization"
	// KindStore indicates a failure in the live entity store
	KindStore ErrorKind = "store"
	// KindStorage indicates a failure in the archive storage backend
	KindStorage ErrorKind = "storage"
	// KindConfiguration indicates invalid or missing configuration
	KindConfiguration ErrorKind = "configuration"
)

// BackupError is the typed error surfaced by every layer of the backup
// engine. Callers branch on Kind; Cause preserves the underlying error
// for wrapping and logging.
type BackupError struct {
	Kind    ErrorKind
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *BackupError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause error
func (e *BackupError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *BackupError) WithContext(key string, value interface{}) *BackupError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new BackupError
func New(kind ErrorKind, message string, cause error) *BackupError {
	return &BackupError{
		Kind:    kind,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Common error constructors

func NewInvalidFileError(message string, cause error) *BackupError {
	return New(KindInvalidFile, message, cause)
}

func NewWrongPasswordError(message string, cause error) *BackupError {
	return New(KindWrongPassword, message, cause)
}

func NewDeserializationError(message string, cause error) *BackupError {
	return New(KindDeserialization, message, cause)
}

func NewUnsupportedVersionError(message string, cause error) *BackupError {
	return New(KindUnsupportedVersion, message, cause)
}

func NewSerializationError(message string, cause error) *BackupError {
	return New(KindSerialization, message, cause)
}

func NewStoreError(message string, cause error) *BackupError {
	return New(KindStore, message, cause)
}

func NewStorageError(message string, cause error) *BackupError {
	return New(KindStorage, message, cause)
}

func NewConfigurationError(message string, cause error) *BackupError {
	return New(KindConfiguration, message, cause)
}

// KindOf returns the kind of err if it is (or wraps) a BackupError, or an
// empty kind otherwise
func KindOf(err error) ErrorKind {
	var be *BackupError
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}

// IsKind reports whether err is (or wraps) a BackupError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// Kind predicates used by callers to branch on failure class

func IsInvalidFile(err error) bool {
	return IsKind(err, KindInvalidFile)
}

func IsWrongPassword(err error) bool {
	return IsKind(err, KindWrongPassword)
}

func IsDeserialization(err error) bool {
	return IsKind(err, KindDeserialization)
}

func IsUnsupportedVersion(err error) bool {
	return IsKind(err, KindUnsupportedVersion)
}

func IsSerialization(err error) bool {
	return IsKind(err, KindSerialization)
}

func IsStore(err error) bool {
	return IsKind(err, KindStore)
}

func IsStorage(err error) bool {
	return IsKind(err, KindStorage)
}

func IsConfiguration(err error) bool {
	return IsKind(err, KindConfiguration)
}
