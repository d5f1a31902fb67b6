package utils

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
)

// --- Sentinel Errors for Categorization ---
var (
	ErrTransport        = errors.New("transport error")           // DNS, connect, TLS, timeout; wraps the client error
	ErrNonOKStatus      = errors.New("non-200 HTTP status")       // Wraps the status code
	ErrRequestCreation  = errors.New("failed to create HTTP request")
	ErrResponseBodyRead = errors.New("failed to read response body")
	ErrParsing          = errors.New("parsing error")    // Wraps specific parsing error (HTML, URL, XML)
	ErrFilesystem       = errors.New("filesystem error") // Wraps os errors
	ErrDatabase         = errors.New("database error")   // Wraps badger errors
	ErrConfigValidation = errors.New("configuration validation error")
	ErrInvalidSeed      = errors.New("invalid seed URL")
)

// CategorizeError maps an error to a predefined category string for logging.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	// Context errors first: a cancelled fetch is wrapped in ErrTransport too
	if errors.Is(err, context.Canceled) {
		return "System_ContextCanceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Network_Timeout"
	}

	switch {
	case errors.Is(err, ErrTransport):
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "Network_Timeout"
		}
		lowerErrMsg := strings.ToLower(err.Error())
		switch {
		case strings.Contains(lowerErrMsg, "timeout"):
			return "Network_Timeout"
		case strings.Contains(lowerErrMsg, "no such host"):
			return "Network_DNSLookup"
		case strings.Contains(lowerErrMsg, "connection refused"):
			return "Network_ConnectionRefused"
		case strings.Contains(lowerErrMsg, "tls") || strings.Contains(lowerErrMsg, "certificate"):
			return "Network_TLS"
		case strings.Contains(lowerErrMsg, "reset by peer"):
			return "Network_ConnectionReset"
		}
		return "Network_Other"
	case errors.Is(err, ErrNonOKStatus):
		errMsg := err.Error()
		if strings.Contains(errMsg, "status 404") {
			return "HTTP_404"
		}
		if strings.Contains(errMsg, "status 5") {
			return "HTTP_5xx"
		}
		return "HTTP_OtherStatus"
	case errors.Is(err, ErrRequestCreation):
		return "Internal_RequestCreation"
	case errors.Is(err, ErrResponseBodyRead):
		return "Network_BodyRead"
	case errors.Is(err, ErrParsing):
		errMsg := err.Error()
		if strings.Contains(errMsg, "URL") {
			return "Content_ParsingURL"
		}
		if strings.Contains(errMsg, "HTML") {
			return "Content_ParsingHTML"
		}
		if strings.Contains(errMsg, "XML") {
			return "Content_ParsingXML"
		}
		return "Content_ParsingOther"
	case errors.Is(err, ErrFilesystem):
		if errors.Is(err, os.ErrPermission) {
			return "Filesystem_Permission"
		}
		if errors.Is(err, os.ErrNotExist) {
			return "Filesystem_NotExist"
		}
		return "Filesystem_Other"
	case errors.Is(err, ErrDatabase):
		return "Database_Other"
	case errors.Is(err, ErrConfigValidation):
		return "Config_Validation"
	case errors.Is(err, ErrInvalidSeed):
		return "Input_InvalidSeed"
	}

	return "Unknown"
}
