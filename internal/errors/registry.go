package errors

// Error codes used across the catalog.
const (
	CodeNotFound         = "C001"
	CodeTransport        = "C002"
	CodeDecode           = "C003"
	CodeFilterKey        = "C020"
	CodeFilterValue      = "C021"
	CodeSuperseded       = "C040"
	CodeBadURL           = "C041"
	CodeBadMessage       = "C060"
	CodeUnknownMessage   = "C061"
	CodeConfigUnreadable = "C080"
	CodeConfigInvalid    = "C081"
	CodeConfigValue      = "C082"
	CodePublish          = "C090"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Fetch Errors (C001-C019)
	// ============================================

	CodeNotFound: {
		Category: CategoryFetch,
		Message:  "Product not found",
		Detail:   "The product API has no item with this identifier.",
	},
	CodeTransport: {
		Category: CategoryFetch,
		Message:  "Product API request failed",
		Detail:   "The product API returned a non-success status or could not be reached.",
	},
	CodeDecode: {
		Category: CategoryFetch,
		Message:  "Product API response could not be decoded",
		Detail:   "The response body is not the JSON shape the catalog expects.",
	},

	// ============================================
	// Validation Errors (C020-C039)
	// ============================================

	CodeFilterKey: {
		Category: CategoryValidation,
		Message:  "Filter key is not configured",
		Detail:   "Only keys registered with the filter controller can be written to the URL.",
	},
	CodeFilterValue: {
		Category: CategoryValidation,
		Message:  "Filter value is not allowed",
		Detail:   "The value is not a member of the filter's allow-list.",
	},

	// ============================================
	// Navigation Errors (C040-C059)
	// ============================================

	CodeSuperseded: {
		Category: CategoryNavigation,
		Message:  "Navigation superseded",
		Detail:   "A later navigation started before this one committed; its result was discarded.",
	},
	CodeBadURL: {
		Category: CategoryNavigation,
		Message:  "Invalid navigation URL",
		Detail:   "The URL could not be parsed into a path and query.",
	},

	// ============================================
	// Protocol Errors (C060-C079)
	// ============================================

	CodeBadMessage: {
		Category: CategoryProtocol,
		Message:  "Invalid live message",
		Detail:   "The websocket frame could not be decoded as a live session message.",
	},
	CodeUnknownMessage: {
		Category: CategoryProtocol,
		Message:  "Unknown live message type",
		Detail:   "The live session does not handle this message type.",
	},

	// ============================================
	// Configuration Errors (C080-C089)
	// ============================================

	CodeConfigUnreadable: {
		Category: CategoryConfig,
		Message:  "Configuration file unreadable",
		Detail:   "The configuration file exists but could not be read.",
	},
	CodeConfigInvalid: {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The configuration file is malformed.",
	},
	CodeConfigValue: {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration value failed validation.",
	},

	// ============================================
	// CLI Errors (C090-C099)
	// ============================================

	CodePublish: {
		Category: CategoryCLI,
		Message:  "Publish failed",
		Detail:   "One or more pre-rendered pages could not be uploaded.",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
