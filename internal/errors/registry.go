package errors

// Registered codes.
const (
	CodeUnresolvedPath        = "E001"
	CodeInvalidDirectiveValue = "E002"
	CodeHandlerThrow          = "E003"
	CodeShapeMismatch         = "E004"
	CodeBudgetExceeded        = "E005"
	CodeAsyncRejected         = "E006"
	CodeHydrationTarget       = "E040"
	CodeProjectExists         = "E140"
	CodeConfigNotFound        = "E141"
	CodeConfigInvalid         = "E142"
	CodeTemplateNotFound      = "E145"
	CodeSourceFailed          = "E150"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Runtime Errors (E001-E009)
	// ============================================

	CodeUnresolvedPath: {
		Category:   CategoryDirective,
		Message:    "Unresolved expression path",
		Detail:     "The expression names a namespace or member with no registered action, effect or state leaf. The directive is skipped.",
		Suggestion: "Register the namespace before hydrating, or check the path for typos.",
	},
	CodeInvalidDirectiveValue: {
		Category:   CategoryDirective,
		Message:    "Invalid directive value",
		Detail:     "The directive's attribute value could not be parsed. The element's subtree is not hydrated; sibling subtrees are.",
		Suggestion: "Context directives take a JSON object literal; other directives take a namespace::path expression.",
	},
	CodeHandlerThrow: {
		Category: CategoryDirective,
		Message:  "Handler failed",
		Detail:   "An action, effect or init handler returned an error or panicked. Other directives keep running and reactive effects stay subscribed.",
	},
	CodeShapeMismatch: {
		Category:   CategoryDirective,
		Message:    "Context shape mismatch",
		Detail:     "A context declares a nested object where an enclosing context holds a plain value at the same path, or the reverse.",
		Suggestion: "Declare the path with the same shape as the enclosing context, or rename it.",
	},
	CodeBudgetExceeded: {
		Category:   CategoryRuntime,
		Message:    "Effect run budget exceeded",
		Detail:     "Effects kept re-triggering each other within one loop turn. The remaining runs were dropped.",
		Suggestion: "Look for an effect that writes a value it also reads.",
	},
	CodeAsyncRejected: {
		Category: CategoryRuntime,
		Message:  "Async handler rejected",
		Detail:   "An effect or init handler returned a promise that was rejected.",
	},

	// ============================================
	// Hydration Errors (E040-E049)
	// ============================================

	CodeHydrationTarget: {
		Category:   CategoryHydration,
		Message:    "Hydration target missing",
		Detail:     "The document has no element the runtime needs, such as the body a portal mounts into.",
		Suggestion: "Hydrate a complete HTML document, not a fragment.",
	},

	// ============================================
	// Config and CLI Errors (E141-E159)
	// ============================================

	CodeProjectExists: {
		Category:   CategoryCLI,
		Message:    "Project already initialized",
		Detail:     "The directory already holds an interactivity.json.",
		Suggestion: "Pass --force to overwrite the scaffold files.",
	},
	CodeConfigNotFound: {
		Category:   CategoryConfig,
		Message:    "Configuration file not found",
		Detail:     "No interactivity.json was found in the project directory.",
		Suggestion: "Run the command from the project root or pass --config.",
	},
	CodeConfigInvalid: {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "interactivity.json could not be parsed or failed validation.",
	},
	CodeTemplateNotFound: {
		Category: CategoryCLI,
		Message:  "Template not found",
	},
	CodeSourceFailed: {
		Category:   CategoryCLI,
		Message:    "Page source failed",
		Detail:     "The page could not be read from its file or object store location.",
		Suggestion: "Check the path, or for s3:// URLs the bucket, key, region and credentials.",
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

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
