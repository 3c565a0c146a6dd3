package types

// ErrorRecord is a classified installer error in the shape the host shell
// expects: an error id, a category, and the target resource. The original
// record fields are carried so callers can build localized messages.
type ErrorRecord struct {
	// FullyQualifiedErrorID is always "InstallerError" for engine diagnostics.
	FullyQualifiedErrorID string `msgpack:"fully_qualified_error_id" json:"fully_qualified_error_id" yaml:"fully_qualified_error_id"`
	// Category is the classified category.
	Category Category `msgpack:"category" json:"category" yaml:"category"`
	// TargetName is the resource key, empty when none applies.
	TargetName string `msgpack:"target_name,omitempty" json:"target_name,omitempty" yaml:"target_name,omitempty"`
	// Code is the diagnostic code from field 1, or zero when absent.
	Code int `msgpack:"code,omitempty" json:"code,omitempty" yaml:"code,omitempty"`
	// Message is the formatted message text.
	Message string `msgpack:"message" json:"message" yaml:"message"`
	// Fields holds every record field including the template at index 0.
	Fields []string `msgpack:"fields,omitempty" json:"fields,omitempty" yaml:"fields,omitempty"`
}
