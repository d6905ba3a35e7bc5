package bedrockllm

import (
	"fmt"
)

// Severity indicates how serious a warning is
type Severity string

const (
	SeverityInfo    Severity = "info"    // Informational (might be expected)
	SeverityWarning Severity = "warning" // Potentially problematic
	SeverityError   Severity = "error"   // Likely to cause API failure
)

// WarningCode is a machine-readable identifier for warnings
type WarningCode string

const (
	WarningCodeModelUnknown         WarningCode = "MODEL_UNKNOWN"
	WarningCodeStreamingUnsupported WarningCode = "STREAMING_UNSUPPORTED"
	WarningCodeConverseUnsupported  WarningCode = "CONVERSE_UNSUPPORTED"
	WarningCodeInvokeFormatMismatch WarningCode = "INVOKE_FORMAT_MISMATCH"
	WarningCodeMaxTokensAboveLimit  WarningCode = "MAX_TOKENS_ABOVE_LIMIT"
)

// Operation names one of the runtime calls.
type Operation string

const (
	OperationInvoke   Operation = "InvokeModel"
	OperationConverse Operation = "Converse"
)

// Call describes an outgoing call for the warning rules.
type Call struct {
	ModelID   string
	Operation Operation
	Streaming bool
	MaxTokens int
}

// Warning represents a potential issue that might cause API failure.
// Warnings are informational: requests are never blocked on them.
type Warning struct {
	Code     WarningCode // Machine-readable code
	Field    string      // Field that might cause issues
	Value    any         // The potentially problematic value
	Message  string      // Human-readable warning
	Severity Severity    // How serious this warning is
}

// Rule inspects a call against the catalog.
type Rule func(catalog *ModelCatalog, call Call) []Warning

// DefaultRules are the rules CheckCall applies.
var DefaultRules = []Rule{
	checkModelKnown,
	checkStreaming,
	checkOperation,
	checkMaxTokens,
}

// CheckCall returns advisory warnings for a call.
func CheckCall(catalog *ModelCatalog, call Call) []Warning {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	var warnings []Warning
	for _, rule := range DefaultRules {
		warnings = append(warnings, rule(catalog, call)...)
	}
	return warnings
}

func checkModelKnown(catalog *ModelCatalog, call Call) []Warning {
	if _, ok := catalog.Lookup(call.ModelID); ok {
		return nil
	}
	return []Warning{{
		Code:     WarningCodeModelUnknown,
		Field:    "model_id",
		Value:    call.ModelID,
		Message:  fmt.Sprintf("Model %s not found in catalog (catalog may be outdated)", call.ModelID),
		Severity: SeverityInfo,
	}}
}

func checkStreaming(catalog *ModelCatalog, call Call) []Warning {
	if !call.Streaming || catalog.SupportsStreaming(call.ModelID) {
		return nil
	}
	// Unknown models are reported by checkModelKnown.
	if _, ok := catalog.Lookup(call.ModelID); !ok {
		return nil
	}
	return []Warning{{
		Code:     WarningCodeStreamingUnsupported,
		Field:    "model_id",
		Value:    call.ModelID,
		Message:  fmt.Sprintf("Model %s does not support response streaming", call.ModelID),
		Severity: SeverityError,
	}}
}

func checkOperation(catalog *ModelCatalog, call Call) []Warning {
	m, ok := catalog.Lookup(call.ModelID)
	if !ok {
		return nil
	}
	switch call.Operation {
	case OperationConverse:
		if !m.ConverseSupported {
			return []Warning{{
				Code:     WarningCodeConverseUnsupported,
				Field:    "model_id",
				Value:    call.ModelID,
				Message:  fmt.Sprintf("Model %s does not support the Converse API", call.ModelID),
				Severity: SeverityError,
			}}
		}
	case OperationInvoke:
		if m.InvokeFormat != "" && m.InvokeFormat != InvokeFormatLlama {
			return []Warning{{
				Code:     WarningCodeInvokeFormatMismatch,
				Field:    "model_id",
				Value:    m.InvokeFormat,
				Message:  fmt.Sprintf("Model %s expects the %s body format, completion requests use the llama format", call.ModelID, m.InvokeFormat),
				Severity: SeverityError,
			}}
		}
	}
	return nil
}

func checkMaxTokens(catalog *ModelCatalog, call Call) []Warning {
	m, ok := catalog.Lookup(call.ModelID)
	if !ok || m.MaxOutputTokens == 0 || call.MaxTokens <= m.MaxOutputTokens {
		return nil
	}
	return []Warning{{
		Code:     WarningCodeMaxTokensAboveLimit,
		Field:    "max_tokens",
		Value:    call.MaxTokens,
		Message:  fmt.Sprintf("Requested %d tokens, model %s generates at most %d", call.MaxTokens, call.ModelID, m.MaxOutputTokens),
		Severity: SeverityWarning,
	}}
}

// FilterWarningsBySeverity returns warnings matching the specified severities.
func FilterWarningsBySeverity(warnings []Warning, severities ...Severity) []Warning {
	filtered := make([]Warning, 0)
	severityMap := make(map[Severity]bool)
	for _, s := range severities {
		severityMap[s] = true
	}

	for _, w := range warnings {
		if severityMap[w.Severity] {
			filtered = append(filtered, w)
		}
	}
	return filtered
}
