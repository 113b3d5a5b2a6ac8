package errors

const (
	contextKeyOperation = "operation"
	contextKeyInterface = "interface"
	contextKeyCommand   = "command"
	contextKeyDevice    = "device"
	contextKeyActual    = "actual"
)

// ErrorContext carries structured metadata attached to a categorized error.
type ErrorContext struct {
	Operation string
	Interface string
	Command   string
	Device    string
	Actual    string
	Extra     map[string]any
}

// Merge overlays the non-empty fields of other onto a copy of ec.
// Extra maps are merged with other taking precedence.
func (ec ErrorContext) Merge(other ErrorContext) ErrorContext {
	result := ec

	for _, f := range []struct {
		dst *string
		src string
	}{
		{&result.Operation, other.Operation},
		{&result.Interface, other.Interface},
		{&result.Command, other.Command},
		{&result.Device, other.Device},
		{&result.Actual, other.Actual},
	} {
		if f.src != "" {
			*f.dst = f.src
		}
	}

	if len(other.Extra) > 0 {
		merged := make(map[string]any, len(ec.Extra)+len(other.Extra))
		for k, v := range ec.Extra {
			merged[k] = v
		}
		for k, v := range other.Extra {
			merged[k] = v
		}
		result.Extra = merged
	}

	return result
}

// ToMap flattens the context for structured logging.
func (ec ErrorContext) ToMap() map[string]any {
	result := make(map[string]any)

	add := func(key, value string) {
		if value != "" {
			result[key] = value
		}
	}
	add(contextKeyOperation, ec.Operation)
	add(contextKeyInterface, ec.Interface)
	add(contextKeyCommand, ec.Command)
	add(contextKeyDevice, ec.Device)
	add(contextKeyActual, ec.Actual)

	for k, v := range ec.Extra {
		result[k] = v
	}

	return result
}
