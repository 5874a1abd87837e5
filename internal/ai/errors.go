package ai

import "fmt"

// ConfigurationError reports a missing or invalid setting that prevents
// the AI subsystem from starting.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("ai: %s is not set", e.Setting)
}

// UpstreamError is returned when the completion endpoint answers with a
// non-success status.
type UpstreamError struct {
	Provider string
	Status   int
	Body     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s error %d: %s", e.Provider, e.Status, e.Body)
}

// TransportError wraps a network-level failure reaching the endpoint.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// errorCode classifies err for observer events.
func errorCode(err error) string {
	switch err.(type) {
	case nil:
		return ""
	case *UpstreamError:
		return "upstream"
	case *TransportError:
		return "transport"
	case *ConfigurationError:
		return "config"
	default:
		return "unknown"
	}
}
