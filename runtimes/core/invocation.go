package core

import "context"

// InvokeMethodRequest describes a service-to-service call routed through the
// sidecar.
type InvokeMethodRequest struct {
	AppID       string
	Method      string
	Verb        string
	Data        []byte
	ContentType string
	QueryString string
	Metadata    Metadata
}

// InvokeMethodResponse is the payload returned by the target application.
type InvokeMethodResponse struct {
	Data        []byte
	ContentType string
	Metadata    Metadata
}

// Invocation is the service invocation capability.
type Invocation interface {
	// InvokeMethod calls method on the application registered as appID.
	// Verb defaults to POST when empty.
	InvokeMethod(ctx context.Context, appID, method, verb string, data []byte) ([]byte, error)
	InvokeMethodWithRequest(ctx context.Context, req *InvokeMethodRequest) (*InvokeMethodResponse, error)

	// InvokeJSON marshals in, invokes the method and unmarshals the
	// response into out (which may be nil to discard it).
	InvokeJSON(ctx context.Context, appID, method string, in, out any) error
}
