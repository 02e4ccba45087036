package transport

import (
	"fmt"

	"wasdeploy/internal/api"
)

// Options contains the settings for creating a transport. Only the
// section matching the requested kind is read.
type Options struct {
	Local *LocalOptions
	REST  *RESTOptions
	SOAP  *SOAPOptions
}

// NewTransportFromType creates the transport implementation for kind.
//
// Supported kinds:
//   - "local-jmx": attaches to a server JVM on this machine
//   - "rest": the REST connector of a remote Liberty server
//   - "soap": the SOAP connector of a WebSphere traditional server
func NewTransportFromType(kind api.TransportKind, opts Options) (Transport, error) {
	switch kind {
	case api.TransportLocal:
		if opts.Local == nil {
			return nil, fmt.Errorf("local options are required for %s type", kind)
		}
		if opts.Local.FindPID == nil && opts.Local.PID == "" {
			return nil, fmt.Errorf("a pid or a pid finder is required for %s type", kind)
		}
		return NewLocalTransport(*opts.Local), nil

	case api.TransportREST:
		if opts.REST == nil || opts.REST.Host == "" {
			return nil, fmt.Errorf("host is required for %s type", kind)
		}
		return NewRESTTransport(*opts.REST), nil

	case api.TransportSOAP:
		if opts.SOAP == nil || opts.SOAP.Host == "" {
			return nil, fmt.Errorf("host is required for %s type", kind)
		}
		return NewSOAPTransport(*opts.SOAP), nil

	default:
		return nil, fmt.Errorf("unsupported transport type: %s (supported: %s, %s, %s)",
			kind, api.TransportLocal, api.TransportREST, api.TransportSOAP)
	}
}
