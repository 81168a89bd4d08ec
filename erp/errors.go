package erp

import "errors"

// ErrEndpointRequired is returned when neither the message nor the forwarder names an endpoint.
var ErrEndpointRequired = errors.New("stockrelay erp: endpoint is required")
