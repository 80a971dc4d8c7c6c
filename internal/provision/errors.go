package provision

import "errors"

// ErrAddressExists is returned by Create when the IP address is already
// persisted for the tenant.
var ErrAddressExists = errors.New("ip address already provisioned")
