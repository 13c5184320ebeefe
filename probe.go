package mongocache

import (
	"fmt"

	pr "github.com/unkn0wn-root/mongocache/provider"
)

// Probe is the result of checking a backend client library once at
// startup. New refuses to build an adapter without one.
type Probe struct {
	Backend string
	Version string
}

// ProbeDialer checks the client library behind d. Dialers that implement
// provider.Prober are asked directly; any other dialer is accepted as is.
func ProbeDialer(d pr.Dialer) (*Probe, error) {
	if d == nil {
		return nil, &ExtensionUnavailableError{Reason: "no dialer configured"}
	}
	p, ok := d.(pr.Prober)
	if !ok {
		return &Probe{Backend: fmt.Sprintf("%T", d), Version: "unknown"}, nil
	}
	lib, version, err := p.Probe()
	if err != nil {
		return nil, &ExtensionUnavailableError{Backend: lib, Version: version, Reason: err.Error()}
	}
	return &Probe{Backend: lib, Version: version}, nil
}
