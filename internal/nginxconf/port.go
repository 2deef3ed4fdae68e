package nginxconf

import (
	"net"

	pikuerrors "github.com/piku-host/piku/internal/errors"
)

// AllocatePort binds to ":0" to ask the kernel for a free TCP port, then
// releases it immediately (spec.md §4.7 step 1). There is an inherent TOCTOU
// gap between release and the worker's own bind; piku accepts it, same as
// the reference implementation.
func AllocatePort() (int, error) {
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, pikuerrors.ErrNoFreePort
	}
	defer l.Close()
	addr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		return 0, pikuerrors.ErrNoFreePort
	}
	return addr.Port, nil
}
