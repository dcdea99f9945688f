// internal/docker/interface.go
package docker

import (
	"github.com/rusenback/nodewatch/internal/authlog"
	"github.com/rusenback/nodewatch/internal/host"
)

// Client can stand in for a process as the tracked target, and for the
// journal as the auth log source when sshd runs in a container.
var (
	_ host.TargetProbe = (*Client)(nil)
	_ authlog.Source   = (*Client)(nil)
)
