package approval

import (
	"context"
	"time"

	"github.com/entrhq/formfill/pkg/types"
)

// waitForResponse waits for the user's response, the timeout, or ctx.
func (m *Manager) waitForResponse(ctx context.Context, info types.ConsentInfo, responseChannel chan Response) (bool, bool) {
	timeout := time.NewTimer(m.timeout)
	defer timeout.Stop()

	select {
	case <-ctx.Done():
		m.emitEvent(types.NewConsentDeclinedEvent(info))
		return false, false

	case <-timeout.C:
		m.emitEvent(types.NewConsentTimeoutEvent(info))
		return false, true

	case response, ok := <-responseChannel:
		if ok && response.Granted {
			m.emitEvent(types.NewConsentGrantedEvent(info))
			return true, false
		}
		m.emitEvent(types.NewConsentDeclinedEvent(info))
		return false, false
	}
}
