package session

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/obsidianwallet/obsidian-wallet-connect/walletmanager"
)

var (
	ErrConnectorNotFound   = errors.New("connector not found")
	ErrConnectFailed       = errors.New("failed to connect wallet")
	ErrProviderUnavailable = errors.New("wallet provider is not available")
	ErrChainSwitchFailed   = errors.New("failed to switch chain")
	ErrChainAddFailed      = errors.New("failed to add chain")
	ErrDisconnectFailed    = errors.New("failed to disconnect wallet")
)

// ConnectorNotFoundError lists what was available when the wanted connector
// could not be found.
type ConnectorNotFoundError struct {
	WantID    string
	WantName  string
	Available []walletmanager.ConnectorInfo
}

func (e *ConnectorNotFoundError) Error() string {
	ids := make([]string, 0, len(e.Available))
	for _, c := range e.Available {
		ids = append(ids, fmt.Sprintf("%s(%s)", c.ID, c.Name))
	}
	return fmt.Sprintf("%s connector not found in available connectors [%s]", e.WantName, strings.Join(ids, ", "))
}

// fail wraps cause with msg and marks it as kind, so callers can match on
// either.
func fail(kind error, cause error, msg string) error {
	return errors.Mark(errors.Wrap(cause, msg), kind)
}
