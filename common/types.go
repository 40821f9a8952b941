package common

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	ErrInvalidChain    = errors.New("invalid chain spec")
	ErrNetworkNotFound = errors.New("network not found")
	ErrNetworkExists   = errors.New("network already exists")
	ErrNetworkInUse    = errors.New("network is currently in use")
)

type Config struct {
	ServingAddress string
	ProviderURL    string
	DataDir        string
	UseNetwork     string
	Networks       []ChainSpec
	Connector      ConnectorTarget
	WatchInterval  time.Duration
}

// ConnectorTarget identifies the connector the session connects with. A
// connector matches when either its id or its name is equal.
type ConnectorTarget struct {
	ID   string
	Name string
}

type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// ChainSpec describes a network that can be switched to or registered with a
// wallet provider.
type ChainSpec struct {
	ChainID           uint64         `json:"chainId"`
	Name              string         `json:"name"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls"`
}

// ChainIDHex returns the chain id in the 0x-prefixed form providers expect.
func (c ChainSpec) ChainIDHex() string {
	return hexutil.EncodeUint64(c.ChainID)
}

func (c ChainSpec) Validate() error {
	if c.ChainID == 0 {
		return errInvalidChain("chain id is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return errInvalidChain("name is required")
	}
	if len(c.RPCURLs) == 0 {
		return errInvalidChain("at least one rpc url is required")
	}
	return nil
}

func errInvalidChain(reason string) error {
	return errors.Mark(errors.Newf("invalid chain spec: %s", reason), ErrInvalidChain)
}
