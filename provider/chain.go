package provider

import (
	"context"

	"github.com/cockroachdb/errors"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/obsidianwallet/obsidian-wallet-connect/common"
)

const (
	MethodRequestAccounts = "eth_requestAccounts"
	MethodAccounts        = "eth_accounts"
	MethodChainID         = "eth_chainId"
	MethodSwitchChain     = "wallet_switchEthereumChain"
	MethodAddChain        = "wallet_addEthereumChain"
)

type SwitchChainParams struct {
	ChainID string `json:"chainId"`
}

// AddChainParams is the EIP-3085 wallet_addEthereumChain parameter object.
type AddChainParams struct {
	ChainID           string                `json:"chainId"`
	ChainName         string                `json:"chainName"`
	NativeCurrency    common.NativeCurrency `json:"nativeCurrency"`
	RPCURLs           []string              `json:"rpcUrls"`
	BlockExplorerURLs []string              `json:"blockExplorerUrls,omitempty"`
}

func NewAddChainParams(spec common.ChainSpec) AddChainParams {
	return AddChainParams{
		ChainID:           spec.ChainIDHex(),
		ChainName:         spec.Name,
		NativeCurrency:    spec.NativeCurrency,
		RPCURLs:           spec.RPCURLs,
		BlockExplorerURLs: spec.BlockExplorerURLs,
	}
}

func SwitchChain(ctx context.Context, p Provider, spec common.ChainSpec) error {
	return p.Request(ctx, nil, MethodSwitchChain, SwitchChainParams{ChainID: spec.ChainIDHex()})
}

func AddChain(ctx context.Context, p Provider, spec common.ChainSpec) error {
	return p.Request(ctx, nil, MethodAddChain, NewAddChainParams(spec))
}

// RequestAccounts asks the wallet to expose its accounts, prompting the user
// if needed.
func RequestAccounts(ctx context.Context, p Provider) ([]ethcommon.Address, error) {
	var accounts []ethcommon.Address
	if err := p.Request(ctx, &accounts, MethodRequestAccounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// Accounts returns the accounts already exposed to us without prompting.
func Accounts(ctx context.Context, p Provider) ([]ethcommon.Address, error) {
	var accounts []ethcommon.Address
	if err := p.Request(ctx, &accounts, MethodAccounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func ChainID(ctx context.Context, p Provider) (uint64, error) {
	var id hexutil.Uint64
	if err := p.Request(ctx, &id, MethodChainID); err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, errors.New("provider returned chain id 0")
	}
	return uint64(id), nil
}
