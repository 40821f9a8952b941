package walletmanager

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"

	"github.com/obsidianwallet/obsidian-wallet-connect/provider"
)

// ErrNoAccounts is returned when the wallet exposes no account to us.
var ErrNoAccounts = errors.New("wallet exposed no accounts")

// Connector is a wallet backend the manager can connect through.
type Connector interface {
	ID() string
	Name() string
	// Connect asks the wallet for access. A non-nil chainID makes the wallet
	// switch to that chain; nil keeps whatever chain it is on.
	Connect(ctx context.Context, chainID *uint64) (Account, error)
	// Account reads the current account and chain without prompting the user.
	Account(ctx context.Context) (Account, error)
	Disconnect(ctx context.Context) error
}

// InjectedConnector drives a wallet that speaks the EIP-1193 request API, such
// as a browser extension bridged onto a provider endpoint.
type InjectedConnector struct {
	id       string
	name     string
	provider provider.Provider
	logger   zerolog.Logger
}

func NewInjectedConnector(id, name string, p provider.Provider, logger zerolog.Logger) *InjectedConnector {
	return &InjectedConnector{
		id:       id,
		name:     name,
		provider: p,
		logger:   logger.With().Str("module", "connector").Str("connector", id).Logger(),
	}
}

func (c *InjectedConnector) ID() string {
	return c.id
}

func (c *InjectedConnector) Name() string {
	return c.name
}

func (c *InjectedConnector) Connect(ctx context.Context, chainID *uint64) (Account, error) {
	accounts, err := provider.RequestAccounts(ctx, c.provider)
	if err != nil {
		return Account{}, err
	}
	if len(accounts) == 0 {
		return Account{}, ErrNoAccounts
	}
	current, err := provider.ChainID(ctx, c.provider)
	if err != nil {
		return Account{}, err
	}
	if chainID != nil && *chainID != current {
		c.logger.Debug().Uint64("from", current).Uint64("to", *chainID).Msg("switching chain on connect")
		params := provider.SwitchChainParams{ChainID: hexutil.EncodeUint64(*chainID)}
		if err := c.provider.Request(ctx, nil, provider.MethodSwitchChain, params); err != nil {
			return Account{}, err
		}
		current = *chainID
	}
	return Account{Address: accounts[0], ChainID: current}, nil
}

func (c *InjectedConnector) Account(ctx context.Context) (Account, error) {
	accounts, err := provider.Accounts(ctx, c.provider)
	if err != nil {
		return Account{}, err
	}
	if len(accounts) == 0 {
		return Account{}, ErrNoAccounts
	}
	chainID, err := provider.ChainID(ctx, c.provider)
	if err != nil {
		return Account{}, err
	}
	return Account{Address: accounts[0], ChainID: chainID}, nil
}

// Disconnect revokes the account permission when the wallet supports it.
// Wallets without wallet_revokePermissions simply stay authorized.
func (c *InjectedConnector) Disconnect(ctx context.Context) error {
	params := map[string]interface{}{"eth_accounts": struct{}{}}
	err := c.provider.Request(ctx, nil, "wallet_revokePermissions", params)
	if err == nil {
		return nil
	}
	if code, ok := provider.ErrorCode(err); ok && (code == provider.CodeUnsupportedMethod || code == provider.CodeMethodNotFound) {
		c.logger.Debug().Msg("wallet does not support revoking permissions")
		return nil
	}
	return err
}
