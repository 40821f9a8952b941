package provider

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"
)

// RPCProvider forwards requests to a provider endpoint over HTTP or WebSocket.
type RPCProvider struct {
	url    string
	client *rpc.Client
	logger zerolog.Logger
}

// Dial connects to the provider at rawurl. The scheme selects the transport:
// http(s) or ws(s).
func Dial(ctx context.Context, rawurl string, logger zerolog.Logger) (*RPCProvider, error) {
	client, err := rpc.DialContext(ctx, rawurl)
	if err != nil {
		return nil, errors.Wrapf(err, "dial provider %s", rawurl)
	}
	return &RPCProvider{
		url:    rawurl,
		client: client,
		logger: logger.With().Str("module", "provider").Logger(),
	}, nil
}

func (p *RPCProvider) Request(ctx context.Context, result interface{}, method string, params ...interface{}) error {
	p.logger.Debug().Str("method", method).Msg("provider request")
	if err := p.client.CallContext(ctx, result, method, params...); err != nil {
		return errors.Wrap(err, method)
	}
	return nil
}

func (p *RPCProvider) URL() string {
	return p.url
}

func (p *RPCProvider) Close() {
	p.client.Close()
}
