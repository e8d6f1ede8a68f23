package network

import "fmt"

// Context is the resolved network a run deploys to.
type Context struct {
	Network    Network
	Type       NetworkType
	Parameters Parameters
}

// IsEphemeral reports whether the network is a disposable development network.
func (c Context) IsEphemeral() bool {
	return c.Type == NetworkTypeEphemeral
}

// Confirmations returns the block confirmations a transaction on the network must reach.
func (c Context) Confirmations() uint64 {
	return c.Network.Confirmations()
}

// Resolve looks up the network by name, classifies it and selects the parameter set for its
// chain id. It performs no I/O.
func (c *Config) Resolve(name string) (Context, error) {
	n, err := c.NetworkByName(name)
	if err != nil {
		return Context{}, err
	}

	if n.RPCURL == "" && !n.InProcess() {
		return Context{}, fmt.Errorf("network %s: rpc url is required", name)
	}

	params, err := c.ParametersByChainID(n.ChainID)
	if err != nil {
		return Context{}, fmt.Errorf("network %s: %w", name, err)
	}

	return Context{
		Network:    n,
		Type:       n.Type(),
		Parameters: params,
	}, nil
}
