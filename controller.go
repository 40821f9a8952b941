package main

import (
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/obsidianwallet/obsidian-wallet-connect/common"
)

type NetworkController struct {
	currentNetwork string
	networkList    map[string]common.ChainSpec
	lock           sync.Mutex
	networkUsers   []NetworkUserInterface
}

type NetworkUserInterface interface {
	Stop() error
	Start() error
	SwitchNetwork(network common.ChainSpec) error
}

func NewNetworkController(currentNetwork string, networkList []common.ChainSpec) (*NetworkController, error) {
	nwctrl := &NetworkController{
		networkList: make(map[string]common.ChainSpec),
	}

	for _, v := range networkList {
		if err := v.Validate(); err != nil {
			return nil, errors.Wrapf(err, "network %q", v.Name)
		}
		nwctrl.networkList[v.Name] = v
	}

	if _, ok := nwctrl.networkList[currentNetwork]; !ok {
		return nil, errors.Wrapf(common.ErrNetworkNotFound, "network %s", currentNetwork)
	}
	nwctrl.currentNetwork = currentNetwork

	return nwctrl, nil
}

func (n *NetworkController) GetNetworkList() []common.ChainSpec {
	n.lock.Lock()
	defer n.lock.Unlock()
	result := make([]common.ChainSpec, 0, len(n.networkList))
	for _, v := range n.networkList {
		result = append(result, v)
	}
	return result
}

func (n *NetworkController) GetCurrentNetwork() common.ChainSpec {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.networkList[n.currentNetwork]
}

func (n *NetworkController) AddNetwork(network common.ChainSpec) error {
	if err := network.Validate(); err != nil {
		return err
	}
	n.lock.Lock()
	defer n.lock.Unlock()
	if _, ok := n.networkList[network.Name]; ok {
		return errors.Wrapf(common.ErrNetworkExists, "network %s", network.Name)
	}
	n.networkList[network.Name] = network
	cfg.Networks = append(cfg.Networks, network)
	return updateConfigFile()
}

func (n *NetworkController) RemoveNetwork(network string) error {
	n.lock.Lock()
	defer n.lock.Unlock()
	if network == n.currentNetwork {
		return errors.Wrapf(common.ErrNetworkInUse, "network %s", network)
	}
	if _, ok := n.networkList[network]; !ok {
		return errors.Wrapf(common.ErrNetworkNotFound, "network %s", network)
	}
	delete(n.networkList, network)
	for idx, v := range cfg.Networks {
		if v.Name == network {
			cfg.Networks = append(cfg.Networks[:idx], cfg.Networks[idx+1:]...)
			break
		}
	}
	return updateConfigFile()
}

// SwitchNetwork stops every network user, hands them the new network and
// starts them again.
func (n *NetworkController) SwitchNetwork(network string) error {
	n.lock.Lock()
	defer n.lock.Unlock()
	spec, ok := n.networkList[network]
	if !ok {
		return errors.Wrapf(common.ErrNetworkNotFound, "network %s", network)
	}
	for _, v := range n.networkUsers {
		if err := v.Stop(); err != nil {
			return err
		}
	}
	for _, v := range n.networkUsers {
		if err := v.SwitchNetwork(spec); err != nil {
			return err
		}
	}
	n.currentNetwork = network
	for _, v := range n.networkUsers {
		if err := v.Start(); err != nil {
			return err
		}
	}
	cfg.UseNetwork = network
	return updateConfigFile()
}

func (n *NetworkController) AddNetworkUser(networkUser NetworkUserInterface) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.networkUsers = append(n.networkUsers, networkUser)
}

func (n *NetworkController) Start() error {
	n.lock.Lock()
	defer n.lock.Unlock()

	for _, v := range n.networkUsers {
		if err := v.SwitchNetwork(n.networkList[n.currentNetwork]); err != nil {
			return err
		}
	}
	for _, v := range n.networkUsers {
		if err := v.Start(); err != nil {
			return err
		}
	}
	return nil
}

func (n *NetworkController) Stop() error {
	n.lock.Lock()
	defer n.lock.Unlock()
	for _, v := range n.networkUsers {
		if err := v.Stop(); err != nil {
			return err
		}
	}
	return nil
}
