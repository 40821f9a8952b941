package common

import "time"

var DefaultConfig = Config{
	ServingAddress: "127.0.0.1:8989",
	ProviderURL:    "http://127.0.0.1:1248",
	DataDir:        "obsidiandb",
	UseNetwork:     StoryAeneidTestnet.Name,
	Networks:       []ChainSpec{StoryAeneidTestnet},
	Connector:      MetaMaskConnector,
	WatchInterval:  4 * time.Second,
}

var MetaMaskConnector = ConnectorTarget{
	ID:   "metaMask",
	Name: "MetaMask",
}

var StoryAeneidTestnet = ChainSpec{
	ChainID: 1315,
	Name:    "Story Aeneid Testnet",
	NativeCurrency: NativeCurrency{
		Name:     "IP",
		Symbol:   "IP",
		Decimals: 18,
	},
	RPCURLs:           []string{"https://aeneid.storyrpc.io"},
	BlockExplorerURLs: []string{"https://aeneid.storyscan.io"},
}
