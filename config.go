package main

import (
	"encoding/json"
	"io/ioutil"
	"os"

	"github.com/cockroachdb/errors"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/obsidianwallet/obsidian-wallet-connect/common"
)

var (
	cfg        common.Config
	configPath = "config.json"
)

// loadConfig reads the JSON config file named by --config on top of the
// defaults. A missing file is not an error.
func loadConfig(args []string) error {
	flags := flag.NewFlagSet("obsidian-wallet-connect", flag.ContinueOnError)
	flags.StringVarP(&configPath, "config", "c", configPath, "path to the JSON config file")
	flags.String("listen", "", "address the api listens on, overrides ServingAddress")
	if err := flags.Parse(args); err != nil {
		return err
	}

	v := viper.New()
	def := common.DefaultConfig
	v.SetDefault("ServingAddress", def.ServingAddress)
	v.SetDefault("ProviderURL", def.ProviderURL)
	v.SetDefault("DataDir", def.DataDir)
	v.SetDefault("UseNetwork", def.UseNetwork)
	v.SetDefault("Networks", def.Networks)
	v.SetDefault("Connector", def.Connector)
	v.SetDefault("WatchInterval", def.WatchInterval)
	if err := v.BindPFlag("ServingAddress", flags.Lookup("listen")); err != nil {
		return err
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "read config %s", configPath)
	}

	var loaded common.Config
	if err := v.Unmarshal(&loaded); err != nil {
		return errors.Wrapf(err, "decode config %s", configPath)
	}
	cfg = loaded
	return nil
}

func updateConfigFile() error {
	file, err := json.MarshalIndent(cfg, "", " ")
	if err != nil {
		return err
	}
	return ioutil.WriteFile(configPath, file, 0644)
}
