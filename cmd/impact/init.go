package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/calehh/impact-app/config"
	"github.com/calehh/impact-app/types"
	"github.com/spf13/cobra"
)

type printInfo struct {
	Home         string `json:"home"`
	ConfigFile   string `json:"config_file"`
	AdminAddress string `json:"admin_address,omitempty"`
}

func displayInfo(info printInfo) error {
	out, err := json.MarshalIndent(info, "", " ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(os.Stderr, "%s\n", out)
	return err
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the configuration file and the admin signing key",
	Args:  cobra.ExactArgs(0),
	RunE:  initRun,
}

func init() {
	initCmd.Flags().BoolP(types.FlagOverwrite, "o", false, "overwrite an existing config file and admin key")
	initCmd.Flags().String(types.FlagHome, "", "home directory")
}

func initRun(cmd *cobra.Command, args []string) error {
	home, _ := cmd.Flags().GetString(types.FlagHome)
	overwrite, _ := cmd.Flags().GetBool(types.FlagOverwrite)
	cfg := config.DefaultConfig(home)

	if _, err := os.Stat(cfg.ConfigFile()); err == nil && !overwrite {
		return fmt.Errorf("%s already exists, use --%s to replace it", cfg.ConfigFile(), types.FlagOverwrite)
	}
	info := printInfo{Home: cfg.Home, ConfigFile: cfg.ConfigFile()}
	keyFile := cfg.ResolvePath(cfg.Ledger.AdminKeyFile)
	if _, err := os.Stat(keyFile); os.IsNotExist(err) || overwrite {
		addr, err := config.InitializeAdminKey(cfg.Home)
		if err != nil {
			return err
		}
		info.AdminAddress = addr
	}
	if err := config.WriteConfigFile(cfg.ConfigFile(), cfg); err != nil {
		return err
	}
	return displayInfo(info)
}
