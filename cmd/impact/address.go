package main

import (
	"encoding/hex"
	"fmt"

	"github.com/calehh/impact-app/config"
	"github.com/calehh/impact-app/crypto"
	"github.com/spf13/cobra"
)

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the address of the ledger signing key",
	Run:   addressRun,
}

func init() {
	addressCmd.Flags().StringVarP(&homeDir, "homedir", "d", "", "home directory")
}

func addressRun(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(homeDir)
	if err != nil {
		fmt.Printf("load config err:%v\n", err)
		return
	}
	pv, err := crypto.LoadPV(&cfg.Ledger, cfg.Home)
	if err != nil {
		fmt.Printf("load admin key err:%v\n", err)
		return
	}
	fmt.Println("pubkey:", hex.EncodeToString(pv.PublicKey()))
	fmt.Println("address:", pv.Address().Hex())
}
