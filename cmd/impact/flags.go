package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/calehh/impact-app/agent"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/spf13/cobra"
)

func urlFlag(cmd *cobra.Command, url *string) {
	cmd.Flags().StringVarP(url, "url", "u", "http://127.0.0.1:8080", "impact service url")
}

func newClient(url string) *agent.Client {
	return agent.NewClient(url, cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stderr)))
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("marshal output err:%v\n", err)
		return
	}
	fmt.Println(string(out))
}
