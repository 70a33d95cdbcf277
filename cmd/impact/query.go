package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type listArguments struct {
	Url      string
	Status   string
	Page     int
	PageSize int
}

var listArgs listArguments

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List submissions, newest first",
	Run:   listRun,
}

func init() {
	urlFlag(listCmd, &listArgs.Url)
	listCmd.Flags().StringVarP(&listArgs.Status, "status", "s", "", "filter by status: pending or approved")
	listCmd.Flags().IntVarP(&listArgs.Page, "page", "p", 0, "page number")
	listCmd.Flags().IntVarP(&listArgs.PageSize, "pageSize", "n", 50, "page size")
}

func listRun(cmd *cobra.Command, args []string) {
	res, err := newClient(listArgs.Url).Submissions(context.Background(), listArgs.Status, listArgs.Page, listArgs.PageSize)
	if err != nil {
		fmt.Printf("list submissions err:%v\n", err)
		return
	}
	printJSON(res)
}

type showArguments struct {
	Url string
}

var showArgs showArguments

var showCmd = &cobra.Command{
	Use:   "show [submission id]",
	Short: "Show one submission",
	Args:  cobra.ExactArgs(1),
	Run:   showRun,
}

func init() {
	urlFlag(showCmd, &showArgs.Url)
}

func showRun(cmd *cobra.Command, args []string) {
	sub, err := newClient(showArgs.Url).Submission(context.Background(), args[0])
	if err != nil {
		fmt.Printf("get submission err:%v\n", err)
		return
	}
	printJSON(sub)
}
