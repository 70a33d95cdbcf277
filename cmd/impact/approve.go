package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/calehh/impact-app/agent"
	"github.com/calehh/impact-app/types"
	"github.com/spf13/cobra"
)

type adminArguments struct {
	Url      string
	Password string
}

func adminFlags(cmd *cobra.Command, a *adminArguments) {
	urlFlag(cmd, &a.Url)
	cmd.Flags().StringVarP(&a.Password, "password", "P", "", "admin secret, defaults to $IMPACT_ADMIN_SECRET")
}

func adminClient(ctx context.Context, a *adminArguments) (*agent.Client, error) {
	password := a.Password
	if password == "" {
		password = os.Getenv("IMPACT_ADMIN_SECRET")
	}
	cli := newClient(a.Url)
	if err := cli.Login(ctx, password); err != nil {
		return nil, err
	}
	return cli, nil
}

type approveArguments struct {
	adminArguments
	Points int64
	Wait   bool
	Poll   time.Duration
}

var approveArgs approveArguments

var approveCmd = &cobra.Command{
	Use:   "approve [submission id]",
	Short: "Approve a pending submission and record it on the ledger",
	Args:  cobra.ExactArgs(1),
	Run:   approveRun,
}

func init() {
	adminFlags(approveCmd, &approveArgs.adminArguments)
	approveCmd.Flags().Int64VarP(&approveArgs.Points, "points", "n", 0, "points to award")
	approveCmd.Flags().BoolVarP(&approveArgs.Wait, "wait", "w", false, "block until the ledger write is confirmed")
	approveCmd.Flags().DurationVar(&approveArgs.Poll, "poll", 0, "poll the approval task at this interval until it finishes")
}

func approveRun(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	cli, err := adminClient(ctx, &approveArgs.adminArguments)
	if err != nil {
		fmt.Printf("admin login err:%v\n", err)
		return
	}
	res, err := cli.Approve(ctx, args[0], approveArgs.Points, approveArgs.Wait)
	if err != nil {
		fmt.Printf("approve err:%v\n", err)
		return
	}
	if approveArgs.Wait || approveArgs.Poll <= 0 {
		printJSON(res)
		return
	}
	for {
		task, err := cli.Task(ctx, res.TaskId)
		if err != nil {
			fmt.Printf("get task err:%v\n", err)
			return
		}
		if task.State.Done() {
			printJSON(task)
			return
		}
		time.Sleep(approveArgs.Poll)
	}
}

var taskArgs adminArguments

var taskCmd = &cobra.Command{
	Use:   "task [task id]",
	Short: "Show the state of an approval task",
	Args:  cobra.ExactArgs(1),
	Run:   taskRun,
}

func init() {
	adminFlags(taskCmd, &taskArgs)
}

func taskRun(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	cli, err := adminClient(ctx, &taskArgs)
	if err != nil {
		fmt.Printf("admin login err:%v\n", err)
		return
	}
	task, err := cli.Task(ctx, args[0])
	if err != nil {
		fmt.Printf("get task err:%v\n", err)
		return
	}
	printJSON(task)
}

var verifyArgs adminArguments

var verifyCmd = &cobra.Command{
	Use:   "verify [submission id]",
	Short: "Check an approved submission against its ledger record",
	Args:  cobra.ExactArgs(1),
	Run:   verifyRun,
}

func init() {
	adminFlags(verifyCmd, &verifyArgs)
}

func verifyRun(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	cli, err := adminClient(ctx, &verifyArgs)
	if err != nil {
		fmt.Printf("admin login err:%v\n", err)
		return
	}
	v, err := cli.Verify(ctx, args[0])
	if err != nil {
		if types.CodeOf(err) == types.CodeNotFound {
			fmt.Printf("no ledger record: %v\n", err)
			return
		}
		fmt.Printf("verify err:%v\n", err)
		return
	}
	printJSON(v)
	if !v.Valid {
		os.Exit(2)
	}
}
