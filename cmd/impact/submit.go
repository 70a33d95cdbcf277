package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/calehh/impact-app/state"
	"github.com/spf13/cobra"
)

type submitArguments struct {
	Url          string
	User         string
	Action       string
	Description  string
	ProofUrl     string
	ProofFile    string
	LocationCell string
}

var submitArgs submitArguments

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit an environmental action claim",
	Run:   submitRun,
}

func init() {
	urlFlag(submitCmd, &submitArgs.Url)
	submitCmd.Flags().StringVarP(&submitArgs.User, "user", "a", "", "user wallet address")
	submitCmd.Flags().StringVarP(&submitArgs.Action, "action", "t", "", "action type: TREE, RECYCLE or CLEANUP")
	submitCmd.Flags().StringVarP(&submitArgs.Description, "description", "m", "", "optional description")
	submitCmd.Flags().StringVarP(&submitArgs.ProofUrl, "proof-url", "p", "", "url of an uploaded proof")
	submitCmd.Flags().StringVarP(&submitArgs.ProofFile, "proof-file", "f", "", "proof image to upload before submitting")
	submitCmd.Flags().StringVarP(&submitArgs.LocationCell, "location", "l", "", "optional location cell")
}

func submitRun(cmd *cobra.Command, args []string) {
	cli := newClient(submitArgs.Url)
	ctx := context.Background()
	proofUrl := submitArgs.ProofUrl
	if submitArgs.ProofFile != "" {
		url, err := uploadFile(ctx, submitArgs.Url, submitArgs.ProofFile)
		if err != nil {
			fmt.Printf("upload proof err:%v\n", err)
			return
		}
		proofUrl = url
	}
	id, err := cli.Submit(ctx, state.NewSubmission{
		UserAddress:  submitArgs.User,
		ActionType:   submitArgs.Action,
		Description:  submitArgs.Description,
		ProofUrl:     proofUrl,
		LocationCell: submitArgs.LocationCell,
	})
	if err != nil {
		fmt.Printf("submit err:%v\n", err)
		return
	}
	fmt.Println("submission:", id)
}

type uploadArguments struct {
	Url  string
	File string
}

var uploadArgs uploadArguments

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload a proof image and print its url",
	Run:   uploadRun,
}

func init() {
	urlFlag(uploadCmd, &uploadArgs.Url)
	uploadCmd.Flags().StringVarP(&uploadArgs.File, "file", "f", "", "proof image")
}

func uploadRun(cmd *cobra.Command, args []string) {
	url, err := uploadFile(context.Background(), uploadArgs.Url, uploadArgs.File)
	if err != nil {
		fmt.Printf("upload proof err:%v\n", err)
		return
	}
	fmt.Println("url:", url)
}

func uploadFile(ctx context.Context, serviceUrl, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return newClient(serviceUrl).UploadProof(ctx, filepath.Base(path), data)
}
