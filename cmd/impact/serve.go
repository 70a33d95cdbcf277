package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calehh/impact-app/agent"
	"github.com/calehh/impact-app/app"
	"github.com/calehh/impact-app/auth"
	"github.com/calehh/impact-app/blob"
	"github.com/calehh/impact-app/config"
	"github.com/calehh/impact-app/ledger"
	"github.com/calehh/impact-app/state"
	"github.com/calehh/impact-app/types"
	cmtflags "github.com/cometbft/cometbft/libs/cli/flags"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var homeDir string

var rootCmd = &cobra.Command{
	Use:   "impact",
	Short: "impact records approved environmental actions on-chain",
	Long: `Collects environmental impact claims with photographic proof and,
once an administrator approves them, attests them on an EVM ledger.`,
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, args)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&homeDir, "homedir", "d", "", "home directory")
}

func run(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(homeDir)
	if err != nil {
		log.Fatalf("Loading config: %v", err)
	}

	logger := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stdout))
	logger, err = cmtflags.ParseLogLevel(cfg.LogLevel, logger, config.DefaultLogLevel)
	if err != nil {
		log.Fatalf("failed to parse log level: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := state.NewSubmissionDB(cfg.ResolvePath(cfg.Storage.DBPath), logger)
	if err != nil {
		log.Fatalf("open submission db err %s", err.Error())
	}
	blobs, err := newBlobStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("open blob store err %s", err.Error())
	}

	var lw app.Ledger
	writer, err := ledger.New(ctx, cfg, logger)
	if err != nil {
		// submissions are still accepted; approvals fail with this error
		logger.Error("ledger writer disabled", "code", types.CodeOf(err).String(), "err", err)
		lw = ledger.Disabled{Err: err}
	} else {
		defer writer.Close()
		lw = writer
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	impactApp, err := app.NewApp(cfg, logger, db, blobs, lw, reg)
	if err != nil {
		log.Fatalf("new App err:%v", err)
	}
	gate, err := auth.NewGate(&cfg.Admin)
	if err != nil {
		log.Fatalf("new admin gate err:%v", err)
	}
	if !gate.Configured() {
		logger.Error("admin.secret not set, every admin login will be refused")
	}

	svc := agent.NewService(cfg.Server.ListenAddr, impactApp, gate, reg, cfg.Storage.MaxProofBytes, logger)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.Run(gctx)
	})
	if err = g.Wait(); err != nil {
		logger.Error("service exited", "err", err)
	}

	log.Println("shut down...")
	done := make(chan struct{})
	go func() {
		defer close(done)
		impactApp.Stop()
	}()
	timer := time.NewTimer(time.Second * 10)
	select {
	case <-timer.C:
		logger.Error("approvals still in flight at shutdown")
		os.Exit(1)
	case <-done:
	}
}

func newBlobStore(ctx context.Context, cfg *config.Config, logger cmtlog.Logger) (blob.Store, error) {
	switch cfg.Storage.BlobBackend {
	case config.BlobBackendGCS:
		s := blob.NewGCSStore(
			blob.WithBucket(cfg.Storage.Bucket),
			blob.WithCredentialsFile(cfg.ResolvePath(cfg.Storage.CredsFile)),
			blob.WithMaxBytes(cfg.Storage.MaxProofBytes),
			blob.WithLogger(logger),
		)
		if err := s.Start(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return blob.NewLevelDBStore(cfg.ResolvePath(cfg.Storage.BlobDir), cfg.Storage.PublicBaseUrl, cfg.Storage.MaxProofBytes, logger)
	}
}
