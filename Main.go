package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"
)

func main() {
	configFilePath := flag.String("c", "miner_conf.json", "Path of config file")
	logDir := flag.String("l", "", "Log directory")
	flag.Parse()

	if *logDir == "" || *logDir == "stderr" {
		flag.Lookup("logtostderr").Value.Set("true")
	} else {
		flag.Lookup("log_dir").Value.Set(*logDir)
	}

	var config Config
	if err := config.LoadFromFile(*configFilePath); err != nil {
		glog.Fatal("load config failed: ", err)
	}
	if err := config.Validate(); err != nil {
		glog.Fatal("invalid config: ", err)
	}

	configBytes, _ := json.Marshal(config)
	glog.Info("config: ", string(configBytes))
	glog.Infof("sha256 implementation: %s", sha256ImplementationName())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stats := &Stats{}
	cell := &JobCell{}
	submitter := NewSubmitter(stats)
	submissions := make(chan EventSubmitShare, config.Advanced.MessageQueueSize)

	pool := NewWorkerPool(cell, submissions, stats, config.NumWorkers)
	client := NewStratumClient(&config, cell, stats, submitter, submissions)

	go pool.Run(ctx)
	go logStatsPeriodically(ctx, stats)

	if err := client.Run(ctx); err != nil && err != context.Canceled {
		glog.Errorf("stratum client stopped: %v", err)
	}
	glog.Info("shutting down")
}

func logStatsPeriodically(ctx context.Context, stats *Stats) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v := stats.Snapshot()
			glog.Infof("hashes=%d shares=%d/%d best_diff=%.4f blocks=%d ema_latency=%.1fms",
				v.HashesAttempted, v.SharesAccepted, v.SharesSent, v.BestDifficulty, v.FullBlocksFound, v.EmaLatencyMs)
		}
	}
}
