// Command durabrokerd is a demo wiring binary: it builds one topic's
// ledger, dedup engine, publish pipeline, registry, and scheduler and runs
// a stdin-driven publish loop for manual smoke-testing. It is not a
// production server — the admin/gateway surfaces are out of scope.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/durabroker/broker/config"
	"github.com/durabroker/broker/dedup"
	"github.com/durabroker/broker/ledger"
	"github.com/durabroker/broker/publish"
	"github.com/durabroker/broker/registry"
	"github.com/durabroker/broker/scheduler"
	"github.com/durabroker/broker/workerpool"
)

const demoTopic = "demo-topic"

func main() {
	dataDir := flag.String("data-dir", "", "directory for durable segments and cursors; empty means in-memory")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("falling back to built-in demo config", zap.Error(err))
		cfg = config.BrokerConfig{
			DeduplicationEnabled:             true,
			EntriesInterval:                  100,
			MaxNumberOfProducers:             1000,
			ProducerInactivityTimeoutMinutes: 60,
			SnapshotIntervalSeconds:          30,
			ReplicatorPrefix:                 "pulsar.repl.",
			WorkerPoolConcurrency:            16,
		}
	}

	log, closeLog, err := buildLog(*dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build log: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	pool := workerpool.New(cfg.WorkerPoolConcurrency, logger)
	eff := cfg.Effective(config.TopicOverride{})

	engine := dedup.New(demoTopic, log, pool, dedup.Config{
		SnapshotInterval:     eff.EntriesInterval,
		MaxNumberOfProducers: eff.MaxNumberOfProducers,
		InactivityTimeout:    time.Duration(eff.InactivityTimeoutMinutes) * time.Minute,
	}, logger)

	ctx := context.Background()
	if err := engine.CheckStatus(ctx, eff.Enabled); err != nil {
		fmt.Fprintf(os.Stderr, "failed to enable dedup engine: %v\n", err)
		os.Exit(1)
	}

	reg := registry.New()
	reg.Register(demoTopic, engine)

	sched := scheduler.New(logger)
	if eff.SnapshotIntervalSeconds > 0 {
		sched.Start(demoTopic, engine, 5*time.Second, time.Duration(eff.SnapshotIntervalSeconds)*time.Second)
	}
	defer sched.Shutdown()

	pipeline := publish.NewPipeline(demoTopic, log, engine, eff.ReplicatorPrefix, logger)
	defer pipeline.Close()

	runDemoLoop(ctx, pipeline, reg, logger)
}

func buildLog(dataDir string) (ledger.Log, func(), error) {
	if dataDir == "" {
		log := ledger.NewMemoryLog()
		return log, func() { log.Close() }, nil
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}
	store, err := ledger.NewBboltCursorStore(filepath.Join(dataDir, "cursors.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("open cursor store: %w", err)
	}
	log, err := ledger.NewFileLog(dataDir, store, 64*1024*1024)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("open file log: %w", err)
	}
	return log, func() {
		log.Close()
		store.Close()
	}, nil
}

// runDemoLoop reads "producer seq payload" lines from stdin and publishes
// each, printing the outcome. Type "quit" to stop.
func runDemoLoop(ctx context.Context, p *publish.Pipeline, reg *registry.Registry, logger *zap.Logger) {
	fmt.Println("durabrokerd demo: enter lines as '<producer> <seq> <payload>', 'quit' to exit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" {
			return
		}

		parts := strings.SplitN(line, " ", 3)
		if len(parts) != 3 {
			fmt.Println("expected '<producer> <seq> <payload>'")
			continue
		}
		producer, seqStr, payload := parts[0], parts[1], parts[2]

		var seq int64
		if _, err := fmt.Sscanf(seqStr, "%d", &seq); err != nil {
			fmt.Printf("invalid sequence id %q: %v\n", seqStr, err)
			continue
		}

		if err := reg.Connect(demoTopic, producer); err != nil {
			logger.Warn("registry connect failed", zap.Error(err))
		}

		res, err := p.Publish(ctx, publish.PublishContext{
			ProducerName:      producer,
			SequenceId:        seq,
			HighestSequenceId: seq,
		}, []byte(payload))
		if err != nil {
			fmt.Printf("publish error: %v\n", err)
			continue
		}
		fmt.Printf("outcome=%s position=%s\n", res.Outcome, res.Position)
	}
}
