package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"fuzz-adapter/backend/config"
	"fuzz-adapter/backend/internal/adapter"
	"fuzz-adapter/backend/internal/cache"
	"fuzz-adapter/backend/internal/driver"
	"fuzz-adapter/backend/internal/httpapi"
	"fuzz-adapter/backend/internal/httpapi/handlers"
	"fuzz-adapter/backend/internal/platform"
	"fuzz-adapter/backend/internal/session"
	"fuzz-adapter/backend/internal/store"
	"fuzz-adapter/backend/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("init config failed: %v", err)
	}

	profile, err := platform.Detect(cfg.Platform.OS, cfg.Browser.Name)
	if err != nil {
		log.Fatalf("detect platform failed: %v", err)
	}
	log.Printf("platform: os=%s browser=%s jump=%s+%s", profile.OS, profile.Browser, profile.CmdModifier, profile.JumpKey)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	chrome, err := driver.OpenChrome(ctx, driver.ChromeOptions{
		URL:            cfg.Browser.URL,
		Headless:       cfg.Browser.Headless,
		FrameSelector:  cfg.Browser.FrameSelector,
		EditorSelector: cfg.Browser.EditorSelector,
		ActionTimeout:  cfg.Browser.ActionTimeout,
	})
	if err != nil {
		log.Fatalf("open browser failed: %v", err)
	}
	defer chrome.Close()

	seed := cfg.Format.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	log.Printf("format path seed: %d", seed)

	var baselines []adapter.Baseline
	if cfg.Format.Baselines != nil {
		baselines = make([]adapter.Baseline, 0, len(cfg.Format.Baselines))
		for _, b := range cfg.Format.Baselines {
			baselines = append(baselines, adapter.Baseline{Control: b.Control, Value: b.Value})
		}
	}
	a := adapter.New(chrome, chrome, profile, adapter.Options{
		ToolbarSelector:     cfg.Browser.ToolbarSelector,
		ActiveFormatsScript: cfg.Browser.ActiveFormatsScript,
		Baselines:           baselines,
		ShortcutWeight:      cfg.Format.ShortcutWeight,
		ToolbarWeight:       cfg.Format.ToolbarWeight,
		Chooser:             rand.New(rand.NewSource(seed)),
	})

	hub := ws.NewHub(cfg.Running.SessionID)
	opt := session.Options{
		SessionID:      cfg.Running.SessionID,
		RingCap:        cfg.Running.RingCap,
		AcquireTimeout: cfg.Running.AcquireTimeout,
		StateTTL:       cfg.Redis.StateTTL,
		Broadcaster:    hub,
	}

	// 以下旁路都是可选的，没配置就不启用
	var (
		states  handlers.StateReader
		journal handlers.JournalReader
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer rdb.Close()
		stateCache := cache.NewRedisState(rdb)
		opt.Cache = stateCache
		states = stateCache
	}

	if cfg.Mysql.DSN != "" {
		db, err := store.InitMySQL(cfg.Mysql.DSN)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		journalStore := store.NewJournalStore(db)
		opt.Journal = journalStore
		journal = journalStore
	}

	var (
		dispatcher  *session.KafkaDispatcher
		replayGroup sarama.ConsumerGroup
	)
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaCfg := sarama.NewConfig()
		// SyncProducer 必须开启 Return.Successes
		kafkaCfg.Producer.Return.Successes = true
		kafkaCfg.Producer.RequiredAcks = sarama.WaitForLocal
		kafkaCfg.Consumer.Offsets.Initial = sarama.OffsetNewest

		if cfg.Kafka.Topic != "" {
			producer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, kafkaCfg)
			if err != nil {
				log.Fatalf("Failed to connect kafka: %v", err)
			}
			defer producer.Close()
			dispatcher = session.NewKafkaDispatcher(producer, cfg.Kafka.Topic, session.NewSemaphoreControl(4),
				session.KafkaDispatcherOptions{
					QueueSize:   10_000,
					Workers:     2,
					MaxRetry:    3,
					BaseBackoff: 50 * time.Millisecond,
					MaxBackoff:  1 * time.Second,
				})
			opt.Events = dispatcher
		}
		if cfg.Kafka.ReplayTopic != "" {
			replayGroup, err = sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.Kafka.ReplayGroup, kafkaCfg)
			if err != nil {
				log.Fatalf("Failed to create consumer group: %v", err)
			}
			defer replayGroup.Close()
		}
	}

	svc := session.NewInMemoryService(a, opt)
	h := handlers.NewFuzzHandler(svc, cfg.Running.SessionID, states, journal)
	r := httpapi.NewRouter(h, ws.NewManager(hub, svc), cfg.Auth.JWTSecret)
	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Running.Port), Handler: r}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("fuzz adapter listening on %s (session=%s)", srv.Addr, cfg.Running.SessionID)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if replayGroup != nil {
		g.Go(func() error {
			log.Printf("replaying %s as group %s", cfg.Kafka.ReplayTopic, cfg.Kafka.ReplayGroup)
			return session.RunReplay(gctx, replayGroup, []string{cfg.Kafka.ReplayTopic},
				session.NewReplayHandler(svc, cfg.Kafka.ReplayDocID))
		})
	}

	if err := g.Wait(); err != nil {
		log.Printf("fuzz adapter stopped: %v", err)
	}
	if dispatcher != nil {
		dispatcher.Close()
	}
}
