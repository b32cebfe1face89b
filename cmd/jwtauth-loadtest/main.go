package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	jwtAuth "github.com/MrEthical07/jwtAuth"
	"github.com/MrEthical07/jwtAuth/account"
	"github.com/MrEthical07/jwtAuth/config"
	promexport "github.com/MrEthical07/jwtAuth/metrics/export/prometheus"
	"github.com/MrEthical07/jwtAuth/notify"
	"github.com/MrEthical07/jwtAuth/store/redisstore"
	"github.com/MrEthical07/jwtAuth/store/sqlstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type accountState struct {
	acc   *account.Account
	token string
	mu    sync.Mutex
}

func main() {
	var (
		configPath  = flag.String("config", "", "optional YAML config file; JWTAUTH_* env vars override it")
		accounts    = flag.Int("accounts", 2000, "number of accounts to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations per phase (resolve + issue)")
		useMini     = flag.Bool("miniredis", true, "run against an in-process miniredis instead of redis.addr")
		metricsAddr = flag.String("metrics-addr", "", "serve Prometheus metrics on this address while running")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	settings, err := config.Load(*configPath, config.DefaultEnvPrefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}

	logger, err := newLogger(settings.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	repo, cleanup, err := openRepository(ctx, settings, *useMini, logger)
	if err != nil {
		logger.Fatal("open repository", zap.Error(err))
	}
	defer cleanup()

	notifier, closeNotifier, err := newNotifier(settings, logger)
	if err != nil {
		logger.Fatal("notifier", zap.Error(err))
	}
	defer closeNotifier()

	// Load testing measures the store, not the hasher.
	cfg := settings.Auth
	cfg.Password.Algorithm = "bcrypt"
	cfg.Password.BcryptCost = 4
	cfg.Confirmation.SendOnRegister = false
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	if cfg.Sessions.MaxSimultaneousSessions == 0 {
		cfg.Sessions.MaxSimultaneousSessions = 2
	}

	engine, err := jwtAuth.New().
		WithConfig(cfg).
		WithRepository(repo).
		WithNotifier(notifier).
		WithLogger(logger).
		Build()
	if err != nil {
		logger.Fatal("build engine", zap.Error(err))
	}
	defer engine.Close()

	if *metricsAddr != "" {
		srv := &http.Server{Addr: *metricsAddr, Handler: promexport.NewCollector(engine).Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server", zap.Error(err))
			}
		}()
		defer func() { _ = srv.Close() }()
		logger.Info("serving metrics", zap.String("addr", *metricsAddr))
	}

	states := make([]accountState, *accounts)
	fmt.Printf("seeding %d accounts...\n", *accounts)
	startSeed := time.Now()
	for i := 0; i < *accounts; i++ {
		email := fmt.Sprintf("load-%d@example.com", i)
		acc := &account.Account{Email: email}
		res, err := engine.Register(ctx, acc, "load-secret")
		if err != nil || !res.OK() {
			logger.Fatal("register", zap.String("email", email), zap.Error(err), zap.Any("field_errors", res.Errors))
		}
		tok, err := engine.IssueSessionToken(ctx, acc)
		if err != nil {
			logger.Fatal("issue", zap.String("email", email), zap.Error(err))
		}
		states[i].acc = acc
		states[i].token = tok
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	resolveStats := runResolvePhase(ctx, engine, states, *ops, *concurrency)
	issueStats := runIssuePhase(ctx, engine, states, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("resolve", resolveStats)
	printStats("issue", issueStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("conflict retries=%d resolve failures=%d\n",
		snap.Counters[jwtAuth.MetricSessionConflictRetry],
		snap.Counters[jwtAuth.MetricPayloadResolveFailure],
	)
}

func newLogger(s config.LogSettings) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(s.Level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	if s.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}

func openRepository(ctx context.Context, s *config.Settings, useMini bool, logger *zap.Logger) (account.Repository, func(), error) {
	if s.Store == config.StoreSQL {
		store, err := sqlstore.OpenSQLite(ctx, s.SQL.DSN)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using sql store", zap.String("dsn", s.SQL.DSN))
		return store, func() { _ = store.Close() }, nil
	}

	if useMini {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{mr.Addr()},
		})
		logger.Info("using miniredis", zap.String("addr", mr.Addr()))
		return redisstore.New(client, redisstore.WithPrefix(s.Redis.Prefix)), func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{s.Redis.Addr},
		Password: s.Redis.Password,
		DB:       s.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis %s: %w", s.Redis.Addr, err)
	}
	logger.Info("using redis", zap.String("addr", s.Redis.Addr))
	return redisstore.New(client, redisstore.WithPrefix(s.Redis.Prefix)), func() { _ = client.Close() }, nil
}

// newNotifier logs every message and, when brokers are configured, also
// publishes it to Kafka.
func newNotifier(s *config.Settings, logger *zap.Logger) (jwtAuth.Notifier, func(), error) {
	logNotifier := notify.NewLogNotifier(logger, s.Kafka.Links)
	if len(s.Kafka.Brokers) == 0 {
		return logNotifier, func() {}, nil
	}

	producer, err := notify.NewSaramaProducer(s.Kafka.Brokers)
	if err != nil {
		return nil, nil, err
	}
	kafka := notify.NewKafkaNotifier(producer, s.Kafka, logger)
	return notify.Multi{logNotifier, kafka}, func() { _ = kafka.Close() }, nil
}

func runResolvePhase(ctx context.Context, engine *jwtAuth.Engine, states []accountState, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				state := &states[r.Intn(len(states))]

				state.mu.Lock()
				payload := map[string]any{"auth_token": state.token}
				state.mu.Unlock()

				t0 := time.Now()
				_, err := engine.AccountFromSessionPayload(ctx, payload)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

// runIssuePhase opens sessions on random accounts. Each worker works on the
// shared account copy, so concurrent issues on one account exercise the
// conflict retry path.
func runIssuePhase(ctx context.Context, engine *jwtAuth.Engine, states []accountState, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				state := &states[r.Intn(len(states))]

				state.mu.Lock()
				acc := state.acc.Clone()
				state.mu.Unlock()

				t0 := time.Now()
				tok, err := engine.IssueSessionToken(ctx, acc)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				} else {
					state.mu.Lock()
					if acc.Version > state.acc.Version {
						state.acc = acc
						state.token = tok
					}
					state.mu.Unlock()
				}

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
