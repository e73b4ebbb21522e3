package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"

	"hncast/api"
	"hncast/fetch"
	"hncast/gen"
	"hncast/hn"
	"hncast/sse"
	"hncast/store"
	"hncast/worker"
)

func main() {
	// .env is optional; flags and real env vars win.
	_ = godotenv.Load()

	flagSet := flag.NewFlagSet("hncast", flag.ExitOnError)

	var (
		addr          string
		port          int
		dbPath        string
		hnBaseURL     string
		hnTimeout     time.Duration
		concurrency   int
		maxDepth      int
		maxNodes      int
		expandDeleted bool
		commentsTTL   time.Duration
		topLimit      int
		pollInterval  time.Duration
		retention     time.Duration
		genURL        string
		genAPIKey     string
		genPersona    string
		genTimeout    time.Duration
	)
	flagSet.StringVar(&addr, "addr", "localhost", "Address to listen on")
	flagSet.IntVar(&port, "port", 8080, "Port to listen on")
	flagSet.StringVar(&dbPath, "db-path", "hncast.db", "Path to SQLite cache file")
	flagSet.StringVar(&hnBaseURL, "hn-base-url", "", "HN API base URL (default: official API)")
	flagSet.DurationVar(&hnTimeout, "hn-timeout", 15*time.Second, "Per-item fetch timeout")
	flagSet.IntVar(&concurrency, "fetch-concurrency", 10, "Max in-flight HN API calls per batch")
	flagSet.IntVar(&maxDepth, "comments-max-depth", 20, "Max comment tree depth")
	flagSet.IntVar(&maxNodes, "comments-max-nodes", 2000, "Max comments resolved per story")
	flagSet.BoolVar(&expandDeleted, "comments-expand-deleted", false, "Expand children of deleted comments")
	flagSet.DurationVar(&commentsTTL, "comments-ttl", 10*time.Minute, "Comment cache freshness window")
	flagSet.IntVar(&topLimit, "top-limit", 50, "Stories cached eagerly per poll")
	flagSet.DurationVar(&pollInterval, "poll-interval", 5*time.Minute, "Top story poll interval")
	flagSet.DurationVar(&retention, "retention", 7*24*time.Hour, "How long off-page stories stay cached")
	flagSet.StringVar(&genURL, "gen-url", "", "Generation service stream endpoint")
	flagSet.StringVar(&genAPIKey, "gen-api-key", "", "Generation service API key")
	flagSet.StringVar(&genPersona, "gen-persona", "podcast", "Generation persona/scope selector")
	flagSet.DurationVar(&genTimeout, "gen-timeout", 2*time.Minute, "Generation session timeout")

	if err := ff.Parse(flagSet, os.Args[1:], ff.WithEnvVars()); err != nil {
		slog.Error("failed to parse flags", "error", err)
		os.Exit(1)
	}

	// Cache database
	db, err := store.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	stories := store.NewStoryStore(db)
	comments := store.NewCommentStore(db)
	articles := store.NewArticleStore(db)
	topList := store.NewTopList()

	// HN client and fan-out
	hnClient := hn.NewClient(hnBaseURL, hnTimeout)
	agg := fetch.NewAggregator(hnClient, concurrency)
	resolver := fetch.NewResolver(agg, fetch.ResolverConfig{
		MaxDepth:      maxDepth,
		MaxNodes:      maxNodes,
		ExpandDeleted: expandDeleted,
	})
	refresher := worker.NewRefresher(hnClient, resolver, stories, comments, articles)

	// Generation relay
	genCfg := gen.Config{
		URL:     genURL,
		APIKey:  genAPIKey,
		Persona: genPersona,
		Timeout: genTimeout,
	}
	relay := gen.NewRelay(genCfg)
	if !genCfg.Configured() {
		slog.Warn("generation upstream not configured; /api/generate will fail")
	}

	// SSE broker for cache-update notifications
	broker := sse.NewBroker()

	// Background workers
	workerCtx, workerCancel := context.WithCancel(context.Background())
	worker.NewPoller(hnClient, agg, stories, topList, broker, topLimit, pollInterval).Start(workerCtx)
	worker.NewCleaner(stories, retention).Start(workerCtx)

	// API handlers
	storiesHandler := api.NewStoriesHandler(hnClient, agg, stories, topList, refresher)
	commentsHandler := api.NewCommentsHandler(comments, refresher, commentsTTL)
	articlesHandler := api.NewArticlesHandler(articles, stories, refresher)
	generateHandler := api.NewGenerateHandler(relay)
	refreshHandler := api.NewRefreshHandler(refresher, broker)
	healthHandler := api.NewHealthHandler(stories, comments, topList, genCfg)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/stories", storiesHandler.ListStories)
	mux.HandleFunc("GET /api/stories/{id}", storiesHandler.GetStory)
	mux.HandleFunc("GET /api/stories/{id}/comments", commentsHandler.GetComments)
	mux.HandleFunc("GET /api/stories/{id}/article", articlesHandler.GetArticle)
	mux.HandleFunc("POST /api/stories/{id}/refresh", refreshHandler.Refresh)
	mux.HandleFunc("POST /api/generate", generateHandler.Generate)
	mux.Handle("GET /api/events", broker)
	mux.Handle("GET /api/health", healthHandler)

	listenAddr := fmt.Sprintf("%s:%d", addr, port)
	srv := &http.Server{
		Addr:    listenAddr,
		Handler: api.CORS(api.LogRequests(mux)),
	}

	go func() {
		slog.Info("server starting", "addr", listenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("received signal, shutting down", "signal", sig)

	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}
