package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mota-project/microservices/planning-service/board"
	"mota-project/microservices/planning-service/handlers"
	"mota-project/microservices/planning-service/logging"
	"mota-project/microservices/planning-service/metrics"
	"mota-project/microservices/planning-service/middleware"
	"mota-project/microservices/planning-service/repositories"
	"mota-project/microservices/planning-service/services"
)

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: %s is not set in the environment variables.", key)
	}
	return v
}

func connectMongo(uri string) (*mongo.Client, error) {
	var client *mongo.Client
	connect := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		c, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err != nil {
			return err
		}
		if err := c.Ping(ctx, nil); err != nil {
			_ = c.Disconnect(context.Background())
			return err
		}
		client = c
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logging.Logger.Warnf("Event ID: DB_CONNECT_RETRY, Description: MongoDB not reachable (%v), retrying in %s", err, wait)
	}
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 8)
	if err := backoff.RetryNotify(connect, policy, notify); err != nil {
		return nil, err
	}
	return client, nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		// Variables may come from the container environment instead.
		fmt.Fprintf(os.Stderr, "no .env file loaded: %v\n", err)
	}
	logging.InitLogger()
	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting Planning Service...")

	mongoURI := requireEnv("MONGO_URI")
	mongoDBName := requireEnv("MONGO_DB_NAME")
	serverPort := requireEnv("SERVER_PORT")
	jwtSecret := []byte(requireEnv("JWT_SECRET"))
	catalogFile := os.Getenv("CATALOG_FILE")
	if catalogFile == "" {
		catalogFile = "catalog.yaml"
	}

	catalog, err := repositories.LoadCatalogFile(catalogFile)
	if err != nil {
		logging.Logger.Fatalf("Event ID: CATALOG_LOAD_FAILED, Description: %v", err)
	}
	logging.Logger.Infof("Event ID: CATALOG_LOADED, Description: Loaded %d projects and %d members from %s", len(catalog.Projects), len(catalog.Members), catalogFile)

	client, err := connectMongo(mongoURI)
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Database connection for MongoDB failed: %v", err)
	}
	defer client.Disconnect(context.Background())
	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Successfully connected to MongoDB at %s.", mongoURI)

	db := client.Database(mongoDBName)
	storeBreaker := repositories.NewBreaker("mongo-cb", 5*time.Second)
	backlogRepo := repositories.NewMongoItemRepository(db.Collection("backlog_items"), board.AxisIteration, storeBreaker)
	kanbanRepo := repositories.NewMongoItemRepository(db.Collection("kanban_cards"), board.AxisStatus, storeBreaker)
	catalogRepo := repositories.NewMongoCatalogRepository(db, storeBreaker)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, repo := range []interface{ EnsureIndexes(context.Context) error }{backlogRepo, kanbanRepo, catalogRepo} {
		if err := repo.EnsureIndexes(ctx); err != nil {
			logging.Logger.Fatalf("Event ID: DB_INDEX_FAILED, Description: %v", err)
		}
	}

	var sink services.NotificationSink = services.LogSink{}
	if url := os.Getenv("NOTIFICATIONS_URL"); url != "" {
		sink = services.NewHTTPSink(url, &http.Client{Timeout: 5 * time.Second}, repositories.NewBreaker("notifications-cb", 5*time.Second))
	}

	boardService := services.NewBoardService(backlogRepo, kanbanRepo, catalogRepo, catalog, sink)
	if err := boardService.Seed(ctx); err != nil {
		logging.Logger.Fatalf("Event ID: CATALOG_SEED_FAILED, Description: %v", err)
	}
	boardHandler := handlers.NewBoardHandler(boardService)

	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.JWTAuth(jwtSecret))
	boardHandler.Routes(api)

	srv := &http.Server{
		Addr:         ":" + serverPort,
		Handler:      middleware.EnableCORS(os.Getenv("CORS_ORIGIN"))(r),
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost%s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed to start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Logger.Errorf("Event ID: SERVER_SHUTDOWN_ERROR, Description: %v", err)
	}
	logging.Logger.Info("Event ID: SERVICE_STOP, Description: Planning Service stopped")
}
