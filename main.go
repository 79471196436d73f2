package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"lectureNotes/config"
	"lectureNotes/core"
	"lectureNotes/processors"
	"lectureNotes/server"
	"lectureNotes/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("failed to create data dir: %v", err)
	}

	runner := core.ExecRunner{}
	embedder := processors.PickEmbedder(cfg)
	asr := processors.PickASRProvider(cfg, runner)
	summarizer := processors.PickSummarizer(cfg)

	store := storage.NewVectorStore(cfg, embedder)
	log.Printf("Vector store initialized")

	tasks := core.NewTaskManager(core.NewMemoryTaskStore(), cfg.TaskWorkers, cfg.TaskQueueDepth)
	defer tasks.Shutdown()

	pipeline := processors.NewPipeline(cfg, runner, asr, embedder, summarizer, store)

	mux := http.NewServeMux()
	srv := server.NewServer(cfg, pipeline, tasks, store)
	srv.RegisterRoutes(mux)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
	}
	log.Printf("lectureNotes listening on :%s (data dir %s)", port, cfg.DataDir)
	if err := httpServer.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}
