package main

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"venditto/config"
	"venditto/controllers"
	"venditto/db"
	"venditto/router"
	"venditto/tools"
	"venditto/workers"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// =====================
// ENV esperadas
// =====================
//
// - CONFIG            (caminho do config JSON; default config/config.json)
// - AUTOMIGRATE       (1 roda o automigrate no boot; só dev)
// - GEMINI_API_KEY    (habilita o OCR de documentos; sem ela jobs de OCR falham)
// - GEMINI_MODEL      (opcional, default gemini-2.0-flash)
//
// O resto da configuração (porta, banco, token admin, worker) vem do JSON.
// =====================

func main() {
	// .env é opcional (dev); em produção as ENVs vêm do ambiente mesmo
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG")
	if configPath == "" {
		configPath = "config/config.json"
	}
	cfg := config.Get(configPath)

	if cfg.LogPath != "" {
		_ = os.MkdirAll(filepath.Dir(cfg.LogPath), 0o755)
		if f, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			log.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	db.SetConfigurations(cfg)
	conn, err := db.Connect()
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer conn.Close()

	controllers.OutboundDedupWindow = time.Duration(cfg.OutboundDedupWindowSeconds) * time.Second

	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		ocr, err := tools.NewGeminiOCR(context.Background(), apiKey, os.Getenv("GEMINI_MODEL"))
		if err != nil {
			log.Fatalf("gemini: %v", err)
		}
		defer ocr.Close()
		workers.SetOCRProvider(ocr)
	} else {
		log.Printf("GEMINI_API_KEY não configurada; jobs de OCR vão falhar até configurar")
	}

	workers.StartJobProcessor(conn,
		time.Duration(cfg.Worker.PollIntervalSeconds)*time.Second,
		cfg.Worker.BatchSize)

	r := gin.New()
	r.Use(db.SetDBtoContext(conn))
	router.Initialize(r, cfg)

	log.Printf("Venditto listening on :%s", cfg.ApiPort)
	if err := r.Run(":" + cfg.ApiPort); err != nil {
		log.Fatal(err)
	}
}
