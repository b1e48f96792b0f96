package config

import (
	"encoding/json"
	"log"
	"os"
)

type Configuration struct {
	ApiPort string `json:"api_port"`
	LogPath string `json:"log_path"`

	Database string `json:"database"` // "sqlite3" ou "postgres"
	DbHost   string `json:"db_host"`
	DbPort   string `json:"db_port"`
	DbUser   string `json:"db_user"`
	DbName   string `json:"db_name"`
	DbPass   string `json:"db_pass"`

	// Token estático para a API administrativa (header X-Admin-Token).
	AdminToken string `json:"admin_token"`

	Worker struct {
		PollIntervalSeconds int `json:"poll_interval_seconds"`
		BatchSize           int `json:"batch_size"`
	} `json:"worker"`

	// Janela (segundos) da supressão heurística de outbound quase-duplicado.
	OutboundDedupWindowSeconds int `json:"outbound_dedup_window_seconds"`
}

func Get(path string) Configuration {
	b, err := os.ReadFile(path)
	if err != nil {
		log.Fatal(err)
	}
	var c Configuration
	if err := json.Unmarshal(b, &c); err != nil {
		log.Fatal(err)
	}

	// defaults (pra evitar nil/zero chato)
	if c.ApiPort == "" {
		c.ApiPort = "8080"
	}
	if c.LogPath == "" {
		c.LogPath = "logs/server.log"
	}
	if c.Database == "" {
		c.Database = "sqlite3"
	}
	if c.AdminToken == "" {
		c.AdminToken = "CHANGE_ME"
	}
	if c.Worker.PollIntervalSeconds <= 0 {
		c.Worker.PollIntervalSeconds = 1
	}
	if c.Worker.BatchSize <= 0 {
		c.Worker.BatchSize = 50
	}
	if c.OutboundDedupWindowSeconds <= 0 {
		c.OutboundDedupWindowSeconds = 60
	}

	return c
}
