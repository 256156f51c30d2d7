package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != 8086 {
		t.Errorf("expected default port 8086, got %d", cfg.Server.Port)
	}
	if cfg.Simulator.TransactionsPerMinute != 30 {
		t.Errorf("expected 30 tpm, got %d", cfg.Simulator.TransactionsPerMinute)
	}
	if cfg.Simulator.FraudRate != 0.08 {
		t.Errorf("expected fraud rate 0.08, got %f", cfg.Simulator.FraudRate)
	}
	if cfg.Scoring.SimulatedFraudFloor != 70 {
		t.Errorf("expected fraud floor 70, got %d", cfg.Scoring.SimulatedFraudFloor)
	}
	if len(cfg.Scoring.RiskyMerchants) == 0 || len(cfg.Scoring.SuspiciousCountries) == 0 {
		t.Error("scoring lists must have defaults")
	}
	if cfg.Inference.ModelID != "fraud-detection-v1" {
		t.Errorf("unexpected model id %q", cfg.Inference.ModelID)
	}
}

func TestEnabledGates(t *testing.T) {
	var db DatabaseConfig
	if db.Enabled() {
		t.Error("empty database config must be disabled")
	}
	db.Host = "db.internal"
	db.User = "fraud"
	if !db.Enabled() {
		t.Error("database with host and user must be enabled")
	}

	var redis RedisConfig
	if redis.Enabled() {
		t.Error("empty redis config must be disabled")
	}
	redis.Host = "cache.internal"
	if !redis.Enabled() {
		t.Error("redis with host must be enabled")
	}

	var kafka KafkaConfig
	if kafka.Enabled() {
		t.Error("empty kafka config must be disabled")
	}
	kafka.Brokers = []string{"broker:9092"}
	if !kafka.Enabled() {
		t.Error("kafka with brokers must be enabled")
	}

	var cloud CloudConfig
	if cloud.Enabled() {
		t.Error("empty cloud config must be disabled")
	}
	cloud.AccessKeyID = "AK"
	if cloud.Enabled() {
		t.Error("cloud with only an access key must stay disabled")
	}
	cloud.SecretAccessKey = "SK"
	if !cloud.Enabled() {
		t.Error("cloud with both keys must be enabled")
	}
}
