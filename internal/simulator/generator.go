package simulator

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/fraudguard/fraud-service/internal/domain"
)

// Scenario identifies a fraud injection pattern.
type Scenario string

const (
	ScenarioHighAmount      Scenario = "highAmount"
	ScenarioRiskyMerchant   Scenario = "riskyMerchant"
	ScenarioUnusualTime     Scenario = "unusualTime"
	ScenarioLocationAnomaly Scenario = "locationAnomaly"
	ScenarioVelocitySpike   Scenario = "velocitySpike"
)

var merchantTypes = []string{
	"grocery", "restaurant", "gas-station", "retail", "pharmacy",
	"online-gaming", "crypto-exchange", "gift-card", "wire-transfer",
	"electronics", "clothing", "hotel", "airline", "entertainment",
}

var riskyMerchants = []string{
	"online-gaming", "crypto-exchange", "gift-card", "wire-transfer",
	"foreign-atm", "offshore-casino",
}

var merchantNames = map[string][]string{
	"grocery":         {"Fresh Market", "Whole Foods", "Target", "Walmart"},
	"restaurant":      {"Olive Garden", "Chipotle", "Starbucks", "McDonalds"},
	"gas-station":     {"Shell", "Chevron", "BP", "76"},
	"retail":          {"Amazon", "Best Buy", "Home Depot", "IKEA"},
	"online-gaming":   {"SteamGames", "Epic Store", "Xbox Live", "PlayStation Store"},
	"crypto-exchange": {"Binance", "Coinbase", "Kraken", "Crypto.com"},
	"gift-card":       {"Gift Card Mall", "CardCash", "Raise", "GiftCards.com"},
	"electronics":     {"Apple Store", "Best Buy", "B&H Photo", "Newegg"},
}

type place struct {
	City    string
	State   string
	Country string
}

var locations = []place{
	{"New York", "NY", "USA"},
	{"Los Angeles", "CA", "USA"},
	{"Chicago", "IL", "USA"},
	{"Houston", "TX", "USA"},
	{"Singapore", "Singapore", "Singapore"},
	{"London", "England", "UK"},
	{"Tokyo", "Tokyo", "Japan"},
	{"Sydney", "NSW", "Australia"},
}

var suspiciousLocations = []place{
	{"Lagos", "Lagos", "Nigeria"},
	{"Moscow", "Moscow", "Russia"},
	{"Unknown", "Unknown", "Tor Network"},
}

var paymentMethods = []string{"credit-card", "debit-card", "digital-wallet", "bank-transfer"}

var firstNames = []string{"John", "Jane", "Michael", "Sarah", "David", "Emily", "Robert", "Lisa", "James", "Maria"}
var lastNames = []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis", "Rodriguez", "Martinez"}

// Generator produces synthetic transactions, probabilistically fraudulent
// according to the configured rate. Safe for concurrent config updates.
type Generator struct {
	mu     sync.Mutex
	cfg    domain.SimulatorConfig
	rng    *rand.Rand
	now    func() time.Time
	serial int64
}

// NewGenerator creates a generator seeded from the wall clock.
func NewGenerator(cfg domain.SimulatorConfig) *Generator {
	return NewSeededGenerator(cfg, time.Now().UnixNano())
}

// NewSeededGenerator creates a generator with a fixed seed for
// reproducible streams.
func NewSeededGenerator(cfg domain.SimulatorConfig, seed int64) *Generator {
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
}

// WithClock overrides the generator's time source.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// UpdateConfig replaces the simulator configuration; the next invocation
// sees the new settings.
func (g *Generator) UpdateConfig(cfg domain.SimulatorConfig) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cfg = cfg
}

// Config returns the current simulator configuration.
func (g *Generator) Config() domain.SimulatorConfig {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cfg
}

// Generate produces one synthetic transaction.
func (g *Generator) Generate() *domain.GeneratedTransaction {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.serial++
	if g.rng.Float64() < g.cfg.FraudRate {
		return g.generateFraudulent()
	}
	return g.generateNormal()
}

func (g *Generator) generateNormal() *domain.GeneratedTransaction {
	tx := g.newBase()

	// Normal amounts: $5-$500
	tx.Amount = roundCents(g.rng.Float64()*495 + 5)

	normal := make([]string, 0, len(merchantTypes))
	for _, m := range merchantTypes {
		if !contains(riskyMerchants, m) {
			normal = append(normal, m)
		}
	}
	tx.MerchantType = normal[g.rng.Intn(len(normal))]
	tx.MerchantName = g.merchantNameFor(tx.MerchantType)

	loc := locations[g.rng.Intn(len(locations))]
	tx.Location = fmt.Sprintf("%s, %s", loc.City, loc.State)
	tx.Country = loc.Country

	tx.Timestamp = g.timestamp(false)
	return tx
}

func (g *Generator) generateFraudulent() *domain.GeneratedTransaction {
	tx := g.newBase()
	tx.IsSimulatedFraud = true

	scenario := g.pickScenario()
	switch scenario {
	case ScenarioHighAmount:
		// $1000-$5000
		tx.Amount = roundCents(g.rng.Float64()*4000 + 1000)
		tx.MerchantType = merchantTypes[g.rng.Intn(len(merchantTypes))]
		tx.MerchantName = g.merchantNameFor(tx.MerchantType)
		g.placeAt(tx, locations)
		tx.Timestamp = g.timestamp(false)
		tx.FraudReason = "Unusually high transaction amount"

	case ScenarioRiskyMerchant:
		tx.Amount = roundCents(g.rng.Float64()*1500 + 500)
		tx.MerchantType = riskyMerchants[g.rng.Intn(len(riskyMerchants))]
		tx.MerchantName = g.merchantNameFor(tx.MerchantType)
		g.placeAt(tx, locations)
		tx.Timestamp = g.timestamp(false)
		tx.FraudReason = "High-risk merchant category"

	case ScenarioUnusualTime:
		tx.Amount = roundCents(g.rng.Float64()*800 + 200)
		tx.MerchantType = merchantTypes[g.rng.Intn(len(merchantTypes))]
		tx.MerchantName = g.merchantNameFor(tx.MerchantType)
		g.placeAt(tx, locations)
		tx.Timestamp = g.timestamp(true)
		tx.FraudReason = "Transaction at unusual hours (2-6 AM)"

	case ScenarioLocationAnomaly:
		tx.Amount = roundCents(g.rng.Float64()*600 + 100)
		tx.MerchantType = merchantTypes[g.rng.Intn(len(merchantTypes))]
		tx.MerchantName = g.merchantNameFor(tx.MerchantType)
		g.placeAt(tx, suspiciousLocations)
		tx.Timestamp = g.timestamp(false)
		tx.FraudReason = "Suspicious geographic location"

	case ScenarioVelocitySpike:
		tx.Amount = roundCents(g.rng.Float64()*300 + 50)
		tx.MerchantType = "gift-card"
		tx.MerchantName = g.merchantNameFor(tx.MerchantType)
		g.placeAt(tx, locations)
		tx.Timestamp = g.timestamp(false)
		tx.FraudReason = "Rapid transaction velocity (card testing)"
	}

	return tx
}

// pickScenario selects uniformly among enabled scenarios, defaulting to the
// high-amount pattern when fraud was drawn but nothing is enabled.
func (g *Generator) pickScenario() Scenario {
	var enabled []Scenario
	s := g.cfg.Scenarios
	if s.HighAmount {
		enabled = append(enabled, ScenarioHighAmount)
	}
	if s.RiskyMerchant {
		enabled = append(enabled, ScenarioRiskyMerchant)
	}
	if s.UnusualTime {
		enabled = append(enabled, ScenarioUnusualTime)
	}
	if s.LocationAnomaly {
		enabled = append(enabled, ScenarioLocationAnomaly)
	}
	if s.VelocitySpike {
		enabled = append(enabled, ScenarioVelocitySpike)
	}
	if len(enabled) == 0 {
		return ScenarioHighAmount
	}
	return enabled[g.rng.Intn(len(enabled))]
}

func (g *Generator) newBase() *domain.GeneratedTransaction {
	first := firstNames[g.rng.Intn(len(firstNames))]
	last := lastNames[g.rng.Intn(len(lastNames))]

	return &domain.GeneratedTransaction{
		ID:            fmt.Sprintf("TXN-%d-%d", g.now().UnixMilli(), g.serial),
		UserID:        fmt.Sprintf("user_%d", g.rng.Intn(1000)),
		UserName:      fmt.Sprintf("%s %s", first, last),
		PaymentMethod: paymentMethods[g.rng.Intn(len(paymentMethods))],
		CardLast4:     fmt.Sprintf("%d", 1000+g.rng.Intn(9000)),
		IPAddress:     g.randomIP(),
		DeviceID:      fmt.Sprintf("device_%09x", g.rng.Int63n(1<<36)),
	}
}

func (g *Generator) placeAt(tx *domain.GeneratedTransaction, pool []place) {
	loc := pool[g.rng.Intn(len(pool))]
	tx.Location = fmt.Sprintf("%s, %s", loc.City, loc.State)
	tx.Country = loc.Country
}

func (g *Generator) merchantNameFor(merchantType string) string {
	names, ok := merchantNames[merchantType]
	if !ok {
		return fmt.Sprintf("%s Store", merchantType)
	}
	return names[g.rng.Intn(len(names))]
}

// timestamp returns today's date with an hour drawn from either the
// off-hours band [2,6) or normal business hours [9,22).
func (g *Generator) timestamp(unusualHours bool) time.Time {
	now := g.now()

	var hour int
	if unusualHours {
		hour = 2 + g.rng.Intn(4)
	} else {
		hour = 9 + g.rng.Intn(13)
	}

	return time.Date(now.Year(), now.Month(), now.Day(),
		hour, g.rng.Intn(60), g.rng.Intn(60), 0, now.Location())
}

func (g *Generator) randomIP() string {
	return fmt.Sprintf("%d.%d.%d.%d",
		g.rng.Intn(255), g.rng.Intn(255), g.rng.Intn(255), g.rng.Intn(255))
}

func roundCents(amount float64) float64 {
	return float64(int64(amount*100+0.5)) / 100
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
