package domain

import (
	"context"
	"time"
)

// CalculatorCatalog is the read side of the registry consumed by collaborators.
type CalculatorCatalog interface {
	CalculatorByID(id string) (Calculator, bool)
	CalculatorsByCategory(categoryID string) []Calculator
	Categories() []Category
	Calculators() []Calculator
	Compute(calculatorID string, inputs Inputs) (Result, error)
}

// RecordStore appends and reads immutable calculation records.
type RecordStore interface {
	Save(ctx context.Context, record *CalculationRecord) error
	Get(ctx context.Context, id string) (*CalculationRecord, error)
	List(ctx context.Context, filter HistoryFilter) ([]*CalculationRecord, error)
	Count(ctx context.Context, filter HistoryFilter) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

// ResultCache memoizes pure compute results.
type ResultCache interface {
	Get(ctx context.Context, calculatorID string, inputs Inputs) (Result, bool)
	Set(ctx context.Context, calculatorID string, inputs Inputs, result Result, ttl time.Duration) error
}

// ConfigManager exposes the loaded configuration to the commands and transports.
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetDatabaseConfig() *DatabaseConfig
	GetCacheConfig() *CacheConfig
	Reload() error
	Validate() error
	IsProduction() bool
	IsDevelopment() bool
}
