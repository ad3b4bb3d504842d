package factory

import (
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/pinauthority/internal/dependencies/mocks"
	"github.com/mcoot/pinauthority/internal/services/auth"
	"github.com/mcoot/pinauthority/internal/services/hasher"
	"github.com/mcoot/pinauthority/internal/services/token"
	"github.com/mcoot/pinauthority/internal/storage/memory"
)

// TestSecret is the signing secret used by NewTestApp
const TestSecret = "test-secret-test-secret-test-secret!"

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Storage for direct inspection
	Memory *memory.Storage

	// Mocks for test control
	MockClock *mocks.MockClock
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// It uses in-memory storage, a mock clock and the cheapest bcrypt cost.
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	codec, err := token.New([]byte(TestSecret), mockClock, token.DefaultIssuer)
	if err != nil {
		panic(err)
	}

	app, err := newWithDependencies(
		store,
		mockClock,
		hasher.New(hasher.Config{Cost: bcrypt.MinCost}),
		codec,
		auth.DefaultConfig(),
		slog.New(slog.NewJSONHandler(io.Discard, nil)),
		prometheus.NewRegistry(),
	)
	if err != nil {
		panic(err)
	}

	return &TestApp{
		App:       app,
		Memory:    store,
		MockClock: mockClock,
	}
}
