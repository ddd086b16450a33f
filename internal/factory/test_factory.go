package factory

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/typerace/internal/dependencies/mocks"
	"github.com/mcoot/typerace/internal/events"
	"github.com/mcoot/typerace/internal/services/account"
	"github.com/mcoot/typerace/internal/services/words"
	"github.com/mcoot/typerace/internal/storage/memory"
	"github.com/mcoot/typerace/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Storage is the in-memory backend behind both Directory and ScoreLog
	Storage *memory.Storage

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom

	// Events records everything the services publish
	Events *events.Recorder
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	recorder := events.NewRecorder()

	wordList, err := words.Load("", mockRandom)
	if err != nil {
		// The embedded lists are validated by the words tests
		panic(err)
	}

	accountCfg := account.DefaultConfig()
	accountCfg.BcryptCost = bcrypt.MinCost

	app := newWithDependencies(dependencies{
		directory: store,
		scoreLog:  store,
		clock:     mockClock,
		random:    mockRandom,
		words:     wordList,
		mirrors:   []events.Publisher{recorder},
		cfg:       Config{AccountConfig: accountCfg},
		logger:    testutil.NopLogger(),
	})

	return &TestApp{
		App:        app,
		Storage:    store,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		Events:     recorder,
	}
}
