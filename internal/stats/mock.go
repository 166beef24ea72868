package stats

import "github.com/stretchr/testify/mock"

// MockStatsUpdater stands in for the StatsUpdater in component tests, which
// assert on the chat metrics (EventsDropped, NumActiveGroups, ...) without a
// running update loop.
type MockStatsUpdater struct {
	mock.Mock
}

var _ StatsProvider = (*MockStatsUpdater)(nil)

func (m *MockStatsUpdater) Incr(name string) {
	m.Called(name)
}

func (m *MockStatsUpdater) Decr(name string) {
	m.Called(name)
}

func (m *MockStatsUpdater) RegisterMetric(name string) {
	m.Called(name)
}

func (m *MockStatsUpdater) Run() {
	m.Called()
}
