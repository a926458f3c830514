package models

const (
	// DefaultLoanDays is the initial checkout period in calendar days.
	DefaultLoanDays = 14

	// DefaultExtensionDays is added to the due date per extension.
	DefaultExtensionDays = 7

	// DefaultMaxExtensions caps extensions per reservation.
	DefaultMaxExtensions = 2

	// DefaultPageSize for reservation listings.
	DefaultPageSize = 20

	// MaxPageSize bounds client-supplied page sizes.
	MaxPageSize = 100

	// DefaultActivityFeedLimit bounds the persisted activity feed.
	DefaultActivityFeedLimit = 100

	// DefaultCacheTTL время жизни кэша доступности в секундах
	DefaultCacheTTL = 30

	// RateLimitRequests количество запросов на бронирование в окне
	RateLimitRequests = 10

	// RateLimitWindow окно ограничения частоты в секундах
	RateLimitWindow = 60

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 256
)
