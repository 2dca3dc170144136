package container

import (
	"github.com/samber/do"
)

// ServerPackages registers everything the HTTP server needs. Backends are
// only connected when first invoked, so unused ones never dial out.
func ServerPackages(i *do.Injector, opts *Options) {
	do.ProvideValue(i, opts)
	LoggerPackage(i)
	RedisPackage(i)
	PostgresPackage(i)
	MetricsPackage(i)
	RepositoryPackage(i)
	RateLimitPackage(i)
	MessagingPackage(i)
	ConsumerGroupPackage(i)
	SchedulerPackage(i)
	HTTPPackage(i)
}

// SweeperPackages registers what the standalone sweep worker needs.
func SweeperPackages(i *do.Injector, opts *Options) {
	do.ProvideValue(i, opts)
	LoggerPackage(i)
	RedisPackage(i)
	PostgresPackage(i)
	MetricsPackage(i)
	RepositoryPackage(i)
	MessagingPackage(i)
	ConsumerGroupPackage(i)
	SchedulerPackage(i)
}
