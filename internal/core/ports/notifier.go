package ports

import "context"

// Notifier tells the developer how a build ended. It is an observer: a failing
// notification never fails a build.
//
//go:generate mockgen -source=notifier.go -destination=mocks/mock_notifier.go -package=mocks
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}
