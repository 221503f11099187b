//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"pulsechat/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself.
// Supervision (restart, panic recovery) is the supervisor's job.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// used for logging and supervision without forcing a naming method on
// every implementation.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Conn is one live connection handle owned by an authenticated identity.
// Send must not block the caller indefinitely; a failed Send is treated as
// an implicit disconnect by the router.
type Conn interface {
	ID() string
	Send(e event.DomainEvent) error
	Close() error
}
