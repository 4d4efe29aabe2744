package auditlog

import (
	"context"
	"time"

	"github.com/alphatracesol/operator-uplift-gateway/internal/provider"
)

// Entry is one request/response pair. Append-only; losing one never
// affects the user-facing transaction.
type Entry struct {
	UserID   string
	Type     string
	Input    []provider.Message
	Output   string
	Provider string
	At       time.Time
}

type Logger interface {
	Log(ctx context.Context, entry *Entry) error
}
