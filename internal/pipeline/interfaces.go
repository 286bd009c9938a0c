package pipeline

import (
	"context"

	"github.com/dvloznov/voice-inventory/internal/actions"
	"github.com/dvloznov/voice-inventory/internal/intent"
)

// CommandParser interprets a transcript. Implementations never fail; an
// uninterpretable transcript yields an Unknown command.
type CommandParser interface {
	Parse(ctx context.Context, transcript string) intent.Command
}

// CommandDispatcher executes a command for an owner and reports the outcome
// as data.
type CommandDispatcher interface {
	Dispatch(ctx context.Context, ownerID string, cmd intent.Command) actions.Result
}
