package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"shortlet/internal/app/commands"
)

// IdempotentCommand must be implemented by commands that want idempotency guarantees.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	ResultPrototype() any // should match the handler result type
}

type IdempotencyRecord struct {
	Key        string
	Payload    []byte
	OccurredAt time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONResultCodec) Decode(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

var errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")

// replayKey scopes a client key by command and, when known, by actor so one
// caller can never replay another caller's result.
func replayKey(cmd IdempotentCommand) string {
	clientKey := strings.TrimSpace(cmd.IdempotencyKey())
	if clientKey == "" {
		return ""
	}
	scope := cmd.Key()
	if actor, ok := cmd.(ActorCommand); ok && actor.ActorID() != "" {
		scope += ":" + actor.ActorID()
	}
	return scope + ":" + clientKey
}

// Idempotency replays the stored result of a command that already succeeded
// under the same key. Failures are not stored and may be retried.
func Idempotency(store IdempotencyStore, codec ResultCodec) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := next.Dispatch
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok {
				return nextFn(ctx, cmd)
			}
			key := replayKey(idCmd)
			if key == "" {
				return nextFn(ctx, cmd)
			}
			rec, found, err := store.Get(ctx, key)
			if err != nil {
				return nil, fmt.Errorf("idempotency lookup: %w", err)
			}
			if found {
				return replay(codec, rec, idCmd.ResultPrototype())
			}
			result, err := nextFn(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := remember(ctx, store, codec, key, result); err != nil {
				return nil, err
			}
			return result, nil
		})
	}
}

func replay(codec ResultCodec, rec IdempotencyRecord, proto any) (any, error) {
	if proto == nil {
		return nil, errMissingPrototype
	}
	if len(rec.Payload) > 0 {
		if err := codec.Decode(rec.Payload, proto); err != nil {
			return nil, fmt.Errorf("idempotency replay %s: %w", rec.Key, err)
		}
	}
	if rv := reflect.ValueOf(proto); rv.Kind() == reflect.Ptr && !rv.IsNil() {
		return rv.Interface(), nil
	}
	return proto, nil
}

func remember(ctx context.Context, store IdempotencyStore, codec ResultCodec, key string, result any) error {
	record := IdempotencyRecord{Key: key, OccurredAt: time.Now().UTC()}
	if result != nil {
		payload, err := codec.Encode(result)
		if err != nil {
			return fmt.Errorf("idempotency encode: %w", err)
		}
		record.Payload = payload
	}
	return store.Save(ctx, record)
}
