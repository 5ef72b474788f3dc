package model

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Key is a time-ordered fill-key. A receiver of an orders directive acts
// on it only if the directive's key equals the last fill key the receiver
// has itself reported upstream (Hub<->Position) or the key it last emitted
// to upstream (Hub<->Exchange). The zero key is the sentinel "no fill yet,
// accept anything".
type Key struct {
	id uuid.UUID
}

// ZeroKey is the sentinel default key.
func ZeroKey() Key {
	return Key{}
}

// NewKey mints a fresh time-ordered key, minted whenever a fill is observed.
func NewKey() Key {
	id, err := uuid.NewV7()
	if err != nil {
		return Key{id: uuid.New()}
	}
	return Key{id: id}
}

func (k Key) Equal(o Key) bool {
	return k.id == o.id
}

func (k Key) IsZero() bool {
	return k.id == uuid.Nil
}

func (k Key) String() string {
	return k.id.String()
}

// MarshalZerologObject lets callers do log.Debug().EmbedObject(key) instead
// of manually stringifying at every call site.
func (k Key) MarshalZerologObject(e *zerolog.Event) {
	e.Str("key", k.id.String())
}
