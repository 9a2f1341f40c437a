package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Envelope is the wire form of an event on durable queues.
type Envelope struct {
	ID         string              `json:"id"`
	Kind       Kind                `json:"kind"`
	OccurredAt time.Time           `json:"occurred_at"`
	Attempt    int                 `json:"attempt"`
	Payload    jsoniter.RawMessage `json:"payload"`
}

var registry = map[Kind]func() Event{
	KindRequestSubmitted:    func() Event { return &RequestSubmitted{} },
	KindRequestApproved:     func() Event { return &RequestApproved{} },
	KindRequestRejected:     func() Event { return &RequestRejected{} },
	KindRequestCancelled:    func() Event { return &RequestCancelled{} },
	KindExtensionRequested:  func() Event { return &ExtensionRequested{} },
	KindExtensionApplied:    func() Event { return &ExtensionApplied{} },
	KindExtensionDeclined:   func() Event { return &ExtensionDeclined{} },
	KindExtensionWindowOpen: func() Event { return &ExtensionWindowOpen{} },
	KindTransactionEnded:    func() Event { return &TransactionEnded{} },
	KindTransactionExpired:  func() Event { return &TransactionExpired{} },
	KindPaymentReceived:     func() Event { return &PaymentReceived{} },
	KindFavoritesRevocation: func() Event { return &FavoritesRevocation{} },
	KindNotificationDue:     func() Event { return &NotificationDue{} },
}

func NewEnvelope(e Event) (Envelope, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", e.Kind(), err)
	}
	return Envelope{
		ID:         uuid.NewString(),
		Kind:       e.Kind(),
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}, nil
}

func (env Envelope) Marshal() ([]byte, error) {
	return json.Marshal(env)
}

func UnmarshalEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return env, nil
}

// Event decodes the payload into its concrete value type.
func (env Envelope) Event() (Event, error) {
	factory, ok := registry[env.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown event kind %q", env.Kind)
	}
	ptr := factory()
	if err := json.Unmarshal(env.Payload, ptr); err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", env.Kind, err)
	}
	return deref(ptr), nil
}

// deref keeps handlers switching on value types regardless of transport.
func deref(e Event) Event {
	switch v := e.(type) {
	case *RequestSubmitted:
		return *v
	case *RequestApproved:
		return *v
	case *RequestRejected:
		return *v
	case *RequestCancelled:
		return *v
	case *ExtensionRequested:
		return *v
	case *ExtensionApplied:
		return *v
	case *ExtensionDeclined:
		return *v
	case *ExtensionWindowOpen:
		return *v
	case *TransactionEnded:
		return *v
	case *TransactionExpired:
		return *v
	case *PaymentReceived:
		return *v
	case *FavoritesRevocation:
		return *v
	case *NotificationDue:
		return *v
	}
	return e
}
