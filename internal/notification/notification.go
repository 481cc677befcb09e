package notification

import (
	"context"
	"errors"
	"fmt"
	"log"

	directorydomain "shifttask-backend/internal/directory/domain"
)

// Channel is one delivery path for a notification
type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// ErrNoAddress is returned by a sender when the recipient cannot be reached on its channel.
var ErrNoAddress = errors.New("recipient has no address for channel")

// Recipient is a resolved employee with its contact handles
type Recipient struct {
	EmployeeID string
	UserID     string
	Name       string
	Email      string
	Phone      string
}

// FromEmployee builds a recipient from a directory record.
func FromEmployee(e *directorydomain.Employee) Recipient {
	return Recipient{
		EmployeeID: e.ID,
		UserID:     e.UserID,
		Name:       e.Name,
		Email:      e.WorkEmail,
		Phone:      e.WorkPhone,
	}
}

// Kind tags what triggered a notification
type Kind string

const (
	KindOverdue     Kind = "task_overdue"
	KindReminder    Kind = "task_reminder"
	KindEscalation  Kind = "task_escalation"
	KindListExpired Kind = "task_list_incomplete"
)

// Message is the channel-independent content of a notification
type Message struct {
	Kind       Kind
	ResourceID string
	Subject    string
	Body       string
}

// Sender delivers a message over one channel
type Sender interface {
	Channel() Channel
	Send(ctx context.Context, to Recipient, msg Message) error
}

// ChannelError records the failure of one channel for one recipient
type ChannelError struct {
	Channel Channel
	Err     error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("%s channel: %v", e.Channel, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }

// Dispatcher fans a message out to the requested channels.
// Each channel is attempted independently; failures are logged and reported, never raised.
type Dispatcher struct {
	senders map[Channel]Sender
}

// NewDispatcher creates a dispatcher over the given senders. Nil senders are skipped.
func NewDispatcher(senders ...Sender) *Dispatcher {
	d := &Dispatcher{senders: make(map[Channel]Sender)}
	for _, s := range senders {
		if s == nil {
			continue
		}
		d.senders[s.Channel()] = s
	}
	return d
}

// Dispatch sends msg to the recipient on each channel and returns one ChannelError per failed channel.
func (d *Dispatcher) Dispatch(ctx context.Context, to Recipient, msg Message, channels ...Channel) []error {
	var errs []error
	for _, ch := range channels {
		sender, ok := d.senders[ch]
		if !ok {
			log.Printf("[Notify] Channel %s not configured, skipping %s for employee %s", ch, msg.Kind, to.EmployeeID)
			continue
		}
		if err := d.send(ctx, sender, to, msg); err != nil {
			log.Printf("[Notify] %s via %s to employee %s failed: %v", msg.Kind, ch, to.EmployeeID, err)
			errs = append(errs, &ChannelError{Channel: ch, Err: err})
		}
	}
	return errs
}

func (d *Dispatcher) send(ctx context.Context, sender Sender, to Recipient, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sender panic: %v", r)
		}
	}()
	return sender.Send(ctx, to, msg)
}
