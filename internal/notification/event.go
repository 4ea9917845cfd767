package notification

import (
	"errors"
	"fmt"
	"time"
)

var ErrUnknownEvent = errors.New("unknown notification event")

type Kind string

const (
	RegistrationCompleted Kind = "registration_completed"
	TrainingInvited       Kind = "training_invited"
	CertificateIssued     Kind = "certificate_issued"
	CertificateExpiring   Kind = "certificate_expiring"
)

// Event is emitted by the engines after their transaction commits.
type Event struct {
	Kind              Kind
	Email             string
	FullName          string
	TrainingURL       string
	CertificateNumber string
	ValidUntil        time.Time
}

// Notifier accepts events without blocking the caller.
type Notifier interface {
	Notify(event Event)
}

// NopNotifier discards every event.
type NopNotifier struct{}

func (NopNotifier) Notify(Event) {}

type Message struct {
	To      string
	Subject string
	Text    string
}

// Render turns an event into the outgoing letter.
func Render(event Event) (Message, error) {
	msg := Message{To: event.Email}
	greeting := fmt.Sprintf("Здравствуйте, %s.", event.FullName)

	switch event.Kind {
	case RegistrationCompleted:
		msg.Subject = "Регистрация завершена"
		msg.Text = greeting + " Регистрация завершена. В ближайшее время придет письмо со ссылкой на обучение."
	case TrainingInvited:
		msg.Subject = "Ссылка на обучение"
		msg.Text = fmt.Sprintf("%s Ссылка на обучение: %s", greeting, event.TrainingURL)
	case CertificateIssued:
		msg.Subject = "Сертификат оформлен"
		msg.Text = fmt.Sprintf("%s Ваш сертификат оформлен. Номер: %s.", greeting, event.CertificateNumber)
	case CertificateExpiring:
		msg.Subject = "Срок действия сертификата истекает"
		msg.Text = fmt.Sprintf("%s Срок действия сертификата %s истекает %s. Для продления пройдите обучение повторно.",
			greeting, event.CertificateNumber, event.ValidUntil.Format("02.01.2006"))
	default:
		return Message{}, fmt.Errorf("%w: %s", ErrUnknownEvent, event.Kind)
	}
	return msg, nil
}
