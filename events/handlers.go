package events

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// NewOnEventLogger logs every event with the given logger, errors at warning
// level and everything else at debug level. A nil logger uses the logrus
// standard logger.
func NewOnEventLogger(logger logrus.FieldLogger) Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return func(event Event) {
		switch event := event.(type) {
		case EventContractViolation:
			logger.WithField("operation", event.Operation()).Warn(event.Err())
		case EventStatusReport:
			logger.WithFields(logrus.Fields{
				"sent":     event.SentSpans(),
				"dropped":  event.DroppedSpans(),
				"duration": event.Duration(),
			}).Debug("status report")
		case ErrorEvent:
			logger.WithError(event.Err()).Warn(event.String())
		default:
			logger.Debug(event.String())
		}
	}
}

// NewOnEventLogOneError only logs the first error event.
func NewOnEventLogOneError() Handler {
	logger := logOneError{}
	return logger.OnEvent
}

type logOneError struct {
	sync.Once
}

func (l *logOneError) OnEvent(event Event) {
	if event, ok := event.(ErrorEvent); ok {
		l.Once.Do(func() {
			logrus.Warnf("brave agent error: (%s). NOTE: install an event logger to see further errors.", event.Error())
		})
	}
}

// NewOnEventChannel returns an OnEvent callback handler, and a channel that
// produces the events. When the channel buffer is full, subsequent events
// will be dropped. A buffer size of less than one is adjusted to one.
func NewOnEventChannel(buffer int) (Handler, <-chan Event) {
	if buffer < 1 {
		buffer = 1
	}

	eventChan := make(chan Event, buffer)

	handler := func(event Event) {
		select {
		case eventChan <- event:
		default:
		}
	}

	return handler, eventChan
}
