package soap

import (
	"context"
	"sync"
	"time"

	"wasdeploy/internal/api"
	"wasdeploy/internal/mbean"
	"wasdeploy/pkg/logging"

	"github.com/google/uuid"
)

// AppManagementNotificationType is the notification type application
// management tasks are reported under.
const AppManagementNotificationType = "websphere.admin.appmgmt"

// Notification is one JMX notification pulled from the server.
type Notification struct {
	Type       string     `xml:"type,attr"`
	Sequence   int64      `xml:"sequence,attr"`
	TaskName   string     `xml:"taskName"`
	TaskStatus string     `xml:"taskStatus"`
	Message    string     `xml:"message"`
	Properties []Property `xml:"property"`
}

// Property is a name/value pair attached to a notification.
type Property struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

// PropertyMap returns the properties as a map.
func (n Notification) PropertyMap() map[string]string {
	m := make(map[string]string, len(n.Properties))
	for _, p := range n.Properties {
		m[p.Name] = p.Value
	}
	return m
}

// Subscription delivers the notifications of one MBean to a handler. The
// handler runs on the subscription's pump goroutine, one notification at
// a time in sequence order.
type Subscription struct {
	client   *Client
	id       string
	handback string

	stop     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// Subscribe registers a listener for notifications of notificationType
// emitted by name and starts pulling them.
func (c *Client) Subscribe(ctx context.Context, name mbean.ObjectName, notificationType string, handler func(Notification)) (*Subscription, error) {
	handback := uuid.NewString()
	v, err := c.value(ctx, Request{
		Operation:  "addNotificationListener",
		ObjectName: name.String(),
		Params:     []Value{String(notificationType), String(handback)},
	})
	if err != nil {
		return nil, err
	}
	id, _ := v.(string)
	if id == "" {
		return nil, &api.TransportError{Operation: "addNotificationListener", Message: "server returned no subscription id"}
	}

	s := &Subscription{
		client:   c,
		id:       id,
		handback: handback,
		stop:     make(chan struct{}),
	}
	s.wg.Add(1)
	go s.pump(handler)
	logging.Debug(subsystem, "Subscribed to %s notifications of %s (%s)", notificationType, name, id)
	return s, nil
}

func (s *Subscription) pump(handler func(Notification)) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.client.opts.PollInterval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	var lastSeq int64 = -1
	for {
		resp, err := s.client.Call(ctx, Request{Operation: "pullNotifications", Params: []Value{String(s.id)}})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logging.Debug(subsystem, "Pulling notifications for %s failed: %v", s.id, err)
		} else {
			for _, n := range resp.Notifications {
				if n.Sequence <= lastSeq {
					continue
				}
				lastSeq = n.Sequence
				handler(n)
			}
		}

		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}
	}
}

// Close stops the pump and removes the listener from the server.
func (s *Subscription) Close() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, err = s.client.Call(ctx, Request{Operation: "removeNotificationListener", Params: []Value{String(s.id)}})
	})
	return err
}
