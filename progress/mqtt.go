package progress

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"code.linksmart.eu/dt/pupdate/model"
	paho "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultMQTTTopic = "pupdate"
	mqttQueueSize    = 255
	mqttTimeout      = 5 * time.Second
	mqttQoS          = 1
)

type publisher interface {
	Publish(topic string, payload []byte) error
	Close()
}

// MQTT publishes every event as JSON to <prefix>/<runID>/events.
//	Callbacks only enqueue; a full queue drops the event.
type MQTT struct {
	runID string
	topic string
	pub   publisher
	now   func() model.UnixTime

	mutex  sync.Mutex
	closed bool
	queue  chan model.Event
	done   chan struct{}
}

// StartMQTT connects to the broker and starts the publishing goroutine
func StartMQTT(broker, prefix, clientID, runID string) (*MQTT, error) {
	if clientID == "" {
		clientID = "pupdate-" + runID
	}
	log.Println("MQTT broker:", broker)
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(mqttTimeout).
		SetAutoReconnect(true)
	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttTimeout) {
		return nil, fmt.Errorf("timeout connecting to MQTT broker %s", broker)
	}
	if token.Error() != nil {
		return nil, fmt.Errorf("error connecting to MQTT broker: %s", token.Error())
	}
	return newMQTT(&pahoPublisher{client}, prefix, runID), nil
}

func newMQTT(pub publisher, prefix, runID string) *MQTT {
	if prefix == "" {
		prefix = DefaultMQTTTopic
	}
	m := &MQTT{
		runID: runID,
		topic: fmt.Sprintf("%s/%s/events", prefix, runID),
		pub:   pub,
		now:   model.Now,
		queue: make(chan model.Event, mqttQueueSize),
		done:  make(chan struct{}),
	}
	go m.startPublisher()
	return m
}

func (m *MQTT) startPublisher() {
	defer close(m.done)
	for e := range m.queue {
		b, err := json.Marshal(e)
		if err != nil {
			log.Printf("mqtt: error encoding event: %s", err)
			continue
		}
		err = m.pub.Publish(m.topic, b)
		if err != nil {
			log.Printf("mqtt: error publishing %s event: %s", e.Type, err)
		}
	}
}

func (m *MQTT) TargetStarted(target string) {
	m.enqueue(startedEvent(target))
}

func (m *MQTT) TargetFinished(target string, succeeded bool, elapsed time.Duration) {
	m.enqueue(finishedEvent(target, succeeded, elapsed))
}

func (m *MQTT) OverallProgress(completed, total int) {
	m.enqueue(progressEvent(completed, total))
}

func (m *MQTT) enqueue(e model.Event) {
	e.RunID = m.runID
	e.Time = m.now()

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.closed {
		return
	}
	select {
	case m.queue <- e:
	default:
		log.Debugf("mqtt: queue full, dropped %s event", e.Type)
	}
}

// Close publishes the queued events and disconnects
func (m *MQTT) Close() {
	m.mutex.Lock()
	if m.closed {
		m.mutex.Unlock()
		return
	}
	m.closed = true
	close(m.queue)
	m.mutex.Unlock()

	<-m.done
	m.pub.Close()
	log.Println("mqtt: Stopped")
}

type pahoPublisher struct {
	client paho.Client
}

func (p *pahoPublisher) Publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, mqttQoS, false, payload)
	if !token.WaitTimeout(mqttTimeout) {
		return fmt.Errorf("timeout")
	}
	return token.Error()
}

func (p *pahoPublisher) Close() {
	p.client.Disconnect(250)
}
