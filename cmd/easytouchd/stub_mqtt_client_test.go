package main

import (
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type stubToken struct{}

func (t stubToken) Wait() bool                     { return true }
func (t stubToken) WaitTimeout(time.Duration) bool { return true }
func (t stubToken) Error() error                   { return nil }

func (t stubToken) Done() <-chan struct{} {
	done := make(chan struct{})
	close(done)
	return done
}

type publication struct {
	topic    string
	retained bool
	payload  string
}

// stubMQTTClient records publications and subscriptions in order.
type stubMQTTClient struct {
	mx           sync.Mutex
	publications []publication
	subscribed   []string
}

func (s *stubMQTTClient) IsConnected() bool       { return true }
func (s *stubMQTTClient) IsConnectionOpen() bool  { return true }
func (s *stubMQTTClient) Connect() mqtt.Token     { return stubToken{} }
func (s *stubMQTTClient) Disconnect(quiesce uint) {}

func (s *stubMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	s.mx.Lock()
	defer s.mx.Unlock()
	data := ""
	switch v := payload.(type) {
	case string:
		data = v
	case []byte:
		data = string(v)
	}
	s.publications = append(s.publications, publication{
		topic:    topic,
		retained: retained,
		payload:  data,
	})
	return stubToken{}
}

func (s *stubMQTTClient) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.subscribed = append(s.subscribed, topic)
	return stubToken{}
}

func (s *stubMQTTClient) SubscribeMultiple(filters map[string]byte, callback mqtt.MessageHandler) mqtt.Token {
	return stubToken{}
}

func (s *stubMQTTClient) Unsubscribe(topics ...string) mqtt.Token { return stubToken{} }

func (s *stubMQTTClient) AddRoute(topic string, callback mqtt.MessageHandler) {}

func (s *stubMQTTClient) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.ClientOptionsReader{}
}

func (s *stubMQTTClient) published(topic string) []publication {
	s.mx.Lock()
	defer s.mx.Unlock()
	res := []publication{}
	for _, p := range s.publications {
		if p.topic == topic {
			res = append(res, p)
		}
	}
	return res
}
