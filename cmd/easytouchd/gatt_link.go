package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"

	"github.com/openrv/easytouch/internal/easytouch"
)

// GattLink is one established, authenticated connection to a controller. It
// is not safe for concurrent use; the session manager serializes access.
type GattLink interface {
	// WriteCommand writes one JSON payload to the command characteristic.
	WriteCommand(payload []byte) error
	// ReadStatus blocks until the controller notifies a complete status
	// payload, or ctx expires.
	ReadStatus(ctx context.Context) ([]byte, error)
	Close() error
}

// GattLinkFactory establishes a new link. The session manager calls it on
// demand and owns the result.
type GattLinkFactory func(ctx context.Context) (GattLink, error)

type bleLink struct {
	device  *bluetooth.Device
	command bluetooth.DeviceCharacteristic
	status  bluetooth.DeviceCharacteristic

	logger *logrus.Entry

	mx       sync.Mutex
	buffer   []byte
	payloads chan []byte
	closed   bool
}

var adapterEnabled sync.Once

func enableAdapter() (err error) {
	adapterEnabled.Do(func() {
		err = bluetooth.DefaultAdapter.Enable()
	})
	return err
}

func findDevice(ctx context.Context, address string) (bluetooth.Address, error) {
	adapter := bluetooth.DefaultAdapter
	var found bluetooth.Address
	ok := false
	errs := make(chan error, 1)

	go func() {
		<-ctx.Done()
		adapter.StopScan()
	}()

	go func() {
		errs <- adapter.Scan(func(a *bluetooth.Adapter, result bluetooth.ScanResult) {
			if strings.EqualFold(result.Address.String(), address) == false {
				return
			}
			found = result.Address
			ok = true
			a.StopScan()
		})
	}()

	if err := <-errs; err != nil {
		return found, err
	}
	if ok == false {
		return found, fmt.Errorf("device %s not found: %w", address, easytouch.ErrLinkUnavailable)
	}
	return found, nil
}

func mustParseUUID(s string) bluetooth.UUID {
	uuid, err := bluetooth.ParseUUID(s)
	if err != nil {
		panic(err.Error())
	}
	return uuid
}

var (
	serviceUUID  = mustParseUUID(easytouch.ServiceUUID)
	passwordUUID = mustParseUUID(easytouch.PasswordCharUUID)
	commandUUID  = mustParseUUID(easytouch.CommandCharUUID)
	statusUUID   = mustParseUUID(easytouch.StatusCharUUID)
)

// NewBLELinkFactory returns a factory establishing authenticated links to
// the controller at address. Establishing a link scans, connects, discovers
// the EasyTouch service and writes the password characteristic.
func NewBLELinkFactory(address, password string) GattLinkFactory {
	return func(ctx context.Context) (GattLink, error) {
		if err := enableAdapter(); err != nil {
			return nil, err
		}
		addr, err := findDevice(ctx, address)
		if err != nil {
			return nil, err
		}
		device, err := bluetooth.DefaultAdapter.Connect(addr, bluetooth.ConnectionParams{})
		if err != nil {
			return nil, fmt.Errorf("could not connect to %s: %w", address, err)
		}
		l := &bleLink{
			device:   device,
			logger:   NewLogger("link").WithField("device", address),
			payloads: make(chan []byte, 2),
		}
		if err := l.setup(password); err != nil {
			l.Close()
			return nil, err
		}
		return l, nil
	}
}

func (l *bleLink) setup(password string) error {
	services, err := l.device.DiscoverServices([]bluetooth.UUID{serviceUUID})
	if err != nil {
		return err
	}
	if len(services) == 0 {
		return fmt.Errorf("device does not expose service %s", easytouch.ServiceUUID)
	}
	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{
		passwordUUID, commandUUID, statusUUID,
	})
	if err != nil {
		return err
	}
	var passwordChar bluetooth.DeviceCharacteristic
	assigned := 0
	for _, char := range chars {
		switch char.UUID() {
		case passwordUUID:
			passwordChar = char
			assigned++
		case commandUUID:
			l.command = char
			assigned++
		case statusUUID:
			l.status = char
			assigned++
		}
	}
	if assigned != 3 {
		return fmt.Errorf("device exposes %d of 3 expected characteristics", assigned)
	}
	if _, err := passwordChar.WriteWithoutResponse([]byte(password)); err != nil {
		return fmt.Errorf("could not authenticate: %w", err)
	}
	return l.status.EnableNotifications(l.onNotification)
}

// Status payloads span several notifications. Chunks are accumulated until
// they form valid JSON, which delimits one complete payload.
func (l *bleLink) onNotification(chunk []byte) {
	l.mx.Lock()
	defer l.mx.Unlock()
	if l.closed == true {
		return
	}
	l.buffer = append(l.buffer, chunk...)
	if json.Valid(l.buffer) == false {
		return
	}
	payload := make([]byte, len(l.buffer))
	copy(payload, l.buffer)
	l.buffer = nil
	select {
	case l.payloads <- payload:
	default:
		l.logger.Warn("reader not ready, dropping status payload")
	}
}

func (l *bleLink) WriteCommand(payload []byte) error {
	_, err := l.command.WriteWithoutResponse(payload)
	return err
}

func (l *bleLink) ReadStatus(ctx context.Context) ([]byte, error) {
	select {
	case payload := <-l.payloads:
		return payload, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *bleLink) Close() error {
	l.mx.Lock()
	if l.closed == true {
		l.mx.Unlock()
		return nil
	}
	l.closed = true
	l.buffer = nil
	l.mx.Unlock()

	err := l.device.Disconnect()
	l.logger.Debug("disconnected")
	// leave a grace period: some controllers refuse a reconnection while
	// the previous one is still tearing down
	time.Sleep(100 * time.Millisecond)
	return err
}
