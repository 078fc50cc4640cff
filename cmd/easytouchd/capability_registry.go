package main

import (
	"os"
	"sort"
	"sync"

	"github.com/adrg/xdg"
	"github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"

	"github.com/openrv/easytouch/internal/easytouch"
)

// CapabilityRegistry resolves and caches per-zone capability descriptors.
// Capability data is persisted across restarts: some controllers only
// report it reliably once after a reboot, and a cached descriptor beats an
// unqueried sentinel.
type CapabilityRegistry struct {
	mx      sync.RWMutex
	device  string
	configs map[int]easytouch.RawZoneConfig
	logger  *logrus.Entry
}

func NewCapabilityRegistry() *CapabilityRegistry {
	return &CapabilityRegistry{
		configs: make(map[int]easytouch.RawZoneConfig),
		logger:  NewLogger("capabilities"),
	}
}

func capabilityCachePath() (string, error) {
	return xdg.DataFile("easytouchd/capabilities.yml")
}

type capabilityCache struct {
	Device string                          `yaml:"device"`
	Zones  map[int]easytouch.RawZoneConfig `yaml:"zones"`
}

// Restore loads the cached capability data for the controller at device. A
// cache written for another controller is ignored wholesale.
func (r *CapabilityRegistry) Restore(device string) {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.device = device

	fpath, err := capabilityCachePath()
	if err != nil {
		r.logger.WithError(err).Warn("could not locate capability cache")
		return
	}
	buf, err := os.ReadFile(fpath)
	if err != nil {
		if os.IsNotExist(err) == false {
			r.logger.WithError(err).Warn("could not read capability cache")
		}
		return
	}
	cache := capabilityCache{}
	if err := yaml.Unmarshal(buf, &cache); err != nil {
		r.logger.WithError(err).Warn("clearing invalid capability cache")
		os.RemoveAll(fpath)
		return
	}
	if cache.Device != device {
		r.logger.WithFields(logrus.Fields{
			"cached":  cache.Device,
			"current": device,
		}).Info("ignoring capability cache of another controller")
		return
	}
	for zone, config := range cache.Zones {
		r.configs[zone] = r.configs[zone].Merge(config)
	}
	r.logger.WithField("zones", len(cache.Zones)).Info("restored capability cache")
}

func (r *CapabilityRegistry) saveUnsafe() {
	fpath, err := capabilityCachePath()
	if err == nil {
		cache := capabilityCache{Device: r.device, Zones: r.configs}
		var buf []byte
		buf, err = yaml.Marshal(cache)
		if err == nil {
			err = os.WriteFile(fpath, buf, 0644)
		}
	}
	if err != nil {
		r.logger.WithError(err).Warn("could not save capability cache")
	}
}

// OnStatus merges capability sections of a polled snapshot, keeping
// known-good data over sentinels, and persists the result when it changed.
func (r *CapabilityRegistry) OnStatus(status *easytouch.DeviceStatus) {
	if len(status.Zones) == 0 && len(status.Configs) == 0 {
		return
	}
	r.mx.Lock()
	defer r.mx.Unlock()

	changed := false
	for zone := range status.Zones {
		if _, ok := r.configs[zone]; ok == false {
			r.configs[zone] = easytouch.RawZoneConfig{}
			changed = true
		}
	}
	for zone, config := range status.Configs {
		merged := r.configs[zone].Merge(config)
		if easytouch.ResolveCapabilities(merged).NeedsRediscovery() !=
			easytouch.ResolveCapabilities(r.configs[zone]).NeedsRediscovery() {
			r.logger.WithField("zone", zone).Info("capability data resolved")
		}
		r.configs[zone] = merged
		changed = true
	}
	if changed == true {
		r.saveUnsafe()
	}
}

// Capabilities returns the resolved descriptor of a zone. The second value
// is false for zones the controller never reported.
func (r *CapabilityRegistry) Capabilities(zone int) (easytouch.Capabilities, bool) {
	r.mx.RLock()
	defer r.mx.RUnlock()
	config, ok := r.configs[zone]
	if ok == false {
		return easytouch.Capabilities{}, false
	}
	return easytouch.ResolveCapabilities(config), true
}

// Unresolved lists zones still carrying unqueried sentinels, in ascending
// order.
func (r *CapabilityRegistry) Unresolved() []int {
	r.mx.RLock()
	defer r.mx.RUnlock()
	res := []int{}
	for zone, config := range r.configs {
		if easytouch.ResolveCapabilities(config).NeedsRediscovery() == true {
			res = append(res, zone)
		}
	}
	sort.Ints(res)
	return res
}

// Zones lists all known zones in ascending order.
func (r *CapabilityRegistry) Zones() []int {
	r.mx.RLock()
	defer r.mx.RUnlock()
	res := []int{}
	for zone := range r.configs {
		res = append(res, zone)
	}
	sort.Ints(res)
	return res
}
