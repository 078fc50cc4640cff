package easytouch

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

type statusPayload struct {
	SN    string                   `json:"SN"`
	CI    *int                     `json:"CI"`
	PRM   []int                    `json:"PRM"`
	ZSts  map[string][]int         `json:"Z_sts"`
	Cfg   map[string]RawZoneConfig `json:"Cfg"`
}

// DecodeStatus decodes a status payload read from the status
// characteristic. It is total over well-formed input and fails with
// MalformedPayloadError on anything violating the wire contract: invalid
// JSON, a missing zone status section, non-numeric zone keys or zone
// arrays of the wrong shape. Capability sections, when present, are
// carried through as raw configs for the resolver.
func DecodeStatus(payload []byte) (*DeviceStatus, error) {
	decoded := statusPayload{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, MalformedPayloadError{Reason: fmt.Sprintf("invalid JSON: %s", err)}
	}
	if decoded.ZSts == nil {
		return nil, MalformedPayloadError{Reason: "no zone status section"}
	}

	res := &DeviceStatus{
		Serial:       decoded.SN,
		ControllerID: decoded.CI,
		Param:        decoded.PRM,
		Zones:        make(map[int]ZoneStatus),
	}

	for key, values := range decoded.ZSts {
		zone, err := strconv.Atoi(key)
		if err != nil || zone < 0 {
			return nil, MalformedPayloadError{Reason: fmt.Sprintf("invalid zone key '%s'", key)}
		}
		status, err := DecodeZoneArray(values)
		if err != nil {
			return nil, fmt.Errorf("zone %d: %w", zone, err)
		}
		res.Zones[zone] = status
	}

	if decoded.Cfg != nil {
		res.Configs = make(map[int]RawZoneConfig)
		for key, cfg := range decoded.Cfg {
			zone, err := strconv.Atoi(key)
			if err != nil || zone < 0 {
				return nil, MalformedPayloadError{Reason: fmt.Sprintf("invalid config zone key '%s'", key)}
			}
			res.Configs[zone] = cfg
		}
	}

	return res, nil
}

type changePayload struct {
	Type    string                 `json:"Type"`
	Changes map[string]interface{} `json:"Changes"`
}

type requestPayload struct {
	Type  string `json:"Type"`
	Zone  int    `json:"Zone"`
	Email string `json:"EM,omitempty"`
	Stamp int64  `json:"TM"`
	Lat   string `json:"LAT,omitempty"`
	Lon   string `json:"LON,omitempty"`
}

// Encode renders the command as a Change payload. Mode changes always carry
// power 1: the controller treats power 0 as a system-wide off, and a
// per-zone off is mode 0 with power 1.
func (c *Command) Encode() ([]byte, error) {
	changes := map[string]interface{}{"zone": c.Zone}
	switch c.Field {
	case FieldMode:
		changes["power"] = 1
		changes["mode"] = c.Value
	default:
		changes[string(c.Field)] = c.Value
	}
	return json.Marshal(changePayload{Type: "Change", Changes: changes})
}

// EncodeStatusRequest renders the poll request the controller answers with
// a full status payload on the status characteristic.
func EncodeStatusRequest(email string, now time.Time) []byte {
	data, _ := json.Marshal(requestPayload{
		Type:  "Get Status",
		Email: email,
		Stamp: now.Unix(),
	})
	return data
}

// EncodeConfigRequest renders the capability query for one zone.
func EncodeConfigRequest(zone int, email string, now time.Time) []byte {
	data, _ := json.Marshal(requestPayload{
		Type:  "Get Config",
		Zone:  zone,
		Email: email,
		Stamp: now.Unix(),
	})
	return data
}

// EncodeReboot renders the controller reset command. The device drops the
// link while rebooting, so a write error after this payload is expected.
func EncodeReboot() []byte {
	data, _ := json.Marshal(changePayload{
		Type:    "Change",
		Changes: map[string]interface{}{"zone": 0, "reset": " OK"},
	})
	return data
}

// EncodeAllOff renders the system-wide off command. Individual zones are
// turned off with a per-zone mode 0 change instead.
func EncodeAllOff() []byte {
	data, _ := json.Marshal(changePayload{
		Type:    "Change",
		Changes: map[string]interface{}{"zone": 0, "power": 0},
	})
	return data
}

// EncodeLocationRequest renders the command setting the controller's
// coordinates, used by its scheduling features.
func EncodeLocationRequest(lat, lon float64, now time.Time) ([]byte, error) {
	if lat < -90.0 || lat > 90.0 {
		return nil, InvalidCommandValueError{Field: "LAT", Value: int(lat), Reason: "latitude is in [-90;90]"}
	}
	if lon < -180.0 || lon > 180.0 {
		return nil, InvalidCommandValueError{Field: "LON", Value: int(lon), Reason: "longitude is in [-180;180]"}
	}
	return json.Marshal(requestPayload{
		Type:  "Get Status",
		Lat:   fmt.Sprintf("%.5f", lat),
		Lon:   fmt.Sprintf("%.5f", lon),
		Stamp: now.Unix(),
	})
}

// EncodeZoneStatus renders a status payload for one zone, the inverse of
// DecodeStatus over single-zone payloads. The daemon's stub device and the
// tests use it; the real controller builds these itself.
func EncodeZoneStatus(zone int, status ZoneStatus, param []int) []byte {
	arr := status.Array()
	values := make([]int, 0, ZoneStatusLength)
	for _, v := range arr {
		values = append(values, v)
	}
	data, _ := json.Marshal(statusPayload{
		PRM:  param,
		ZSts: map[string][]int{strconv.Itoa(zone): values},
	})
	return data
}
